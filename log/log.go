package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelFatal = "fatal"
)

var (
	logger    zerolog.Logger
	logLevel  = LogLevelError
	loggerMtx sync.RWMutex

	// logTestWriter is used by tests and benchmarks to capture the output
	// when Init is called with logTestWriterName.
	logTestWriter     io.Writer
	logTestWriterName = "test"

	// panicOnInvalidChars makes the logger panic if a message contains
	// invalid UTF-8 characters. Useful to catch binary data being logged.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = LogLevelError
	}
	Init(level, "stderr", nil)
}

// errorLevelWriter forwards only error (and above) events to the inner writer.
type errorLevelWriter struct {
	io.Writer
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel {
		return len(p), nil
	}
	return w.Write(p)
}

// invalidCharChecker is a zerolog hook that detects messages with invalid
// UTF-8 sequences.
type invalidCharChecker struct{}

func (invalidCharChecker) Run(_ *zerolog.Event, _ zerolog.Level, msg string) {
	if !panicOnInvalidChars || utf8.ValidString(msg) {
		return
	}
	panic(fmt.Sprintf("log message with invalid chars: %q\n%s", msg, debug.Stack()))
}

// Init initializes the logger. Output can be "stdout", "stderr", the test
// writer name or a file path. If errorOutput is not nil, error messages are
// also written to it.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			panic(fmt.Sprintf("cannot create log output directory: %v", err))
		}
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot open log output: %v", err))
		}
		out = f
	}
	out = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339Nano,
		NoColor:    output != "stdout" && output != "stderr",
	}
	if errorOutput != nil {
		out = zerolog.MultiLevelWriter(out, &errorLevelWriter{errorOutput})
	}

	zlevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || zlevel == zerolog.NoLevel {
		panic(fmt.Sprintf("invalid log level: %q", level))
	}

	loggerMtx.Lock()
	defer loggerMtx.Unlock()
	logger = zerolog.New(out).Level(zlevel).With().Timestamp().Logger().Hook(invalidCharChecker{})
	logLevel = zlevel.String()
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	loggerMtx.RLock()
	defer loggerMtx.RUnlock()
	l := logger
	return &l
}

// Level returns the current log level.
func Level() string {
	loggerMtx.RLock()
	defer loggerMtx.RUnlock()
	return logLevel
}

func event(level zerolog.Level) *zerolog.Event {
	loggerMtx.RLock()
	defer loggerMtx.RUnlock()
	return logger.WithLevel(level)
}

// Debug sends a debug level log message.
func Debug(args ...any) {
	event(zerolog.DebugLevel).Msg(fmt.Sprint(args...))
}

// Info sends an info level log message.
func Info(args ...any) {
	event(zerolog.InfoLevel).Msg(fmt.Sprint(args...))
}

// Warn sends a warn level log message.
func Warn(args ...any) {
	event(zerolog.WarnLevel).Msg(fmt.Sprint(args...))
}

// Error sends an error level log message.
func Error(args ...any) {
	event(zerolog.ErrorLevel).Msg(fmt.Sprint(args...))
}

// Fatal sends a fatal level log message and exits.
func Fatal(args ...any) {
	event(zerolog.FatalLevel).Msg(fmt.Sprint(args...) + "\n" + string(debug.Stack()))
	os.Exit(1)
}

// Debugf sends a formatted debug level log message.
func Debugf(template string, args ...any) {
	event(zerolog.DebugLevel).Msgf(template, args...)
}

// Infof sends a formatted info level log message.
func Infof(template string, args ...any) {
	event(zerolog.InfoLevel).Msgf(template, args...)
}

// Warnf sends a formatted warn level log message.
func Warnf(template string, args ...any) {
	event(zerolog.WarnLevel).Msgf(template, args...)
}

// Errorf sends a formatted error level log message.
func Errorf(template string, args ...any) {
	event(zerolog.ErrorLevel).Msgf(template, args...)
}

// Fatalf sends a formatted fatal level log message and exits.
func Fatalf(template string, args ...any) {
	Fatal(fmt.Sprintf(template, args...))
}

// Debugw sends a debug level log message with key-value pairs.
func Debugw(msg string, keyvalues ...any) {
	event(zerolog.DebugLevel).Fields(keyvalues).Msg(msg)
}

// Infow sends an info level log message with key-value pairs.
func Infow(msg string, keyvalues ...any) {
	event(zerolog.InfoLevel).Fields(keyvalues).Msg(msg)
}

// Warnw sends a warning level log message with key-value pairs.
func Warnw(msg string, keyvalues ...any) {
	event(zerolog.WarnLevel).Fields(keyvalues).Msg(msg)
}

// Errorw sends an error level log message with a special format for errors.
func Errorw(err error, msg string) {
	event(zerolog.ErrorLevel).Err(err).Msg(msg)
}
