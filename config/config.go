// Package config holds the configuration of the census authority node. Every
// flag can also be set with an environment variable named after it, with the
// FRANCHISE_ prefix, upper case and dashes replaced by underscores (for
// example FRANCHISE_LOG_LEVEL). Command line flags take precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/types"
	"go.vocdoni.io/dvote/db"
)

// EnvPrefix is the prefix of the environment variables read by Load.
const EnvPrefix = "FRANCHISE_"

// Default values of the node configuration.
const (
	DefaultHost      = "0.0.0.0"
	DefaultPort      = 8080
	DefaultDBType    = db.TypePebble
	DefaultLogLevel  = "info"
	DefaultLogOutput = "stdout"
)

// Config is the configuration of the census authority node.
type Config struct {
	Host string
	Port int
	// DataDir is the directory of the node database.
	DataDir string
	DBType  string
	// Levels and Suite are the defaults of new censuses.
	Levels int
	Suite  string
	// AuthoritySeed is the hex encoded identity seed of the census
	// authority. A random identity is used if empty.
	AuthoritySeed string
	// ArtifactsDir is the cache directory of the circuit artifacts.
	ArtifactsDir string
	LogLevel     string
	LogOutput    string
}

// DefaultDataDir returns ~/.franchise, or a temporary directory if the home
// directory is not available.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "franchise")
	}
	return filepath.Join(home, ".franchise")
}

// Load parses the command line arguments provided (without the program
// name) and the environment.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("franchise-node", flag.ContinueOnError)
	fs.StringVar(&cfg.Host, "host", DefaultHost, "API listen address")
	fs.IntVar(&cfg.Port, "port", DefaultPort, "API listen port")
	fs.StringVar(&cfg.DataDir, "datadir", DefaultDataDir(), "database directory")
	fs.StringVar(&cfg.DBType, "dbtype", DefaultDBType, "database engine (pebble or leveldb)")
	fs.IntVar(&cfg.Levels, "levels", types.DefaultCensusLevels, "default census depth")
	fs.StringVar(&cfg.Suite, "suite", crypto.SuiteGnark, "default census crypto suite (gnark or circom)")
	fs.StringVar(&cfg.AuthoritySeed, "authority-seed", "", "hex encoded census authority seed, random if empty")
	fs.StringVar(&cfg.ArtifactsDir, "artifacts-dir", "", "circuit artifacts cache directory")
	fs.StringVar(&cfg.LogLevel, "log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogOutput, "log-output", DefaultLogOutput, "log output (stdout, stderr or a file path)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := applyEnv(fs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv sets the flags not given on the command line from the
// environment.
func applyEnv(fs *flag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *flag.Flag) {
		if err != nil || f.Changed {
			return
		}
		name := EnvPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if v, ok := os.LookupEnv(name); ok {
			if serr := fs.Set(f.Name, v); serr != nil {
				err = fmt.Errorf("invalid value for %s: %w", name, serr)
			}
		}
	})
	return err
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Levels < types.CensusTreeMinLevels || c.Levels > types.CensusTreeMaxLevels {
		return fmt.Errorf("invalid census levels %d", c.Levels)
	}
	if _, err := crypto.NewSuite(c.Suite); err != nil {
		return err
	}
	switch c.DBType {
	case db.TypePebble, db.TypeLevelDB:
	default:
		return fmt.Errorf("invalid database type %q", c.DBType)
	}
	return nil
}
