// Package artifact encodes and decodes the JSON documents used to persist
// circuit artifacts and signal bundles. Arbitrary precision integers are
// written as decimal strings and turned back into *big.Int on load.
//
// Three layouts are understood when reading:
//
//	plain       {"a":"123"}
//	legacy      "{\"a\":\"123\"}"  (the JSON document stringified again)
//	compressed  "KLUv/..."         (base64 of the zstd compressed document)
//
// New files are written with the compressed layout unless asked otherwise.
package artifact

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"regexp"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	// ErrEmptyPayload is returned when there is nothing to decode.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrFileNotFound is returned when the artifact file does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnknownFormat is returned when a payload matches none of the
	// supported layouts.
	ErrUnknownFormat = errors.New("unknown payload format")
)

// Encoding selects the layout used to write a document.
type Encoding int

const (
	// EncodingCompressed writes a JSON string holding the base64 encoding of
	// the zstd compressed document.
	EncodingCompressed Encoding = iota
	// EncodingPlain writes the JSON document as is.
	EncodingPlain
	// EncodingLegacy writes the JSON document stringified twice.
	EncodingLegacy
)

var decimalRgx = regexp.MustCompile(`^[0-9]+$`)

// zstd magic number, little endian
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		if zstdEncoder, zstdErr = zstd.NewWriter(nil); zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

// Stringify returns a copy of v where every integer is replaced by its
// decimal string. Maps and slices are walked recursively; other values are
// returned unchanged.
func Stringify(v any) any {
	switch t := v.(type) {
	case *big.Int:
		if t == nil {
			return nil
		}
		return t.String()
	case big.Int:
		return t.String()
	case int:
		return big.NewInt(int64(t)).String()
	case int64:
		return big.NewInt(t).String()
	case uint64:
		return new(big.Int).SetUint64(t).String()
	case []*big.Int:
		out := make([]any, len(t))
		for i := range t {
			out[i] = Stringify(t[i])
		}
		return out
	case [][]*big.Int:
		out := make([]any, len(t))
		for i := range t {
			out[i] = Stringify(t[i])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = Stringify(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Stringify(e)
		}
		return out
	case map[string]*big.Int:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Stringify(e)
		}
		return out
	default:
		return v
	}
}

// Parse returns a copy of v where every string made only of decimal digits
// is replaced by a *big.Int. Maps and slices are walked recursively; other
// strings, numbers and booleans are left untouched.
func Parse(v any) any {
	switch t := v.(type) {
	case string:
		if decimalRgx.MatchString(t) {
			n, _ := new(big.Int).SetString(t, 10)
			return n
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = Parse(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Parse(e)
		}
		return out
	default:
		return v
	}
}

// Marshal encodes v with the layout requested. Integers found in maps and
// slices are written as decimal strings; typed values should rely on
// types.BigInt for the same effect.
func Marshal(v any, enc Encoding) ([]byte, error) {
	doc, err := json.Marshal(Stringify(v))
	if err != nil {
		return nil, err
	}
	switch enc {
	case EncodingPlain:
		return doc, nil
	case EncodingLegacy:
		return json.Marshal(string(doc))
	case EncodingCompressed:
		return compress(doc)
	default:
		return nil, fmt.Errorf("%w: encoding %d", ErrUnknownFormat, enc)
	}
}

// MarshalCompressed encodes v with the compressed layout.
func MarshalCompressed(v any) ([]byte, error) {
	return Marshal(v, EncodingCompressed)
}

func compress(doc []byte) ([]byte, error) {
	enc, _, err := codecs()
	if err != nil {
		return nil, err
	}
	packed := enc.EncodeAll(doc, nil)
	return json.Marshal(base64.StdEncoding.EncodeToString(packed))
}

// Document returns the plain JSON document held by data, whatever its
// layout.
func Document(data []byte) ([]byte, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if data[0] != '"' {
		if data[0] == '{' || data[0] == '[' {
			return data, nil
		}
		return nil, ErrUnknownFormat
	}
	var inner string
	if err := json.Unmarshal(data, &inner); err != nil {
		return nil, fmt.Errorf("cannot decode outer string: %w", err)
	}
	body := bytes.TrimSpace([]byte(inner))
	if len(body) == 0 {
		return nil, ErrEmptyPayload
	}
	if body[0] == '{' || body[0] == '[' {
		return body, nil
	}
	packed, err := base64.StdEncoding.DecodeString(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}
	if !bytes.HasPrefix(packed, zstdMagic) {
		return nil, fmt.Errorf("%w: missing zstd header", ErrUnknownFormat)
	}
	_, dec, err := codecs()
	if err != nil {
		return nil, err
	}
	doc, err := dec.DecodeAll(packed, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot decompress payload: %w", err)
	}
	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 {
		return nil, ErrEmptyPayload
	}
	return doc, nil
}

// Unmarshal decodes data, in any supported layout, into a generic tree of
// maps and slices where decimal strings have been turned into *big.Int.
func Unmarshal(data []byte) (any, error) {
	doc, err := Document(data)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("cannot decode document: %w", err)
	}
	return Parse(v), nil
}

// Decode decodes data, in any supported layout, into the typed value v.
func Decode(data []byte, v any) error {
	doc, err := Document(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(doc, v)
}

// ReadFile reads and decodes the file at path into v.
func ReadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return err
	}
	if err := Decode(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// WriteFile encodes v with the layout requested and writes it to path.
func WriteFile(path string, v any, enc Encoding) error {
	data, err := Marshal(v, enc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
