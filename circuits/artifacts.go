package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vocdoni/franchise-proof/circuits/artifact"
	"github.com/vocdoni/franchise-proof/log"
	"github.com/vocdoni/franchise-proof/types"
)

var (
	// ErrFileNotFound is returned when an artifact file does not exist.
	ErrFileNotFound = artifact.ErrFileNotFound
	// ErrEmptyPayload is returned when an artifact has no content.
	ErrEmptyPayload = artifact.ErrEmptyPayload
)

// CheckHashes is a flag that determines if the hashes of the artifacts should
// be checked when they are loaded or downloaded. It can be set to false by
// setting the FRANCHISE_CHECK_HASHES environment variable to false or 0.
var CheckHashes = true

// BaseDir is the path where the artifact cache is expected to be found. If the
// artifacts are not found there, they will be downloaded and stored. It can be
// set to a different path if needed from other packages. Defaults to the
// env var FRANCHISE_ARTIFACTS_DIR or the user home directory.
var BaseDir string

func init() {
	if checkHashes := os.Getenv("FRANCHISE_CHECK_HASHES"); checkHashes != "" {
		if strings.ToLower(checkHashes) == "false" || checkHashes == "0" {
			CheckHashes = false
		}
	}
	BaseDir = DefaultBaseDir()
}

// DefaultBaseDir returns the artifact cache directory: FRANCHISE_ARTIFACTS_DIR
// if set, otherwise ~/.cache/franchise-artifacts.
func DefaultBaseDir() string {
	if dir := os.Getenv("FRANCHISE_ARTIFACTS_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		log.Warnf("unable to access user home directory, using temporary directory: %v", err)
		return filepath.Join(os.TempDir(), "franchise-artifacts")
	}
	return filepath.Join(home, ".cache", "franchise-artifacts")
}

// Artifact is a circuit artifact (definition, proving or verification key)
// identified by the sha256 hash of its content. It is loaded from the local
// cache and, if missing there, downloaded from RemoteURL.
type Artifact struct {
	Name      string
	RemoteURL string
	Hash      []byte
	Content   []byte
}

// NewLocalArtifact returns an artifact whose content is already known. Its
// hash is computed from the content.
func NewLocalArtifact(name string, content []byte) *Artifact {
	h := sha256.Sum256(content)
	return &Artifact{Name: name, Hash: h[:], Content: content}
}

// Load loads the artifact content. If it is not in memory, it is read from
// the local cache, and if it is not cached either it is downloaded from the
// remote URL. The hash of the content is always checked when CheckHashes is
// set.
func (k *Artifact) Load(ctx context.Context) error {
	if len(k.Content) != 0 {
		return nil
	}
	if len(k.Hash) == 0 {
		return fmt.Errorf("artifact %s: hash not provided", k.Name)
	}
	content, err := load(k.Hash)
	if err != nil && !errors.Is(err, ErrFileNotFound) {
		return err
	}
	if content == nil {
		if err := k.Download(ctx); err != nil {
			return err
		}
		if content, err = load(k.Hash); err != nil {
			return err
		}
	}
	if len(content) == 0 {
		return fmt.Errorf("artifact %s: %w", k.Name, ErrEmptyPayload)
	}
	k.Content = content
	return nil
}

// Download downloads the content of the artifact from the remote URL, checks
// its hash and stores it in the local cache.
func (k *Artifact) Download(ctx context.Context) error {
	if k.RemoteURL == "" {
		return fmt.Errorf("artifact %s: %w and no remote url provided", k.Name, ErrFileNotFound)
	}
	log.Infow("downloading artifact", "name", k.Name, "url", k.RemoteURL)
	return downloadAndStore(ctx, k.Hash, k.RemoteURL)
}

// Store writes the artifact content to the local cache, named by its hash.
func (k *Artifact) Store() error {
	if len(k.Content) == 0 {
		return fmt.Errorf("artifact %s: %w", k.Name, ErrEmptyPayload)
	}
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return fmt.Errorf("error creating the base directory: %w", err)
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(k.Hash))
	return os.WriteFile(path, k.Content, 0o644)
}

// CircuitArtifacts holds the artifacts of a circuit: its definition, proving
// key and verification key.
type CircuitArtifacts struct {
	circuitDefinition *Artifact
	provingKey        *Artifact
	verifyingKey      *Artifact
}

// NewCircuitArtifacts creates a new CircuitArtifacts struct with the circuit
// artifacts provided. It returns the struct with the artifacts set.
func NewCircuitArtifacts(circuit, provingKey, verifyingKey *Artifact) *CircuitArtifacts {
	return &CircuitArtifacts{
		circuitDefinition: circuit,
		provingKey:        provingKey,
		verifyingKey:      verifyingKey,
	}
}

// LoadAll loads the circuit artifacts into memory, downloading the ones
// missing from the local cache.
func (ca *CircuitArtifacts) LoadAll(ctx context.Context) error {
	if ca.circuitDefinition != nil {
		if err := ca.circuitDefinition.Load(ctx); err != nil {
			return fmt.Errorf("error loading circuit definition: %w", err)
		}
	}
	if ca.provingKey != nil {
		if err := ca.provingKey.Load(ctx); err != nil {
			return fmt.Errorf("error loading proving key: %w", err)
		}
	}
	if ca.verifyingKey != nil {
		if err := ca.verifyingKey.Load(ctx); err != nil {
			return fmt.Errorf("error loading verifying key: %w", err)
		}
	}
	return nil
}

// StoreAll writes the loaded artifacts to the local cache.
func (ca *CircuitArtifacts) StoreAll() error {
	for _, a := range []*Artifact{ca.circuitDefinition, ca.provingKey, ca.verifyingKey} {
		if a == nil || len(a.Content) == 0 {
			continue
		}
		if err := a.Store(); err != nil {
			return fmt.Errorf("error storing %s: %w", a.Name, err)
		}
	}
	return nil
}

// CircuitDefinition returns the content of the circuit definition as
// types.HexBytes. If the circuit definition is not loaded, it returns nil.
func (ca *CircuitArtifacts) CircuitDefinition() types.HexBytes {
	if ca.circuitDefinition == nil {
		return nil
	}
	return ca.circuitDefinition.Content
}

// ProvingKey returns the content of the proving key as types.HexBytes. If the
// proving key is not loaded, it returns nil.
func (ca *CircuitArtifacts) ProvingKey() types.HexBytes {
	if ca.provingKey == nil {
		return nil
	}
	return ca.provingKey.Content
}

// VerifyingKey returns the content of the verifying key as types.HexBytes. If the
// verifying key is not loaded, it returns nil.
func (ca *CircuitArtifacts) VerifyingKey() types.HexBytes {
	if ca.verifyingKey == nil {
		return nil
	}
	return ca.verifyingKey.Content
}

// load reads the cached content named by hash. It returns ErrFileNotFound
// when the cache has no such file.
func load(hash []byte) ([]byte, error) {
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating the base directory: %w", err)
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(hash))
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	if CheckHashes {
		fileHash := sha256.Sum256(content)
		if !bytes.Equal(fileHash[:], hash) {
			return nil, fmt.Errorf("hash mismatch for file %s: expected %x, got %x", path, hash, fileHash)
		}
	}
	return content, nil
}

// progressReader counts the bytes read from the inner reader.
type progressReader struct {
	reader io.Reader
	total  atomic.Int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.total.Add(int64(n))
	return n, err
}

// downloadAndStore downloads fileURL into the local cache, resuming a
// previous partial download if there is one. The file is only moved to its
// final name once its hash matches expectedHash.
func downloadAndStore(ctx context.Context, expectedHash []byte, fileURL string) error {
	if _, err := url.Parse(fileURL); err != nil {
		return fmt.Errorf("error parsing the file URL provided: %w", err)
	}
	path := filepath.Join(BaseDir, hex.EncodeToString(expectedHash))
	partialPath := path + ".partial"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create destination folder: %w", err)
	}
	var offset int64
	if info, err := os.Stat(partialPath); err == nil {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("error creating the file request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error performing the request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("error downloading file %s: http status: %d", fileURL, res.StatusCode)
	}

	hasher := sha256.New()
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if offset > 0 && res.StatusCode == http.StatusPartialContent {
		flags = os.O_APPEND | os.O_WRONLY
		prev, err := os.ReadFile(partialPath)
		if err != nil {
			return fmt.Errorf("error reading partial download: %w", err)
		}
		hasher.Write(prev)
	} else {
		offset = 0
	}
	fd, err := os.OpenFile(partialPath, flags, 0o644)
	if err != nil {
		return fmt.Errorf("error opening artifact file: %w", err)
	}
	defer fd.Close()

	pr := &progressReader{reader: res.Body}
	expected := res.ContentLength + offset
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.MultiWriter(fd, hasher), pr)
		done <- err
	}()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for copying := true; copying; {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("error copying data to file: %w", err)
			}
			copying = false
		case <-ticker.C:
			total := pr.total.Load() + offset
			var percentage float64
			if expected > 0 {
				percentage = float64(total) / float64(expected) * 100
			}
			log.Debugw("download artifact", "url", fileURL,
				"downloaded", fmt.Sprintf("%.2fMiB", float64(total)/(1024*1024)),
				"progress", fmt.Sprintf("%.2f%%", percentage))
		}
	}

	if CheckHashes {
		if computed := hasher.Sum(nil); !bytes.Equal(computed, expectedHash) {
			_ = os.Remove(partialPath)
			return fmt.Errorf("hash mismatch: expected %x, got %x", expectedHash, computed)
		}
	}
	if err := os.Rename(partialPath, path); err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	return nil
}
