package service

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/franchise-proof/circuits"
)

func TestLoadArtifacts(t *testing.T) {
	c := qt.New(t)
	circuits.BaseDir = t.TempDir()

	local := circuits.NewCircuitArtifacts(
		circuits.NewLocalArtifact("circuit", []byte("definition")),
		circuits.NewLocalArtifact("pk", []byte("proving key")),
		nil,
	)
	c.Assert(LoadArtifacts(time.Second, local), qt.IsNil)
	c.Assert(string(local.ProvingKey()), qt.Equals, "proving key")

	// stored artifacts are found in the cache by hash
	c.Assert(local.StoreAll(), qt.IsNil)
	cached := circuits.NewLocalArtifact("circuit", []byte("definition"))
	cached.Content = nil
	fromCache := circuits.NewCircuitArtifacts(cached, nil, nil)
	c.Assert(LoadArtifacts(time.Second, local, fromCache), qt.IsNil)
	c.Assert(string(fromCache.CircuitDefinition()), qt.Equals, "definition")

	missing := circuits.NewLocalArtifact("vk", []byte("not stored"))
	missing.Content = nil
	err := LoadArtifacts(time.Second, local, circuits.NewCircuitArtifacts(nil, nil, missing))
	c.Assert(errors.Is(err, circuits.ErrFileNotFound), qt.IsTrue)
}
