package service

import (
	"context"
	"time"

	"github.com/vocdoni/franchise-proof/circuits"
	"golang.org/x/sync/errgroup"
)

// LoadArtifacts loads the circuit artifacts provided concurrently, reading
// them from the local cache or downloading the missing ones.
func LoadArtifacts(timeout time.Duration, artifacts ...*circuits.CircuitArtifacts) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, a := range artifacts {
		g.Go(func() error {
			return a.LoadAll(ctx)
		})
	}
	return g.Wait()
}
