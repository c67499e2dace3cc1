package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vocdoni/franchise-proof/circuits"
	"github.com/vocdoni/franchise-proof/config"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/identity"
	"github.com/vocdoni/franchise-proof/log"
	"github.com/vocdoni/franchise-proof/service"
	"github.com/vocdoni/franchise-proof/storage"
	"go.vocdoni.io/dvote/db/metadb"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Init(cfg.LogLevel, cfg.LogOutput, nil)
	if cfg.ArtifactsDir != "" {
		circuits.BaseDir = cfg.ArtifactsDir
	}

	suite, err := crypto.NewSuite(cfg.Suite)
	if err != nil {
		log.Fatal(err)
	}
	var authority *identity.Key
	if cfg.AuthoritySeed != "" {
		if authority, err = identity.FromHex(cfg.AuthoritySeed, suite.Curve); err != nil {
			log.Fatalf("invalid authority seed: %v", err)
		}
	} else {
		authority = identity.Random(suite.Curve)
		log.Warnw("no authority seed provided, using a random identity; proofs will not survive a restart")
	}
	x, _ := authority.PublicXY()
	log.Infow("census authority ready", "globalCommitment", x.String(), "suite", suite.Name)

	database, err := metadb.New(cfg.DBType, cfg.DataDir)
	if err != nil {
		log.Fatalf("cannot open database: %v", err)
	}
	stg := storage.New(database)
	defer stg.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	apiService := service.NewAPI(stg, authority, cfg.Host, cfg.Port, cfg.Levels, cfg.Suite)
	if err := apiService.Start(ctx); err != nil {
		log.Fatal(err)
	}
	host, port := apiService.HostPort()
	log.Infow("census authority node started", "host", host, "port", port, "datadir", cfg.DataDir)

	<-ctx.Done()
	log.Info("shutting down")
	done := make(chan struct{})
	go func() {
		apiService.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		log.Warn("timeout waiting for the API to stop")
	}
}
