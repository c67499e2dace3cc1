package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vocdoni/franchise-proof/api"
	"github.com/vocdoni/franchise-proof/identity"
	"github.com/vocdoni/franchise-proof/log"
	"github.com/vocdoni/franchise-proof/storage"
)

const shutdownTimeout = 10 * time.Second

// APIService represents a service that manages the HTTP API server of the
// census authority node.
type APIService struct {
	storage   *storage.Storage
	authority *identity.Key
	api       *api.API
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	host      string
	port      int
	levels    int
	suite     string
}

// NewAPI creates a new APIService instance. Zero levels or an empty suite
// select the defaults of the API.
func NewAPI(storage *storage.Storage, authority *identity.Key, host string, port, levels int, suite string) *APIService {
	return &APIService{
		storage:   storage,
		authority: authority,
		host:      host,
		port:      port,
		levels:    levels,
		suite:     suite,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start. The server is stopped when
// ctx is done.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	var err error
	as.api, err = api.New(&api.APIConfig{
		Host:      as.host,
		Port:      as.port,
		Storage:   as.storage,
		Authority: as.authority,
		Levels:    as.levels,
		Suite:     as.suite,
	})
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	var serviceCtx context.Context
	serviceCtx, as.cancel = context.WithCancel(ctx)
	as.done = make(chan struct{})
	go func(srv *api.API, done chan struct{}) {
		defer close(done)
		<-serviceCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("failed to shutdown API server", "error", err)
		}
	}(as.api, as.done)
	return nil
}

// Stop halts the API server. The storage is owned by the caller and is not
// closed.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel == nil {
		return
	}
	as.cancel()
	as.cancel = nil
	<-as.done
}

// HostPort returns the host and port of the API server. Once started with
// port 0, the port is the one picked by the system.
func (as *APIService) HostPort() (string, int) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api != nil {
		if addr, ok := as.api.Addr().(*net.TCPAddr); ok {
			return as.host, addr.Port
		}
	}
	return as.host, as.port
}
