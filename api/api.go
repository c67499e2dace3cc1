package api

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/franchise-proof/crypto"
	"github.com/vocdoni/franchise-proof/identity"
	"github.com/vocdoni/franchise-proof/log"
	stg "github.com/vocdoni/franchise-proof/storage"
	"github.com/vocdoni/franchise-proof/types"
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host    string
	Port    int
	Storage *stg.Storage
	// Authority is the identity key of the census authority. Its public key
	// x coordinate is the global commitment of every inclusion proof.
	Authority *identity.Key
	// Levels and Suite are the defaults of new censuses.
	Levels int
	Suite  string
}

// API type represents the census authority HTTP server.
type API struct {
	router    *chi.Mux
	server    *http.Server
	listener  net.Listener
	storage   *stg.Storage
	authority *identity.Key
	levels    int
	suite     string
}

// New creates a new API instance with the given configuration and starts
// serving it. Port 0 picks a free port; Addr returns the one in use.
func New(conf *APIConfig) (*API, error) {
	a, err := newAPI(conf)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", conf.Host, conf.Port))
	if err != nil {
		return nil, fmt.Errorf("cannot listen on %s:%d: %w", conf.Host, conf.Port, err)
	}
	a.listener = ln
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "addr", ln.Addr().String())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw(err, "API server failed")
		}
	}()
	return a, nil
}

// newAPI builds the API handlers without serving them.
func newAPI(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.Authority == nil {
		return nil, fmt.Errorf("missing census authority key")
	}
	a := &API{
		storage:   conf.Storage,
		authority: conf.Authority,
		levels:    conf.Levels,
		suite:     conf.Suite,
	}
	if a.levels == 0 {
		a.levels = types.DefaultCensusLevels
	}
	if a.suite == "" {
		a.suite = crypto.SuiteGnark
	}
	a.initRouter()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Addr returns the address the server listens on.
func (a *API) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Shutdown gracefully stops the HTTP server.
func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", InfoEndpoint, "method", "GET")
	a.router.Get(InfoEndpoint, a.info)

	// censuses
	log.Infow("register handler", "endpoint", CensusesEndpoint, "method", "POST")
	a.router.Post(CensusesEndpoint, a.newCensus)
	log.Infow("register handler", "endpoint", CensusProofEndpoint, "method", "GET")
	a.router.Get(CensusProofEndpoint, a.censusProof)
	log.Infow("register handler", "endpoint", CensusParticipantsEndpoint, "method", "POST")
	a.router.Post(CensusParticipantsEndpoint, a.addCensusParticipants)
	log.Infow("register handler", "endpoint", CensusParticipantsEndpoint, "method", "GET")
	a.router.Get(CensusParticipantsEndpoint, a.censusParticipants)
	log.Infow("register handler", "endpoint", CensusRootEndpoint, "method", "GET")
	a.router.Get(CensusRootEndpoint, a.censusRoot)
	log.Infow("register handler", "endpoint", CensusSizeEndpoint, "method", "GET")
	a.router.Get(CensusSizeEndpoint, a.censusSize)
	log.Infow("register handler", "endpoint", CensusEndpoint, "method", "DELETE")
	a.router.Delete(CensusEndpoint, a.deleteCensus)

	// verification keys
	log.Infow("register handler", "endpoint", VerifyingKeysEndpoint, "method", "POST")
	a.router.Post(VerifyingKeysEndpoint, a.setVerifyingKey)
	log.Infow("register handler", "endpoint", VerifyingKeyEndpoint, "method", "GET")
	a.router.Get(VerifyingKeyEndpoint, a.verifyingKey)

	// votes
	log.Infow("register handler", "endpoint", VotesEndpoint, "method", "POST")
	a.router.Post(VotesEndpoint, a.newVote)
	log.Infow("register handler", "endpoint", VotesByVotingEndpoint, "method", "GET")
	a.router.Get(VotesByVotingEndpoint, a.votes)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}

// info returns the census authority parameters.
// GET /info
func (a *API) info(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, &Info{
		GlobalCommitment: (*types.BigInt)(a.globalCommitment()),
		Levels:           a.levels,
		Suite:            a.suite,
		LevelPresets:     types.CensusLevelPresets,
	})
}

func (a *API) globalCommitment() *big.Int {
	x, _ := a.authority.PublicXY()
	return x
}
