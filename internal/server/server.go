package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"tarifario/internal/catalog"
	"tarifario/internal/config"
	"tarifario/internal/logger"
	"tarifario/internal/pipeline"
	"tarifario/internal/storage"
)

const (
	StatusLoading = "loading"
	StatusReady   = "ready"
	StatusFailed  = "failed"
)

// Loader produces the catalog once. catalog.SyncService implements it.
type Loader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// snapshot is published once the load settles and is read-only afterwards.
type snapshot struct {
	status   string
	catalog  *catalog.Catalog
	searcher pipeline.Searcher
	err      error
}

type Server struct {
	cfg     config.Config
	db      *storage.DB
	state   atomic.Pointer[snapshot]
	exports *cache.Cache
	limiter *rate.Limiter
	now     func() time.Time
}

// New returns a server in the loading state. db may be nil.
func New(cfg config.Config, db *storage.DB) *Server {
	ttl := time.Duration(cfg.ExportCacheTTLSec) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	limit := rate.Inf
	if cfg.HTTPRateLimitRPS > 0 {
		limit = rate.Limit(cfg.HTTPRateLimitRPS)
	}
	burst := cfg.HTTPRateBurst
	if burst <= 0 {
		burst = 1
	}

	s := &Server{
		cfg:     cfg,
		db:      db,
		exports: cache.New(ttl, 2*ttl),
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
	s.state.Store(&snapshot{status: StatusLoading})
	return s
}

// Load runs the loader once and publishes the outcome. A failure is kept for the life of the
// server.
func (s *Server) Load(ctx context.Context, loader Loader) {
	cat, err := loader.Load(ctx)
	if err != nil {
		s.state.Store(&snapshot{status: StatusFailed, err: err})
		return
	}
	s.state.Store(&snapshot{
		status:   StatusReady,
		catalog:  cat,
		searcher: pipeline.NewFuzzySearcher(cat.Index, s.cfg.SearchThreshold),
	})
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(s.rateLimit)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/units", s.handleUnits)
		r.Get("/records", s.handleRecords)
		r.Get("/records/{id}", s.handleRecord)
		r.Get("/records/{id}/channels", s.handleChannels)
		r.Get("/records/{id}/estimate", s.handleEstimate)
		r.Get("/export.pdf", s.handleExport(formatPDF))
		r.Get("/export.xlsx", s.handleExport(formatXLSX))
	})
	return r
}

// Run serves HTTP while the catalog loads in the background and shuts down when ctx is done.
func (s *Server) Run(ctx context.Context, loader Loader) error {
	srv := &http.Server{
		Addr:         s.cfg.HTTPAddr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Load(gctx, loader)
		return nil
	})
	g.Go(func() error {
		logger.L.Info("server starting", "address", s.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.L.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
