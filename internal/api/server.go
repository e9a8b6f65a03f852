// Package api exposes the synchronization engine over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/livinlefevreloca/wosync/internal/db"
	"github.com/livinlefevreloca/wosync/internal/mirrorsync"
	"github.com/livinlefevreloca/wosync/internal/updater"
	"github.com/livinlefevreloca/wosync/internal/workorder"
)

// Resolver maps a numeric id or custom id onto an upstream id
type Resolver interface {
	ResolveWorkOrderID(ctx context.Context, ref string) (int, error)
}

// Fetcher reads a work order from the upstream
type Fetcher interface {
	FetchWorkOrder(ctx context.Context, id int) (*workorder.WorkOrder, error)
}

// MirrorRecords reads work orders as last reconciled into the mirror
type MirrorRecords interface {
	GetWorkOrder(ctx context.Context, id int) (*db.WorkOrder, error)
}

// StatusUpdater applies a single status change
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id int, newStatus string, opts updater.Options) (*updater.Outcome, error)
}

// BatchRunner applies a list of status changes
type BatchRunner interface {
	UpdateMany(ctx context.Context, items []updater.Item, opts updater.BatchOptions) *updater.Ledger
}

// MirrorSyncer triggers a mirror refresh
type MirrorSyncer interface {
	TriggerSync(ctx context.Context) mirrorsync.Result
}

// Roster lists active field workers
type Roster interface {
	FieldWorkers(ctx context.Context) ([]db.FieldWorker, error)
}

// StatusCatalog lists known statuses
type StatusCatalog interface {
	GetStatuses(ctx context.Context) ([]db.Status, error)
}

// Deps are the collaborators behind the routes
type Deps struct {
	Resolver Resolver
	Upstream Fetcher
	Records  MirrorRecords
	Updater  StatusUpdater
	Batch    BatchRunner
	Mirror   MirrorSyncer
	Roster   Roster
	Statuses StatusCatalog
}

// Server routes HTTP requests to the engine
type Server struct {
	deps   Deps
	logger *slog.Logger
	router chi.Router
}

func NewServer(deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		deps:   deps,
		logger: logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/work-orders", func(r chi.Router) {
		r.Post("/status", s.handleBatchUpdate)
		r.Get("/{ref}", s.handleGetWorkOrder)
		r.Post("/{ref}/status", s.handleUpdateStatus)
	})

	r.Post("/mirror-sync", s.handleMirrorSync)
	r.Get("/field-workers", s.handleFieldWorkers)
	r.Get("/statuses", s.handleStatuses)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
