// Package webapp serves the shop floor queue pages and the JSON API
// behind them.
package webapp

import (
	"context"
	"net/http"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jdsquared/thequeue/pkg/epicor"
	"github.com/jdsquared/thequeue/pkg/erpdb"
	"github.com/jdsquared/thequeue/pkg/workcell"
)

// QueueStore reads queue, job, and labor data from the ERP database.
type QueueStore interface {
	Ping(ctx context.Context) error
	JobsForWorkcell(ctx context.Context, ops []string) ([]erpdb.Job, error)
	JobsWithDetails(ctx context.Context, ops []string) ([]erpdb.Job, error)
	JobHeader(ctx context.Context, jobNum string) (*erpdb.JobHeader, error)
	JobOperations(ctx context.Context, jobNum string) ([]erpdb.Operation, error)
	JobMaterials(ctx context.Context, jobNum string, assemblySeq, oprSeq int) ([]erpdb.Material, error)
	MaterialsForWorkcell(ctx context.Context, ops []string) ([]erpdb.PartRef, error)
	JobsUsingMaterial(ctx context.Context, ops []string, partNum string) ([]string, error)
	ColorsForWorkcell(ctx context.Context, ops []string) ([]erpdb.ColorRef, error)
	JobsUsingColor(ctx context.Context, ops []string, color string) ([]string, error)
	LastCheckin(ctx context.Context, partNum, opCode string) (*erpdb.CheckIn, error)
}

// LaborClient posts labor and receipt transactions to Epicor.
type LaborClient interface {
	StartActivity(ctx context.Context, req epicor.StartActivityRequest) (*epicor.ActivityHandle, error)
	EndActivity(ctx context.Context, req epicor.EndActivityRequest) error
	ActiveLabor(ctx context.Context, employeeID string) ([]map[string]interface{}, error)
	KanbanReceipt(ctx context.Context, req epicor.KanbanReceiptRequest) (string, error)
	UpdateJobQuantity(ctx context.Context, jobNum string, newQty float64) error
}

// Options configures the server.
type Options struct {
	Addr string
	// Debug reloads templates from TemplateDir on every request.
	Debug       bool
	TemplateDir string
}

// Server ties the store, the labor client, and the work cell registry
// to the HTTP surface.
type Server struct {
	store      QueueStore
	labor      LaborClient
	workcells  *workcell.Registry
	renderer   *renderer
	httpServer *http.Server
	started    time.Time
}

// New builds the server and its router.
func New(opts Options, store QueueStore, labor LaborClient, registry *workcell.Registry) (*Server, error) {
	rend, err := newRenderer(opts.Debug, opts.TemplateDir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:     store,
		labor:     labor,
		workcells: registry,
		renderer:  rend,
		started:   time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until the listener fails or Shutdown runs.
func (s *Server) Start(ctx context.Context) error {
	otelzap.Ctx(ctx).Info("HTTP server listening",
		zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return cerr.Wrap(err, "serve HTTP")
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
