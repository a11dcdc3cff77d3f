// Package api exposes the reconciliation over HTTP with gin.
//
// Every request builds its own engine from fresh sources, so concurrent
// requests never share tables.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/internal/store"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

// SourceFactory returns new sources for one reconciliation
type SourceFactory func() (reconciler.ClaimSource, reconciler.InvoiceSource)

// CSVSources reads both tables from files on every call
func CSVSources(claimsPath, invoicesPath string) SourceFactory {
	return func() (reconciler.ClaimSource, reconciler.InvoiceSource) {
		return &reconciler.CSVClaimSource{Path: claimsPath}, &reconciler.CSVInvoiceSource{Path: invoicesPath}
	}
}

// RunArchive stores and lists finished runs
type RunArchive interface {
	SaveRun(ctx context.Context, summary *models.Summary, meta store.RunMeta) (*store.ReconciliationRun, error)
	ListRuns(ctx context.Context, limit int) ([]store.ReconciliationRun, error)
	GetRun(ctx context.Context, id string) (*store.ReconciliationRun, error)
}

// Options configures a Server
type Options struct {
	Sources     SourceFactory
	Archive     RunArchive
	ReportTitle string
	Logger      logger.Logger
	ReleaseMode bool
}

// Server holds the router and its dependencies
type Server struct {
	sources     SourceFactory
	archive     RunArchive
	reportTitle string
	logger      logger.Logger
	router      *gin.Engine
}

// NewServer builds the router
func NewServer(opts Options) (*Server, error) {
	if opts.Sources == nil {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "api sources", nil, nil)
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobalLogger()
	}
	if opts.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		sources:     opts.Sources,
		archive:     opts.Archive,
		reportTitle: opts.ReportTitle,
		logger:      opts.Logger.WithComponent("api"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes(router)
	s.router = router
	return s, nil
}

func (s *Server) setupRoutes(router *gin.Engine) {
	router.GET("/health", s.health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/summary", s.getSummary)
		v1.GET("/records", s.getRecords)
		v1.GET("/report", s.getReport)
		v1.GET("/runs", s.listRuns)
		v1.POST("/runs", s.createRun)
		v1.GET("/runs/:id", s.getRun)
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.NetworkError(errors.CodeServiceUnavailable, addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(logger.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Request handled")
	}
}
