package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wizqueue/internal/config"
	"wizqueue/internal/invoice"
	"wizqueue/internal/logging"
	"wizqueue/internal/processing"
	"wizqueue/internal/queue"
)

// Version is reported by the root endpoint.
var Version = "1.0.0"

// TaskTracker exposes the local worker pool to the API.
type TaskTracker interface {
	Snapshot() []processing.TaskInfo
	Cancel(invoiceID int64) bool
	InFlight(invoiceID int64) bool
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker checks a downstream service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators the handlers use.
type Deps struct {
	Queue      *queue.Store
	Invoices   *invoice.Store
	Dispatcher processing.Dispatcher
	Tasks      TaskTracker
	DB         Pinger
	Model      HealthChecker
}

// Server owns the gin engine and the HTTP listener.
type Server struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
	engine *gin.Engine

	listener net.Listener
	server   *http.Server
}

// New builds the router. Call Start to listen.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("httpapi: config is required")
	}
	if deps.Queue == nil || deps.Invoices == nil || deps.Dispatcher == nil {
		return nil, errors.New("httpapi: queue store, invoice store and dispatcher are required")
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "api"),
	}
	s.engine = s.routes()
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.MaxMultipartMemory = 8 << 20
	engine.Use(requestID(), s.recovery(), requestLogger(s.logger), cors(s.cfg.API.CORSOrigins))

	engine.GET("/", s.handleRoot)
	engine.GET("/health", s.handleHealth)

	api := engine.Group("/api", authMiddleware(s.cfg.API.Token, s.cfg.API.JWTSecret))

	q := api.Group("/queue")
	q.GET("", s.listQueue)
	q.GET("/:id", s.getQueueItem)
	q.POST("", s.createQueueItem)
	q.POST("/batch", s.createQueueBatch)
	q.PUT("/:id", s.updateQueueItem)
	q.DELETE("/:id", s.deleteQueueItem)
	q.PATCH("/reorder", s.reorderQueue)
	q.PATCH("/:id/status", s.updateQueueStatus)

	limiter := newRateLimiter(s.cfg.Upload.RateLimit, s.cfg.RateWindow())
	u := api.Group("/upload")
	u.POST("", limiter.middleware("Too many uploads, please try again later"), s.uploadInvoice)
	u.GET("/:id", s.getInvoiceStatus)
	u.GET("", s.listInvoices)

	p := api.Group("/processing")
	p.GET("", s.listProcessing)
	p.DELETE("/:invoiceId", s.cancelProcessing)

	engine.NoRoute(func(c *gin.Context) {
		respondFail(c, http.StatusNotFound, "Not found", fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path))
	})
	return engine
}

// Start listens on api.bind and serves until Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.API.Bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for active ones up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.listener = nil
	return err
}
