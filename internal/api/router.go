// Package api serves the signal HTTP API with gin.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telegram-signal-lab/internal/extract"
	"telegram-signal-lab/internal/logging"
	"telegram-signal-lab/internal/observability"
	"telegram-signal-lab/internal/storage"
)

// RouterOptions contains the collaborators of the HTTP API.
// A nil Store or Runner is reported per request as a configuration error.
type RouterOptions struct {
	Store     storage.Store
	Extractor *extract.Extractor // Default: extract.New()
	Runner    PassRunner
	Logger    *zap.Logger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(opts RouterOptions) *gin.Engine {
	logger := logging.OrNop(opts.Logger)
	extractor := opts.Extractor
	if extractor == nil {
		extractor = extract.New()
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(requestLogger(logger))

	engine.NoMethod(func(c *gin.Context) {
		respondError(c, "unknown", http.StatusMethodNotAllowed, "Method not allowed")
	})
	engine.NoRoute(func(c *gin.Context) {
		respondError(c, "unknown", http.StatusNotFound, "Not found")
	})

	signals := &SignalHandler{Store: opts.Store, Extractor: extractor, Logger: logger}
	signals.Register(engine)

	ingest := &IngestHandler{Runner: opts.Runner, Logger: logger}
	ingest.Register(engine)

	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	engine.GET("/metrics", gin.WrapH(observability.Handler()))

	return engine
}
