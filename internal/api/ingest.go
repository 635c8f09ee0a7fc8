package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/ingestion"
)

// PassRunner runs one ingestion pass.
type PassRunner interface {
	RunPass(ctx context.Context) (ingestion.PassResult, error)
}

// IngestHandler triggers an ingestion pass on /ingest.
type IngestHandler struct {
	Runner PassRunner
	Logger *zap.Logger
}

func (h *IngestHandler) Register(r *gin.Engine) {
	r.GET("/ingest", h.ingest)
	r.OPTIONS("/ingest", preflight)
}

func (h *IngestHandler) ingest(c *gin.Context) {
	if h.Runner == nil {
		respond(c, "ingest", http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "ingestion not configured: " + domain.ErrNotConfigured.Error(),
		})
		return
	}

	result, err := h.Runner.RunPass(c.Request.Context())
	if err != nil {
		h.Logger.Error("ingestion pass failed", zap.Error(err),
			zap.Bool("source_unavailable", errors.Is(err, domain.ErrSourceUnavailable)))
		respond(c, "ingest", http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	respond(c, "ingest", http.StatusOK, gin.H{
		"status":          "success",
		"parsed_messages": result.Stored,
		"run_id":          result.RunID,
	})
}
