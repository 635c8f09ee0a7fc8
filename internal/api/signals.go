package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/extract"
	"telegram-signal-lab/internal/ingestion"
	"telegram-signal-lab/internal/observability"
	"telegram-signal-lab/internal/storage"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// SignalHandler serves list, register, submit and delete on /signals.
type SignalHandler struct {
	Store     storage.Store
	Extractor *extract.Extractor
	Logger    *zap.Logger
}

func (h *SignalHandler) Register(r *gin.Engine) {
	r.GET("/signals", h.requireStore("list", h.list))
	r.POST("/signals", h.requireStore("register", h.registerChannel))
	r.PUT("/signals", h.requireStore("submit", h.submit))
	r.DELETE("/signals", h.requireStore("delete", h.deleteSignal))
	r.OPTIONS("/signals", preflight)
}

func (h *SignalHandler) requireStore(operation string, next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Store == nil {
			respondError(c, operation, http.StatusInternalServerError, "DATABASE_URL not configured")
			return
		}
		next(c)
	}
}

func (h *SignalHandler) storeFailed(c *gin.Context, operation string, err error) {
	h.Logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
	respondError(c, operation, http.StatusInternalServerError, err.Error())
}

func (h *SignalHandler) list(c *gin.Context) {
	limit := defaultListLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxListLimit {
			respondError(c, "list", http.StatusBadRequest,
				fmt.Sprintf("limit must be an integer between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	signals, err := h.Store.Signals().List(ctx, storage.SignalFilter{
		Ticker:  strings.TrimSpace(c.Query("ticker")),
		Channel: domain.NormalizeUsername(c.Query("channel")),
		Limit:   limit,
	})
	if err != nil {
		h.storeFailed(c, "list", err)
		return
	}

	channels, err := h.Store.Channels().List(ctx)
	if err != nil {
		h.storeFailed(c, "list", err)
		return
	}

	respond(c, "list", http.StatusOK, gin.H{
		"signals":  lo.Map(signals, func(s *domain.Signal, _ int) signalResponse { return newSignalResponse(s) }),
		"channels": channels,
	})
}

type registerRequest struct {
	ChannelUsername string `json:"channel_username"`
	ChannelTitle    string `json:"channel_title"`
}

func (h *SignalHandler) registerChannel(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "register", http.StatusBadRequest, "invalid JSON body")
		return
	}

	username := domain.NormalizeUsername(req.ChannelUsername)
	if username == "" {
		respondError(c, "register", http.StatusBadRequest, "channel_username required")
		return
	}
	title := strings.TrimSpace(req.ChannelTitle)
	if title == "" {
		title = username
	}

	channel, err := h.Store.Channels().Upsert(c.Request.Context(), username, title)
	if err != nil {
		h.storeFailed(c, "register", err)
		return
	}

	h.Logger.Info("channel registered", zap.String("channel", username))
	respond(c, "register", http.StatusCreated, gin.H{"channel": channel})
}

type submitMessage struct {
	ID   int64       `json:"id"`
	Text string      `json:"text"`
	Date messageDate `json:"date"`
}

type submitRequest struct {
	ChannelUsername string          `json:"channel_username"`
	Messages        []submitMessage `json:"messages"`
}

func (h *SignalHandler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "submit", http.StatusBadRequest, "invalid JSON body")
		return
	}

	username := domain.NormalizeUsername(req.ChannelUsername)
	if username == "" || len(req.Messages) == 0 {
		respondError(c, "submit", http.StatusBadRequest, "channel_username and messages required")
		return
	}

	msgs := lo.Map(req.Messages, func(m submitMessage, _ int) domain.Message {
		if m.Date.Invalid != "" {
			h.Logger.Warn("unparseable message date stored as null",
				zap.String("channel", username),
				zap.Int64("message_id", m.ID),
				zap.String("date", m.Date.Invalid),
			)
		}
		return domain.Message{ID: m.ID, Text: m.Text, Date: m.Date.Time}
	})

	ctx := c.Request.Context()
	var result ingestion.BatchResult
	err := h.Store.WithinTx(ctx, func(tx storage.Store) error {
		if err := tx.Channels().Ensure(ctx, username); err != nil {
			return err
		}
		var err error
		result, err = ingestion.StoreBatch(ctx, tx, h.Extractor, username, msgs, observability.EntryPointSubmit)
		return err
	})
	if err != nil {
		h.storeFailed(c, "submit", err)
		return
	}

	respond(c, "submit", http.StatusOK, gin.H{
		"parsed_count":   result.Parsed,
		"stored_count":   result.Stored,
		"total_messages": result.Messages,
	})
}

type deleteRequest struct {
	ID int64 `json:"id"`
}

func (h *SignalHandler) deleteSignal(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, "delete", http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == 0 {
		respondError(c, "delete", http.StatusBadRequest, "id required")
		return
	}

	if err := h.Store.Signals().Delete(c.Request.Context(), req.ID); err != nil {
		h.storeFailed(c, "delete", err)
		return
	}

	respond(c, "delete", http.StatusOK, gin.H{"success": true})
}
