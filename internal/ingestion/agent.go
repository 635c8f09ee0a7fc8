package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/extract"
	"telegram-signal-lab/internal/logging"
	"telegram-signal-lab/internal/observability"
	"telegram-signal-lab/internal/storage"
)

// DefaultPageSize is the number of messages fetched per channel and pass.
const DefaultPageSize = 100

// PassResult summarizes one ingestion pass.
type PassResult struct {
	RunID    string
	Channels int // channels processed successfully
	Failed   int // channels skipped after an error
	Messages int // messages fetched
	Stored   int // signal rows newly inserted
}

// Agent pulls new channel messages from a Source and stores extracted signals.
type Agent struct {
	store     storage.Store
	source    Source
	extractor *extract.Extractor
	pageSize  int
	logger    *zap.Logger

	// Source connections are stateful; passes run one at a time.
	mu sync.Mutex
}

// AgentOptions contains configuration for creating an Agent.
type AgentOptions struct {
	Store     storage.Store
	Source    Source
	Extractor *extract.Extractor // Default: extract.New()
	PageSize  int                // Default: 100
	Logger    *zap.Logger
}

// NewAgent creates an ingestion agent.
// Returns ErrNotConfigured if the store or source is missing.
func NewAgent(opts AgentOptions) (*Agent, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("ingestion store: %w", domain.ErrNotConfigured)
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("ingestion source: %w", domain.ErrNotConfigured)
	}

	extractor := opts.Extractor
	if extractor == nil {
		extractor = extract.New()
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Agent{
		store:     opts.Store,
		source:    opts.Source,
		extractor: extractor,
		pageSize:  pageSize,
		logger:    logging.OrNop(opts.Logger),
	}, nil
}

// RunPass processes every active channel once inside a single store
// transaction. Each channel runs in a nested transaction, so a failing
// channel is rolled back, logged and skipped while the pass continues.
//
// Errors wrap domain.ErrSourceUnavailable when the source cannot connect and
// domain.ErrStoreUnavailable when the store fails outside a channel.
func (a *Agent) RunPass(ctx context.Context) (PassResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	result := PassResult{RunID: uuid.NewString()}
	logger := a.logger.With(zap.String("run_id", result.RunID))
	logger.Info("ingestion pass started")

	err := a.store.WithinTx(ctx, func(tx storage.Store) error {
		var token string
		session, err := tx.Sessions().Get(ctx)
		switch {
		case err == nil:
			token = session.Token
		case errors.Is(err, storage.ErrNotFound):
		default:
			return fmt.Errorf("%w: load session: %w", domain.ErrStoreUnavailable, err)
		}

		if err := a.source.Connect(ctx, token); err != nil {
			return fmt.Errorf("%w: connect: %w", domain.ErrSourceUnavailable, err)
		}
		defer func() {
			if err := a.source.Close(); err != nil {
				logger.Warn("close source", zap.Error(err))
			}
		}()

		channels, err := tx.Channels().ListActive(ctx)
		if err != nil {
			return fmt.Errorf("%w: list active channels: %w", domain.ErrStoreUnavailable, err)
		}

		for _, ch := range channels {
			if err := ctx.Err(); err != nil {
				return err
			}

			batch, err := a.runChannel(ctx, tx, ch)
			if err != nil {
				result.Failed++
				observability.RecordChannelFailure()
				logger.Warn("channel skipped",
					zap.String("channel", ch.Username),
					zap.Error(err),
				)
				continue
			}

			result.Channels++
			result.Messages += batch.Messages
			result.Stored += batch.Stored
			logger.Debug("channel processed",
				zap.String("channel", ch.Username),
				zap.Int("messages", batch.Messages),
				zap.Int("parsed", batch.Parsed),
				zap.Int("stored", batch.Stored),
				zap.Int64("cursor", lo.Max([]int64{ch.LastMessageID, batch.MaxID})),
			)
		}

		if err := tx.Sessions().Save(ctx, a.source.Session()); err != nil {
			return fmt.Errorf("%w: save session: %w", domain.ErrStoreUnavailable, err)
		}
		return nil
	})

	elapsed := time.Since(start)
	if err != nil {
		observability.RecordPass("error", elapsed.Seconds(), time.Now().Unix())
		logger.Error("ingestion pass failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		if !errors.Is(err, domain.ErrSourceUnavailable) && !errors.Is(err, domain.ErrStoreUnavailable) &&
			!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: commit: %w", domain.ErrStoreUnavailable, err)
		}
		return result, err
	}

	observability.RecordMessagesScanned(result.Messages)
	observability.RecordPass("success", elapsed.Seconds(), time.Now().Unix())
	logger.Info("ingestion pass finished",
		zap.Int("channels", result.Channels),
		zap.Int("failed", result.Failed),
		zap.Int("messages", result.Messages),
		zap.Int("stored", result.Stored),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

// runChannel fetches and stores one channel's new messages in a nested transaction.
func (a *Agent) runChannel(ctx context.Context, tx storage.Store, ch *domain.Channel) (BatchResult, error) {
	var batch BatchResult
	err := tx.WithinTx(ctx, func(chTx storage.Store) error {
		ref, err := a.source.ResolveChannel(ctx, ch.Username)
		if err != nil {
			return fmt.Errorf("resolve channel: %w", err)
		}

		msgs, err := a.source.FetchMessages(ctx, ref, ch.LastMessageID, a.pageSize)
		if err != nil {
			return fmt.Errorf("fetch messages: %w", err)
		}
		msgs = lo.Filter(msgs, func(m domain.Message, _ int) bool { return m.ID > ch.LastMessageID })

		batch, err = StoreBatch(ctx, chTx, a.extractor, ch.Username, msgs, observability.EntryPointAgent)
		return err
	})
	return batch, err
}
