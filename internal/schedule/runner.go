// Package schedule runs ingestion passes on a cron schedule.
package schedule

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"telegram-signal-lab/internal/ingestion"
	"telegram-signal-lab/internal/logging"
)

// PassRunner runs one ingestion pass.
type PassRunner interface {
	RunPass(ctx context.Context) (ingestion.PassResult, error)
}

// Runner triggers passes on a cron spec with a seconds field
// (e.g. "0 */5 * * * *"). A tick is skipped while the previous pass runs.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
	running atomic.Bool
	skipped atomic.Int64
}

// New creates a Runner whose passes run under baseCtx.
func New(baseCtx context.Context, logger *zap.Logger) *Runner {
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logging.OrNop(logger),
		baseCtx: baseCtx,
	}
}

// AddPass schedules runner.RunPass on spec.
func (r *Runner) AddPass(spec string, runner PassRunner) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() { r.tick(runner) })
}

func (r *Runner) tick(runner PassRunner) {
	if !r.running.CompareAndSwap(false, true) {
		r.skipped.Add(1)
		r.logger.Warn("previous ingestion pass still running, tick skipped")
		return
	}
	defer r.running.Store(false)

	result, err := runner.RunPass(r.baseCtx)
	if err != nil {
		r.logger.Error("scheduled ingestion pass failed", zap.Error(err))
		return
	}
	r.logger.Info("scheduled ingestion pass done",
		zap.String("run_id", result.RunID),
		zap.Int("stored", result.Stored),
	)
}

// Skipped returns the number of ticks dropped because a pass was running.
func (r *Runner) Skipped() int64 {
	return r.skipped.Load()
}

func (r *Runner) Start() {
	r.logger.Info("cron started")
	r.cron.Start()
}

// Stop halts scheduling and waits for a running pass to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}
