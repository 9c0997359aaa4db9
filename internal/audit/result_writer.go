package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
	"github.com/goodnatureofminers/multialgo-retarget/pkg/batcher"
)

const (
	resultBatcherSize          = 500
	resultBatcherFlushInterval = 10 * time.Second
	resultBatcherRPS           = 5
)

// resultWriter persists results in batches. After the first failed insert it
// stores nothing more, so stored heights never skip over lost ones.
type resultWriter struct {
	repo    Repository
	batcher *batcher.Batcher[model.AuditResult]

	mu       sync.Mutex
	flushErr error
	from     uint64
}

func newResultWriter(repo Repository, logger *zap.Logger) *resultWriter {
	w := &resultWriter{repo: repo}
	w.batcher = batcher.New[model.AuditResult](
		logger.Named("resultBatcher"),
		batcher.Config{
			Size:     resultBatcherSize,
			Interval: resultBatcherFlushInterval,
			RPS:      resultBatcherRPS,
		},
		w.flush,
	)
	return w
}

func (w *resultWriter) Start(ctx context.Context) {
	w.batcher.Start(ctx)
}

func (w *resultWriter) Stop() {
	w.batcher.Stop()
}

func (w *resultWriter) Write(ctx context.Context, result model.AuditResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.failure(); err != nil {
		return err
	}
	return w.batcher.Add(ctx, result)
}

func (w *resultWriter) Unstored() (uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.from, w.flushErr != nil
}

func (w *resultWriter) failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flushErr == nil {
		return nil
	}
	return fmt.Errorf("%w from height %d: %w", ErrResultsNotStored, w.from, w.flushErr)
}

func (w *resultWriter) flush(ctx context.Context, results []model.AuditResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.flushErr == nil {
		err := w.repo.InsertAuditResults(ctx, results)
		if err == nil {
			return nil
		}
		w.flushErr = err
		w.from = results[0].Height
	}
	for _, r := range results {
		w.from = min(w.from, r.Height)
	}
	return fmt.Errorf("%w: %w", ErrResultsNotStored, w.flushErr)
}
