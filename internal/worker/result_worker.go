package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/repository"
	"github.com/stemsi/lms-backend/internal/service"
)

const (
	DefaultResultBatchSize = 50
	ResultBatchTimeout     = 2 * time.Second
	ResultPollTimeout      = 1 * time.Second
)

// ResultWorker drains graded attempts from the queue into PostgreSQL in
// batches.
type ResultWorker struct {
	source    repository.ResultSource
	store     repository.ResultStore
	batchSize int
	metrics   *service.MetricsService
	log       zerolog.Logger
}

func NewResultWorker(
	source repository.ResultSource,
	store repository.ResultStore,
	batchSize int,
	metrics *service.MetricsService,
	log zerolog.Logger,
) *ResultWorker {
	if batchSize <= 0 {
		batchSize = DefaultResultBatchSize
	}
	return &ResultWorker{
		source:    source,
		store:     store,
		batchSize: batchSize,
		metrics:   metrics,
		log:       log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start blocks until ctx is cancelled, then flushes what it holds.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Int("batch_size", w.batchSize).Msg("ResultWorker started")

	batch := make([]*model.AttemptResult, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			res, err := w.source.Pop(ctx, ResultPollTimeout)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				if errors.Is(err, repository.ErrInvalidPayload) {
					w.log.Error().Err(err).Msg("Invalid JSON payload")
					continue
				}
				w.log.Error().Err(err).Msg("Pop error")
				w.backoff(ctx)
				continue
			}
			if res == nil {
				continue
			}

			batch = append(batch, res)
		}
	}
}

func (w *ResultWorker) backoff(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(ResultPollTimeout):
	}
}

// ----------------------------------------------------------------
// Batch insert with per-item fallback
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.AttemptResult) {
	if len(batch) == 0 {
		return
	}

	err := w.store.InsertBatch(ctx, batch)
	if err == nil {
		w.metrics.ResultsPersisted(len(batch))
		w.log.Debug().Int("count", len(batch)).Msg("Results persisted")
		return
	}
	w.log.Warn().Err(err).Msg("Bulk result insert failed, using fallback")

	saved := 0
	for _, res := range batch {
		if err := w.store.Insert(ctx, res); err != nil {
			w.log.Error().Err(err).Str("attempt_id", res.AttemptID.String()).Msg("Insert failed, requeueing")
			if err := w.source.Requeue(ctx, res); err != nil {
				w.log.Error().Err(err).Str("attempt_id", res.AttemptID.String()).Msg("Requeue failed, result lost")
			}
			continue
		}
		saved++
	}
	w.metrics.ResultsPersisted(saved)
}
