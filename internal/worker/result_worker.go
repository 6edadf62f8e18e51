package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/config"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker consumes persist_results_queue and writes graded attempts to
// PostgreSQL in batches. Grading itself happened synchronously against the
// cache; this loop only makes the outcome durable.
type ResultWorker struct {
	attemptRepo *repository.AttemptRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(attemptRepo *repository.AttemptRepository, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		attemptRepo: attemptRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "result_worker").Logger(),
	}
}

// Start begins the batching worker loop. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]repository.CompletedAttempt, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var c repository.CompletedAttempt
			if err := json.Unmarshal([]byte(item[1]), &c); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, c)
		}
	}
}

// flushSafe writes a batch, falling back to per-item writes (with requeue)
// when the bulk update fails. Autosave hashes clear only after a durable write.
func (w *ResultWorker) flushSafe(ctx context.Context, batch []repository.CompletedAttempt) {
	if len(batch) == 0 {
		return
	}

	if err := w.attemptRepo.CompleteBatch(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("Bulk completion failed, using fallback")

		for _, c := range batch {
			if err := w.attemptRepo.Complete(ctx, c.ExamID, c.StudentID, c.AttemptNumber, c.Score, c.Total, c.Result); err != nil {
				w.log.Error().Err(err).
					Str("exam_id", c.ExamID.String()).
					Int("student_id", c.StudentID).
					Msg("Single completion failed, requeueing")
				raw, _ := json.Marshal(c)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
				continue
			}
			w.clearAutosave(ctx, c)
		}
		return
	}

	pipe := w.rdb.Pipeline()
	for _, c := range batch {
		pipe.Del(ctx, config.CacheKey.StudentAnswersKey(c.ExamID.String(), c.StudentID))
	}
	_, _ = pipe.Exec(ctx)

	w.log.Debug().Int("count", len(batch)).Msg("Batch persisted")
}

func (w *ResultWorker) clearAutosave(ctx context.Context, c repository.CompletedAttempt) {
	_ = w.rdb.Del(ctx, config.CacheKey.StudentAnswersKey(c.ExamID.String(), c.StudentID)).Err()
}
