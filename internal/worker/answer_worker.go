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

// answerBatchSize caps the number of answers written per UNNEST round trip.
const answerBatchSize = 50

// AnswerWorker consumes persist_answers_queue and UPSERTs autosaved answers
// to PostgreSQL. Redis stays the hot path; this loop makes answers durable.
type AnswerWorker struct {
	answerRepo *repository.AnswerRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewAnswerWorker creates a new AnswerWorker.
func NewAnswerWorker(answerRepo *repository.AnswerRepository, rdb *redis.Client, log zerolog.Logger) *AnswerWorker {
	return &AnswerWorker{
		answerRepo: answerRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "answer_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AnswerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AnswerWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	// Sweep whatever queued up behind the first item into one UNNEST write.
	items := []string{result[1]}
	if more, err := w.rdb.LPopCount(ctx, config.WorkerKey.PersistAnswersQueue, answerBatchSize-1).Result(); err == nil {
		items = append(items, more...)
	}

	recs, raw := w.decode(items)
	if len(recs) == 0 {
		return
	}

	if err := w.answerRepo.UpsertBatch(ctx, recs); err != nil {
		w.log.Error().Err(err).
			Int("count", len(recs)).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw...)
		time.Sleep(5 * time.Second)
	}
}

// decode unmarshals queue payloads, dropping malformed items so they cannot
// wedge the retry loop. raw mirrors recs for requeueing.
func (w *AnswerWorker) decode(items []string) ([]repository.AnswerRecord, []interface{}) {
	recs := make([]repository.AnswerRecord, 0, len(items))
	raw := make([]interface{}, 0, len(items))
	for _, item := range items {
		var rec repository.AnswerRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			w.log.Error().Err(err).Msg("Unmarshal error")
			continue
		}
		recs = append(recs, rec)
		raw = append(raw, item)
	}
	return recs, raw
}

// drain processes all remaining items in the queue before shutdown.
func (w *AnswerWorker) drain(ctx context.Context) {
	drained := 0
	for {
		items, err := w.rdb.LPopCount(ctx, config.WorkerKey.PersistAnswersQueue, answerBatchSize).Result()
		if err != nil || len(items) == 0 {
			break
		}

		recs, raw := w.decode(items)
		if len(recs) == 0 {
			continue
		}

		if err := w.answerRepo.UpsertBatch(ctx, recs); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw...)
			break
		}
		drained += len(recs)
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
