package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/model"
)

// ResultQueue hands graded attempts to the persistence worker.
type ResultQueue interface {
	Enqueue(ctx context.Context, result *model.AttemptResult) error
}

// ResultSource is the worker side of the queue. Pop returns nil, nil when
// nothing arrived within timeout.
type ResultSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*model.AttemptResult, error)
	Requeue(ctx context.Context, result *model.AttemptResult) error
}

// RedisResultQueue pushes results onto the persist_results_queue list.
type RedisResultQueue struct {
	rdb *redis.Client
}

// NewRedisResultQueue creates a new RedisResultQueue.
func NewRedisResultQueue(rdb *redis.Client) *RedisResultQueue {
	return &RedisResultQueue{rdb: rdb}
}

func (q *RedisResultQueue) Enqueue(ctx context.Context, result *model.AttemptResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue result: %w", err)
	}
	return nil
}

// Requeue puts a result back at the tail after a failed write.
func (q *RedisResultQueue) Requeue(ctx context.Context, result *model.AttemptResult) error {
	return q.Enqueue(ctx, result)
}

func (q *RedisResultQueue) Pop(ctx context.Context, timeout time.Duration) (*model.AttemptResult, error) {
	item, err := q.rdb.BLPop(ctx, timeout, config.WorkerKey.PersistResultsQueue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop result: %w", err)
	}
	if len(item) < 2 {
		return nil, nil
	}

	var res model.AttemptResult
	if err := json.Unmarshal([]byte(item[1]), &res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return &res, nil
}

// ErrInvalidPayload marks a queue item that can never be decoded.
var ErrInvalidPayload = errors.New("invalid queue payload")
