package repository

import (
	"context"
	"time"

	"github.com/stemsi/lms-backend/internal/model"
)

// MemoryResultQueue is a buffered in-process ResultQueue and ResultSource.
type MemoryResultQueue struct {
	items chan *model.AttemptResult
}

func NewMemoryResultQueue(capacity int) *MemoryResultQueue {
	return &MemoryResultQueue{items: make(chan *model.AttemptResult, capacity)}
}

func (q *MemoryResultQueue) Enqueue(ctx context.Context, result *model.AttemptResult) error {
	select {
	case q.items <- result:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryResultQueue) Requeue(ctx context.Context, result *model.AttemptResult) error {
	return q.Enqueue(ctx, result)
}

func (q *MemoryResultQueue) Pop(ctx context.Context, timeout time.Duration) (*model.AttemptResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-q.items:
		return res, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports how many results are waiting.
func (q *MemoryResultQueue) Len() int {
	return len(q.items)
}
