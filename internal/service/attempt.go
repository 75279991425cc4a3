package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/lms-backend/internal/model"
)

// submitFunc receives the single terminal result of an attempt.
type submitFunc func(ctx context.Context, result *model.AttemptResult) error

// Attempt is one student's sitting of an exam. It ends exactly once, by
// manual submit, by the countdown reaching zero, or by being abandoned.
type Attempt struct {
	ID        uuid.UUID
	exam      *model.Exam
	studentID uuid.UUID
	onSubmit  submitFunc

	mu        sync.Mutex
	answers   map[int]string
	remaining int
	result    *model.AttemptResult

	once sync.Once
	done chan struct{}
}

func newAttempt(exam *model.Exam, studentID uuid.UUID, onSubmit submitFunc) *Attempt {
	return &Attempt{
		ID:        uuid.New(),
		exam:      exam.Clone(),
		studentID: studentID,
		onSubmit:  onSubmit,
		answers:   make(map[int]string),
		remaining: exam.DurationMinutes * 60,
		done:      make(chan struct{}),
	}
}

// Exam returns the student-facing copy of the exam being attempted.
func (a *Attempt) Exam() model.StudentExam {
	return a.exam.ForStudent()
}

// Remaining is the countdown in seconds.
func (a *Attempt) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining
}

// Done is closed when the attempt has ended.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Result is nil until the attempt is submitted, and stays nil if it was
// abandoned.
func (a *Attempt) Result() *model.AttemptResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// RecordAnswer stores or replaces the answer to one question.
func (a *Attempt) RecordAnswer(questionIndex int, answer string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finished() {
		return ErrAttemptFinished
	}
	if questionIndex < 0 || questionIndex >= len(a.exam.Questions) {
		return ErrQuestionOutOfRange
	}
	a.answers[questionIndex] = answer
	return nil
}

// Submit ends the attempt with the answers recorded so far.
func (a *Attempt) Submit(ctx context.Context) (*model.AttemptResult, error) {
	return a.finish(ctx, model.SubmitReasonManual)
}

// Abandon ends the attempt without submitting; recorded answers are lost.
func (a *Attempt) Abandon() {
	a.once.Do(func() {
		a.mu.Lock()
		a.answers = nil
		close(a.done)
		a.mu.Unlock()
	})
}

// Run counts down one second per tick and submits with the timeout reason
// at zero. It returns when the attempt ends for any reason; a cancelled ctx
// abandons an attempt that is still open.
func (a *Attempt) Run(ctx context.Context, ticks <-chan time.Time, onTick func(remaining int)) (*model.AttemptResult, error) {
	for {
		select {
		case <-ctx.Done():
			a.Abandon()
			return a.Result(), ctx.Err()
		case <-a.done:
			return a.Result(), nil
		case _, ok := <-ticks:
			if !ok {
				a.Abandon()
				return a.Result(), nil
			}

			a.mu.Lock()
			if a.finished() {
				a.mu.Unlock()
				return a.result, nil
			}
			if a.remaining > 0 {
				a.remaining--
			}
			remaining := a.remaining
			a.mu.Unlock()

			if onTick != nil {
				onTick(remaining)
			}
			if remaining == 0 {
				result, err := a.finish(ctx, model.SubmitReasonTimeout)
				if errors.Is(err, ErrAttemptFinished) {
					// A manual submit got there first.
					return a.Result(), nil
				}
				return result, err
			}
		}
	}
}

// finish grades and hands off the result once. A second call reports
// ErrAttemptFinished.
func (a *Attempt) finish(ctx context.Context, reason model.SubmitReason) (*model.AttemptResult, error) {
	var (
		result *model.AttemptResult
		err    error
		ran    bool
	)
	a.once.Do(func() {
		ran = true

		a.mu.Lock()
		result = grade(a.exam, a.answers)
		result.AttemptID = a.ID
		result.StudentID = a.studentID
		result.Reason = reason
		a.result = result
		// Closed under mu so no RecordAnswer lands after grading.
		close(a.done)
		a.mu.Unlock()

		if a.onSubmit != nil {
			err = a.onSubmit(ctx, result)
		}
	})
	if !ran {
		return nil, ErrAttemptFinished
	}
	return result, err
}

// finished must be called with mu held. done is only closed under mu.
func (a *Attempt) finished() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// grade scores mcq answers given as the option index. Non-blank short
// answers are left for manual review.
func grade(exam *model.Exam, answers map[int]string) *model.AttemptResult {
	result := &model.AttemptResult{
		ExamID:      exam.ID,
		Answers:     make(map[int]string, len(answers)),
		MaxScore:    exam.MaxScore(),
		SubmittedAt: time.Now().UTC(),
	}
	for i, ans := range answers {
		result.Answers[i] = ans
	}

	for i, q := range exam.Questions {
		ans, ok := answers[i]
		if !ok {
			continue
		}
		switch q.Type {
		case model.QuestionTypeMCQ:
			if choice, err := strconv.Atoi(strings.TrimSpace(ans)); err == nil && choice == q.CorrectOption {
				result.Score += q.Points
			}
		case model.QuestionTypeShort:
			if strings.TrimSpace(ans) != "" {
				result.PendingReview++
			}
		}
	}
	return result
}
