package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/broadcast"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/repository"
	"github.com/stemsi/lms-backend/internal/validator"
)

// ExamService owns the exam lifecycle. It keeps the full exam list and the
// published subset in step and announces every change on the bus.
type ExamService struct {
	// mu serialises writers so the two collections never diverge.
	mu        sync.Mutex
	exams     repository.ExamRepository
	published repository.PublishedRepository
	roster    repository.RosterCounter
	bus       broadcast.Bus
	metrics   *MetricsService
	log       zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	exams repository.ExamRepository,
	published repository.PublishedRepository,
	roster repository.RosterCounter,
	bus broadcast.Bus,
	metrics *MetricsService,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		exams:     exams,
		published: published,
		roster:    roster,
		bus:       bus,
		metrics:   metrics,
		log:       log.With().Str("component", "exam_service").Logger(),
	}
}

// publishReadiness holds the fields an exam needs before students can see it.
type publishReadiness struct {
	Title           string           `json:"title" binding:"required"`
	Course          string           `json:"course" binding:"required"`
	StartDate       string           `json:"start_date" binding:"required"`
	DurationMinutes int              `json:"duration_minutes" binding:"gt=0"`
	Questions       []model.Question `json:"questions" binding:"min=1"`
	Targeting       []string         `json:"targeting" binding:"min=1"`
}

func checkPublishable(e *model.Exam) error {
	ready := publishReadiness{
		Title:           e.Title,
		Course:          e.Course,
		StartDate:       e.StartDate,
		DurationMinutes: e.DurationMinutes,
		Questions:       e.Questions,
		Targeting:       append(append([]string{}, e.Sections...), e.Batches...),
	}
	return newValidationError(validator.Struct(ready))
}

// checkDraft validates instructor input, including the mcq rules that the
// struct tags cannot express.
func checkDraft(d *model.ExamDraft) error {
	if d == nil {
		return newValidationError(map[string]string{"detail": "exam payload is required"})
	}
	fields := validator.Struct(d)
	if fields == nil {
		fields = make(map[string]string)
	}
	if _, ok := fields["title"]; !ok && strings.TrimSpace(d.Title) == "" {
		fields["title"] = "title is a required field"
	}
	if _, ok := fields["course"]; !ok && strings.TrimSpace(d.Course) == "" {
		fields["course"] = "course is a required field"
	}
	for i, q := range d.Questions {
		if model.QuestionType(q.Type) != model.QuestionTypeMCQ {
			continue
		}
		if len(q.Options) < 2 {
			fields[fmt.Sprintf("questions[%d].options", i)] = "options must contain at least 2 items"
			continue
		}
		if q.CorrectOption >= len(q.Options) {
			fields[fmt.Sprintf("questions[%d].correct_option", i)] = "correct_option must index one of the options"
		}
	}
	return newValidationError(fields)
}

// Create inserts a new exam as draft.
func (s *ExamService) Create(ctx context.Context, draft *model.ExamDraft) (*model.Exam, error) {
	if err := checkDraft(draft); err != nil {
		return nil, err
	}

	exam := &model.Exam{ID: uuid.New(), Status: model.ExamStatusDraft}
	draft.Apply(exam)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, storageErr("create exam", err)
	}

	s.log.Info().Str("exam_id", exam.ID.String()).Msg("Exam created")
	return exam, nil
}

// Update replaces the editable fields of a draft exam.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, draft *model.ExamDraft) (*model.Exam, error) {
	if err := checkDraft(draft); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get exam", err)
	}
	if exam.Status != model.ExamStatusDraft {
		return nil, ErrExamNotDraft
	}

	draft.Apply(exam)
	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, storageErr("update exam", err)
	}
	return exam, nil
}

func (s *ExamService) Get(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get exam", err)
	}
	return exam, nil
}

// List returns every exam in creation order.
func (s *ExamService) List(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, storageErr("list exams", err)
	}
	return exams, nil
}

// Publish validates the exam, stores it in both collections and announces
// it. A failed published-subset write restores the full-list record.
func (s *ExamService) Publish(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get exam", err)
	}
	if exam.Status == model.ExamStatusCompleted {
		return nil, ErrExamCompleted
	}
	if err := checkPublishable(exam); err != nil {
		return nil, err
	}

	eligible, err := s.roster.CountStudents(ctx, exam.Sections, exam.Batches)
	if err != nil {
		return nil, storageErr("count roster", err)
	}
	if exam.MaxStudents != nil && eligible > *exam.MaxStudents {
		eligible = *exam.MaxStudents
	}

	previous := exam.Clone()
	now := time.Now().UTC()
	exam.Status = model.ExamStatusPublished
	exam.PublishedAt = &now
	exam.EligibleStudents = eligible

	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, storageErr("update exam", err)
	}
	if err := s.published.Upsert(ctx, exam); err != nil {
		s.restore(ctx, previous)
		return nil, storageErr("upsert published exam", err)
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Int("eligible_students", eligible).
		Msg("Exam published")

	s.emit(ctx, broadcast.ExamPublished(exam))
	return exam, nil
}

// Unpublish returns an exam to draft and withdraws it from students.
// Unpublishing a draft still announces the withdrawal.
func (s *ExamService) Unpublish(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return storageErr("get exam", err)
	}
	if exam.Status == model.ExamStatusCompleted {
		return ErrExamCompleted
	}

	if exam.Status == model.ExamStatusPublished {
		previous := exam.Clone()
		exam.Status = model.ExamStatusDraft
		exam.PublishedAt = nil
		if err := s.exams.Update(ctx, exam); err != nil {
			return storageErr("update exam", err)
		}
		if err := s.published.Remove(ctx, id); err != nil {
			s.restore(ctx, previous)
			return storageErr("remove published exam", err)
		}
	} else if err := s.published.Remove(ctx, id); err != nil {
		return storageErr("remove published exam", err)
	}

	s.log.Info().Str("exam_id", id.String()).Msg("Exam unpublished")
	s.emit(ctx, broadcast.ExamUnpublished(id))
	return nil
}

// Complete closes a published exam for good.
func (s *ExamService) Complete(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get exam", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}

	previous := exam.Clone()
	exam.Status = model.ExamStatusCompleted
	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, storageErr("update exam", err)
	}
	if err := s.published.Remove(ctx, id); err != nil {
		s.restore(ctx, previous)
		return nil, storageErr("remove published exam", err)
	}

	s.log.Info().Str("exam_id", id.String()).Msg("Exam completed")
	s.emit(ctx, broadcast.ExamUnpublished(id))
	return exam, nil
}

// Delete removes the exam from both collections and announces it.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return storageErr("get exam", err)
	}

	if err := s.published.Remove(ctx, id); err != nil {
		return storageErr("remove published exam", err)
	}
	if err := s.exams.Delete(ctx, id); err != nil {
		if exam.Status == model.ExamStatusPublished {
			if upErr := s.published.Upsert(ctx, exam); upErr != nil {
				s.log.Error().Err(upErr).Str("exam_id", id.String()).Msg("Failed to restore published exam")
			}
		}
		return storageErr("delete exam", err)
	}

	s.log.Info().Str("exam_id", id.String()).Msg("Exam deleted")
	s.emit(ctx, broadcast.ExamDeleted(id))
	return nil
}

// ListVisible returns the published exams the student may see, in publish
// order.
func (s *ExamService) ListVisible(ctx context.Context, profile *model.StudentProfile) ([]model.Exam, error) {
	if profile == nil {
		return nil, ErrProfileUnavailable
	}
	exams, err := s.published.List(ctx)
	if err != nil {
		return nil, storageErr("list published exams", err)
	}
	return filterVisible(exams, profile), nil
}

// GetPublished returns a published exam, or ErrExamNotPublished.
func (s *ExamService) GetPublished(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}
	return exam, nil
}

// PrewarmPublished rebuilds the published subset from the full list.
// Called once on startup.
func (s *ExamService) PrewarmPublished(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Info().Msg("Prewarming published exams...")

	all, err := s.exams.List(ctx)
	if err != nil {
		return storageErr("list exams", err)
	}

	published := make([]model.Exam, 0, len(all))
	for _, e := range all {
		if e.Status == model.ExamStatusPublished {
			published = append(published, e)
		}
	}

	if err := s.published.Replace(ctx, published); err != nil {
		return storageErr("replace published exams", err)
	}

	s.log.Info().Int("count", len(published)).Msg("Published exams prewarmed")
	return nil
}

// restore puts back a full-list record after a failed second write.
func (s *ExamService) restore(ctx context.Context, previous *model.Exam) {
	if err := s.exams.Update(ctx, previous); err != nil {
		s.log.Error().Err(err).Str("exam_id", previous.ID.String()).Msg("Failed to restore exam after partial write")
	}
}

// emit announces a change. The change is already stored, so a bus failure
// is logged rather than returned.
func (s *ExamService) emit(ctx context.Context, ev broadcast.Event) {
	s.metrics.ExamEvent(ev.Kind)
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("kind", string(ev.Kind)).
			Str("exam_id", ev.ExamID.String()).
			Msg("Failed to broadcast exam event")
	}
}
