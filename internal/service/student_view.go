package service

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/lms-backend/internal/broadcast"
	"github.com/stemsi/lms-backend/internal/model"
)

// StudentView is one student's live list of visible exams.
type StudentView struct {
	mu      sync.RWMutex
	profile model.StudentProfile
	exams   []model.Exam
}

// NewStudentView seeds a view with the exams already visible to profile.
func NewStudentView(profile *model.StudentProfile, initial []model.Exam) (*StudentView, error) {
	if profile == nil {
		return nil, ErrProfileUnavailable
	}
	v := &StudentView{profile: *profile, exams: make([]model.Exam, 0, len(initial))}
	for i := range initial {
		if IsVisible(&initial[i], profile) {
			v.exams = append(v.exams, *initial[i].Clone())
		}
	}
	return v, nil
}

// Apply folds one event into the view and reports whether it changed.
func (v *StudentView) Apply(ev broadcast.Event) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch ev.Kind {
	case broadcast.KindExamPublished:
		if ev.Exam == nil {
			return false
		}
		if !IsVisible(ev.Exam, &v.profile) {
			// Re-targeted away from this student.
			return v.remove(ev.ExamID)
		}
		exam := *ev.Exam.Clone()
		if i := v.index(ev.ExamID); i >= 0 {
			v.exams[i] = exam
		} else {
			v.exams = append(v.exams, exam)
		}
		return true
	case broadcast.KindExamUnpublished, broadcast.KindExamDeleted:
		return v.remove(ev.ExamID)
	default:
		return false
	}
}

// Visible returns a copy of the current list.
func (v *StudentView) Visible() []model.Exam {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]model.Exam, len(v.exams))
	for i := range v.exams {
		out[i] = *v.exams[i].Clone()
	}
	return out
}

// Run applies events from sub until ctx is done or the subscription ends,
// then closes sub. onChange, when set, receives the list after each change.
// It returns ErrViewStale when the bus ended the subscription first, either
// because the view fell behind or the bus closed; the list may then miss
// events and must be reopened.
func (v *StudentView) Run(ctx context.Context, sub *broadcast.Subscription, onChange func([]model.Exam)) error {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrViewStale
			}
			if v.Apply(ev) && onChange != nil {
				onChange(v.Visible())
			}
		}
	}
}

func (v *StudentView) index(id uuid.UUID) int {
	return slices.IndexFunc(v.exams, func(e model.Exam) bool { return e.ID == id })
}

func (v *StudentView) remove(id uuid.UUID) bool {
	i := v.index(id)
	if i < 0 {
		return false
	}
	v.exams = slices.Delete(v.exams, i, i+1)
	return true
}

// OpenStudentView subscribes first and then loads the visible list, so an
// event raised in between is applied rather than lost.
func (s *ExamService) OpenStudentView(ctx context.Context, profile *model.StudentProfile) (*StudentView, *broadcast.Subscription, error) {
	if profile == nil {
		return nil, nil, ErrProfileUnavailable
	}

	sub, err := s.bus.Subscribe(ctx)
	if err != nil {
		return nil, nil, storageErr("subscribe exam events", err)
	}

	exams, err := s.ListVisible(ctx, profile)
	if err != nil {
		sub.Close()
		return nil, nil, err
	}

	view, err := NewStudentView(profile, exams)
	if err != nil {
		sub.Close()
		return nil, nil, err
	}
	return view, sub, nil
}
