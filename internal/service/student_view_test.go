package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/broadcast"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishedExam(sections ...string) *model.Exam {
	return &model.Exam{ID: uuid.New(), Title: "Exam", Status: model.ExamStatusPublished, Sections: sections}
}

func ids(exams []model.Exam) []uuid.UUID {
	out := make([]uuid.UUID, len(exams))
	for i, e := range exams {
		out[i] = e.ID
	}
	return out
}

func TestNewStudentViewFiltersInitial(t *testing.T) {
	mine, other := publishedExam("A"), publishedExam("B")
	view, err := NewStudentView(&model.StudentProfile{Section: "A"}, []model.Exam{*mine, *other})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mine.ID}, ids(view.Visible()))

	_, err = NewStudentView(nil, nil)
	assert.ErrorIs(t, err, ErrProfileUnavailable)
}

func TestStudentViewApply(t *testing.T) {
	view, err := NewStudentView(&model.StudentProfile{Section: "A"}, nil)
	require.NoError(t, err)

	first, second := publishedExam("A"), publishedExam("A")
	assert.True(t, view.Apply(broadcast.ExamPublished(first)))
	assert.True(t, view.Apply(broadcast.ExamPublished(second)))
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, ids(view.Visible()))

	// Republish replaces in place.
	first.Title = "Renamed"
	assert.True(t, view.Apply(broadcast.ExamPublished(first)))
	visible := view.Visible()
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, ids(visible))
	assert.Equal(t, "Renamed", visible[0].Title)

	// Not targeted: ignored.
	assert.False(t, view.Apply(broadcast.ExamPublished(publishedExam("B"))))

	assert.True(t, view.Apply(broadcast.ExamUnpublished(first.ID)))
	assert.False(t, view.Apply(broadcast.ExamUnpublished(first.ID)))
	assert.True(t, view.Apply(broadcast.ExamDeleted(second.ID)))
	assert.Empty(t, view.Visible())
}

func TestStudentViewDropsRetargetedExam(t *testing.T) {
	exam := publishedExam("A")
	view, err := NewStudentView(&model.StudentProfile{Section: "A"}, []model.Exam{*exam})
	require.NoError(t, err)

	exam.Sections = []string{"B"}
	assert.True(t, view.Apply(broadcast.ExamPublished(exam)))
	assert.Empty(t, view.Visible())
}

func TestStudentViewVisibleIsACopy(t *testing.T) {
	exam := publishedExam("A")
	view, err := NewStudentView(&model.StudentProfile{Section: "A"}, []model.Exam{*exam})
	require.NoError(t, err)

	got := view.Visible()
	got[0].Sections[0] = "Z"
	assert.Equal(t, []string{"A"}, view.Visible()[0].Sections)
}

func TestOpenStudentViewFollowsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	profile := &model.StudentProfile{StudentID: uuid.New(), Section: "A"}
	view, sub, err := env.svc.OpenStudentView(ctx, profile)
	require.NoError(t, err)
	require.Empty(t, view.Visible())

	updates := make(chan []model.Exam, 8)
	done := make(chan struct{})
	go func() {
		view.Run(ctx, sub, func(exams []model.Exam) { updates <- exams })
		close(done)
	}()

	next := func() []model.Exam {
		select {
		case u := <-updates:
			return u
		case <-time.After(time.Second):
			t.Fatal("no view update")
			return nil
		}
	}

	exam, err := env.svc.Create(ctx, readyDraft("A"))
	require.NoError(t, err)
	_, err = env.svc.Publish(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{exam.ID}, ids(next()))

	// Re-target away from the student, then back.
	require.NoError(t, env.svc.Unpublish(ctx, exam.ID))
	assert.Empty(t, next())

	_, err = env.svc.Update(ctx, exam.ID, readyDraft("B"))
	require.NoError(t, err)
	_, err = env.svc.Publish(ctx, exam.ID)
	require.NoError(t, err)

	_, err = env.svc.Update(ctx, uuid.New(), readyDraft("A"))
	require.ErrorIs(t, err, ErrExamNotFound)

	require.NoError(t, env.svc.Delete(ctx, exam.ID))

	other, err := env.svc.Create(ctx, readyDraft("A"))
	require.NoError(t, err)
	_, err = env.svc.Publish(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{other.ID}, ids(next()))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("view did not stop")
	}

	// The subscription was released when Run returned.
	assert.Equal(t, 1, env.bus.Subscribers())
}

func TestOpenStudentViewNeedsProfile(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.svc.OpenStudentView(context.Background(), nil)
	assert.ErrorIs(t, err, ErrProfileUnavailable)
}

func TestOpenStudentViewFansOutToEachProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type live struct {
		view    *StudentView
		updates chan []model.Exam
		done    chan struct{}
	}
	open := func(section string) live {
		view, sub, err := env.svc.OpenStudentView(ctx, &model.StudentProfile{StudentID: uuid.New(), Section: section})
		require.NoError(t, err)
		l := live{view: view, updates: make(chan []model.Exam, 4), done: make(chan struct{})}
		go func() {
			defer close(l.done)
			_ = view.Run(ctx, sub, func(exams []model.Exam) { l.updates <- exams })
		}()
		return l
	}
	inA, inB := open("A"), open("B")

	exam, err := env.svc.Create(ctx, readyDraft("A"))
	require.NoError(t, err)
	_, err = env.svc.Publish(ctx, exam.ID)
	require.NoError(t, err)

	select {
	case got := <-inA.updates:
		assert.Equal(t, []uuid.UUID{exam.ID}, ids(got))
	case <-time.After(time.Second):
		t.Fatal("section A view not updated")
	}

	// Both views received the same event; only A's list changed.
	cancel()
	for _, l := range []live{inA, inB} {
		select {
		case <-l.done:
		case <-time.After(time.Second):
			t.Fatal("view did not stop")
		}
	}
	assert.Empty(t, inB.updates)
	assert.Empty(t, inB.view.Visible())
	assert.Equal(t, []uuid.UUID{exam.ID}, ids(inA.view.Visible()))
}

func TestStudentViewReportsLostEvents(t *testing.T) {
	bus := broadcast.NewLocalBus(1, nil, zerolog.Nop())
	svc := NewExamService(
		repository.NewMemoryExamRepository(),
		repository.NewMemoryPublishedRepository(),
		repository.NewMemoryAccountRepository(),
		bus, nil, zerolog.Nop(),
	)
	ctx := context.Background()
	profile := &model.StudentProfile{StudentID: uuid.New(), Section: "A"}

	view, sub, err := svc.OpenStudentView(ctx, profile)
	require.NoError(t, err)

	exam, err := svc.Create(ctx, readyDraft("A"))
	require.NoError(t, err)
	_, err = svc.Publish(ctx, exam.ID)
	require.NoError(t, err)
	// The view is not draining, so the unpublish overflows its buffer.
	require.NoError(t, svc.Unpublish(ctx, exam.ID))

	err = view.Run(ctx, sub, nil)
	require.ErrorIs(t, err, ErrViewStale)
	assert.Equal(t, 0, bus.Subscribers())

	// Reopening reflects the store again.
	reopened, sub, err := svc.OpenStudentView(ctx, profile)
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, reopened.Visible())
}

func TestStudentViewRunEndsQuietlyOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	view, sub, err := env.svc.OpenStudentView(ctx, &model.StudentProfile{Section: "A"})
	require.NoError(t, err)

	cancel()
	assert.NoError(t, view.Run(ctx, sub, nil))
}
