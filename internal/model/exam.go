package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "draft"
	ExamStatusPublished ExamStatus = "published"
	ExamStatusCompleted ExamStatus = "completed"
)

// Exam is a scheduled assessment, its questions, and its targeting rules.
// Empty Sections or Batches mean that dimension is unrestricted.
type Exam struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Course           string     `json:"course"`
	Description      string     `json:"description,omitempty"`
	StartDate        string     `json:"start_date,omitempty"`
	StartTime        string     `json:"start_time,omitempty"`
	DurationMinutes  int        `json:"duration_minutes"`
	Sections         []string   `json:"sections"`
	Batches          []string   `json:"batches"`
	MaxStudents      *int       `json:"max_students,omitempty"`
	Questions        []Question `json:"questions"`
	Status           ExamStatus `json:"status"`
	EligibleStudents int        `json:"eligible_students"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Clone returns a deep copy so stores and views never share slices.
func (e *Exam) Clone() *Exam {
	if e == nil {
		return nil
	}
	c := *e
	c.Sections = append([]string(nil), e.Sections...)
	c.Batches = append([]string(nil), e.Batches...)
	if e.Questions != nil {
		c.Questions = make([]Question, len(e.Questions))
		for i, q := range e.Questions {
			c.Questions[i] = q
			c.Questions[i].Options = append([]string(nil), q.Options...)
		}
	}
	if e.MaxStudents != nil {
		n := *e.MaxStudents
		c.MaxStudents = &n
	}
	if e.PublishedAt != nil {
		t := *e.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}

// MaxScore is the sum of all question points.
func (e *Exam) MaxScore() int {
	total := 0
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// ForStudent strips answer keys from the exam.
func (e *Exam) ForStudent() StudentExam {
	questions := make([]QuestionForStudent, len(e.Questions))
	for i, q := range e.Questions {
		questions[i] = QuestionForStudent{
			Index:   i,
			Type:    q.Type,
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
			Points:  q.Points,
		}
	}
	return StudentExam{
		ID:              e.ID,
		Title:           e.Title,
		Course:          e.Course,
		Description:     e.Description,
		StartDate:       e.StartDate,
		StartTime:       e.StartTime,
		DurationMinutes: e.DurationMinutes,
		Questions:       questions,
		PublishedAt:     e.PublishedAt,
	}
}

// StudentExam is the student-facing view of a published exam.
type StudentExam struct {
	ID              uuid.UUID            `json:"id"`
	Title           string               `json:"title"`
	Course          string               `json:"course"`
	Description     string               `json:"description,omitempty"`
	StartDate       string               `json:"start_date,omitempty"`
	StartTime       string               `json:"start_time,omitempty"`
	DurationMinutes int                  `json:"duration_minutes"`
	Questions       []QuestionForStudent `json:"questions"`
	PublishedAt     *time.Time           `json:"published_at,omitempty"`
}

// ExamDraft carries the instructor-editable fields of an exam.
type ExamDraft struct {
	Title           string          `json:"title" binding:"required,max=255"`
	Course          string          `json:"course" binding:"required,max=255"`
	Description     string          `json:"description" binding:"omitempty,max=2000"`
	StartDate       string          `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	StartTime       string          `json:"start_time" binding:"omitempty,datetime=15:04"`
	DurationMinutes int             `json:"duration_minutes" binding:"omitempty,min=1,max=600"`
	Sections        []string        `json:"sections" binding:"omitempty,dive,label"`
	Batches         []string        `json:"batches" binding:"omitempty,dive,label"`
	MaxStudents     *int            `json:"max_students" binding:"omitempty,min=1"`
	Questions       []QuestionInput `json:"questions" binding:"omitempty,dive"`
}

// Apply copies the draft fields onto e, normalising the targeting sets.
func (d *ExamDraft) Apply(e *Exam) {
	e.Title = strings.TrimSpace(d.Title)
	e.Course = strings.TrimSpace(d.Course)
	e.Description = strings.TrimSpace(d.Description)
	e.StartDate = strings.TrimSpace(d.StartDate)
	e.StartTime = strings.TrimSpace(d.StartTime)
	e.DurationMinutes = d.DurationMinutes
	e.Sections = NormalizeLabels(d.Sections)
	e.Batches = NormalizeLabels(d.Batches)
	e.MaxStudents = d.MaxStudents

	e.Questions = make([]Question, len(d.Questions))
	for i, q := range d.Questions {
		e.Questions[i] = q.Question()
	}
}

// NormalizeLabels trims labels, drops empties and duplicates, and keeps
// first-seen order. The result is never nil.
func NormalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
