package service

import (
	"slices"

	"github.com/stemsi/lms-backend/internal/model"
)

// IsVisible reports whether a published exam targets the given student.
// An empty sections or batches set leaves that dimension open; a nil
// profile sees nothing.
func IsVisible(exam *model.Exam, profile *model.StudentProfile) bool {
	if exam == nil || profile == nil {
		return false
	}
	if exam.Status != model.ExamStatusPublished {
		return false
	}
	if len(exam.Sections) > 0 && !slices.Contains(exam.Sections, profile.Section) {
		return false
	}
	if len(exam.Batches) > 0 && !slices.Contains(exam.Batches, profile.Batch) {
		return false
	}
	return true
}

// filterVisible keeps the order of exams.
func filterVisible(exams []model.Exam, profile *model.StudentProfile) []model.Exam {
	out := make([]model.Exam, 0, len(exams))
	for i := range exams {
		if IsVisible(&exams[i], profile) {
			out = append(out, exams[i])
		}
	}
	return out
}
