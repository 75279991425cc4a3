package model

import "strings"

type QuestionType string

const (
	QuestionTypeMCQ   QuestionType = "mcq"
	QuestionTypeShort QuestionType = "short"
)

// Question is a single exam question. CorrectOption indexes Options and is
// only meaningful for mcq questions.
type Question struct {
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Options       []string     `json:"options,omitempty"`
	CorrectOption int          `json:"correct_option"`
	Points        int          `json:"points"`
}

// QuestionForStudent is a question without the correct answer.
type QuestionForStudent struct {
	Index   int          `json:"index"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Options []string     `json:"options,omitempty"`
	Points  int          `json:"points"`
}

// QuestionInput is the request shape of a question.
type QuestionInput struct {
	Type          string   `json:"type" binding:"required,oneof=mcq short"`
	Text          string   `json:"text" binding:"required,max=2000"`
	Options       []string `json:"options" binding:"omitempty,dive,required,max=500"`
	CorrectOption int      `json:"correct_option" binding:"min=0"`
	Points        int      `json:"points" binding:"min=0,max=1000"`
}

// Question converts the input, dropping options from short questions.
func (in QuestionInput) Question() Question {
	q := Question{
		Type:   QuestionType(in.Type),
		Text:   strings.TrimSpace(in.Text),
		Points: in.Points,
	}
	if q.Type == QuestionTypeMCQ {
		q.Options = append([]string(nil), in.Options...)
		q.CorrectOption = in.CorrectOption
	}
	return q
}
