package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type cohort struct {
	Name     string   `json:"name" binding:"required"`
	Section  string   `json:"section" binding:"label"`
	Sections []string `json:"sections" binding:"omitempty,dive,label"`
	Items    []item   `json:"items" binding:"omitempty,dive"`
}

type item struct {
	Text string `json:"text" binding:"required"`
}

func TestStructValid(t *testing.T) {
	assert.Nil(t, Struct(cohort{Name: "ok", Section: "XII-RPL 1", Sections: []string{"A", "B.2", "Kelas_3", "  "}}))
}

func TestStructCollectsEveryField(t *testing.T) {
	fields := Struct(cohort{
		Section:  "<b>",
		Sections: []string{"A", "-leading"},
		Items:    []item{{Text: "x"}, {}},
	})

	assert.Len(t, fields, 4)
	assert.Equal(t, "name is a required field", fields["name"])
	assert.Contains(t, fields, "section")
	assert.Contains(t, fields, "sections[1]")
	assert.Contains(t, fields, "items[1].text")
}

func TestLabelLength(t *testing.T) {
	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}
	assert.Contains(t, Struct(cohort{Name: "n", Section: string(long)}), "section")
	assert.Nil(t, Struct(cohort{Name: "n", Section: string(long[:64])}))
}

func TestTranslateNonValidationError(t *testing.T) {
	fields := TranslateErrors(assert.AnError)
	assert.Equal(t, map[string]string{"detail": assert.AnError.Error()}, fields)
}
