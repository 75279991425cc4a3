package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stemsi/lms-backend/internal/model"
)

// ExamSchemaVersion is the version written into every serialized exam.
// Bump it together with a decoder branch when the Exam shape changes.
const ExamSchemaVersion = 1

var ErrUnsupportedSchema = errors.New("unsupported exam schema version")

type examEnvelope struct {
	SchemaVersion int             `json:"schema_version"`
	Exam          json.RawMessage `json:"exam"`
}

// EncodeExam serializes an exam inside a versioned envelope.
func EncodeExam(e *model.Exam) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal exam: %w", err)
	}
	return json.Marshal(examEnvelope{SchemaVersion: ExamSchemaVersion, Exam: body})
}

// DecodeExam parses a versioned envelope produced by EncodeExam.
func DecodeExam(data []byte) (*model.Exam, error) {
	var env examEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal exam envelope: %w", err)
	}

	switch env.SchemaVersion {
	case ExamSchemaVersion:
		var e model.Exam
		if err := json.Unmarshal(env.Exam, &e); err != nil {
			return nil, fmt.Errorf("unmarshal exam v%d: %w", env.SchemaVersion, err)
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, env.SchemaVersion)
	}
}
