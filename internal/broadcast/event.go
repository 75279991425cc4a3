package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/lms-backend/internal/model"
)

// Kind identifies an exam lifecycle event.
type Kind string

const (
	KindExamPublished   Kind = "exam.published"
	KindExamUnpublished Kind = "exam.unpublished"
	KindExamDeleted     Kind = "exam.deleted"
)

// EventSchemaVersion is written into every encoded event.
const EventSchemaVersion = 1

var ErrUnsupportedEvent = errors.New("unsupported exam event")

// Event is one message on the exam channel. Exam is set only for
// KindExamPublished; the other kinds carry just the id.
type Event struct {
	SchemaVersion int         `json:"schema_version"`
	Kind          Kind        `json:"kind"`
	ExamID        uuid.UUID   `json:"exam_id"`
	Exam          *model.Exam `json:"exam,omitempty"`
	At            time.Time   `json:"at"`
}

// ExamPublished carries a copy of the full published record.
func ExamPublished(e *model.Exam) Event {
	return Event{
		SchemaVersion: EventSchemaVersion,
		Kind:          KindExamPublished,
		ExamID:        e.ID,
		Exam:          e.Clone(),
		At:            time.Now().UTC(),
	}
}

func ExamUnpublished(id uuid.UUID) Event {
	return Event{SchemaVersion: EventSchemaVersion, Kind: KindExamUnpublished, ExamID: id, At: time.Now().UTC()}
}

func ExamDeleted(id uuid.UUID) Event {
	return Event{SchemaVersion: EventSchemaVersion, Kind: KindExamDeleted, ExamID: id, At: time.Now().UTC()}
}

// Encode serializes the event for transports that leave the process.
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode parses and validates an encoded event.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if ev.SchemaVersion != EventSchemaVersion {
		return Event{}, fmt.Errorf("%w: schema version %d", ErrUnsupportedEvent, ev.SchemaVersion)
	}
	switch ev.Kind {
	case KindExamPublished:
		if ev.Exam == nil {
			return Event{}, fmt.Errorf("%w: %s without exam", ErrUnsupportedEvent, ev.Kind)
		}
	case KindExamUnpublished, KindExamDeleted:
	default:
		return Event{}, fmt.Errorf("%w: kind %q", ErrUnsupportedEvent, ev.Kind)
	}
	return ev, nil
}
