package speaker

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/kbukum/speakerid/diarization"
	apperrors "github.com/kbukum/speakerid/errors"
)

// Person is someone who can speak in a meeting.
type Person struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	IsCouncillor bool      `json:"is_councillor"`
}

// Meeting is the slice of a meeting record this package reads.
type Meeting struct {
	ID               int64           `json:"id"`
	Title            string          `json:"title"`
	DiarizationHints json.RawMessage `json:"diarization_hints,omitempty"`
}

// Hints decodes the meeting's diarization hints.
func (m *Meeting) Hints(dimension int) (*diarization.Hints, error) {
	h, err := diarization.ParseHints(m.DiarizationHints, dimension)
	if err != nil {
		return nil, apperrors.InvalidInput("diarization_hints", err.Error()).WithCause(err)
	}
	return h, nil
}

// Segment is one speaker turn of a transcript. Segments in a meeting are
// ordered by StartTime and do not overlap.
type Segment struct {
	ID          int64      `json:"id"`
	MeetingID   int64      `json:"meeting_id"`
	StartTime   float64    `json:"start_time"`
	EndTime     float64    `json:"end_time"`
	SpeakerName string     `json:"speaker_name"`
	PersonID    *uuid.UUID `json:"person_id,omitempty"`
	TextContent string     `json:"text_content"`
}

// Alias maps a diarization label to a person within one meeting.
type Alias struct {
	MeetingID    int64     `json:"meeting_id"`
	SpeakerLabel string    `json:"speaker_label"`
	PersonID     uuid.UUID `json:"person_id"`
}

// Fingerprint is a person's stored voice embedding.
type Fingerprint struct {
	ID              int64     `json:"id"`
	PersonID        uuid.UUID `json:"person_id"`
	Embedding       []float32 `json:"embedding"`
	Confidence      float64   `json:"confidence"`
	SourceMeetingID int64     `json:"source_meeting_id,omitempty"`
}

// State is how a segment's identity was derived.
type State string

const (
	StateUnresolved    State = "unresolved"
	StateAliasResolved State = "alias_resolved"
	StateExplicit      State = "explicit"
)

// Identity is the resolved, display-ready identity of a segment.
type Identity struct {
	SegmentID  int64      `json:"segment_id"`
	StartTime  float64    `json:"start_time"`
	EndTime    float64    `json:"end_time"`
	Text       string     `json:"text"`
	Label      string     `json:"label"`
	PersonID   *uuid.UUID `json:"person_id,omitempty"`
	PersonName string     `json:"person_name,omitempty"`
	State      State      `json:"state"`
}

// DisplayName is the person's name when resolved, otherwise the raw label.
func (i Identity) DisplayName() string {
	if i.PersonName != "" {
		return i.PersonName
	}
	return i.Label
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
