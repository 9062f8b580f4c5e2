package sqlstore

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/speakerid/speaker"
)

type personRow struct {
	ID           uuid.UUID `gorm:"column:id;primaryKey"`
	Name         string    `gorm:"column:name"`
	IsCouncillor bool      `gorm:"column:is_councillor"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (personRow) TableName() string { return "people" }

// BeforeCreate generates a UUID if not already set.
func (r *personRow) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r personRow) toPerson() *speaker.Person {
	return &speaker.Person{ID: r.ID, Name: r.Name, IsCouncillor: r.IsCouncillor}
}

type meetingRow struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Title            string    `gorm:"column:title"`
	DiarizationHints *string   `gorm:"column:diarization_hints"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (meetingRow) TableName() string { return "meetings" }

func (r meetingRow) toMeeting() *speaker.Meeting {
	m := &speaker.Meeting{ID: r.ID, Title: r.Title}
	if r.DiarizationHints != nil {
		m.DiarizationHints = json.RawMessage(*r.DiarizationHints)
	}
	return m
}

type segmentRow struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	MeetingID   int64      `gorm:"column:meeting_id"`
	StartTime   float64    `gorm:"column:start_time"`
	EndTime     float64    `gorm:"column:end_time"`
	SpeakerName string     `gorm:"column:speaker_name"`
	PersonID    *uuid.UUID `gorm:"column:person_id"`
	TextContent string     `gorm:"column:text_content"`
}

func (segmentRow) TableName() string { return "transcript_segments" }

func (r segmentRow) toSegment() speaker.Segment {
	return speaker.Segment{
		ID:          r.ID,
		MeetingID:   r.MeetingID,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		SpeakerName: r.SpeakerName,
		PersonID:    r.PersonID,
		TextContent: r.TextContent,
	}
}

func newSegmentRow(seg *speaker.Segment) segmentRow {
	return segmentRow{
		MeetingID:   seg.MeetingID,
		StartTime:   seg.StartTime,
		EndTime:     seg.EndTime,
		SpeakerName: seg.SpeakerName,
		PersonID:    seg.PersonID,
		TextContent: seg.TextContent,
	}
}

type aliasRow struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	MeetingID    int64     `gorm:"column:meeting_id"`
	SpeakerLabel string    `gorm:"column:speaker_label"`
	PersonID     uuid.UUID `gorm:"column:person_id"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (aliasRow) TableName() string { return "speaker_aliases" }

func (r aliasRow) toAlias() speaker.Alias {
	return speaker.Alias{MeetingID: r.MeetingID, SpeakerLabel: r.SpeakerLabel, PersonID: r.PersonID}
}

type fingerprintRow struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PersonID        uuid.UUID `gorm:"column:person_id"`
	Embedding       embedding `gorm:"column:embedding"`
	Confidence      float64   `gorm:"column:confidence"`
	SourceMeetingID *int64    `gorm:"column:source_meeting_id"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (fingerprintRow) TableName() string { return "voice_fingerprints" }

func (r fingerprintRow) toFingerprint() *speaker.Fingerprint {
	fp := &speaker.Fingerprint{
		ID:         r.ID,
		PersonID:   r.PersonID,
		Embedding:  []float32(r.Embedding),
		Confidence: r.Confidence,
	}
	if r.SourceMeetingID != nil {
		fp.SourceMeetingID = *r.SourceMeetingID
	}
	return fp
}

// nullableID maps the zero meeting id to NULL.
func nullableID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

// embedding is stored as a JSON array in a TEXT column on both drivers.
type embedding []float32

func (e embedding) Value() (driver.Value, error) {
	if e == nil {
		e = embedding{}
	}
	b, err := json.Marshal([]float32(e))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (e *embedding) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*e = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("embedding: unsupported column type %T", src)
	}
	var out []float32
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	*e = out
	return nil
}
