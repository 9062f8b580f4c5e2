package speaker

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrFingerprintExists is returned by CreateFingerprint when the person
// already has a fingerprint.
var ErrFingerprintExists = errors.New("speaker: fingerprint already exists")

// AliasRepository stores meeting-scoped label aliases. Label arguments are
// matched exactly; callers probe spelling variants themselves.
type AliasRepository interface {
	// GetAlias returns the aliased person, or nil when no alias exists.
	GetAlias(ctx context.Context, meetingID int64, label string) (*Person, error)
	// UpsertAlias points (meetingID, label) at personID. Last write wins.
	UpsertAlias(ctx context.Context, meetingID int64, label string, personID uuid.UUID) error
	// FindAliasByPerson returns one alias of personID in the meeting, or nil.
	FindAliasByPerson(ctx context.Context, meetingID int64, personID uuid.UUID) (*Alias, error)
	// ListAliases returns every alias in the meeting ordered by label.
	ListAliases(ctx context.Context, meetingID int64) ([]Alias, error)
}

// FingerprintRepository stores one voice fingerprint per person.
type FingerprintRepository interface {
	// GetFingerprint returns the person's fingerprint, or nil.
	GetFingerprint(ctx context.Context, personID uuid.UUID) (*Fingerprint, error)
	// CreateFingerprint stores a new fingerprint. It returns
	// ErrFingerprintExists and changes nothing when one is already stored.
	CreateFingerprint(ctx context.Context, personID uuid.UUID, embedding []float32, confidence float64, sourceMeetingID int64) (*Fingerprint, error)
	// UpdateFingerprint overwrites an existing fingerprint.
	UpdateFingerprint(ctx context.Context, fingerprintID int64, embedding []float32, confidence float64, sourceMeetingID int64) (*Fingerprint, error)
	// ListFingerprints returns every stored fingerprint.
	ListFingerprints(ctx context.Context) ([]Fingerprint, error)
}

// SegmentRepository stores transcript segments.
type SegmentRepository interface {
	GetSegment(ctx context.Context, id int64) (*Segment, error)
	// ListSegments returns the segments with the given ids. A missing id is
	// a not-found error.
	ListSegments(ctx context.Context, ids []int64) ([]Segment, error)
	// ListMeetingSegments returns a meeting's segments ordered by start time.
	ListMeetingSegments(ctx context.Context, meetingID int64) ([]Segment, error)
	// FindSegmentByPerson returns the earliest segment in the meeting
	// explicitly assigned to personID, or nil.
	FindSegmentByPerson(ctx context.Context, meetingID int64, personID uuid.UUID) (*Segment, error)
	// BulkSetSegmentIdentity sets label and person on every listed segment.
	// A nil personID clears the person.
	BulkSetSegmentIdentity(ctx context.Context, ids []int64, personID *uuid.UUID, label string) error
	// SetLabelIdentity sets personID on every segment of the meeting whose
	// speaker name equals label, returning the number of segments changed.
	SetLabelIdentity(ctx context.Context, meetingID int64, label string, personID uuid.UUID) (int64, error)
	UpdateSegmentBounds(ctx context.Context, id int64, start, end float64, text string) error
	// CreateSegment inserts seg and sets its ID.
	CreateSegment(ctx context.Context, seg *Segment) error
}

// PersonRepository stores people.
type PersonRepository interface {
	GetPerson(ctx context.Context, id uuid.UUID) (*Person, error)
	// LockPerson is GetPerson that also holds the person's row until the
	// surrounding transaction ends, where the store supports row locks.
	LockPerson(ctx context.Context, id uuid.UUID) (*Person, error)
	// ListPeople returns the people that exist among ids, in any order.
	ListPeople(ctx context.Context, ids []uuid.UUID) ([]Person, error)
	CreatePerson(ctx context.Context, name string, isCouncillor bool) (*Person, error)
}

// MeetingRepository reads and, for ingestion, creates meetings.
type MeetingRepository interface {
	GetMeeting(ctx context.Context, id int64) (*Meeting, error)
	// CreateMeeting inserts m and sets its ID.
	CreateMeeting(ctx context.Context, m *Meeting) error
}

// Store is the full persistence contract.
type Store interface {
	AliasRepository
	FingerprintRepository
	SegmentRepository
	PersonRepository
	MeetingRepository

	// WithinTx runs fn in a transaction. Every write made through the Store
	// passed to fn is committed when fn returns nil and discarded otherwise.
	// Calling WithinTx on that Store runs fn in the same transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
