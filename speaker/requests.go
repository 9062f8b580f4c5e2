package speaker

import (
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/validation"
)

// AssignAliasRequest maps a label in a meeting to a person. Exactly one of
// PersonID and NewName is set. Centroid, when given, seeds the person's
// fingerprint if they have none.
type AssignAliasRequest struct {
	MeetingID int64      `json:"meeting_id" validate:"gt=0"`
	Label     string     `json:"label" validate:"notblank,max=128"`
	PersonID  *uuid.UUID `json:"person_id,omitempty" validate:"required_without=NewName,excluded_with=NewName"`
	NewName   string     `json:"new_name,omitempty" validate:"max=200"`
	Centroid  []float32  `json:"centroid,omitempty"`
}

// AssignAliasResult reports what AssignAlias changed.
type AssignAliasResult struct {
	Alias            Alias  `json:"alias"`
	Person           Person `json:"person"`
	PersonCreated    bool   `json:"person_created"`
	SegmentsUpdated  int64  `json:"segments_updated"`
	FingerprintSaved bool   `json:"fingerprint_saved"`
}

// RelabelRequest renames the label on a set of segments.
type RelabelRequest struct {
	SegmentIDs []int64 `json:"segment_ids" validate:"min=1,dive,gt=0"`
	Label      string  `json:"label" validate:"notblank,max=128"`
}

// RelabelResult reports the label applied and the person it resolved to.
type RelabelResult struct {
	MeetingID       int64      `json:"meeting_id"`
	Label           string     `json:"label"`
	PersonID        *uuid.UUID `json:"person_id"`
	SegmentsUpdated int        `json:"segments_updated"`
}

// AssignPersonRequest assigns a person to a set of segments. Exactly one of
// PersonID and NewName is set.
type AssignPersonRequest struct {
	SegmentIDs []int64    `json:"segment_ids" validate:"min=1,dive,gt=0"`
	PersonID   *uuid.UUID `json:"person_id,omitempty" validate:"required_without=NewName,excluded_with=NewName"`
	NewName    string     `json:"new_name,omitempty" validate:"max=200"`
}

// AssignPersonResult reports the label chosen and which rule chose it.
type AssignPersonResult struct {
	MeetingID       int64  `json:"meeting_id"`
	Person          Person `json:"person"`
	PersonCreated   bool   `json:"person_created"`
	Label           string `json:"label"`
	Rule            string `json:"rule"`
	AliasCreated    bool   `json:"alias_created"`
	SegmentsUpdated int    `json:"segments_updated"`
}

// SplitRequest splits a segment's text in two.
type SplitRequest struct {
	SegmentID int64  `json:"segment_id" validate:"gt=0"`
	Text1     string `json:"text1" validate:"notblank"`
	Text2     string `json:"text2" validate:"notblank"`
}

// SplitResult holds both halves of a split segment.
type SplitResult struct {
	SplitTime float64 `json:"split_time"`
	First     Segment `json:"first"`
	Second    Segment `json:"second"`
}

// FingerprintRequest replaces or creates a person's fingerprint from either
// an explicit embedding or a label centroid in a meeting's hints.
type FingerprintRequest struct {
	PersonID   uuid.UUID `json:"person_id"`
	Embedding  []float32 `json:"embedding,omitempty"`
	MeetingID  int64     `json:"meeting_id,omitempty" validate:"gte=0"`
	Label      string    `json:"label,omitempty" validate:"max=128"`
	Confidence float64   `json:"confidence,omitempty" validate:"gte=0,lte=1"`
}

// FingerprintResult reports the stored fingerprint.
type FingerprintResult struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	Created     bool        `json:"created"`
}

// CreatePersonRequest creates a person.
type CreatePersonRequest struct {
	Name         string `json:"name" validate:"notblank,max=200"`
	IsCouncillor bool   `json:"is_councillor"`
}

// validatePersonRef rejects a blank new name standing in for a person.
func validatePersonRef(personID *uuid.UUID, newName string) error {
	v := validation.New()
	if personID != nil {
		v.RequiredUUID("person_id", *personID)
	} else {
		v.Required("new_name", newName)
	}
	return v.Err()
}

// sameMeeting returns the meeting shared by segs.
func sameMeeting(segs []Segment) (int64, error) {
	meetingID := segs[0].MeetingID
	for _, s := range segs[1:] {
		if s.MeetingID != meetingID {
			return 0, apperrors.Conflict("segments belong to more than one meeting").
				WithDetail("meeting_ids", []int64{meetingID, s.MeetingID})
		}
	}
	return meetingID, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func cleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
