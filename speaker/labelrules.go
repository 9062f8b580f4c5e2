package speaker

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/speakerid/errors"
)

// Label rule names reported in AssignPersonResult.Rule.
const (
	RuleExistingAlias   = "existing_alias"
	RuleExistingSegment = "existing_segment"
	RuleDisplayName     = "display_name"
)

// labelChoice is the label a rule picked for a person in a meeting.
type labelChoice struct {
	label       string
	createAlias bool
}

// labelRule proposes the label to use for person in a meeting. ok is false
// when the rule does not apply.
type labelRule struct {
	name    string
	resolve func(ctx context.Context, tx Store, meetingID int64, person *Person) (choice labelChoice, ok bool, err error)
}

// personLabelRules are tried in order; the first that applies wins. The
// order keeps a person on the label they already use in the meeting.
var personLabelRules = []labelRule{
	{name: RuleExistingAlias, resolve: labelFromAlias},
	{name: RuleExistingSegment, resolve: labelFromSegment},
	{name: RuleDisplayName, resolve: labelFromName},
}

func labelFromAlias(ctx context.Context, tx Store, meetingID int64, person *Person) (labelChoice, bool, error) {
	a, err := tx.FindAliasByPerson(ctx, meetingID, person.ID)
	if err != nil || a == nil {
		return labelChoice{}, false, err
	}
	return labelChoice{label: a.SpeakerLabel}, true, nil
}

func labelFromSegment(ctx context.Context, tx Store, meetingID int64, person *Person) (labelChoice, bool, error) {
	seg, err := tx.FindSegmentByPerson(ctx, meetingID, person.ID)
	if err != nil || seg == nil {
		return labelChoice{}, false, err
	}
	return labelChoice{label: seg.SpeakerName}, true, nil
}

// labelFromName uses the display name as a new label. A name already aliased
// to someone else in the meeting is a conflict rather than a takeover. Only
// the exact name is checked: a display name is not a diarization label, so
// "Ward 2" must not collide with SPEAKER_02.
func labelFromName(ctx context.Context, tx Store, meetingID int64, person *Person) (labelChoice, bool, error) {
	owner, err := tx.GetAlias(ctx, meetingID, person.Name)
	if err != nil {
		return labelChoice{}, false, err
	}
	if owner != nil && owner.ID != person.ID {
		return labelChoice{}, false, apperrors.Conflict("label is already aliased to another person in this meeting").
			WithDetail("label", person.Name).
			WithDetail("person_id", owner.ID.String())
	}
	return labelChoice{label: person.Name, createAlias: owner == nil}, true, nil
}

// chooseLabel runs personLabelRules and returns the winning rule's choice.
func chooseLabel(ctx context.Context, tx Store, meetingID int64, person *Person) (string, labelChoice, error) {
	for _, r := range personLabelRules {
		choice, ok, err := r.resolve(ctx, tx, meetingID, person)
		if err != nil {
			return "", labelChoice{}, err
		}
		if ok {
			return r.name, choice, nil
		}
	}
	return "", labelChoice{}, apperrors.Internal(errors.New("no label rule applied"))
}
