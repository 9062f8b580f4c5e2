package speaker

import (
	"context"

	"github.com/google/uuid"

	"github.com/kbukum/speakerid/diarization"
)

// Resolver derives segment identities. It never writes.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver over store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve derives the identity of a single segment.
func (r *Resolver) Resolve(ctx context.Context, seg Segment) (Identity, error) {
	id := identityOf(seg)

	if seg.PersonID != nil {
		p, err := r.store.GetPerson(ctx, *seg.PersonID)
		if err != nil {
			return Identity{}, err
		}
		id.PersonName = p.Name
		return id, nil
	}

	p, _, err := lookupAlias(ctx, r.store, seg.MeetingID, seg.SpeakerName)
	if err != nil {
		return Identity{}, err
	}
	if p != nil {
		id.PersonID = uuidPtr(p.ID)
		id.PersonName = p.Name
		id.State = StateAliasResolved
	}
	return id, nil
}

// ResolveMeeting derives identities for every segment of a meeting, in start
// order, with one alias listing and one person listing.
func (r *Resolver) ResolveMeeting(ctx context.Context, meetingID int64) ([]Identity, error) {
	if _, err := r.store.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}
	segments, err := r.store.ListMeetingSegments(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	aliases, err := r.store.ListAliases(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	byLabel := make(map[string]uuid.UUID, len(aliases))
	for _, a := range aliases {
		byLabel[a.SpeakerLabel] = a.PersonID
	}

	out := make([]Identity, len(segments))
	var personIDs []uuid.UUID
	for i, seg := range segments {
		id := identityOf(seg)
		if seg.PersonID == nil {
			for _, c := range diarization.LabelCandidates(seg.SpeakerName) {
				if pid, ok := byLabel[c]; ok {
					id.PersonID = uuidPtr(pid)
					id.State = StateAliasResolved
					break
				}
			}
		}
		if id.PersonID != nil {
			personIDs = append(personIDs, *id.PersonID)
		}
		out[i] = id
	}

	if len(personIDs) == 0 {
		return out, nil
	}
	people, err := r.store.ListPeople(ctx, uniqueUUIDs(personIDs))
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(people))
	for _, p := range people {
		names[p.ID] = p.Name
	}
	for i := range out {
		if out[i].PersonID != nil {
			out[i].PersonName = names[*out[i].PersonID]
		}
	}
	return out, nil
}

func identityOf(seg Segment) Identity {
	id := Identity{
		SegmentID: seg.ID,
		StartTime: seg.StartTime,
		EndTime:   seg.EndTime,
		Text:      seg.TextContent,
		Label:     seg.SpeakerName,
		State:     StateUnresolved,
	}
	if seg.PersonID != nil {
		id.PersonID = uuidPtr(*seg.PersonID)
		id.State = StateExplicit
	}
	return id
}

// lookupAlias probes the label's spelling variants in order and returns the
// first aliased person together with the stored label that matched.
func lookupAlias(ctx context.Context, aliases AliasRepository, meetingID int64, label string) (*Person, string, error) {
	for _, c := range diarization.LabelCandidates(label) {
		p, err := aliases.GetAlias(ctx, meetingID, c)
		if err != nil {
			return nil, "", err
		}
		if p != nil {
			return p, c, nil
		}
	}
	return nil, "", nil
}

func uniqueUUIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
