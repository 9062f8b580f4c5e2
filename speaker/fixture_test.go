package speaker_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/kbukum/speakerid/similarity"
	"github.com/kbukum/speakerid/speaker"
	"github.com/kbukum/speakerid/store/memstore"
)

const testDimension = 4

type fixture struct {
	ctx     context.Context
	store   *memstore.Store
	matcher *similarity.Matcher
	svc     *speaker.Service
	res     *speaker.Resolver
}

func newFixture(t *testing.T, opts ...speaker.Option) *fixture {
	t.Helper()
	store := memstore.New()
	matcher := similarity.NewMatcher(similarity.Config{Dimension: testDimension})
	return &fixture{
		ctx:     context.Background(),
		store:   store,
		matcher: matcher,
		svc:     speaker.NewService(store, matcher, opts...),
		res:     speaker.NewResolver(store),
	}
}

func (f *fixture) meeting(t *testing.T, hints string) *speaker.Meeting {
	t.Helper()
	m := &speaker.Meeting{Title: "Council"}
	if hints != "" {
		m.DiarizationHints = []byte(hints)
	}
	if err := f.store.CreateMeeting(f.ctx, m); err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	return m
}

// segments adds one 10s segment per label, back to back from t=0.
func (f *fixture) segments(t *testing.T, meetingID int64, labels ...string) []speaker.Segment {
	t.Helper()
	out := make([]speaker.Segment, len(labels))
	for i, l := range labels {
		seg := speaker.Segment{
			MeetingID:   meetingID,
			StartTime:   float64(i * 10),
			EndTime:     float64(i*10 + 10),
			SpeakerName: l,
			TextContent: "text",
		}
		if err := f.store.CreateSegment(f.ctx, &seg); err != nil {
			t.Fatalf("CreateSegment failed: %v", err)
		}
		out[i] = seg
	}
	return out
}

func (f *fixture) person(t *testing.T, name string) *speaker.Person {
	t.Helper()
	p, err := f.store.CreatePerson(f.ctx, name, false)
	if err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}
	return p
}

func (f *fixture) segment(t *testing.T, id int64) *speaker.Segment {
	t.Helper()
	seg, err := f.store.GetSegment(f.ctx, id)
	if err != nil {
		t.Fatalf("GetSegment(%d) failed: %v", id, err)
	}
	return seg
}

func (f *fixture) aliases(t *testing.T, meetingID int64) []speaker.Alias {
	t.Helper()
	a, err := f.store.ListAliases(f.ctx, meetingID)
	if err != nil {
		t.Fatalf("ListAliases failed: %v", err)
	}
	return a
}

func ids(segs []speaker.Segment) []int64 {
	out := make([]int64, len(segs))
	for i, s := range segs {
		out[i] = s.ID
	}
	return out
}

func ptr(id uuid.UUID) *uuid.UUID {
	return &id
}

func hasPerson(seg *speaker.Segment, id uuid.UUID) bool {
	return seg.PersonID != nil && *seg.PersonID == id
}
