// Package storetest is a conformance suite for speaker.Store
// implementations.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/speaker"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) speaker.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s speaker.Store)
	}{
		{"People", testPeople},
		{"MeetingsAndSegments", testMeetingsAndSegments},
		{"Aliases", testAliases},
		{"Fingerprints", testFingerprints},
		{"SegmentIdentity", testSegmentIdentity},
		{"TransactionCommit", testTxCommit},
		{"TransactionRollback", testTxRollback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func seedMeeting(t *testing.T, s speaker.Store, labels ...string) (*speaker.Meeting, []speaker.Segment) {
	t.Helper()
	ctx := context.Background()
	m := &speaker.Meeting{Title: "Regular council meeting", DiarizationHints: []byte(`{"centroids":{"SPEAKER_01":[1,0]}}`)}
	must(t, s.CreateMeeting(ctx, m))
	segs := make([]speaker.Segment, len(labels))
	for i, l := range labels {
		segs[i] = speaker.Segment{
			MeetingID:   m.ID,
			StartTime:   float64(i * 5),
			EndTime:     float64(i*5 + 5),
			SpeakerName: l,
			TextContent: "hello",
		}
		must(t, s.CreateSegment(ctx, &segs[i]))
	}
	return m, segs
}

func testPeople(t *testing.T, s speaker.Store) {
	ctx := context.Background()
	alice, err := s.CreatePerson(ctx, "Alice", true)
	must(t, err)
	if alice.ID == uuid.Nil || alice.Name != "Alice" || !alice.IsCouncillor {
		t.Fatalf("unexpected person: %+v", alice)
	}
	bob, err := s.CreatePerson(ctx, "Bob", false)
	must(t, err)

	got, err := s.GetPerson(ctx, alice.ID)
	must(t, err)
	if got.Name != "Alice" {
		t.Errorf("expected Alice, got %q", got.Name)
	}
	locked, err := s.LockPerson(ctx, bob.ID)
	must(t, err)
	if locked.ID != bob.ID {
		t.Errorf("expected Bob, got %+v", locked)
	}

	people, err := s.ListPeople(ctx, []uuid.UUID{bob.ID, alice.ID, uuid.New()})
	must(t, err)
	if len(people) != 2 {
		t.Errorf("expected 2 people, got %d", len(people))
	}

	if _, err := s.GetPerson(ctx, uuid.New()); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := s.LockPerson(ctx, uuid.New()); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found on lock, got %v", err)
	}
}

func testMeetingsAndSegments(t *testing.T, s speaker.Store) {
	ctx := context.Background()
	m, segs := seedMeeting(t, s, "SPEAKER_00", "SPEAKER_01")
	if m.ID <= 0 || segs[0].ID <= 0 || segs[1].ID == segs[0].ID {
		t.Fatalf("expected assigned ids, got meeting %d segments %d/%d", m.ID, segs[0].ID, segs[1].ID)
	}

	got, err := s.GetMeeting(ctx, m.ID)
	must(t, err)
	if got.Title != m.Title || string(got.DiarizationHints) != string(m.DiarizationHints) {
		t.Errorf("expected meeting round trip, got %+v", got)
	}
	if _, err := s.GetMeeting(ctx, m.ID+100); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	// Inserted out of order; listing is by start time.
	late := speaker.Segment{MeetingID: m.ID, StartTime: 20, EndTime: 25, SpeakerName: "SPEAKER_02"}
	mid := speaker.Segment{MeetingID: m.ID, StartTime: 12, EndTime: 18, SpeakerName: "SPEAKER_00"}
	must(t, s.CreateSegment(ctx, &late))
	must(t, s.CreateSegment(ctx, &mid))
	list, err := s.ListMeetingSegments(ctx, m.ID)
	must(t, err)
	if len(list) != 4 || list[0].ID != segs[0].ID || list[2].ID != mid.ID || list[3].ID != late.ID {
		t.Errorf("expected segments ordered by start time, got %+v", list)
	}

	one, err := s.GetSegment(ctx, segs[1].ID)
	must(t, err)
	if one.SpeakerName != "SPEAKER_01" || one.EndTime != 10 || one.PersonID != nil {
		t.Errorf("unexpected segment: %+v", one)
	}
	if _, err := s.GetSegment(ctx, 9999); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := s.ListSegments(ctx, []int64{segs[0].ID, 9999}); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found for missing id, got %v", err)
	}
	picked, err := s.ListSegments(ctx, []int64{segs[1].ID, segs[0].ID})
	must(t, err)
	if len(picked) != 2 {
		t.Errorf("expected 2 segments, got %d", len(picked))
	}

	must(t, s.UpdateSegmentBounds(ctx, segs[0].ID, 0, 2.5, "hel"))
	one, err = s.GetSegment(ctx, segs[0].ID)
	must(t, err)
	if one.EndTime != 2.5 || one.TextContent != "hel" {
		t.Errorf("expected updated bounds, got %+v", one)
	}
	if err := s.UpdateSegmentBounds(ctx, 9999, 0, 1, ""); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	orphan := speaker.Segment{MeetingID: m.ID + 100, StartTime: 0, EndTime: 1, SpeakerName: "X"}
	if err := s.CreateSegment(ctx, &orphan); err == nil {
		t.Error("expected error for segment of unknown meeting")
	}
}

func testAliases(t *testing.T, s speaker.Store) {
	ctx := context.Background()
	m, _ := seedMeeting(t, s)
	alice, err := s.CreatePerson(ctx, "Alice", false)
	must(t, err)
	bob, err := s.CreatePerson(ctx, "Bob", false)
	must(t, err)

	if p, err := s.GetAlias(ctx, m.ID, "SPEAKER_01"); err != nil || p != nil {
		t.Fatalf("expected no alias, got %+v (%v)", p, err)
	}
	must(t, s.UpsertAlias(ctx, m.ID, "SPEAKER_01", alice.ID))
	must(t, s.UpsertAlias(ctx, m.ID, "Chair", bob.ID))
	must(t, s.UpsertAlias(ctx, m.ID, "SPEAKER_01", bob.ID))

	p, err := s.GetAlias(ctx, m.ID, "SPEAKER_01")
	must(t, err)
	if p == nil || p.ID != bob.ID {
		t.Errorf("expected upsert to replace the person, got %+v", p)
	}

	aliases, err := s.ListAliases(ctx, m.ID)
	must(t, err)
	if len(aliases) != 2 || aliases[0].SpeakerLabel != "Chair" || aliases[1].SpeakerLabel != "SPEAKER_01" {
		t.Errorf("expected two aliases ordered by label, got %+v", aliases)
	}

	a, err := s.FindAliasByPerson(ctx, m.ID, bob.ID)
	must(t, err)
	if a == nil || a.SpeakerLabel != "Chair" {
		t.Errorf("expected first alias by label, got %+v", a)
	}
	if a, err := s.FindAliasByPerson(ctx, m.ID, alice.ID); err != nil || a != nil {
		t.Errorf("expected no alias for Alice, got %+v (%v)", a, err)
	}
}

func testFingerprints(t *testing.T, s speaker.Store) {
	ctx := context.Background()
	m, _ := seedMeeting(t, s)
	alice, err := s.CreatePerson(ctx, "Alice", false)
	must(t, err)

	if fp, err := s.GetFingerprint(ctx, alice.ID); err != nil || fp != nil {
		t.Fatalf("expected no fingerprint, got %+v (%v)", fp, err)
	}
	fp, err := s.CreateFingerprint(ctx, alice.ID, []float32{0.5, -0.25}, 0.8, m.ID)
	must(t, err)
	if fp.ID <= 0 || fp.Confidence != 0.8 || fp.SourceMeetingID != m.ID {
		t.Errorf("unexpected fingerprint: %+v", fp)
	}

	if _, err := s.CreateFingerprint(ctx, alice.ID, []float32{1, 1}, 1, 0); !errors.Is(err, speaker.ErrFingerprintExists) {
		t.Errorf("expected ErrFingerprintExists, got %v", err)
	}

	updated, err := s.UpdateFingerprint(ctx, fp.ID, []float32{0, 1}, 1, 0)
	must(t, err)
	if updated.Embedding[1] != 1 || updated.Confidence != 1 {
		t.Errorf("expected updated fingerprint, got %+v", updated)
	}
	got, err := s.GetFingerprint(ctx, alice.ID)
	must(t, err)
	if len(got.Embedding) != 2 || got.Embedding[0] != 0 || got.Embedding[1] != 1 {
		t.Errorf("expected stored embedding [0 1], got %v", got.Embedding)
	}
	if _, err := s.UpdateFingerprint(ctx, fp.ID+100, []float32{1}, 1, 0); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	bob, err := s.CreatePerson(ctx, "Bob", false)
	must(t, err)
	_, err = s.CreateFingerprint(ctx, bob.ID, []float32{1, 0}, 1, 0)
	must(t, err)
	all, err := s.ListFingerprints(ctx)
	must(t, err)
	if len(all) != 2 || all[0].PersonID != alice.ID || all[1].PersonID != bob.ID {
		t.Errorf("expected fingerprints in creation order, got %+v", all)
	}
}

func testSegmentIdentity(t *testing.T, s speaker.Store) {
	ctx := context.Background()
	m, segs := seedMeeting(t, s, "SPEAKER_01", "SPEAKER_02", "SPEAKER_01")
	other, otherSegs := seedMeeting(t, s, "SPEAKER_01")
	alice, err := s.CreatePerson(ctx, "Alice", false)
	must(t, err)

	n, err := s.SetLabelIdentity(ctx, m.ID, "SPEAKER_01", alice.ID)
	must(t, err)
	if n != 2 {
		t.Errorf("expected 2 segments updated, got %d", n)
	}
	if seg, _ := s.GetSegment(ctx, otherSegs[0].ID); seg.PersonID != nil {
		t.Errorf("expected meeting %d to be untouched", other.ID)
	}

	found, err := s.FindSegmentByPerson(ctx, m.ID, alice.ID)
	must(t, err)
	if found == nil || found.ID != segs[0].ID {
		t.Errorf("expected earliest segment, got %+v", found)
	}

	must(t, s.BulkSetSegmentIdentity(ctx, []int64{segs[1].ID}, &alice.ID, "Alice"))
	seg, err := s.GetSegment(ctx, segs[1].ID)
	must(t, err)
	if seg.SpeakerName != "Alice" || seg.PersonID == nil || *seg.PersonID != alice.ID {
		t.Errorf("expected relabelled segment, got %+v", seg)
	}

	must(t, s.BulkSetSegmentIdentity(ctx, []int64{segs[0].ID, segs[2].ID}, nil, "SPEAKER_09"))
	for _, id := range []int64{segs[0].ID, segs[2].ID} {
		seg, err := s.GetSegment(ctx, id)
		must(t, err)
		if seg.PersonID != nil || seg.SpeakerName != "SPEAKER_09" {
			t.Errorf("expected cleared person, got %+v", seg)
		}
	}
	if found, err := s.FindSegmentByPerson(ctx, m.ID, uuid.New()); err != nil || found != nil {
		t.Errorf("expected nil for unknown person, got %+v (%v)", found, err)
	}
}

func testTxCommit(t *testing.T, s speaker.Store) {
	ctx := context.Background()
	m, segs := seedMeeting(t, s, "SPEAKER_01")
	var pid uuid.UUID
	err := s.WithinTx(ctx, func(tx speaker.Store) error {
		p, err := tx.CreatePerson(ctx, "Alice", false)
		if err != nil {
			return err
		}
		pid = p.ID
		if err := tx.UpsertAlias(ctx, m.ID, "SPEAKER_01", p.ID); err != nil {
			return err
		}
		// Nested calls join the outer transaction.
		return tx.WithinTx(ctx, func(inner speaker.Store) error {
			_, err := inner.SetLabelIdentity(ctx, m.ID, "SPEAKER_01", p.ID)
			return err
		})
	})
	must(t, err)

	seg, err := s.GetSegment(ctx, segs[0].ID)
	must(t, err)
	if seg.PersonID == nil || *seg.PersonID != pid {
		t.Errorf("expected committed person on segment, got %+v", seg)
	}
	if p, _ := s.GetAlias(ctx, m.ID, "SPEAKER_01"); p == nil || p.ID != pid {
		t.Errorf("expected committed alias, got %+v", p)
	}
}

func testTxRollback(t *testing.T, s speaker.Store) {
	ctx := context.Background()
	m, segs := seedMeeting(t, s, "SPEAKER_01")
	boom := errors.New("boom")
	var pid uuid.UUID
	err := s.WithinTx(ctx, func(tx speaker.Store) error {
		p, err := tx.CreatePerson(ctx, "Ghost", false)
		if err != nil {
			return err
		}
		pid = p.ID
		if err := tx.UpsertAlias(ctx, m.ID, "SPEAKER_01", p.ID); err != nil {
			return err
		}
		if _, err := tx.SetLabelIdentity(ctx, m.ID, "SPEAKER_01", p.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.GetPerson(ctx, pid); !apperrors.IsNotFound(err) {
		t.Errorf("expected person to be rolled back, got %v", err)
	}
	if p, err := s.GetAlias(ctx, m.ID, "SPEAKER_01"); err != nil || p != nil {
		t.Errorf("expected alias to be rolled back, got %+v (%v)", p, err)
	}
	seg, err := s.GetSegment(ctx, segs[0].ID)
	must(t, err)
	if seg.PersonID != nil {
		t.Errorf("expected segment identity to be rolled back, got %v", seg.PersonID)
	}
}
