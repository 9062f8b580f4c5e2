package speaker_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/speaker"
)

func TestAssignAlias_PropagatesToLabelSegments(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	segs := f.segments(t, m.ID, "SPEAKER_01", "SPEAKER_02", "SPEAKER_01")
	alice := f.person(t, "Alice")

	res, err := f.svc.AssignAlias(f.ctx, speaker.AssignAliasRequest{
		MeetingID: m.ID, Label: "SPEAKER_01", PersonID: ptr(alice.ID),
	})
	if err != nil {
		t.Fatalf("AssignAlias failed: %v", err)
	}
	if res.SegmentsUpdated != 2 {
		t.Errorf("expected 2 segments updated, got %d", res.SegmentsUpdated)
	}
	if res.PersonCreated {
		t.Error("expected existing person to be reused")
	}
	if res.FingerprintSaved {
		t.Error("expected no fingerprint without a centroid")
	}

	if !hasPerson(f.segment(t, segs[0].ID), alice.ID) || !hasPerson(f.segment(t, segs[2].ID), alice.ID) {
		t.Error("expected SPEAKER_01 segments to carry Alice")
	}
	if f.segment(t, segs[1].ID).PersonID != nil {
		t.Error("expected SPEAKER_02 segment to stay unassigned")
	}
	aliases := f.aliases(t, m.ID)
	if len(aliases) != 1 || aliases[0].SpeakerLabel != "SPEAKER_01" || aliases[0].PersonID != alice.ID {
		t.Errorf("unexpected aliases: %+v", aliases)
	}
}

func TestAssignAlias_NewName(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	f.segments(t, m.ID, "SPEAKER_03")

	res, err := f.svc.AssignAlias(f.ctx, speaker.AssignAliasRequest{
		MeetingID: m.ID, Label: "SPEAKER_03", NewName: "  Bob   Jones ",
	})
	if err != nil {
		t.Fatalf("AssignAlias failed: %v", err)
	}
	if !res.PersonCreated || res.Person.Name != "Bob Jones" {
		t.Errorf("expected new person 'Bob Jones', got %+v", res.Person)
	}
	if _, err := f.store.GetPerson(f.ctx, res.Person.ID); err != nil {
		t.Errorf("expected person to be stored, got %v", err)
	}
}

func TestAssignAlias_IsIdempotentAndLastWriteWins(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	f.segments(t, m.ID, "SPEAKER_01")
	alice, bob := f.person(t, "Alice"), f.person(t, "Bob")

	for _, p := range []*speaker.Person{alice, alice, bob} {
		if _, err := f.svc.AssignAlias(f.ctx, speaker.AssignAliasRequest{
			MeetingID: m.ID, Label: "SPEAKER_01", PersonID: ptr(p.ID),
		}); err != nil {
			t.Fatalf("AssignAlias failed: %v", err)
		}
	}
	aliases := f.aliases(t, m.ID)
	if len(aliases) != 1 || aliases[0].PersonID != bob.ID {
		t.Errorf("expected a single alias to Bob, got %+v", aliases)
	}
}

func TestAssignAlias_ReusesStoredLabelSpelling(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	segs := f.segments(t, m.ID, "SPEAKER_01", "Speaker_1", "SPEAKER_02")
	alice, bob := f.person(t, "Alice"), f.person(t, "Bob")
	if err := f.store.UpsertAlias(f.ctx, m.ID, "SPEAKER_01", alice.ID); err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.AssignAlias(f.ctx, speaker.AssignAliasRequest{
		MeetingID: m.ID, Label: "Speaker_1", PersonID: ptr(bob.ID),
	})
	if err != nil {
		t.Fatalf("AssignAlias failed: %v", err)
	}
	if res.Alias.SpeakerLabel != "SPEAKER_01" {
		t.Errorf("expected alias stored under SPEAKER_01, got %q", res.Alias.SpeakerLabel)
	}
	if res.SegmentsUpdated != 2 {
		t.Errorf("expected 2 segments updated, got %d", res.SegmentsUpdated)
	}
	aliases := f.aliases(t, m.ID)
	if len(aliases) != 1 || aliases[0].PersonID != bob.ID {
		t.Errorf("expected a single alias to Bob, got %+v", aliases)
	}
	for _, seg := range segs[:2] {
		if !hasPerson(f.segment(t, seg.ID), bob.ID) {
			t.Errorf("expected segment %d to carry Bob", seg.ID)
		}
	}
	if f.segment(t, segs[2].ID).PersonID != nil {
		t.Error("expected SPEAKER_02 segment to stay unassigned")
	}
}

func TestAssignAlias_Fingerprint(t *testing.T) {
	centroid := []float32{1, 0, 0, 0}

	t.Run("from request centroid", func(t *testing.T) {
		f := newFixture(t)
		m := f.meeting(t, "")
		alice := f.person(t, "Alice")
		res, err := f.svc.AssignAlias(f.ctx, speaker.AssignAliasRequest{
			MeetingID: m.ID, Label: "SPEAKER_01", PersonID: ptr(alice.ID), Centroid: centroid,
		})
		if err != nil {
			t.Fatalf("AssignAlias failed: %v", err)
		}
		if !res.FingerprintSaved {
			t.Fatal("expected fingerprint to be saved")
		}
		fp, _ := f.store.GetFingerprint(f.ctx, alice.ID)
		if fp == nil || fp.SourceMeetingID != m.ID || fp.Embedding[0] != 1 {
			t.Errorf("unexpected fingerprint: %+v", fp)
		}
	})

	t.Run("from meeting hints", func(t *testing.T) {
		f := newFixture(t)
		m := f.meeting(t, `{"centroids": {"Speaker_1": [0, 1, 0, 0]}}`)
		alice := f.person(t, "Alice")
		res, err := f.svc.AssignAlias(f.ctx, speaker.AssignAliasRequest{
			MeetingID: m.ID, Label: "SPEAKER_01", PersonID: ptr(alice.ID),
		})
		if err != nil {
			t.Fatalf("AssignAlias failed: %v", err)
		}
		if !res.FingerprintSaved {
			t.Fatal("expected fingerprint from hints to be saved")
		}
		fp, _ := f.store.GetFingerprint(f.ctx, alice.ID)
		if fp == nil || fp.Embedding[1] != 1 {
			t.Errorf("expected hints centroid, got %+v", fp)
		}
	})

	t.Run("existing fingerprint is kept", func(t *testing.T) {
		f := newFixture(t)
		m := f.meeting(t, "")
		alice := f.person(t, "Alice")
		if _, err := f.store.CreateFingerprint(f.ctx, alice.ID, []float32{0, 0, 1, 0}, 1, 0); err != nil {
			t.Fatalf("CreateFingerprint failed: %v", err)
		}
		res, err := f.svc.AssignAlias(f.ctx, speaker.AssignAliasRequest{
			MeetingID: m.ID, Label: "SPEAKER_01", PersonID: ptr(alice.ID), Centroid: centroid,
		})
		if err != nil {
			t.Fatalf("AssignAlias failed: %v", err)
		}
		if res.FingerprintSaved {
			t.Error("expected existing fingerprint not to be replaced")
		}
		fp, _ := f.store.GetFingerprint(f.ctx, alice.ID)
		if fp.Embedding[2] != 1 {
			t.Errorf("expected original embedding, got %v", fp.Embedding)
		}
	})

	t.Run("save failure does not fail the alias", func(t *testing.T) {
		f := newFixture(t)
		m := f.meeting(t, "")
		segs := f.segments(t, m.ID, "SPEAKER_01")
		alice := f.person(t, "Alice")
		f.store.Faults.CreateFingerprint = errors.New("disk full")

		res, err := f.svc.AssignAlias(f.ctx, speaker.AssignAliasRequest{
			MeetingID: m.ID, Label: "SPEAKER_01", PersonID: ptr(alice.ID), Centroid: centroid,
		})
		if err != nil {
			t.Fatalf("expected success despite fingerprint failure, got %v", err)
		}
		if res.FingerprintSaved {
			t.Error("expected FingerprintSaved=false")
		}
		if !hasPerson(f.segment(t, segs[0].ID), alice.ID) {
			t.Error("expected alias assignment to be committed")
		}
	})
}

func TestAssignAlias_Errors(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	segs := f.segments(t, m.ID, "SPEAKER_01")
	alice := f.person(t, "Alice")

	tests := []struct {
		name  string
		req   speaker.AssignAliasRequest
		check func(error) bool
	}{
		{"blank label", speaker.AssignAliasRequest{MeetingID: m.ID, Label: " ", PersonID: ptr(alice.ID)}, apperrors.IsValidation},
		{"no person", speaker.AssignAliasRequest{MeetingID: m.ID, Label: "SPEAKER_01"}, apperrors.IsValidation},
		{"both person and name", speaker.AssignAliasRequest{MeetingID: m.ID, Label: "SPEAKER_01", PersonID: ptr(alice.ID), NewName: "Al"}, apperrors.IsValidation},
		{"blank new name", speaker.AssignAliasRequest{MeetingID: m.ID, Label: "SPEAKER_01", NewName: "   "}, apperrors.IsValidation},
		{"bad centroid", speaker.AssignAliasRequest{MeetingID: m.ID, Label: "SPEAKER_01", PersonID: ptr(alice.ID), Centroid: []float32{1}}, apperrors.IsValidation},
		{"unknown meeting", speaker.AssignAliasRequest{MeetingID: 999, Label: "SPEAKER_01", PersonID: ptr(alice.ID)}, apperrors.IsNotFound},
		{"unknown person", speaker.AssignAliasRequest{MeetingID: m.ID, Label: "SPEAKER_01", PersonID: ptr(uuid.New())}, apperrors.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AssignAlias(f.ctx, tt.req)
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	if len(f.aliases(t, m.ID)) != 0 {
		t.Error("expected rejected requests to create no aliases")
	}
	if f.segment(t, segs[0].ID).PersonID != nil {
		t.Error("expected rejected requests to leave segments untouched")
	}
}

func TestAssignAlias_PersistenceFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	f.segments(t, m.ID, "SPEAKER_01")
	f.store.Faults.SetLabelIdentity = errors.New("write failed")

	_, err := f.svc.AssignAlias(f.ctx, speaker.AssignAliasRequest{
		MeetingID: m.ID, Label: "SPEAKER_01", NewName: "Carol",
	})
	if !apperrors.IsPersistence(err) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(f.aliases(t, m.ID)) != 0 {
		t.Error("expected alias upsert to be rolled back")
	}
}

func TestRelabelSegments(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	segs := f.segments(t, m.ID, "SPEAKER_01", "SPEAKER_02", "SPEAKER_03")
	alice := f.person(t, "Alice")
	if err := f.store.UpsertAlias(f.ctx, m.ID, "SPEAKER_01", alice.ID); err != nil {
		t.Fatal(err)
	}

	t.Run("to aliased label takes alias person", func(t *testing.T) {
		res, err := f.svc.RelabelSegments(f.ctx, speaker.RelabelRequest{
			SegmentIDs: []int64{segs[1].ID}, Label: "Speaker_1",
		})
		if err != nil {
			t.Fatalf("RelabelSegments failed: %v", err)
		}
		if res.PersonID == nil || *res.PersonID != alice.ID {
			t.Errorf("expected alias person via label variant, got %v", res.PersonID)
		}
		seg := f.segment(t, segs[1].ID)
		if seg.SpeakerName != "Speaker_1" || !hasPerson(seg, alice.ID) {
			t.Errorf("unexpected segment: %+v", seg)
		}
	})

	t.Run("to unaliased label clears person", func(t *testing.T) {
		bob := f.person(t, "Bob")
		if err := f.store.BulkSetSegmentIdentity(f.ctx, ids(segs), ptr(bob.ID), "SPEAKER_02"); err != nil {
			t.Fatal(err)
		}
		res, err := f.svc.RelabelSegments(f.ctx, speaker.RelabelRequest{
			SegmentIDs: ids(segs), Label: "SPEAKER_09",
		})
		if err != nil {
			t.Fatalf("RelabelSegments failed: %v", err)
		}
		if res.PersonID != nil || res.SegmentsUpdated != 3 {
			t.Errorf("unexpected result: %+v", res)
		}
		for _, s := range segs {
			seg := f.segment(t, s.ID)
			if seg.PersonID != nil || seg.SpeakerName != "SPEAKER_09" {
				t.Errorf("expected cleared person and new label, got %+v", seg)
			}
		}
	})

	if n := len(f.aliases(t, m.ID)); n != 1 {
		t.Errorf("expected relabel to create no aliases, got %d", n)
	}
}

func TestRelabelSegments_Errors(t *testing.T) {
	f := newFixture(t)
	m1, m2 := f.meeting(t, ""), f.meeting(t, "")
	a := f.segments(t, m1.ID, "SPEAKER_01")
	b := f.segments(t, m2.ID, "SPEAKER_01")

	_, err := f.svc.RelabelSegments(f.ctx, speaker.RelabelRequest{SegmentIDs: nil, Label: "X"})
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error for empty ids, got %v", err)
	}
	_, err = f.svc.RelabelSegments(f.ctx, speaker.RelabelRequest{SegmentIDs: []int64{a[0].ID, 404}, Label: "X"})
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	_, err = f.svc.RelabelSegments(f.ctx, speaker.RelabelRequest{SegmentIDs: []int64{a[0].ID, b[0].ID}, Label: "X"})
	if !apperrors.IsConflict(err) {
		t.Errorf("expected conflict for segments across meetings, got %v", err)
	}
	if f.segment(t, a[0].ID).SpeakerName != "SPEAKER_01" {
		t.Error("expected failed relabel to leave segments untouched")
	}
}

func TestAssignPersonSegments_ReusesExistingAlias(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	segs := f.segments(t, m.ID, "SPEAKER_02", "SPEAKER_05", "SPEAKER_07")
	p := f.person(t, "Pat")
	if err := f.store.UpsertAlias(f.ctx, m.ID, "SPEAKER_02", p.ID); err != nil {
		t.Fatal(err)
	}
	before := len(f.aliases(t, m.ID))

	res, err := f.svc.AssignPersonSegments(f.ctx, speaker.AssignPersonRequest{
		SegmentIDs: []int64{segs[1].ID, segs[2].ID}, PersonID: ptr(p.ID),
	})
	if err != nil {
		t.Fatalf("AssignPersonSegments failed: %v", err)
	}
	if res.Rule != speaker.RuleExistingAlias || res.AliasCreated {
		t.Errorf("expected existing alias rule without new alias, got %+v", res)
	}
	if after := len(f.aliases(t, m.ID)); after != before {
		t.Errorf("expected zero new aliases, got %d", after-before)
	}
	for _, s := range segs[1:] {
		seg := f.segment(t, s.ID)
		if seg.SpeakerName != "SPEAKER_02" || !hasPerson(seg, p.ID) {
			t.Errorf("expected SPEAKER_02 and Pat, got %+v", seg)
		}
	}
}

func TestAssignPersonSegments_ReusesExistingSegmentLabel(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	segs := f.segments(t, m.ID, "SPEAKER_04", "SPEAKER_06")
	p := f.person(t, "Pat")
	if err := f.store.BulkSetSegmentIdentity(f.ctx, []int64{segs[0].ID}, ptr(p.ID), "SPEAKER_04"); err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.AssignPersonSegments(f.ctx, speaker.AssignPersonRequest{
		SegmentIDs: []int64{segs[1].ID}, PersonID: ptr(p.ID),
	})
	if err != nil {
		t.Fatalf("AssignPersonSegments failed: %v", err)
	}
	if res.Rule != speaker.RuleExistingSegment || res.Label != "SPEAKER_04" {
		t.Errorf("expected existing segment rule with SPEAKER_04, got %+v", res)
	}
	if len(f.aliases(t, m.ID)) != 0 {
		t.Error("expected no alias from the segment rule")
	}
}

func TestAssignPersonSegments_DisplayNameCreatesAlias(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	segs := f.segments(t, m.ID, "SPEAKER_01", "SPEAKER_02")

	res, err := f.svc.AssignPersonSegments(f.ctx, speaker.AssignPersonRequest{
		SegmentIDs: ids(segs), NewName: "Dana Lee",
	})
	if err != nil {
		t.Fatalf("AssignPersonSegments failed: %v", err)
	}
	if res.Rule != speaker.RuleDisplayName || !res.AliasCreated || !res.PersonCreated {
		t.Errorf("unexpected result: %+v", res)
	}
	aliases := f.aliases(t, m.ID)
	if len(aliases) != 1 || aliases[0].SpeakerLabel != "Dana Lee" {
		t.Errorf("expected alias 'Dana Lee', got %+v", aliases)
	}

	// A second call reuses the alias created by the first.
	more := f.segments(t, m.ID, "SPEAKER_03")
	res, err = f.svc.AssignPersonSegments(f.ctx, speaker.AssignPersonRequest{
		SegmentIDs: ids(more), PersonID: ptr(res.Person.ID),
	})
	if err != nil {
		t.Fatalf("second AssignPersonSegments failed: %v", err)
	}
	if res.AliasCreated || len(f.aliases(t, m.ID)) != 1 {
		t.Error("expected no second alias for the same person")
	}
}

func TestAssignPersonSegments_NameTakenByAnotherPerson(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	segs := f.segments(t, m.ID, "SPEAKER_01")
	first := f.person(t, "Sam")
	second := f.person(t, "Sam")
	if err := f.store.UpsertAlias(f.ctx, m.ID, "Sam", first.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.AssignPersonSegments(f.ctx, speaker.AssignPersonRequest{
		SegmentIDs: ids(segs), PersonID: ptr(second.ID),
	})
	if !apperrors.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.segment(t, segs[0].ID).PersonID != nil {
		t.Error("expected segments untouched after conflict")
	}
}

func TestAssignPersonSegments_NumberedNameIsNotADiarizationLabel(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	segs := f.segments(t, m.ID, "SPEAKER_02", "SPEAKER_05")
	bob := f.person(t, "Bob")
	ward := f.person(t, "Ward 2 Councillor")
	if err := f.store.UpsertAlias(f.ctx, m.ID, "SPEAKER_02", bob.ID); err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.AssignPersonSegments(f.ctx, speaker.AssignPersonRequest{
		SegmentIDs: []int64{segs[1].ID}, PersonID: ptr(ward.ID),
	})
	if err != nil {
		t.Fatalf("AssignPersonSegments failed: %v", err)
	}
	if res.Rule != speaker.RuleDisplayName || res.Label != "Ward 2 Councillor" || !res.AliasCreated {
		t.Errorf("unexpected result: %+v", res)
	}
	if !hasPerson(f.segment(t, segs[1].ID), ward.ID) {
		t.Error("expected SPEAKER_05 segment to carry the councillor")
	}
	got := map[string]uuid.UUID{}
	for _, a := range f.aliases(t, m.ID) {
		got[a.SpeakerLabel] = a.PersonID
	}
	if got["SPEAKER_02"] != bob.ID {
		t.Errorf("expected SPEAKER_02 to stay aliased to Bob, got %v", got)
	}
	if got["Ward 2 Councillor"] != ward.ID {
		t.Errorf("expected alias for the display name, got %v", got)
	}
}

func TestAssignPersonSegments_RollsBackNewPerson(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	segs := f.segments(t, m.ID, "SPEAKER_01")
	f.store.Faults.BulkSetSegmentIdentity = errors.New("write failed")

	res, err := f.svc.AssignPersonSegments(f.ctx, speaker.AssignPersonRequest{
		SegmentIDs: ids(segs), NewName: "Eve",
	})
	if !apperrors.IsPersistence(err) || res != nil {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(f.aliases(t, m.ID)) != 0 {
		t.Error("expected alias creation to be rolled back")
	}
}

func TestSplitSegment(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	p := f.person(t, "Alice")
	seg := speaker.Segment{MeetingID: m.ID, StartTime: 10, EndTime: 20, SpeakerName: "SPEAKER_01", PersonID: ptr(p.ID), TextContent: "abcdefghij"}
	if err := f.store.CreateSegment(f.ctx, &seg); err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.SplitSegment(f.ctx, speaker.SplitRequest{SegmentID: seg.ID, Text1: "abcd", Text2: "efghij"})
	if err != nil {
		t.Fatalf("SplitSegment failed: %v", err)
	}
	if res.SplitTime != 14.0 {
		t.Errorf("expected split at 14.0, got %v", res.SplitTime)
	}

	first := f.segment(t, seg.ID)
	second := f.segment(t, res.Second.ID)
	if first.StartTime != 10 || first.EndTime != 14 || first.TextContent != "abcd" {
		t.Errorf("unexpected first half: %+v", first)
	}
	if second.StartTime != 14 || second.EndTime != 20 || second.TextContent != "efghij" {
		t.Errorf("unexpected second half: %+v", second)
	}
	if first.EndTime != second.StartTime {
		t.Error("expected no gap or overlap between halves")
	}
	if second.SpeakerName != "SPEAKER_01" || !hasPerson(second, p.ID) {
		t.Errorf("expected second half to inherit identity, got %+v", second)
	}

	all, _ := f.store.ListMeetingSegments(f.ctx, m.ID)
	if len(all) != 2 || all[0].ID != seg.ID {
		t.Errorf("expected two ordered segments, got %+v", all)
	}
}

func TestSplitSegment_Errors(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, "")
	segs := f.segments(t, m.ID, "SPEAKER_01")

	_, err := f.svc.SplitSegment(f.ctx, speaker.SplitRequest{SegmentID: segs[0].ID, Text1: "", Text2: "b"})
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	_, err = f.svc.SplitSegment(f.ctx, speaker.SplitRequest{SegmentID: 999, Text1: "a", Text2: "b"})
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	f.store.Faults.CreateSegment = errors.New("insert failed")
	_, err = f.svc.SplitSegment(f.ctx, speaker.SplitRequest{SegmentID: segs[0].ID, Text1: "a", Text2: "b"})
	if !apperrors.IsPersistence(err) {
		t.Errorf("expected persistence error, got %v", err)
	}
	if got := f.segment(t, segs[0].ID); got.EndTime != 10 {
		t.Errorf("expected bounds update to be rolled back, got %+v", got)
	}
}

func TestRefreshFingerprint(t *testing.T) {
	f := newFixture(t)
	m := f.meeting(t, `{"centroids": {"SPEAKER_02": [0, 0, 0, 1]}}`)
	p := f.person(t, "Alice")

	res, err := f.svc.RefreshFingerprint(f.ctx, speaker.FingerprintRequest{
		PersonID: p.ID, Embedding: []float32{1, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("RefreshFingerprint failed: %v", err)
	}
	if !res.Created || res.Fingerprint.Confidence != 1 {
		t.Errorf("expected created fingerprint, got %+v", res)
	}

	res, err = f.svc.RefreshFingerprint(f.ctx, speaker.FingerprintRequest{
		PersonID: p.ID, MeetingID: m.ID, Label: "speaker_2", Confidence: 0.7,
	})
	if err != nil {
		t.Fatalf("RefreshFingerprint from hints failed: %v", err)
	}
	if res.Created {
		t.Error("expected overwrite of the existing fingerprint")
	}
	fp, _ := f.store.GetFingerprint(f.ctx, p.ID)
	if fp.Embedding[3] != 1 || fp.Confidence != 0.7 || fp.SourceMeetingID != m.ID {
		t.Errorf("unexpected fingerprint after overwrite: %+v", fp)
	}

	_, err = f.svc.RefreshFingerprint(f.ctx, speaker.FingerprintRequest{PersonID: p.ID, MeetingID: m.ID, Label: "SPEAKER_09"})
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected not found for missing centroid, got %v", err)
	}
	_, err = f.svc.RefreshFingerprint(f.ctx, speaker.FingerprintRequest{PersonID: p.ID})
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error without an embedding source, got %v", err)
	}
	_, err = f.svc.RefreshFingerprint(f.ctx, speaker.FingerprintRequest{PersonID: uuid.New(), Embedding: []float32{1, 0, 0, 0}})
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected not found for unknown person, got %v", err)
	}
}

func TestCreatePerson(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.CreatePerson(f.ctx, speaker.CreatePersonRequest{Name: " Mayor  Smith ", IsCouncillor: true})
	if err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}
	if p.Name != "Mayor Smith" || !p.IsCouncillor {
		t.Errorf("unexpected person: %+v", p)
	}
	if _, err := f.svc.CreatePerson(f.ctx, speaker.CreatePersonRequest{Name: "  "}); !apperrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
