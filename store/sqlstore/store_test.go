package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kbukum/speakerid/database"
	dbtest "github.com/kbukum/speakerid/database/testutil"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/similarity"
	"github.com/kbukum/speakerid/speaker"
	"github.com/kbukum/speakerid/store/storetest"
	"github.com/kbukum/speakerid/testutil"
)

func newTestStore(t *testing.T) (*Store, *dbtest.Component) {
	t.Helper()
	src, err := Migrations(database.DriverSQLite)
	if err != nil {
		t.Fatal(err)
	}
	comp := dbtest.NewComponent().WithMigrations(src)
	testutil.T(t).Setup(comp)
	return New(comp.DB(), logger.Nop()), comp
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) speaker.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestMigrations(t *testing.T) {
	for _, driver := range []string{database.DriverSQLite, database.DriverPostgres} {
		src, err := Migrations(driver)
		if err != nil {
			t.Fatalf("expected migrations for %s, got %v", driver, err)
		}
		entries, err := migrationsFS.ReadDir(src.Path)
		if err != nil || len(entries) == 0 {
			t.Errorf("expected migration files under %s, got %v", src.Path, err)
		}
	}
	if _, err := Migrations("mysql"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestStore_Schema(t *testing.T) {
	_, comp := newTestStore(t)
	for _, table := range []string{"people", "meetings", "transcript_segments", "speaker_aliases", "voice_fingerprints"} {
		dbtest.AssertRowCount(t, comp.DB().GormDB, table, 0)
	}
}

func TestStore_AliasUniqueness(t *testing.T) {
	s, comp := newTestStore(t)
	ctx := context.Background()
	m := &speaker.Meeting{Title: "Budget"}
	if err := s.CreateMeeting(ctx, m); err != nil {
		t.Fatal(err)
	}
	p, err := s.CreatePerson(ctx, "Alice", false)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := s.UpsertAlias(ctx, m.ID, "SPEAKER_01", p.ID); err != nil {
			t.Fatalf("UpsertAlias failed: %v", err)
		}
	}
	dbtest.AssertRowCount(t, comp.DB().GormDB, "speaker_aliases", 1)
}

func TestStore_FingerprintFirstWriteWins(t *testing.T) {
	s, comp := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreatePerson(ctx, "Alice", false)
	if err != nil {
		t.Fatal(err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		exists  int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateFingerprint(ctx, p.ID, []float32{float32(i), 1}, 1, 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, speaker.ErrFingerprintExists):
				exists++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if created != 1 || exists != 3 {
		t.Errorf("expected 1 created and 3 existing, got %d and %d", created, exists)
	}
	dbtest.AssertRowCount(t, comp.DB().GormDB, "voice_fingerprints", 1)
}

func TestStore_EmbeddingRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p, err := s.CreatePerson(ctx, "Alice", false)
	if err != nil {
		t.Fatal(err)
	}
	emb := make([]float32, similarity.DefaultDimension)
	for i := range emb {
		emb[i] = float32(i)/float32(len(emb)) - 0.5
	}
	if _, err := s.CreateFingerprint(ctx, p.ID, emb, 0.9, 0); err != nil {
		t.Fatal(err)
	}
	fp, err := s.GetFingerprint(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fp.Embedding) != len(emb) {
		t.Fatalf("expected %d dimensions, got %d", len(emb), len(fp.Embedding))
	}
	for i := range emb {
		if fp.Embedding[i] != emb[i] {
			t.Fatalf("dimension %d: expected %v, got %v", i, emb[i], fp.Embedding[i])
		}
	}
	if fp.SourceMeetingID != 0 {
		t.Errorf("expected no source meeting, got %d", fp.SourceMeetingID)
	}
}

func TestStore_BulkSetMissingSegment(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	m := &speaker.Meeting{Title: "Budget"}
	if err := s.CreateMeeting(ctx, m); err != nil {
		t.Fatal(err)
	}
	seg := speaker.Segment{MeetingID: m.ID, StartTime: 0, EndTime: 1, SpeakerName: "SPEAKER_01"}
	if err := s.CreateSegment(ctx, &seg); err != nil {
		t.Fatal(err)
	}

	err := s.WithinTx(ctx, func(tx speaker.Store) error {
		return tx.BulkSetSegmentIdentity(ctx, []int64{seg.ID, seg.ID + 1}, nil, "Chair")
	})
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, _ := s.GetSegment(ctx, seg.ID)
	if got.SpeakerName != "SPEAKER_01" {
		t.Errorf("expected rollback to keep label, got %q", got.SpeakerName)
	}
}

// The assignment flows run unchanged on the SQL store.
func TestStore_ServiceIntegration(t *testing.T) {
	s, comp := newTestStore(t)
	ctx := context.Background()
	matcher := similarity.NewMatcher(similarity.Config{Dimension: 2})
	svc := speaker.NewService(s, matcher)

	m := &speaker.Meeting{Title: "Budget", DiarizationHints: []byte(`{"centroids":{"SPEAKER_01":[0.6,0.8]}}`)}
	if err := s.CreateMeeting(ctx, m); err != nil {
		t.Fatal(err)
	}
	var ids []int64
	for i, label := range []string{"SPEAKER_01", "SPEAKER_02", "SPEAKER_01"} {
		seg := speaker.Segment{MeetingID: m.ID, StartTime: float64(i), EndTime: float64(i + 1), SpeakerName: label, TextContent: "ab"}
		if err := s.CreateSegment(ctx, &seg); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, seg.ID)
	}

	res, err := svc.AssignAlias(ctx, speaker.AssignAliasRequest{MeetingID: m.ID, Label: "Speaker_1", NewName: "Alice"})
	if err != nil {
		t.Fatalf("AssignAlias failed: %v", err)
	}
	if res.SegmentsUpdated != 0 {
		t.Errorf("expected exact label match only, got %d updated", res.SegmentsUpdated)
	}
	if !res.FingerprintSaved {
		t.Error("expected fingerprint from hints centroid")
	}

	res, err = svc.AssignAlias(ctx, speaker.AssignAliasRequest{MeetingID: m.ID, Label: "SPEAKER_01", PersonID: &res.Person.ID})
	if err != nil {
		t.Fatalf("AssignAlias failed: %v", err)
	}
	if res.SegmentsUpdated != 2 {
		t.Errorf("expected 2 segments updated, got %d", res.SegmentsUpdated)
	}

	ap, err := svc.AssignPersonSegments(ctx, speaker.AssignPersonRequest{SegmentIDs: []int64{ids[1]}, PersonID: &res.Person.ID})
	if err != nil {
		t.Fatalf("AssignPersonSegments failed: %v", err)
	}
	if ap.AliasCreated {
		t.Error("expected existing alias to be reused")
	}
	dbtest.AssertRowCount(t, comp.DB().GormDB, "speaker_aliases", 2)

	split, err := svc.SplitSegment(ctx, speaker.SplitRequest{SegmentID: ids[0], Text1: "a", Text2: "b"})
	if err != nil {
		t.Fatalf("SplitSegment failed: %v", err)
	}
	if split.SplitTime != 0.5 || split.Second.PersonID == nil {
		t.Errorf("unexpected split result: %+v", split)
	}
	dbtest.AssertRowCount(t, comp.DB().GormDB, "transcript_segments", 4)
}

func TestStore_WithinTxRetriesLockedDatabase(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	calls := 0
	err := s.WithinTx(ctx, func(tx speaker.Store) error {
		calls++
		if calls == 1 {
			return errors.New("database is locked")
		}
		_, err := tx.CreatePerson(ctx, "Retry Person", false)
		return err
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}

	calls = 0
	err = s.WithinTx(ctx, func(tx speaker.Store) error {
		calls++
		return apperrors.Conflict("label taken")
	})
	if !apperrors.IsConflict(err) {
		t.Errorf("expected conflict, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected conflicts not to be retried, got %d attempts", calls)
	}
}

func TestRetryableTx(t *testing.T) {
	locked := errors.New("database is locked")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"raw locked", locked, true},
		{"raw syntax", errors.New("syntax error"), false},
		{"retryable persistence", database.FromDatabase(locked, "segment"), true},
		{"final persistence", database.FromDatabase(errors.New("syntax error"), "segment"), false},
		{"conflict", apperrors.Conflict("taken"), false},
		{"not found", apperrors.NotFound("segment", "1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableTx(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
