package memstore

import (
	"context"
	"slices"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/speaker"
)

// Faults makes store operations fail with the given error when set.
type Faults struct {
	CreateFingerprint      error
	GetFingerprint         error
	UpsertAlias            error
	SetLabelIdentity       error
	BulkSetSegmentIdentity error
	CreateSegment          error
}

type aliasKey struct {
	meetingID int64
	label     string
}

type data struct {
	people       map[uuid.UUID]speaker.Person
	meetings     map[int64]speaker.Meeting
	segments     map[int64]speaker.Segment
	aliases      map[aliasKey]uuid.UUID
	fingerprints map[uuid.UUID]speaker.Fingerprint

	nextMeetingID     int64
	nextSegmentID     int64
	nextFingerprintID int64
}

func newData() *data {
	return &data{
		people:       make(map[uuid.UUID]speaker.Person),
		meetings:     make(map[int64]speaker.Meeting),
		segments:     make(map[int64]speaker.Segment),
		aliases:      make(map[aliasKey]uuid.UUID),
		fingerprints: make(map[uuid.UUID]speaker.Fingerprint),
	}
}

func (d *data) clone() *data {
	c := *d
	c.people = maps(d.people, func(p speaker.Person) speaker.Person { return p })
	c.meetings = maps(d.meetings, func(m speaker.Meeting) speaker.Meeting {
		m.DiarizationHints = slices.Clone(m.DiarizationHints)
		return m
	})
	c.segments = maps(d.segments, copySegment)
	c.aliases = maps(d.aliases, func(id uuid.UUID) uuid.UUID { return id })
	c.fingerprints = maps(d.fingerprints, copyFingerprint)
	return &c
}

func maps[K comparable, V any](m map[K]V, cp func(V) V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = cp(v)
	}
	return out
}

// Store is an in-memory speaker.Store. It is safe for concurrent use.
type Store struct {
	mu     *sync.Mutex
	inTx   bool
	d      *data
	Faults *Faults
}

var _ speaker.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, d: newData(), Faults: &Faults{}}
}

func (s *Store) lock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.inTx {
		return func() {}, nil
	}
	s.mu.Lock()
	return s.mu.Unlock, nil
}

// WithinTx runs fn with exclusive access to the store and restores the
// prior state if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(tx speaker.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	tx := &Store{mu: s.mu, inTx: true, d: s.d, Faults: s.Faults}
	if err := fn(tx); err != nil {
		*s.d = *snapshot
		return err
	}
	return nil
}

// --- people ---

func (s *Store) GetPerson(ctx context.Context, id uuid.UUID) (*speaker.Person, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, ok := s.d.people[id]
	if !ok {
		return nil, apperrors.NotFound("person", id.String())
	}
	return &p, nil
}

// LockPerson is GetPerson; transactions already hold the store lock.
func (s *Store) LockPerson(ctx context.Context, id uuid.UUID) (*speaker.Person, error) {
	return s.GetPerson(ctx, id)
}

func (s *Store) ListPeople(ctx context.Context, ids []uuid.UUID) ([]speaker.Person, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]speaker.Person, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.d.people[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) CreatePerson(ctx context.Context, name string, isCouncillor bool) (*speaker.Person, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p := speaker.Person{ID: uuid.New(), Name: name, IsCouncillor: isCouncillor}
	s.d.people[p.ID] = p
	return &p, nil
}

// --- meetings ---

func (s *Store) GetMeeting(ctx context.Context, id int64) (*speaker.Meeting, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, ok := s.d.meetings[id]
	if !ok {
		return nil, apperrors.NotFound("meeting", strconv.FormatInt(id, 10))
	}
	m.DiarizationHints = slices.Clone(m.DiarizationHints)
	return &m, nil
}

func (s *Store) CreateMeeting(ctx context.Context, m *speaker.Meeting) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	s.d.nextMeetingID++
	m.ID = s.d.nextMeetingID
	stored := *m
	stored.DiarizationHints = slices.Clone(m.DiarizationHints)
	s.d.meetings[m.ID] = stored
	return nil
}

// --- aliases ---

func (s *Store) GetAlias(ctx context.Context, meetingID int64, label string) (*speaker.Person, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	pid, ok := s.d.aliases[aliasKey{meetingID, label}]
	if !ok {
		return nil, nil
	}
	p, ok := s.d.people[pid]
	if !ok {
		return nil, apperrors.NotFound("person", pid.String())
	}
	return &p, nil
}

func (s *Store) UpsertAlias(ctx context.Context, meetingID int64, label string, personID uuid.UUID) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if s.Faults.UpsertAlias != nil {
		return s.Faults.UpsertAlias
	}
	s.d.aliases[aliasKey{meetingID, label}] = personID
	return nil
}

func (s *Store) FindAliasByPerson(ctx context.Context, meetingID int64, personID uuid.UUID) (*speaker.Alias, error) {
	aliases, err := s.ListAliases(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	for _, a := range aliases {
		if a.PersonID == personID {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *Store) ListAliases(ctx context.Context, meetingID int64) ([]speaker.Alias, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []speaker.Alias
	for k, pid := range s.d.aliases {
		if k.meetingID == meetingID {
			out = append(out, speaker.Alias{MeetingID: meetingID, SpeakerLabel: k.label, PersonID: pid})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpeakerLabel < out[j].SpeakerLabel })
	return out, nil
}

// --- fingerprints ---

func (s *Store) GetFingerprint(ctx context.Context, personID uuid.UUID) (*speaker.Fingerprint, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if s.Faults.GetFingerprint != nil {
		return nil, s.Faults.GetFingerprint
	}
	fp, ok := s.d.fingerprints[personID]
	if !ok {
		return nil, nil
	}
	fp = copyFingerprint(fp)
	return &fp, nil
}

func (s *Store) CreateFingerprint(ctx context.Context, personID uuid.UUID, embedding []float32, confidence float64, sourceMeetingID int64) (*speaker.Fingerprint, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if s.Faults.CreateFingerprint != nil {
		return nil, s.Faults.CreateFingerprint
	}
	if _, ok := s.d.fingerprints[personID]; ok {
		return nil, speaker.ErrFingerprintExists
	}
	s.d.nextFingerprintID++
	fp := speaker.Fingerprint{
		ID:              s.d.nextFingerprintID,
		PersonID:        personID,
		Embedding:       slices.Clone(embedding),
		Confidence:      confidence,
		SourceMeetingID: sourceMeetingID,
	}
	s.d.fingerprints[personID] = fp
	fp = copyFingerprint(fp)
	return &fp, nil
}

func (s *Store) UpdateFingerprint(ctx context.Context, fingerprintID int64, embedding []float32, confidence float64, sourceMeetingID int64) (*speaker.Fingerprint, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for pid, fp := range s.d.fingerprints {
		if fp.ID != fingerprintID {
			continue
		}
		fp.Embedding = slices.Clone(embedding)
		fp.Confidence = confidence
		fp.SourceMeetingID = sourceMeetingID
		s.d.fingerprints[pid] = fp
		fp = copyFingerprint(fp)
		return &fp, nil
	}
	return nil, apperrors.NotFound("fingerprint", strconv.FormatInt(fingerprintID, 10))
}

func (s *Store) ListFingerprints(ctx context.Context) ([]speaker.Fingerprint, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]speaker.Fingerprint, 0, len(s.d.fingerprints))
	for _, fp := range s.d.fingerprints {
		out = append(out, copyFingerprint(fp))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- segments ---

func (s *Store) GetSegment(ctx context.Context, id int64) (*speaker.Segment, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	seg, ok := s.d.segments[id]
	if !ok {
		return nil, apperrors.NotFound("segment", strconv.FormatInt(id, 10))
	}
	seg = copySegment(seg)
	return &seg, nil
}

func (s *Store) ListSegments(ctx context.Context, ids []int64) ([]speaker.Segment, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]speaker.Segment, 0, len(ids))
	for _, id := range ids {
		seg, ok := s.d.segments[id]
		if !ok {
			return nil, apperrors.NotFound("segment", strconv.FormatInt(id, 10))
		}
		out = append(out, copySegment(seg))
	}
	return out, nil
}

func (s *Store) ListMeetingSegments(ctx context.Context, meetingID int64) ([]speaker.Segment, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.meetingSegments(meetingID), nil
}

func (s *Store) meetingSegments(meetingID int64) []speaker.Segment {
	var out []speaker.Segment
	for _, seg := range s.d.segments {
		if seg.MeetingID == meetingID {
			out = append(out, copySegment(seg))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) FindSegmentByPerson(ctx context.Context, meetingID int64, personID uuid.UUID) (*speaker.Segment, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, seg := range s.meetingSegments(meetingID) {
		if seg.PersonID != nil && *seg.PersonID == personID {
			return &seg, nil
		}
	}
	return nil, nil
}

func (s *Store) BulkSetSegmentIdentity(ctx context.Context, ids []int64, personID *uuid.UUID, label string) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if s.Faults.BulkSetSegmentIdentity != nil {
		return s.Faults.BulkSetSegmentIdentity
	}
	for _, id := range ids {
		seg, ok := s.d.segments[id]
		if !ok {
			return apperrors.NotFound("segment", strconv.FormatInt(id, 10))
		}
		seg.SpeakerName = label
		seg.PersonID = nil
		if personID != nil {
			pid := *personID
			seg.PersonID = &pid
		}
		s.d.segments[id] = seg
	}
	return nil
}

func (s *Store) SetLabelIdentity(ctx context.Context, meetingID int64, label string, personID uuid.UUID) (int64, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if s.Faults.SetLabelIdentity != nil {
		return 0, s.Faults.SetLabelIdentity
	}
	var n int64
	for id, seg := range s.d.segments {
		if seg.MeetingID != meetingID || seg.SpeakerName != label {
			continue
		}
		pid := personID
		seg.PersonID = &pid
		s.d.segments[id] = seg
		n++
	}
	return n, nil
}

func (s *Store) UpdateSegmentBounds(ctx context.Context, id int64, start, end float64, text string) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	seg, ok := s.d.segments[id]
	if !ok {
		return apperrors.NotFound("segment", strconv.FormatInt(id, 10))
	}
	seg.StartTime, seg.EndTime, seg.TextContent = start, end, text
	s.d.segments[id] = seg
	return nil
}

func (s *Store) CreateSegment(ctx context.Context, seg *speaker.Segment) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if s.Faults.CreateSegment != nil {
		return s.Faults.CreateSegment
	}
	if _, ok := s.d.meetings[seg.MeetingID]; !ok {
		return apperrors.NotFound("meeting", strconv.FormatInt(seg.MeetingID, 10))
	}
	s.d.nextSegmentID++
	seg.ID = s.d.nextSegmentID
	s.d.segments[seg.ID] = copySegment(*seg)
	return nil
}

func copySegment(seg speaker.Segment) speaker.Segment {
	if seg.PersonID != nil {
		pid := *seg.PersonID
		seg.PersonID = &pid
	}
	return seg
}

func copyFingerprint(fp speaker.Fingerprint) speaker.Fingerprint {
	fp.Embedding = slices.Clone(fp.Embedding)
	return fp
}
