package speaker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/speakerid/diarization"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/observability"
	"github.com/kbukum/speakerid/similarity"
	"github.com/kbukum/speakerid/validation"
)

// Suggestion sources.
const (
	SourceCentroid    = "centroid"
	SourcePrecomputed = "precomputed"
	SourceNone        = "none"
)

// RankedPerson is a similarity candidate with the person's name.
type RankedPerson struct {
	similarity.Candidate
	PersonName string `json:"person_name,omitempty"`
}

// MatchResult ranks fingerprints against one embedding.
type MatchResult struct {
	Candidates []RankedPerson `json:"candidates"`
	Matches    []RankedPerson `json:"matches"`
}

// Suggestion is the match proposal for one diarization label.
type Suggestion struct {
	Label         string              `json:"label"`
	AliasedPerson *Person             `json:"aliased_person,omitempty"`
	Sample        *diarization.Sample `json:"sample,omitempty"`
	Source        string              `json:"source"`
	Best          *RankedPerson       `json:"best,omitempty"`
	Candidates    []RankedPerson      `json:"candidates"`
}

// MeetingSuggestions holds the suggestions for every label of a meeting.
type MeetingSuggestions struct {
	MeetingID   int64        `json:"meeting_id"`
	Suggestions []Suggestion `json:"suggestions"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// SuggestionCache stores computed suggestions per meeting.
type SuggestionCache interface {
	// Get returns cached suggestions. ok is false on a miss.
	Get(ctx context.Context, meetingID int64) (s *MeetingSuggestions, ok bool, err error)
	Set(ctx context.Context, s *MeetingSuggestions) error
	// InvalidateMeeting drops one meeting's suggestions.
	InvalidateMeeting(ctx context.Context, meetingID int64) error
	// InvalidateAll drops every meeting's suggestions.
	InvalidateAll(ctx context.Context) error
}

// Suggester ranks stored fingerprints against each label of a meeting.
type Suggester struct {
	store    Store
	matcher  *similarity.Matcher
	log      *logger.Logger
	cache    SuggestionCache
	counters *observability.Counters
	now      func() time.Time
}

// NewSuggester creates a suggester.
func NewSuggester(store Store, matcher *similarity.Matcher, opts ...Option) *Suggester {
	o := newOptions(opts)
	return &Suggester{
		store:    store,
		matcher:  matcher,
		log:      o.log.WithComponent("automatch"),
		cache:    o.cache,
		counters: o.counters,
		now:      time.Now,
	}
}

// Suggest returns a suggestion per hinted label, sorted by label. A label
// with a centroid is matched against every fingerprint; one without falls
// back to the pipeline's precomputed match when that clears the threshold.
// Cached results are served unless refresh is set.
func (s *Suggester) Suggest(ctx context.Context, meetingID int64, refresh bool) (res *MeetingSuggestions, err error) {
	if err := validation.New().PositiveID("meeting_id", meetingID).Err(); err != nil {
		return nil, err
	}

	ctx, op := observability.StartOperation(ctx, s.counters, "suggest",
		attribute.Int64(observability.AttrMeetingID, meetingID))
	defer func() { op.End(ctx, err) }()

	if s.cache != nil && !refresh {
		cached, ok, err := s.cache.Get(ctx, meetingID)
		if err != nil {
			s.log.WithContext(ctx).Warn("Suggestion cache read failed", logger.Fields(
				logger.FieldMeetingID, meetingID,
				logger.FieldError, err.Error(),
			))
		}
		s.counters.RecordCacheLookup(ctx, ok)
		if ok {
			return cached, nil
		}
	}

	res, err = s.compute(ctx, meetingID)
	if err != nil {
		return nil, storeError(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, res); err != nil {
			s.log.WithContext(ctx).Warn("Suggestion cache write failed", logger.Fields(
				logger.FieldMeetingID, meetingID,
				logger.FieldError, err.Error(),
			))
		}
	}
	return res, nil
}

// Match ranks every fingerprint against embedding.
func (s *Suggester) Match(ctx context.Context, embedding []float32) (*MatchResult, error) {
	v := validation.New().
		Custom(len(embedding) > 0, "embedding", "is required").
		Embedding("embedding", embedding, s.matcher.Config().Dimension)
	if err := v.Err(); err != nil {
		return nil, err
	}
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	r := s.matcher.Match(embedding, entries)
	people, err := s.people(ctx, personIDs(r.Candidates))
	if err != nil {
		return nil, storeError(err)
	}
	return &MatchResult{Candidates: rank(r.Candidates, people), Matches: rank(r.Matches, people)}, nil
}

func (s *Suggester) compute(ctx context.Context, meetingID int64) (*MeetingSuggestions, error) {
	meeting, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	hints, err := meeting.Hints(s.matcher.Config().Dimension)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	aliases, err := s.store.ListAliases(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	aliased := make(map[string]uuid.UUID, len(aliases))
	for _, a := range aliases {
		aliased[a.SpeakerLabel] = a.PersonID
	}

	type pending struct {
		sug   Suggestion
		best  *similarity.Candidate
		cands []similarity.Candidate
		alias *uuid.UUID
	}
	labels := hints.Labels()
	work := make([]pending, 0, len(labels))
	var ids []uuid.UUID

	for _, label := range labels {
		p := pending{sug: Suggestion{Label: label, Source: SourceNone}}
		if sample, ok := hints.Sample(label); ok {
			p.sug.Sample = &sample
		}
		for _, c := range diarization.LabelCandidates(label) {
			if pid, ok := aliased[c]; ok {
				p.alias = uuidPtr(pid)
				ids = append(ids, pid)
				break
			}
		}

		if centroid, ok := hints.Centroid(label); ok {
			r := s.matcher.Match(centroid, entries)
			p.sug.Source = SourceCentroid
			p.cands = r.Top(s.matcher.Config().MaxCandidates)
			if best, ok := r.Best(); ok {
				p.best = &best
			}
		} else if m, ok := hints.Match(label); ok && s.matcher.Accepts(m.Similarity) {
			c := s.matcher.Candidate(m.PersonID, m.Similarity)
			p.sug.Source = SourcePrecomputed
			p.best = &c
			p.cands = []similarity.Candidate{c}
		}
		ids = append(ids, personIDs(p.cands)...)
		work = append(work, p)
	}

	people, err := s.people(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := &MeetingSuggestions{
		MeetingID:   meetingID,
		Suggestions: make([]Suggestion, len(work)),
		GeneratedAt: s.now().UTC(),
	}
	for i, p := range work {
		p.sug.Candidates = rank(p.cands, people)
		if p.best != nil {
			p.sug.Best = &RankedPerson{Candidate: *p.best, PersonName: people[p.best.PersonID].Name}
		}
		if p.alias != nil {
			person, ok := people[*p.alias]
			if !ok {
				person = Person{ID: *p.alias}
			}
			p.sug.AliasedPerson = &person
		}
		out.Suggestions[i] = p.sug
	}

	s.log.WithContext(ctx).Debug("Suggestions computed", logger.Fields(
		logger.FieldMeetingID, meetingID,
		"labels", len(labels),
		"fingerprints", len(entries),
	))
	return out, nil
}

func (s *Suggester) entries(ctx context.Context) ([]similarity.Entry, error) {
	fps, err := s.store.ListFingerprints(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]similarity.Entry, len(fps))
	for i, fp := range fps {
		entries[i] = similarity.Entry{PersonID: fp.PersonID, Embedding: fp.Embedding}
	}
	return entries, nil
}

func (s *Suggester) people(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Person, error) {
	byID := make(map[uuid.UUID]Person)
	if len(ids) == 0 {
		return byID, nil
	}
	people, err := s.store.ListPeople(ctx, uniqueUUIDs(ids))
	if err != nil {
		return nil, err
	}
	for _, p := range people {
		byID[p.ID] = p
	}
	return byID, nil
}

func personIDs(cands []similarity.Candidate) []uuid.UUID {
	ids := make([]uuid.UUID, len(cands))
	for i, c := range cands {
		ids[i] = c.PersonID
	}
	return ids
}

func rank(cands []similarity.Candidate, people map[uuid.UUID]Person) []RankedPerson {
	out := make([]RankedPerson, len(cands))
	for i, c := range cands {
		out[i] = RankedPerson{Candidate: c, PersonName: people[c.PersonID].Name}
	}
	return out
}
