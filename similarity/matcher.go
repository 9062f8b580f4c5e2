package similarity

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// Band is the display strength of a score.
type Band string

const (
	BandStrong Band = "strong"
	BandMedium Band = "medium"
	BandWeak   Band = "weak"
)

// Entry is one fingerprint to score against.
type Entry struct {
	PersonID  uuid.UUID
	Embedding []float32
}

// Candidate is a scored fingerprint.
type Candidate struct {
	PersonID   uuid.UUID `json:"person_id"`
	Similarity float64   `json:"similarity"`
	Band       Band      `json:"band"`
}

// Result holds every scored candidate, best first, and the subset above
// the threshold.
type Result struct {
	Candidates []Candidate `json:"candidates"`
	Matches    []Candidate `json:"matches"`
}

// Best returns the highest scoring match, if any candidate matched.
func (r Result) Best() (Candidate, bool) {
	if len(r.Matches) == 0 {
		return Candidate{}, false
	}
	return r.Matches[0], true
}

// Top returns at most n candidates.
func (r Result) Top(n int) []Candidate {
	if n < 0 || n >= len(r.Candidates) {
		return r.Candidates
	}
	return r.Candidates[:n]
}

// Matcher ranks fingerprints by cosine similarity. It is stateless and safe
// for concurrent use.
type Matcher struct {
	cfg Config
}

// NewMatcher creates a matcher, applying defaults to cfg.
func NewMatcher(cfg Config) *Matcher {
	cfg.ApplyDefaults()
	return &Matcher{cfg: cfg}
}

// Config returns the effective configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Accepts reports whether score clears the match threshold.
func (m *Matcher) Accepts(score float64) bool {
	return score > m.cfg.Threshold
}

// Band labels score for display.
func (m *Matcher) Band(score float64) Band {
	switch {
	case score >= m.cfg.StrongBand:
		return BandStrong
	case score >= m.cfg.MediumBand:
		return BandMedium
	default:
		return BandWeak
	}
}

// Candidate scores a single known similarity, e.g. a precomputed match.
func (m *Matcher) Candidate(personID uuid.UUID, score float64) Candidate {
	return Candidate{PersonID: personID, Similarity: score, Band: m.Band(score)}
}

// Match scores centroid against every entry. Candidates are sorted by
// descending similarity, ties by person id.
func (m *Matcher) Match(centroid []float32, entries []Entry) Result {
	res := Result{Candidates: make([]Candidate, 0, len(entries)), Matches: []Candidate{}}
	for _, e := range entries {
		res.Candidates = append(res.Candidates, m.Candidate(e.PersonID, Cosine(centroid, e.Embedding)))
	}

	sort.SliceStable(res.Candidates, func(i, j int) bool {
		a, b := res.Candidates[i], res.Candidates[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		return bytes.Compare(a.PersonID[:], b.PersonID[:]) < 0
	})

	for _, c := range res.Candidates {
		if !m.Accepts(c.Similarity) {
			break
		}
		res.Matches = append(res.Matches, c)
	}
	return res
}
