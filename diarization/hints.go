package diarization

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// Sample is a representative time range for a label, in seconds.
type Sample struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// HintMatch is the pipeline's precomputed best fingerprint match for a label.
type HintMatch struct {
	PersonID   uuid.UUID `json:"person_id"`
	Similarity float64   `json:"similarity"`
}

// Hints is the per-meeting diarization output consumed by matching. It is
// decoded and validated once by ParseHints; callers never read raw JSON.
// Keys keep the label spelling the pipeline produced.
type Hints struct {
	Centroids map[string][]float32 `json:"centroids,omitempty"`
	Samples   map[string]Sample    `json:"samples,omitempty"`
	Matches   map[string]HintMatch `json:"matches,omitempty"`
}

// ParseHints decodes and validates a hints blob. Empty input yields empty
// hints. When dimension is positive every centroid must have that length.
func ParseHints(raw []byte, dimension int) (*Hints, error) {
	h := &Hints{}
	if len(raw) == 0 || string(raw) == "null" {
		return h, nil
	}
	if err := json.Unmarshal(raw, h); err != nil {
		return nil, fmt.Errorf("decode diarization hints: %w", err)
	}
	if err := h.Validate(dimension); err != nil {
		return nil, err
	}
	return h, nil
}

// Validate checks centroid dimensions and finiteness, sample ordering and
// match similarity range.
func (h *Hints) Validate(dimension int) error {
	for label, c := range h.Centroids {
		if len(c) == 0 {
			return fmt.Errorf("hints: centroid for %q is empty", label)
		}
		if dimension > 0 && len(c) != dimension {
			return fmt.Errorf("hints: centroid for %q has %d dimensions, want %d", label, len(c), dimension)
		}
		for _, x := range c {
			if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("hints: centroid for %q contains a non-finite value", label)
			}
		}
	}
	for label, s := range h.Samples {
		if s.Start < 0 || s.End <= s.Start {
			return fmt.Errorf("hints: sample for %q must satisfy 0 <= start < end", label)
		}
	}
	for label, m := range h.Matches {
		if m.PersonID == uuid.Nil {
			return fmt.Errorf("hints: match for %q has no person_id", label)
		}
		if m.Similarity < -1 || m.Similarity > 1 || math.IsNaN(m.Similarity) {
			return fmt.Errorf("hints: match for %q has similarity outside [-1, 1]", label)
		}
	}
	return nil
}

// Labels returns every label mentioned in the hints, one per canonical key,
// sorted by key.
func (h *Hints) Labels() []string {
	byKey := make(map[string]string)
	add := func(label string) {
		k := LabelKey(label)
		if _, ok := byKey[k]; !ok {
			byKey[k] = label
		}
	}
	for l := range h.Centroids {
		add(l)
	}
	for l := range h.Samples {
		add(l)
	}
	for l := range h.Matches {
		add(l)
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out
}

// Centroid returns the centroid for label, probing label candidates.
func (h *Hints) Centroid(label string) ([]float32, bool) {
	return probe(h.Centroids, label)
}

// Sample returns the sample range for label, probing label candidates.
func (h *Hints) Sample(label string) (Sample, bool) {
	return probe(h.Samples, label)
}

// Match returns the precomputed match for label, probing label candidates.
func (h *Hints) Match(label string) (HintMatch, bool) {
	return probe(h.Matches, label)
}

func probe[V any](m map[string]V, label string) (V, bool) {
	for _, c := range LabelCandidates(label) {
		if v, ok := m[c]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}
