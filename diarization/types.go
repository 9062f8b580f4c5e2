package diarization

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Transcript is the ingestion fixture for one meeting: diarized,
// transcribed segments plus the pipeline's hints.
type Transcript struct {
	// Title is the meeting title.
	Title string `json:"title"`
	// Segments contains speaker-attributed time segments in start order.
	Segments []Segment `json:"segments"`
	// Hints is the raw hints blob stored with the meeting.
	Hints json.RawMessage `json:"hints,omitempty"`
}

// Segment represents a speaker-attributed time range.
type Segment struct {
	// Speaker is the diarization label.
	Speaker string `json:"speaker"`
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
	// Text is the transcribed text for this segment.
	Text string `json:"text,omitempty"`
}

// DecodeTranscript reads and validates a transcript fixture.
func DecodeTranscript(r io.Reader, dimension int) (*Transcript, error) {
	var t Transcript
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if strings.TrimSpace(t.Title) == "" {
		return nil, fmt.Errorf("transcript: title is required")
	}
	for i, s := range t.Segments {
		if s.End <= s.Start || s.Start < 0 {
			return nil, fmt.Errorf("transcript: segment %d must satisfy 0 <= start < end", i)
		}
		if i > 0 && s.Start < t.Segments[i-1].End {
			return nil, fmt.Errorf("transcript: segment %d overlaps the previous segment", i)
		}
	}
	if _, err := ParseHints(t.Hints, dimension); err != nil {
		return nil, err
	}
	return &t, nil
}
