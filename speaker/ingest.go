package speaker

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/speakerid/diarization"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/observability"
	"github.com/kbukum/speakerid/validation"
)

// Length limits shared with the request validate tags.
const (
	maxTitleLength = 500
	maxLabelLength = 128
)

// ImportResult reports an imported meeting.
type ImportResult struct {
	Meeting  Meeting  `json:"meeting"`
	Segments int      `json:"segments"`
	Labels   []string `json:"labels"`
}

// ImportTranscript stores a diarized transcript as a new meeting with its
// segments and hints, all or nothing. Segments arrive unassigned; identity
// comes later from aliases and explicit assignments.
func (s *Service) ImportTranscript(ctx context.Context, t *diarization.Transcript) (res *ImportResult, err error) {
	if t == nil {
		return nil, apperrors.MissingField("transcript")
	}
	if strings.TrimSpace(t.Title) == "" {
		return nil, apperrors.MissingField("title")
	}
	v := validation.New().MaxLength("title", strings.TrimSpace(t.Title), maxTitleLength)
	for i, seg := range t.Segments {
		field := fmt.Sprintf("segments[%d]", i)
		v.Finite(field+".start", seg.Start).Finite(field+".end", seg.End).
			MaxLength(field+".speaker", strings.TrimSpace(seg.Speaker), maxLabelLength)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if len(t.Hints) > 0 {
		if _, err := diarization.ParseHints(t.Hints, s.dimension()); err != nil {
			return nil, apperrors.InvalidInput("hints", err.Error()).WithCause(err)
		}
	}
	for i, seg := range t.Segments {
		if seg.Start < 0 || seg.End <= seg.Start {
			return nil, apperrors.InvalidInput("segments", "segment start must be before end").WithDetail("index", i)
		}
		if i > 0 && seg.Start < t.Segments[i-1].End {
			return nil, apperrors.InvalidInput("segments", "segments must be ordered and must not overlap").WithDetail("index", i)
		}
	}

	ctx, op := observability.StartOperation(ctx, s.counters, "import_transcript",
		attribute.Int("segments", len(t.Segments)))
	defer func() { op.End(ctx, err) }()

	err = s.store.WithinTx(ctx, func(tx Store) error {
		m := &Meeting{Title: strings.TrimSpace(t.Title), DiarizationHints: t.Hints}
		if err := tx.CreateMeeting(ctx, m); err != nil {
			return err
		}
		seen := make(map[string]struct{})
		labels := make([]string, 0)
		for _, in := range t.Segments {
			label := strings.TrimSpace(in.Speaker)
			seg := &Segment{
				MeetingID:   m.ID,
				StartTime:   in.Start,
				EndTime:     in.End,
				SpeakerName: label,
				TextContent: in.Text,
			}
			if err := tx.CreateSegment(ctx, seg); err != nil {
				return err
			}
			if _, ok := seen[label]; !ok && label != "" {
				seen[label] = struct{}{}
				labels = append(labels, label)
			}
		}
		res = &ImportResult{Meeting: *m, Segments: len(t.Segments), Labels: labels}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.log.WithContext(ctx).Info("Transcript imported", logger.Fields(
		logger.FieldMeetingID, res.Meeting.ID,
		"segments", res.Segments,
		"labels", len(res.Labels),
	))
	return res, nil
}
