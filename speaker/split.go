package speaker

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/observability"
	"github.com/kbukum/speakerid/validation"
)

// SplitTime returns where the second text starts inside [start, end),
// placed in proportion to the texts' lengths in runes. It is an estimate
// from text length, not an alignment against the audio.
func SplitTime(start, end float64, text1, text2 string) (float64, error) {
	if strings.TrimSpace(text1) == "" {
		return 0, apperrors.MissingField("text1")
	}
	if strings.TrimSpace(text2) == "" {
		return 0, apperrors.MissingField("text2")
	}
	n1 := utf8.RuneCountInString(text1)
	n2 := utf8.RuneCountInString(text2)
	ratio := float64(n1) / float64(n1+n2)
	t := start + (end-start)*ratio
	if math.IsNaN(t) || math.IsInf(t, 0) || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, apperrors.Validation("split ratio is not a finite number")
	}
	if t <= start || t >= end {
		return 0, apperrors.Validation("segment is too short to split").
			WithDetail("start_time", start).
			WithDetail("end_time", end)
	}
	return t, nil
}

// SplitSegment shrinks a segment to [start, split) holding text1 and inserts
// a new segment [split, end) holding text2. The new segment keeps the
// original's speaker name and person.
func (s *Service) SplitSegment(ctx context.Context, req SplitRequest) (res *SplitResult, err error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}

	ctx, op := observability.StartOperation(ctx, s.counters, "split_segment",
		attribute.Int64("segment.id", req.SegmentID))
	defer func() { op.End(ctx, err) }()

	err = s.store.WithinTx(ctx, func(tx Store) error {
		seg, err := tx.GetSegment(ctx, req.SegmentID)
		if err != nil {
			return err
		}
		at, err := SplitTime(seg.StartTime, seg.EndTime, req.Text1, req.Text2)
		if err != nil {
			return err
		}

		if err := tx.UpdateSegmentBounds(ctx, seg.ID, seg.StartTime, at, req.Text1); err != nil {
			return err
		}
		second := Segment{
			MeetingID:   seg.MeetingID,
			StartTime:   at,
			EndTime:     seg.EndTime,
			SpeakerName: seg.SpeakerName,
			PersonID:    seg.PersonID,
			TextContent: req.Text2,
		}
		if err := tx.CreateSegment(ctx, &second); err != nil {
			return err
		}

		first := *seg
		first.EndTime = at
		first.TextContent = req.Text1
		res = &SplitResult{SplitTime: at, First: first, Second: second}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.log.WithContext(ctx).Info("Segment split", logger.Fields(
		logger.FieldSegmentID, req.SegmentID,
		"new_segment_id", res.Second.ID,
		"split_time", res.SplitTime,
	))
	return res, nil
}
