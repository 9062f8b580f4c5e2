package speaker

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/observability"
	"github.com/kbukum/speakerid/similarity"
	"github.com/kbukum/speakerid/validation"
)

// confirmedConfidence is stored on fingerprints an operator confirmed.
const confirmedConfidence = 1.0

// Option configures a Service or Suggester.
type Option func(*options)

type options struct {
	log      *logger.Logger
	cache    SuggestionCache
	counters *observability.Counters
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithCache sets the suggestion cache.
func WithCache(c SuggestionCache) Option {
	return func(o *options) { o.cache = c }
}

// WithCounters sets the metric instruments.
func WithCounters(c *observability.Counters) Option {
	return func(o *options) { o.counters = c }
}

func newOptions(opts []Option) options {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Service runs the identity assignment operations.
type Service struct {
	store    Store
	matcher  *similarity.Matcher
	log      *logger.Logger
	cache    SuggestionCache
	counters *observability.Counters
}

// NewService creates the assignment service.
func NewService(store Store, matcher *similarity.Matcher, opts ...Option) *Service {
	o := newOptions(opts)
	return &Service{
		store:    store,
		matcher:  matcher,
		log:      o.log.WithComponent("speaker"),
		cache:    o.cache,
		counters: o.counters,
	}
}

// AssignAlias maps a label in a meeting to a person, creating the person
// when NewName is given, and sets that person on every segment carrying the
// label. After the alias is committed the person gets a fingerprint from the
// supplied centroid, or from the label's centroid in the meeting hints, if
// they have none yet. That step never fails the call; its outcome is
// reported in FingerprintSaved.
func (s *Service) AssignAlias(ctx context.Context, req AssignAliasRequest) (res *AssignAliasResult, err error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	v := validation.New().Embedding("centroid", req.Centroid, s.dimension())
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := validatePersonRef(req.PersonID, req.NewName); err != nil {
		return nil, err
	}

	ctx, op := observability.StartOperation(ctx, s.counters, "assign_alias",
		attribute.Int64(observability.AttrMeetingID, req.MeetingID))
	defer func() { op.End(ctx, err) }()

	label := strings.TrimSpace(req.Label)
	var meeting *Meeting
	err = s.store.WithinTx(ctx, func(tx Store) error {
		m, err := tx.GetMeeting(ctx, req.MeetingID)
		if err != nil {
			return err
		}
		meeting = m

		person, created, err := personFor(ctx, tx, req.PersonID, req.NewName, false)
		if err != nil {
			return err
		}
		// An alias stored under another spelling of the label takes
		// precedence in resolution, so it is the row to update.
		key := label
		if _, stored, err := lookupAlias(ctx, tx, req.MeetingID, label); err != nil {
			return err
		} else if stored != "" {
			key = stored
		}
		if err := tx.UpsertAlias(ctx, req.MeetingID, key, person.ID); err != nil {
			return err
		}
		n, err := tx.SetLabelIdentity(ctx, req.MeetingID, label, person.ID)
		if err != nil {
			return err
		}
		if key != label {
			m, err := tx.SetLabelIdentity(ctx, req.MeetingID, key, person.ID)
			if err != nil {
				return err
			}
			n += m
		}

		res = &AssignAliasResult{
			Alias:           Alias{MeetingID: req.MeetingID, SpeakerLabel: key, PersonID: person.ID},
			Person:          *person,
			PersonCreated:   created,
			SegmentsUpdated: n,
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.invalidateMeeting(ctx, req.MeetingID)
	res.FingerprintSaved = s.enrichFingerprint(ctx, meeting, label, res.Person.ID, req.Centroid)

	s.log.WithContext(ctx).Info("Alias assigned", logger.Fields(
		logger.FieldMeetingID, req.MeetingID,
		logger.FieldLabel, label,
		logger.FieldPersonID, res.Person.ID.String(),
		"segments_updated", res.SegmentsUpdated,
		"fingerprint_saved", res.FingerprintSaved,
	))
	return res, nil
}

// RelabelSegments sets a new label on segments of one meeting. The segments
// take the label's aliased person if the label is aliased in the meeting,
// and lose any explicit person otherwise. No alias is created.
func (s *Service) RelabelSegments(ctx context.Context, req RelabelRequest) (res *RelabelResult, err error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	ids := uniqueIDs(req.SegmentIDs)
	label := strings.TrimSpace(req.Label)

	ctx, op := observability.StartOperation(ctx, s.counters, "relabel_segments",
		attribute.Int(observability.AttrSegmentCount, len(ids)))
	defer func() { op.End(ctx, err) }()

	err = s.store.WithinTx(ctx, func(tx Store) error {
		segs, err := tx.ListSegments(ctx, ids)
		if err != nil {
			return err
		}
		meetingID, err := sameMeeting(segs)
		if err != nil {
			return err
		}

		p, _, err := lookupAlias(ctx, tx, meetingID, label)
		if err != nil {
			return err
		}
		var personID *uuid.UUID
		if p != nil {
			personID = uuidPtr(p.ID)
		}
		if err := tx.BulkSetSegmentIdentity(ctx, ids, personID, label); err != nil {
			return err
		}

		res = &RelabelResult{MeetingID: meetingID, Label: label, PersonID: personID, SegmentsUpdated: len(ids)}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.log.WithContext(ctx).Info("Segments relabeled", logger.Fields(
		logger.FieldMeetingID, res.MeetingID,
		logger.FieldLabel, label,
		"segments_updated", res.SegmentsUpdated,
		"aliased", res.PersonID != nil,
	))
	return res, nil
}

// AssignPersonSegments assigns a person to segments of one meeting. The
// label applied is the person's existing alias in the meeting, else the
// label of a segment already assigned to them, else their display name,
// which then becomes a new alias. A person already aliased in the meeting
// never receives a second alias.
func (s *Service) AssignPersonSegments(ctx context.Context, req AssignPersonRequest) (res *AssignPersonResult, err error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	if err := validatePersonRef(req.PersonID, req.NewName); err != nil {
		return nil, err
	}
	ids := uniqueIDs(req.SegmentIDs)

	ctx, op := observability.StartOperation(ctx, s.counters, "assign_person_segments",
		attribute.Int(observability.AttrSegmentCount, len(ids)))
	defer func() { op.End(ctx, err) }()

	err = s.store.WithinTx(ctx, func(tx Store) error {
		segs, err := tx.ListSegments(ctx, ids)
		if err != nil {
			return err
		}
		meetingID, err := sameMeeting(segs)
		if err != nil {
			return err
		}

		person, created, err := personFor(ctx, tx, req.PersonID, req.NewName, true)
		if err != nil {
			return err
		}
		rule, choice, err := chooseLabel(ctx, tx, meetingID, person)
		if err != nil {
			return err
		}
		if choice.createAlias {
			if err := tx.UpsertAlias(ctx, meetingID, choice.label, person.ID); err != nil {
				return err
			}
		}
		if err := tx.BulkSetSegmentIdentity(ctx, ids, uuidPtr(person.ID), choice.label); err != nil {
			return err
		}

		res = &AssignPersonResult{
			MeetingID:       meetingID,
			Person:          *person,
			PersonCreated:   created,
			Label:           choice.label,
			Rule:            rule,
			AliasCreated:    choice.createAlias,
			SegmentsUpdated: len(ids),
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	if res.AliasCreated {
		s.invalidateMeeting(ctx, res.MeetingID)
	}
	s.log.WithContext(ctx).Info("Person assigned to segments", logger.Fields(
		logger.FieldMeetingID, res.MeetingID,
		logger.FieldPersonID, res.Person.ID.String(),
		logger.FieldLabel, res.Label,
		"rule", res.Rule,
		"alias_created", res.AliasCreated,
		"segments_updated", res.SegmentsUpdated,
	))
	return res, nil
}

// RefreshFingerprint is the maintenance path for fingerprints: it creates
// the person's fingerprint or overwrites the existing one. The embedding is
// taken from the request, or from the label's centroid in a meeting's hints.
func (s *Service) RefreshFingerprint(ctx context.Context, req FingerprintRequest) (res *FingerprintResult, err error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	label := strings.TrimSpace(req.Label)
	v := validation.New().
		RequiredUUID("person_id", req.PersonID).
		Embedding("embedding", req.Embedding, s.dimension())
	if len(req.Embedding) == 0 {
		v.Custom(req.MeetingID > 0 && label != "", "embedding", "embedding or meeting_id and label is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	confidence := req.Confidence
	if confidence == 0 {
		confidence = confirmedConfidence
	}

	ctx, op := observability.StartOperation(ctx, s.counters, "refresh_fingerprint")
	defer func() { op.End(ctx, err) }()

	err = s.store.WithinTx(ctx, func(tx Store) error {
		if _, err := tx.GetPerson(ctx, req.PersonID); err != nil {
			return err
		}
		embedding := req.Embedding
		if len(embedding) == 0 {
			m, err := tx.GetMeeting(ctx, req.MeetingID)
			if err != nil {
				return err
			}
			hints, err := m.Hints(s.dimension())
			if err != nil {
				return err
			}
			c, ok := hints.Centroid(label)
			if !ok {
				return apperrors.NotFound("centroid", label)
			}
			embedding = c
		}

		existing, err := tx.GetFingerprint(ctx, req.PersonID)
		if err != nil {
			return err
		}
		if existing == nil {
			fp, err := tx.CreateFingerprint(ctx, req.PersonID, embedding, confidence, req.MeetingID)
			if err != nil {
				return err
			}
			res = &FingerprintResult{Fingerprint: *fp, Created: true}
			return nil
		}
		fp, err := tx.UpdateFingerprint(ctx, existing.ID, embedding, confidence, req.MeetingID)
		if err != nil {
			return err
		}
		res = &FingerprintResult{Fingerprint: *fp}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrFingerprintExists) {
			return nil, apperrors.Conflict("fingerprint was created concurrently, retry the request").WithCause(err)
		}
		return nil, storeError(err)
	}

	outcome := observability.FingerprintUpdated
	if res.Created {
		outcome = observability.FingerprintSaved
	}
	s.counters.RecordFingerprintSave(ctx, outcome)
	s.invalidateAll(ctx)

	s.log.WithContext(ctx).Info("Fingerprint refreshed", logger.Fields(
		logger.FieldPersonID, req.PersonID.String(),
		"created", res.Created,
		"source_meeting_id", req.MeetingID,
	))
	return res, nil
}

// CreatePerson creates a person.
func (s *Service) CreatePerson(ctx context.Context, req CreatePersonRequest) (*Person, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	p, err := s.store.CreatePerson(ctx, cleanName(req.Name), req.IsCouncillor)
	if err != nil {
		return nil, storeError(err)
	}
	s.log.WithContext(ctx).Info("Person created", logger.Fields(
		logger.FieldPersonID, p.ID.String(),
		"is_councillor", p.IsCouncillor,
	))
	return p, nil
}

// personFor loads the referenced person or creates one named newName.
func personFor(ctx context.Context, tx Store, personID *uuid.UUID, newName string, lock bool) (*Person, bool, error) {
	if personID == nil {
		p, err := tx.CreatePerson(ctx, cleanName(newName), false)
		return p, err == nil, err
	}
	if lock {
		p, err := tx.LockPerson(ctx, *personID)
		return p, false, err
	}
	p, err := tx.GetPerson(ctx, *personID)
	return p, false, err
}

// enrichFingerprint seeds a fingerprint for personID if none exists. It
// reports whether one was written and only logs failures.
func (s *Service) enrichFingerprint(ctx context.Context, meeting *Meeting, label string, personID uuid.UUID, centroid []float32) bool {
	log := s.log.WithContext(ctx)
	if len(centroid) == 0 {
		hints, err := meeting.Hints(s.dimension())
		if err != nil {
			log.Warn("Skipping fingerprint, meeting hints are invalid", logger.Fields(
				logger.FieldMeetingID, meeting.ID,
				logger.FieldError, err.Error(),
			))
			return false
		}
		c, ok := hints.Centroid(label)
		if !ok {
			return false
		}
		centroid = c
	}

	fields := logger.Fields(logger.FieldPersonID, personID.String(), logger.FieldMeetingID, meeting.ID)

	existing, err := s.store.GetFingerprint(ctx, personID)
	if err != nil {
		s.counters.RecordFingerprintSave(ctx, observability.FingerprintFailed)
		log.Warn("Fingerprint lookup failed", logger.MergeWithError(fields, err))
		return false
	}
	if existing != nil {
		s.counters.RecordFingerprintSave(ctx, observability.FingerprintExists)
		log.Debug("Fingerprint already stored, keeping it", fields)
		return false
	}

	_, err = s.store.CreateFingerprint(ctx, personID, centroid, confirmedConfidence, meeting.ID)
	switch {
	case errors.Is(err, ErrFingerprintExists):
		s.counters.RecordFingerprintSave(ctx, observability.FingerprintExists)
		return false
	case err != nil:
		s.counters.RecordFingerprintSave(ctx, observability.FingerprintFailed)
		log.Warn("Fingerprint save failed", logger.MergeWithError(fields, err))
		return false
	}

	s.counters.RecordFingerprintSave(ctx, observability.FingerprintSaved)
	s.invalidateAll(ctx)
	log.Info("Fingerprint saved", fields)
	return true
}

func (s *Service) dimension() int {
	return s.matcher.Config().Dimension
}

func (s *Service) invalidateMeeting(ctx context.Context, meetingID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateMeeting(ctx, meetingID); err != nil {
		s.log.WithContext(ctx).Warn("Suggestion cache invalidation failed", logger.Fields(
			logger.FieldMeetingID, meetingID,
			logger.FieldError, err.Error(),
		))
	}
}

func (s *Service) invalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.log.WithContext(ctx).Warn("Suggestion cache invalidation failed", logger.ErrorFields("invalidate_all", err))
	}
}

// storeError passes AppErrors through and reports anything else from the
// store as a persistence failure.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.Persistence(err)
}
