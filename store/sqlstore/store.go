// Package sqlstore implements speaker.Store on GORM. It runs against SQLite
// and PostgreSQL with the schema in migrations/.
package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/speakerid/database"
	"github.com/kbukum/speakerid/database/migration"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/resilience"
	"github.com/kbukum/speakerid/speaker"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrations returns the schema migrations for a database driver.
func Migrations(driver string) (migration.Source, error) {
	switch driver {
	case database.DriverSQLite, database.DriverPostgres:
		return migration.Source{FS: migrationsFS, Path: "migrations/" + driver}, nil
	default:
		return migration.Source{}, fmt.Errorf("no migrations for driver %q", driver)
	}
}

// Store is a speaker.Store backed by a GORM connection.
type Store struct {
	db   *gorm.DB
	log  *logger.Logger
	inTx bool
}

var _ speaker.Store = (*Store)(nil)

// New creates a store over db.
func New(db *database.DB, log *logger.Logger) *Store {
	return &Store{db: db.GormDB, log: log.WithComponent("sqlstore")}
}

// txRetry reruns a whole transaction that lost a lock or serialization race.
var txRetry = resilience.RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 25 * time.Millisecond,
	MaxBackoff:     250 * time.Millisecond,
	BackoffFactor:  2,
	Jitter:         0.2,
	RetryIf:        retryableTx,
}

// WithinTx runs fn in a database transaction, rerunning it from the start
// when the database reports a transient lock or serialization failure. On a
// transaction-bound store fn joins the open transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx speaker.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return resilience.RetryFunc(ctx, txRetry, func() error {
		return database.WithTransaction(ctx, s.db, s.log, func(tx *gorm.DB) error {
			return fn(&Store{db: tx, log: s.log, inTx: true})
		})
	})
}

// retryableTx accepts only persistence failures flagged retryable; domain
// errors such as conflicts are final.
func retryableTx(err error) bool {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Code == apperrors.ErrCodeDatabaseError && appErr.Retryable
	}
	return database.IsRetryableError(err)
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func storeErr(err error, resource, id string) error {
	if database.IsNotFoundError(err) {
		return apperrors.NotFound(resource, id)
	}
	return database.FromDatabase(err, resource)
}

func idString(id int64) string { return strconv.FormatInt(id, 10) }

// --- people ---

func (s *Store) GetPerson(ctx context.Context, id uuid.UUID) (*speaker.Person, error) {
	return s.getPerson(s.conn(ctx), id)
}

// LockPerson takes a row lock on PostgreSQL when called inside a
// transaction. SQLite transactions already serialize writers.
func (s *Store) LockPerson(ctx context.Context, id uuid.UUID) (*speaker.Person, error) {
	q := s.conn(ctx)
	if s.inTx && q.Dialector.Name() == database.DriverPostgres {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return s.getPerson(q, id)
}

func (s *Store) getPerson(q *gorm.DB, id uuid.UUID) (*speaker.Person, error) {
	var row personRow
	if err := q.Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, storeErr(err, "person", id.String())
	}
	return row.toPerson(), nil
}

func (s *Store) ListPeople(ctx context.Context, ids []uuid.UUID) ([]speaker.Person, error) {
	if len(ids) == 0 {
		return []speaker.Person{}, nil
	}
	var rows []personRow
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err, "person")
	}
	out := make([]speaker.Person, len(rows))
	for i, r := range rows {
		out[i] = *r.toPerson()
	}
	return out, nil
}

func (s *Store) CreatePerson(ctx context.Context, name string, isCouncillor bool) (*speaker.Person, error) {
	row := personRow{Name: name, IsCouncillor: isCouncillor}
	if err := s.conn(ctx).Create(&row).Error; err != nil {
		return nil, database.FromDatabase(err, "person")
	}
	return row.toPerson(), nil
}

// --- meetings ---

func (s *Store) GetMeeting(ctx context.Context, id int64) (*speaker.Meeting, error) {
	var row meetingRow
	if err := s.conn(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, storeErr(err, "meeting", idString(id))
	}
	return row.toMeeting(), nil
}

func (s *Store) CreateMeeting(ctx context.Context, m *speaker.Meeting) error {
	row := meetingRow{Title: m.Title}
	if len(m.DiarizationHints) > 0 {
		hints := string(m.DiarizationHints)
		row.DiarizationHints = &hints
	}
	if err := s.conn(ctx).Create(&row).Error; err != nil {
		return database.FromDatabase(err, "meeting")
	}
	m.ID = row.ID
	return nil
}

// --- aliases ---

func (s *Store) GetAlias(ctx context.Context, meetingID int64, label string) (*speaker.Person, error) {
	var row aliasRow
	err := s.conn(ctx).
		Where("meeting_id = ? AND speaker_label = ?", meetingID, label).
		Take(&row).Error
	if database.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, database.FromDatabase(err, "alias")
	}
	return s.GetPerson(ctx, row.PersonID)
}

// UpsertAlias inserts the alias or repoints it with
// ON CONFLICT (meeting_id, speaker_label) DO UPDATE.
func (s *Store) UpsertAlias(ctx context.Context, meetingID int64, label string, personID uuid.UUID) error {
	row := aliasRow{MeetingID: meetingID, SpeakerLabel: label, PersonID: personID}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "meeting_id"}, {Name: "speaker_label"}},
		DoUpdates: clause.AssignmentColumns([]string{"person_id", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return database.FromDatabase(err, "alias")
	}
	return nil
}

func (s *Store) FindAliasByPerson(ctx context.Context, meetingID int64, personID uuid.UUID) (*speaker.Alias, error) {
	var row aliasRow
	err := s.conn(ctx).
		Where("meeting_id = ? AND person_id = ?", meetingID, personID).
		Order("speaker_label").
		Take(&row).Error
	if database.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, database.FromDatabase(err, "alias")
	}
	a := row.toAlias()
	return &a, nil
}

func (s *Store) ListAliases(ctx context.Context, meetingID int64) ([]speaker.Alias, error) {
	var rows []aliasRow
	if err := s.conn(ctx).Where("meeting_id = ?", meetingID).Order("speaker_label").Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err, "alias")
	}
	out := make([]speaker.Alias, len(rows))
	for i, r := range rows {
		out[i] = r.toAlias()
	}
	return out, nil
}

// --- fingerprints ---

func (s *Store) GetFingerprint(ctx context.Context, personID uuid.UUID) (*speaker.Fingerprint, error) {
	var row fingerprintRow
	err := s.conn(ctx).Where("person_id = ?", personID).Take(&row).Error
	if database.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, database.FromDatabase(err, "fingerprint")
	}
	return row.toFingerprint(), nil
}

// CreateFingerprint inserts with ON CONFLICT (person_id) DO NOTHING, so a
// concurrent first save cannot overwrite another.
func (s *Store) CreateFingerprint(ctx context.Context, personID uuid.UUID, emb []float32, confidence float64, sourceMeetingID int64) (*speaker.Fingerprint, error) {
	row := fingerprintRow{
		PersonID:        personID,
		Embedding:       embedding(emb),
		Confidence:      confidence,
		SourceMeetingID: nullableID(sourceMeetingID),
	}
	res := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "person_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return nil, database.FromDatabase(res.Error, "fingerprint")
	}
	if res.RowsAffected == 0 {
		return nil, speaker.ErrFingerprintExists
	}
	return row.toFingerprint(), nil
}

func (s *Store) UpdateFingerprint(ctx context.Context, fingerprintID int64, emb []float32, confidence float64, sourceMeetingID int64) (*speaker.Fingerprint, error) {
	res := s.conn(ctx).Model(&fingerprintRow{}).Where("id = ?", fingerprintID).Updates(map[string]interface{}{
		"embedding":         embedding(emb),
		"confidence":        confidence,
		"source_meeting_id": nullExpr(nullableID(sourceMeetingID)),
		"updated_at":        time.Now().UTC(),
	})
	if res.Error != nil {
		return nil, database.FromDatabase(res.Error, "fingerprint")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("fingerprint", idString(fingerprintID))
	}
	var row fingerprintRow
	if err := s.conn(ctx).Where("id = ?", fingerprintID).Take(&row).Error; err != nil {
		return nil, storeErr(err, "fingerprint", idString(fingerprintID))
	}
	return row.toFingerprint(), nil
}

func (s *Store) ListFingerprints(ctx context.Context) ([]speaker.Fingerprint, error) {
	var rows []fingerprintRow
	if err := s.conn(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err, "fingerprint")
	}
	out := make([]speaker.Fingerprint, len(rows))
	for i, r := range rows {
		out[i] = *r.toFingerprint()
	}
	return out, nil
}

// --- segments ---

func (s *Store) GetSegment(ctx context.Context, id int64) (*speaker.Segment, error) {
	var row segmentRow
	if err := s.conn(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, storeErr(err, "segment", idString(id))
	}
	seg := row.toSegment()
	return &seg, nil
}

// ListSegments returns segments in the order of ids.
func (s *Store) ListSegments(ctx context.Context, ids []int64) ([]speaker.Segment, error) {
	if len(ids) == 0 {
		return []speaker.Segment{}, nil
	}
	var rows []segmentRow
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err, "segment")
	}
	byID := make(map[int64]segmentRow, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]speaker.Segment, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, apperrors.NotFound("segment", idString(id))
		}
		out = append(out, r.toSegment())
	}
	return out, nil
}

func (s *Store) ListMeetingSegments(ctx context.Context, meetingID int64) ([]speaker.Segment, error) {
	var rows []segmentRow
	err := s.conn(ctx).
		Where("meeting_id = ?", meetingID).
		Order("start_time, id").
		Find(&rows).Error
	if err != nil {
		return nil, database.FromDatabase(err, "segment")
	}
	out := make([]speaker.Segment, len(rows))
	for i, r := range rows {
		out[i] = r.toSegment()
	}
	return out, nil
}

func (s *Store) FindSegmentByPerson(ctx context.Context, meetingID int64, personID uuid.UUID) (*speaker.Segment, error) {
	var row segmentRow
	err := s.conn(ctx).
		Where("meeting_id = ? AND person_id = ?", meetingID, personID).
		Order("start_time, id").
		Take(&row).Error
	if database.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, database.FromDatabase(err, "segment")
	}
	seg := row.toSegment()
	return &seg, nil
}

func (s *Store) BulkSetSegmentIdentity(ctx context.Context, ids []int64, personID *uuid.UUID, label string) error {
	want := uniqueCount(ids)
	if want == 0 {
		return nil
	}
	res := s.conn(ctx).Model(&segmentRow{}).Where("id IN ?", ids).Updates(map[string]interface{}{
		"speaker_name": label,
		"person_id":    nullExpr(personID),
	})
	if res.Error != nil {
		return database.FromDatabase(res.Error, "segment")
	}
	if res.RowsAffected < int64(want) {
		return apperrors.NotFound("segment", "")
	}
	return nil
}

func (s *Store) SetLabelIdentity(ctx context.Context, meetingID int64, label string, personID uuid.UUID) (int64, error) {
	res := s.conn(ctx).Model(&segmentRow{}).
		Where("meeting_id = ? AND speaker_name = ?", meetingID, label).
		Update("person_id", personID)
	if res.Error != nil {
		return 0, database.FromDatabase(res.Error, "segment")
	}
	return res.RowsAffected, nil
}

func (s *Store) UpdateSegmentBounds(ctx context.Context, id int64, start, end float64, text string) error {
	res := s.conn(ctx).Model(&segmentRow{}).Where("id = ?", id).Updates(map[string]interface{}{
		"start_time":   start,
		"end_time":     end,
		"text_content": text,
	})
	if res.Error != nil {
		return database.FromDatabase(res.Error, "segment")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("segment", idString(id))
	}
	return nil
}

func (s *Store) CreateSegment(ctx context.Context, seg *speaker.Segment) error {
	row := newSegmentRow(seg)
	if err := s.conn(ctx).Create(&row).Error; err != nil {
		return database.FromDatabase(err, "segment")
	}
	seg.ID = row.ID
	return nil
}

// nullExpr turns a nil pointer into SQL NULL for map updates.
func nullExpr[T any](v *T) interface{} {
	if v == nil {
		return gorm.Expr("NULL")
	}
	return *v
}

func uniqueCount(ids []int64) int {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
