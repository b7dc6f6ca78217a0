package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/jacquard/internal/model"
)

const recordsCollection = "records"

// errOldLayout is returned when a record carries fields the opened layout
// has no column for. Writing it would silently drop data.
var errOldLayout = errors.New("store layout predates record names and projects")

type rowScanner interface {
	Scan(dest ...any) error
}

// recordSelect returns the column list for the opened layout.
func (s *Store) recordSelect() string {
	cols := []string{"id", "timestamp", "date", "pages"}
	if s.cols.name {
		cols = append(cols, "name")
	}
	if s.cols.project {
		cols = append(cols, "project_id")
	}
	return strings.Join(cols, ", ")
}

func (s *Store) scanRecord(row rowScanner) (model.Record, error) {
	var (
		id      int64
		ts      int64
		date    string
		pages   []byte
		name    sql.NullString
		project sql.NullInt64
	)
	dest := []any{&id, &ts, &date, &pages}
	if s.cols.name {
		dest = append(dest, &name)
	}
	if s.cols.project {
		dest = append(dest, &project)
	}
	if err := row.Scan(dest...); err != nil {
		return model.Record{}, err
	}

	decoded, err := decodePages(pages)
	if err != nil {
		return model.Record{}, fmt.Errorf("record %d: %w", id, err)
	}

	rec := model.Record{
		ID:        model.ID(id),
		Name:      name.String,
		Timestamp: fromMillis(ts),
		Date:      date,
		Pages:     decoded,
	}
	if project.Valid {
		rec.ProjectID = model.Ref(model.ID(project.Int64))
	}
	return rec, nil
}

func (s *Store) scanRecords(rows *sql.Rows) ([]model.Record, error) {
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// recordValues builds the column/value lists for a write stamped at now.
func (s *Store) recordValues(r model.Record, now time.Time) ([]string, []any, error) {
	pages, err := encodePages(r.Pages)
	if err != nil {
		return nil, nil, err
	}

	cols := []string{"timestamp", "date", "pages"}
	args := []any{toMillis(now), model.DateOf(now), pages}

	name := model.NormalizeName(r.Name)
	if s.cols.name {
		cols = append(cols, "name")
		args = append(args, name)
	} else if name != "" {
		return nil, nil, errOldLayout
	}

	if s.cols.project {
		var project any
		if r.ProjectID != nil {
			project = int64(*r.ProjectID)
		}
		cols = append(cols, "project_id")
		args = append(args, project)
	} else if r.ProjectID != nil {
		return nil, nil, errOldLayout
	}
	return cols, args, nil
}

// stamp returns the write time truncated to the stored precision.
func (s *Store) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// InsertRecord stores a new record and returns its assigned ID.
// Timestamp and Date are set from the store clock; the record must not
// carry an ID.
func (s *Store) InsertRecord(ctx context.Context, r model.Record) (id model.ID, err error) {
	defer s.metrics.observe(recordsCollection, "insert", time.Now(), &err)

	if r.ID != 0 {
		return 0, writeFailed("insert", recordsCollection, r.ID, ErrPreassignedID)
	}

	cols, args, err := s.recordValues(r, s.stamp())
	if err != nil {
		return 0, writeFailed("insert", recordsCollection, 0, err)
	}

	query := fmt.Sprintf(`INSERT INTO records (%s) VALUES (%s)`,
		strings.Join(cols, ", "), placeholders(len(cols)))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, writeFailed("insert", recordsCollection, 0, err)
	}

	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, writeFailed("insert", recordsCollection, 0, fmt.Errorf("last insert id: %w", err))
	}

	s.log.Debug().Int64("id", lastID).Int("pages", len(r.Pages)).Msg("record inserted")
	return model.ID(lastID), nil
}

// GetRecord retrieves a single record by ID.
// Returns a NOT_FOUND *Error if no such record exists.
func (s *Store) GetRecord(ctx context.Context, id model.ID) (rec model.Record, err error) {
	defer s.metrics.observe(recordsCollection, "get", time.Now(), &err)

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM records WHERE id = ?`, s.recordSelect()), int64(id))
	rec, err = s.scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, notFound(recordsCollection, id)
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("get record %d: %w", id, err)
	}
	return rec, nil
}

// ListRecords returns every record, ordered by ID.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListRecords(ctx context.Context) (records []model.Record, err error) {
	defer s.metrics.observe(recordsCollection, "list", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM records ORDER BY id ASC`, s.recordSelect()))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return s.scanRecords(rows)
}

// UpdateRecord replaces the whole stored record with r.
//
// This is a put: if no record has r.ID, one is created with that ID.
// Callers that need update-only semantics must check with GetRecord first.
// Timestamp and Date are refreshed from the store clock.
func (s *Store) UpdateRecord(ctx context.Context, r model.Record) (err error) {
	defer s.metrics.observe(recordsCollection, "update", time.Now(), &err)

	if r.ID == 0 {
		return writeFailed("update", recordsCollection, 0, ErrMissingID)
	}

	cols, args, err := s.recordValues(r, s.stamp())
	if err != nil {
		return writeFailed("update", recordsCollection, r.ID, err)
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	query := fmt.Sprintf(`
		INSERT INTO records (id, %s) VALUES (?, %s)
		ON CONFLICT(id) DO UPDATE SET %s`,
		strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(sets, ", "))

	if _, err := s.db.ExecContext(ctx, query, append([]any{int64(r.ID)}, args...)...); err != nil {
		return writeFailed("update", recordsCollection, r.ID, err)
	}

	s.log.Debug().Int64("id", int64(r.ID)).Int("pages", len(r.Pages)).Msg("record updated")
	return nil
}

// DeleteRecord removes a record and any legacy media rows attached to it.
// Deleting a record that does not exist succeeds.
func (s *Store) DeleteRecord(ctx context.Context, id model.ID) (err error) {
	defer s.metrics.observe(recordsCollection, "delete", time.Now(), &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return writeFailed("delete", recordsCollection, id, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM media WHERE record_id = ?`, int64(id)); err != nil {
		return writeFailed("delete", recordsCollection, id, fmt.Errorf("delete legacy media: %w", err))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, int64(id)); err != nil {
		return writeFailed("delete", recordsCollection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return writeFailed("delete", recordsCollection, id, fmt.Errorf("commit: %w", err))
	}

	s.log.Debug().Int64("id", int64(id)).Msg("record deleted")
	return nil
}

// SearchRecords returns records whose name contains term, ignoring case.
func (s *Store) SearchRecords(ctx context.Context, term string) ([]model.Record, error) {
	all, err := s.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Record{}
	for _, r := range all {
		if model.NameContains(r.Name, term) {
			out = append(out, r)
		}
	}
	return out, nil
}

// RecordsOnDate returns the records last written on date (YYYY-MM-DD).
func (s *Store) RecordsOnDate(ctx context.Context, date string) ([]model.Record, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return s.RecordsByIndex(ctx, IndexDate, date)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
