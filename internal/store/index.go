package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/jacquard/internal/model"
)

// Index names a secondary lookup key.
type Index string

const (
	IndexProjectID Index = "projectId"
	IndexTimestamp Index = "timestamp"
	IndexDate      Index = "date"
	IndexName      Index = "name"
)

type indexDef struct {
	sqlName string
	column  string
}

var recordIndexes = map[Index]indexDef{
	IndexProjectID: {"idx_records_project_id", "project_id"},
	IndexTimestamp: {"idx_records_timestamp", "timestamp"},
	IndexDate:      {"idx_records_date", "date"},
	IndexName:      {"idx_records_name", "name"},
}

var projectIndexes = map[Index]indexDef{
	IndexName:      {"idx_projects_name", "name"},
	IndexTimestamp: {"idx_projects_timestamp", "timestamp"},
}

// indexKey is a lookup value converted for both the SQL path and the
// in-memory fallback.
type indexKey struct {
	arg any

	// record and project match a decoded entity during a full scan.
	record  func(model.Record) bool
	project func(model.Project) bool
}

// keyFor converts value for idx. Accepted values:
//
//	projectId: model.ID, *model.ID or nil (nil = ungrouped)
//	timestamp: time.Time
//	date:      string (YYYY-MM-DD)
//	name:      string (normalized before matching)
func keyFor(idx Index, value any) (indexKey, error) {
	switch idx {
	case IndexProjectID:
		var ref *model.ID
		switch v := value.(type) {
		case nil:
		case model.ID:
			ref = model.Ref(v)
		case *model.ID:
			if v != nil {
				ref = model.Ref(*v)
			}
		default:
			return indexKey{}, fmt.Errorf("index %s: unsupported value %T", idx, value)
		}
		var arg any
		if ref != nil {
			arg = int64(*ref)
		}
		return indexKey{
			arg:    arg,
			record: func(r model.Record) bool { return model.SameProject(r.ProjectID, ref) },
		}, nil

	case IndexTimestamp:
		t, ok := value.(time.Time)
		if !ok {
			return indexKey{}, fmt.Errorf("index %s: unsupported value %T", idx, value)
		}
		ms := toMillis(t)
		return indexKey{
			arg:     ms,
			record:  func(r model.Record) bool { return toMillis(r.Timestamp) == ms },
			project: func(p model.Project) bool { return toMillis(p.Timestamp) == ms },
		}, nil

	case IndexDate:
		d, ok := value.(string)
		if !ok {
			return indexKey{}, fmt.Errorf("index %s: unsupported value %T", idx, value)
		}
		return indexKey{
			arg:    d,
			record: func(r model.Record) bool { return r.Date == d },
		}, nil

	case IndexName:
		n, ok := value.(string)
		if !ok {
			return indexKey{}, fmt.Errorf("index %s: unsupported value %T", idx, value)
		}
		n = model.NormalizeName(n)
		return indexKey{
			arg:     n,
			record:  func(r model.Record) bool { return r.Name == n },
			project: func(p model.Project) bool { return p.Name == n },
		}, nil
	}
	return indexKey{}, fmt.Errorf("unknown index %q", idx)
}

// RecordsByIndex returns the records whose idx key equals value, ordered
// by ID.
//
// If the opened store has no such index (a layout that predates it), the
// lookup falls back to a full scan with an in-memory filter instead of
// failing.
func (s *Store) RecordsByIndex(ctx context.Context, idx Index, value any) (records []model.Record, err error) {
	def, ok := recordIndexes[idx]
	if !ok {
		return nil, fmt.Errorf("unknown record index %q", idx)
	}
	key, err := keyFor(idx, value)
	if err != nil {
		return nil, err
	}

	present, err := hasIndex(ctx, s.db, def.sqlName)
	if err != nil {
		return nil, err
	}
	if !present {
		s.log.Debug().Str("index", string(idx)).Msg("index missing, scanning records")
		all, err := s.ListRecords(ctx)
		if err != nil {
			return nil, err
		}
		out := []model.Record{}
		for _, r := range all {
			if key.record(r) {
				out = append(out, r)
			}
		}
		return out, nil
	}

	defer s.metrics.observe(recordsCollection, "query_"+string(idx), time.Now(), &err)

	// IS compares NULL as a value, so a nil project matches ungrouped rows.
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM records WHERE %s IS ? ORDER BY id ASC`, s.recordSelect(), def.column),
		key.arg)
	if err != nil {
		return nil, fmt.Errorf("query records by %s: %w", idx, err)
	}
	return s.scanRecords(rows)
}

// ProjectsByIndex returns the projects whose idx key equals value, with the
// same missing-index fallback as RecordsByIndex.
func (s *Store) ProjectsByIndex(ctx context.Context, idx Index, value any) (projects []model.Project, err error) {
	def, ok := projectIndexes[idx]
	if !ok {
		return nil, fmt.Errorf("unknown project index %q", idx)
	}
	key, err := keyFor(idx, value)
	if err != nil {
		return nil, err
	}
	if !s.cols.projects {
		return []model.Project{}, nil
	}

	present, err := hasIndex(ctx, s.db, def.sqlName)
	if err != nil {
		return nil, err
	}
	if !present {
		all, err := s.ListProjects(ctx)
		if err != nil {
			return nil, err
		}
		out := []model.Project{}
		for _, p := range all {
			if key.project(p) {
				out = append(out, p)
			}
		}
		return out, nil
	}

	defer s.metrics.observe(projectsCollection, "query_"+string(idx), time.Now(), &err)

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM projects WHERE %s IS ? ORDER BY id ASC`, projectSelect, def.column),
		key.arg)
	if err != nil {
		return nil, readFailed("query_"+string(idx), projectsCollection, err)
	}
	projects, err = scanProjects(rows)
	if err != nil {
		return nil, readFailed("query_"+string(idx), projectsCollection, err)
	}
	return projects, nil
}
