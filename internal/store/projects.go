package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/jacquard/internal/model"
)

const projectsCollection = "projects"

const projectSelect = "id, name, created_at, timestamp"

func scanProject(row rowScanner) (model.Project, error) {
	var (
		id        int64
		name      string
		createdAt int64
		ts        int64
	)
	if err := row.Scan(&id, &name, &createdAt, &ts); err != nil {
		return model.Project{}, err
	}
	return model.Project{
		ID:        model.ID(id),
		Name:      name,
		CreatedAt: fromMillis(createdAt),
		Timestamp: fromMillis(ts),
	}, nil
}

func scanProjects(rows *sql.Rows) ([]model.Project, error) {
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// InsertProject stores a new project and returns its assigned ID.
// CreatedAt and Timestamp are both set from the store clock.
func (s *Store) InsertProject(ctx context.Context, p model.Project) (id model.ID, err error) {
	defer s.metrics.observe(projectsCollection, "insert", time.Now(), &err)

	if p.ID != 0 {
		return 0, writeFailed("insert", projectsCollection, p.ID, ErrPreassignedID)
	}
	if !s.cols.projects {
		return 0, writeFailed("insert", projectsCollection, 0, errOldLayout)
	}

	now := toMillis(s.stamp())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (name, created_at, timestamp) VALUES (?, ?, ?)`,
		model.NormalizeName(p.Name), now, now)
	if err != nil {
		return 0, writeFailed("insert", projectsCollection, 0, err)
	}

	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, writeFailed("insert", projectsCollection, 0, fmt.Errorf("last insert id: %w", err))
	}

	s.log.Debug().Int64("id", lastID).Msg("project inserted")
	return model.ID(lastID), nil
}

// GetProject retrieves a single project by ID.
// Returns a NOT_FOUND *Error if no such project exists.
func (s *Store) GetProject(ctx context.Context, id model.ID) (p model.Project, err error) {
	defer s.metrics.observe(projectsCollection, "get", time.Now(), &err)

	if !s.cols.projects {
		return model.Project{}, notFound(projectsCollection, id)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectSelect+` FROM projects WHERE id = ?`, int64(id))
	p, err = scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, notFound(projectsCollection, id)
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

// ListProjects returns every project, ordered by ID. A layout without a
// projects table lists none.
func (s *Store) ListProjects(ctx context.Context) (projects []model.Project, err error) {
	defer s.metrics.observe(projectsCollection, "list", time.Now(), &err)

	if !s.cols.projects {
		return []model.Project{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectSelect+` FROM projects ORDER BY id ASC`)
	if err != nil {
		return nil, readFailed("list", projectsCollection, err)
	}
	projects, err = scanProjects(rows)
	if err != nil {
		return nil, readFailed("list", projectsCollection, err)
	}
	return projects, nil
}

// UpdateProject replaces the stored project with p (put semantics, as
// UpdateRecord). CreatedAt is kept from the stored row when one exists;
// Timestamp is refreshed.
func (s *Store) UpdateProject(ctx context.Context, p model.Project) (err error) {
	defer s.metrics.observe(projectsCollection, "update", time.Now(), &err)

	if p.ID == 0 {
		return writeFailed("update", projectsCollection, 0, ErrMissingID)
	}
	if !s.cols.projects {
		return writeFailed("update", projectsCollection, p.ID, errOldLayout)
	}

	now := toMillis(s.stamp())
	createdAt := now
	if !p.CreatedAt.IsZero() {
		createdAt = toMillis(p.CreatedAt)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, created_at, timestamp) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, timestamp = excluded.timestamp`,
		int64(p.ID), model.NormalizeName(p.Name), createdAt, now)
	if err != nil {
		return writeFailed("update", projectsCollection, p.ID, err)
	}

	s.log.Debug().Int64("id", int64(p.ID)).Msg("project updated")
	return nil
}

// DeleteProject removes a project row. It does not touch records; cascade
// is the hierarchy service's job. Deleting a missing project succeeds.
func (s *Store) DeleteProject(ctx context.Context, id model.ID) (err error) {
	defer s.metrics.observe(projectsCollection, "delete", time.Now(), &err)

	if !s.cols.projects {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, int64(id)); err != nil {
		return writeFailed("delete", projectsCollection, id, err)
	}

	s.log.Debug().Int64("id", int64(id)).Msg("project deleted")
	return nil
}
