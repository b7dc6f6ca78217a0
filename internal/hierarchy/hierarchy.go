package hierarchy

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/jacquard/internal/model"
	"github.com/roach88/jacquard/internal/store"
)

// Repository is the part of the entity store the service needs.
// *store.Store implements it.
type Repository interface {
	GetProject(ctx context.Context, id model.ID) (model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	UpdateProject(ctx context.Context, p model.Project) error
	DeleteProject(ctx context.Context, id model.ID) error

	GetRecord(ctx context.Context, id model.ID) (model.Record, error)
	ListRecords(ctx context.Context) ([]model.Record, error)
	UpdateRecord(ctx context.Context, r model.Record) error
	DeleteRecord(ctx context.Context, id model.ID) error
	RecordsByIndex(ctx context.Context, idx store.Index, value any) ([]model.Record, error)
}

var _ Repository = (*store.Store)(nil)

// Service maintains project membership of records.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New creates a Service over repo.
func New(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SortNewestFirst orders records by timestamp, newest first, breaking ties
// by descending ID.
func SortNewestFirst(records []model.Record) {
	slices.SortStableFunc(records, func(a, b model.Record) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

// SortProjectsNewestFirst orders projects by timestamp, most recent first,
// breaking ties by descending ID.
func SortProjectsNewestFirst(projects []model.Project) {
	slices.SortStableFunc(projects, func(a, b model.Project) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

// ListRecordsInProject returns the records of project, newest first.
// A nil project lists the ungrouped records.
func (s *Service) ListRecordsInProject(ctx context.Context, project *model.ID) ([]model.Record, error) {
	records, err := s.repo.RecordsByIndex(ctx, store.IndexProjectID, project)
	if err != nil {
		return nil, fmt.Errorf("list records in project: %w", err)
	}
	SortNewestFirst(records)
	return records, nil
}

// CascadeReport describes a completed cascade delete.
type CascadeReport struct {
	ProjectID      model.ID `json:"project_id"`
	RecordsDeleted int      `json:"records_deleted"`
}

// DeleteProjectCascade deletes every record of the project and then the
// project itself. Deleting a project that does not exist succeeds with an
// empty report.
func (s *Service) DeleteProjectCascade(ctx context.Context, id model.ID) (CascadeReport, error) {
	report := CascadeReport{ProjectID: id}

	children, err := s.repo.RecordsByIndex(ctx, store.IndexProjectID, id)
	if err != nil {
		return report, fmt.Errorf("cascade delete of project %d: %w", id, err)
	}

	for _, r := range children {
		if err := s.repo.DeleteRecord(ctx, r.ID); err != nil {
			s.log.Warn().
				Int64("project", int64(id)).
				Int64("record", int64(r.ID)).
				Int("deleted", report.RecordsDeleted).
				Int("total", len(children)).
				Err(err).
				Msg("cascade delete interrupted")
			return report, &CascadeError{
				ProjectID: id,
				Deleted:   report.RecordsDeleted,
				Total:     len(children),
				Err:       err,
			}
		}
		report.RecordsDeleted++
	}

	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return report, &CascadeError{
			ProjectID: id,
			Deleted:   report.RecordsDeleted,
			Total:     len(children),
			Err:       err,
		}
	}

	s.log.Info().Int64("project", int64(id)).Int("records", report.RecordsDeleted).Msg("project deleted")
	return report, nil
}

// RenameProject changes a project's name. Child records are not touched.
func (s *Service) RenameProject(ctx context.Context, id model.ID, name string) (model.Project, error) {
	name = model.NormalizeName(name)
	if name == "" {
		return model.Project{}, ErrEmptyName
	}

	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return model.Project{}, err
	}
	p.Name = name
	if err := s.repo.UpdateProject(ctx, p); err != nil {
		return model.Project{}, err
	}
	return s.repo.GetProject(ctx, id)
}

// RenameRecord changes a record's name. An empty name clears it.
func (s *Service) RenameRecord(ctx context.Context, id model.ID, name string) (model.Record, error) {
	r, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return model.Record{}, err
	}
	r.Name = name
	if err := s.repo.UpdateRecord(ctx, r); err != nil {
		return model.Record{}, err
	}
	return s.repo.GetRecord(ctx, id)
}

// MoveRecord assigns a record to project, or ungroups it when project is
// nil. The target project must exist.
func (s *Service) MoveRecord(ctx context.Context, id model.ID, project *model.ID) (model.Record, error) {
	if project != nil {
		if _, err := s.repo.GetProject(ctx, *project); err != nil {
			return model.Record{}, err
		}
	}

	r, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return model.Record{}, err
	}
	if model.SameProject(r.ProjectID, project) {
		return r, nil
	}
	r.ProjectID = project
	if err := s.repo.UpdateRecord(ctx, r); err != nil {
		return model.Record{}, err
	}
	return s.repo.GetRecord(ctx, id)
}

// ProjectSummary is one entry of the project gallery.
type ProjectSummary struct {
	// Project is nil for the ungrouped bucket.
	Project *model.Project `json:"project"`

	Records int `json:"records"`

	// Latest is the newest record timestamp, zero when the bucket is empty.
	Latest time.Time `json:"latest"`
}

// ProjectSummaries counts the records of every project, newest project
// first, followed by the ungrouped bucket. Orphaned records (whose project
// no longer exists) are not counted anywhere.
func (s *Service) ProjectSummaries(ctx context.Context) ([]ProjectSummary, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("project summaries: %w", err)
	}
	records, err := s.repo.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("project summaries: %w", err)
	}

	SortProjectsNewestFirst(projects)

	index := make(map[model.ID]int, len(projects))
	out := make([]ProjectSummary, 0, len(projects)+1)
	for i := range projects {
		index[projects[i].ID] = i
		out = append(out, ProjectSummary{Project: &projects[i]})
	}
	out = append(out, ProjectSummary{})
	ungrouped := len(out) - 1

	for _, r := range records {
		slot := ungrouped
		if r.ProjectID != nil {
			i, ok := index[*r.ProjectID]
			if !ok {
				continue
			}
			slot = i
		}
		out[slot].Records++
		if r.Timestamp.After(out[slot].Latest) {
			out[slot].Latest = r.Timestamp
		}
	}
	return out, nil
}
