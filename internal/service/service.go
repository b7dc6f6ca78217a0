// Package service is the entry point used by callers that present the
// record hierarchy: listing, editing sessions, mutations and export.
// It wires the store, the hierarchy service, the duplicator and the export
// walk behind one value.
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/jacquard/internal/draft"
	"github.com/roach88/jacquard/internal/duplicate"
	"github.com/roach88/jacquard/internal/export"
	"github.com/roach88/jacquard/internal/hierarchy"
	"github.com/roach88/jacquard/internal/model"
	"github.com/roach88/jacquard/internal/store"
)

// Service exposes the operations on an opened store.
type Service struct {
	store     *store.Store
	hierarchy *hierarchy.Service
	dup       duplicate.Duplicator
	log       zerolog.Logger
	now       func() time.Time
}

type options struct {
	log    zerolog.Logger
	now    func() time.Time
	suffix string
}

// Option configures a Service.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock sets the clock used to stamp copies and export documents.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCopySuffix sets the marker appended to the names of copies.
func WithCopySuffix(suffix string) Option {
	return func(o *options) { o.suffix = suffix }
}

// New creates a Service over st.
func New(st *store.Store, opts ...Option) *Service {
	o := options{log: zerolog.Nop(), now: time.Now, suffix: duplicate.DefaultSuffix}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		store:     st,
		hierarchy: hierarchy.New(st, hierarchy.WithLogger(o.log)),
		dup:       duplicate.Duplicator{Suffix: o.suffix, Now: o.now},
		log:       o.log,
		now:       o.now,
	}
}

// ListProjects returns every project, most recently touched first.
func (s *Service) ListProjects(ctx context.Context) ([]model.Project, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	hierarchy.SortProjectsNewestFirst(projects)
	return projects, nil
}

// CreateProject stores a new project.
func (s *Service) CreateProject(ctx context.Context, name string) (model.Project, error) {
	if model.NormalizeName(name) == "" {
		return model.Project{}, hierarchy.ErrEmptyName
	}
	id, err := s.store.InsertProject(ctx, model.Project{Name: name})
	if err != nil {
		return model.Project{}, err
	}
	s.log.Info().Int64("project", int64(id)).Msg("project created")
	return s.store.GetProject(ctx, id)
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, id model.ID) (model.Project, error) {
	return s.store.GetProject(ctx, id)
}

// GetRecord returns one record.
func (s *Service) GetRecord(ctx context.Context, id model.ID) (model.Record, error) {
	return s.store.GetRecord(ctx, id)
}

// ListRecordsInProject lists a project's records, newest first. A nil
// project lists the ungrouped records.
func (s *Service) ListRecordsInProject(ctx context.Context, project *model.ID) ([]model.Record, error) {
	return s.hierarchy.ListRecordsInProject(ctx, project)
}

// ProjectSummaries counts the records of every project and of the
// ungrouped bucket.
func (s *Service) ProjectSummaries(ctx context.Context) ([]hierarchy.ProjectSummary, error) {
	return s.hierarchy.ProjectSummaries(ctx)
}

// NewSession starts an editing session composing a fresh record. source
// supplies live field values; nil means there are none.
func (s *Service) NewSession(source draft.FieldSource) *draft.Session {
	return draft.New(s.store, source, draft.WithLogger(s.log), draft.WithClock(s.now))
}

// DeleteRecord deletes one record. Deleting a missing record succeeds.
func (s *Service) DeleteRecord(ctx context.Context, id model.ID) error {
	if err := s.store.DeleteRecord(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("record", int64(id)).Msg("record deleted")
	return nil
}

// DeleteProjectCascade deletes a project and all of its records.
func (s *Service) DeleteProjectCascade(ctx context.Context, id model.ID) (hierarchy.CascadeReport, error) {
	return s.hierarchy.DeleteProjectCascade(ctx, id)
}

// RenameProject renames a project.
func (s *Service) RenameProject(ctx context.Context, id model.ID, name string) (model.Project, error) {
	return s.hierarchy.RenameProject(ctx, id, name)
}

// RenameRecord renames a record.
func (s *Service) RenameRecord(ctx context.Context, id model.ID, name string) (model.Record, error) {
	return s.hierarchy.RenameRecord(ctx, id, name)
}

// MoveRecord files a record under project, or ungroups it when nil.
func (s *Service) MoveRecord(ctx context.Context, id model.ID, project *model.ID) (model.Record, error) {
	return s.hierarchy.MoveRecord(ctx, id, project)
}

// DuplicateProject stores a renamed copy of a project. Records are not
// copied.
func (s *Service) DuplicateProject(ctx context.Context, id model.ID) (model.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return model.Project{}, err
	}
	newID, err := s.store.InsertProject(ctx, s.dup.Project(p))
	if err != nil {
		return model.Project{}, err
	}
	return s.store.GetProject(ctx, newID)
}

// DuplicateRecord stores a copy of a record in the same project.
func (s *Service) DuplicateRecord(ctx context.Context, id model.ID) (model.Record, error) {
	r, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return model.Record{}, err
	}
	return s.insertCopy(ctx, s.dup.Record(r))
}

// DuplicateRecordInto stores a copy of a record in project (nil =
// ungrouped), as pasting into the project being viewed does.
func (s *Service) DuplicateRecordInto(ctx context.Context, id model.ID, project *model.ID) (model.Record, error) {
	if project != nil {
		if _, err := s.store.GetProject(ctx, *project); err != nil {
			return model.Record{}, err
		}
	}
	r, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return model.Record{}, err
	}
	c := s.dup.Record(r)
	c.ProjectID = project
	return s.insertCopy(ctx, c)
}

func (s *Service) insertCopy(ctx context.Context, r model.Record) (model.Record, error) {
	newID, err := s.store.InsertRecord(ctx, r)
	if err != nil {
		return model.Record{}, err
	}
	s.log.Info().Int64("record", int64(newID)).Msg("record copied")
	return s.store.GetRecord(ctx, newID)
}

// SearchRecords returns the records whose name contains term, newest first.
func (s *Service) SearchRecords(ctx context.Context, term string) ([]model.Record, error) {
	records, err := s.store.SearchRecords(ctx, term)
	if err != nil {
		return nil, err
	}
	hierarchy.SortNewestFirst(records)
	return records, nil
}

// RecordsOnDate returns the records last saved on date (YYYY-MM-DD),
// newest first.
func (s *Service) RecordsOnDate(ctx context.Context, date string) ([]model.Record, error) {
	records, err := s.store.RecordsOnDate(ctx, date)
	if err != nil {
		return nil, err
	}
	hierarchy.SortNewestFirst(records)
	return records, nil
}

// RecordSummary returns the export summary of one record.
func (s *Service) RecordSummary(ctx context.Context, id model.ID) (export.RecordSummary, error) {
	r, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return export.RecordSummary{}, err
	}
	projects := map[model.ID]string{}
	if r.ProjectID != nil {
		p, err := s.store.GetProject(ctx, *r.ProjectID)
		switch {
		case err == nil:
			projects[p.ID] = p.Name
		case !store.IsNotFound(err):
			return export.RecordSummary{}, err
		}
	}
	legacy, err := s.store.LegacyMedia(ctx, id)
	if err != nil {
		return export.RecordSummary{}, err
	}
	return export.SummarizeRecord(r, projects, len(legacy)), nil
}

// Summaries returns the export summary of every record matching filter
// (an empty filter matches all).
func (s *Service) Summaries(ctx context.Context, filter string) ([]export.RecordSummary, error) {
	f, err := export.NewFilter(filter)
	if err != nil {
		return nil, err
	}
	records, err := export.Summarize(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return f.Apply(records)
}

// Export writes the summary of every record matching filter to w and
// returns how many records were written.
func (s *Service) Export(ctx context.Context, w io.Writer, format export.Format, filter string) (int, error) {
	records, err := s.Summaries(ctx, filter)
	if err != nil {
		return 0, err
	}
	doc := export.Document{ExportedAt: s.now().UTC().Truncate(time.Second), Records: records}
	if err := export.Encode(w, format, doc); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	s.log.Info().Int("records", len(records)).Str("format", string(format)).Msg("export written")
	return len(records), nil
}
