package export

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/jacquard/internal/model"
	"github.com/roach88/jacquard/internal/store"
)

// DensityUnset stands in for a page without a recorded density.
const DensityUnset = "unset"

// Source is the read side of the store the export walks.
// *store.Store implements it.
type Source interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	ListRecords(ctx context.Context) ([]model.Record, error)
	LegacyMedia(ctx context.Context, recordID model.ID) ([]model.MediaEntry, error)
}

var _ Source = (*store.Store)(nil)

// PageSummary counts the content of one page.
type PageSummary struct {
	// Page is the 1-based page number.
	Page          int               `json:"page" yaml:"page" expr:"page"`
	WarpYarns     int               `json:"warp_yarns" yaml:"warp_yarns" expr:"warp_yarns"`
	WeftYarns     int               `json:"weft_yarns" yaml:"weft_yarns" expr:"weft_yarns"`
	ActualDensity string            `json:"actual_density" yaml:"actual_density" expr:"actual_density"`
	Problems      int               `json:"problems" yaml:"problems" expr:"problems"`
	Products      int               `json:"products" yaml:"products" expr:"products"`
	Media         model.MediaCounts `json:"media" yaml:"media" expr:"media"`
}

// RecordSummary is the export view of one record.
type RecordSummary struct {
	ID        model.ID  `json:"id" yaml:"id" expr:"id"`
	Name      string    `json:"name" yaml:"name" expr:"name"`
	ProjectID *model.ID `json:"project_id" yaml:"project_id" expr:"project_id"`

	// Project is the project name, empty for ungrouped records and for
	// records whose project no longer exists.
	Project     string        `json:"project" yaml:"project" expr:"project"`
	RecordedAt  time.Time     `json:"recorded_at" yaml:"recorded_at" expr:"recorded_at"`
	Date        string        `json:"date" yaml:"date" expr:"date"`
	PageCount   int           `json:"page_count" yaml:"page_count" expr:"page_count"`
	LegacyMedia int           `json:"legacy_media" yaml:"legacy_media" expr:"legacy_media"`
	Pages       []PageSummary `json:"pages" yaml:"pages" expr:"pages"`
}

// Document is the unit written by Encode.
type Document struct {
	ExportedAt time.Time       `json:"exported_at" yaml:"exported_at"`
	Records    []RecordSummary `json:"records" yaml:"records"`
}

// SummarizePage counts one page. number is 1-based.
func SummarizePage(number int, p model.Page) PageSummary {
	density := p.ActualDensity
	if density == "" {
		density = DensityUnset
	}
	return PageSummary{
		Page:          number,
		WarpYarns:     len(p.WarpYarns),
		WeftYarns:     len(p.WeftYarns),
		ActualDensity: density,
		Problems:      len(p.Problems),
		Products:      len(p.Products),
		Media:         model.CountMedia(p),
	}
}

// SummarizeRecord builds the summary of r. projects maps project IDs to
// names; legacy is the number of legacy media rows attached to r.
func SummarizeRecord(r model.Record, projects map[model.ID]string, legacy int) RecordSummary {
	out := RecordSummary{
		ID:          r.ID,
		Name:        r.Name,
		RecordedAt:  r.Timestamp,
		Date:        r.Date,
		PageCount:   len(r.Pages),
		LegacyMedia: legacy,
		Pages:       make([]PageSummary, len(r.Pages)),
	}
	if r.ProjectID != nil {
		out.ProjectID = model.Ref(*r.ProjectID)
		out.Project = projects[*r.ProjectID]
	}
	for i, p := range r.Pages {
		out.Pages[i] = SummarizePage(i+1, p)
	}
	return out
}

// Summarize walks every record in the store, in ID order.
func Summarize(ctx context.Context, src Source) ([]RecordSummary, error) {
	projects, err := src.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	names := make(map[model.ID]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	records, err := src.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	out := make([]RecordSummary, 0, len(records))
	for _, r := range records {
		legacy, err := src.LegacyMedia(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("export record %d: %w", r.ID, err)
		}
		out = append(out, SummarizeRecord(r, names, len(legacy)))
	}
	return out, nil
}
