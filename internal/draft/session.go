package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/jacquard/internal/model"
	"github.com/roach88/jacquard/internal/store"
)

// Store is the part of the entity store a session writes through.
// *store.Store implements it.
type Store interface {
	GetRecord(ctx context.Context, id model.ID) (model.Record, error)
	InsertRecord(ctx context.Context, r model.Record) (model.ID, error)
	UpdateRecord(ctx context.Context, r model.Record) error
}

var _ Store = (*store.Store)(nil)

type workingPage struct {
	handle Handle
	page   model.Page
}

// Session is the working set of one record being composed or edited.
type Session struct {
	store  Store
	source FieldSource
	log    zerolog.Logger
	now    func() time.Time

	state State

	// activeID is the record being edited, zero for a fresh record.
	activeID model.ID
	project  *model.ID
	name     string
	pages    []workingPage

	// nameSet and projectSet mark fields changed since the record was
	// opened or last saved. Only those overwrite the stored record.
	nameSet    bool
	projectSet bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithClock sets the clock used to stamp media captured through a draft file.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session composing a fresh, ungrouped record with one blank
// page. A nil source never supplies live values.
func New(st Store, source FieldSource, opts ...Option) *Session {
	if source == nil {
		source = nopSource{}
	}
	s := &Session{
		store:  st,
		source: source,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.BeginNewRecord(nil)
	return s
}

func blankPage() model.Page {
	return model.Page{
		WarpYarns: []model.YarnEntry{},
		WeftYarns: []model.YarnEntry{},
		Problems:  []model.MediaEntry{},
		Products:  []model.MediaEntry{},
	}
}

// BeginNewRecord discards the working set and starts a fresh record with
// one blank page, to be filed under project (nil = ungrouped).
func (s *Session) BeginNewRecord(project *model.ID) {
	s.activeID = 0
	s.project = cloneRef(project)
	s.name = ""
	s.nameSet, s.projectSet = false, false
	s.pages = []workingPage{{handle: newHandle(), page: blankPage()}}
	s.state = Composing
}

// BeginEdit starts editing r as already loaded by the caller, typically
// from a listing. The store is not consulted, so r may have been deleted
// since; Save then stores the working set as a new record.
func (s *Session) BeginEdit(r model.Record) {
	s.activeID = r.ID
	s.project = cloneRef(r.ProjectID)
	s.name = r.Name
	s.nameSet, s.projectSet = false, false
	s.pages = make([]workingPage, 0, max(len(r.Pages), 1))
	for _, p := range r.Pages {
		s.pages = append(s.pages, workingPage{handle: newHandle(), page: model.ClonePage(p)})
	}
	if len(s.pages) == 0 {
		s.pages = append(s.pages, workingPage{handle: newHandle(), page: blankPage()})
	}
	s.state = Composing
}

// BeginEditRecord loads record id from the store and starts editing it.
// If the record does not exist the session is left unchanged and the store's
// NOT_FOUND error is returned.
func (s *Session) BeginEditRecord(ctx context.Context, id model.ID) error {
	r, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	s.BeginEdit(r)
	return nil
}

// Reset returns to one blank page with no identity. The selected project is
// kept.
func (s *Session) Reset() {
	s.BeginNewRecord(s.project)
}

// State returns the session's pipeline state.
func (s *Session) State() State { return s.state }

// ActiveID returns the record being edited, zero for a fresh record.
func (s *Session) ActiveID() model.ID { return s.activeID }

// Project returns the project new records are filed under.
func (s *Session) Project() *model.ID { return cloneRef(s.project) }

// SetProject selects the project the record is saved under.
func (s *Session) SetProject(project *model.ID) {
	s.touch()
	s.project = cloneRef(project)
	s.projectSet = true
}

// Name returns the record name.
func (s *Session) Name() string { return s.name }

// SetName sets the record name.
func (s *Session) SetName(name string) {
	s.touch()
	s.name = name
	s.nameSet = true
}

// Len returns the number of pages in the working set.
func (s *Session) Len() int { return len(s.pages) }

// Handles returns the page handles in page order.
func (s *Session) Handles() []Handle {
	out := make([]Handle, len(s.pages))
	for i, wp := range s.pages {
		out[i] = wp.handle
	}
	return out
}

// Page returns a copy of page i as currently held in memory. Live values
// not yet reconciled are not included.
func (s *Session) Page(i int) (model.Page, error) {
	if err := s.checkPage(i); err != nil {
		return model.Page{}, err
	}
	return model.ClonePage(s.pages[i].page), nil
}

// Pages returns a copy of every page.
func (s *Session) Pages() []model.Page {
	out := make([]model.Page, len(s.pages))
	for i, wp := range s.pages {
		out[i] = model.ClonePage(wp.page)
	}
	return out
}

// AddPage appends a page and returns its handle. The last page is
// reconciled first, then the new page copies its EP image, yarns and
// density. Problems and products start empty.
func (s *Session) AddPage() Handle {
	s.touch()
	s.reconcile(len(s.pages) - 1)

	prev := s.pages[len(s.pages)-1].page
	next := blankPage()
	next.EPImage = prev.EPImage
	next.ActualDensity = prev.ActualDensity
	if prev.WarpYarns != nil {
		next.WarpYarns = model.CloneYarns(prev.WarpYarns)
	}
	if prev.WeftYarns != nil {
		next.WeftYarns = model.CloneYarns(prev.WeftYarns)
	}

	h := newHandle()
	s.pages = append(s.pages, workingPage{handle: h, page: next})
	return h
}

// RemovePage removes page i. The last remaining page cannot be removed.
func (s *Session) RemovePage(i int) error {
	if err := s.checkPage(i); err != nil {
		return err
	}
	if len(s.pages) == 1 {
		return ErrLastPage
	}
	s.touch()
	s.pages = append(s.pages[:i], s.pages[i+1:]...)
	return nil
}

// Reconcile pulls the live value of every field of every page from the
// field source into the working set.
func (s *Session) Reconcile() {
	for i := range s.pages {
		s.reconcile(i)
	}
}

func (s *Session) reconcile(i int) {
	wp := &s.pages[i]
	for j := range wp.page.WarpYarns {
		if v, ok := s.source.Value(wp.handle, WarpText(j)); ok {
			wp.page.WarpYarns[j].Text = v
		}
	}
	for j := range wp.page.WeftYarns {
		if v, ok := s.source.Value(wp.handle, WeftText(j)); ok {
			wp.page.WeftYarns[j].Text = v
		}
	}
	if v, ok := s.source.Value(wp.handle, Density()); ok {
		wp.page.ActualDensity = v
	}
}

// validate returns the indices of pages that cannot be saved.
func (s *Session) validate() []int {
	var bad []int
	for i, wp := range s.pages {
		if !wp.page.HasEPImage() {
			bad = append(bad, i)
		}
	}
	return bad
}

// SaveResult describes a committed save.
type SaveResult struct {
	ID model.ID `json:"id"`

	// Inserted is true when a new record was created, either because the
	// session composed a fresh record or because the edited record no
	// longer existed.
	Inserted bool `json:"inserted"`

	Pages int `json:"pages"`
}

// Save reconciles, validates and persists the working set.
//
// An invalid working set returns a *ValidationError and writes nothing.
// When editing, the stored record keeps its current name and project unless
// the session changed them, and its pages are replaced. A record that no
// longer exists is inserted as a new record. After an insert the session continues on the new
// identity. Any failure returns the session to Composing with the working
// set intact.
func (s *Session) Save(ctx context.Context) (SaveResult, error) {
	s.state = Reconciling
	s.Reconcile()

	s.state = Validating
	if bad := s.validate(); len(bad) > 0 {
		s.state = Composing
		s.log.Debug().Ints("pages", bad).Msg("save rejected: pages missing EP image")
		return SaveResult{}, &ValidationError{Indices: bad}
	}

	s.state = Persisting
	payload := model.Record{
		Name:      s.name,
		ProjectID: cloneRef(s.project),
		Pages:     s.Pages(),
	}

	res, err := s.persist(ctx, payload)
	if err != nil {
		s.state = Composing
		return SaveResult{}, err
	}

	s.activeID = res.ID
	s.nameSet, s.projectSet = false, false
	s.state = Committed
	s.log.Info().
		Int64("record", int64(res.ID)).
		Bool("inserted", res.Inserted).
		Int("pages", res.Pages).
		Msg("record saved")
	return res, nil
}

func (s *Session) persist(ctx context.Context, payload model.Record) (SaveResult, error) {
	res := SaveResult{Pages: len(payload.Pages)}

	if s.activeID != 0 {
		stored, err := s.store.GetRecord(ctx, s.activeID)
		switch {
		case err == nil:
			stored.Pages = payload.Pages
			if s.nameSet {
				stored.Name = payload.Name
			}
			if s.projectSet {
				stored.ProjectID = payload.ProjectID
			}
			if err := s.store.UpdateRecord(ctx, stored); err != nil {
				return res, fmt.Errorf("save record %d: %w", s.activeID, err)
			}
			s.name = stored.Name
			s.project = cloneRef(stored.ProjectID)
			res.ID = s.activeID
			return res, nil
		case store.IsNotFound(err):
			s.log.Warn().Int64("record", int64(s.activeID)).Msg("edited record no longer exists, saving as new")
		default:
			return res, fmt.Errorf("save record %d: %w", s.activeID, err)
		}
	}

	id, err := s.store.InsertRecord(ctx, payload)
	if err != nil {
		return res, fmt.Errorf("save new record: %w", err)
	}
	res.ID = id
	res.Inserted = true
	return res, nil
}

// touch returns a committed session to Composing before an edit.
func (s *Session) touch() {
	if s.state == Committed {
		s.state = Composing
	}
}

func (s *Session) checkPage(i int) error {
	if i < 0 || i >= len(s.pages) {
		return fmt.Errorf("%w: %d (have %d)", ErrPageIndex, i, len(s.pages))
	}
	return nil
}

func cloneRef(id *model.ID) *model.ID {
	if id == nil {
		return nil
	}
	return model.Ref(*id)
}
