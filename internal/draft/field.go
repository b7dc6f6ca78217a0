package draft

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Handle identifies a page for the lifetime of a session. Handles are never
// persisted.
type Handle string

func newHandle() Handle {
	return Handle(uuid.NewString())
}

// FieldKind names a live-editable page field.
type FieldKind int

const (
	FieldWarpText FieldKind = iota
	FieldWeftText
	FieldDensity
)

// Field addresses one live-editable value of a page. Index selects the yarn
// for the text kinds and is ignored for FieldDensity.
type Field struct {
	Kind  FieldKind
	Index int
}

// WarpText addresses the text of warp yarn i.
func WarpText(i int) Field { return Field{Kind: FieldWarpText, Index: i} }

// WeftText addresses the text of weft yarn i.
func WeftText(i int) Field { return Field{Kind: FieldWeftText, Index: i} }

// Density addresses the actual density of a page.
func Density() Field { return Field{Kind: FieldDensity} }

func (f Field) String() string {
	switch f.Kind {
	case FieldWarpText:
		return fmt.Sprintf("warp[%d].text", f.Index)
	case FieldWeftText:
		return fmt.Sprintf("weft[%d].text", f.Index)
	case FieldDensity:
		return "density"
	}
	return fmt.Sprintf("field(%d)", f.Kind)
}

// FieldSource supplies the live value of a page field on demand.
//
// ok is false when the source holds no live value for the field; the page
// keeps its in-memory value in that case.
type FieldSource interface {
	Value(page Handle, field Field) (value string, ok bool)
}

type nopSource struct{}

func (nopSource) Value(Handle, Field) (string, bool) { return "", false }

// StaticSource is a FieldSource backed by a map. It is safe for concurrent
// use, so a caller may keep typing into it while a save is running.
type StaticSource struct {
	mu     sync.RWMutex
	values map[Handle]map[Field]string
}

// NewStaticSource returns an empty StaticSource.
func NewStaticSource() *StaticSource {
	return &StaticSource{values: make(map[Handle]map[Field]string)}
}

// Set stores the live value of field on page.
func (s *StaticSource) Set(page Handle, field Field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.values[page]
	if !ok {
		fields = make(map[Field]string)
		s.values[page] = fields
	}
	fields[field] = value
}

// Forget drops every live value held for page.
func (s *StaticSource) Forget(page Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, page)
}

// Value implements FieldSource.
func (s *StaticSource) Value(page Handle, field Field) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[page][field]
	return v, ok
}
