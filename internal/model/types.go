package model

import (
	"strconv"
	"time"
)

// ID is a store-assigned identity. Zero means the entity has not been stored.
type ID int64

// String returns the decimal form of the ID.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses a decimal ID as typed on a command line.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(n), nil
}

// Ref returns a pointer to a copy of id, for use as a nullable reference.
func Ref(id ID) *ID {
	return &id
}

// SameProject reports whether two nullable project references point at the
// same project. Two nil references are equal (both ungrouped).
func SameProject(a, b *ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// DateLayout is the layout of Record.Date.
const DateLayout = "2006-01-02"

// DateOf derives the stored date string from a timestamp (UTC day).
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Project is a named grouping of records.
type Project struct {
	ID        ID        `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Timestamp is refreshed on every insert and update.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Record is one saved production entry.
//
// Timestamp and Date are owned by the store write path. Values set by the
// caller are overwritten on insert and update.
type Record struct {
	ID        ID        `json:"id" yaml:"id"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	ProjectID *ID       `json:"project_id" yaml:"project_id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Date      string    `json:"date" yaml:"date"`
	Pages     []Page    `json:"pages" yaml:"pages"`
}

// Ungrouped reports whether the record belongs to no project.
func (r Record) Ungrouped() bool {
	return r.ProjectID == nil
}

// Page is one form page of a record.
type Page struct {
	// EPImage is the encoded EP reference image. Nil means missing.
	EPImage       []byte       `json:"ep_image,omitempty" yaml:"ep_image,omitempty" cbor:"ep_image,omitempty"`
	WarpYarns     []YarnEntry  `json:"warp_yarns" yaml:"warp_yarns" cbor:"warp_yarns"`
	WeftYarns     []YarnEntry  `json:"weft_yarns" yaml:"weft_yarns" cbor:"weft_yarns"`
	ActualDensity string       `json:"actual_density" yaml:"actual_density" cbor:"actual_density"`
	Problems      []MediaEntry `json:"problems" yaml:"problems" cbor:"problems"`
	Products      []MediaEntry `json:"products" yaml:"products" cbor:"products"`
}

// HasEPImage reports whether the page carries its required EP image.
func (p Page) HasEPImage() bool {
	return len(p.EPImage) > 0
}

// YarnEntry is a labeled yarn with attached media.
type YarnEntry struct {
	Text  string       `json:"text" yaml:"text" cbor:"text"`
	Media []MediaEntry `json:"media" yaml:"media" cbor:"media"`
}

// MediaEntry is a captured blob tagged with its kind.
type MediaEntry struct {
	Kind       MediaKind `json:"kind" yaml:"kind" cbor:"kind"`
	Data       []byte    `json:"data" yaml:"data" cbor:"data"`
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at" cbor:"captured_at"`
}
