// Package duplicate makes identity-free copies of projects and records for
// copy and paste. It never writes to the store; the caller inserts the
// result, which is when the copy gets its identity.
package duplicate

import (
	"time"

	"github.com/roach88/jacquard/internal/model"
)

// DefaultSuffix marks copied names.
const DefaultSuffix = " copy"

const (
	untitledProject = "Untitled project"
	untitledRecord  = "Untitled record"
)

// Duplicator copies entities. The zero value uses DefaultSuffix and the
// wall clock.
type Duplicator struct {
	// Suffix is appended to copied names.
	Suffix string

	// Now stamps the copies.
	Now func() time.Time
}

func (d Duplicator) suffix() string {
	if d.Suffix == "" {
		return DefaultSuffix
	}
	return d.Suffix
}

func (d Duplicator) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

func (d Duplicator) name(name, untitled string) string {
	name = model.NormalizeName(name)
	if name == "" {
		name = untitled
	}
	return name + d.suffix()
}

// Project returns a copy of p without identity, renamed and restamped.
func (d Duplicator) Project(p model.Project) model.Project {
	now := d.now()
	return model.Project{
		Name:      d.name(p.Name, untitledProject),
		CreatedAt: now,
		Timestamp: now,
	}
}

// Record returns a deep copy of r without identity, renamed and restamped.
// Pages, yarns and media are copied; blob bytes are shared. The project
// reference is kept.
func (d Duplicator) Record(r model.Record) model.Record {
	out := model.CloneRecord(r)
	out.ID = 0
	out.Name = d.name(r.Name, untitledRecord)
	out.Timestamp = d.now()
	out.Date = model.DateOf(out.Timestamp)
	return out
}
