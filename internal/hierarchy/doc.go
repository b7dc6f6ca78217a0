// Package hierarchy keeps the Project → Record relationship consistent.
//
// Records reference projects by ID only. The store never checks those
// references on write; this package is where they are maintained:
//   - listing the records of one project, or of the ungrouped bucket
//   - cascade delete, children first, then the project
//   - rename and move, which touch exactly one row
//
// Cascade delete is not a transaction. Each child delete commits on its own
// and a failure part way through is reported with a *CascadeError that
// says how many children were already removed. Children go first so that an
// interrupted cascade leaves orphaned records rather than records pointing
// at a project that no longer exists.
package hierarchy
