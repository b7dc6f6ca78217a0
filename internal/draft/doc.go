// Package draft holds the in-memory working set of a record being composed
// or edited, and reconciles it with the store on save.
//
// A Session is one editing session. It owns an ordered list of pages, each
// tagged with an ephemeral Handle. Some page fields (yarn texts, density)
// may be edited live by the caller without updating the page; Save pulls
// those values through a FieldSource before validating anything.
//
// Save runs the pipeline
//
//	Composing → Reconciling → Validating → Persisting → Committed
//
// and returns to Composing on any failure. Validation is all or nothing:
// a working set with any page missing its EP image is never written.
//
// A Session is not safe for concurrent use.
package draft
