// Package model defines the entity types stored by jacquard.
//
// The hierarchy is three levels deep:
//   - Project: a named grouping of records ("stack" in older stores)
//   - Record: one saved production entry, owning an ordered list of pages
//   - Page: EP reference image, warp/weft yarns, density, problem and product media
//
// Pages, yarns and media have no identity of their own. They live inside the
// owning Record and are rewritten with it.
//
// This package imports nothing internal. Every other internal package
// imports model; model stays the foundational layer.
//
// Key constraints:
//   - IDs are assigned by the store only; zero means "not yet stored"
//   - A nil *ID project reference means "ungrouped"
//   - Media blobs are immutable once captured and are shared between copies
package model
