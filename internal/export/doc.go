// Package export walks the store into a read-only summary of every record:
// per page, the number of warp and weft yarns, the density and the media
// counts. Summaries can be narrowed with an expression filter and written
// as JSON or YAML.
package export
