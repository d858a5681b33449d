// Package query implements the change-classification read layer:
// filtered, ordered, paginated product queries with a movement-bucket
// filter (cheaper / expensive / no_change) derived from the sign of
// price_change.
//
// Queries are described by a Filter value, validated against explicit
// per-entity allow-lists (orderable fields, include paths) before any
// SQL is built, then compiled to parameterized SQL. Values are never
// interpolated.
//
// Pagination runs as two independent queries (count, slice) and may
// observe different snapshots under concurrent writes; page totals are
// best-effort, not serializable. Include paths are resolved after the
// slice with one IN query per relation.
package query
