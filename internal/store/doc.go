// Package store provides SQLite-backed durable storage for jacquard records.
//
// Three collections live under one versioned database:
//   - projects: named groupings ("stacks" in the first released layout)
//   - records: production entries; pages are embedded as a CBOR document
//   - media: legacy stand-alone media rows, read-only
//
// # Schema Versions
//
// The layout version is kept in PRAGMA user_version.
//
//	1 - records (timestamp, date, pages) and the legacy media table
//	2 - records.name, records.project_id and the projects table
//
// Migrations are additive and idempotent: every step checks for the table,
// column or index before creating it and nothing is ever dropped. All steps
// and the version bump run in a single transaction, so a failed upgrade
// leaves the database at its previous version.
//
// # Identity and Time
//
//   - IDs come from INTEGER PRIMARY KEY AUTOINCREMENT: monotonic, never reused
//   - timestamp (unix ms) and date (UTC YYYY-MM-DD) are stamped by the write
//     path on every insert and update; caller values are ignored
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - one open connection: the store has a single writer
package store
