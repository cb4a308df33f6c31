// Package store is the SQLite backend of the event bus: a bus.Journal and a
// bus.OffsetStore sharing one database file.
//
// # Tables
//
//   - records: one row per published record, keyed by (topic, part, seq).
//     seq is the record offset and is assigned as the partition's current
//     row count inside the appending transaction.
//   - offsets: one row per (group_name, topic, part) holding the next
//     unread seq. A missing row means 0.
//
// Payloads are stored as compact JSON text and are checked on read; a row
// that does not parse is reported as a malformed record, never skipped.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//   - transactions start IMMEDIATE, so two processes appending to one
//     partition serialize on the database write lock
package store
