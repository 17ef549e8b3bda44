// Package storage persists per-owner reminder documents.
//
// Drivers:
//   - "memory": process-local, used in tests and dry runs
//   - "sqlite": pure-Go SQLite file (modernc.org/sqlite)
//
// Updates address one reminder by its stable ID, so concurrent writers
// never race on list positions. Last write wins.
package storage
