// Package repositories implements SQLite persistence for the local journal.
//
// The journal is write-mostly: every terminal job transition observed on the
// push channel is appended, and the CLI reads it back for the jobs --history
// view. It is a local convenience record, never consulted by the sync layer
// itself, so a write failure is logged and dropped rather than surfaced.
//
// Key Implementations:
//   - [JobHistoryRepository] : append-only journal of finished jobs
package repositories
