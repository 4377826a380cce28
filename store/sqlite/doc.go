// Package sqlite implements store.Archive on SQLite through database/sql
// and the pure Go modernc.org/sqlite driver. Suitable for single node
// deployments and CLI tools.
//
// Either let the store open its own handle:
//
//	s, err := sqlite.Open(ctx, "file:taskq.db?_pragma=busy_timeout(5000)")
//	if err := s.Migrate(ctx); err != nil { ... }
//
// or pass an existing *sql.DB to New, in which case the caller owns its
// lifecycle and Close leaves it open.
package sqlite
