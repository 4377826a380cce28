// Package postgres implements store.Archive using pgx/v5 with raw SQL and
// embedded SQL migrations tracked in taskq_migrations.
package postgres
