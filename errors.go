package taskq

import "errors"

var (
	// Enqueue errors.
	ErrUnknownJobType = errors.New("taskq: unknown job type")
	ErrInvalidPayload = errors.New("taskq: payload is not valid JSON")
	ErrClosed         = errors.New("taskq: queue closed")

	// Execution errors.
	ErrNoHandler = errors.New("taskq: no handler registered")

	// Archive errors.
	ErrNoArchive       = errors.New("taskq: no archive configured")
	ErrArchiveNotFound = errors.New("taskq: archived job not found")
	ErrStoreClosed     = errors.New("taskq: store closed")

	// Cron errors.
	ErrCronNotFound    = errors.New("taskq: cron entry not found")
	ErrDuplicateCron   = errors.New("taskq: cron entry already exists")
	ErrInvalidSchedule = errors.New("taskq: invalid cron schedule")
)
