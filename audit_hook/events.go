package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionJobEnqueued    = "job.enqueued"
	ActionJobStarted     = "job.started"
	ActionJobCompleted   = "job.completed"
	ActionJobFailed      = "job.failed"
	ActionJobRetrying    = "job.retrying"
	ActionHistoryCleared = "history.cleared"
	ActionCronFired      = "cron.fired"
)

// Audit event categories group related actions.
const (
	CategoryJob   = "taskq.job"
	CategoryQueue = "taskq.queue"
	CategoryCron  = "taskq.cron"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceJob     = "job"
	ResourceHistory = "job_history"
	ResourceCron    = "cron_entry"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobEnqueued,
		ActionJobStarted,
		ActionJobCompleted,
		ActionJobFailed,
		ActionJobRetrying,
		ActionHistoryCleared,
		ActionCronFired,
	}
}

// IsAction reports whether a is one of AllActions.
func IsAction(a string) bool {
	for _, known := range AllActions() {
		if a == known {
			return true
		}
	}
	return false
}
