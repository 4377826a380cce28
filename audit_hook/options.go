package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithActions restricts the extension to the listed actions. By default
// every action is recorded. Unknown actions are ignored.
//
//	audithook.New(rec,
//	    audithook.WithActions(
//	        audithook.ActionJobFailed,
//	        audithook.ActionHistoryCleared,
//	    ),
//	)
func WithActions(actions ...string) Option {
	return func(e *Extension) {
		if len(actions) == 0 {
			return
		}
		e.enabled = make(map[string]bool, len(actions))
		for _, a := range actions {
			e.enabled[a] = true
		}
	}
}

// WithLogger sets the logger used to report recorder failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) { e.logger = l }
}
