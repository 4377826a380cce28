// Package audithook is a taskq extension that turns queue lifecycle
// events into structured audit records.
//
// Every job hook, history purge and cron firing produces an [AuditEvent]
// sent to a [Recorder]. Severity is info for normal operations, warning
// for retries and purges, and critical for terminal failures. Metadata
// carries the job type, company and attempt counters.
//
// [SlogRecorder] writes events to a structured logger, which is how
// taskqd wires the extension when auditing is enabled:
//
//	eng, _ := engine.New(
//	    engine.WithExtension(audithook.New(audithook.SlogRecorder(logger),
//	        audithook.WithActions(audithook.ActionJobFailed, audithook.ActionCronFired),
//	    )),
//	)
package audithook
