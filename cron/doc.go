// Package cron provides in-process periodic enqueueing.
//
// Entries live in the scheduler's memory; there is a single process, so
// every due entry fires exactly once per tick.
//
// # Entry
//
// An [Entry] represents a recurring job schedule:
//   - Schedule: standard 5 field cron expression or a descriptor such as
//     "@every 30s" or "@hourly"
//   - JobType: the job type to enqueue when fired
//   - Payload: static JSON payload passed to every triggered job
//   - CompanyID: optional tenant scope
//   - Enabled: whether the entry fires
//
// # Registering a Cron
//
//	cron.Register(sched, cron.Definition[SyncInput]{
//	    Name:     "whatsapp-sync",
//	    Schedule: "@every 5m",
//	    JobType:  job.TypeSyncWhatsApp,
//	    Payload:  SyncInput{All: true},
//	})
//
// # Scheduler
//
// The [Scheduler] evaluates due entries on every tick, enqueues the
// corresponding job and advances LastRunAt and NextRunAt. The
// [ext.CronFired] hook fires after each successful enqueue.
package cron
