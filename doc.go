// Package taskq provides the in-process job queue used by the NozesIA back
// office to defer message processing, AI-response dispatch, WhatsApp sync
// and notification sending.
//
// taskq is a library first. Build an engine, register one handler per job
// type, and enqueue work as ordinary Go values:
//
//	eng, err := engine.New(engine.WithConfig(taskq.DefaultConfig()), engine.WithLogger(logger))
//	engine.Register(eng, job.NewDefinition(job.TypeSendNotification,
//	    func(ctx context.Context, n Notification) error { return push(ctx, n) },
//	))
//	j, err := engine.Enqueue(ctx, eng, job.TypeSendNotification, n)
//
// # Architecture
//
// A single cooperative loop drains a FIFO queue one job at a time. Failed
// jobs are retried with exponential backoff and moved to the back of the
// queue; terminal jobs land in a bounded history that backs the admin
// stats surface. Lifecycle hooks ([ext]) feed metrics and the optional
// durable archive ([store]).
//
// Job IDs are type-prefixed, K-sortable UUIDv7 identifiers.
package taskq
