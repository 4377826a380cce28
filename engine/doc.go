// Package engine runs the queue: a FIFO live list drained by a single
// cooperative loop, a handler registry, retries with backoff and a bounded
// history of terminal jobs.
//
// The engine package sits above job, ext, queue and store so the root
// taskq package can stay free of imports back into them.
//
// # Building an Engine
//
//	eng, err := engine.New(
//	    engine.WithConfig(taskq.DefaultConfig()),
//	    engine.WithLogger(logger),
//	    engine.WithExtension(observability.NewMetricsExtension()),
//	    engine.WithQueueConfig(queue.Config{
//	        Type:      job.TypeSendAIResponse,
//	        RateLimit: 5,
//	    }),
//	    engine.WithArchive(archive),
//	)
//
// # Registering and Enqueuing
//
//	engine.Register(eng, job.NewDefinition(job.TypeSendNotification, notify))
//	j, err := engine.Enqueue(ctx, eng, job.TypeSendNotification, Notification{To: "ops"})
//
// The loop starts on the first enqueue and stops when the live list is
// empty. [Engine.Drain] waits for that; [Engine.Close] stops intake,
// interrupts any backoff wait and fails what is left with taskq.ErrClosed.
//
// # Options
//
//   - [WithConfig] sets attempts, history capacity and backoff
//   - [WithExtension] registers a lifecycle extension
//   - [WithMiddleware] adds a middleware to the execution chain
//   - [WithBackoff] overrides the retry backoff strategy
//   - [WithQueueConfig] and [WithTenantConfig] set rate limits
//   - [WithArchive] records terminal jobs to a durable store
//   - [WithTracerProvider] and [WithMeterProvider] set OpenTelemetry providers
package engine
