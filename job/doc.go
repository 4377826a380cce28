// Package job defines the job entity, its state machine, typed
// definitions, and the handler registry.
//
// # Job Entity
//
// A [Job] is a unit of deferred work. It carries one of the closed set of
// [Type] values, an opaque JSON payload, and attempt counters, and moves
// through a four-state machine:
//
//	pending → processing → completed
//	pending → processing → pending (retry, requeued at the tail)
//	pending → processing → failed
//
// A job fails permanently once Attempts reaches MaxAttempts, or at once
// when no handler is registered for its type.
//
// # Defining a Handler
//
//	var Notify = job.NewDefinition(job.TypeSendNotification,
//	    func(ctx context.Context, n Notification) error {
//	        return pusher.Send(ctx, n.UserID, n.Body)
//	    },
//	)
//
// # Registry
//
// [Registry] maps job types to type-erased [HandlerFunc] values. Register
// at startup via [RegisterDefinition]; lookups happen when a job is
// dequeued, so registration only has to precede processing.
package job
