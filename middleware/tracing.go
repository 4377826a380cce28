package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZEDDEV1/nozesia-sub005/job"
)

// tracerName is the instrumentation scope name for taskq tracing.
const tracerName = "github.com/ZEDDEV1/nozesia-sub005"

// Tracing returns middleware that wraps each attempt in an OpenTelemetry
// span. Without a global TracerProvider the noop tracer is used.
//
// Span attributes: taskq.job.id, taskq.job.type, taskq.job.attempt,
// taskq.job.max_attempts, taskq.company_id.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		ctx, span := tracer.Start(ctx, "taskq.job.execute",
			trace.WithAttributes(
				attribute.String("taskq.job.id", j.ID.String()),
				attribute.String("taskq.job.type", string(j.Type)),
				attribute.Int("taskq.job.attempt", j.Attempts),
				attribute.Int("taskq.job.max_attempts", j.MaxAttempts),
				attribute.String("taskq.company_id", j.CompanyID),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
