// Package otel provides OpenTelemetry span helpers shared by the push components.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on push spans.
const (
	AttrAccountUUID       = attribute.Key("push.account.uuid")
	AttrDesiredAccounts   = attribute.Key("push.accounts.desired")
	AttrRunningWorkers    = attribute.Key("push.workers.running")
	AttrNotificationState = attribute.Key("push.notification.state")
	AttrWorkerState       = attribute.Key("push.worker.state")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns the
// span already in ctx (a no-op span when there is none).
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks it failed. Nil span or nil error is a no-op.
// The status description stays generic so account hosts and usernames do not
// leak into trace status; the full error is kept on the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
