// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package monitoring

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "kapsa-operator"

// Tracer is the package-level tracer. It is a noop until a TracerProvider is registered.
var Tracer = otel.Tracer(tracerName)

// StartReconcileSpan starts a span for one reconciliation attempt.
// Callers must call span.End().
func StartReconcileSpan(ctx context.Context, kind, name, namespace string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, kind+".Reconcile",
		trace.WithAttributes(
			attribute.String("k8s.resource.name", name),
			attribute.String("k8s.namespace", namespace),
			attribute.String("k8s.resource.kind", kind),
		),
	)
}

// StartChildSpan starts a span for a step inside a reconciliation.
func StartChildSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, spanName)
}

// RecordSpanError marks the span failed. A nil error is ignored.
func RecordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
