// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package monitoring

import "time"

// Result is the outcome label of a reconciliation attempt.
type Result string

const (
	ResultSuccess      Result = "success"
	ResultError        Result = "error"
	ResultConflict     Result = "conflict"
	ResultPrecondition Result = "precondition"
	ResultInvalid      Result = "invalid"
	ResultTimeout      Result = "timeout"
	ResultFinalized    Result = "finalized"
)

// Recorder receives observations from reconcilers.
type Recorder interface {
	// ReconcileCompleted records the outcome and duration of one attempt.
	ReconcileCompleted(kind, namespace, name string, result Result, duration time.Duration)
	// DependentOperation counts a create, delete, or no-op on a dependent object.
	DependentOperation(kind, operation string)
	// SetProjectsTotal records how many Projects exist in a namespace.
	SetProjectsTotal(namespace string, count int)
	// SetDomainPoolDomains records allocation gauges for a DomainPool.
	SetDomainPoolDomains(pool string, allocated, available int)
	// ForgetDomainPool drops the gauges of a deleted DomainPool.
	ForgetDomainPool(pool string)
}

// PrometheusRecorder writes observations into the package collectors.
type PrometheusRecorder struct{}

var _ Recorder = PrometheusRecorder{}

// ReconcileCompleted implements Recorder.
func (PrometheusRecorder) ReconcileCompleted(kind, namespace, name string, result Result, duration time.Duration) {
	reconcileTotal.WithLabelValues(kind, namespace, name, string(result)).Inc()
	reconcileDuration.WithLabelValues(kind, namespace, name).Observe(duration.Seconds())
}

// DependentOperation implements Recorder.
func (PrometheusRecorder) DependentOperation(kind, operation string) {
	dependentOperationsTotal.WithLabelValues(kind, operation).Inc()
}

// SetProjectsTotal implements Recorder.
func (PrometheusRecorder) SetProjectsTotal(namespace string, count int) {
	projectsTotal.WithLabelValues(namespace).Set(float64(count))
}

// SetDomainPoolDomains implements Recorder.
func (PrometheusRecorder) SetDomainPoolDomains(pool string, allocated, available int) {
	domainPoolDomains.WithLabelValues(pool, "allocated").Set(float64(allocated))
	domainPoolDomains.WithLabelValues(pool, "available").Set(float64(available))
}

// ForgetDomainPool implements Recorder.
func (PrometheusRecorder) ForgetDomainPool(pool string) {
	domainPoolDomains.DeletePartialMatch(map[string]string{"pool": pool})
}

// NoopRecorder discards every observation.
type NoopRecorder struct{}

var _ Recorder = NoopRecorder{}

func (NoopRecorder) ReconcileCompleted(string, string, string, Result, time.Duration) {}
func (NoopRecorder) DependentOperation(string, string)                                {}
func (NoopRecorder) SetProjectsTotal(string, int)                                     {}
func (NoopRecorder) SetDomainPoolDomains(string, int, int)                            {}
func (NoopRecorder) ForgetDomainPool(string)                                          {}
