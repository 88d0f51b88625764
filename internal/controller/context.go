// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package controller

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"

	"github.com/kapsa-project/kapsa-operator/internal/monitoring"
)

// ReconcileContext carries the collaborators of one reconciliation attempt.
// Handlers use it instead of process-wide loggers and metric singletons.
type ReconcileContext struct {
	Ctx      context.Context
	Log      logr.Logger
	Recorder record.EventRecorder
	Metrics  monitoring.Recorder
	// Now is the time the attempt started.
	Now time.Time
}

// NewReconcileContext returns a context with no-op collaborators, suitable for tests.
func NewReconcileContext(ctx context.Context) *ReconcileContext {
	return &ReconcileContext{
		Ctx:      ctx,
		Log:      logr.Discard(),
		Recorder: &record.FakeRecorder{},
		Metrics:  monitoring.NoopRecorder{},
		Now:      time.Now(),
	}
}

// Normal records a Normal event on obj.
func (rc *ReconcileContext) Normal(obj runtime.Object, reason, message string) {
	RecordSuccess(rc.Recorder, obj, reason, message)
}

// Warning records a Warning event on obj.
func (rc *ReconcileContext) Warning(obj runtime.Object, reason, message string) {
	RecordWarning(rc.Recorder, obj, reason, message)
}

// ObserveGeneration stamps lastSpecChange when the spec generation moved past the
// one recorded in status, and records the new generation.
func (rc *ReconcileContext) ObserveGeneration(generation int64, observed *int64, lastSpecChange **metav1.Time) {
	if *observed == generation && *lastSpecChange != nil {
		return
	}
	if *observed != generation || *lastSpecChange == nil {
		t := metav1.NewTime(rc.Now)
		*lastSpecChange = &t
	}
	*observed = generation
}
