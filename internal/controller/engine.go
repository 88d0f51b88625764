// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/monitoring"
)

// Object is a resource driven by the Engine.
type Object interface {
	client.Object
	GetConditions() *[]metav1.Condition
}

// EventType selects the handler the engine dispatches to.
type EventType string

const (
	// EventSync covers creation, updates, watch notifications and timer resyncs.
	// Handlers are level-triggered, so these collapse into one event.
	EventSync EventType = "Sync"
	// EventFinalize runs kind-specific cleanup before the finalizer is removed.
	EventFinalize EventType = "Finalize"
)

// Outcome tells the engine when to run the resource again.
type Outcome struct {
	// RequeueAfter schedules the next timer-driven pass. Zero relies on watches alone.
	RequeueAfter time.Duration
}

// Handler reconciles one resource. Sync handlers mutate only the status of obj;
// the engine persists it.
type Handler[T Object] func(rc *ReconcileContext, obj T) (Outcome, error)

// Engine is the reconcile.Reconciler shared by every kind. It owns the order of an attempt
// (fetch, deletion, finalizer, sync, status write) and turns handler errors into conditions
// and requeues. Per-key serialization and exponential backoff come from the workqueue the
// engine is registered with.
type Engine[T Object] struct {
	Kind      string
	Client    client.Client
	Recorder  record.EventRecorder
	Metrics   monitoring.Recorder
	NewObject func() T
	Handlers  map[EventType]Handler[T]

	// Timeout bounds one attempt. Zero disables the bound.
	Timeout time.Duration
	// Finalizer defaults to FinalizerName.
	Finalizer string
	Clock     clock.PassiveClock

	// Watches adds the kind's secondary watches to the controller builder.
	Watches func(b *builder.Builder) *builder.Builder
}

var _ reconcile.Reconciler = &Engine[Object]{}

// GetKind returns the kind handled by the engine.
func (e *Engine[T]) GetKind() string {
	return e.Kind
}

// Events returns the event types with a registered handler.
func (e *Engine[T]) Events() []EventType {
	var events []EventType
	for _, ev := range []EventType{EventSync, EventFinalize} {
		if _, ok := e.Handlers[ev]; ok {
			events = append(events, ev)
		}
	}
	return events
}

// SetupWithManager registers the engine as the controller for its kind.
func (e *Engine[T]) SetupWithManager(mgr ctrl.Manager, opts controller.Options) error {
	if e.Handlers[EventSync] == nil {
		return fmt.Errorf("%s: no %s handler registered", e.Kind, EventSync)
	}
	b := ctrl.NewControllerManagedBy(mgr).
		For(e.NewObject()).
		Named(strings.ToLower(e.Kind)).
		WithOptions(opts)
	if e.Watches != nil {
		b = e.Watches(b)
	}
	return b.Complete(e)
}

// Reconcile runs one attempt for the resource named by req.
func (e *Engine[T]) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	start := e.now()
	log := logf.FromContext(ctx).WithValues("kind", e.Kind)

	ctx, span := monitoring.StartReconcileSpan(ctx, e.Kind, req.Name, req.Namespace)
	defer span.End()

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	obj := e.NewObject()
	if err := e.Client.Get(ctx, req.NamespacedName, obj); err != nil {
		if apierrors.IsNotFound(err) {
			log.V(1).Info("Resource no longer exists")
			return ctrl.Result{}, nil
		}
		monitoring.RecordSpanError(span, err)
		e.observe(req, monitoring.ResultError, start)
		return ctrl.Result{}, fmt.Errorf("failed to get %s: %w", e.Kind, err)
	}

	rc := &ReconcileContext{
		Ctx:      ctx,
		Log:      log,
		Recorder: e.recorder(),
		Metrics:  e.metrics(),
		Now:      start,
	}

	if obj.GetDeletionTimestamp() != nil {
		return e.finalize(rc, req, obj, start)
	}

	added, err := e.ensureFinalizer(ctx, obj)
	if err != nil {
		monitoring.RecordSpanError(span, err)
		if IsConflict(err) {
			e.observe(req, monitoring.ResultConflict, start)
			return ctrl.Result{RequeueAfter: ConflictRequeueDelay}, nil
		}
		e.observe(req, monitoring.ResultError, start)
		return ctrl.Result{}, fmt.Errorf("failed to add finalizer: %w", err)
	}
	if added {
		log.V(1).Info("Finalizer added")
	}

	snapshot := obj.DeepCopyObject()
	outcome, err := e.Handlers[EventSync](rc, obj)
	result := ctrl.Result{RequeueAfter: outcome.RequeueAfter}
	metricResult := monitoring.ResultSuccess
	var retErr error

	if err != nil {
		monitoring.RecordSpanError(span, err)
		switch {
		case IsTimeout(err) || ctx.Err() != nil:
			log.Info("Reconciliation exceeded its execution budget", "timeout", e.Timeout)
			e.observe(req, monitoring.ResultTimeout, start)
			return ctrl.Result{}, fmt.Errorf("%s %s: %w", e.Kind, req.NamespacedName, context.DeadlineExceeded)
		case IsConflict(err):
			log.V(1).Info("Conflict while reconciling, re-reading")
			e.observe(req, monitoring.ResultConflict, start)
			return ctrl.Result{RequeueAfter: ConflictRequeueDelay}, nil
		default:
			if pe, ok := AsPrecondition(err); ok {
				log.Info("Precondition not met", "reason", pe.Reason, "message", pe.Message)
				SetObservedCondition(obj.GetConditions(), obj.GetGeneration(),
					kapsav1alpha1.ConditionReady, metav1.ConditionFalse, pe.Reason, pe.Message)
				metricResult = monitoring.ResultPrecondition
				if result.RequeueAfter == 0 {
					result.RequeueAfter = PreconditionRequeueDelay
				}
			} else if IsInvalidSpec(err) {
				log.Info("Invalid spec", "error", err.Error())
				RecordWarning(rc.Recorder, obj, EventReasonInvalidSpec, SanitizeErrorMessage(err))
				SetErrorCondition(obj.GetConditions(), err)
				metricResult = monitoring.ResultInvalid
				result.RequeueAfter = InvalidSpecRequeueDelay
			} else {
				log.Error(err, "Reconciliation failed")
				RecordErrorEventAndCondition(rc.Recorder, obj, obj.GetConditions(), err)
				metricResult = monitoring.ResultError
				retErr = err
			}
		}
	}

	if !equality.Semantic.DeepEqual(snapshot, obj) {
		if werr := NewStatusWriter(e.Client).Write(ctx, obj); werr != nil {
			monitoring.RecordSpanError(span, werr)
			if IsConflict(werr) {
				log.V(1).Info("Status changed concurrently, discarding write")
				e.observe(req, monitoring.ResultConflict, start)
				return ctrl.Result{RequeueAfter: ConflictRequeueDelay}, nil
			}
			e.observe(req, monitoring.ResultError, start)
			return ctrl.Result{}, werr
		}
	}

	e.observe(req, metricResult, start)
	if retErr != nil {
		return ctrl.Result{}, retErr
	}
	return result, nil
}

func (e *Engine[T]) finalize(rc *ReconcileContext, req ctrl.Request, obj T, start time.Time) (ctrl.Result, error) {
	if !controllerutil.ContainsFinalizer(obj, e.finalizer()) {
		return ctrl.Result{}, nil
	}

	handler := e.Handlers[EventFinalize]
	dh := NewDeletionHandler(e.Client, rc.Log, rc.Recorder, e.finalizer())
	_, err := dh.HandleDeletion(rc.Ctx, obj, func() error {
		if handler == nil {
			return nil
		}
		_, err := handler(rc, obj)
		return err
	})
	if err == nil {
		e.observe(req, monitoring.ResultFinalized, start)
		return ctrl.Result{}, nil
	}

	snapshot := obj.DeepCopyObject()
	SetObservedCondition(obj.GetConditions(), obj.GetGeneration(), kapsav1alpha1.ConditionReady,
		metav1.ConditionFalse, kapsav1alpha1.ReasonCleanupFailed, SanitizeErrorMessage(err))
	if !equality.Semantic.DeepEqual(snapshot, obj) {
		if werr := NewStatusWriter(e.Client).Write(rc.Ctx, obj); werr != nil && !IsConflict(werr) {
			rc.Log.Error(werr, "Failed to report cleanup failure")
		}
	}
	e.observe(req, monitoring.ResultError, start)
	return ctrl.Result{}, fmt.Errorf("cleanup of %s %s failed: %w", e.Kind, req.NamespacedName, err)
}

// ensureFinalizer adds the engine's finalizer before any dependent is created,
// so a Project or Environment is never deleted ahead of its cleanup.
func (e *Engine[T]) ensureFinalizer(ctx context.Context, obj T) (bool, error) {
	if controllerutil.ContainsFinalizer(obj, e.finalizer()) {
		return false, nil
	}
	if err := UpdateWithConflictRetry(ctx, e.Client, obj, func() {
		controllerutil.AddFinalizer(obj, e.finalizer())
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine[T]) observe(req ctrl.Request, result monitoring.Result, start time.Time) {
	e.metrics().ReconcileCompleted(e.Kind, req.Namespace, req.Name, result, e.now().Sub(start))
}

func (e *Engine[T]) finalizer() string {
	if e.Finalizer == "" {
		return FinalizerName
	}
	return e.Finalizer
}

func (e *Engine[T]) metrics() monitoring.Recorder {
	if e.Metrics == nil {
		return monitoring.NoopRecorder{}
	}
	return e.Metrics
}

func (e *Engine[T]) recorder() record.EventRecorder {
	if e.Recorder == nil {
		return &record.FakeRecorder{}
	}
	return e.Recorder
}

func (e *Engine[T]) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}
