// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package controller

import (
	"context"
	"errors"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/tools/record"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
)

// DeletionHandler handles the standard deletion flow for resources
type DeletionHandler struct {
	Client        client.Client
	Log           logr.Logger
	Recorder      record.EventRecorder
	FinalizerName string
}

// NewDeletionHandler creates a new DeletionHandler
func NewDeletionHandler(c client.Client, log logr.Logger, recorder record.EventRecorder, finalizerName string) *DeletionHandler {
	return &DeletionHandler{
		Client:        c,
		Log:           log,
		Recorder:      recorder,
		FinalizerName: finalizerName,
	}
}

// HandleDeletion runs cleanupFn and removes the finalizer once it succeeded.
// A NotFound from cleanupFn means the dependents are already gone.
// The finalizer stays in place when cleanupFn fails, and the error is returned
// so the resource is retried with backoff.
func (h *DeletionHandler) HandleDeletion(ctx context.Context, obj client.Object, cleanupFn func() error) (bool, error) {
	if obj.GetDeletionTimestamp() == nil || !controllerutil.ContainsFinalizer(obj, h.FinalizerName) {
		return false, nil
	}

	h.Log.Info("Handling deletion")

	if cleanupFn != nil {
		if err := cleanupFn(); err != nil {
			if !apierrors.IsNotFound(err) {
				h.Log.Error(err, "Cleanup failed, keeping finalizer")
				RecordError(h.Recorder, obj, EventReasonDeleteFailed, err)
				return false, err
			}
			h.Log.Info("Dependents already deleted")
		}
	}

	removed, err := h.releaseFinalizer(ctx, obj)
	if err != nil {
		h.Log.Error(err, "Failed to remove finalizer")
		return false, err
	}

	if removed {
		h.Log.Info("Finalizer removed")
		RecordSuccess(h.Recorder, obj, EventReasonFinalizerRemoved, "Finalizer removed successfully")
	}

	return removed, nil
}

// releaseFinalizer drops the finalizer. An object that vanished meanwhile
// counts as released.
func (h *DeletionHandler) releaseFinalizer(ctx context.Context, obj client.Object) (bool, error) {
	if !controllerutil.ContainsFinalizer(obj, h.FinalizerName) {
		return false, nil
	}
	if err := UpdateWithConflictRetry(ctx, h.Client, obj, func() {
		controllerutil.RemoveFinalizer(obj, h.FinalizerName)
	}); err != nil {
		return false, client.IgnoreNotFound(err)
	}
	return true, nil
}

// RunCleanup runs every step, treating NotFound as success, and joins the failures.
// Later steps still run when an earlier one fails.
func RunCleanup(steps ...func() error) error {
	var errs []error
	for _, step := range steps {
		if step == nil {
			continue
		}
		if err := step(); err != nil && !apierrors.IsNotFound(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
