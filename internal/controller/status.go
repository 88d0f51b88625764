// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package controller

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

const (
	// DefaultMaxRetries is the default number of retries for metadata updates
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the default delay between retries
	DefaultRetryDelay = 100 * time.Millisecond
)

// StatusWriter writes the status subresource of a resource.
type StatusWriter struct {
	Client client.Client
}

// NewStatusWriter creates a StatusWriter.
func NewStatusWriter(c client.Client) *StatusWriter {
	return &StatusWriter{Client: c}
}

// Write performs a conditional update carrying the resourceVersion obj was read with.
// On a conflict the write is discarded and the conflict returned; callers re-read and
// re-run reconciliation instead of retrying the stale status.
func (w *StatusWriter) Write(ctx context.Context, obj client.Object) error {
	if obj.GetResourceVersion() == "" {
		return fmt.Errorf("refusing unconditional status write for %s", client.ObjectKeyFromObject(obj))
	}
	if err := w.Client.Status().Update(ctx, obj); err != nil {
		if apierrors.IsConflict(err) {
			return err
		}
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// SetCondition sets a condition. meta.SetStatusCondition keeps lastTransitionTime
// unless the status value changes.
func SetCondition(conditions *[]metav1.Condition, conditionType string, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(conditions, metav1.Condition{
		Type:               conditionType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		LastTransitionTime: metav1.Now(),
	})
}

// SetObservedCondition sets a condition stamped with the generation it was computed from.
func SetObservedCondition(conditions *[]metav1.Condition, generation int64, conditionType string, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(conditions, metav1.Condition{
		Type:               conditionType,
		Status:             status,
		ObservedGeneration: generation,
		Reason:             reason,
		Message:            message,
		LastTransitionTime: metav1.Now(),
	})
}

// SetReadyCondition is a shorthand for setting the Ready condition
func SetReadyCondition(conditions *[]metav1.Condition, status metav1.ConditionStatus, reason, message string) {
	SetCondition(conditions, kapsav1alpha1.ConditionReady, status, reason, message)
}

// SetErrorCondition sets Ready=False with a reason derived from err.
func SetErrorCondition(conditions *[]metav1.Condition, err error) {
	message := "Unknown error"
	if err != nil {
		message = SanitizeErrorMessage(err)
	}
	SetCondition(conditions, kapsav1alpha1.ConditionReady, metav1.ConditionFalse, FailureReason(err), message)
}

// SetSuccessCondition sets the Ready condition to True
func SetSuccessCondition(conditions *[]metav1.Condition, message string) {
	SetCondition(conditions, kapsav1alpha1.ConditionReady, metav1.ConditionTrue, kapsav1alpha1.ReasonReconciled, message)
}

// IsReady reports whether the Ready condition is True.
func IsReady(conditions []metav1.Condition) bool {
	return meta.IsStatusConditionTrue(conditions, kapsav1alpha1.ConditionReady)
}

// RetryOnConflict retries fn after re-reading obj when it returns a conflict.
// Only use it for idempotent metadata edits such as finalizers.
func RetryOnConflict(ctx context.Context, c client.Client, obj client.Object, fn func() error) error {
	var lastErr error

	for i := 0; i < DefaultMaxRetries; i++ {
		if i > 0 {
			if err := c.Get(ctx, client.ObjectKeyFromObject(obj), obj); err != nil {
				return fmt.Errorf("failed to get latest object version: %w", err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(DefaultRetryDelay):
			}
		}

		if err := fn(); err != nil {
			if apierrors.IsConflict(err) {
				lastErr = err
				continue
			}
			return err
		}

		return nil
	}

	return fmt.Errorf("operation failed after %d retries: %w", DefaultMaxRetries, lastErr)
}

// UpdateWithConflictRetry applies updateFn and updates obj, retrying on conflict.
func UpdateWithConflictRetry(ctx context.Context, c client.Client, obj client.Object, updateFn func()) error {
	return RetryOnConflict(ctx, c, obj, func() error {
		updateFn()
		return c.Update(ctx, obj)
	})
}
