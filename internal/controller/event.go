// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package controller

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

// RecordEventAndSetCondition records an event and sets the Ready condition.
func RecordEventAndSetCondition(
	recorder record.EventRecorder,
	obj runtime.Object,
	conditions *[]metav1.Condition,
	eventType string,
	reason string,
	message string,
	conditionStatus metav1.ConditionStatus,
) {
	recorder.Event(obj, eventType, reason, message)
	SetCondition(conditions, kapsav1alpha1.ConditionReady, conditionStatus, reason, message)
}

// RecordWarningEventAndCondition records a warning event and sets Ready condition to False
func RecordWarningEventAndCondition(
	recorder record.EventRecorder,
	obj runtime.Object,
	conditions *[]metav1.Condition,
	reason string,
	message string,
) {
	RecordEventAndSetCondition(recorder, obj, conditions, corev1.EventTypeWarning, reason, message, metav1.ConditionFalse)
}

// RecordErrorEventAndCondition records an error event and sets Ready=False with a
// reason derived from err. The message is sanitized.
func RecordErrorEventAndCondition(
	recorder record.EventRecorder,
	obj runtime.Object,
	conditions *[]metav1.Condition,
	err error,
) {
	recorder.Event(obj, corev1.EventTypeWarning, EventReasonReconcileFailed, SanitizeErrorMessage(err))
	SetErrorCondition(conditions, err)
}

// RecordError is a shorthand for recording an error event with sanitized message
// Does not modify conditions
func RecordError(recorder record.EventRecorder, obj runtime.Object, reason string, err error) {
	if recorder == nil {
		return
	}
	recorder.Event(obj, corev1.EventTypeWarning, reason, SanitizeErrorMessage(err))
}

// RecordSuccess is a shorthand for recording a success event
// Does not modify conditions
func RecordSuccess(recorder record.EventRecorder, obj runtime.Object, reason string, message string) {
	if recorder == nil {
		return
	}
	recorder.Event(obj, corev1.EventTypeNormal, reason, message)
}

// RecordWarning records a warning event without touching conditions.
func RecordWarning(recorder record.EventRecorder, obj runtime.Object, reason string, message string) {
	if recorder == nil {
		return
	}
	recorder.Event(obj, corev1.EventTypeWarning, reason, message)
}
