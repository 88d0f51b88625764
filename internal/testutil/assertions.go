// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apimeta "k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

// RequireCondition returns the condition with the given type, failing the test when it is absent.
func RequireCondition(t *testing.T, conditions []metav1.Condition, conditionType string) *metav1.Condition {
	t.Helper()
	cond := apimeta.FindStatusCondition(conditions, conditionType)
	require.NotNil(t, cond, "Condition %s should exist", conditionType)
	return cond
}

// ReadyCondition returns the Ready condition.
func ReadyCondition(t *testing.T, conditions []metav1.Condition) *metav1.Condition {
	t.Helper()
	return RequireCondition(t, conditions, kapsav1alpha1.ConditionReady)
}

// AssertCondition asserts the status and reason of a condition.
func AssertCondition(t *testing.T, conditions []metav1.Condition, conditionType string,
	status metav1.ConditionStatus, reason string) {
	t.Helper()
	cond := RequireCondition(t, conditions, conditionType)
	assert.Equal(t, status, cond.Status, "Condition %s status", conditionType)
	assert.Equal(t, reason, cond.Reason, "Condition %s reason", conditionType)
}

// AssertConditionWithMessage asserts that a condition message contains the expected substring.
func AssertConditionWithMessage(t *testing.T, conditions []metav1.Condition, conditionType, expectedMessage string) {
	t.Helper()
	cond := RequireCondition(t, conditions, conditionType)
	assert.Contains(t, cond.Message, expectedMessage, "Condition %s message should contain %s", conditionType, expectedMessage)
}

// AssertNoCondition asserts that a condition with the given type does not exist.
func AssertNoCondition(t *testing.T, conditions []metav1.Condition, conditionType string) {
	t.Helper()
	assert.Nil(t, apimeta.FindStatusCondition(conditions, conditionType), "Condition %s should not exist", conditionType)
}

// AssertHasFinalizer asserts that the object has the given finalizer.
func AssertHasFinalizer(t *testing.T, obj client.Object, finalizerName string) {
	t.Helper()
	assert.True(t, controllerutil.ContainsFinalizer(obj, finalizerName),
		"Expected finalizer %s not found in %v", finalizerName, obj.GetFinalizers())
}

// AssertNoFinalizer asserts that the object does not have the given finalizer.
func AssertNoFinalizer(t *testing.T, obj client.Object, finalizerName string) {
	t.Helper()
	assert.False(t, controllerutil.ContainsFinalizer(obj, finalizerName),
		"Unexpected finalizer %s found in %v", finalizerName, obj.GetFinalizers())
}
