// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package dependent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apimeta "k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/ptr"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/controller"
)

const trackerImage = "registry.example.com/org/app@sha256:aaaa"

func newTracker(t *testing.T, env *kapsav1alpha1.Environment, applier *Applier) (*Tracker, *record.FakeRecorder) {
	t.Helper()
	recorder := record.NewFakeRecorder(10)
	rc := controller.NewReconcileContext(context.Background())
	rc.Recorder = recorder
	return NewTracker(rc, applier, env), recorder
}

func TestTracker_InSync(t *testing.T) {
	env := newEnvironment("proj-dev", "dev")
	c, scheme := newFakeClient(t, env)
	tracker, recorder := newTracker(t, env, NewApplier(c, scheme, nil))

	result, err := tracker.Apply(Deployment(env, trackerImage, ""))
	require.NoError(t, err)
	assert.Equal(t, Created, result)
	tracker.Report()

	cond := apimeta.FindStatusCondition(env.Status.Conditions, kapsav1alpha1.ConditionDependentsInSync)
	require.NotNil(t, cond)
	assert.Equal(t, metav1.ConditionTrue, cond.Status)
	assert.Equal(t, kapsav1alpha1.ReasonInSync, cond.Reason)
	assert.Empty(t, recorder.Events)
}

func TestTracker_DriftIsReportedOnce(t *testing.T) {
	env := newEnvironment("proj-dev", "dev")
	c, scheme := newFakeClient(t, env)
	applier := NewApplier(c, scheme, nil)

	first, _ := newTracker(t, env, applier)
	_, err := first.Apply(Deployment(env, trackerImage, ""))
	require.NoError(t, err)

	env.Spec.Runtime.Replicas = ptr.To[int32](3)
	second, recorder := newTracker(t, env, applier)
	result, err := second.Apply(Deployment(env, trackerImage, ""))
	require.NoError(t, err)
	assert.Equal(t, Drifted, result)
	assert.Equal(t, []string{"Deployment/proj-dev"}, second.Drifted())
	second.Report()

	cond := apimeta.FindStatusCondition(env.Status.Conditions, kapsav1alpha1.ConditionDependentsInSync)
	require.NotNil(t, cond)
	assert.Equal(t, metav1.ConditionFalse, cond.Status)
	assert.Equal(t, kapsav1alpha1.ReasonDriftDetected, cond.Reason)
	assert.Contains(t, cond.Message, "Deployment/proj-dev")
	require.Len(t, recorder.Events, 1)
	assert.Contains(t, <-recorder.Events, controller.EventReasonDriftDetected)

	third, recorder := newTracker(t, env, applier)
	_, err = third.Apply(Deployment(env, trackerImage, ""))
	require.NoError(t, err)
	third.Report()
	assert.Empty(t, recorder.Events)
}

func TestTracker_ForeignObjectWarns(t *testing.T) {
	env := newEnvironment("proj-dev", "dev")
	foreign := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "proj-dev", Namespace: "proj-ns"}}
	c, scheme := newFakeClient(t, env, foreign)
	tracker, recorder := newTracker(t, env, NewApplier(c, scheme, nil))

	result, err := tracker.Apply(Service(env))
	require.NoError(t, err)
	assert.Equal(t, Foreign, result)
	assert.Empty(t, tracker.Drifted())
	require.Len(t, recorder.Events, 1)
	event := <-recorder.Events
	assert.Contains(t, event, controller.EventReasonForeignObject)
	assert.Contains(t, event, "Service/proj-dev")
}
