// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package dependent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/monitoring"
)

type countingRecorder struct {
	monitoring.NoopRecorder
	ops map[string]int
}

func (r *countingRecorder) DependentOperation(kind, operation string) {
	if r.ops == nil {
		r.ops = map[string]int{}
	}
	r.ops[kind+"/"+operation]++
}

func TestApplyCreatesThenReportsExisting(t *testing.T) {
	ctx := context.Background()
	project := newProject("proj")
	c, scheme := newFakeClient(t, project)
	metrics := &countingRecorder{}
	applier := NewApplier(c, scheme, metrics)

	result, err := applier.Apply(ctx, project, Namespace(project))
	require.NoError(t, err)
	assert.Equal(t, Created, result)

	ns := &corev1.Namespace{}
	require.NoError(t, c.Get(ctx, client.ObjectKey{Name: "proj-ns"}, ns))
	assert.NotEmpty(t, ns.Annotations[kapsav1alpha1.AnnotationDesiredHash])
	assert.Equal(t, "Project", ns.Labels[kapsav1alpha1.LabelOwnerKind])
	assert.Equal(t, "default", ns.Labels[kapsav1alpha1.LabelOwnerNamespace])
	assert.Equal(t, "proj", ns.Labels[kapsav1alpha1.LabelOwnerName])
	assert.Equal(t, "project-uid", ns.Annotations[kapsav1alpha1.AnnotationOwnerUID])

	result, err = applier.Apply(ctx, project, Namespace(project))
	require.NoError(t, err)
	assert.Equal(t, Existing, result)
	assert.Equal(t, 1, metrics.ops["Namespace/create"])
	assert.Equal(t, 1, metrics.ops["Namespace/exists"])
}

func TestApplySetsControllerReferenceInSameNamespace(t *testing.T) {
	ctx := context.Background()
	env := newEnvironment("proj-dev", "dev")
	c, scheme := newFakeClient(t, env)
	applier := NewApplier(c, scheme, nil)

	result, err := applier.Apply(ctx, env, Service(env))
	require.NoError(t, err)
	assert.Equal(t, Created, result)

	svc := &corev1.Service{}
	require.NoError(t, c.Get(ctx, client.ObjectKey{Namespace: "proj-ns", Name: "proj-dev"}, svc))
	require.Len(t, svc.OwnerReferences, 1)
	ref := svc.OwnerReferences[0]
	assert.Equal(t, "Environment", ref.Kind)
	assert.True(t, *ref.Controller)
	assert.True(t, *ref.BlockOwnerDeletion)
}

func TestApplyNeverOverwritesDrift(t *testing.T) {
	ctx := context.Background()
	project := newProject("proj")
	c, scheme := newFakeClient(t, project)
	applier := NewApplier(c, scheme, nil)
	builder := kapsav1alpha1.BuilderReference{Kind: "ClusterBuilder", Name: "default"}

	_, err := applier.Apply(ctx, project, KpackImage(project, "r/app:latest", builder, "main"))
	require.NoError(t, err)

	result, err := applier.Apply(ctx, project, KpackImage(project, "r/app:latest", builder, "release"))
	require.NoError(t, err)
	assert.Equal(t, Drifted, result)

	live := NewKpackImage()
	require.NoError(t, c.Get(ctx, client.ObjectKey{Namespace: "proj-ns", Name: "proj"}, live))
	assert.Equal(t, "main", live.Object["spec"].(map[string]interface{})["source"].(map[string]interface{})["git"].(map[string]interface{})["revision"])
}

func TestApplyReportsForeignObject(t *testing.T) {
	ctx := context.Background()
	project := newProject("proj")
	existing := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "proj-ns"}}
	c, scheme := newFakeClient(t, project, existing)
	applier := NewApplier(c, scheme, nil)

	result, err := applier.Apply(ctx, project, Namespace(project))
	require.NoError(t, err)
	assert.Equal(t, Foreign, result)
	assert.True(t, result.Exists())

	ns := &corev1.Namespace{}
	require.NoError(t, c.Get(ctx, client.ObjectKey{Name: "proj-ns"}, ns))
	assert.Empty(t, ns.Labels)
}

func TestApplyTreatsAlreadyExistsAsSuccess(t *testing.T) {
	ctx := context.Background()
	project := newProject("proj")
	scheme := newTestScheme(t)
	c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(project).
		WithInterceptorFuncs(interceptor.Funcs{
			Create: func(ctx context.Context, cl client.WithWatch, obj client.Object, opts ...client.CreateOption) error {
				return apierrors.NewAlreadyExists(schema.GroupResource{Resource: "serviceaccounts"}, obj.GetName())
			},
		}).Build()

	result, err := NewApplier(c, scheme, nil).Apply(ctx, project, ServiceAccount(project, ""))
	require.NoError(t, err)
	assert.Equal(t, Existing, result)
}

func TestApplyReturnsUnexpectedErrors(t *testing.T) {
	ctx := context.Background()
	project := newProject("proj")
	scheme := newTestScheme(t)
	boom := errors.New("etcd unavailable")
	c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(project).
		WithInterceptorFuncs(interceptor.Funcs{
			Create: func(ctx context.Context, cl client.WithWatch, obj client.Object, opts ...client.CreateOption) error {
				return boom
			},
		}).Build()

	_, err := NewApplier(c, scheme, nil).Apply(ctx, project, ServiceAccount(project, ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "ServiceAccount proj-ns/proj-kpack-sa")
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	env := newEnvironment("proj-dev", "dev")
	env.Spec.Runtime.Autoscaling = &kapsav1alpha1.AutoscalingSpec{Enabled: true, MaxReplicas: 3}
	c, scheme := newFakeClient(t, env)
	applier := NewApplier(c, scheme, nil)

	_, err := applier.Apply(ctx, env, HorizontalPodAutoscaler(env))
	require.NoError(t, err)

	removed, err := applier.Remove(ctx, env, HorizontalPodAutoscaler(env))
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = applier.Remove(ctx, env, HorizontalPodAutoscaler(env))
	require.NoError(t, err)
	assert.False(t, removed, "NotFound is success")
}

func TestRemoveLeavesForeignObjects(t *testing.T) {
	ctx := context.Background()
	env := newEnvironment("proj-dev", "dev")
	foreign := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: "proj-dev", Namespace: "proj-ns"}}
	c, scheme := newFakeClient(t, env, foreign)

	removed, err := NewApplier(c, scheme, nil).Remove(ctx, env, Deployment(env, "img", ""))
	require.NoError(t, err)
	assert.False(t, removed)
	require.NoError(t, c.Get(ctx, client.ObjectKeyFromObject(foreign), &appsv1.Deployment{}))
}
