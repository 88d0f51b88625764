// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/controller"
	"github.com/kapsa-project/kapsa-operator/internal/registry/mock"
)

func setupReconciler(t *testing.T, objs ...client.Object) *Reconciler {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, corev1.AddToScheme(scheme))
	require.NoError(t, kapsav1alpha1.AddToScheme(scheme))

	c := fake.NewClientBuilder().
		WithScheme(scheme).
		WithObjects(objs...).
		WithStatusSubresource(&kapsav1alpha1.Registry{}).
		Build()
	return &Reconciler{
		Client:   c,
		Scheme:   scheme,
		Recorder: record.NewFakeRecorder(10),
	}
}

func newRegistry(endpoint string) *kapsav1alpha1.Registry {
	return &kapsav1alpha1.Registry{
		ObjectMeta: metav1.ObjectMeta{Name: "reg1", Generation: 1},
		Spec: kapsav1alpha1.RegistrySpec{
			Type:     kapsav1alpha1.RegistryTypeHarbor,
			Endpoint: endpoint,
		},
	}
}

func reconcileRegistry(t *testing.T, r *Reconciler) (ctrl.Result, *kapsav1alpha1.Registry, error) {
	t.Helper()
	ctx := context.Background()
	result, err := r.Engine().Reconcile(ctx, ctrl.Request{NamespacedName: types.NamespacedName{Name: "reg1"}})
	updated := &kapsav1alpha1.Registry{}
	require.NoError(t, r.Get(ctx, types.NamespacedName{Name: "reg1"}, updated))
	return result, updated, err
}

func TestSync_ConfiguresRegistryWithoutCredentials(t *testing.T) {
	r := setupReconciler(t, newRegistry("https://harbor.example.com"))

	result, updated, err := reconcileRegistry(t, r)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, result.RequeueAfter)
	assert.Contains(t, updated.Finalizers, controller.FinalizerName)
	assert.Equal(t, "harbor.example.com", updated.Status.Host)
	assert.Equal(t, int64(1), updated.Status.ObservedGeneration)

	ready := meta.FindStatusCondition(updated.Status.Conditions, kapsav1alpha1.ConditionReady)
	require.NotNil(t, ready)
	assert.Equal(t, metav1.ConditionTrue, ready.Status)
	assert.Equal(t, kapsav1alpha1.ReasonRegistryConfigured, ready.Reason)
}

func TestSync_Credentials(t *testing.T) {
	tests := []struct {
		name       string
		secret     *corev1.Secret
		wantStatus metav1.ConditionStatus
		wantReason string
	}{
		{
			name:       "missing secret",
			wantStatus: metav1.ConditionFalse,
			wantReason: kapsav1alpha1.ReasonCredentialsNotFound,
		},
		{
			name: "username and password",
			secret: &corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "harbor-creds", Namespace: "kapsa-system"},
				Data:       map[string][]byte{"username": []byte("robot"), "password": []byte("s3cr3t")},
			},
			wantStatus: metav1.ConditionTrue,
			wantReason: kapsav1alpha1.ReasonRegistryConfigured,
		},
		{
			name: "unusable secret",
			secret: &corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "harbor-creds", Namespace: "kapsa-system"},
				Data:       map[string][]byte{"token": []byte("x")},
			},
			wantStatus: metav1.ConditionFalse,
			wantReason: kapsav1alpha1.ReasonInvalidSpec,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newRegistry("https://harbor.example.com")
			registry.Spec.Auth.SecretRef = &kapsav1alpha1.SecretReference{Name: "harbor-creds", Namespace: "kapsa-system"}
			objs := []client.Object{registry}
			if tt.secret != nil {
				objs = append(objs, tt.secret)
			}
			r := setupReconciler(t, objs...)

			_, updated, err := reconcileRegistry(t, r)
			require.NoError(t, err)

			ready := meta.FindStatusCondition(updated.Status.Conditions, kapsav1alpha1.ConditionReady)
			require.NotNil(t, ready)
			assert.Equal(t, tt.wantStatus, ready.Status)
			assert.Equal(t, tt.wantReason, ready.Reason)
		})
	}
}

func TestSync_InvalidEndpoint(t *testing.T) {
	r := setupReconciler(t, newRegistry("https://harbor.example.com/v2/projects"))

	result, updated, err := reconcileRegistry(t, r)
	require.NoError(t, err)

	assert.Equal(t, controller.InvalidSpecRequeueDelay, result.RequeueAfter)
	ready := meta.FindStatusCondition(updated.Status.Conditions, kapsav1alpha1.ConditionReady)
	require.NotNil(t, ready)
	assert.Equal(t, kapsav1alpha1.ReasonInvalidSpec, ready.Reason)
	assert.Contains(t, ready.Message, "spec.endpoint")
}

func TestSync_VerifyConnection(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus metav1.ConditionStatus
		wantReason string
	}{
		{"reachable", nil, metav1.ConditionTrue, kapsav1alpha1.ReasonRegistryConfigured},
		{"unreachable", errors.New("registry harbor.example.com unreachable: connection refused"),
			metav1.ConditionFalse, kapsav1alpha1.ReasonRegistryUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrlr := gomock.NewController(t)
			prober := mock.NewMockProber(ctrlr)
			prober.EXPECT().Ping(gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.pingErr)

			registry := newRegistry("https://harbor.example.com")
			registry.Spec.VerifyConnection = true
			r := setupReconciler(t, registry)
			r.Prober = prober

			_, updated, err := reconcileRegistry(t, r)
			require.NoError(t, err)

			ready := meta.FindStatusCondition(updated.Status.Conditions, kapsav1alpha1.ConditionReady)
			require.NotNil(t, ready)
			assert.Equal(t, tt.wantStatus, ready.Status)
			assert.Equal(t, tt.wantReason, ready.Reason)
		})
	}
}

func TestSync_RecheckInterval(t *testing.T) {
	r := setupReconciler(t, newRegistry("registry.local:5000"))
	r.RecheckInterval = time.Minute

	result, updated, err := reconcileRegistry(t, r)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, result.RequeueAfter)
	assert.Equal(t, "registry.local:5000", updated.Status.Host)
}

func TestFindRegistriesForSecret(t *testing.T) {
	referencing := newRegistry("https://harbor.example.com")
	referencing.Spec.Auth.SecretRef = &kapsav1alpha1.SecretReference{Name: "creds", Namespace: "kapsa-system"}
	other := newRegistry("https://docker.io")
	other.Name = "reg2"
	r := setupReconciler(t, referencing, other)

	secret := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: "creds", Namespace: "kapsa-system"}}
	requests := r.findRegistriesForSecret(context.Background(), secret)

	require.Len(t, requests, 1)
	assert.Equal(t, "reg1", requests[0].Name)

	secret.Namespace = "default"
	assert.Empty(t, r.findRegistriesForSecret(context.Background(), secret))
}
