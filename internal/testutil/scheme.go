// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

// Package testutil holds helpers shared by controller tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/dependent"
)

// NewScheme returns a scheme with every API the operator reads or writes.
func NewScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	require.NoError(t, kapsav1alpha1.AddToScheme(scheme))
	require.NoError(t, dependent.AddKpackToScheme(scheme))
	require.NoError(t, gatewayv1.Install(scheme))
	return scheme
}

// NewClientBuilder returns a fake client builder that serves the status subresource of every kapsa kind.
func NewClientBuilder(scheme *runtime.Scheme, objs ...client.Object) *fake.ClientBuilder {
	return fake.NewClientBuilder().
		WithScheme(scheme).
		WithObjects(objs...).
		WithStatusSubresource(
			&kapsav1alpha1.Project{},
			&kapsav1alpha1.Environment{},
			&kapsav1alpha1.Registry{},
			&kapsav1alpha1.DomainPool{},
		)
}
