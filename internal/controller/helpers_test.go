// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package controller

import (
	"testing"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

func newTestScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	s := runtime.NewScheme()
	require.NoError(t, corev1.AddToScheme(s))
	require.NoError(t, kapsav1alpha1.AddToScheme(s))
	return s
}

func newFakeClient(t *testing.T, objs ...client.Object) client.Client {
	t.Helper()
	return fake.NewClientBuilder().
		WithScheme(newTestScheme(t)).
		WithObjects(objs...).
		WithStatusSubresource(&kapsav1alpha1.Project{}, &kapsav1alpha1.Registry{}).
		Build()
}

func newTestProject(name string) *kapsav1alpha1.Project {
	return &kapsav1alpha1.Project{
		ObjectMeta: metav1.ObjectMeta{
			Name:       name,
			Namespace:  "default",
			Generation: 1,
			UID:        "project-uid",
		},
		Spec: kapsav1alpha1.ProjectSpec{
			Repository: kapsav1alpha1.RepositorySpec{URL: "https://github.com/acme/app"},
			Registry:   kapsav1alpha1.ProjectRegistrySpec{Name: "harbor"},
		},
	}
}
