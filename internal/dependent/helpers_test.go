// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package dependent

import (
	"testing"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

func newTestScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	require.NoError(t, kapsav1alpha1.AddToScheme(scheme))
	require.NoError(t, gatewayv1.Install(scheme))
	require.NoError(t, AddKpackToScheme(scheme))
	return scheme
}

func newFakeClient(t *testing.T, objs ...client.Object) (client.Client, *runtime.Scheme) {
	t.Helper()
	scheme := newTestScheme(t)
	c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build()
	return c, scheme
}

func newProject(name string) *kapsav1alpha1.Project {
	return &kapsav1alpha1.Project{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "default",
			UID:       "project-uid",
		},
		Spec: kapsav1alpha1.ProjectSpec{
			Repository: kapsav1alpha1.RepositorySpec{URL: "https://git.example/app", Branch: "main"},
			Registry:   kapsav1alpha1.ProjectRegistrySpec{Name: "reg1", ImageRepository: "org/app"},
		},
	}
}

func newEnvironment(name, short string) *kapsav1alpha1.Environment {
	return &kapsav1alpha1.Environment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "proj-ns",
			UID:       "env-uid",
			Labels:    map[string]string{kapsav1alpha1.LabelEnvironment: short},
		},
		Spec: kapsav1alpha1.EnvironmentSpec{
			ProjectRef: kapsav1alpha1.ProjectReference{Name: "proj", Namespace: "default"},
		},
	}
}
