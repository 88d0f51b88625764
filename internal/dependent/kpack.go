// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package dependent

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/controller"
)

// AddKpackToScheme registers the kpack Image kinds as unstructured types so
// clients and caches built from the scheme can serve them.
func AddKpackToScheme(scheme *runtime.Scheme) error {
	gv := controller.KpackImageGVK.GroupVersion()
	scheme.AddKnownTypeWithName(controller.KpackImageGVK, &unstructured.Unstructured{})
	scheme.AddKnownTypeWithName(gv.WithKind(controller.KpackImageGVK.Kind+"List"), &unstructured.UnstructuredList{})
	metav1.AddToGroupVersion(scheme, gv)
	return nil
}

// NewKpackImage returns an empty kpack Image, ready to be read into.
func NewKpackImage() *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(controller.KpackImageGVK)
	return u
}

// KpackImage returns the kpack Image building a Project's repository and pushing it to tag.
func KpackImage(project *kapsav1alpha1.Project, tag string, builder kapsav1alpha1.BuilderReference, revision string) *unstructured.Unstructured {
	u := NewKpackImage()
	u.SetName(project.Name)
	u.SetNamespace(project.NamespaceName())

	labels := ProjectLabels(project)
	labels[LabelAppName] = project.Name
	labels[LabelAppManagedBy] = appManagedByValue
	u.SetLabels(labels)

	u.Object["spec"] = map[string]interface{}{
		"tag":                tag,
		"serviceAccountName": project.ServiceAccountName(),
		"builder": map[string]interface{}{
			"kind": builder.Kind,
			"name": builder.Name,
		},
		"source": map[string]interface{}{
			"git": map[string]interface{}{
				"url":      project.Spec.Repository.URL,
				"revision": revision,
			},
		},
	}
	return u
}

// KpackLatestImage returns the digest reference of the last successful build, if any.
func KpackLatestImage(image *unstructured.Unstructured) (string, bool) {
	latest, found, err := unstructured.NestedString(image.Object, "status", "latestImage")
	if err != nil || !found || latest == "" {
		return "", false
	}
	return latest, true
}

// KpackReady reports the status of the Image's Ready condition.
func KpackReady(image *unstructured.Unstructured) metav1.ConditionStatus {
	conditions, found, err := unstructured.NestedSlice(image.Object, "status", "conditions")
	if err != nil || !found {
		return metav1.ConditionUnknown
	}
	for _, c := range conditions {
		m, ok := c.(map[string]interface{})
		if !ok || m["type"] != "Ready" {
			continue
		}
		if status, ok := m["status"].(string); ok {
			return metav1.ConditionStatus(status)
		}
	}
	return metav1.ConditionUnknown
}
