// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package controller

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

// CanReference reports whether the cluster accepts an owner reference from child to parent.
// Namespaced owners may only own objects in their own namespace.
func CanReference(parent, child client.Object) bool {
	return parent.GetNamespace() == "" || parent.GetNamespace() == child.GetNamespace()
}

// SetOwner links child to parent. When an owner reference is allowed it is set with
// controller=true and blockOwnerDeletion=true. Otherwise the child is stamped with
// tracking labels and must be removed by the parent's finalizer.
func SetOwner(parent, child client.Object, scheme *runtime.Scheme) error {
	if CanReference(parent, child) {
		if err := controllerutil.SetControllerReference(parent, child, scheme); err != nil {
			return fmt.Errorf("failed to set owner reference: %w", err)
		}
		return nil
	}

	gvk, err := apiutil.GVKForObject(parent, scheme)
	if err != nil {
		return fmt.Errorf("failed to resolve owner kind: %w", err)
	}
	labels := child.GetLabels()
	if labels == nil {
		labels = map[string]string{}
	}
	for k, v := range TrackingLabels(gvk.Kind, parent) {
		labels[k] = v
	}
	child.SetLabels(labels)

	if parent.GetUID() != "" {
		annotations := child.GetAnnotations()
		if annotations == nil {
			annotations = map[string]string{}
		}
		annotations[kapsav1alpha1.AnnotationOwnerUID] = string(parent.GetUID())
		child.SetAnnotations(annotations)
	}
	return nil
}

// TrackingLabels returns the labels identifying a label-tracked owner.
func TrackingLabels(kind string, parent client.Object) map[string]string {
	return map[string]string{
		kapsav1alpha1.LabelManagedBy:      kapsav1alpha1.ManagedByValue,
		kapsav1alpha1.LabelOwnerKind:      kind,
		kapsav1alpha1.LabelOwnerNamespace: parent.GetNamespace(),
		kapsav1alpha1.LabelOwnerName:      parent.GetName(),
	}
}

// IsOwnedBy reports whether parent owns child, through a controller reference or tracking labels.
func IsOwnedBy(parent, child client.Object, kind string) bool {
	if metav1.IsControlledBy(child, parent) {
		return true
	}
	labels := child.GetLabels()
	if labels[kapsav1alpha1.LabelOwnerKind] != kind ||
		labels[kapsav1alpha1.LabelOwnerNamespace] != parent.GetNamespace() ||
		labels[kapsav1alpha1.LabelOwnerName] != parent.GetName() {
		return false
	}
	uid := child.GetAnnotations()[kapsav1alpha1.AnnotationOwnerUID]
	return uid == "" || parent.GetUID() == "" || types.UID(uid) == parent.GetUID()
}

// TrackedOwner returns the namespace and name of the label-tracked owner of the given kind.
func TrackedOwner(obj client.Object, kind string) (types.NamespacedName, bool) {
	labels := obj.GetLabels()
	if labels[kapsav1alpha1.LabelOwnerKind] != kind || labels[kapsav1alpha1.LabelOwnerName] == "" {
		return types.NamespacedName{}, false
	}
	return types.NamespacedName{
		Namespace: labels[kapsav1alpha1.LabelOwnerNamespace],
		Name:      labels[kapsav1alpha1.LabelOwnerName],
	}, true
}
