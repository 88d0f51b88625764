// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package dependent

import (
	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

// Well-known application labels put on workloads and build images.
const (
	LabelAppName      = "app.kubernetes.io/name"
	LabelAppInstance  = "app.kubernetes.io/instance"
	LabelAppManagedBy = "app.kubernetes.io/managed-by"

	appManagedByValue = "kapsa"
)

// ProjectLabels identifies objects created for a Project.
func ProjectLabels(project *kapsav1alpha1.Project) map[string]string {
	return map[string]string{
		kapsav1alpha1.LabelProject:   project.Name,
		kapsav1alpha1.LabelManagedBy: kapsav1alpha1.ManagedByValue,
	}
}

// EnvironmentName returns the short name of an Environment: the name it was
// declared with in its Project, or its own name when it was created directly.
func EnvironmentName(env *kapsav1alpha1.Environment) string {
	if short := env.Labels[kapsav1alpha1.LabelEnvironment]; short != "" {
		return short
	}
	return env.Name
}

// SelectorLabels selects the pods of an Environment.
func SelectorLabels(env *kapsav1alpha1.Environment) map[string]string {
	return map[string]string{
		LabelAppName:     env.Spec.ProjectRef.Name,
		LabelAppInstance: env.Name,
	}
}

// WorkloadLabels are put on every object synthesized for an Environment.
func WorkloadLabels(env *kapsav1alpha1.Environment) map[string]string {
	labels := SelectorLabels(env)
	labels[LabelAppManagedBy] = appManagedByValue
	labels[kapsav1alpha1.LabelManagedBy] = kapsav1alpha1.ManagedByValue
	labels[kapsav1alpha1.LabelProject] = env.Spec.ProjectRef.Name
	labels[kapsav1alpha1.LabelEnvironment] = EnvironmentName(env)
	return labels
}
