// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package dependent

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

// Namespace returns the dedicated namespace of a Project.
func Namespace(project *kapsav1alpha1.Project) *corev1.Namespace {
	return &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   project.NamespaceName(),
			Labels: ProjectLabels(project),
			Annotations: map[string]string{
				kapsav1alpha1.AnnotationParentNamespace: project.Namespace,
			},
		},
	}
}

// ServiceAccount returns the service account kpack builds a Project with.
// When pullSecret is set it is attached both as a build secret and as an image pull secret.
func ServiceAccount(project *kapsav1alpha1.Project, pullSecret string) *corev1.ServiceAccount {
	sa := &corev1.ServiceAccount{
		ObjectMeta: metav1.ObjectMeta{
			Name:      project.ServiceAccountName(),
			Namespace: project.NamespaceName(),
			Labels:    ProjectLabels(project),
		},
	}
	if pullSecret != "" {
		sa.Secrets = []corev1.ObjectReference{{Name: pullSecret}}
		sa.ImagePullSecrets = []corev1.LocalObjectReference{{Name: pullSecret}}
	}
	return sa
}

// RegistrySecret returns the docker config secret copied into a Project's namespace.
func RegistrySecret(project *kapsav1alpha1.Project, name string, dockerConfigJSON []byte) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: project.NamespaceName(),
			Labels:    ProjectLabels(project),
		},
		Type: corev1.SecretTypeDockerConfigJson,
		Data: map[string][]byte{
			corev1.DockerConfigJsonKey: dockerConfigJSON,
		},
	}
}

// Environment returns the Environment managed for one entry of spec.environments.
func Environment(project *kapsav1alpha1.Project, declared kapsav1alpha1.ProjectEnvironment) *kapsav1alpha1.Environment {
	labels := ProjectLabels(project)
	labels[kapsav1alpha1.LabelEnvironment] = declared.Name

	branch := declared.Branch
	if branch == "" {
		branch = project.Spec.Repository.EffectiveBranch()
	}
	return &kapsav1alpha1.Environment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      project.EnvironmentResourceName(declared.Name),
			Namespace: project.NamespaceName(),
			Labels:    labels,
		},
		Spec: kapsav1alpha1.EnvironmentSpec{
			ProjectRef: kapsav1alpha1.ProjectReference{
				Name:      project.Name,
				Namespace: project.Namespace,
			},
			Type:   kapsav1alpha1.EnvironmentTypePermanent,
			Branch: branch,
		},
	}
}

// PullSecretFor returns the name of the docker secret workloads of a Project pull with.
// It is empty when the Registry neither propagates credentials nor names a pre-provisioned secret.
func PullSecretFor(reg *kapsav1alpha1.Registry) string {
	if reg == nil {
		return ""
	}
	if reg.GeneratePerNamespace() && reg.Spec.Auth.SecretRef != nil {
		return reg.PullSecretName()
	}
	return reg.Spec.ImagePullSecret.Name
}
