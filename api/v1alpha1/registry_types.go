// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package v1alpha1

import (
	"net/url"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// RegistryType identifies the registry implementation.
// +kubebuilder:validation:Enum=harbor;docker;ecr;gcr;generic
type RegistryType string

const (
	RegistryTypeHarbor  RegistryType = "harbor"
	RegistryTypeDocker  RegistryType = "docker"
	RegistryTypeECR     RegistryType = "ecr"
	RegistryTypeGCR     RegistryType = "gcr"
	RegistryTypeGeneric RegistryType = "generic"
)

// SecretReference points at a Secret in a specific namespace.
type SecretReference struct {
	// +kubebuilder:validation:Required
	Name string `json:"name"`

	// +kubebuilder:validation:Required
	Namespace string `json:"namespace"`
}

// RegistryAuth references the credentials used to push to the registry.
type RegistryAuth struct {
	// SecretRef holds either a .dockerconfigjson or username/password keys.
	// +kubebuilder:validation:Optional
	SecretRef *SecretReference `json:"secretRef,omitempty"`
}

// RegistryOptions carries implementation specific settings.
type RegistryOptions struct {
	// ProjectName is the Harbor project images are pushed into.
	// +kubebuilder:validation:Optional
	ProjectName string `json:"projectName,omitempty"`
}

// ImagePullSecretSpec controls the docker secret placed in every project namespace.
type ImagePullSecretSpec struct {
	// Name of the secret in project namespaces. Defaults to "<registry>-credentials".
	// +kubebuilder:validation:Optional
	Name string `json:"name,omitempty"`

	// GeneratePerNamespace copies the registry credentials into every project namespace.
	// +kubebuilder:validation:Optional
	// +kubebuilder:default=true
	GeneratePerNamespace *bool `json:"generatePerNamespace,omitempty"`
}

// RegistrySpec defines the desired state of Registry
type RegistrySpec struct {
	// +kubebuilder:validation:Optional
	// +kubebuilder:default=generic
	Type RegistryType `json:"type,omitempty"`

	// Endpoint is the registry URL or host, e.g. "https://harbor.example.com".
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	Endpoint string `json:"endpoint"`

	// +kubebuilder:validation:Optional
	Auth RegistryAuth `json:"auth,omitempty"`

	// +kubebuilder:validation:Optional
	Options RegistryOptions `json:"options,omitempty"`

	// +kubebuilder:validation:Optional
	ImagePullSecret ImagePullSecretSpec `json:"imagePullSecret,omitempty"`

	// VerifyConnection pings the registry API during reconciliation.
	// +kubebuilder:validation:Optional
	VerifyConnection bool `json:"verifyConnection,omitempty"`
}

// RegistryStatus defines the observed state of Registry
type RegistryStatus struct {
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// Host is the normalized registry host images are tagged with.
	// +optional
	Host string `json:"host,omitempty"`

	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Cluster,shortName=reg
// +kubebuilder:printcolumn:name="Type",type=string,JSONPath=`.spec.type`
// +kubebuilder:printcolumn:name="Endpoint",type=string,JSONPath=`.spec.endpoint`
// +kubebuilder:printcolumn:name="Ready",type=string,JSONPath=`.status.conditions[?(@.type=="Ready")].status`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// Registry is a container registry Projects push their images to.
type Registry struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   RegistrySpec   `json:"spec,omitempty"`
	Status RegistryStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// RegistryList contains a list of Registry
type RegistryList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Registry `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Registry{}, &RegistryList{})
}

// GetConditions returns a pointer to the status conditions.
func (r *Registry) GetConditions() *[]metav1.Condition {
	return &r.Status.Conditions
}

// EndpointHost strips scheme and path from the endpoint, leaving the registry host.
func (r *Registry) EndpointHost() string {
	endpoint := strings.TrimSpace(r.Spec.Endpoint)
	if strings.Contains(endpoint, "://") {
		if u, err := url.Parse(endpoint); err == nil {
			return u.Host
		}
	}
	host, _, _ := strings.Cut(endpoint, "/")
	return host
}

// Insecure reports whether the endpoint uses plain HTTP.
func (r *Registry) Insecure() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Spec.Endpoint)), "http://")
}

// PullSecretName returns the name of the docker secret referenced from project namespaces.
func (r *Registry) PullSecretName() string {
	if r.Spec.ImagePullSecret.Name != "" {
		return r.Spec.ImagePullSecret.Name
	}
	return r.Name + "-credentials"
}

// GeneratePerNamespace reports whether credentials are copied into project namespaces.
func (r *Registry) GeneratePerNamespace() bool {
	if r.Spec.ImagePullSecret.GeneratePerNamespace == nil {
		return true
	}
	return *r.Spec.ImagePullSecret.GeneratePerNamespace
}
