// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// DefaultContainerPort is the port the application listens on when none is declared.
	DefaultContainerPort int32 = 8080
	// DefaultTargetCPUUtilization is the autoscaling CPU target when none is declared.
	DefaultTargetCPUUtilization int32 = 80
)

// EnvironmentType distinguishes long-lived environments from short-lived previews.
// +kubebuilder:validation:Enum=permanent;preview
type EnvironmentType string

const (
	EnvironmentTypePermanent EnvironmentType = "permanent"
	EnvironmentTypePreview   EnvironmentType = "preview"
)

// ProjectReference identifies the Project an Environment deploys.
type ProjectReference struct {
	// +kubebuilder:validation:Required
	Name string `json:"name"`

	// Namespace of the Project. Defaults to the Environment's namespace.
	// +kubebuilder:validation:Optional
	Namespace string `json:"namespace,omitempty"`
}

// AutoscalingSpec configures a HorizontalPodAutoscaler for the Environment.
type AutoscalingSpec struct {
	// +kubebuilder:validation:Optional
	Enabled bool `json:"enabled,omitempty"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:default=1
	MinReplicas *int32 `json:"minReplicas,omitempty"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:default=3
	MaxReplicas int32 `json:"maxReplicas,omitempty"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=100
	TargetCPUUtilization *int32 `json:"targetCPUUtilization,omitempty"`
}

// RuntimeSpec configures the running workload.
type RuntimeSpec struct {
	// +kubebuilder:validation:Optional
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:default=1
	Replicas *int32 `json:"replicas,omitempty"`

	// Port the application listens on.
	// +kubebuilder:validation:Optional
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=65535
	Port *int32 `json:"port,omitempty"`

	// +kubebuilder:validation:Optional
	Resources corev1.ResourceRequirements `json:"resources,omitempty"`

	// +kubebuilder:validation:Optional
	Env []corev1.EnvVar `json:"env,omitempty"`

	// +kubebuilder:validation:Optional
	Autoscaling *AutoscalingSpec `json:"autoscaling,omitempty"`
}

// GatewayReference selects a Gateway API Gateway to attach an HTTPRoute to.
type GatewayReference struct {
	// +kubebuilder:validation:Required
	Name string `json:"name"`

	// +kubebuilder:validation:Optional
	Namespace string `json:"namespace,omitempty"`

	// +kubebuilder:validation:Optional
	SectionName string `json:"sectionName,omitempty"`
}

// RoutingSpec configures how traffic reaches the Environment.
type RoutingSpec struct {
	// Host overrides the hostname derived from the Project's DomainPool allocation.
	// +kubebuilder:validation:Optional
	Host string `json:"host,omitempty"`

	// +kubebuilder:validation:Optional
	IngressClassName *string `json:"ingressClassName,omitempty"`

	// GatewayRef routes through an HTTPRoute instead of an Ingress.
	// +kubebuilder:validation:Optional
	GatewayRef *GatewayReference `json:"gatewayRef,omitempty"`
}

// EnvironmentSpec defines the desired state of Environment
type EnvironmentSpec struct {
	// +kubebuilder:validation:Required
	ProjectRef ProjectReference `json:"projectRef"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:default=permanent
	Type EnvironmentType `json:"type,omitempty"`

	// +kubebuilder:validation:Optional
	Branch string `json:"branch,omitempty"`

	// +kubebuilder:validation:Optional
	Runtime RuntimeSpec `json:"runtime,omitempty"`

	// +kubebuilder:validation:Optional
	Routing *RoutingSpec `json:"routing,omitempty"`
}

// EnvironmentStatus defines the observed state of Environment
type EnvironmentStatus struct {
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// Image is the image reference the Deployment was created with.
	// +optional
	Image string `json:"image,omitempty"`

	// URL is where the Environment is reachable.
	// +optional
	URL string `json:"url,omitempty"`

	// +optional
	ReadyReplicas int32 `json:"readyReplicas,omitempty"`

	// +optional
	LastSpecChange *metav1.Time `json:"lastSpecChange,omitempty"`

	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=env
// +kubebuilder:printcolumn:name="Project",type=string,JSONPath=`.spec.projectRef.name`
// +kubebuilder:printcolumn:name="Type",type=string,JSONPath=`.spec.type`
// +kubebuilder:printcolumn:name="URL",type=string,JSONPath=`.status.url`
// +kubebuilder:printcolumn:name="Ready",type=string,JSONPath=`.status.conditions[?(@.type=="Ready")].status`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// Environment is a running instance of a Project's build output.
type Environment struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   EnvironmentSpec   `json:"spec,omitempty"`
	Status EnvironmentStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// EnvironmentList contains a list of Environment
type EnvironmentList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Environment `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Environment{}, &EnvironmentList{})
}

// GetConditions returns a pointer to the status conditions.
func (e *Environment) GetConditions() *[]metav1.Condition {
	return &e.Status.Conditions
}

// ProjectKey returns the namespace and name of the referenced Project.
func (e *Environment) ProjectKey() (namespace, name string) {
	namespace = e.Spec.ProjectRef.Namespace
	if namespace == "" {
		namespace = e.Namespace
	}
	return namespace, e.Spec.ProjectRef.Name
}

// AutoscalingEnabled reports whether a HorizontalPodAutoscaler is declared.
func (r RuntimeSpec) AutoscalingEnabled() bool {
	return r.Autoscaling != nil && r.Autoscaling.Enabled
}

// EffectiveReplicas returns the replica count the Deployment starts with.
func (r RuntimeSpec) EffectiveReplicas() int32 {
	if r.AutoscalingEnabled() {
		return r.Autoscaling.EffectiveMinReplicas()
	}
	if r.Replicas == nil {
		return 1
	}
	return *r.Replicas
}

// EffectivePort returns the declared container port or DefaultContainerPort.
func (r RuntimeSpec) EffectivePort() int32 {
	if r.Port == nil || *r.Port == 0 {
		return DefaultContainerPort
	}
	return *r.Port
}

// EffectiveMinReplicas returns minReplicas, defaulting to 1.
func (a AutoscalingSpec) EffectiveMinReplicas() int32 {
	if a.MinReplicas == nil || *a.MinReplicas < 1 {
		return 1
	}
	return *a.MinReplicas
}

// EffectiveMaxReplicas returns maxReplicas, never below the minimum.
func (a AutoscalingSpec) EffectiveMaxReplicas() int32 {
	if a.MaxReplicas < a.EffectiveMinReplicas() {
		return a.EffectiveMinReplicas()
	}
	return a.MaxReplicas
}

// EffectiveTargetCPUUtilization returns the CPU target, defaulting to DefaultTargetCPUUtilization.
func (a AutoscalingSpec) EffectiveTargetCPUUtilization() int32 {
	if a.TargetCPUUtilization == nil {
		return DefaultTargetCPUUtilization
	}
	return *a.TargetCPUUtilization
}

// UsesGateway reports whether traffic is routed through a Gateway API HTTPRoute.
func (e *Environment) UsesGateway() bool {
	return e.Spec.Routing != nil && e.Spec.Routing.GatewayRef != nil
}
