// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package v1alpha1

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// DefaultBranch is the git revision used when none is declared.
	DefaultBranch = "main"
	// DefaultPollIntervalSeconds is the repository poll interval used when none is declared.
	DefaultPollIntervalSeconds int32 = 300
	// DefaultBuilderKind and DefaultBuilderName select the kpack builder used when none is declared.
	DefaultBuilderKind = "ClusterBuilder"
	DefaultBuilderName = "default"
)

// BuildStrategy selects how images are built.
// +kubebuilder:validation:Enum=kpack
type BuildStrategy string

const (
	// BuildStrategyKpack builds images with kpack and Cloud Native Buildpacks.
	BuildStrategyKpack BuildStrategy = "kpack"
)

// RepositorySpec describes the source repository of a Project.
type RepositorySpec struct {
	// URL is the git URL of the repository.
	// +kubebuilder:validation:Optional
	URL string `json:"url,omitempty"`

	// Branch is the git revision to build.
	// +kubebuilder:validation:Optional
	// +kubebuilder:default=main
	Branch string `json:"branch,omitempty"`

	// PollInterval is the number of seconds between periodic reconciliations.
	// +kubebuilder:validation:Optional
	// +kubebuilder:validation:Minimum=10
	PollInterval *int32 `json:"pollInterval,omitempty"`
}

// BuilderReference names the kpack builder used for image builds.
type BuilderReference struct {
	// +kubebuilder:validation:Optional
	// +kubebuilder:validation:Enum=ClusterBuilder;Builder
	// +kubebuilder:default=ClusterBuilder
	Kind string `json:"kind,omitempty"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:default=default
	Name string `json:"name,omitempty"`
}

// BuildSpec configures how a Project is built.
type BuildSpec struct {
	// +kubebuilder:validation:Optional
	// +kubebuilder:default=kpack
	Strategy BuildStrategy `json:"strategy,omitempty"`

	// +kubebuilder:validation:Optional
	Builder *BuilderReference `json:"builder,omitempty"`
}

// ProjectRegistrySpec references the Registry that receives built images.
type ProjectRegistrySpec struct {
	// Name is the name of a cluster-scoped Registry.
	// +kubebuilder:validation:Optional
	Name string `json:"name,omitempty"`

	// ImageRepository is the repository path inside the registry, e.g. "team/app".
	// +kubebuilder:validation:Optional
	ImageRepository string `json:"imageRepository,omitempty"`
}

// ProjectDomainSpec requests a domain from a DomainPool.
type ProjectDomainSpec struct {
	// +kubebuilder:validation:Optional
	Subdomain string `json:"subdomain,omitempty"`

	// DomainPoolRef is the name of the cluster-scoped DomainPool to allocate from.
	// +kubebuilder:validation:Optional
	DomainPoolRef string `json:"domainPoolRef,omitempty"`
}

// ProjectEnvironment declares an Environment managed on behalf of the Project.
type ProjectEnvironment struct {
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:Pattern=`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`
	// +kubebuilder:validation:MaxLength=40
	Name string `json:"name"`

	// Branch overrides the repository branch for this environment.
	// +kubebuilder:validation:Optional
	Branch string `json:"branch,omitempty"`

	// +kubebuilder:validation:Optional
	AutoSync bool `json:"autoSync,omitempty"`
}

// ProjectSpec defines the desired state of Project
type ProjectSpec struct {
	// +kubebuilder:validation:Optional
	Repository RepositorySpec `json:"repository,omitempty"`

	// +kubebuilder:validation:Optional
	Build BuildSpec `json:"build,omitempty"`

	// +kubebuilder:validation:Optional
	Registry ProjectRegistrySpec `json:"registry,omitempty"`

	// +kubebuilder:validation:Optional
	Domain *ProjectDomainSpec `json:"domain,omitempty"`

	// +kubebuilder:validation:Optional
	// +listType=map
	// +listMapKey=name
	Environments []ProjectEnvironment `json:"environments,omitempty"`
}

// ProjectEnvironmentStatus reports one managed Environment.
type ProjectEnvironmentStatus struct {
	Name         string `json:"name"`
	ResourceName string `json:"resourceName"`
	Ready        bool   `json:"ready"`
}

// ProjectStatus defines the observed state of Project
type ProjectStatus struct {
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// Namespace is the dedicated namespace holding the Project's workloads.
	// +optional
	Namespace string `json:"namespace,omitempty"`

	// ImageTag is the tag kpack pushes builds to.
	// +optional
	ImageTag string `json:"imageTag,omitempty"`

	// LatestImage is the digest reference of the most recent successful build.
	// +optional
	LatestImage string `json:"latestImage,omitempty"`

	// Domain is the base domain allocated to the Project.
	// +optional
	Domain string `json:"domain,omitempty"`

	// +optional
	Environments []ProjectEnvironmentStatus `json:"environments,omitempty"`

	// LastSpecChange is when a new generation of the spec was first observed.
	// +optional
	LastSpecChange *metav1.Time `json:"lastSpecChange,omitempty"`

	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=proj
// +kubebuilder:printcolumn:name="Repository",type=string,JSONPath=`.spec.repository.url`
// +kubebuilder:printcolumn:name="Namespace",type=string,JSONPath=`.status.namespace`
// +kubebuilder:printcolumn:name="Ready",type=string,JSONPath=`.status.conditions[?(@.type=="Ready")].status`
// +kubebuilder:printcolumn:name="Reason",type=string,JSONPath=`.status.conditions[?(@.type=="Ready")].reason`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// Project is an application built from a git repository and deployed into one or more Environments.
// Each Project gets a dedicated namespace, a kpack Image building its repository and the
// service account kpack pushes with.
type Project struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ProjectSpec   `json:"spec,omitempty"`
	Status ProjectStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ProjectList contains a list of Project
type ProjectList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Project `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Project{}, &ProjectList{})
}

// GetConditions returns a pointer to the status conditions.
func (p *Project) GetConditions() *[]metav1.Condition {
	return &p.Status.Conditions
}

// NamespaceName returns the dedicated namespace of the Project.
func (p *Project) NamespaceName() string {
	return p.Name + "-ns"
}

// ServiceAccountName returns the name of the service account kpack builds with.
func (p *Project) ServiceAccountName() string {
	return p.Name + "-kpack-sa"
}

// EnvironmentResourceName returns the name of the Environment created for a declared environment.
func (p *Project) EnvironmentResourceName(env string) string {
	return p.Name + "-" + env
}

// EffectiveBranch returns the declared branch or DefaultBranch.
func (r RepositorySpec) EffectiveBranch() string {
	if r.Branch == "" {
		return DefaultBranch
	}
	return r.Branch
}

// EffectivePollInterval returns the declared poll interval, or fallback when unset.
func (r RepositorySpec) EffectivePollInterval(fallback time.Duration) time.Duration {
	if r.PollInterval == nil || *r.PollInterval <= 0 {
		return fallback
	}
	return time.Duration(*r.PollInterval) * time.Second
}

// EffectiveBuilder returns the declared builder with defaults applied.
func (b BuildSpec) EffectiveBuilder() BuilderReference {
	ref := BuilderReference{Kind: DefaultBuilderKind, Name: DefaultBuilderName}
	if b.Builder != nil {
		if b.Builder.Kind != "" {
			ref.Kind = b.Builder.Kind
		}
		if b.Builder.Name != "" {
			ref.Name = b.Builder.Name
		}
	}
	return ref
}

// MissingConfiguration lists the spec fields that must be set before dependents can be created.
func (s ProjectSpec) MissingConfiguration() []string {
	var missing []string
	if s.Repository.URL == "" {
		missing = append(missing, "spec.repository.url")
	}
	if s.Registry.Name == "" {
		missing = append(missing, "spec.registry.name")
	}
	return missing
}
