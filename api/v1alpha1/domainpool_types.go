// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ChallengeType is the ACME challenge used by cert-manager.
// +kubebuilder:validation:Enum=http01;dns01
type ChallengeType string

const (
	ChallengeHTTP01 ChallengeType = "http01"
	ChallengeDNS01  ChallengeType = "dns01"
)

// AllocationStrategy decides which available base domain a new consumer receives.
// +kubebuilder:validation:Enum=round-robin;first-available
type AllocationStrategy string

const (
	AllocationRoundRobin     AllocationStrategy = "round-robin"
	AllocationFirstAvailable AllocationStrategy = "first-available"
)

// DNSProviderCloudflare is the only DNS provider zones are verified against.
const DNSProviderCloudflare = "cloudflare"

// IssuerReference names a cert-manager issuer.
type IssuerReference struct {
	// +kubebuilder:validation:Required
	Name string `json:"name"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:validation:Enum=ClusterIssuer;Issuer
	// +kubebuilder:default=ClusterIssuer
	Kind string `json:"kind,omitempty"`
}

// CredentialsSecretReference points at a secret key holding DNS provider credentials.
type CredentialsSecretReference struct {
	// +kubebuilder:validation:Required
	Name string `json:"name"`

	// +kubebuilder:validation:Required
	Namespace string `json:"namespace"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:default=api-token
	Key string `json:"key,omitempty"`
}

// DNSProviderSpec configures the DNS01 solver.
type DNSProviderSpec struct {
	// +kubebuilder:validation:Required
	Name string `json:"name"`

	// +kubebuilder:validation:Optional
	CredentialsSecretRef *CredentialsSecretReference `json:"credentialsSecretRef,omitempty"`
}

// CertManagerSpec configures TLS certificates for allocated domains.
type CertManagerSpec struct {
	// +kubebuilder:validation:Required
	IssuerRef IssuerReference `json:"issuerRef"`

	// +kubebuilder:validation:Optional
	// +kubebuilder:default=http01
	ChallengeType ChallengeType `json:"challengeType,omitempty"`

	// +kubebuilder:validation:Optional
	DNSProvider *DNSProviderSpec `json:"dnsProvider,omitempty"`
}

// AllocationPolicy configures how base domains are handed out.
type AllocationPolicy struct {
	// +kubebuilder:validation:Optional
	// +kubebuilder:default=round-robin
	Strategy AllocationStrategy `json:"strategy,omitempty"`
}

// DomainPoolSpec defines the desired state of DomainPool
type DomainPoolSpec struct {
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinItems=1
	BaseDomains []string `json:"baseDomains"`

	// +kubebuilder:validation:Optional
	CertManager *CertManagerSpec `json:"certManager,omitempty"`

	// +kubebuilder:validation:Optional
	AllocationPolicy AllocationPolicy `json:"allocationPolicy,omitempty"`
}

// DomainAllocation binds one base domain to one Project.
type DomainAllocation struct {
	Domain  string           `json:"domain"`
	Project ProjectReference `json:"project"`
}

// DomainPoolStatus defines the observed state of DomainPool
type DomainPoolStatus struct {
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// +optional
	AllocatedDomains []string `json:"allocatedDomains,omitempty"`

	// +optional
	AvailableDomains []string `json:"availableDomains,omitempty"`

	// +optional
	Allocations []DomainAllocation `json:"allocations,omitempty"`

	// LastAllocatedDomain is where round-robin allocation resumes.
	// +optional
	LastAllocatedDomain string `json:"lastAllocatedDomain,omitempty"`

	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Cluster,shortName=dp
// +kubebuilder:printcolumn:name="Domains",type=string,JSONPath=`.spec.baseDomains`
// +kubebuilder:printcolumn:name="Available",type=string,JSONPath=`.status.availableDomains`
// +kubebuilder:printcolumn:name="Ready",type=string,JSONPath=`.status.conditions[?(@.type=="Ready")].status`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// DomainPool is a set of base domains handed out to Projects.
type DomainPool struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   DomainPoolSpec   `json:"spec,omitempty"`
	Status DomainPoolStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// DomainPoolList contains a list of DomainPool
type DomainPoolList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DomainPool `json:"items"`
}

func init() {
	SchemeBuilder.Register(&DomainPool{}, &DomainPoolList{})
}

// GetConditions returns a pointer to the status conditions.
func (d *DomainPool) GetConditions() *[]metav1.Condition {
	return &d.Status.Conditions
}

// AllocationFor returns the domain allocated to the given Project, if any.
func (d *DomainPool) AllocationFor(namespace, name string) (string, bool) {
	for _, a := range d.Status.Allocations {
		if a.Project.Namespace == namespace && a.Project.Name == name {
			return a.Domain, true
		}
	}
	return "", false
}

// UsesCloudflareDNS reports whether certificates are solved through Cloudflare DNS01.
func (d *DomainPool) UsesCloudflareDNS() bool {
	cm := d.Spec.CertManager
	return cm != nil && cm.ChallengeType == ChallengeDNS01 &&
		cm.DNSProvider != nil && cm.DNSProvider.Name == DNSProviderCloudflare
}
