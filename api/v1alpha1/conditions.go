// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package v1alpha1

// Condition types reported on kapsa resources.
const (
	// ConditionReady summarizes whether the resource converged.
	ConditionReady = "Ready"
	// ConditionDependentsInSync is False when a live dependent differs from its synthesized manifest.
	ConditionDependentsInSync = "DependentsInSync"
	// ConditionAvailable mirrors the availability of an Environment's Deployment.
	ConditionAvailable = "Available"
	// ConditionAllocationWarning is True while a DomainPool has allocations it cannot honour cleanly.
	ConditionAllocationWarning = "AllocationWarning"
	// ConditionDNSVerified reports DNS provider zone verification for a DomainPool.
	ConditionDNSVerified = "DNSVerified"
)

// Condition reasons.
const (
	ReasonInitializing           = "Initializing"
	ReasonReconciled             = "Reconciled"
	ReasonMissingConfiguration   = "MissingConfiguration"
	ReasonRegistryNotFound       = "RegistryNotFound"
	ReasonRegistryNotReady       = "RegistryNotReady"
	ReasonCredentialsNotFound    = "CredentialsNotFound"
	ReasonProjectNotFound        = "ProjectNotFound"
	ReasonImageNotAvailable      = "ImageNotAvailable"
	ReasonWaitingForDomain       = "WaitingForDomain"
	ReasonBuildSystemUnavailable = "BuildSystemUnavailable"
	ReasonInvalidSpec            = "InvalidSpec"
	ReasonTransientError         = "TransientError"
	ReasonReconciliationFailed   = "ReconciliationFailed"
	ReasonCleanupFailed          = "CleanupFailed"
	ReasonDeployed               = "Deployed"

	ReasonRegistryConfigured  = "RegistryConfigured"
	ReasonRegistryUnreachable = "RegistryUnreachable"

	ReasonDomainPoolConfigured   = "DomainPoolConfigured"
	ReasonAllocatedDomainRemoved = "AllocatedDomainRemoved"
	ReasonPoolExhausted          = "PoolExhausted"
	ReasonNoWarnings             = "NoWarnings"
	ReasonDNSZoneNotFound        = "DNSZoneNotFound"
	ReasonDNSZonesVerified       = "DNSZonesVerified"
	ReasonDNSCheckSkipped        = "DNSCheckSkipped"

	ReasonDriftDetected = "DriftDetected"
	ReasonInSync        = "InSync"

	ReasonDeploymentAvailable   = "DeploymentAvailable"
	ReasonDeploymentUnavailable = "DeploymentUnavailable"
)

// Well-known labels and annotations.
const (
	LabelPrefix = "kapsa-project.io/"

	// LabelProject names the Project a dependent belongs to.
	LabelProject = LabelPrefix + "project"
	// LabelEnvironment names the Environment a dependent belongs to.
	LabelEnvironment = LabelPrefix + "environment"
	// LabelManagedBy marks objects created by the operator.
	LabelManagedBy = LabelPrefix + "managed-by"
	// LabelOwnerKind, LabelOwnerNamespace and LabelOwnerName track owners that cannot be
	// expressed as owner references.
	LabelOwnerKind      = LabelPrefix + "owner-kind"
	LabelOwnerNamespace = LabelPrefix + "owner-namespace"
	LabelOwnerName      = LabelPrefix + "owner-name"

	// AnnotationParentNamespace records the namespace of the Project owning a project namespace.
	AnnotationParentNamespace = LabelPrefix + "parent-namespace"
	// AnnotationOwnerUID records the UID of a label-tracked owner.
	AnnotationOwnerUID = LabelPrefix + "owner-uid"
	// AnnotationDesiredHash holds the hash of the manifest a dependent was created from.
	AnnotationDesiredHash = LabelPrefix + "desired-hash"

	// ManagedByValue is the value of LabelManagedBy.
	ManagedByValue = "kapsa-operator"
)
