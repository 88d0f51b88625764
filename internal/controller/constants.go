// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package controller

import "time"

// FinalizerName guards every kapsa resource until its cleanup has run.
const FinalizerName = "kapsa.io/finalizer"

// Requeue delays used by the engine.
const (
	// ConflictRequeueDelay re-runs an attempt whose status write lost an optimistic-concurrency race.
	ConflictRequeueDelay = 500 * time.Millisecond

	// InvalidSpecRequeueDelay re-checks a resource with a permanently invalid spec.
	InvalidSpecRequeueDelay = 5 * time.Minute

	// PreconditionRequeueDelay re-checks a resource waiting for a missing input.
	PreconditionRequeueDelay = time.Minute
)

// Event reasons
const (
	EventReasonCreated          = "Created"
	EventReasonDeleted          = "Deleted"
	EventReasonReconciled       = "Reconciled"
	EventReasonFinalizerAdded   = "FinalizerAdded"
	EventReasonFinalizerRemoved = "FinalizerRemoved"

	EventReasonReconcileFailed = "ReconcileFailed"
	EventReasonDeleteFailed    = "DeleteFailed"
	EventReasonInvalidSpec     = "InvalidSpec"
	EventReasonDriftDetected   = "DriftDetected"
	EventReasonForeignObject   = "ForeignObject"
	EventReasonDomainWarning   = "DomainWarning"
)
