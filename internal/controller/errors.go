// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package controller

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilnet "k8s.io/apimachinery/pkg/util/net"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

// PreconditionError reports an input the resource needs that is not there yet.
// It is not a failure: the reconciler sets a False condition and waits.
type PreconditionError struct {
	Reason  string
	Message string
}

func (e *PreconditionError) Error() string {
	return e.Message
}

// Precondition returns a PreconditionError with a formatted message.
func Precondition(reason, format string, args ...any) error {
	return &PreconditionError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// InvalidSpecError reports a spec that can never reconcile until a user edits it.
type InvalidSpecError struct {
	Field   string
	Message string
}

func (e *InvalidSpecError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidSpec returns an InvalidSpecError for the given field path.
func InvalidSpec(field, format string, args ...any) error {
	return &InvalidSpecError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TransientError marks a failure of an external API that should clear on retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// AsPrecondition unwraps a PreconditionError.
func AsPrecondition(err error) (*PreconditionError, bool) {
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsInvalidSpec reports whether err wraps an InvalidSpecError, or is an API
// server rejection of an object derived from the spec.
func IsInvalidSpec(err error) bool {
	var ie *InvalidSpecError
	if errors.As(err, &ie) {
		return true
	}
	return apierrors.IsInvalid(err) || apierrors.IsBadRequest(err)
}

// IsConflict reports an optimistic-concurrency version mismatch.
func IsConflict(err error) bool {
	return apierrors.IsConflict(err)
}

// IsTransient reports errors caused by the API server or network rather than the resource.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err) ||
		apierrors.IsUnexpectedServerError(err) {
		return true
	}
	if utilnet.IsConnectionRefused(err) || utilnet.IsConnectionReset(err) || utilnet.IsProbableEOF(err) {
		return true
	}
	// context.DeadlineExceeded is a net.Error with Timeout() true.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsTimeout reports whether the attempt ran out of its execution budget.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// FailureReason maps an error onto the Ready condition reason reported to users.
func FailureReason(err error) string {
	switch {
	case IsInvalidSpec(err):
		return kapsav1alpha1.ReasonInvalidSpec
	case IsTransient(err):
		return kapsav1alpha1.ReasonTransientError
	default:
		return kapsav1alpha1.ReasonReconciliationFailed
	}
}

// maxMessageLength bounds messages written into conditions and events.
const maxMessageLength = 512

var sensitivePatterns = []string{
	"token", "secret", "password", "credential", "api_key", "apikey",
	"bearer", "authorization",
}

// SanitizeErrorMessage truncates err and hides messages that may carry credentials.
func SanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxMessageLength {
		msg = msg[:maxMessageLength-3] + "..."
	}
	lower := strings.ToLower(msg)
	for _, p := range sensitivePatterns {
		if strings.Contains(lower, p) && !isSafeReference(lower, p) {
			return genericErrorMessage(err)
		}
	}
	return msg
}

// isSafeReference allows messages that only name a Secret object, such as
// `secret "team/creds" not found`, which carry no credential material.
func isSafeReference(msg, pattern string) bool {
	return pattern == "secret" && strings.Contains(msg, "secret \"") && !strings.Contains(msg, "secret=")
}

func genericErrorMessage(err error) string {
	switch {
	case apierrors.IsUnauthorized(err), apierrors.IsForbidden(err):
		return "authentication failed - check credentials"
	case apierrors.IsTooManyRequests(err):
		return "API rate limit exceeded"
	case apierrors.IsNotFound(err):
		return "resource not found"
	default:
		return "operation failed - check operator logs for details"
	}
}
