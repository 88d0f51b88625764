// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package common

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Standard requeue intervals for controllers.
const (
	// RequeueIntervalShort is used while dependents are still being created.
	RequeueIntervalShort = 10 * time.Second

	// RequeueIntervalMedium is used for polling rollouts and build status.
	RequeueIntervalMedium = 30 * time.Second

	// RequeueIntervalLong is used for waiting on inputs owned by other resources.
	RequeueIntervalLong = 1 * time.Minute

	// RequeueIntervalVeryLong re-checks external systems such as registries and DNS zones.
	RequeueIntervalVeryLong = 5 * time.Minute
)

// maxBackoffShift caps the doubling at 64x the base interval.
const maxBackoffShift = 6

// Schedule computes the timer-driven requeue interval of a resource.
// Resources that changed recently are re-checked every Base. Once a resource has been idle
// for longer than IdleWindow the interval doubles for every further idle window, up to Max.
type Schedule struct {
	Base       time.Duration
	IdleWindow time.Duration
	Max        time.Duration
}

// Next returns the delay before the next synthetic reconciliation.
// A nil lastChange is treated as a change happening now.
func (s Schedule) Next(lastChange *metav1.Time, now time.Time) time.Duration {
	base := s.Base
	if base <= 0 {
		base = RequeueIntervalVeryLong
	}
	if lastChange == nil || s.IdleWindow <= 0 {
		return s.capped(base)
	}

	idle := now.Sub(lastChange.Time)
	if idle < s.IdleWindow {
		return s.capped(base)
	}
	return RequeueWithBackoff(base, int(idle/s.IdleWindow), s.max(base))
}

func (s Schedule) capped(d time.Duration) time.Duration {
	if m := s.max(d); d > m {
		return m
	}
	return d
}

func (s Schedule) max(base time.Duration) time.Duration {
	if s.Max <= 0 || s.Max < base {
		return base
	}
	return s.Max
}

// WithBase returns a copy of s using base as the change-time interval.
func (s Schedule) WithBase(base time.Duration) Schedule {
	s.Base = base
	return s
}

// RequeueWithBackoff returns baseDelay doubled retryCount times, capped at maxDelay.
func RequeueWithBackoff(baseDelay time.Duration, retryCount int, maxDelay time.Duration) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	delay := baseDelay * time.Duration(1<<min(retryCount, maxBackoffShift))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
