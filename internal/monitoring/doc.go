// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

// Package monitoring holds the operator's Prometheus collectors and OpenTelemetry tracer.
//
// Collectors register on controller-runtime's metrics.Registry so they are served from
// the manager's metrics endpoint next to the framework's own workqueue metrics.
// Reconcilers never touch the collectors directly; they receive a Recorder through
// their reconciliation context.
package monitoring
