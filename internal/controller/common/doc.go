// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

// Package common holds helpers shared by the per-kind controllers.
//
//   - Schedule: timer-driven requeue intervals with idle suppression
//   - DNSClientFactory: Cloudflare zone clients for DomainPool DNS verification
package common
