// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

// Package registry parses container registry endpoints and credentials and
// probes registries for reachability.
package registry
