// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

// Package dependent synthesizes the objects kapsa resources own and applies them.
//
// Builders are pure: the same parent always yields the same manifest. The Applier
// creates missing objects and never overwrites live ones. A live object whose
// desired-hash annotation no longer matches the freshly built manifest is reported
// as drifted and left untouched.
package dependent
