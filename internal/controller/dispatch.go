// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package controller

import (
	"fmt"
	"sort"
	"time"

	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// Registration is a kind's entry in the dispatch table.
type Registration interface {
	GetKind() string
	Events() []EventType
	SetupWithManager(mgr ctrl.Manager, opts controller.Options) error
}

// Route is one (kind, event) pair of the dispatch table.
type Route struct {
	Kind  string
	Event EventType
}

func (r Route) String() string {
	return r.Kind + "/" + string(r.Event)
}

// ControllerOptions are the workqueue settings shared by every registered kind.
type ControllerOptions struct {
	MaxConcurrentReconciles int
	BackoffBase             time.Duration
	BackoffMax              time.Duration
}

// Build returns controller options with a fresh rate limiter. Each controller gets its
// own limiter so that failures of one kind never delay another kind's keys.
func (o ControllerOptions) Build() controller.Options {
	opts := controller.Options{MaxConcurrentReconciles: o.MaxConcurrentReconciles}
	if o.BackoffBase > 0 && o.BackoffMax > 0 {
		opts.RateLimiter = workqueue.NewTypedItemExponentialFailureRateLimiter[reconcile.Request](o.BackoffBase, o.BackoffMax)
	}
	return opts
}

// DispatchTable maps (kind, event) pairs to the engine that handles them.
// Registering two handlers for the same pair is an error.
type DispatchTable struct {
	entries map[string]Registration
	routes  map[Route]struct{}
}

// NewDispatchTable returns an empty table.
func NewDispatchTable() *DispatchTable {
	return &DispatchTable{
		entries: make(map[string]Registration),
		routes:  make(map[Route]struct{}),
	}
}

// Register adds every route served by r.
func (t *DispatchTable) Register(r Registration) error {
	if r.GetKind() == "" {
		return fmt.Errorf("registration without a kind")
	}
	events := r.Events()
	if len(events) == 0 {
		return fmt.Errorf("%s: no handlers registered", r.GetKind())
	}
	for _, ev := range events {
		if _, ok := t.routes[Route{Kind: r.GetKind(), Event: ev}]; ok {
			return fmt.Errorf("duplicate handler for %s", Route{Kind: r.GetKind(), Event: ev})
		}
	}
	for _, ev := range events {
		t.routes[Route{Kind: r.GetKind(), Event: ev}] = struct{}{}
	}
	if _, ok := t.entries[r.GetKind()]; ok {
		return fmt.Errorf("%s: kind registered twice", r.GetKind())
	}
	t.entries[r.GetKind()] = r
	return nil
}

// Handles reports whether a handler is registered for the pair.
func (t *DispatchTable) Handles(kind string, ev EventType) bool {
	_, ok := t.routes[Route{Kind: kind, Event: ev}]
	return ok
}

// Routes returns all registered pairs in a stable order.
func (t *DispatchTable) Routes() []Route {
	routes := make([]Route, 0, len(t.routes))
	for r := range t.routes {
		routes = append(routes, r)
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].String() < routes[j].String()
	})
	return routes
}

// Kinds returns the registered kinds in a stable order.
func (t *DispatchTable) Kinds() []string {
	kinds := make([]string, 0, len(t.entries))
	for k := range t.entries {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// SetupWithManager starts one controller per registered kind.
func (t *DispatchTable) SetupWithManager(mgr ctrl.Manager, opts ControllerOptions) error {
	for _, kind := range t.Kinds() {
		if err := t.entries[kind].SetupWithManager(mgr, opts.Build()); err != nil {
			return fmt.Errorf("unable to set up %s controller: %w", kind, err)
		}
	}
	return nil
}
