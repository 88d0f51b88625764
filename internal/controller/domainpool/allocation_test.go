// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package domainpool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

func ref(ns, name string) kapsav1alpha1.ProjectReference {
	return kapsav1alpha1.ProjectReference{Namespace: ns, Name: name}
}

func poolWith(domains ...string) *kapsav1alpha1.DomainPool {
	pool := &kapsav1alpha1.DomainPool{}
	pool.Name = "pool"
	pool.Spec.BaseDomains = domains
	return pool
}

func TestBaseDomains(t *testing.T) {
	pool := poolWith("A.example.com", "b.example.com.", " a.example.com ", "")
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, BaseDomains(pool))
}

func TestAllocate_AddingBaseDomainExtendsAvailable(t *testing.T) {
	pool := poolWith("a", "b")
	first := Allocate(pool, nil)
	assert.Equal(t, []string{"a", "b"}, first.Available)
	assert.Empty(t, first.Allocated)

	pool.Spec.BaseDomains = []string{"a", "b", "c"}
	second := Allocate(pool, nil)
	assert.Equal(t, []string{"a", "b", "c"}, second.Available)
}

func TestAllocate_DisjointAndSticky(t *testing.T) {
	pool := poolWith("a", "b", "c")
	consumers := []kapsav1alpha1.ProjectReference{ref("team", "web"), ref("team", "api")}

	alloc := Allocate(pool, consumers)
	assert.Equal(t, []string{"a", "b"}, alloc.Allocated)
	assert.Equal(t, []string{"c"}, alloc.Available)
	assert.Equal(t, []kapsav1alpha1.DomainAllocation{
		{Domain: "a", Project: ref("team", "api")},
		{Domain: "b", Project: ref("team", "web")},
	}, alloc.Allocations)

	// Re-running over the recorded status yields the same allocation.
	pool.Status.Allocations = alloc.Allocations
	pool.Status.LastAllocatedDomain = alloc.LastAllocated
	again := Allocate(pool, consumers)
	assert.Equal(t, alloc.Allocations, again.Allocations)
	assert.Equal(t, alloc.Available, again.Available)
}

func TestAllocate_RemovedDomainIsNotRevoked(t *testing.T) {
	pool := poolWith("b")
	pool.Status.Allocations = []kapsav1alpha1.DomainAllocation{{Domain: "a", Project: ref("team", "web")}}

	alloc := Allocate(pool, []kapsav1alpha1.ProjectReference{ref("team", "web")})

	assert.Equal(t, []string{"a"}, alloc.Allocated)
	assert.Equal(t, []string{"a"}, alloc.Orphaned)
	assert.Equal(t, []string{"b"}, alloc.Available)
}

func TestAllocate_ReleasesGoneConsumers(t *testing.T) {
	pool := poolWith("a", "b")
	pool.Status.Allocations = []kapsav1alpha1.DomainAllocation{{Domain: "a", Project: ref("team", "old")}}

	alloc := Allocate(pool, nil)
	assert.Empty(t, alloc.Allocations)
	assert.Equal(t, []string{"a", "b"}, alloc.Available)
}

func TestAllocate_Exhausted(t *testing.T) {
	pool := poolWith("a")
	alloc := Allocate(pool, []kapsav1alpha1.ProjectReference{ref("x", "one"), ref("x", "two")})

	assert.Equal(t, []string{"a"}, alloc.Allocated)
	assert.Empty(t, alloc.Available)
	assert.Equal(t, []kapsav1alpha1.ProjectReference{ref("x", "two")}, alloc.Waiting)
}

func TestAllocate_Strategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy kapsav1alpha1.AllocationStrategy
		last     string
		want     string
	}{
		{"round-robin continues after last", kapsav1alpha1.AllocationRoundRobin, "a", "b"},
		{"round-robin wraps around", kapsav1alpha1.AllocationRoundRobin, "c", "a"},
		{"round-robin without history", "", "", "a"},
		{"first-available ignores history", kapsav1alpha1.AllocationFirstAvailable, "a", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := poolWith("a", "b", "c")
			pool.Spec.AllocationPolicy.Strategy = tt.strategy
			pool.Status.LastAllocatedDomain = tt.last

			alloc := Allocate(pool, []kapsav1alpha1.ProjectReference{ref("x", "web")})
			assert.Equal(t, tt.want, alloc.Allocations[0].Domain)
			assert.Equal(t, tt.want, alloc.LastAllocated)
		})
	}
}
