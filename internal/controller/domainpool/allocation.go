// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package domainpool

import (
	"sort"
	"strings"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

// Allocation is the allocation state derived from a DomainPool and its consumers.
type Allocation struct {
	Allocations []kapsav1alpha1.DomainAllocation
	// Allocated lists allocated domains, sorted.
	Allocated []string
	// Available lists base domains nobody holds, in spec order.
	Available []string
	// Orphaned lists allocated domains no longer present in spec.baseDomains.
	Orphaned []string
	// Waiting lists consumers that could not be given a domain.
	Waiting       []kapsav1alpha1.ProjectReference
	LastAllocated string
}

// NormalizeDomain lowercases a domain and strips surrounding dots and whitespace.
func NormalizeDomain(domain string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// BaseDomains returns the normalized, de-duplicated base domains of a pool in spec order.
func BaseDomains(pool *kapsav1alpha1.DomainPool) []string {
	seen := make(map[string]struct{}, len(pool.Spec.BaseDomains))
	domains := make([]string, 0, len(pool.Spec.BaseDomains))
	for _, d := range pool.Spec.BaseDomains {
		d = NormalizeDomain(d)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}
	return domains
}

// Allocate computes the allocation of pool for consumers.
//
// Existing allocations are sticky: a consumer keeps its domain even when the domain was
// removed from spec.baseDomains, in which case the domain is reported as orphaned.
// Allocations of consumers that no longer exist are released. Unallocated consumers are
// served in name order according to the pool's strategy. Each domain is held by at most
// one consumer.
func Allocate(pool *kapsav1alpha1.DomainPool, consumers []kapsav1alpha1.ProjectReference) Allocation {
	base := BaseDomains(pool)
	inBase := make(map[string]int, len(base))
	for i, d := range base {
		inBase[d] = i
	}

	wanted := make(map[kapsav1alpha1.ProjectReference]struct{}, len(consumers))
	for _, c := range consumers {
		wanted[c] = struct{}{}
	}

	result := Allocation{LastAllocated: pool.Status.LastAllocatedDomain}
	used := map[string]struct{}{}
	holding := map[kapsav1alpha1.ProjectReference]struct{}{}
	for _, a := range pool.Status.Allocations {
		domain := NormalizeDomain(a.Domain)
		if _, ok := wanted[a.Project]; !ok {
			continue
		}
		if _, ok := holding[a.Project]; ok {
			continue
		}
		if _, ok := used[domain]; ok {
			continue
		}
		used[domain] = struct{}{}
		holding[a.Project] = struct{}{}
		result.Allocations = append(result.Allocations, kapsav1alpha1.DomainAllocation{Domain: domain, Project: a.Project})
		if _, ok := inBase[domain]; !ok {
			result.Orphaned = append(result.Orphaned, domain)
		}
	}

	var free []string
	for _, d := range base {
		if _, ok := used[d]; !ok {
			free = append(free, d)
		}
	}

	pending := make([]kapsav1alpha1.ProjectReference, 0, len(consumers))
	for _, c := range consumers {
		if _, ok := holding[c]; !ok {
			pending = append(pending, c)
		}
	}
	sortReferences(pending)

	for _, c := range pending {
		if len(free) == 0 {
			result.Waiting = append(result.Waiting, c)
			continue
		}
		i := pick(pool.Spec.AllocationPolicy.Strategy, free, inBase, result.LastAllocated)
		domain := free[i]
		free = append(free[:i], free[i+1:]...)
		holding[c] = struct{}{}
		result.Allocations = append(result.Allocations, kapsav1alpha1.DomainAllocation{Domain: domain, Project: c})
		result.LastAllocated = domain
	}

	result.Available = free
	for _, a := range result.Allocations {
		result.Allocated = append(result.Allocated, a.Domain)
	}
	sort.Strings(result.Allocated)
	sort.Strings(result.Orphaned)
	sort.Slice(result.Allocations, func(i, j int) bool {
		return result.Allocations[i].Domain < result.Allocations[j].Domain
	})
	return result
}

// pick returns the index in free of the next domain to hand out. Round-robin continues
// after the last allocated domain in spec order, wrapping around.
func pick(strategy kapsav1alpha1.AllocationStrategy, free []string, order map[string]int, last string) int {
	if strategy == kapsav1alpha1.AllocationFirstAvailable {
		return 0
	}
	lastIdx, ok := order[last]
	if !ok {
		return 0
	}
	for i, d := range free {
		if order[d] > lastIdx {
			return i
		}
	}
	return 0
}

func sortReferences(refs []kapsav1alpha1.ProjectReference) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Namespace != refs[j].Namespace {
			return refs[i].Namespace < refs[j].Namespace
		}
		return refs[i].Name < refs[j].Name
	})
}
