// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

// Package domainpool provides the controller allocating base domains to Projects.
package domainpool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/clients/cf"
	"github.com/kapsa-project/kapsa-operator/internal/controller"
	"github.com/kapsa-project/kapsa-operator/internal/controller/common"
	"github.com/kapsa-project/kapsa-operator/internal/credentials"
	"github.com/kapsa-project/kapsa-operator/internal/monitoring"
)

// Kind is the kind handled by this controller.
const Kind = "DomainPool"

// Reconciler maintains the allocation status of DomainPools.
type Reconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	Metrics  monitoring.Recorder

	// DNS verifies base domains against Cloudflare zones. Nil skips verification.
	DNS *common.DNSClientFactory
	// DNSRecheckInterval is how often zones are verified again. Defaults to five minutes.
	DNSRecheckInterval time.Duration
	Timeout            time.Duration
}

// +kubebuilder:rbac:groups=kapsa-project.io,resources=domainpools,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=kapsa-project.io,resources=domainpools/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=kapsa-project.io,resources=domainpools/finalizers,verbs=update
// +kubebuilder:rbac:groups=kapsa-project.io,resources=projects,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch

// Engine returns the engine driving DomainPools.
func (r *Reconciler) Engine() *controller.Engine[*kapsav1alpha1.DomainPool] {
	return &controller.Engine[*kapsav1alpha1.DomainPool]{
		Kind:      Kind,
		Client:    r.Client,
		Recorder:  r.Recorder,
		Metrics:   r.Metrics,
		Timeout:   r.Timeout,
		NewObject: func() *kapsav1alpha1.DomainPool { return &kapsav1alpha1.DomainPool{} },
		Handlers: map[controller.EventType]controller.Handler[*kapsav1alpha1.DomainPool]{
			controller.EventSync:     r.Sync,
			controller.EventFinalize: r.Finalize,
		},
		Watches: r.watches,
	}
}

// Sync recomputes the allocation of a DomainPool from the Projects referencing it.
func (r *Reconciler) Sync(rc *controller.ReconcileContext, pool *kapsav1alpha1.DomainPool) (controller.Outcome, error) {
	pool.Status.ObservedGeneration = pool.Generation

	consumers, err := r.consumers(rc.Ctx, pool.Name)
	if err != nil {
		return controller.Outcome{}, err
	}

	alloc := Allocate(pool, consumers)
	pool.Status.Allocations = alloc.Allocations
	pool.Status.AllocatedDomains = alloc.Allocated
	pool.Status.AvailableDomains = alloc.Available
	pool.Status.LastAllocatedDomain = alloc.LastAllocated
	rc.Metrics.SetDomainPoolDomains(pool.Name, len(alloc.Allocated), len(alloc.Available))

	r.setAllocationWarning(rc, pool, alloc)

	outcome := controller.Outcome{}
	if pool.UsesCloudflareDNS() && r.DNS != nil {
		outcome.RequeueAfter = r.dnsRecheckInterval()
	}
	if err := r.verifyDNS(rc, pool); err != nil {
		return outcome, err
	}

	controller.SetObservedCondition(&pool.Status.Conditions, pool.Generation, kapsav1alpha1.ConditionReady,
		metav1.ConditionTrue, kapsav1alpha1.ReasonDomainPoolConfigured,
		fmt.Sprintf("DomainPool %s is configured with %d base domain(s)", pool.Name, len(BaseDomains(pool))))
	return outcome, nil
}

// Finalize drops the pool's metrics. Allocations live only in the pool's status.
func (r *Reconciler) Finalize(rc *controller.ReconcileContext, pool *kapsav1alpha1.DomainPool) (controller.Outcome, error) {
	rc.Metrics.ForgetDomainPool(pool.Name)
	return controller.Outcome{}, nil
}

func (r *Reconciler) setAllocationWarning(rc *controller.ReconcileContext, pool *kapsav1alpha1.DomainPool, alloc Allocation) {
	var reason, message string
	switch {
	case len(alloc.Orphaned) > 0:
		reason = kapsav1alpha1.ReasonAllocatedDomainRemoved
		message = fmt.Sprintf("domains removed from spec.baseDomains are still allocated: %s",
			strings.Join(alloc.Orphaned, ", "))
	case len(alloc.Waiting) > 0:
		reason = kapsav1alpha1.ReasonPoolExhausted
		message = fmt.Sprintf("%d project(s) are waiting for a free base domain", len(alloc.Waiting))
	default:
		controller.SetObservedCondition(&pool.Status.Conditions, pool.Generation, kapsav1alpha1.ConditionAllocationWarning,
			metav1.ConditionFalse, kapsav1alpha1.ReasonNoWarnings, "All allocations are backed by base domains")
		return
	}

	current := meta.FindStatusCondition(pool.Status.Conditions, kapsav1alpha1.ConditionAllocationWarning)
	if current == nil || current.Status != metav1.ConditionTrue || current.Message != message {
		rc.Warning(pool, controller.EventReasonDomainWarning, message)
	}
	controller.SetObservedCondition(&pool.Status.Conditions, pool.Generation, kapsav1alpha1.ConditionAllocationWarning,
		metav1.ConditionTrue, reason, message)
}

// verifyDNS checks that every base domain belongs to a Cloudflare zone the pool's token can see.
// Missing credentials and zones are reported on the DNSVerified condition. API failures are returned,
// marked transient when Cloudflare throttles or is unavailable.
func (r *Reconciler) verifyDNS(rc *controller.ReconcileContext, pool *kapsav1alpha1.DomainPool) error {
	setDNS := func(status metav1.ConditionStatus, reason, message string) {
		controller.SetObservedCondition(&pool.Status.Conditions, pool.Generation, kapsav1alpha1.ConditionDNSVerified,
			status, reason, message)
	}
	if !pool.UsesCloudflareDNS() || r.DNS == nil {
		setDNS(metav1.ConditionUnknown, kapsav1alpha1.ReasonDNSCheckSkipped, "DNS01 with Cloudflare is not configured")
		return nil
	}

	lookup, err := r.DNS.GetZoneLookup(rc.Ctx, pool)
	if err != nil {
		if apierrors.IsNotFound(err) || errors.Is(err, credentials.ErrKeyMissing) ||
			errors.Is(err, credentials.ErrSecretRefNil) || errors.Is(err, cf.ErrNoCredentials) {
			setDNS(metav1.ConditionFalse, kapsav1alpha1.ReasonCredentialsNotFound, controller.SanitizeErrorMessage(err))
			return nil
		}
		return err
	}

	var missing []string
	for _, domain := range BaseDomains(pool) {
		_, err := lookup.FindZone(rc.Ctx, domain)
		switch {
		case err == nil:
		case cf.IsNotFoundError(err):
			missing = append(missing, domain)
		case cf.IsAuthError(err):
			setDNS(metav1.ConditionFalse, kapsav1alpha1.ReasonCredentialsNotFound, "Cloudflare rejected the API token")
			return nil
		case cf.IsTemporaryError(err):
			msg := "Cloudflare API is unavailable, retrying"
			if cf.IsRateLimitError(err) {
				msg = "Cloudflare API rate limit reached, retrying"
			}
			setDNS(metav1.ConditionUnknown, kapsav1alpha1.ReasonTransientError, msg)
			return controller.Transient(fmt.Errorf("failed to verify zone of %s: %w", domain, err))
		default:
			return fmt.Errorf("failed to verify zone of %s: %w", domain, err)
		}
	}

	if len(missing) > 0 {
		setDNS(metav1.ConditionFalse, kapsav1alpha1.ReasonDNSZoneNotFound,
			fmt.Sprintf("no Cloudflare zone found for: %s", strings.Join(missing, ", ")))
		return nil
	}
	setDNS(metav1.ConditionTrue, kapsav1alpha1.ReasonDNSZonesVerified,
		fmt.Sprintf("%d base domain(s) belong to Cloudflare zones", len(BaseDomains(pool))))
	return nil
}

func (r *Reconciler) dnsRecheckInterval() time.Duration {
	if r.DNSRecheckInterval <= 0 {
		return common.RequeueIntervalVeryLong
	}
	return r.DNSRecheckInterval
}

// consumers lists the live Projects requesting a domain from the named pool.
func (r *Reconciler) consumers(ctx context.Context, pool string) ([]kapsav1alpha1.ProjectReference, error) {
	projects := &kapsav1alpha1.ProjectList{}
	if err := r.List(ctx, projects); err != nil {
		return nil, fmt.Errorf("failed to list Projects: %w", err)
	}
	var refs []kapsav1alpha1.ProjectReference
	for i := range projects.Items {
		p := &projects.Items[i]
		if p.DeletionTimestamp != nil || p.Spec.Domain == nil || p.Spec.Domain.DomainPoolRef != pool {
			continue
		}
		refs = append(refs, kapsav1alpha1.ProjectReference{Name: p.Name, Namespace: p.Namespace})
	}
	return refs, nil
}

func (r *Reconciler) watches(b *builder.Builder) *builder.Builder {
	return b.Watches(&kapsav1alpha1.Project{}, handler.EnqueueRequestsFromMapFunc(poolForProject))
}

// poolForProject maps a Project to the DomainPool it requests a domain from.
func poolForProject(_ context.Context, obj client.Object) []reconcile.Request {
	project, ok := obj.(*kapsav1alpha1.Project)
	if !ok || project.Spec.Domain == nil || project.Spec.Domain.DomainPoolRef == "" {
		return nil
	}
	return []reconcile.Request{{NamespacedName: types.NamespacedName{Name: project.Spec.Domain.DomainPoolRef}}}
}
