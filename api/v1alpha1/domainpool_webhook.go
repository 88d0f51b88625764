// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package v1alpha1

import (
	"context"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/webhook"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"
)

// SetupWebhookWithManager sets up the webhook with the Manager.
func (d *DomainPool) SetupWebhookWithManager(mgr ctrl.Manager) error {
	return ctrl.NewWebhookManagedBy(mgr).
		For(d).
		WithValidator(&DomainPoolValidator{}).
		Complete()
}

// +kubebuilder:webhook:path=/validate-kapsa-project-io-v1alpha1-domainpool,mutating=false,failurePolicy=fail,sideEffects=None,groups=kapsa-project.io,resources=domainpools,verbs=create;update,versions=v1alpha1,name=vdomainpool.kb.io,admissionReviewVersions=v1

// DomainPoolValidator implements webhook validation for DomainPool.
type DomainPoolValidator struct{}

var _ webhook.CustomValidator = &DomainPoolValidator{}

// ValidateCreate implements webhook.CustomValidator.
func (v *DomainPoolValidator) ValidateCreate(_ context.Context, obj runtime.Object) (admission.Warnings, error) {
	d, ok := obj.(*DomainPool)
	if !ok {
		return nil, fmt.Errorf("expected DomainPool but got %T", obj)
	}
	warnings, allErrs := validateDomainPoolSpec(&d.Spec, field.NewPath("spec"))
	if len(allErrs) > 0 {
		return warnings, apierrors.NewInvalid(schema.GroupKind{Group: GroupVersion.Group, Kind: "DomainPool"}, d.Name, allErrs)
	}
	return warnings, nil
}

// ValidateUpdate warns when a base domain still allocated to a Project is removed.
// The allocation is kept until the Project releases it.
func (v *DomainPoolValidator) ValidateUpdate(ctx context.Context, oldObj, newObj runtime.Object) (admission.Warnings, error) {
	warnings, err := v.ValidateCreate(ctx, newObj)
	if err != nil {
		return warnings, err
	}
	d := newObj.(*DomainPool)
	kept := make(map[string]bool, len(d.Spec.BaseDomains))
	for _, domain := range d.Spec.BaseDomains {
		kept[strings.ToLower(strings.TrimSuffix(domain, "."))] = true
	}
	if old, ok := oldObj.(*DomainPool); ok {
		for _, a := range old.Status.Allocations {
			if !kept[a.Domain] {
				warnings = append(warnings, fmt.Sprintf("domain %s stays allocated to Project %s/%s until it is released",
					a.Domain, a.Project.Namespace, a.Project.Name))
			}
		}
	}
	return warnings, nil
}

// ValidateDelete implements webhook.CustomValidator.
func (v *DomainPoolValidator) ValidateDelete(_ context.Context, obj runtime.Object) (admission.Warnings, error) {
	d, ok := obj.(*DomainPool)
	if !ok || len(d.Status.Allocations) == 0 {
		return nil, nil
	}
	return admission.Warnings{fmt.Sprintf("DomainPool %s still has %d allocation(s)", d.Name, len(d.Status.Allocations))}, nil
}

func validateDomainPoolSpec(spec *DomainPoolSpec, path *field.Path) (admission.Warnings, field.ErrorList) {
	var errs field.ErrorList
	var warnings admission.Warnings

	domainsPath := path.Child("baseDomains")
	if len(spec.BaseDomains) == 0 {
		errs = append(errs, field.Required(domainsPath, "at least one base domain is required"))
	}
	seen := make(map[string]bool, len(spec.BaseDomains))
	for i, domain := range spec.BaseDomains {
		normalized := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
		for _, msg := range validation.IsDNS1123Subdomain(normalized) {
			errs = append(errs, field.Invalid(domainsPath.Index(i), domain, msg))
		}
		if seen[normalized] {
			errs = append(errs, field.Duplicate(domainsPath.Index(i), domain))
		}
		seen[normalized] = true
	}

	if cm := spec.CertManager; cm != nil {
		cmPath := path.Child("certManager")
		if cm.IssuerRef.Name == "" {
			errs = append(errs, field.Required(cmPath.Child("issuerRef", "name"), "issuer name is required"))
		}
		switch cm.ChallengeType {
		case ChallengeDNS01:
			if cm.DNSProvider == nil {
				errs = append(errs, field.Required(cmPath.Child("dnsProvider"), "dnsProvider is required for dns01 challenges"))
			} else if cm.DNSProvider.Name == DNSProviderCloudflare && cm.DNSProvider.CredentialsSecretRef == nil {
				errs = append(errs, field.Required(cmPath.Child("dnsProvider", "credentialsSecretRef"),
					"cloudflare requires an API token secret"))
			}
		case ChallengeHTTP01, "":
			if cm.DNSProvider != nil {
				warnings = append(warnings, "spec.certManager.dnsProvider is ignored for http01 challenges")
			}
		default:
			errs = append(errs, field.NotSupported(cmPath.Child("challengeType"), cm.ChallengeType,
				[]ChallengeType{ChallengeHTTP01, ChallengeDNS01}))
		}
	}

	switch spec.AllocationPolicy.Strategy {
	case "", AllocationRoundRobin, AllocationFirstAvailable:
	default:
		errs = append(errs, field.NotSupported(path.Child("allocationPolicy", "strategy"), spec.AllocationPolicy.Strategy,
			[]AllocationStrategy{AllocationRoundRobin, AllocationFirstAvailable}))
	}
	return warnings, errs
}
