// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package v1alpha1

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/validation/field"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/webhook"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"
)

// SetupWebhookWithManager sets up the webhook with the Manager.
func (r *Registry) SetupWebhookWithManager(mgr ctrl.Manager) error {
	return ctrl.NewWebhookManagedBy(mgr).
		For(r).
		WithValidator(&RegistryValidator{}).
		Complete()
}

// +kubebuilder:webhook:path=/validate-kapsa-project-io-v1alpha1-registry,mutating=false,failurePolicy=fail,sideEffects=None,groups=kapsa-project.io,resources=registries,verbs=create;update,versions=v1alpha1,name=vregistry.kb.io,admissionReviewVersions=v1

// RegistryValidator implements webhook validation for Registry.
type RegistryValidator struct{}

var _ webhook.CustomValidator = &RegistryValidator{}

// ValidateCreate implements webhook.CustomValidator.
func (v *RegistryValidator) ValidateCreate(_ context.Context, obj runtime.Object) (admission.Warnings, error) {
	r, ok := obj.(*Registry)
	if !ok {
		return nil, fmt.Errorf("expected Registry but got %T", obj)
	}

	var allErrs field.ErrorList
	var warnings admission.Warnings
	path := field.NewPath("spec")

	endpointPath := path.Child("endpoint")
	endpoint := strings.TrimSpace(r.Spec.Endpoint)
	if i := strings.Index(endpoint, "://"); i >= 0 {
		endpoint = endpoint[i+len("://"):]
	}
	host, rest, _ := strings.Cut(endpoint, "/")
	switch {
	case host == "":
		allErrs = append(allErrs, field.Required(endpointPath, "endpoint must name a registry host"))
	case strings.Trim(rest, "/") != "":
		allErrs = append(allErrs, field.Invalid(endpointPath, r.Spec.Endpoint, "endpoint must not contain a path"))
	default:
		if _, err := name.NewRegistry(host, name.StrictValidation); err != nil {
			allErrs = append(allErrs, field.Invalid(endpointPath, r.Spec.Endpoint, err.Error()))
		}
	}
	if r.Insecure() {
		warnings = append(warnings, "registry endpoint uses plain http")
	}

	if ref := r.Spec.Auth.SecretRef; ref != nil && (ref.Name == "" || ref.Namespace == "") {
		allErrs = append(allErrs, field.Required(path.Child("auth", "secretRef"), "name and namespace are required"))
	}
	if r.Spec.Type == RegistryTypeHarbor && r.Spec.Options.ProjectName == "" {
		warnings = append(warnings, "harbor registries usually set spec.options.projectName")
	}

	if len(allErrs) > 0 {
		return warnings, apierrors.NewInvalid(schema.GroupKind{Group: GroupVersion.Group, Kind: "Registry"}, r.Name, allErrs)
	}
	return warnings, nil
}

// ValidateUpdate implements webhook.CustomValidator.
func (v *RegistryValidator) ValidateUpdate(ctx context.Context, _, newObj runtime.Object) (admission.Warnings, error) {
	return v.ValidateCreate(ctx, newObj)
}

// ValidateDelete implements webhook.CustomValidator.
func (v *RegistryValidator) ValidateDelete(context.Context, runtime.Object) (admission.Warnings, error) {
	return nil, nil
}
