// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package v1alpha1

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/webhook"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"
)

// SetupWebhookWithManager sets up the webhook with the Manager.
func (e *Environment) SetupWebhookWithManager(mgr ctrl.Manager) error {
	return ctrl.NewWebhookManagedBy(mgr).
		For(e).
		WithDefaulter(&EnvironmentDefaulter{}).
		WithValidator(&EnvironmentValidator{}).
		Complete()
}

// +kubebuilder:webhook:path=/mutate-kapsa-project-io-v1alpha1-environment,mutating=true,failurePolicy=fail,sideEffects=None,groups=kapsa-project.io,resources=environments,verbs=create;update,versions=v1alpha1,name=menvironment.kb.io,admissionReviewVersions=v1

// EnvironmentDefaulter fills in the documented defaults of an Environment.
type EnvironmentDefaulter struct{}

var _ webhook.CustomDefaulter = &EnvironmentDefaulter{}

// Default implements webhook.CustomDefaulter.
func (d *EnvironmentDefaulter) Default(_ context.Context, obj runtime.Object) error {
	e, ok := obj.(*Environment)
	if !ok {
		return fmt.Errorf("expected Environment but got %T", obj)
	}
	if e.Spec.Type == "" {
		e.Spec.Type = EnvironmentTypePermanent
	}
	rt := &e.Spec.Runtime
	if rt.Replicas == nil {
		rt.Replicas = ptr.To[int32](1)
	}
	if rt.Port == nil {
		rt.Port = ptr.To(DefaultContainerPort)
	}
	if a := rt.Autoscaling; a != nil {
		if a.MinReplicas == nil {
			a.MinReplicas = ptr.To[int32](1)
		}
		if a.MaxReplicas == 0 {
			a.MaxReplicas = 3
		}
	}
	return nil
}

// +kubebuilder:webhook:path=/validate-kapsa-project-io-v1alpha1-environment,mutating=false,failurePolicy=fail,sideEffects=None,groups=kapsa-project.io,resources=environments,verbs=create;update,versions=v1alpha1,name=venvironment.kb.io,admissionReviewVersions=v1

// EnvironmentValidator implements webhook validation for Environment.
type EnvironmentValidator struct{}

var _ webhook.CustomValidator = &EnvironmentValidator{}

// ValidateCreate implements webhook.CustomValidator.
func (v *EnvironmentValidator) ValidateCreate(_ context.Context, obj runtime.Object) (admission.Warnings, error) {
	e, ok := obj.(*Environment)
	if !ok {
		return nil, fmt.Errorf("expected Environment but got %T", obj)
	}

	var allErrs field.ErrorList
	var warnings admission.Warnings
	path := field.NewPath("spec")

	if e.Spec.ProjectRef.Name == "" {
		allErrs = append(allErrs, field.Required(path.Child("projectRef", "name"), "projectRef.name is required"))
	}

	if a := e.Spec.Runtime.Autoscaling; a != nil {
		asPath := path.Child("runtime", "autoscaling")
		if a.MaxReplicas > 0 && a.EffectiveMinReplicas() > a.MaxReplicas {
			allErrs = append(allErrs, field.Invalid(asPath.Child("minReplicas"), a.EffectiveMinReplicas(),
				"must not be greater than maxReplicas"))
		}
		if a.Enabled && e.Spec.Runtime.Replicas != nil {
			warnings = append(warnings, "spec.runtime.replicas is ignored while autoscaling is enabled")
		}
	}

	if r := e.Spec.Routing; r != nil {
		routingPath := path.Child("routing")
		if r.GatewayRef != nil && r.IngressClassName != nil {
			allErrs = append(allErrs, field.Forbidden(routingPath.Child("ingressClassName"),
				"ingressClassName must not be set together with gatewayRef"))
		}
		if r.Host != "" {
			for _, msg := range validation.IsDNS1123Subdomain(r.Host) {
				allErrs = append(allErrs, field.Invalid(routingPath.Child("host"), r.Host, msg))
			}
		}
	}

	if len(allErrs) > 0 {
		return warnings, apierrors.NewInvalid(schema.GroupKind{Group: GroupVersion.Group, Kind: "Environment"}, e.Name, allErrs)
	}
	return warnings, nil
}

// ValidateUpdate implements webhook.CustomValidator.
func (v *EnvironmentValidator) ValidateUpdate(ctx context.Context, _, newObj runtime.Object) (admission.Warnings, error) {
	return v.ValidateCreate(ctx, newObj)
}

// ValidateDelete implements webhook.CustomValidator.
func (v *EnvironmentValidator) ValidateDelete(context.Context, runtime.Object) (admission.Warnings, error) {
	return nil, nil
}
