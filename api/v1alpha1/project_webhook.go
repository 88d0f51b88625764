// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package v1alpha1

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
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
func (p *Project) SetupWebhookWithManager(mgr ctrl.Manager) error {
	return ctrl.NewWebhookManagedBy(mgr).
		For(p).
		WithDefaulter(&ProjectDefaulter{}).
		WithValidator(&ProjectValidator{}).
		Complete()
}

// +kubebuilder:webhook:path=/mutate-kapsa-project-io-v1alpha1-project,mutating=true,failurePolicy=fail,sideEffects=None,groups=kapsa-project.io,resources=projects,verbs=create;update,versions=v1alpha1,name=mproject.kb.io,admissionReviewVersions=v1

// ProjectDefaulter fills in the documented defaults of a Project.
type ProjectDefaulter struct{}

var _ webhook.CustomDefaulter = &ProjectDefaulter{}

// Default implements webhook.CustomDefaulter.
func (d *ProjectDefaulter) Default(_ context.Context, obj runtime.Object) error {
	p, ok := obj.(*Project)
	if !ok {
		return fmt.Errorf("expected Project but got %T", obj)
	}
	if p.Spec.Repository.Branch == "" {
		p.Spec.Repository.Branch = DefaultBranch
	}
	if p.Spec.Repository.PollInterval == nil {
		p.Spec.Repository.PollInterval = ptr.To(DefaultPollIntervalSeconds)
	}
	if p.Spec.Build.Strategy == "" {
		p.Spec.Build.Strategy = BuildStrategyKpack
	}
	if p.Spec.Build.Builder != nil && p.Spec.Build.Builder.Kind == "" {
		p.Spec.Build.Builder.Kind = DefaultBuilderKind
	}
	return nil
}

// +kubebuilder:webhook:path=/validate-kapsa-project-io-v1alpha1-project,mutating=false,failurePolicy=fail,sideEffects=None,groups=kapsa-project.io,resources=projects,verbs=create;update,versions=v1alpha1,name=vproject.kb.io,admissionReviewVersions=v1

// ProjectValidator implements webhook validation for Project.
type ProjectValidator struct{}

var _ webhook.CustomValidator = &ProjectValidator{}

// ValidateCreate implements webhook.CustomValidator.
func (v *ProjectValidator) ValidateCreate(_ context.Context, obj runtime.Object) (admission.Warnings, error) {
	p, ok := obj.(*Project)
	if !ok {
		return nil, fmt.Errorf("expected Project but got %T", obj)
	}

	var warnings admission.Warnings
	if missing := p.Spec.MissingConfiguration(); len(missing) > 0 {
		warnings = append(warnings, fmt.Sprintf("nothing is built until %s is set", strings.Join(missing, ", ")))
	}

	allErrs := validateProject(p)
	if len(allErrs) > 0 {
		return warnings, apierrors.NewInvalid(schema.GroupKind{Group: GroupVersion.Group, Kind: "Project"}, p.Name, allErrs)
	}
	return warnings, nil
}

// ValidateUpdate implements webhook.CustomValidator.
func (v *ProjectValidator) ValidateUpdate(ctx context.Context, _, newObj runtime.Object) (admission.Warnings, error) {
	return v.ValidateCreate(ctx, newObj)
}

// ValidateDelete implements webhook.CustomValidator.
func (v *ProjectValidator) ValidateDelete(context.Context, runtime.Object) (admission.Warnings, error) {
	return nil, nil
}

func validateProject(p *Project) field.ErrorList {
	var errs field.ErrorList

	// The name seeds the namespace and every per-environment resource.
	if p.Name != "" {
		for _, msg := range validation.IsDNS1123Label(p.NamespaceName()) {
			errs = append(errs, field.Invalid(field.NewPath("metadata", "name"), p.Name,
				fmt.Sprintf("namespace %q: %s", p.NamespaceName(), msg)))
		}
	}

	return append(errs, validateProjectSpec(p, field.NewPath("spec"))...)
}

func validateProjectSpec(p *Project, path *field.Path) field.ErrorList {
	var errs field.ErrorList
	spec := &p.Spec

	if raw := spec.Repository.URL; raw != "" && !isSCPLikeURL(raw) {
		urlPath := path.Child("repository", "url")
		if u, err := url.Parse(raw); err != nil {
			errs = append(errs, field.Invalid(urlPath, raw, err.Error()))
		} else if u.Scheme == "" || u.Host == "" {
			errs = append(errs, field.Invalid(urlPath, raw, "must be an absolute URL or of the form user@host:path"))
		}
	}

	if repo := spec.Registry.ImageRepository; repo != "" {
		if _, err := name.NewRepository("registry.invalid/" + strings.Trim(repo, "/")); err != nil {
			errs = append(errs, field.Invalid(path.Child("registry", "imageRepository"), repo, err.Error()))
		}
	}

	if spec.Domain != nil && spec.Domain.Subdomain != "" {
		for _, msg := range validation.IsDNS1123Label(spec.Domain.Subdomain) {
			errs = append(errs, field.Invalid(path.Child("domain", "subdomain"), spec.Domain.Subdomain, msg))
		}
	}

	seen := make(map[string]bool, len(spec.Environments))
	for i, env := range spec.Environments {
		envPath := path.Child("environments").Index(i).Child("name")
		msgs := validation.IsDNS1123Label(env.Name)
		for _, msg := range msgs {
			errs = append(errs, field.Invalid(envPath, env.Name, msg))
		}
		if len(msgs) == 0 && p.Name != "" {
			resource := p.EnvironmentResourceName(env.Name)
			for _, msg := range validation.IsDNS1123Label(resource) {
				errs = append(errs, field.Invalid(envPath, env.Name, fmt.Sprintf("resource name %q: %s", resource, msg)))
			}
		}
		if seen[env.Name] {
			errs = append(errs, field.Duplicate(envPath, env.Name))
		}
		seen[env.Name] = true
	}
	return errs
}

// isSCPLikeURL reports whether raw is the scp-like git form [user@]host:path.
func isSCPLikeURL(raw string) bool {
	if strings.Contains(raw, "://") {
		return false
	}
	host, repoPath, ok := strings.Cut(raw, ":")
	if !ok || repoPath == "" || strings.Contains(host, "/") {
		return false
	}
	if user, h, found := strings.Cut(host, "@"); found {
		if user == "" {
			return false
		}
		host = h
	}
	return host != "" && len(validation.IsDNS1123Subdomain(strings.ToLower(host))) == 0
}
