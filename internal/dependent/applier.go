// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package dependent

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/controller"
	"github.com/kapsa-project/kapsa-operator/internal/monitoring"
)

// Result is the outcome of applying one dependent.
type Result string

const (
	// Created means the object did not exist and was created.
	Created Result = "Created"
	// Existing means the object exists and matches its manifest.
	Existing Result = "Existing"
	// Drifted means the object exists but was created from a different manifest.
	Drifted Result = "Drifted"
	// Foreign means an object with the same name exists that the parent does not own.
	Foreign Result = "Foreign"
)

// Exists reports whether the object is present after Apply, whatever its provenance.
func (r Result) Exists() bool {
	return r != ""
}

// Applier creates dependents on behalf of a parent resource.
type Applier struct {
	Client  client.Client
	Scheme  *runtime.Scheme
	Metrics monitoring.Recorder
}

// NewApplier returns an Applier recording into metrics. A nil recorder records nothing.
func NewApplier(c client.Client, scheme *runtime.Scheme, metrics monitoring.Recorder) *Applier {
	if metrics == nil {
		metrics = monitoring.NoopRecorder{}
	}
	return &Applier{Client: c, Scheme: scheme, Metrics: metrics}
}

// Apply links desired to parent, stamps its desired hash and creates it if absent.
// A live object is never updated: AlreadyExists is success, and a live object
// built from a different manifest is reported as Drifted.
func (a *Applier) Apply(ctx context.Context, parent, desired client.Object) (Result, error) {
	logger := log.FromContext(ctx)

	gvk, err := apiutil.GVKForObject(desired, a.Scheme)
	if err != nil {
		return "", fmt.Errorf("failed to resolve kind of %T: %w", desired, err)
	}
	ownerKind, err := a.kindOf(parent)
	if err != nil {
		return "", err
	}
	if err := controller.SetOwner(parent, desired, a.Scheme); err != nil {
		return "", err
	}
	hash, err := stampHash(desired)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s %s: %w", gvk.Kind, client.ObjectKeyFromObject(desired), err)
	}

	key := client.ObjectKeyFromObject(desired)
	live := a.newObject(gvk)
	err = a.Client.Get(ctx, key, live)
	switch {
	case apierrors.IsNotFound(err):
		if err := a.Client.Create(ctx, desired); err != nil {
			if apierrors.IsAlreadyExists(err) {
				a.Metrics.DependentOperation(gvk.Kind, "exists")
				return Existing, nil
			}
			return "", fmt.Errorf("failed to create %s %s: %w", gvk.Kind, key, err)
		}
		logger.Info("Created dependent", "kind", gvk.Kind, "name", key.String())
		a.Metrics.DependentOperation(gvk.Kind, "create")
		return Created, nil
	case err != nil:
		return "", fmt.Errorf("failed to get %s %s: %w", gvk.Kind, key, err)
	}

	if !controller.IsOwnedBy(parent, live, ownerKind) {
		a.Metrics.DependentOperation(gvk.Kind, "foreign")
		return Foreign, nil
	}
	if HashChanged(live.GetAnnotations()[kapsav1alpha1.AnnotationDesiredHash], hash) {
		logger.V(1).Info("Dependent drifted from its manifest", "kind", gvk.Kind, "name", key.String())
		a.Metrics.DependentOperation(gvk.Kind, "drift")
		return Drifted, nil
	}
	a.Metrics.DependentOperation(gvk.Kind, "exists")
	return Existing, nil
}

// Remove deletes obj if it exists and parent owns it. It reports whether a delete was issued.
// NotFound is success, and objects the parent does not own are left in place.
func (a *Applier) Remove(ctx context.Context, parent, obj client.Object) (bool, error) {
	gvk, err := apiutil.GVKForObject(obj, a.Scheme)
	if err != nil {
		return false, fmt.Errorf("failed to resolve kind of %T: %w", obj, err)
	}
	ownerKind, err := a.kindOf(parent)
	if err != nil {
		return false, err
	}

	key := client.ObjectKeyFromObject(obj)
	live := a.newObject(gvk)
	if err := a.Client.Get(ctx, key, live); err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s %s: %w", gvk.Kind, key, err)
	}
	if !controller.IsOwnedBy(parent, live, ownerKind) {
		log.FromContext(ctx).Info("Leaving dependent not owned by parent", "kind", gvk.Kind, "name", key.String())
		return false, nil
	}

	if err := a.Client.Delete(ctx, live, client.PropagationPolicy("Background")); err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete %s %s: %w", gvk.Kind, key, err)
	}
	log.FromContext(ctx).Info("Removed dependent", "kind", gvk.Kind, "name", key.String())
	a.Metrics.DependentOperation(gvk.Kind, "delete")
	return true, nil
}

func (a *Applier) kindOf(parent client.Object) (string, error) {
	gvk, err := apiutil.GVKForObject(parent, a.Scheme)
	if err != nil {
		return "", fmt.Errorf("failed to resolve owner kind: %w", err)
	}
	return gvk.Kind, nil
}

// newObject returns an empty object of gvk: typed when the scheme knows a Go type
// for it, unstructured otherwise.
func (a *Applier) newObject(gvk schema.GroupVersionKind) client.Object {
	if obj, err := a.Scheme.New(gvk); err == nil {
		if co, ok := obj.(client.Object); ok {
			if u, ok := co.(*unstructured.Unstructured); ok {
				u.SetGroupVersionKind(gvk)
			}
			return co
		}
	}
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(gvk)
	return u
}
