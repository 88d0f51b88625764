// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

// Package registry provides the controller validating container Registries.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/controller"
	"github.com/kapsa-project/kapsa-operator/internal/controller/common"
	"github.com/kapsa-project/kapsa-operator/internal/credentials"
	"github.com/kapsa-project/kapsa-operator/internal/monitoring"
	reg "github.com/kapsa-project/kapsa-operator/internal/registry"
)

// Kind is the kind handled by this controller.
const Kind = "Registry"

// Reconciler validates Registry endpoints and the credentials they reference.
type Reconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	Metrics  monitoring.Recorder

	// Prober checks connectivity when spec.verifyConnection is set.
	Prober reg.Prober
	// RecheckInterval is how often a Registry is validated again. Defaults to five minutes.
	RecheckInterval time.Duration
	Timeout         time.Duration
}

// +kubebuilder:rbac:groups=kapsa-project.io,resources=registries,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=kapsa-project.io,resources=registries/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=kapsa-project.io,resources=registries/finalizers,verbs=update
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch

// Engine returns the engine driving Registries.
func (r *Reconciler) Engine() *controller.Engine[*kapsav1alpha1.Registry] {
	return &controller.Engine[*kapsav1alpha1.Registry]{
		Kind:      Kind,
		Client:    r.Client,
		Recorder:  r.Recorder,
		Metrics:   r.Metrics,
		Timeout:   r.Timeout,
		NewObject: func() *kapsav1alpha1.Registry { return &kapsav1alpha1.Registry{} },
		Handlers: map[controller.EventType]controller.Handler[*kapsav1alpha1.Registry]{
			controller.EventSync: r.Sync,
		},
		Watches: r.watches,
	}
}

// Sync validates the endpoint and credentials of a Registry and reports the result in its status.
func (r *Reconciler) Sync(rc *controller.ReconcileContext, registry *kapsav1alpha1.Registry) (controller.Outcome, error) {
	registry.Status.ObservedGeneration = registry.Generation
	outcome := controller.Outcome{RequeueAfter: r.recheckInterval()}

	endpoint, err := reg.ParseEndpoint(registry.Spec.Endpoint)
	if err != nil {
		return outcome, controller.InvalidSpec("spec.endpoint", "%v", err)
	}
	registry.Status.Host = endpoint.Name()

	var creds *reg.Credentials
	if ref := registry.Spec.Auth.SecretRef; ref != nil {
		creds, err = credentials.NewLoader(r.Client, rc.Log).LoadRegistry(rc.Ctx, registry, endpoint.Name())
		switch {
		case apierrors.IsNotFound(err):
			return outcome, controller.Precondition(kapsav1alpha1.ReasonCredentialsNotFound,
				"secret %s/%s referenced by spec.auth.secretRef not found", ref.Namespace, ref.Name)
		case err != nil && isLookupError(err):
			return outcome, err
		case err != nil:
			return outcome, controller.InvalidSpec("spec.auth.secretRef", "%v", err)
		}
	}

	if registry.Spec.VerifyConnection && r.Prober != nil {
		if err := r.Prober.Ping(rc.Ctx, endpoint, creds.Authenticator()); err != nil {
			rc.Warning(registry, kapsav1alpha1.ReasonRegistryUnreachable, controller.SanitizeErrorMessage(err))
			return outcome, controller.Precondition(kapsav1alpha1.ReasonRegistryUnreachable,
				"%s", controller.SanitizeErrorMessage(err))
		}
	}

	if !controller.IsReady(registry.Status.Conditions) {
		rc.Normal(registry, kapsav1alpha1.ReasonRegistryConfigured, fmt.Sprintf("Registry %s is configured", registry.Name))
	}
	controller.SetObservedCondition(&registry.Status.Conditions, registry.Generation, kapsav1alpha1.ConditionReady,
		metav1.ConditionTrue, kapsav1alpha1.ReasonRegistryConfigured,
		fmt.Sprintf("Registry %s is configured for %s", registry.Name, endpoint.Name()))
	return outcome, nil
}

// isLookupError separates API and network failures from unparsable secret contents.
func isLookupError(err error) bool {
	var status apierrors.APIStatus
	return errors.As(err, &status) || controller.IsTransient(err) || controller.IsTimeout(err)
}

func (r *Reconciler) recheckInterval() time.Duration {
	if r.RecheckInterval <= 0 {
		return common.RequeueIntervalVeryLong
	}
	return r.RecheckInterval
}

func (r *Reconciler) watches(b *builder.Builder) *builder.Builder {
	return b.Watches(&corev1.Secret{}, handler.EnqueueRequestsFromMapFunc(r.findRegistriesForSecret))
}

// findRegistriesForSecret maps a Secret to the Registries whose credentials it holds.
func (r *Reconciler) findRegistriesForSecret(ctx context.Context, obj client.Object) []reconcile.Request {
	registries := &kapsav1alpha1.RegistryList{}
	if err := r.List(ctx, registries); err != nil {
		log.FromContext(ctx).Error(err, "Failed to list Registries for Secret", "secret", client.ObjectKeyFromObject(obj))
		return nil
	}
	var requests []reconcile.Request
	for i := range registries.Items {
		ref := registries.Items[i].Spec.Auth.SecretRef
		if ref != nil && ref.Namespace == obj.GetNamespace() && ref.Name == obj.GetName() {
			requests = append(requests, reconcile.Request{
				NamespacedName: types.NamespacedName{Name: registries.Items[i].Name},
			})
		}
	}
	return requests
}
