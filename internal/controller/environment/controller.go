// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

// Package environment provides the controller deploying a Project's build output.
package environment

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
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
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/controller"
	"github.com/kapsa-project/kapsa-operator/internal/controller/common"
	"github.com/kapsa-project/kapsa-operator/internal/dependent"
	"github.com/kapsa-project/kapsa-operator/internal/monitoring"
)

// Kind is the kind handled by this controller.
const Kind = "Environment"

// EventReasonRolledOut is recorded when a Deployment is moved to a new build.
const EventReasonRolledOut = "RolledOut"

// Reconciler deploys the latest image of a Project into an Environment.
type Reconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	Metrics  monitoring.Recorder

	// APIs lists the optional APIs served by the cluster.
	APIs     controller.APIStatus
	Schedule common.Schedule
	Timeout  time.Duration
}

// +kubebuilder:rbac:groups=kapsa-project.io,resources=environments,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=kapsa-project.io,resources=environments/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=kapsa-project.io,resources=environments/finalizers,verbs=update
// +kubebuilder:rbac:groups=kapsa-project.io,resources=projects;registries;domainpools,verbs=get;list;watch
// +kubebuilder:rbac:groups=apps,resources=deployments,verbs=get;list;watch;create;patch;delete
// +kubebuilder:rbac:groups="",resources=services,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups=networking.k8s.io,resources=ingresses,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups=autoscaling,resources=horizontalpodautoscalers,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups=gateway.networking.k8s.io,resources=httproutes,verbs=get;list;watch;create;delete

// Engine returns the engine driving Environments.
func (r *Reconciler) Engine() *controller.Engine[*kapsav1alpha1.Environment] {
	return &controller.Engine[*kapsav1alpha1.Environment]{
		Kind:      Kind,
		Client:    r.Client,
		Recorder:  r.Recorder,
		Metrics:   r.Metrics,
		Timeout:   r.Timeout,
		NewObject: func() *kapsav1alpha1.Environment { return &kapsav1alpha1.Environment{} },
		Handlers: map[controller.EventType]controller.Handler[*kapsav1alpha1.Environment]{
			controller.EventSync: r.Sync,
		},
		Watches: r.watches,
	}
}

// Sync converges the workload of an Environment. Dependents are owned through controller
// references and are garbage collected with the Environment, so no finalize handler is needed.
func (r *Reconciler) Sync(rc *controller.ReconcileContext, env *kapsav1alpha1.Environment) (controller.Outcome, error) {
	rc.ObserveGeneration(env.Generation, &env.Status.ObservedGeneration, &env.Status.LastSpecChange)
	outcome := controller.Outcome{RequeueAfter: r.Schedule.Next(env.Status.LastSpecChange, rc.Now)}

	project, err := r.project(rc.Ctx, env)
	if err != nil {
		return outcome, err
	}
	image := project.Status.LatestImage
	if image == "" {
		return controller.Outcome{RequeueAfter: common.RequeueIntervalMedium}, controller.Precondition(
			kapsav1alpha1.ReasonImageNotAvailable, "Project %s has no successful build yet", project.Name)
	}

	host, tls, err := r.route(rc.Ctx, env, project)
	if err != nil {
		return outcome, err
	}
	if env.UsesGateway() && !r.APIs.HTTPRoute {
		return outcome, controller.InvalidSpec("spec.routing.gatewayRef", "the Gateway API HTTPRoute kind is not served by the cluster")
	}

	pullSecret, err := r.pullSecret(rc.Ctx, project)
	if err != nil {
		return outcome, err
	}

	tracker := dependent.NewTracker(rc, dependent.NewApplier(r.Client, r.Scheme, rc.Metrics), env)

	if _, err := tracker.Apply(dependent.Deployment(env, image, pullSecret)); err != nil {
		return outcome, err
	}
	if _, err := tracker.Apply(dependent.Service(env)); err != nil {
		return outcome, err
	}

	if env.Spec.Runtime.AutoscalingEnabled() {
		_, err = tracker.Apply(dependent.HorizontalPodAutoscaler(env))
	} else {
		_, err = tracker.Remove(dependent.HorizontalPodAutoscaler(env))
	}
	if err != nil {
		return outcome, err
	}

	if err := r.applyRouting(tracker, env, host, tls); err != nil {
		return outcome, err
	}

	live, err := r.rollout(rc, env, image)
	if err != nil {
		return outcome, err
	}

	env.Status.URL = ""
	if host != "" {
		scheme := "http"
		if tls != nil {
			scheme = "https"
		}
		env.Status.URL = scheme + "://" + host
	}
	tracker.Report()
	r.reportAvailability(env, live)
	return outcome, nil
}

// project resolves the Project the Environment deploys.
func (r *Reconciler) project(ctx context.Context, env *kapsav1alpha1.Environment) (*kapsav1alpha1.Project, error) {
	ns, name := env.ProjectKey()
	project := &kapsav1alpha1.Project{}
	if err := r.Get(ctx, types.NamespacedName{Namespace: ns, Name: name}, project); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, controller.Precondition(kapsav1alpha1.ReasonProjectNotFound, "Project %s/%s not found", ns, name)
		}
		return nil, fmt.Errorf("failed to get Project %s/%s: %w", ns, name, err)
	}
	return project, nil
}

// route returns the host an Environment is served on and the TLS issuer of its Ingress.
// An empty host means the Environment is not exposed.
func (r *Reconciler) route(ctx context.Context, env *kapsav1alpha1.Environment, project *kapsav1alpha1.Project) (string, *dependent.TLS, error) {
	if project.Spec.Domain == nil || project.Spec.Domain.DomainPoolRef == "" {
		return dependent.Hostname(env, project, ""), nil, nil
	}

	poolName := project.Spec.Domain.DomainPoolRef
	pool := &kapsav1alpha1.DomainPool{}
	if err := r.Get(ctx, types.NamespacedName{Name: poolName}, pool); err != nil {
		if apierrors.IsNotFound(err) {
			return "", nil, controller.Precondition(kapsav1alpha1.ReasonWaitingForDomain, "DomainPool %s not found", poolName)
		}
		return "", nil, fmt.Errorf("failed to get DomainPool %s: %w", poolName, err)
	}
	domain, ok := pool.AllocationFor(project.Namespace, project.Name)
	if !ok {
		return "", nil, controller.Precondition(kapsav1alpha1.ReasonWaitingForDomain,
			"no domain allocated to Project %s by DomainPool %s", project.Name, poolName)
	}
	return dependent.Hostname(env, project, domain), dependent.TLSFor(pool), nil
}

func (r *Reconciler) pullSecret(ctx context.Context, project *kapsav1alpha1.Project) (string, error) {
	if project.Spec.Registry.Name == "" {
		return "", nil
	}
	registry := &kapsav1alpha1.Registry{}
	if err := r.Get(ctx, types.NamespacedName{Name: project.Spec.Registry.Name}, registry); err != nil {
		if apierrors.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get Registry %s: %w", project.Spec.Registry.Name, err)
	}
	return dependent.PullSecretFor(registry), nil
}

// applyRouting exposes host through either an Ingress or an HTTPRoute and removes the other.
func (r *Reconciler) applyRouting(tracker *dependent.Tracker, env *kapsav1alpha1.Environment, host string, tls *dependent.TLS) error {
	ingress := &networkingv1.Ingress{ObjectMeta: metav1.ObjectMeta{Name: env.Name, Namespace: env.Namespace}}
	route := &gatewayv1.HTTPRoute{ObjectMeta: metav1.ObjectMeta{Name: env.Name, Namespace: env.Namespace}}

	switch {
	case host != "" && env.UsesGateway():
		if _, err := tracker.Apply(dependent.HTTPRoute(env, host)); err != nil {
			return err
		}
		_, err := tracker.Remove(ingress)
		return err
	case host != "":
		if _, err := tracker.Apply(dependent.Ingress(env, host, tls)); err != nil {
			return err
		}
	default:
		if _, err := tracker.Remove(ingress); err != nil {
			return err
		}
	}
	if !r.APIs.HTTPRoute {
		return nil
	}
	_, err := tracker.Remove(route)
	return err
}

// rollout moves the application container of the Deployment to image. It is the one
// field of a live dependent the controller updates: a new build is a release, not drift.
func (r *Reconciler) rollout(rc *controller.ReconcileContext, env *kapsav1alpha1.Environment, image string) (*appsv1.Deployment, error) {
	live := &appsv1.Deployment{}
	if err := r.Get(rc.Ctx, client.ObjectKeyFromObject(env), live); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get Deployment %s: %w", client.ObjectKeyFromObject(env), err)
	}
	if !metav1.IsControlledBy(live, env) {
		return live, nil
	}

	before := live.DeepCopy()
	changed := false
	for i := range live.Spec.Template.Spec.Containers {
		c := &live.Spec.Template.Spec.Containers[i]
		if c.Name == dependent.ContainerName && c.Image != image {
			c.Image = image
			changed = true
		}
	}
	if changed {
		if err := r.Patch(rc.Ctx, live, client.MergeFrom(before)); err != nil {
			return nil, fmt.Errorf("failed to roll out %s: %w", image, err)
		}
		log.FromContext(rc.Ctx).Info("Rolled out new image", "deployment", live.Name, "image", image)
		rc.Normal(env, EventReasonRolledOut, fmt.Sprintf("Deployment %s now runs %s", live.Name, image))
	}
	env.Status.Image = image
	return live, nil
}

func (r *Reconciler) reportAvailability(env *kapsav1alpha1.Environment, live *appsv1.Deployment) {
	available := false
	message := "Deployment not found"
	if live != nil {
		env.Status.ReadyReplicas = live.Status.ReadyReplicas
		message = fmt.Sprintf("%d/%d replicas ready", live.Status.ReadyReplicas, env.Spec.Runtime.EffectiveReplicas())
		for _, c := range live.Status.Conditions {
			if c.Type == appsv1.DeploymentAvailable && c.Status == corev1.ConditionTrue {
				available = true
			}
		}
	}

	if available {
		controller.SetObservedCondition(&env.Status.Conditions, env.Generation, kapsav1alpha1.ConditionAvailable,
			metav1.ConditionTrue, kapsav1alpha1.ReasonDeploymentAvailable, message)
		controller.SetObservedCondition(&env.Status.Conditions, env.Generation, kapsav1alpha1.ConditionReady,
			metav1.ConditionTrue, kapsav1alpha1.ReasonDeployed, fmt.Sprintf("Environment runs %s", env.Status.Image))
		return
	}
	controller.SetObservedCondition(&env.Status.Conditions, env.Generation, kapsav1alpha1.ConditionAvailable,
		metav1.ConditionFalse, kapsav1alpha1.ReasonDeploymentUnavailable, message)
	controller.SetObservedCondition(&env.Status.Conditions, env.Generation, kapsav1alpha1.ConditionReady,
		metav1.ConditionFalse, kapsav1alpha1.ReasonInitializing, "Waiting for the Deployment to become available")
}

func (r *Reconciler) watches(b *builder.Builder) *builder.Builder {
	b = b.Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		Owns(&networkingv1.Ingress{}).
		Owns(&autoscalingv2.HorizontalPodAutoscaler{})
	if r.APIs.HTTPRoute {
		b = b.Owns(&gatewayv1.HTTPRoute{})
	}
	return b.
		Watches(&kapsav1alpha1.Project{}, handler.EnqueueRequestsFromMapFunc(r.findEnvironmentsForProject)).
		Watches(&kapsav1alpha1.DomainPool{}, handler.EnqueueRequestsFromMapFunc(r.findEnvironmentsForDomainPool))
}

// findEnvironmentsForProject maps a Project to the Environments deploying it.
func (r *Reconciler) findEnvironmentsForProject(ctx context.Context, obj client.Object) []reconcile.Request {
	return r.environmentsFor(ctx, func(ns, name string) bool {
		return ns == obj.GetNamespace() && name == obj.GetName()
	})
}

// findEnvironmentsForDomainPool maps a DomainPool to the Environments of Projects holding one of its domains.
func (r *Reconciler) findEnvironmentsForDomainPool(ctx context.Context, obj client.Object) []reconcile.Request {
	pool, ok := obj.(*kapsav1alpha1.DomainPool)
	if !ok {
		return nil
	}
	return r.environmentsFor(ctx, func(ns, name string) bool {
		_, allocated := pool.AllocationFor(ns, name)
		return allocated
	})
}

func (r *Reconciler) environmentsFor(ctx context.Context, match func(ns, name string) bool) []reconcile.Request {
	envs := &kapsav1alpha1.EnvironmentList{}
	if err := r.List(ctx, envs); err != nil {
		log.FromContext(ctx).Error(err, "Failed to list Environments")
		return nil
	}
	var requests []reconcile.Request
	for i := range envs.Items {
		if match(envs.Items[i].ProjectKey()) {
			requests = append(requests, reconcile.Request{NamespacedName: client.ObjectKeyFromObject(&envs.Items[i])})
		}
	}
	return requests
}
