// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

// Package project provides the controller building Projects and managing their Environments.
package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-containerregistry/pkg/name"
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
	"github.com/kapsa-project/kapsa-operator/internal/dependent"
	"github.com/kapsa-project/kapsa-operator/internal/monitoring"
	reg "github.com/kapsa-project/kapsa-operator/internal/registry"
)

// Kind is the kind handled by this controller.
const Kind = "Project"

// EventReasonNamespaceDeleted is recorded when the project namespace is removed during cleanup.
const EventReasonNamespaceDeleted = "NamespaceDeleted"

// Reconciler provisions the namespace, build image and Environments of a Project.
type Reconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	Metrics  monitoring.Recorder

	// APIs lists the optional APIs served by the cluster.
	APIs controller.APIStatus
	// Schedule's Base is the poll interval of Projects that declare none.
	Schedule common.Schedule
	// DefaultBuilder names the ClusterBuilder used when a Project declares none.
	DefaultBuilder string
	// DefaultRevision is built when a Project declares no branch.
	DefaultRevision string
	Timeout         time.Duration
}

// +kubebuilder:rbac:groups=kapsa-project.io,resources=projects,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=kapsa-project.io,resources=projects/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=kapsa-project.io,resources=projects/finalizers,verbs=update
// +kubebuilder:rbac:groups=kapsa-project.io,resources=environments,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups=kapsa-project.io,resources=registries;domainpools,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=namespaces,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups="",resources=serviceaccounts;secrets,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups=kpack.io,resources=images,verbs=get;list;watch;create;delete

// Engine returns the engine driving Projects.
func (r *Reconciler) Engine() *controller.Engine[*kapsav1alpha1.Project] {
	return &controller.Engine[*kapsav1alpha1.Project]{
		Kind:      Kind,
		Client:    r.Client,
		Recorder:  r.Recorder,
		Metrics:   r.Metrics,
		Timeout:   r.Timeout,
		NewObject: func() *kapsav1alpha1.Project { return &kapsav1alpha1.Project{} },
		Handlers: map[controller.EventType]controller.Handler[*kapsav1alpha1.Project]{
			controller.EventSync:     r.Sync,
			controller.EventFinalize: r.Finalize,
		},
		Watches: r.watches,
	}
}

// Sync creates the dependents of a Project and mirrors the state of its build into status.
// Dependents are created in order: namespace, registry secret, service account, build image,
// Environments. Missing configuration leaves the cluster untouched.
func (r *Reconciler) Sync(rc *controller.ReconcileContext, project *kapsav1alpha1.Project) (controller.Outcome, error) {
	rc.ObserveGeneration(project.Generation, &project.Status.ObservedGeneration, &project.Status.LastSpecChange)
	schedule := r.Schedule.WithBase(project.Spec.Repository.EffectivePollInterval(r.Schedule.Base))
	outcome := controller.Outcome{RequeueAfter: schedule.Next(project.Status.LastSpecChange, rc.Now)}

	if err := r.countProjects(rc, project.Namespace); err != nil {
		return outcome, err
	}

	if missing := project.Spec.MissingConfiguration(); len(missing) > 0 {
		return outcome, controller.Precondition(kapsav1alpha1.ReasonMissingConfiguration,
			"Project %s is missing %s", project.Name, strings.Join(missing, ", "))
	}

	registry, endpoint, err := r.registry(rc.Ctx, project)
	if err != nil {
		return outcome, err
	}
	repository := project.Spec.Registry.ImageRepository
	if repository == "" {
		repository = project.Name
	}
	tag, err := reg.ImageTag(endpoint, repository)
	if err != nil {
		return outcome, controller.InvalidSpec("spec.registry.imageRepository", "%v", err)
	}

	project.Status.Namespace = project.NamespaceName()
	project.Status.ImageTag = tag.String()

	tracker := dependent.NewTracker(rc, dependent.NewApplier(r.Client, r.Scheme, rc.Metrics), project)
	if _, err := tracker.Apply(dependent.Namespace(project)); err != nil {
		return outcome, err
	}
	if err := r.applyRegistrySecret(rc, tracker, project, registry, endpoint); err != nil {
		return outcome, err
	}
	if _, err := tracker.Apply(dependent.ServiceAccount(project, dependent.PullSecretFor(registry))); err != nil {
		return outcome, err
	}
	if r.APIs.Kpack {
		image := dependent.KpackImage(project, tag.String(), r.builder(project), r.revision(project))
		if _, err := tracker.Apply(image); err != nil {
			return outcome, err
		}
		if err := r.mirrorBuild(rc.Ctx, project); err != nil {
			return outcome, err
		}
	}

	if err := r.syncEnvironments(rc, tracker, project); err != nil {
		return outcome, err
	}
	if err := r.syncDomain(rc.Ctx, project); err != nil {
		return outcome, err
	}

	tracker.Report()
	r.setReady(rc, project)
	return outcome, nil
}

// Finalize removes the project namespace, which takes every namespaced dependent with it.
func (r *Reconciler) Finalize(rc *controller.ReconcileContext, project *kapsav1alpha1.Project) (controller.Outcome, error) {
	applier := dependent.NewApplier(r.Client, r.Scheme, rc.Metrics)
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: project.NamespaceName()}}

	live := &corev1.Namespace{}
	err := r.Get(rc.Ctx, client.ObjectKeyFromObject(ns), live)
	switch {
	case apierrors.IsNotFound(err):
	case err != nil:
		return controller.Outcome{}, fmt.Errorf("failed to get namespace %s: %w", ns.Name, err)
	case !controller.IsOwnedBy(project, live, Kind):
		rc.Warning(project, controller.EventReasonForeignObject,
			fmt.Sprintf("Namespace %s is not managed by this Project and was left in place", ns.Name))
	default:
		deleted, err := applier.Remove(rc.Ctx, project, ns)
		if err != nil {
			return controller.Outcome{}, err
		}
		if deleted {
			rc.Normal(project, EventReasonNamespaceDeleted, fmt.Sprintf("Namespace %s deleted", ns.Name))
		}
	}

	return controller.Outcome{}, r.countProjects(rc, project.Namespace)
}

// registry resolves the Registry a Project pushes to.
func (r *Reconciler) registry(ctx context.Context, project *kapsav1alpha1.Project) (*kapsav1alpha1.Registry, name.Registry, error) {
	registry := &kapsav1alpha1.Registry{}
	if err := r.Get(ctx, types.NamespacedName{Name: project.Spec.Registry.Name}, registry); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, name.Registry{}, controller.Precondition(kapsav1alpha1.ReasonRegistryNotFound,
				"Registry %s not found", project.Spec.Registry.Name)
		}
		return nil, name.Registry{}, fmt.Errorf("failed to get Registry %s: %w", project.Spec.Registry.Name, err)
	}
	endpoint, err := reg.ParseEndpoint(registry.Spec.Endpoint)
	if err != nil {
		return nil, name.Registry{}, controller.Precondition(kapsav1alpha1.ReasonRegistryNotReady,
			"Registry %s has an invalid endpoint", registry.Name)
	}
	return registry, endpoint, nil
}

// applyRegistrySecret copies the Registry's push credentials into the project namespace.
func (r *Reconciler) applyRegistrySecret(rc *controller.ReconcileContext, tracker *dependent.Tracker,
	project *kapsav1alpha1.Project, registry *kapsav1alpha1.Registry, endpoint name.Registry) error {
	if !registry.GeneratePerNamespace() || registry.Spec.Auth.SecretRef == nil {
		return nil
	}
	creds, err := credentials.NewLoader(r.Client, rc.Log).LoadRegistry(rc.Ctx, registry, endpoint.Name())
	if err != nil {
		var status apierrors.APIStatus
		if !apierrors.IsNotFound(err) && (errors.As(err, &status) || controller.IsTransient(err)) {
			return err
		}
		return controller.Precondition(kapsav1alpha1.ReasonCredentialsNotFound,
			"credentials of Registry %s are unavailable: %s", registry.Name, controller.SanitizeErrorMessage(err))
	}
	_, err = tracker.Apply(dependent.RegistrySecret(project, registry.PullSecretName(), creds.DockerConfigJSON))
	return err
}

func (r *Reconciler) builder(project *kapsav1alpha1.Project) kapsav1alpha1.BuilderReference {
	ref := project.Spec.Build.EffectiveBuilder()
	if (project.Spec.Build.Builder == nil || project.Spec.Build.Builder.Name == "") && r.DefaultBuilder != "" {
		ref.Name = r.DefaultBuilder
	}
	return ref
}

func (r *Reconciler) revision(project *kapsav1alpha1.Project) string {
	if project.Spec.Repository.Branch == "" && r.DefaultRevision != "" {
		return r.DefaultRevision
	}
	return project.Spec.Repository.EffectiveBranch()
}

// mirrorBuild copies the last successful build of the kpack Image into status.
// A previously observed image is kept while a new build is running or failing.
func (r *Reconciler) mirrorBuild(ctx context.Context, project *kapsav1alpha1.Project) error {
	image := dependent.NewKpackImage()
	key := types.NamespacedName{Namespace: project.NamespaceName(), Name: project.Name}
	if err := r.Get(ctx, key, image); err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to get kpack Image %s: %w", key, err)
	}
	if !controller.IsOwnedBy(project, image, Kind) {
		return nil
	}
	if latest, ok := dependent.KpackLatestImage(image); ok {
		project.Status.LatestImage = latest
	}
	return nil
}

// syncEnvironments creates the Environments declared in spec.environments, prunes the ones
// this Project created that are no longer declared, and reports their readiness.
func (r *Reconciler) syncEnvironments(rc *controller.ReconcileContext, tracker *dependent.Tracker, project *kapsav1alpha1.Project) error {
	declared := make(map[string]bool, len(project.Spec.Environments))
	statuses := make([]kapsav1alpha1.ProjectEnvironmentStatus, 0, len(project.Spec.Environments))

	for _, decl := range project.Spec.Environments {
		desired := dependent.Environment(project, decl)
		declared[desired.Name] = true
		if _, err := tracker.Apply(desired); err != nil {
			return err
		}

		live := &kapsav1alpha1.Environment{}
		ready := false
		if err := r.Get(rc.Ctx, client.ObjectKeyFromObject(desired), live); err == nil {
			ready = controller.IsReady(live.Status.Conditions)
		} else if !apierrors.IsNotFound(err) {
			return fmt.Errorf("failed to get Environment %s: %w", desired.Name, err)
		}
		statuses = append(statuses, kapsav1alpha1.ProjectEnvironmentStatus{
			Name:         decl.Name,
			ResourceName: desired.Name,
			Ready:        ready,
		})
	}

	owned := &kapsav1alpha1.EnvironmentList{}
	if err := r.List(rc.Ctx, owned,
		client.InNamespace(project.NamespaceName()),
		client.MatchingLabels(controller.TrackingLabels(Kind, project)),
	); err != nil {
		return fmt.Errorf("failed to list Environments of %s: %w", project.Name, err)
	}
	for i := range owned.Items {
		env := &owned.Items[i]
		if declared[env.Name] || env.DeletionTimestamp != nil {
			continue
		}
		deleted, err := tracker.Remove(env)
		if err != nil {
			return err
		}
		if deleted {
			rc.Normal(project, controller.EventReasonDeleted, fmt.Sprintf("Environment %s is no longer declared", env.Name))
		}
	}

	if len(statuses) == 0 {
		statuses = nil
	}
	project.Status.Environments = statuses
	return nil
}

// syncDomain mirrors the base domain allocated by the Project's DomainPool.
func (r *Reconciler) syncDomain(ctx context.Context, project *kapsav1alpha1.Project) error {
	project.Status.Domain = ""
	if project.Spec.Domain == nil || project.Spec.Domain.DomainPoolRef == "" {
		return nil
	}
	pool := &kapsav1alpha1.DomainPool{}
	if err := r.Get(ctx, types.NamespacedName{Name: project.Spec.Domain.DomainPoolRef}, pool); err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to get DomainPool %s: %w", project.Spec.Domain.DomainPoolRef, err)
	}
	project.Status.Domain, _ = pool.AllocationFor(project.Namespace, project.Name)
	return nil
}

func (r *Reconciler) setReady(rc *controller.ReconcileContext, project *kapsav1alpha1.Project) {
	conditions, generation := &project.Status.Conditions, project.Generation
	switch {
	case !r.APIs.Kpack:
		controller.SetObservedCondition(conditions, generation, kapsav1alpha1.ConditionReady, metav1.ConditionFalse,
			kapsav1alpha1.ReasonBuildSystemUnavailable, "The kpack Image API is not served by the cluster")
	case project.Status.LatestImage == "":
		controller.SetObservedCondition(conditions, generation, kapsav1alpha1.ConditionReady, metav1.ConditionFalse,
			kapsav1alpha1.ReasonInitializing, fmt.Sprintf("Waiting for the first build of %s", project.Status.ImageTag))
	default:
		if !controller.IsReady(*conditions) {
			rc.Normal(project, controller.EventReasonReconciled, fmt.Sprintf("Project %s builds %s", project.Name, project.Status.LatestImage))
		}
		controller.SetObservedCondition(conditions, generation, kapsav1alpha1.ConditionReady, metav1.ConditionTrue,
			kapsav1alpha1.ReasonReconciled, fmt.Sprintf("Latest image %s", project.Status.LatestImage))
	}
}

// countProjects refreshes the projects_total gauge of a namespace.
func (r *Reconciler) countProjects(rc *controller.ReconcileContext, namespace string) error {
	projects := &kapsav1alpha1.ProjectList{}
	if err := r.List(rc.Ctx, projects, client.InNamespace(namespace)); err != nil {
		return fmt.Errorf("failed to list Projects in %s: %w", namespace, err)
	}
	count := 0
	for i := range projects.Items {
		if projects.Items[i].DeletionTimestamp == nil {
			count++
		}
	}
	rc.Metrics.SetProjectsTotal(namespace, count)
	return nil
}

func (r *Reconciler) watches(b *builder.Builder) *builder.Builder {
	owner := handler.EnqueueRequestsFromMapFunc(r.findProjectForDependent)
	b = b.Watches(&corev1.Namespace{}, owner).
		Watches(&kapsav1alpha1.Environment{}, owner).
		Watches(&kapsav1alpha1.Registry{}, handler.EnqueueRequestsFromMapFunc(r.findProjectsForRegistry)).
		Watches(&kapsav1alpha1.DomainPool{}, handler.EnqueueRequestsFromMapFunc(r.findProjectsForDomainPool))
	if r.APIs.Kpack {
		b = b.Watches(dependent.NewKpackImage(), owner)
	}
	return b
}

// findProjectForDependent maps a label-tracked dependent back to its Project.
func (r *Reconciler) findProjectForDependent(_ context.Context, obj client.Object) []reconcile.Request {
	key, ok := controller.TrackedOwner(obj, Kind)
	if !ok {
		return nil
	}
	return []reconcile.Request{{NamespacedName: key}}
}

func (r *Reconciler) findProjectsForRegistry(ctx context.Context, obj client.Object) []reconcile.Request {
	return r.projectsWhere(ctx, func(p *kapsav1alpha1.Project) bool {
		return p.Spec.Registry.Name == obj.GetName()
	})
}

func (r *Reconciler) findProjectsForDomainPool(ctx context.Context, obj client.Object) []reconcile.Request {
	return r.projectsWhere(ctx, func(p *kapsav1alpha1.Project) bool {
		return p.Spec.Domain != nil && p.Spec.Domain.DomainPoolRef == obj.GetName()
	})
}

func (r *Reconciler) projectsWhere(ctx context.Context, match func(*kapsav1alpha1.Project) bool) []reconcile.Request {
	projects := &kapsav1alpha1.ProjectList{}
	if err := r.List(ctx, projects); err != nil {
		log.FromContext(ctx).Error(err, "Failed to list Projects")
		return nil
	}
	var requests []reconcile.Request
	for i := range projects.Items {
		if match(&projects.Items[i]) {
			requests = append(requests, reconcile.Request{NamespacedName: client.ObjectKeyFromObject(&projects.Items[i])})
		}
	}
	return requests
}
