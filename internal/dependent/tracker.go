// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package dependent

import (
	"fmt"
	"strings"

	apimeta "k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/controller"
)

// Tracker applies the dependents of one parent during a reconciliation and
// summarizes the result in the DependentsInSync condition.
type Tracker struct {
	applier *Applier
	rc      *controller.ReconcileContext
	parent  controller.Object
	drifted []string
}

// NewTracker returns a Tracker applying dependents of parent through applier.
func NewTracker(rc *controller.ReconcileContext, applier *Applier, parent controller.Object) *Tracker {
	return &Tracker{applier: applier, rc: rc, parent: parent}
}

// Apply creates obj if absent. Foreign objects are reported with a warning event.
func (t *Tracker) Apply(obj client.Object) (Result, error) {
	result, err := t.applier.Apply(t.rc.Ctx, t.parent, obj)
	if err != nil {
		return "", err
	}
	switch result {
	case Drifted:
		t.drifted = append(t.drifted, t.describe(obj))
	case Foreign:
		t.rc.Warning(t.parent, controller.EventReasonForeignObject,
			fmt.Sprintf("%s exists and is not managed by %s", t.describe(obj), t.parent.GetName()))
	}
	return result, nil
}

// Remove deletes obj when the parent owns it.
func (t *Tracker) Remove(obj client.Object) (bool, error) {
	return t.applier.Remove(t.rc.Ctx, t.parent, obj)
}

// Drifted lists the dependents found out of sync so far.
func (t *Tracker) Drifted() []string {
	return t.drifted
}

// Report sets DependentsInSync on the parent. A DriftDetected event is recorded
// only when the set of drifted dependents changes.
func (t *Tracker) Report() {
	conditions := t.parent.GetConditions()
	generation := t.parent.GetGeneration()
	if len(t.drifted) == 0 {
		controller.SetObservedCondition(conditions, generation, kapsav1alpha1.ConditionDependentsInSync,
			metav1.ConditionTrue, kapsav1alpha1.ReasonInSync, "All dependents match their manifests")
		return
	}

	message := "Dependents changed since they were created: " + strings.Join(t.drifted, ", ")
	if c := apimeta.FindStatusCondition(*conditions, kapsav1alpha1.ConditionDependentsInSync); c == nil || c.Message != message {
		t.rc.Warning(t.parent, controller.EventReasonDriftDetected, message)
	}
	controller.SetObservedCondition(conditions, generation, kapsav1alpha1.ConditionDependentsInSync,
		metav1.ConditionFalse, kapsav1alpha1.ReasonDriftDetected, message)
}

func (t *Tracker) describe(obj client.Object) string {
	kind := fmt.Sprintf("%T", obj)
	if gvk, err := apiutil.GVKForObject(obj, t.applier.Scheme); err == nil {
		kind = gvk.Kind
	}
	return kind + "/" + obj.GetName()
}
