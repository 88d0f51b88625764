// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

// Package v1alpha1 registers the admission webhooks of the kapsa-project.io/v1alpha1 kinds.
package v1alpha1

import (
	"fmt"

	ctrl "sigs.k8s.io/controller-runtime"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

var webhooklog = logf.Log.WithName("webhook")

// SetupProjectWebhookWithManager registers the webhook for Project in the manager.
func SetupProjectWebhookWithManager(mgr ctrl.Manager) error {
	return (&kapsav1alpha1.Project{}).SetupWebhookWithManager(mgr)
}

// SetupEnvironmentWebhookWithManager registers the webhook for Environment in the manager.
func SetupEnvironmentWebhookWithManager(mgr ctrl.Manager) error {
	return (&kapsav1alpha1.Environment{}).SetupWebhookWithManager(mgr)
}

// SetupRegistryWebhookWithManager registers the webhook for Registry in the manager.
func SetupRegistryWebhookWithManager(mgr ctrl.Manager) error {
	return (&kapsav1alpha1.Registry{}).SetupWebhookWithManager(mgr)
}

// SetupDomainPoolWebhookWithManager registers the webhook for DomainPool in the manager.
func SetupDomainPoolWebhookWithManager(mgr ctrl.Manager) error {
	return (&kapsav1alpha1.DomainPool{}).SetupWebhookWithManager(mgr)
}

// SetupWithManager registers every webhook of the group.
func SetupWithManager(mgr ctrl.Manager) error {
	for kind, setup := range map[string]func(ctrl.Manager) error{
		"Project":     SetupProjectWebhookWithManager,
		"Environment": SetupEnvironmentWebhookWithManager,
		"Registry":    SetupRegistryWebhookWithManager,
		"DomainPool":  SetupDomainPoolWebhookWithManager,
	} {
		if err := setup(mgr); err != nil {
			return fmt.Errorf("unable to create webhook for %s: %w", kind, err)
		}
		webhooklog.V(1).Info("Registered webhook", "kind", kind)
	}
	return nil
}
