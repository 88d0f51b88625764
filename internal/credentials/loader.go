// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/registry"
)

var (
	// ErrSecretRefNil is returned when a resource declares no credentials secret.
	ErrSecretRefNil = errors.New("credentials secret reference is nil")
	// ErrKeyMissing is returned when the referenced secret lacks the expected key.
	ErrKeyMissing = errors.New("credentials key missing from secret")
)

// DefaultDNSTokenKey is read when a DNS credentials reference names no key.
const DefaultDNSTokenKey = "api-token"

// legacyDNSTokenKey is the key Cloudflare tooling conventionally uses.
const legacyDNSTokenKey = "CLOUDFLARE_API_TOKEN"

// Loader loads credentials referenced by kapsa resources.
type Loader struct {
	client client.Client
	log    logr.Logger
}

// NewLoader creates a new credential loader
func NewLoader(c client.Client, log logr.Logger) *Loader {
	return &Loader{
		client: c,
		log:    log,
	}
}

// LoadSecret fetches the referenced secret. A missing secret is returned as a NotFound error.
func (l *Loader) LoadSecret(ctx context.Context, namespace, name string) (*corev1.Secret, error) {
	secret := &corev1.Secret{}
	if err := l.client.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, secret); err != nil {
		return nil, fmt.Errorf("failed to get secret %s/%s: %w", namespace, name, err)
	}
	return secret, nil
}

// LoadRegistry loads the push credentials of a Registry.
func (l *Loader) LoadRegistry(ctx context.Context, reg *kapsav1alpha1.Registry, host string) (*registry.Credentials, error) {
	ref := reg.Spec.Auth.SecretRef
	if ref == nil {
		return nil, ErrSecretRefNil
	}
	secret, err := l.LoadSecret(ctx, ref.Namespace, ref.Name)
	if err != nil {
		return nil, err
	}
	creds, err := registry.ParseSecret(secret, host)
	if err != nil {
		return nil, fmt.Errorf("secret %s/%s: %w", ref.Namespace, ref.Name, err)
	}
	l.log.V(1).Info("Loaded registry credentials", "registry", reg.Name, "secret", ref.Namespace+"/"+ref.Name)
	return creds, nil
}

// LoadDNSToken loads the DNS provider API token of a DomainPool.
func (l *Loader) LoadDNSToken(ctx context.Context, ref *kapsav1alpha1.CredentialsSecretReference) (string, error) {
	if ref == nil {
		return "", ErrSecretRefNil
	}
	secret, err := l.LoadSecret(ctx, ref.Namespace, ref.Name)
	if err != nil {
		return "", err
	}

	key := ref.Key
	if key == "" {
		key = DefaultDNSTokenKey
	}
	token := string(secret.Data[key])
	if token == "" && ref.Key == "" {
		token = string(secret.Data[legacyDNSTokenKey])
	}
	if token == "" {
		return "", fmt.Errorf("secret %s/%s (key: %s): %w", ref.Namespace, ref.Name, key, ErrKeyMissing)
	}
	return token, nil
}
