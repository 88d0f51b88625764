// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package common

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/clients/cf"
	"github.com/kapsa-project/kapsa-operator/internal/credentials"
)

// DNSClientFactory creates Cloudflare zone clients for DomainPools solving DNS01 challenges.
// Clients are not cached; a DomainPool is verified at most once per reconciliation.
type DNSClientFactory struct {
	client  client.Client
	log     logr.Logger
	factory cf.ClientFactory
	baseURL string
}

// NewDNSClientFactory creates a new DNSClientFactory. A nil factory uses the real Cloudflare API.
func NewDNSClientFactory(c client.Client, log logr.Logger, factory cf.ClientFactory, baseURL string) *DNSClientFactory {
	if factory == nil {
		factory = cf.NewDefaultClientFactory()
	}
	return &DNSClientFactory{
		client:  c,
		log:     log.WithName("dns-client-factory"),
		factory: factory,
		baseURL: baseURL,
	}
}

// GetZoneLookup returns a zone client authenticated with the DomainPool's DNS provider credentials.
func (f *DNSClientFactory) GetZoneLookup(ctx context.Context, pool *kapsav1alpha1.DomainPool) (cf.ZoneLookup, error) {
	if !pool.UsesCloudflareDNS() {
		return nil, fmt.Errorf("DomainPool %s does not use Cloudflare DNS", pool.Name)
	}

	loader := credentials.NewLoader(f.client, f.log)
	token, err := loader.LoadDNSToken(ctx, pool.Spec.CertManager.DNSProvider.CredentialsSecretRef)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	lookup, err := f.factory.NewClient(cf.ClientConfig{
		Log:      f.log.WithValues("domainPool", pool.Name),
		APIToken: token,
		BaseURL:  f.baseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloudflare client: %w", err)
	}
	return lookup, nil
}
