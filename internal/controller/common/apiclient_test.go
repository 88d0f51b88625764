// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package common

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/clients/cf"
	"github.com/kapsa-project/kapsa-operator/internal/clients/cf/mock"
)

func dnsPool() *kapsav1alpha1.DomainPool {
	return &kapsav1alpha1.DomainPool{
		ObjectMeta: metav1.ObjectMeta{Name: "public"},
		Spec: kapsav1alpha1.DomainPoolSpec{
			BaseDomains: []string{"apps.example.com"},
			CertManager: &kapsav1alpha1.CertManagerSpec{
				IssuerRef:     kapsav1alpha1.IssuerReference{Name: "letsencrypt"},
				ChallengeType: kapsav1alpha1.ChallengeDNS01,
				DNSProvider: &kapsav1alpha1.DNSProviderSpec{
					Name: kapsav1alpha1.DNSProviderCloudflare,
					CredentialsSecretRef: &kapsav1alpha1.CredentialsSecretReference{
						Name: "cloudflare", Namespace: "cert-manager",
					},
				},
			},
		},
	}
}

func TestDNSClientFactory_GetZoneLookup(t *testing.T) {
	scheme := runtime.NewScheme()
	require.NoError(t, corev1.AddToScheme(scheme))
	c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "cloudflare", Namespace: "cert-manager"},
		Data:       map[string][]byte{"api-token": []byte("tok")},
	}).Build()

	mocks := mock.NewMockClientFactory(gomock.NewController(t))
	f := NewDNSClientFactory(c, logr.Discard(), mocks, "http://cloudflare.test")

	lookup, err := f.GetZoneLookup(context.Background(), dnsPool())
	require.NoError(t, err)
	assert.Same(t, mocks.GetMockClient(), lookup)
	require.Len(t, mocks.Configs, 1)
	assert.Equal(t, "tok", mocks.Configs[0].APIToken)
	assert.Equal(t, "http://cloudflare.test", mocks.Configs[0].BaseURL)
}

func TestDNSClientFactory_Errors(t *testing.T) {
	scheme := runtime.NewScheme()
	require.NoError(t, corev1.AddToScheme(scheme))
	c := fake.NewClientBuilder().WithScheme(scheme).Build()

	f := NewDNSClientFactory(c, logr.Discard(), &mock.MockClientFactoryWithError{Err: cf.ErrNoCredentials}, "")

	_, err := f.GetZoneLookup(context.Background(), dnsPool())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load credentials")

	http01 := dnsPool()
	http01.Spec.CertManager.ChallengeType = kapsav1alpha1.ChallengeHTTP01
	_, err = f.GetZoneLookup(context.Background(), http01)
	require.Error(t, err)
	assert.False(t, errors.Is(err, cf.ErrNoCredentials))
}
