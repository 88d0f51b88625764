// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package credentials

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

func newLoader(objs ...client.Object) *Loader {
	scheme := runtime.NewScheme()
	_ = corev1.AddToScheme(scheme)
	_ = kapsav1alpha1.AddToScheme(scheme)
	c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build()
	return NewLoader(c, logr.Discard())
}

func secret(namespace, name string, data map[string]string) *corev1.Secret {
	s := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Data:       map[string][]byte{},
	}
	for k, v := range data {
		s.Data[k] = []byte(v)
	}
	return s
}

func harbor(ref *kapsav1alpha1.SecretReference) *kapsav1alpha1.Registry {
	return &kapsav1alpha1.Registry{
		ObjectMeta: metav1.ObjectMeta{Name: "harbor"},
		Spec: kapsav1alpha1.RegistrySpec{
			Endpoint: "https://harbor.example.com",
			Auth:     kapsav1alpha1.RegistryAuth{SecretRef: ref},
		},
	}
}

func TestLoadRegistry(t *testing.T) {
	loader := newLoader(secret("kapsa-system", "harbor-push", map[string]string{"username": "robot", "password": "pw"}))

	creds, err := loader.LoadRegistry(context.Background(),
		harbor(&kapsav1alpha1.SecretReference{Name: "harbor-push", Namespace: "kapsa-system"}), "harbor.example.com")
	require.NoError(t, err)
	assert.Equal(t, "robot", creds.Username)
	assert.NotEmpty(t, creds.DockerConfigJSON)
}

func TestLoadRegistry_SecretMissing(t *testing.T) {
	loader := newLoader()

	_, err := loader.LoadRegistry(context.Background(),
		harbor(&kapsav1alpha1.SecretReference{Name: "absent", Namespace: "kapsa-system"}), "harbor.example.com")
	require.Error(t, err)
	assert.True(t, apierrors.IsNotFound(err))
}

func TestLoadRegistry_NoRef(t *testing.T) {
	_, err := newLoader().LoadRegistry(context.Background(), harbor(nil), "harbor.example.com")
	assert.ErrorIs(t, err, ErrSecretRefNil)
}

func TestLoadRegistry_MalformedSecret(t *testing.T) {
	loader := newLoader(secret("kapsa-system", "broken", map[string]string{"username": "robot"}))

	_, err := loader.LoadRegistry(context.Background(),
		harbor(&kapsav1alpha1.SecretReference{Name: "broken", Namespace: "kapsa-system"}), "harbor.example.com")
	require.Error(t, err)
	assert.False(t, apierrors.IsNotFound(err))
}

func TestLoadDNSToken(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]string
		key     string
		want    string
		wantErr error
	}{
		{name: "default key", data: map[string]string{"api-token": "tok"}, want: "tok"},
		{name: "custom key", data: map[string]string{"cf": "tok2"}, key: "cf", want: "tok2"},
		{name: "legacy key fallback", data: map[string]string{"CLOUDFLARE_API_TOKEN": "tok3"}, want: "tok3"},
		{name: "custom key missing", data: map[string]string{"api-token": "tok"}, key: "cf", wantErr: ErrKeyMissing},
		{name: "empty secret", data: map[string]string{}, wantErr: ErrKeyMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newLoader(secret("cert-manager", "cloudflare", tt.data))
			token, err := loader.LoadDNSToken(context.Background(), &kapsav1alpha1.CredentialsSecretReference{
				Name: "cloudflare", Namespace: "cert-manager", Key: tt.key,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestLoadDNSToken_NilRef(t *testing.T) {
	_, err := newLoader().LoadDNSToken(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSecretRefNil)
}
