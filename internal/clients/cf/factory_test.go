// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package cf_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kapsa-project/kapsa-operator/internal/clients/cf"
	"github.com/kapsa-project/kapsa-operator/internal/clients/cf/mock"
)

func TestDefaultClientFactory_NewClient_WithAPIToken(t *testing.T) {
	client, err := cf.NewDefaultClientFactory().NewClient(cf.ClientConfig{
		Log:      logr.Discard(),
		APIToken: "test-api-token",
		BaseURL:  "https://cloudflare.invalid/client/v4",
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestDefaultClientFactory_NewClient_NoCredentials(t *testing.T) {
	client, err := cf.NewDefaultClientFactory().NewClient(cf.ClientConfig{Log: logr.Discard()})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, errors.Is(err, cf.ErrNoCredentials))
}

func TestMockClientFactory(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := mock.NewMockClientFactory(ctrl)

	factory.GetMockClient().EXPECT().
		FindZone(gomock.Any(), "apps.example.com").
		Return(&cf.Zone{ID: "zone-1", Name: "example.com"}, nil).
		Times(1)

	client, err := factory.NewClient(cf.ClientConfig{APIToken: "token"})
	require.NoError(t, err)

	zone, err := client.FindZone(context.Background(), "apps.example.com")
	require.NoError(t, err)
	assert.Equal(t, "zone-1", zone.ID)
	require.Len(t, factory.Configs, 1)
	assert.Equal(t, "token", factory.Configs[0].APIToken)
}

func TestMockClientFactoryWithError(t *testing.T) {
	factory := &mock.MockClientFactoryWithError{Err: cf.ErrNoCredentials}
	client, err := factory.NewClient(cf.ClientConfig{})
	assert.Nil(t, client)
	assert.ErrorIs(t, err, cf.ErrNoCredentials)
}
