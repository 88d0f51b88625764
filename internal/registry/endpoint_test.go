// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package registry

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-containerregistry/pkg/authn"
	ggcrregistry "github.com/google/go-containerregistry/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		host     string
		scheme   string
		wantErr  bool
	}{
		{name: "https url", endpoint: "https://harbor.example.com", host: "harbor.example.com", scheme: "https"},
		{name: "trailing slash", endpoint: "https://harbor.example.com/", host: "harbor.example.com", scheme: "https"},
		{name: "bare host with port", endpoint: "registry.example.com:5000", host: "registry.example.com:5000", scheme: "https"},
		{name: "plain http", endpoint: "http://registry.internal:5000", host: "registry.internal:5000", scheme: "http"},
		{name: "path", endpoint: "https://harbor.example.com/library", wantErr: true},
		{name: "empty", endpoint: "https://", wantErr: true},
		{name: "garbage", endpoint: "not a host", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := ParseEndpoint(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, reg.Name())
			assert.Equal(t, tt.scheme, reg.Scheme())
		})
	}
}

func TestImageTag(t *testing.T) {
	reg, err := ParseEndpoint("https://harbor.example.com")
	require.NoError(t, err)

	tag, err := ImageTag(reg, "/team/app/")
	require.NoError(t, err)
	assert.Equal(t, "harbor.example.com/team/app:latest", tag.String())

	_, err = ImageTag(reg, " ")
	assert.Error(t, err)

	_, err = ImageTag(reg, "Team/App")
	assert.Error(t, err, "repositories must be lowercase")
}

func TestValidateRepository(t *testing.T) {
	assert.NoError(t, ValidateRepository("team/app"))
	assert.Error(t, ValidateRepository("Team/App"))
}

func TestRemoteProber_Ping(t *testing.T) {
	srv := httptest.NewServer(ggcrregistry.New())
	defer srv.Close()

	reg, err := ParseEndpoint(srv.URL)
	require.NoError(t, err)

	require.NoError(t, RemoteProber{}.Ping(context.Background(), reg, authn.Anonymous))
}

func TestRemoteProber_Unreachable(t *testing.T) {
	srv := httptest.NewServer(ggcrregistry.New())
	url := srv.URL
	srv.Close()

	reg, err := ParseEndpoint(url)
	require.NoError(t, err)

	err = RemoteProber{}.Ping(context.Background(), reg, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unreachable"))
}
