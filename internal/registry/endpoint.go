// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package registry

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
)

// LatestTag is the tag kpack pushes every build to.
const LatestTag = "latest"

// ParseEndpoint turns a registry endpoint such as "https://harbor.example.com" or
// "registry.local:5000" into a registry name. Plain http endpoints are marked insecure.
func ParseEndpoint(endpoint string) (name.Registry, error) {
	endpoint = strings.TrimSpace(endpoint)
	var opts []name.Option
	lower := strings.ToLower(endpoint)
	switch {
	case strings.HasPrefix(lower, "http://"):
		opts = append(opts, name.Insecure)
		endpoint = endpoint[len("http://"):]
	case strings.HasPrefix(lower, "https://"):
		endpoint = endpoint[len("https://"):]
	}
	host, path, _ := strings.Cut(endpoint, "/")
	if host == "" {
		return name.Registry{}, fmt.Errorf("registry endpoint %q has no host", endpoint)
	}
	if strings.Trim(path, "/") != "" {
		return name.Registry{}, fmt.Errorf("registry endpoint %q must not contain a path", endpoint)
	}
	reg, err := name.NewRegistry(host, append(opts, name.StrictValidation)...)
	if err != nil {
		return name.Registry{}, fmt.Errorf("parse registry endpoint %q: %w", endpoint, err)
	}
	return reg, nil
}

// ImageTag returns the reference builds of repository are pushed to.
func ImageTag(reg name.Registry, repository string) (name.Tag, error) {
	repository = strings.Trim(strings.TrimSpace(repository), "/")
	if repository == "" {
		return name.Tag{}, fmt.Errorf("image repository cannot be empty")
	}
	var opts []name.Option
	if reg.Scheme() == "http" {
		opts = append(opts, name.Insecure)
	}
	tag, err := name.NewTag(reg.Name()+"/"+repository+":"+LatestTag, opts...)
	if err != nil {
		return name.Tag{}, fmt.Errorf("parse image reference for %q: %w", repository, err)
	}
	return tag, nil
}

// ValidateRepository checks that repository forms a valid image repository path.
func ValidateRepository(repository string) error {
	_, err := name.NewRepository("example.com/" + strings.Trim(repository, "/"))
	return err
}

//go:generate mockgen -destination=mock/mock_prober.go -package=mock github.com/kapsa-project/kapsa-operator/internal/registry Prober

// Prober checks that a registry is reachable and accepts the given credentials.
type Prober interface {
	Ping(ctx context.Context, reg name.Registry, auth authn.Authenticator) error
}

// RemoteProber pings the registry's /v2/ endpoint and performs the token exchange for a pull scope.
type RemoteProber struct {
	Transport http.RoundTripper
}

var _ Prober = RemoteProber{}

// Ping implements Prober.
func (p RemoteProber) Ping(ctx context.Context, reg name.Registry, auth authn.Authenticator) error {
	t := p.Transport
	if t == nil {
		t = remote.DefaultTransport
	}
	if auth == nil {
		auth = authn.Anonymous
	}
	if _, err := transport.NewWithContext(ctx, reg, auth, t, []string{reg.Scope(transport.PullScope)}); err != nil {
		return fmt.Errorf("registry %s unreachable: %w", reg.Name(), err)
	}
	return nil
}
