// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package cf

import (
	"errors"

	"github.com/cloudflare/cloudflare-go"
	"github.com/go-logr/logr"
)

// ErrNoCredentials is returned when no API credentials are provided.
var ErrNoCredentials = errors.New("no API credentials provided: an API token is required")

// ClientFactory creates ZoneLookup instances.
// This interface enables dependency injection for testing.
type ClientFactory interface {
	NewClient(config ClientConfig) (ZoneLookup, error)
}

// ClientConfig contains configuration for creating a ZoneLookup.
type ClientConfig struct {
	Log      logr.Logger
	APIToken string
	// BaseURL overrides the Cloudflare API endpoint.
	BaseURL string
}

// DefaultClientFactory creates clients backed by the real Cloudflare API.
type DefaultClientFactory struct{}

// NewClient creates a ZoneLookup authenticated with config.APIToken.
func (*DefaultClientFactory) NewClient(config ClientConfig) (ZoneLookup, error) {
	if config.APIToken == "" {
		return nil, ErrNoCredentials
	}

	var opts []cloudflare.Option
	if config.BaseURL != "" {
		opts = append(opts, cloudflare.BaseURL(config.BaseURL))
	}
	cfClient, err := cloudflare.NewWithAPIToken(config.APIToken, opts...)
	if err != nil {
		return nil, err
	}

	return &API{
		Log:              config.Log,
		CloudflareClient: cfClient,
	}, nil
}

// NewDefaultClientFactory creates a new DefaultClientFactory.
func NewDefaultClientFactory() ClientFactory {
	return &DefaultClientFactory{}
}
