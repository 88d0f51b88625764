// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

// Package mock provides mock implementations for testing Cloudflare client operations.
package mock

import (
	"go.uber.org/mock/gomock"

	"github.com/kapsa-project/kapsa-operator/internal/clients/cf"
)

// MockClientFactory is a factory that hands out one MockZoneLookup.
type MockClientFactory struct {
	ctrl       *gomock.Controller
	mockClient *MockZoneLookup
	// Configs records every configuration a client was requested with.
	Configs []cf.ClientConfig
}

// NewMockClientFactory creates a new MockClientFactory.
func NewMockClientFactory(ctrl *gomock.Controller) *MockClientFactory {
	return &MockClientFactory{
		ctrl:       ctrl,
		mockClient: NewMockZoneLookup(ctrl),
	}
}

// NewClient returns the mock client.
func (f *MockClientFactory) NewClient(config cf.ClientConfig) (cf.ZoneLookup, error) {
	f.Configs = append(f.Configs, config)
	return f.mockClient, nil
}

// GetMockClient returns the underlying mock client for setting up expectations.
func (f *MockClientFactory) GetMockClient() *MockZoneLookup {
	return f.mockClient
}

// MockClientFactoryWithError is a factory that returns an error.
type MockClientFactoryWithError struct {
	Err error
}

// NewClient returns the configured error.
func (f *MockClientFactoryWithError) NewClient(_ cf.ClientConfig) (cf.ZoneLookup, error) {
	return nil, f.Err
}
