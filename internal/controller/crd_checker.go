// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package controller

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/rest"
)

var (
	// KpackImageGVK is the kpack Image projects build with.
	KpackImageGVK = schema.GroupVersionKind{Group: "kpack.io", Version: "v1alpha2", Kind: "Image"}
	// HTTPRouteGVK is the Gateway API route environments may be exposed through.
	HTTPRouteGVK = schema.GroupVersionKind{Group: "gateway.networking.k8s.io", Version: "v1", Kind: "HTTPRoute"}
	// CertificateGVK is the cert-manager Certificate backing ingress TLS.
	CertificateGVK = schema.GroupVersionKind{Group: "cert-manager.io", Version: "v1", Kind: "Certificate"}
)

// CRDChecker reports which optional APIs are served by the cluster.
type CRDChecker struct {
	discoveryClient discovery.DiscoveryInterface
}

// NewCRDChecker creates a new CRDChecker using the provided REST config
func NewCRDChecker(config *rest.Config) (*CRDChecker, error) {
	dc, err := discovery.NewDiscoveryClientForConfig(config)
	if err != nil {
		return nil, err
	}
	return &CRDChecker{discoveryClient: dc}, nil
}

// NewCRDCheckerFromDiscovery wraps an existing discovery client.
func NewCRDCheckerFromDiscovery(dc discovery.DiscoveryInterface) *CRDChecker {
	return &CRDChecker{discoveryClient: dc}
}

// HasGVK checks if a specific GroupVersionKind is available in the cluster
func (c *CRDChecker) HasGVK(gvk schema.GroupVersionKind) bool {
	resourceList, err := c.discoveryClient.ServerResourcesForGroupVersion(gvk.GroupVersion().String())
	if err != nil {
		return false
	}

	for _, resource := range resourceList.APIResources {
		if resource.Kind == gvk.Kind {
			return true
		}
	}
	return false
}

// HasKpack checks if the kpack Image CRD is installed
func (c *CRDChecker) HasKpack() bool {
	return c.HasGVK(KpackImageGVK)
}

// HasHTTPRoute checks if HTTPRoute CRD is installed
func (c *CRDChecker) HasHTTPRoute() bool {
	return c.HasGVK(HTTPRouteGVK)
}

// APIStatus lists the optional APIs found at startup.
type APIStatus struct {
	Kpack       bool
	HTTPRoute   bool
	CertManager bool
}

// Probe checks every optional API once.
func (c *CRDChecker) Probe() APIStatus {
	return APIStatus{
		Kpack:       c.HasKpack(),
		HTTPRoute:   c.HasHTTPRoute(),
		CertManager: c.HasGVK(CertificateGVK),
	}
}
