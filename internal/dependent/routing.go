// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package dependent

import (
	"fmt"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

// cert-manager ingress-shim annotations.
const (
	AnnotationClusterIssuer = "cert-manager.io/cluster-issuer"
	AnnotationIssuer        = "cert-manager.io/issuer"
)

// TLS selects the cert-manager issuer an Ingress requests its certificate from.
type TLS struct {
	IssuerKind string
	IssuerName string
}

// TLSFor returns the issuer configured on a DomainPool, or nil when it has none.
func TLSFor(pool *kapsav1alpha1.DomainPool) *TLS {
	if pool == nil || pool.Spec.CertManager == nil || pool.Spec.CertManager.IssuerRef.Name == "" {
		return nil
	}
	ref := pool.Spec.CertManager.IssuerRef
	kind := ref.Kind
	if kind == "" {
		kind = "ClusterIssuer"
	}
	return &TLS{IssuerKind: kind, IssuerName: ref.Name}
}

// TLSSecretName is the secret cert-manager stores an Environment's certificate in.
func TLSSecretName(env *kapsav1alpha1.Environment) string {
	return env.Name + "-tls"
}

// Hostname returns the host an Environment is served on. An explicit
// spec.routing.host wins; otherwise the host is "{subdomain}-{env}.{baseDomain}",
// where subdomain defaults to the Project name.
func Hostname(env *kapsav1alpha1.Environment, project *kapsav1alpha1.Project, baseDomain string) string {
	if env.Spec.Routing != nil && env.Spec.Routing.Host != "" {
		return env.Spec.Routing.Host
	}
	if baseDomain == "" {
		return ""
	}
	sub := project.Name
	if project.Spec.Domain != nil && project.Spec.Domain.Subdomain != "" {
		sub = project.Spec.Domain.Subdomain
	}
	return fmt.Sprintf("%s-%s.%s", sub, EnvironmentName(env), baseDomain)
}

// Ingress returns the Ingress routing host to an Environment's Service.
func Ingress(env *kapsav1alpha1.Environment, host string, tls *TLS) *networkingv1.Ingress {
	ing := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      env.Name,
			Namespace: env.Namespace,
			Labels:    WorkloadLabels(env),
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{{
				Host: host,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: ptr.To(networkingv1.PathTypePrefix),
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: env.Name,
									Port: networkingv1.ServiceBackendPort{Name: PortName},
								},
							},
						}},
					},
				},
			}},
		},
	}
	if env.Spec.Routing != nil && env.Spec.Routing.IngressClassName != nil {
		ing.Spec.IngressClassName = ptr.To(*env.Spec.Routing.IngressClassName)
	}
	if tls != nil {
		annotation := AnnotationClusterIssuer
		if tls.IssuerKind == "Issuer" {
			annotation = AnnotationIssuer
		}
		ing.Annotations = map[string]string{annotation: tls.IssuerName}
		ing.Spec.TLS = []networkingv1.IngressTLS{{
			Hosts:      []string{host},
			SecretName: TLSSecretName(env),
		}}
	}
	return ing
}

// HTTPRoute returns the Gateway API route attaching an Environment's Service to
// the Gateway named in spec.routing.gatewayRef. Callers check UsesGateway first.
func HTTPRoute(env *kapsav1alpha1.Environment, host string) *gatewayv1.HTTPRoute {
	gw := env.Spec.Routing.GatewayRef
	parent := gatewayv1.ParentReference{Name: gatewayv1.ObjectName(gw.Name)}
	if gw.Namespace != "" {
		parent.Namespace = ptr.To(gatewayv1.Namespace(gw.Namespace))
	}
	if gw.SectionName != "" {
		parent.SectionName = ptr.To(gatewayv1.SectionName(gw.SectionName))
	}

	route := &gatewayv1.HTTPRoute{
		ObjectMeta: metav1.ObjectMeta{
			Name:      env.Name,
			Namespace: env.Namespace,
			Labels:    WorkloadLabels(env),
		},
		Spec: gatewayv1.HTTPRouteSpec{
			CommonRouteSpec: gatewayv1.CommonRouteSpec{
				ParentRefs: []gatewayv1.ParentReference{parent},
			},
			Rules: []gatewayv1.HTTPRouteRule{{
				BackendRefs: []gatewayv1.HTTPBackendRef{{
					BackendRef: gatewayv1.BackendRef{
						BackendObjectReference: gatewayv1.BackendObjectReference{
							Name: gatewayv1.ObjectName(env.Name),
							Port: ptr.To(gatewayv1.PortNumber(ServicePort)),
						},
					},
				}},
			}},
		},
	}
	if host != "" {
		route.Spec.Hostnames = []gatewayv1.Hostname{gatewayv1.Hostname(host)}
	}
	return route
}
