// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package dependent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

func TestNamespace(t *testing.T) {
	ns := Namespace(newProject("proj"))

	assert.Equal(t, "proj-ns", ns.Name)
	assert.Equal(t, "proj", ns.Labels[kapsav1alpha1.LabelProject])
	assert.Equal(t, kapsav1alpha1.ManagedByValue, ns.Labels[kapsav1alpha1.LabelManagedBy])
	assert.Equal(t, "default", ns.Annotations[kapsav1alpha1.AnnotationParentNamespace])
}

func TestServiceAccount(t *testing.T) {
	project := newProject("proj")

	t.Run("with pull secret", func(t *testing.T) {
		sa := ServiceAccount(project, "reg1-credentials")
		assert.Equal(t, "proj-kpack-sa", sa.Name)
		assert.Equal(t, "proj-ns", sa.Namespace)
		require.Len(t, sa.Secrets, 1)
		assert.Equal(t, "reg1-credentials", sa.Secrets[0].Name)
		require.Len(t, sa.ImagePullSecrets, 1)
		assert.Equal(t, "reg1-credentials", sa.ImagePullSecrets[0].Name)
	})

	t.Run("without pull secret", func(t *testing.T) {
		sa := ServiceAccount(project, "")
		assert.Empty(t, sa.Secrets)
		assert.Empty(t, sa.ImagePullSecrets)
	})
}

func TestRegistrySecret(t *testing.T) {
	secret := RegistrySecret(newProject("proj"), "reg1-credentials", []byte(`{"auths":{}}`))

	assert.Equal(t, "proj-ns", secret.Namespace)
	assert.Equal(t, corev1.SecretTypeDockerConfigJson, secret.Type)
	assert.Equal(t, `{"auths":{}}`, string(secret.Data[corev1.DockerConfigJsonKey]))
}

func TestKpackImage(t *testing.T) {
	project := newProject("proj")
	builder := kapsav1alpha1.BuilderReference{Kind: "ClusterBuilder", Name: "default"}

	image := KpackImage(project, "harbor.example.com/org/app:latest", builder, "main")

	assert.Equal(t, "kpack.io/v1alpha2", image.GetAPIVersion())
	assert.Equal(t, "Image", image.GetKind())
	assert.Equal(t, "proj", image.GetName())
	assert.Equal(t, "proj-ns", image.GetNamespace())
	assert.Equal(t, "proj", image.GetLabels()[LabelAppName])
	assert.Equal(t, "kapsa", image.GetLabels()[LabelAppManagedBy])

	tests := []struct {
		path []string
		want string
	}{
		{[]string{"spec", "tag"}, "harbor.example.com/org/app:latest"},
		{[]string{"spec", "serviceAccountName"}, "proj-kpack-sa"},
		{[]string{"spec", "builder", "kind"}, "ClusterBuilder"},
		{[]string{"spec", "builder", "name"}, "default"},
		{[]string{"spec", "source", "git", "url"}, "https://git.example/app"},
		{[]string{"spec", "source", "git", "revision"}, "main"},
	}
	for _, tt := range tests {
		got, found, err := unstructured.NestedString(image.Object, tt.path...)
		require.NoError(t, err)
		require.True(t, found, "%v", tt.path)
		assert.Equal(t, tt.want, got, "%v", tt.path)
	}
}

func TestKpackStatus(t *testing.T) {
	image := NewKpackImage()
	_, ok := KpackLatestImage(image)
	assert.False(t, ok)
	assert.Equal(t, "Unknown", string(KpackReady(image)))

	image.Object["status"] = map[string]interface{}{
		"latestImage": "harbor.example.com/org/app@sha256:abc",
		"conditions": []interface{}{
			map[string]interface{}{"type": "Succeeded", "status": "False"},
			map[string]interface{}{"type": "Ready", "status": "True"},
		},
	}
	latest, ok := KpackLatestImage(image)
	assert.True(t, ok)
	assert.Equal(t, "harbor.example.com/org/app@sha256:abc", latest)
	assert.Equal(t, "True", string(KpackReady(image)))
}

func TestEnvironment(t *testing.T) {
	project := newProject("proj")

	tests := []struct {
		name       string
		declared   kapsav1alpha1.ProjectEnvironment
		wantBranch string
	}{
		{"inherits repository branch", kapsav1alpha1.ProjectEnvironment{Name: "dev"}, "main"},
		{"branch override", kapsav1alpha1.ProjectEnvironment{Name: "staging", Branch: "release"}, "release"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Environment(project, tt.declared)
			assert.Equal(t, "proj-"+tt.declared.Name, env.Name)
			assert.Equal(t, "proj-ns", env.Namespace)
			assert.Equal(t, tt.declared.Name, env.Labels[kapsav1alpha1.LabelEnvironment])
			assert.Equal(t, "proj", env.Spec.ProjectRef.Name)
			assert.Equal(t, "default", env.Spec.ProjectRef.Namespace)
			assert.Equal(t, kapsav1alpha1.EnvironmentTypePermanent, env.Spec.Type)
			assert.Equal(t, tt.wantBranch, env.Spec.Branch)
		})
	}
}

func TestDeployment(t *testing.T) {
	env := newEnvironment("proj-dev", "dev")
	env.Spec.Runtime.Replicas = ptr.To[int32](2)
	env.Spec.Runtime.Port = ptr.To[int32](3000)
	env.Spec.Runtime.Env = []corev1.EnvVar{{Name: "MODE", Value: "dev"}}

	dep := Deployment(env, "harbor.example.com/org/app@sha256:abc", "reg1-credentials")

	assert.Equal(t, "proj-dev", dep.Name)
	assert.Equal(t, "proj-ns", dep.Namespace)
	assert.Equal(t, int32(2), *dep.Spec.Replicas)
	assert.Equal(t, SelectorLabels(env), dep.Spec.Selector.MatchLabels)
	for k, v := range dep.Spec.Selector.MatchLabels {
		assert.Equal(t, v, dep.Spec.Template.Labels[k])
	}
	require.Len(t, dep.Spec.Template.Spec.Containers, 1)
	c := dep.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "harbor.example.com/org/app@sha256:abc", c.Image)
	assert.Equal(t, int32(3000), c.Ports[0].ContainerPort)
	assert.Equal(t, "MODE", c.Env[0].Name)
	assert.Equal(t, "reg1-credentials", dep.Spec.Template.Spec.ImagePullSecrets[0].Name)
	assert.Equal(t, "dev", dep.Labels[kapsav1alpha1.LabelEnvironment])
}

func TestDeploymentAutoscaledStartsAtMinReplicas(t *testing.T) {
	env := newEnvironment("proj-dev", "dev")
	env.Spec.Runtime.Replicas = ptr.To[int32](5)
	env.Spec.Runtime.Autoscaling = &kapsav1alpha1.AutoscalingSpec{Enabled: true, MinReplicas: ptr.To[int32](2), MaxReplicas: 4}

	dep := Deployment(env, "img", "")

	assert.Equal(t, int32(2), *dep.Spec.Replicas)
	assert.Empty(t, dep.Spec.Template.Spec.ImagePullSecrets)
}

func TestService(t *testing.T) {
	env := newEnvironment("proj-dev", "dev")
	svc := Service(env)

	assert.Equal(t, corev1.ServiceTypeClusterIP, svc.Spec.Type)
	assert.Equal(t, SelectorLabels(env), svc.Spec.Selector)
	require.Len(t, svc.Spec.Ports, 1)
	assert.Equal(t, ServicePort, svc.Spec.Ports[0].Port)
	assert.Equal(t, intstr.FromString(PortName), svc.Spec.Ports[0].TargetPort)
}

func TestHorizontalPodAutoscaler(t *testing.T) {
	env := newEnvironment("proj-dev", "dev")
	env.Spec.Runtime.Autoscaling = &kapsav1alpha1.AutoscalingSpec{Enabled: true, MaxReplicas: 6}

	hpa := HorizontalPodAutoscaler(env)

	assert.Equal(t, "Deployment", hpa.Spec.ScaleTargetRef.Kind)
	assert.Equal(t, "proj-dev", hpa.Spec.ScaleTargetRef.Name)
	assert.Equal(t, int32(1), *hpa.Spec.MinReplicas)
	assert.Equal(t, int32(6), hpa.Spec.MaxReplicas)
	require.Len(t, hpa.Spec.Metrics, 1)
	assert.Equal(t, kapsav1alpha1.DefaultTargetCPUUtilization, *hpa.Spec.Metrics[0].Resource.Target.AverageUtilization)
}

func TestHostname(t *testing.T) {
	project := newProject("proj")
	env := newEnvironment("proj-dev", "dev")

	assert.Equal(t, "proj-dev.apps.example.com", Hostname(env, project, "apps.example.com"))
	assert.Empty(t, Hostname(env, project, ""))

	project.Spec.Domain = &kapsav1alpha1.ProjectDomainSpec{Subdomain: "shop"}
	assert.Equal(t, "shop-dev.apps.example.com", Hostname(env, project, "apps.example.com"))

	env.Spec.Routing = &kapsav1alpha1.RoutingSpec{Host: "www.example.org"}
	assert.Equal(t, "www.example.org", Hostname(env, project, "apps.example.com"))
}

func TestIngress(t *testing.T) {
	env := newEnvironment("proj-dev", "dev")
	env.Spec.Routing = &kapsav1alpha1.RoutingSpec{IngressClassName: ptr.To("nginx")}

	t.Run("without TLS", func(t *testing.T) {
		ing := Ingress(env, "proj-dev.apps.example.com", nil)
		assert.Equal(t, "nginx", *ing.Spec.IngressClassName)
		assert.Empty(t, ing.Annotations)
		assert.Empty(t, ing.Spec.TLS)
		rule := ing.Spec.Rules[0]
		assert.Equal(t, "proj-dev.apps.example.com", rule.Host)
		assert.Equal(t, networkingv1.PathTypePrefix, *rule.HTTP.Paths[0].PathType)
		assert.Equal(t, "proj-dev", rule.HTTP.Paths[0].Backend.Service.Name)
	})

	tests := []struct {
		kind       string
		annotation string
	}{
		{"ClusterIssuer", AnnotationClusterIssuer},
		{"Issuer", AnnotationIssuer},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			ing := Ingress(env, "proj-dev.apps.example.com", &TLS{IssuerKind: tt.kind, IssuerName: "letsencrypt"})
			assert.Equal(t, "letsencrypt", ing.Annotations[tt.annotation])
			require.Len(t, ing.Spec.TLS, 1)
			assert.Equal(t, "proj-dev-tls", ing.Spec.TLS[0].SecretName)
			assert.Equal(t, []string{"proj-dev.apps.example.com"}, ing.Spec.TLS[0].Hosts)
		})
	}
}

func TestTLSFor(t *testing.T) {
	assert.Nil(t, TLSFor(nil))
	pool := &kapsav1alpha1.DomainPool{}
	assert.Nil(t, TLSFor(pool))

	pool.Spec.CertManager = &kapsav1alpha1.CertManagerSpec{IssuerRef: kapsav1alpha1.IssuerReference{Name: "le"}}
	assert.Equal(t, &TLS{IssuerKind: "ClusterIssuer", IssuerName: "le"}, TLSFor(pool))
}

func TestHTTPRoute(t *testing.T) {
	env := newEnvironment("proj-dev", "dev")
	env.Spec.Routing = &kapsav1alpha1.RoutingSpec{
		GatewayRef: &kapsav1alpha1.GatewayReference{Name: "public", Namespace: "gateways", SectionName: "https"},
	}

	route := HTTPRoute(env, "proj-dev.apps.example.com")

	require.Len(t, route.Spec.ParentRefs, 1)
	parent := route.Spec.ParentRefs[0]
	assert.Equal(t, gatewayv1.ObjectName("public"), parent.Name)
	assert.Equal(t, gatewayv1.Namespace("gateways"), *parent.Namespace)
	assert.Equal(t, gatewayv1.SectionName("https"), *parent.SectionName)
	assert.Equal(t, []gatewayv1.Hostname{"proj-dev.apps.example.com"}, route.Spec.Hostnames)
	backend := route.Spec.Rules[0].BackendRefs[0].BackendRef
	assert.Equal(t, gatewayv1.ObjectName("proj-dev"), backend.Name)
	assert.Equal(t, gatewayv1.PortNumber(ServicePort), *backend.Port)
}
