// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package v1alpha1

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	admissionv1 "k8s.io/api/admission/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

func admissionRequest(op admissionv1.Operation, obj runtime.Object) admission.Request {
	raw, err := json.Marshal(obj)
	Expect(err).NotTo(HaveOccurred())
	return admission.Request{AdmissionRequest: admissionv1.AdmissionRequest{
		UID:       "req-1",
		Operation: op,
		Object:    runtime.RawExtension{Raw: raw},
	}}
}

var _ = Describe("Kapsa Webhooks", func() {
	var (
		scheme *runtime.Scheme
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		scheme = runtime.NewScheme()
		Expect(kapsav1alpha1.AddToScheme(scheme)).To(Succeed())
	})

	Context("Project", func() {
		var project *kapsav1alpha1.Project

		BeforeEach(func() {
			project = &kapsav1alpha1.Project{
				TypeMeta:   metav1.TypeMeta{APIVersion: kapsav1alpha1.GroupVersion.String(), Kind: "Project"},
				ObjectMeta: metav1.ObjectMeta{Name: "proj", Namespace: "default"},
				Spec: kapsav1alpha1.ProjectSpec{
					Repository: kapsav1alpha1.RepositorySpec{URL: "https://git.example/app"},
					Registry:   kapsav1alpha1.ProjectRegistrySpec{Name: "reg1", ImageRepository: "org/app"},
				},
			}
		})

		It("admits a valid Project", func() {
			hook := admission.WithCustomValidator(scheme, &kapsav1alpha1.Project{}, &kapsav1alpha1.ProjectValidator{})
			resp := hook.Handle(ctx, admissionRequest(admissionv1.Create, project))
			Expect(resp.Allowed).To(BeTrue())
		})

		It("rejects duplicate environment names", func() {
			project.Spec.Environments = []kapsav1alpha1.ProjectEnvironment{{Name: "prod"}, {Name: "prod"}}
			hook := admission.WithCustomValidator(scheme, &kapsav1alpha1.Project{}, &kapsav1alpha1.ProjectValidator{})
			resp := hook.Handle(ctx, admissionRequest(admissionv1.Create, project))
			Expect(resp.Allowed).To(BeFalse())
			Expect(resp.Result.Message).To(ContainSubstring("spec.environments[1].name"))
		})

		It("warns when configuration is incomplete", func() {
			project.Spec.Registry.Name = ""
			hook := admission.WithCustomValidator(scheme, &kapsav1alpha1.Project{}, &kapsav1alpha1.ProjectValidator{})
			resp := hook.Handle(ctx, admissionRequest(admissionv1.Create, project))
			Expect(resp.Allowed).To(BeTrue())
			Expect(resp.Warnings).To(HaveLen(1))
		})

		It("defaults the branch and poll interval", func() {
			hook := admission.WithCustomDefaulter(scheme, &kapsav1alpha1.Project{}, &kapsav1alpha1.ProjectDefaulter{})
			resp := hook.Handle(ctx, admissionRequest(admissionv1.Create, project))
			Expect(resp.Allowed).To(BeTrue())

			paths := make([]string, 0, len(resp.Patches))
			for _, p := range resp.Patches {
				paths = append(paths, p.Path)
			}
			Expect(paths).To(ContainElements("/spec/repository/branch", "/spec/repository/pollInterval"))
		})
	})

	Context("Environment", func() {
		It("rejects an ingress class together with a gateway", func() {
			env := &kapsav1alpha1.Environment{
				TypeMeta:   metav1.TypeMeta{APIVersion: kapsav1alpha1.GroupVersion.String(), Kind: "Environment"},
				ObjectMeta: metav1.ObjectMeta{Name: "proj-production", Namespace: "proj-ns"},
				Spec: kapsav1alpha1.EnvironmentSpec{
					ProjectRef: kapsav1alpha1.ProjectReference{Name: "proj"},
					Routing: &kapsav1alpha1.RoutingSpec{
						IngressClassName: ptr.To("nginx"),
						GatewayRef:       &kapsav1alpha1.GatewayReference{Name: "public"},
					},
				},
			}
			hook := admission.WithCustomValidator(scheme, &kapsav1alpha1.Environment{}, &kapsav1alpha1.EnvironmentValidator{})
			resp := hook.Handle(ctx, admissionRequest(admissionv1.Create, env))
			Expect(resp.Allowed).To(BeFalse())
		})
	})

	Context("Registry", func() {
		It("rejects an endpoint with a path", func() {
			reg := &kapsav1alpha1.Registry{
				TypeMeta:   metav1.TypeMeta{APIVersion: kapsav1alpha1.GroupVersion.String(), Kind: "Registry"},
				ObjectMeta: metav1.ObjectMeta{Name: "reg1"},
				Spec:       kapsav1alpha1.RegistrySpec{Endpoint: "https://harbor.example.com/library"},
			}
			hook := admission.WithCustomValidator(scheme, &kapsav1alpha1.Registry{}, &kapsav1alpha1.RegistryValidator{})
			resp := hook.Handle(ctx, admissionRequest(admissionv1.Create, reg))
			Expect(resp.Allowed).To(BeFalse())
			Expect(resp.Result.Message).To(ContainSubstring("spec.endpoint"))
		})
	})

	Context("DomainPool", func() {
		It("requires a DNS provider for dns01 challenges", func() {
			pool := &kapsav1alpha1.DomainPool{
				TypeMeta:   metav1.TypeMeta{APIVersion: kapsav1alpha1.GroupVersion.String(), Kind: "DomainPool"},
				ObjectMeta: metav1.ObjectMeta{Name: "pool"},
				Spec: kapsav1alpha1.DomainPoolSpec{
					BaseDomains: []string{"apps.example.com"},
					CertManager: &kapsav1alpha1.CertManagerSpec{
						IssuerRef:     kapsav1alpha1.IssuerReference{Name: "letsencrypt"},
						ChallengeType: kapsav1alpha1.ChallengeDNS01,
					},
				},
			}
			hook := admission.WithCustomValidator(scheme, &kapsav1alpha1.DomainPool{}, &kapsav1alpha1.DomainPoolValidator{})
			resp := hook.Handle(ctx, admissionRequest(admissionv1.Create, pool))
			Expect(resp.Allowed).To(BeFalse())
			Expect(resp.Result.Message).To(ContainSubstring("spec.certManager.dnsProvider"))
		})
	})
})
