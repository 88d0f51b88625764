// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package dependent

import (
	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
)

const (
	// ContainerName is the name of the application container.
	ContainerName = "app"
	// PortName names the application port on the container and the Service.
	PortName = "http"
	// ServicePort is the port the Service exposes.
	ServicePort int32 = 80
)

// Deployment returns the Deployment running image for an Environment.
func Deployment(env *kapsav1alpha1.Environment, image, pullSecret string) *appsv1.Deployment {
	rt := env.Spec.Runtime
	container := corev1.Container{
		Name:  ContainerName,
		Image: image,
		Ports: []corev1.ContainerPort{{
			Name:          PortName,
			ContainerPort: rt.EffectivePort(),
			Protocol:      corev1.ProtocolTCP,
		}},
		Env:       rt.Env,
		Resources: rt.Resources,
	}

	podSpec := corev1.PodSpec{Containers: []corev1.Container{container}}
	if pullSecret != "" {
		podSpec.ImagePullSecrets = []corev1.LocalObjectReference{{Name: pullSecret}}
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      env.Name,
			Namespace: env.Namespace,
			Labels:    WorkloadLabels(env),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(rt.EffectiveReplicas()),
			Selector: &metav1.LabelSelector{MatchLabels: SelectorLabels(env)},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: WorkloadLabels(env)},
				Spec:       podSpec,
			},
		},
	}
}

// Service returns the ClusterIP Service in front of an Environment's pods.
func Service(env *kapsav1alpha1.Environment) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      env.Name,
			Namespace: env.Namespace,
			Labels:    WorkloadLabels(env),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: SelectorLabels(env),
			Ports: []corev1.ServicePort{{
				Name:       PortName,
				Port:       ServicePort,
				TargetPort: intstr.FromString(PortName),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}
}

// HorizontalPodAutoscaler returns the CPU based autoscaler of an Environment.
// Callers only build it when autoscaling is enabled.
func HorizontalPodAutoscaler(env *kapsav1alpha1.Environment) *autoscalingv2.HorizontalPodAutoscaler {
	as := kapsav1alpha1.AutoscalingSpec{}
	if env.Spec.Runtime.Autoscaling != nil {
		as = *env.Spec.Runtime.Autoscaling
	}
	return &autoscalingv2.HorizontalPodAutoscaler{
		ObjectMeta: metav1.ObjectMeta{
			Name:      env.Name,
			Namespace: env.Namespace,
			Labels:    WorkloadLabels(env),
		},
		Spec: autoscalingv2.HorizontalPodAutoscalerSpec{
			ScaleTargetRef: autoscalingv2.CrossVersionObjectReference{
				APIVersion: appsv1.SchemeGroupVersion.String(),
				Kind:       "Deployment",
				Name:       env.Name,
			},
			MinReplicas: ptr.To(as.EffectiveMinReplicas()),
			MaxReplicas: as.EffectiveMaxReplicas(),
			Metrics: []autoscalingv2.MetricSpec{{
				Type: autoscalingv2.ResourceMetricSourceType,
				Resource: &autoscalingv2.ResourceMetricSource{
					Name: corev1.ResourceCPU,
					Target: autoscalingv2.MetricTarget{
						Type:               autoscalingv2.UtilizationMetricType,
						AverageUtilization: ptr.To(as.EffectiveTargetCPUUtilization()),
					},
				},
			}},
		},
	}
}
