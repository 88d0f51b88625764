// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const metricPrefix = "kapsa_"

var (
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "reconcile_total",
			Help: "Total number of reconciliation attempts by outcome.",
		},
		[]string{"kind", "namespace", "name", "result"},
	)

	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "reconcile_duration_seconds",
			Help:    "Duration of reconciliation attempts in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "namespace", "name"},
	)

	dependentOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "dependent_operations_total",
			Help: "Total number of dependent object operations by kind and operation.",
		},
		[]string{"kind", "operation"},
	)

	projectsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: metricPrefix + "projects_total",
			Help: "Number of Projects per namespace.",
		},
		[]string{"namespace"},
	)

	domainPoolDomains = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: metricPrefix + "domainpool_domains",
			Help: "Allocated and available base domains per DomainPool.",
		},
		[]string{"pool", "state"},
	)
)

func init() {
	metrics.Registry.MustRegister(Collectors()...)
}

// Collectors returns all metric collectors owned by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		reconcileTotal,
		reconcileDuration,
		dependentOperationsTotal,
		projectsTotal,
		domainPoolDomains,
	}
}
