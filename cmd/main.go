// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package main

import (
	"crypto/tls"
	"flag"
	"os"
	"path/filepath"
	"time"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/certwatcher"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/metrics/filters"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	"sigs.k8s.io/controller-runtime/pkg/webhook"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	kapsav1alpha1 "github.com/kapsa-project/kapsa-operator/api/v1alpha1"
	"github.com/kapsa-project/kapsa-operator/internal/config"
	"github.com/kapsa-project/kapsa-operator/internal/controller"
	"github.com/kapsa-project/kapsa-operator/internal/controller/common"
	"github.com/kapsa-project/kapsa-operator/internal/controller/domainpool"
	"github.com/kapsa-project/kapsa-operator/internal/controller/environment"
	"github.com/kapsa-project/kapsa-operator/internal/controller/project"
	"github.com/kapsa-project/kapsa-operator/internal/controller/registry"
	"github.com/kapsa-project/kapsa-operator/internal/dependent"
	"github.com/kapsa-project/kapsa-operator/internal/monitoring"
	reg "github.com/kapsa-project/kapsa-operator/internal/registry"
	webhookv1alpha1 "github.com/kapsa-project/kapsa-operator/internal/webhook/v1alpha1"
	// +kubebuilder:scaffold:imports
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

const (
	// webhooksDisabledValue is the value of ENABLE_WEBHOOKS env var when webhooks are disabled
	webhooksDisabledValue = "false"
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))

	utilruntime.Must(kapsav1alpha1.AddToScheme(scheme))

	// Optional dependents: kpack images and Gateway API routes
	utilruntime.Must(dependent.AddKpackToScheme(scheme))
	utilruntime.Must(gatewayv1.Install(scheme))
	// +kubebuilder:scaffold:scheme
}

// nolint:gocyclo
func main() {
	var metricsCertPath, metricsCertName, metricsCertKey string
	var webhookCertPath, webhookCertName, webhookCertKey string
	var tlsOpts []func(*tls.Config)

	cfg := config.Default()
	cfg.BindFlags(flag.CommandLine)
	flag.StringVar(&webhookCertPath, "webhook-cert-path", "", "The directory that contains the webhook certificate.")
	flag.StringVar(&webhookCertName, "webhook-cert-name", "tls.crt", "The name of the webhook certificate file.")
	flag.StringVar(&webhookCertKey, "webhook-cert-key", "tls.key", "The name of the webhook key file.")
	flag.StringVar(&metricsCertPath, "metrics-cert-path", "",
		"The directory that contains the metrics server certificate.")
	flag.StringVar(&metricsCertName, "metrics-cert-name", "tls.crt", "The name of the metrics server certificate file.")
	flag.StringVar(&metricsCertKey, "metrics-cert-key", "tls.key", "The name of the metrics server key file.")
	opts := zap.Options{
		Development: true,
		TimeEncoder: zapcore.TimeEncoderOfLayout(time.RFC3339),
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	configErr := cfg.Complete(flag.CommandLine, os.LookupEnv)
	cfg.ApplyLogging(&opts)
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
	if configErr != nil {
		setupLog.Error(configErr, "invalid operator configuration")
		os.Exit(1)
	}
	if ns := os.Getenv("POD_NAMESPACE"); ns != "" && os.Getenv(config.EnvPrefix+"NAMESPACE") == "" {
		cfg.OperatorNamespace = ns
	}

	// if the enable-http2 flag is false (the default), http/2 should be disabled
	// due to its vulnerabilities. More specifically, disabling http/2 will
	// prevent from being vulnerable to the HTTP/2 Stream Cancellation and
	// Rapid Reset CVEs. For more information see:
	// - https://github.com/advisories/GHSA-qppj-fm5r-hxr3
	// - https://github.com/advisories/GHSA-4374-p667-p6c8
	disableHTTP2 := func(c *tls.Config) {
		setupLog.Info("disabling http/2")
		c.NextProtos = []string{"http/1.1"}
	}

	if !cfg.EnableHTTP2 {
		tlsOpts = append(tlsOpts, disableHTTP2)
	}

	// Create watchers for metrics and webhooks certificates
	var metricsCertWatcher, webhookCertWatcher *certwatcher.CertWatcher

	// Initial webhook TLS options
	webhookTLSOpts := tlsOpts

	if len(webhookCertPath) > 0 {
		setupLog.Info("Initializing webhook certificate watcher using provided certificates",
			"webhook-cert-path", webhookCertPath, "webhook-cert-name", webhookCertName, "webhook-cert-key", webhookCertKey)

		var err error
		webhookCertWatcher, err = certwatcher.New(
			filepath.Join(webhookCertPath, webhookCertName),
			filepath.Join(webhookCertPath, webhookCertKey),
		)
		if err != nil {
			setupLog.Error(err, "Failed to initialize webhook certificate watcher")
			os.Exit(1)
		}

		webhookTLSOpts = append(webhookTLSOpts, func(c *tls.Config) {
			c.GetCertificate = webhookCertWatcher.GetCertificate
		})
	}

	webhookServer := webhook.NewServer(webhook.Options{
		TLSOpts: webhookTLSOpts,
	})

	metricsServerOptions := metricsserver.Options{
		BindAddress:   cfg.MetricsAddr,
		SecureServing: cfg.SecureMetrics,
		TLSOpts:       tlsOpts,
	}

	if cfg.SecureMetrics {
		// FilterProvider is used to protect the metrics endpoint with authn/authz.
		// The RBAC is configured in 'config/rbac/kustomization.yaml'.
		metricsServerOptions.FilterProvider = filters.WithAuthenticationAndAuthorization
	}

	if len(metricsCertPath) > 0 {
		setupLog.Info("Initializing metrics certificate watcher using provided certificates",
			"metrics-cert-path", metricsCertPath, "metrics-cert-name", metricsCertName, "metrics-cert-key", metricsCertKey)

		var err error
		metricsCertWatcher, err = certwatcher.New(
			filepath.Join(metricsCertPath, metricsCertName),
			filepath.Join(metricsCertPath, metricsCertKey),
		)
		if err != nil {
			setupLog.Error(err, "to initialize metrics certificate watcher", "error", err)
			os.Exit(1)
		}

		metricsServerOptions.TLSOpts = append(metricsServerOptions.TLSOpts, func(c *tls.Config) {
			c.GetCertificate = metricsCertWatcher.GetCertificate
		})
	}

	restConfig := ctrl.GetConfigOrDie()
	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme:                  scheme,
		Metrics:                 metricsServerOptions,
		WebhookServer:           webhookServer,
		HealthProbeBindAddress:  cfg.ProbeAddr,
		Cache:                   cache.Options{SyncPeriod: &cfg.SyncPeriod},
		LeaderElection:          cfg.LeaderElect,
		LeaderElectionID:        "5c2a9e41.kapsa-project.io",
		LeaderElectionNamespace: cfg.OperatorNamespace,
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	checker, err := controller.NewCRDChecker(restConfig)
	if err != nil {
		setupLog.Error(err, "unable to create API discovery client")
		os.Exit(1)
	}
	apis := checker.Probe()
	setupLog.Info("optional APIs", "kpack", apis.Kpack, "httpRoute", apis.HTTPRoute, "certManager", apis.CertManager)
	if !apis.Kpack {
		setupLog.Info("kpack is not installed; Projects will report BuildSystemUnavailable")
	}

	metrics := monitoring.PrometheusRecorder{}
	schedule := common.Schedule{
		Base:       cfg.DefaultPollInterval,
		IdleWindow: cfg.IdleWindow,
		Max:        cfg.MaxPollInterval,
	}

	table := controller.NewDispatchTable()
	registrations := []controller.Registration{
		(&registry.Reconciler{
			Client:   mgr.GetClient(),
			Scheme:   mgr.GetScheme(),
			Recorder: mgr.GetEventRecorderFor("registry-controller"),
			Metrics:  metrics,
			Prober:   reg.RemoteProber{},
			Timeout:  cfg.ReconcileTimeout,
		}).Engine(),
		(&domainpool.Reconciler{
			Client:   mgr.GetClient(),
			Scheme:   mgr.GetScheme(),
			Recorder: mgr.GetEventRecorderFor("domainpool-controller"),
			Metrics:  metrics,
			DNS: common.NewDNSClientFactory(mgr.GetClient(), ctrl.Log.WithName("domainpool"),
				nil, cfg.CloudflareAPIBaseURL),
			Timeout: cfg.ReconcileTimeout,
		}).Engine(),
		(&project.Reconciler{
			Client:          mgr.GetClient(),
			Scheme:          mgr.GetScheme(),
			Recorder:        mgr.GetEventRecorderFor("project-controller"),
			Metrics:         metrics,
			APIs:            apis,
			Schedule:        schedule,
			DefaultBuilder:  cfg.DefaultBuilder,
			DefaultRevision: cfg.DefaultRevision,
			Timeout:         cfg.ReconcileTimeout,
		}).Engine(),
		(&environment.Reconciler{
			Client:   mgr.GetClient(),
			Scheme:   mgr.GetScheme(),
			Recorder: mgr.GetEventRecorderFor("environment-controller"),
			Metrics:  metrics,
			APIs:     apis,
			Schedule: schedule,
			Timeout:  cfg.ReconcileTimeout,
		}).Engine(),
	}
	for _, r := range registrations {
		if err := table.Register(r); err != nil {
			setupLog.Error(err, "unable to register handlers")
			os.Exit(1)
		}
	}
	for _, route := range table.Routes() {
		setupLog.V(1).Info("registered handler", "route", route.String())
	}
	if err := table.SetupWithManager(mgr, controller.ControllerOptions{
		MaxConcurrentReconciles: cfg.MaxConcurrentReconciles,
		BackoffBase:             cfg.BackoffBase,
		BackoffMax:              cfg.BackoffMax,
	}); err != nil {
		setupLog.Error(err, "unable to create controllers")
		os.Exit(1)
	}

	if os.Getenv("ENABLE_WEBHOOKS") != webhooksDisabledValue {
		if err := webhookv1alpha1.SetupWithManager(mgr); err != nil {
			setupLog.Error(err, "unable to create webhooks")
			os.Exit(1)
		}
	}
	// +kubebuilder:scaffold:builder

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager", "namespace", cfg.OperatorNamespace, "kinds", table.Kinds())
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}
