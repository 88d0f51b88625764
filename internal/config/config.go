// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

// Package config resolves operator settings from defaults, an optional YAML file,
// KAPSA_* environment variables and command-line flags, in that order of precedence.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/yaml"
)

// EnvPrefix prefixes every environment variable read by the operator.
const EnvPrefix = "KAPSA_"

// Config holds the resolved operator settings.
type Config struct {
	ConfigFile string

	MetricsAddr       string
	ProbeAddr         string
	SecureMetrics     bool
	EnableHTTP2       bool
	LeaderElect       bool
	OperatorNamespace string

	LogLevel  string
	LogFormat string

	DefaultPollInterval     time.Duration
	IdleWindow              time.Duration
	MaxPollInterval         time.Duration
	ReconcileTimeout        time.Duration
	MaxConcurrentReconciles int
	BackoffBase             time.Duration
	BackoffMax              time.Duration
	SyncPeriod              time.Duration

	DefaultBuilder  string
	DefaultRevision string

	CloudflareAPIBaseURL string

	owned map[string]struct{}
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		MetricsAddr:             ":8080",
		ProbeAddr:               ":8081",
		SecureMetrics:           false,
		LeaderElect:             true,
		OperatorNamespace:       "kapsa-system",
		LogFormat:               "console",
		DefaultPollInterval:     300 * time.Second,
		IdleWindow:              60 * time.Second,
		MaxPollInterval:         time.Hour,
		ReconcileTimeout:        600 * time.Second,
		MaxConcurrentReconciles: 4,
		BackoffBase:             time.Second,
		BackoffMax:              5 * time.Minute,
		SyncPeriod:              10 * time.Minute,
		DefaultBuilder:          "default",
		DefaultRevision:         "main",
	}
}

// BindFlags registers the operator flags on fs, using the current values as defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	c.owned = map[string]struct{}{}
	str := func(p *string, name, usage string) {
		fs.StringVar(p, name, *p, usage)
		c.owned[name] = struct{}{}
	}
	boolean := func(p *bool, name, usage string) {
		fs.BoolVar(p, name, *p, usage)
		c.owned[name] = struct{}{}
	}
	dur := func(p *time.Duration, name, usage string) {
		fs.DurationVar(p, name, *p, usage)
		c.owned[name] = struct{}{}
	}

	str(&c.ConfigFile, "config", "Path to a YAML file with operator settings.")
	str(&c.MetricsAddr, "metrics-bind-address", "The address the metrics endpoint binds to. Use 0 to disable the metrics service.")
	str(&c.ProbeAddr, "health-probe-bind-address", "The address the probe endpoint binds to.")
	boolean(&c.SecureMetrics, "metrics-secure", "If set, the metrics endpoint is served securely via HTTPS.")
	boolean(&c.EnableHTTP2, "enable-http2", "If set, HTTP/2 will be enabled for the metrics and webhook servers.")
	boolean(&c.LeaderElect, "leader-elect", "Enable leader election for controller manager.")
	str(&c.OperatorNamespace, "operator-namespace", "Namespace the operator runs in; used for leader election.")
	dur(&c.DefaultPollInterval, "default-poll-interval", "Resync interval for Projects without spec.repository.pollInterval.")
	dur(&c.IdleWindow, "idle-window", "Idle time after which the resync interval starts widening.")
	dur(&c.MaxPollInterval, "max-poll-interval", "Upper bound for the widened resync interval.")
	dur(&c.ReconcileTimeout, "reconcile-timeout", "Execution budget of one reconciliation attempt.")
	fs.IntVar(&c.MaxConcurrentReconciles, "max-concurrent-reconciles", c.MaxConcurrentReconciles,
		"Maximum number of concurrent reconciliations per resource kind.")
	c.owned["max-concurrent-reconciles"] = struct{}{}
	dur(&c.BackoffBase, "backoff-base", "Initial retry delay after a failed reconciliation.")
	dur(&c.BackoffMax, "backoff-max", "Maximum retry delay after repeated failures.")
	dur(&c.SyncPeriod, "sync-period", "Interval of full informer resyncs.")
	str(&c.DefaultBuilder, "default-builder", "kpack ClusterBuilder used when a Project declares none.")
	str(&c.DefaultRevision, "default-revision", "Git revision built when a Project declares none.")
	str(&c.CloudflareAPIBaseURL, "cloudflare-api-base-url", "Override of the Cloudflare API base URL.")
}

// Complete layers the config file and environment under any flags set explicitly on fs,
// then validates the result.
func (c *Config) Complete(fs *flag.FlagSet, lookupEnv func(string) (string, bool)) error {
	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		if _, ok := c.owned[f.Name]; ok {
			explicit[f.Name] = f.Value.String()
		}
	})

	configFile := c.ConfigFile
	owned := c.owned
	*c = *Default()
	c.ConfigFile = configFile
	c.owned = owned

	if c.ConfigFile != "" {
		if err := c.LoadFile(c.ConfigFile); err != nil {
			return err
		}
	}
	if err := c.ApplyEnv(lookupEnv); err != nil {
		return err
	}
	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("failed to re-apply flag --%s: %w", name, err)
		}
	}
	return c.Validate()
}

// fileConfig is the on-disk representation of Config.
type fileConfig struct {
	MetricsAddr             *string          `json:"metricsBindAddress,omitempty"`
	ProbeAddr               *string          `json:"healthProbeBindAddress,omitempty"`
	LeaderElect             *bool            `json:"leaderElect,omitempty"`
	OperatorNamespace       *string          `json:"operatorNamespace,omitempty"`
	LogLevel                *string          `json:"logLevel,omitempty"`
	LogFormat               *string          `json:"logFormat,omitempty"`
	DefaultPollInterval     *metav1.Duration `json:"defaultPollInterval,omitempty"`
	IdleWindow              *metav1.Duration `json:"idleWindow,omitempty"`
	MaxPollInterval         *metav1.Duration `json:"maxPollInterval,omitempty"`
	ReconcileTimeout        *metav1.Duration `json:"reconcileTimeout,omitempty"`
	MaxConcurrentReconciles *int             `json:"maxConcurrentReconciles,omitempty"`
	BackoffBase             *metav1.Duration `json:"backoffBase,omitempty"`
	BackoffMax              *metav1.Duration `json:"backoffMax,omitempty"`
	SyncPeriod              *metav1.Duration `json:"syncPeriod,omitempty"`
	DefaultBuilder          *string          `json:"defaultBuilder,omitempty"`
	DefaultRevision         *string          `json:"defaultRevision,omitempty"`
	CloudflareAPIBaseURL    *string          `json:"cloudflareAPIBaseURL,omitempty"`
}

// LoadFile applies the settings present in a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.UnmarshalStrict(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.MetricsAddr, fc.MetricsAddr)
	setString(&c.ProbeAddr, fc.ProbeAddr)
	setString(&c.OperatorNamespace, fc.OperatorNamespace)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.DefaultBuilder, fc.DefaultBuilder)
	setString(&c.DefaultRevision, fc.DefaultRevision)
	setString(&c.CloudflareAPIBaseURL, fc.CloudflareAPIBaseURL)
	setDuration(&c.DefaultPollInterval, fc.DefaultPollInterval)
	setDuration(&c.IdleWindow, fc.IdleWindow)
	setDuration(&c.MaxPollInterval, fc.MaxPollInterval)
	setDuration(&c.ReconcileTimeout, fc.ReconcileTimeout)
	setDuration(&c.BackoffBase, fc.BackoffBase)
	setDuration(&c.BackoffMax, fc.BackoffMax)
	setDuration(&c.SyncPeriod, fc.SyncPeriod)
	if fc.LeaderElect != nil {
		c.LeaderElect = *fc.LeaderElect
	}
	if fc.MaxConcurrentReconciles != nil {
		c.MaxConcurrentReconciles = *fc.MaxConcurrentReconciles
	}
	return nil
}

// ApplyEnv applies KAPSA_* environment variables.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool)) error {
	if lookupEnv == nil {
		return nil
	}
	get := func(key string) (string, bool) {
		v, ok := lookupEnv(EnvPrefix + key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.LogFormat = strings.ToLower(v)
	}
	if v, ok := get("NAMESPACE"); ok {
		c.OperatorNamespace = v
	}
	if v, ok := get("KPACK_BUILDER"); ok {
		c.DefaultBuilder = v
	}
	if v, ok := get("DEFAULT_REVISION"); ok {
		c.DefaultRevision = v
	}
	if v, ok := get("METRICS_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sMETRICS_PORT %q: %w", EnvPrefix, v, err)
		}
		c.MetricsAddr = fmt.Sprintf(":%d", port)
	}
	if v, ok := get("MAX_CONCURRENT_RECONCILES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_CONCURRENT_RECONCILES %q: %w", EnvPrefix, v, err)
		}
		c.MaxConcurrentReconciles = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"DEFAULT_POLL_INTERVAL", &c.DefaultPollInterval},
		{"IDLE_WINDOW", &c.IdleWindow},
		{"MAX_POLL_INTERVAL", &c.MaxPollInterval},
		{"RECONCILIATION_TIMEOUT", &c.ReconcileTimeout},
		{"BACKOFF_BASE", &c.BackoffBase},
		{"BACKOFF_MAX", &c.BackoffMax},
		{"SYNC_PERIOD", &c.SyncPeriod},
	}
	for _, d := range durations {
		v, ok := get(d.key)
		if !ok {
			continue
		}
		parsed, err := ParseSecondsOrDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, d.key, v, err)
		}
		*d.dst = parsed
	}
	return nil
}

// ParseSecondsOrDuration accepts either a bare number of seconds or a Go duration string.
func ParseSecondsOrDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate checks the resolved settings.
func (c *Config) Validate() error {
	var errs field.ErrorList
	positive := func(d time.Duration, name string) {
		if d <= 0 {
			errs = append(errs, field.Invalid(field.NewPath(name), d.String(), "must be positive"))
		}
	}
	positive(c.DefaultPollInterval, "defaultPollInterval")
	positive(c.IdleWindow, "idleWindow")
	positive(c.ReconcileTimeout, "reconcileTimeout")
	positive(c.BackoffBase, "backoffBase")
	positive(c.SyncPeriod, "syncPeriod")
	if c.MaxPollInterval < c.DefaultPollInterval {
		errs = append(errs, field.Invalid(field.NewPath("maxPollInterval"), c.MaxPollInterval.String(),
			"must not be lower than defaultPollInterval"))
	}
	if c.BackoffMax < c.BackoffBase {
		errs = append(errs, field.Invalid(field.NewPath("backoffMax"), c.BackoffMax.String(),
			"must not be lower than backoffBase"))
	}
	if c.MaxConcurrentReconciles < 1 {
		errs = append(errs, field.Invalid(field.NewPath("maxConcurrentReconciles"), c.MaxConcurrentReconciles,
			"must be at least 1"))
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		errs = append(errs, field.NotSupported(field.NewPath("logFormat"), c.LogFormat, []string{"console", "json"}))
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			errs = append(errs, field.Invalid(field.NewPath("logLevel"), c.LogLevel, err.Error()))
		}
	}
	return errs.ToAggregate()
}

// ApplyLogging adjusts zap options to the configured log format and level.
func (c *Config) ApplyLogging(opts *zap.Options) {
	if c.LogFormat == "json" {
		opts.Development = false
	}
	if c.LogLevel != "" {
		if lvl, err := zapcore.ParseLevel(c.LogLevel); err == nil {
			opts.Level = lvl
		}
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *metav1.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
