// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kapsa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 300*time.Second, c.DefaultPollInterval)
	assert.Equal(t, 60*time.Second, c.IdleWindow)
	assert.Equal(t, 600*time.Second, c.ReconcileTimeout)
	assert.Equal(t, "kapsa-system", c.OperatorNamespace)
	assert.Equal(t, ":8080", c.MetricsAddr)
	assert.Equal(t, "default", c.DefaultBuilder)
	assert.Equal(t, "main", c.DefaultRevision)
	assert.NoError(t, c.Validate())
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, c *Config)
		wantErr bool
	}{
		{
			name: "seconds and durations",
			env: map[string]string{
				"KAPSA_DEFAULT_POLL_INTERVAL":  "120",
				"KAPSA_RECONCILIATION_TIMEOUT": "2m",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 120*time.Second, c.DefaultPollInterval)
				assert.Equal(t, 2*time.Minute, c.ReconcileTimeout)
			},
		},
		{
			name: "metrics port and namespace",
			env:  map[string]string{"KAPSA_METRICS_PORT": "9090", "KAPSA_NAMESPACE": "platform"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, ":9090", c.MetricsAddr)
				assert.Equal(t, "platform", c.OperatorNamespace)
			},
		},
		{
			name: "log settings are lower-cased",
			env:  map[string]string{"KAPSA_LOG_LEVEL": "DEBUG", "KAPSA_LOG_FORMAT": "JSON"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "debug", c.LogLevel)
				assert.Equal(t, "json", c.LogFormat)
			},
		},
		{
			name: "empty values are ignored",
			env:  map[string]string{"KAPSA_NAMESPACE": "  "},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "kapsa-system", c.OperatorNamespace)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"KAPSA_METRICS_PORT": "http"},
			wantErr: true,
		},
		{
			name:    "invalid duration",
			env:     map[string]string{"KAPSA_IDLE_WINDOW": "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			err := c.ApplyEnv(envFrom(tt.env))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
defaultPollInterval: 90s
maxConcurrentReconciles: 8
leaderElect: false
defaultBuilder: paketo
`)
	c := Default()
	require.NoError(t, c.LoadFile(path))
	assert.Equal(t, 90*time.Second, c.DefaultPollInterval)
	assert.Equal(t, 8, c.MaxConcurrentReconciles)
	assert.False(t, c.LeaderElect)
	assert.Equal(t, "paketo", c.DefaultBuilder)
	assert.Equal(t, 600*time.Second, c.ReconcileTimeout)
}

func TestLoadFile_UnknownField(t *testing.T) {
	path := writeFile(t, "pollEvery: 5m\n")
	assert.Error(t, Default().LoadFile(path))
}

func TestComplete_Precedence(t *testing.T) {
	path := writeFile(t, `
defaultPollInterval: 90s
reconcileTimeout: 5m
idleWindow: 2m
`)
	c := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path, "--default-poll-interval", "30s"}))

	require.NoError(t, c.Complete(fs, envFrom(map[string]string{
		"KAPSA_RECONCILIATION_TIMEOUT": "120",
		"KAPSA_DEFAULT_POLL_INTERVAL":  "45",
	})))

	assert.Equal(t, 30*time.Second, c.DefaultPollInterval, "flag wins over env and file")
	assert.Equal(t, 2*time.Minute, c.ReconcileTimeout, "env wins over file")
	assert.Equal(t, 2*time.Minute, c.IdleWindow, "file wins over default")
	assert.Equal(t, path, c.ConfigFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero timeout", func(c *Config) { c.ReconcileTimeout = 0 }},
		{"max below default poll", func(c *Config) { c.MaxPollInterval = time.Second }},
		{"backoff max below base", func(c *Config) { c.BackoffMax = time.Millisecond }},
		{"no workers", func(c *Config) { c.MaxConcurrentReconciles = 0 }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestApplyLogging(t *testing.T) {
	c := Default()
	c.LogFormat = "json"
	c.LogLevel = "debug"

	opts := zap.Options{Development: true}
	c.ApplyLogging(&opts)

	assert.False(t, opts.Development)
	assert.Equal(t, zapcore.DebugLevel, opts.Level)
}
