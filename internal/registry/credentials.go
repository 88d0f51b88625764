// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package registry

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	corev1 "k8s.io/api/core/v1"
)

// Credentials are the push credentials of a Registry.
type Credentials struct {
	Username string
	Password string
	// DockerConfigJSON is the .dockerconfigjson payload of pull secrets created from these credentials.
	DockerConfigJSON []byte
}

// Authenticator returns the credentials as a go-containerregistry authenticator.
func (c *Credentials) Authenticator() authn.Authenticator {
	if c == nil || (c.Username == "" && c.Password == "") {
		return authn.Anonymous
	}
	return &authn.Basic{Username: c.Username, Password: c.Password}
}

// ParseSecret parses registry credentials from a Kubernetes secret.
// Supports both Docker config format (.dockerconfigjson) and basic auth (username/password).
// Entries of a Docker config matching host are preferred.
func ParseSecret(secret *corev1.Secret, host string) (*Credentials, error) {
	if dockerConfigJSON, ok := secret.Data[corev1.DockerConfigJsonKey]; ok {
		username, password, err := parseDockerConfig(dockerConfigJSON, host)
		if err != nil {
			return nil, err
		}
		return &Credentials{Username: username, Password: password, DockerConfigJSON: dockerConfigJSON}, nil
	}

	username := string(secret.Data["username"])
	password := string(secret.Data["password"])
	if username == "" || password == "" {
		return nil, errors.New("secret must contain .dockerconfigjson or username/password")
	}

	cfg, err := BuildDockerConfig(host, username, password)
	if err != nil {
		return nil, err
	}
	return &Credentials{Username: username, Password: password, DockerConfigJSON: cfg}, nil
}

// dockerConfig represents the Docker config.json format.
type dockerConfig struct {
	Auths map[string]dockerAuthEntry `json:"auths"`
}

type dockerAuthEntry struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Auth     string `json:"auth,omitempty"`
}

// BuildDockerConfig renders a .dockerconfigjson payload holding one entry for host.
func BuildDockerConfig(host, username, password string) ([]byte, error) {
	cfg := dockerConfig{Auths: map[string]dockerAuthEntry{
		host: {
			Username: username,
			Password: password,
			Auth:     base64.StdEncoding.EncodeToString([]byte(username + ":" + password)),
		},
	}}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode docker config: %w", err)
	}
	return data, nil
}

func parseDockerConfig(data []byte, host string) (string, string, error) {
	var config dockerConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return "", "", fmt.Errorf("parse docker config: %w", err)
	}

	keys := make([]string, 0, len(config.Auths))
	for k := range config.Auths {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		mi, mj := matchesHost(keys[i], host), matchesHost(keys[j], host)
		if mi != mj {
			return mi
		}
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		entry := config.Auths[k]
		if entry.Auth != "" {
			decoded, err := base64.StdEncoding.DecodeString(entry.Auth)
			if err != nil {
				return "", "", fmt.Errorf("decode auth string: %w", err)
			}
			username, password, ok := strings.Cut(string(decoded), ":")
			if !ok {
				return "", "", errors.New("invalid auth string format")
			}
			return username, password, nil
		}
		if entry.Username != "" && entry.Password != "" {
			return entry.Username, entry.Password, nil
		}
	}

	return "", "", errors.New("no valid auth entries found in docker config")
}

// matchesHost compares a docker config key such as "https://harbor.example.com/v2/" with a bare host.
func matchesHost(key, host string) bool {
	if host == "" {
		return false
	}
	key = strings.TrimPrefix(strings.TrimPrefix(key, "https://"), "http://")
	key, _, _ = strings.Cut(key, "/")
	return strings.EqualFold(key, host)
}
