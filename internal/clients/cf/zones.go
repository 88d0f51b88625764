// SPDX-License-Identifier: Apache-2.0
// Copyright 2025-2026 The Kapsa Operator Authors

package cf

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudflare/cloudflare-go"
	"github.com/go-logr/logr"
)

// Zone is a Cloudflare DNS zone.
type Zone struct {
	ID     string
	Name   string
	Status string
}

//go:generate mockgen -destination=mock/mock_zones.go -package=mock github.com/kapsa-project/kapsa-operator/internal/clients/cf ZoneLookup

// ZoneLookup finds the Cloudflare zone serving a domain.
type ZoneLookup interface {
	// FindZone returns the zone that is authoritative for domain, walking up
	// its labels until a zone is found. It returns ErrZoneNotFound when no
	// parent of domain is a zone in the account.
	FindZone(ctx context.Context, domain string) (*Zone, error)
}

// API looks up zones through the Cloudflare v4 API.
type API struct {
	Log              logr.Logger
	CloudflareClient *cloudflare.API
}

var _ ZoneLookup = &API{}

// FindZone implements ZoneLookup.
func (c *API) FindZone(ctx context.Context, domain string) (*Zone, error) {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return nil, fmt.Errorf("domain cannot be empty")
	}

	for _, candidate := range zoneCandidates(domain) {
		zones, err := c.CloudflareClient.ListZones(ctx, candidate)
		if err != nil {
			if IsNotFoundError(err) {
				continue
			}
			c.Log.Error(err, "error listing zones", "zone", candidate)
			return nil, NewAPIError("list zones", candidate, err)
		}
		for _, z := range zones {
			if strings.EqualFold(z.Name, candidate) {
				return &Zone{ID: z.ID, Name: z.Name, Status: z.Status}, nil
			}
		}
	}
	return nil, WrapNotFound(domain, ErrZoneNotFound)
}

// zoneCandidates lists domain and each of its parents that still has at least two labels,
// most specific first.
func zoneCandidates(domain string) []string {
	labels := strings.Split(domain, ".")
	var out []string
	for i := 0; i+2 <= len(labels); i++ {
		out = append(out, strings.Join(labels[i:], "."))
	}
	if len(out) == 0 {
		out = append(out, domain)
	}
	return out
}
