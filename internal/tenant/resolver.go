// Package tenant maps an inbound request's host to a tenant identity, or
// to the root context when the request targets the apex domain.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
	"github.com/justinmcgrath168/saas-dental-platform/internal/store"
)

var subdomainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// reservedSubdomains can never be claimed by a tenant; they collide with
// apex-level routing.
var reservedSubdomains = map[string]bool{
	"www":   true,
	"api":   true,
	"app":   true,
	"admin": true,
}

// ValidateSubdomain checks a candidate subdomain against the claim rules:
// lowercase alphanumeric plus hyphen, 3 to 63 characters, no leading or
// trailing hyphen, not reserved.
func ValidateSubdomain(s string) error {
	if len(s) < 3 || len(s) > 63 {
		return fmt.Errorf("subdomain must be between 3 and 63 characters")
	}
	if !subdomainRe.MatchString(s) {
		return fmt.Errorf("subdomain can only contain lowercase letters, numbers, and hyphens")
	}
	if reservedSubdomains[s] {
		return fmt.Errorf("subdomain %q is reserved", s)
	}
	return nil
}

// Resolution is the outcome of resolving a request host.
type Resolution struct {
	// Root is true when the host is the apex domain (or www): no tenant
	// context applies.
	Root bool
	// Subdomain is the candidate label that was looked up; empty for root.
	Subdomain string
	// Tenant is set when the subdomain resolved to a tenant.
	Tenant *model.Tenant
}

// Resolver classifies request hosts against the configured apex domains
// and looks candidate subdomains up in the datastore.
type Resolver struct {
	store  store.Datastore
	apexes []string
}

// NewResolver builds a resolver for the given apex domains (the production
// apex and its local-development equivalent). Apexes are matched without
// port and case-insensitively.
func NewResolver(ds store.Datastore, apexes ...string) *Resolver {
	cleaned := make([]string, 0, len(apexes))
	for _, a := range apexes {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			cleaned = append(cleaned, stripPort(a))
		}
	}
	return &Resolver{store: ds, apexes: cleaned}
}

// Resolve maps a request host to the root context or a tenant.
// An unresolvable subdomain returns autherr.ErrTenantNotFound; the caller
// recovers by redirecting to the root context.
func (r *Resolver) Resolve(ctx context.Context, host string) (*Resolution, error) {
	h := stripPort(strings.ToLower(strings.TrimSpace(host)))
	if h == "" {
		return &Resolution{Root: true}, nil
	}

	for _, apex := range r.apexes {
		if h == apex || h == "www."+apex {
			return &Resolution{Root: true}, nil
		}
	}

	candidate := h
	for _, apex := range r.apexes {
		if strings.HasSuffix(h, "."+apex) {
			candidate = strings.TrimSuffix(h, "."+apex)
			break
		}
	}
	// Leftmost label only; nested labels never form a subdomain.
	if i := strings.IndexByte(candidate, '.'); i >= 0 {
		candidate = candidate[:i]
	}
	if candidate == "" {
		return &Resolution{Root: true}, nil
	}

	t, err := r.store.FindTenantBySubdomain(ctx, candidate)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return nil, autherr.ErrTenantNotFound
		}
		return nil, err
	}
	return &Resolution{Subdomain: candidate, Tenant: t}, nil
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
