// Package catalog holds the provider classification catalog: for each known
// registrar/DNS/hosting/email/CA provider, a declarative rule tree that
// detects it from observed facts. The catalog is loaded from storage once per
// process and evaluated on every domain lookup.
package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"domainstack/internal/rules"
	"domainstack/pkg/domain"
	"domainstack/pkg/logger"
	"domainstack/pkg/storage"
)

// entry is one catalog row with its parsed rule.
type entry struct {
	id   string
	name string
	rule rules.Rule
}

// Catalog classifies providers by evaluating rule trees against facts.
// Entries are grouped by category; within a category, the first matching
// entry in catalog order wins.
type Catalog struct {
	byCategory map[domain.ProviderCategory][]entry
	names      map[string]string
}

// Load reads all providers from storage and parses their rules. Entries with
// malformed rules are dropped with a warning rather than failing the load; a
// missing provider only costs classification coverage.
func Load(ctx context.Context, strg storage.ProviderStorage) (*Catalog, error) {
	providers, err := strg.Providers(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load provider catalog: %w", err)
	}

	return New(ctx, providers), nil
}

// New builds a catalog from the given entries.
func New(ctx context.Context, providers []domain.Provider) *Catalog {
	c := &Catalog{
		byCategory: make(map[domain.ProviderCategory][]entry),
		names:      make(map[string]string, len(providers)),
	}
	for _, p := range providers {
		rule, err := rules.Parse(p.Rule)
		if err != nil {
			logger.Warn(ctx, "dropping provider with malformed rule",
				zap.String("provider", p.ID), zap.Error(err))

			continue
		}
		c.byCategory[p.Category] = append(c.byCategory[p.Category], entry{
			id:   p.ID,
			name: p.Name,
			rule: rule,
		})
		c.names[p.ID] = p.Name
	}

	return c
}

// Classify returns the id of the first provider in the category whose rule
// matches the facts, or "" when none match.
func (c *Catalog) Classify(category domain.ProviderCategory, ctx rules.Context) string {
	for _, e := range c.byCategory[category] {
		if rules.Eval(e.rule, ctx) {
			return e.id
		}
	}

	return ""
}

// Name resolves a provider id to its human-readable name for notifications.
// Unknown ids resolve to the id itself so messages stay meaningful if the
// catalog and snapshots drift.
func (c *Catalog) Name(id string) string {
	if name, ok := c.names[id]; ok {
		return name
	}

	return id
}
