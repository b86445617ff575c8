package tenant

import (
	"context"
	"strings"

	"github.com/potatoman03/shopmcp/internal/model"
)

// SlugProber is the narrow slice of catalog.Repository the resolver
// needs, kept local so internal/tenant does not import internal/catalog.
type SlugProber interface {
	SearchHintStore(ctx context.Context, hint string) (string, bool, error)
	FuzzyHintStore(ctx context.Context, hint string) (string, bool, error)
	PreferredStore(ctx context.Context) (string, bool, error)
	FallbackStore(ctx context.Context) (string, bool, error)
}

// Resolver implements the tool dispatcher's slug-selection cascade: an
// explicit slug argument always wins, then the slug already scoped on
// ctx, then a sequence of DB-backed auto-selection tiers keyed on an
// optional query hint.
type Resolver struct {
	prober SlugProber
}

func NewResolver(prober SlugProber) *Resolver {
	return &Resolver{prober: prober}
}

// Resolve returns the store slug a tool call should operate against.
// queryHint, when non-empty, seeds the full-text/fuzzy auto-selection
// tiers; it is typically the caller's search query or product handle.
func (r *Resolver) Resolve(ctx context.Context, slugArg, queryHint string) (string, error) {
	if explicit := strings.TrimSpace(slugArg); explicit != "" {
		return explicit, nil
	}
	if scoped := Slug(ctx); strings.TrimSpace(scoped) != "" {
		return scoped, nil
	}
	return r.autoSelect(ctx, strings.TrimSpace(queryHint))
}

func (r *Resolver) autoSelect(ctx context.Context, hint string) (string, error) {
	if hint != "" {
		if slug, ok, err := r.prober.SearchHintStore(ctx, hint); err != nil {
			return "", err
		} else if ok {
			return slug, nil
		}
		if slug, ok, err := r.prober.FuzzyHintStore(ctx, hint); err != nil {
			return "", err
		} else if ok {
			return slug, nil
		}
	}

	if slug, ok, err := r.prober.PreferredStore(ctx); err != nil {
		return "", err
	} else if ok {
		return slug, nil
	}

	if slug, ok, err := r.prober.FallbackStore(ctx); err != nil {
		return "", err
	} else if ok {
		return slug, nil
	}

	return "", model.NewNoIndexedStoresError()
}
