// Package tenant carries the resolved store slug through a single tool
// call via context.Context, mirroring the ContextVar-scoped request path
// of original_source/mcp-server/tools/context.py.
package tenant

import (
	"context"
	"fmt"
)

type slugKey struct{}

// WithSlug returns a derived context carrying slug for the remainder of
// a single request's call tree.
func WithSlug(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, slugKey{}, slug)
}

// Slug returns the store slug scoped onto ctx, or "" if none was set.
func Slug(ctx context.Context) string {
	slug, _ := ctx.Value(slugKey{}).(string)
	return slug
}

// RequireSlug returns the scoped slug or an error if the request path
// never set one. A missing slug at this point means a tool handler ran
// outside the dispatcher's scoping wrapper, which is a programmer error.
func RequireSlug(ctx context.Context) (string, error) {
	slug := Slug(ctx)
	if slug == "" {
		return "", fmt.Errorf("tenant: missing store slug in request context")
	}
	return slug, nil
}
