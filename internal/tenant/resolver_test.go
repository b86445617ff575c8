package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/potatoman03/shopmcp/internal/model"
)

type fakeProber struct {
	searchSlug, fuzzySlug, preferredSlug, fallbackSlug string
	searchOK, fuzzyOK, preferredOK, fallbackOK         bool
	err                                                error
}

func (f *fakeProber) SearchHintStore(ctx context.Context, hint string) (string, bool, error) {
	return f.searchSlug, f.searchOK, f.err
}
func (f *fakeProber) FuzzyHintStore(ctx context.Context, hint string) (string, bool, error) {
	return f.fuzzySlug, f.fuzzyOK, f.err
}
func (f *fakeProber) PreferredStore(ctx context.Context) (string, bool, error) {
	return f.preferredSlug, f.preferredOK, f.err
}
func (f *fakeProber) FallbackStore(ctx context.Context) (string, bool, error) {
	return f.fallbackSlug, f.fallbackOK, f.err
}

func TestResolve_ExplicitSlugWins(t *testing.T) {
	r := NewResolver(&fakeProber{})

	got, err := r.Resolve(context.Background(), "explicit-store", "red shirt")
	if err != nil || got != "explicit-store" {
		t.Fatalf("Resolve() = %q, %v, want explicit-store, nil", got, err)
	}
}

func TestResolve_ScopedSlugWinsOverAutoSelect(t *testing.T) {
	r := NewResolver(&fakeProber{})
	ctx := WithSlug(context.Background(), "scoped-store")

	got, err := r.Resolve(ctx, "", "red shirt")
	if err != nil || got != "scoped-store" {
		t.Fatalf("Resolve() = %q, %v, want scoped-store, nil", got, err)
	}
}

func TestResolve_SearchHintTier(t *testing.T) {
	r := NewResolver(&fakeProber{searchSlug: "matched-by-search", searchOK: true})

	got, err := r.Resolve(context.Background(), "", "red shirt")
	if err != nil || got != "matched-by-search" {
		t.Fatalf("Resolve() = %q, %v, want matched-by-search, nil", got, err)
	}
}

func TestResolve_FuzzyHintTier(t *testing.T) {
	r := NewResolver(&fakeProber{fuzzySlug: "matched-by-fuzzy", fuzzyOK: true})

	got, err := r.Resolve(context.Background(), "", "redshrt")
	if err != nil || got != "matched-by-fuzzy" {
		t.Fatalf("Resolve() = %q, %v, want matched-by-fuzzy, nil", got, err)
	}
}

func TestResolve_PreferredStoreTier(t *testing.T) {
	r := NewResolver(&fakeProber{preferredSlug: "richest-store", preferredOK: true})

	got, err := r.Resolve(context.Background(), "", "")
	if err != nil || got != "richest-store" {
		t.Fatalf("Resolve() = %q, %v, want richest-store, nil", got, err)
	}
}

func TestResolve_FallbackStoreTier(t *testing.T) {
	r := NewResolver(&fakeProber{fallbackSlug: "last-resort", fallbackOK: true})

	got, err := r.Resolve(context.Background(), "", "")
	if err != nil || got != "last-resort" {
		t.Fatalf("Resolve() = %q, %v, want last-resort, nil", got, err)
	}
}

func TestResolve_NoIndexedStores(t *testing.T) {
	r := NewResolver(&fakeProber{})

	_, err := r.Resolve(context.Background(), "", "")
	if !errors.Is(err, model.ErrNoIndexedStores) {
		t.Fatalf("expected ErrNoIndexedStores, got %v", err)
	}
}

func TestResolve_ProberErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewResolver(&fakeProber{err: boom})

	_, err := r.Resolve(context.Background(), "", "red shirt")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped prober error, got %v", err)
	}
}
