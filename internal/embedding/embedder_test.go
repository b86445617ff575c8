package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/potatoman03/shopmcp/internal/cache"
)

func TestNew_EmptyAPIKeyDisablesEmbedder(t *testing.T) {
	e := New("", nil)

	if e.Enabled() {
		t.Error("Enabled() should be false with no API key")
	}
}

func TestNew_WithAPIKeyEnablesEmbedder(t *testing.T) {
	e := New("sk-test", nil)

	if !e.Enabled() {
		t.Error("Enabled() should be true with an API key")
	}
}

func TestEmbed_DisabledReturnsError(t *testing.T) {
	e := New("", nil)

	_, err := e.Embed(context.Background(), "red shirt")
	if err == nil {
		t.Fatal("expected error when embedder is disabled")
	}
}

func TestEmbed_EmptyQueryReturnsError(t *testing.T) {
	e := New("sk-test", nil)

	_, err := e.Embed(context.Background(), "   ")
	if err == nil {
		t.Fatal("expected error for blank query")
	}
}

func TestEmbed_CacheHitSkipsClient(t *testing.T) {
	c := cache.New[string, []float32](10, time.Minute)
	e := New("sk-test", c)

	want := []float32{0.1, 0.2, 0.3}
	c.Set("red shirt", want)

	got, err := e.Embed(context.Background(), "Red Shirt")
	if err != nil {
		t.Fatalf("Embed() error = %v, want nil (cache hit)", err)
	}
	if len(got) != len(want) {
		t.Errorf("Embed() = %v, want %v", got, want)
	}
}
