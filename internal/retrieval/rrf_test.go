package retrieval

import (
	"testing"

	"github.com/potatoman03/shopmcp/internal/catalog"
)

func TestFuse_CombinesRankings(t *testing.T) {
	lexical := []catalog.RankedCandidate{{ProductID: "a", Rank: 1}, {ProductID: "b", Rank: 2}}
	vector := []catalog.RankedCandidate{{ProductID: "b", Rank: 1}, {ProductID: "a", Rank: 2}}

	got := Fuse([][]catalog.RankedCandidate{lexical, vector}, 10)

	if len(got) != 2 {
		t.Fatalf("expected 2 fused results, got %d", len(got))
	}
	// a and b should tie (symmetric ranks), broken by product_id ascending.
	if got[0].ProductID != "a" || got[1].ProductID != "b" {
		t.Errorf("Fuse() = %+v, want a before b on tie", got)
	}
}

func TestFuse_HigherRankWinsWhenNotTied(t *testing.T) {
	lexical := []catalog.RankedCandidate{{ProductID: "x", Rank: 1}, {ProductID: "y", Rank: 5}}

	got := Fuse([][]catalog.RankedCandidate{lexical}, 10)

	if got[0].ProductID != "x" {
		t.Errorf("expected x (rank 1) to score higher than y (rank 5), got %+v", got)
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("score should strictly decrease with rank: %+v", got)
	}
}

func TestFuse_LimitTruncates(t *testing.T) {
	lexical := []catalog.RankedCandidate{
		{ProductID: "a", Rank: 1}, {ProductID: "b", Rank: 2}, {ProductID: "c", Rank: 3},
	}

	got := Fuse([][]catalog.RankedCandidate{lexical}, 2)

	if len(got) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(got))
	}
}

func TestFuse_Deterministic(t *testing.T) {
	lexical := []catalog.RankedCandidate{{ProductID: "p1", Rank: 3}, {ProductID: "p2", Rank: 1}}
	vector := []catalog.RankedCandidate{{ProductID: "p1", Rank: 1}, {ProductID: "p2", Rank: 3}}

	first := Fuse([][]catalog.RankedCandidate{lexical, vector}, 10)
	second := Fuse([][]catalog.RankedCandidate{lexical, vector}, 10)

	if len(first) != len(second) {
		t.Fatal("Fuse should be deterministic across calls")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Fuse() not deterministic at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}
