package retrieval

import "strings"

// toneSynonyms maps each tone bucket to the fixed set of lowercase
// tokens that count as a match against that bucket.
var toneSynonyms = map[string]map[string]struct{}{
	"dark": set("deep", "rich", "dark", "berry", "plum", "cocoa", "espresso", "mahogany", "fig", "ember", "vesper", "brown"),
	"medium": set("tan", "medium", "rose", "mauve", "caramel", "spice", "warm", "neutral"),
	"light": set("light", "fair", "pink", "peach", "nude", "cool", "soft"),
}

// toneInferenceHints are the substrings InferTone checks the raw query
// against, in bucket-priority order. The first bucket whose hint
// appears in the query wins.
var toneInferenceHints = []struct {
	bucket string
	hints  []string
}{
	{"dark", []string{"deep", "dark", "darker", "deeper", "rich"}},
	{"medium", []string{"tan", "medium", "olive"}},
	{"light", []string{"light", "fair", "pale"}},
}

func set(tokens ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		out[t] = struct{}{}
	}
	return out
}

// InferTone substring-matches a lowercased query against the tone
// hints, used by SearchV2 when no explicit skin tone was supplied.
func InferTone(query string) (bucket string, ok bool) {
	lowered := strings.ToLower(query)
	for _, entry := range toneInferenceHints {
		for _, hint := range entry.hints {
			if strings.Contains(lowered, hint) {
				return entry.bucket, true
			}
		}
	}
	return "", false
}

// ToneFit scores how well a product's tokens align with the requested
// tone bucket: 1.0 on any synonym intersection, 0.2 on a miss, 0.5 when
// no tone was requested at all.
func ToneFit(bucket string, tokens []string) (fit float64, matched bool) {
	if bucket == "" {
		return 0.5, false
	}
	synonyms, ok := toneSynonyms[bucket]
	if !ok {
		return 0.5, false
	}
	for _, tok := range tokens {
		if _, hit := synonyms[strings.ToLower(tok)]; hit {
			return 1.0, true
		}
	}
	return 0.2, false
}
