package retrieval

import "testing"

func TestInferTone(t *testing.T) {
	tests := []struct {
		query      string
		wantBucket string
		wantOK     bool
	}{
		{"deep matte lipstick", "dark", true},
		{"tan foundation", "medium", true},
		{"light fair concealer", "light", true},
		{"blue sneakers", "", false},
	}

	for _, tt := range tests {
		bucket, ok := InferTone(tt.query)
		if bucket != tt.wantBucket || ok != tt.wantOK {
			t.Errorf("InferTone(%q) = %q, %v, want %q, %v", tt.query, bucket, ok, tt.wantBucket, tt.wantOK)
		}
	}
}

func TestToneFit(t *testing.T) {
	tests := []struct {
		name      string
		bucket    string
		tokens    []string
		wantFit   float64
		wantMatch bool
	}{
		{"no tone requested", "", []string{"espresso"}, 0.5, false},
		{"matching synonym", "dark", []string{"espresso", "shirt"}, 1.0, true},
		{"no match", "dark", []string{"pink", "soft"}, 0.2, false},
	}

	for _, tt := range tests {
		fit, match := ToneFit(tt.bucket, tt.tokens)
		if fit != tt.wantFit || match != tt.wantMatch {
			t.Errorf("%s: ToneFit() = %v, %v, want %v, %v", tt.name, fit, match, tt.wantFit, tt.wantMatch)
		}
	}
}
