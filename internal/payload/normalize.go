// Package payload normalizes Go values into the wire-canonical shape
// expected by MCP tool responses: prices as integer cents, availability
// as booleans, no null leaves, and array-shaped keys that are never null.
package payload

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// arrayKeyHints names keys whose value must serialize as [] rather than
// being omitted when empty or nil.
var arrayKeyHints = map[string]struct{}{
	"products":      {},
	"results":       {},
	"variants":      {},
	"tags":          {},
	"images":        {},
	"top_tags":      {},
	"product_types": {},
	"options":       {},
	"values":        {},
}

const omitMarker = "\x00omit\x00"

// Format walks payload and returns a value safe to hand to the MCP SDK's
// JSON encoder: every "price"-ish key becomes integer cents, every
// "available"/"availability"-ish key becomes a bool, nil leaves are
// dropped unless their key is array-shaped, and any extraArrayKeys are
// folded into the hint set for this call only.
func Format(v any, extraArrayKeys ...string) any {
	hints := arrayKeyHints
	if len(extraArrayKeys) > 0 {
		hints = make(map[string]struct{}, len(arrayKeyHints)+len(extraArrayKeys))
		for k := range arrayKeyHints {
			hints[k] = struct{}{}
		}
		for _, k := range extraArrayKeys {
			hints[k] = struct{}{}
		}
	}

	normalized := normalize(toPlain(v), "", hints)
	if normalized == omitMarker {
		return map[string]any{}
	}
	return normalized
}

// toPlain coerces map-ish wire payloads into a concrete map[string]any so
// normalize doesn't need to special-case every map variant.
func toPlain(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case json.RawMessage:
		var out any
		if err := json.Unmarshal(val, &out); err == nil {
			return out
		}
		return nil
	default:
		return v
	}
}

func normalize(v any, key string, arrayKeys map[string]struct{}) any {
	if v == nil {
		if _, ok := arrayKeys[key]; ok {
			return []any{}
		}
		return omitMarker
	}

	lowered := strings.ToLower(key)
	if key != "" {
		if strings.Contains(lowered, "price") {
			v = priceToCents(v, lowered)
		}
		if strings.Contains(lowered, "available") || strings.Contains(lowered, "availability") {
			v = toBool(v)
		}
	}

	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for childKey, childVal := range val {
			normalized := normalize(toPlain(childVal), childKey, arrayKeys)
			if normalized == omitMarker {
				if _, ok := arrayKeys[childKey]; ok {
					out[childKey] = []any{}
				}
				continue
			}
			out[childKey] = normalized
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			normalized := normalize(toPlain(item), "", arrayKeys)
			if normalized == omitMarker {
				continue
			}
			out = append(out, normalized)
		}
		return out
	case decimal.Decimal:
		f, _ := val.Float64()
		return f
	default:
		return v
	}
}

// priceToCents coerces a price-ish value into integer cents. Keys that
// already say "cents" are taken as already-integral; otherwise floats,
// decimals and strings with a decimal point are taken as major units and
// multiplied by 100, while integers and strings without a decimal point
// pass through unscaled.
func priceToCents(v any, loweredKey string) any {
	isCents := strings.Contains(loweredKey, "cents")

	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}
		return 0
	case int:
		return int64(val)
	case int64:
		return val
	case float64:
		if isCents {
			return decimal.NewFromFloat(val).Round(0).IntPart()
		}
		return decimal.NewFromFloat(val).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	case decimal.Decimal:
		if isCents {
			return val.Round(0).IntPart()
		}
		return val.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	case string:
		stripped := strings.ReplaceAll(strings.TrimSpace(val), ",", "")
		if stripped == "" {
			return val
		}
		parsed, err := decimal.NewFromString(stripped)
		if err != nil {
			return val
		}
		if isCents {
			return parsed.Round(0).IntPart()
		}
		if strings.Contains(stripped, ".") {
			return parsed.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		}
		return parsed.IntPart()
	default:
		return v
	}
}

// toBool coerces common truthy/falsy availability spellings into a bool.
func toBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case decimal.Decimal:
		return !val.IsZero()
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "t", "1", "yes", "y", "available", "in stock", "in_stock":
			return true
		case "false", "f", "0", "no", "n", "unavailable", "out of stock", "out_of_stock":
			return false
		}
		return val != ""
	default:
		return v != nil
	}
}
