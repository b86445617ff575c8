package catalog

import "strings"

// productOnlyPredicate excludes non-product pages (collection pages,
// standalone blog/article rows) that an indexer may have swept in
// alongside real products. is_catalog_product is authoritative when the
// indexer set it; only when it's null does the URL/variants heuristic
// decide.
const productOnlyPredicate = `(
  case
    when is_catalog_product is not null then is_catalog_product
    else (
      lower(url) like '%/products/%'
      or lower(url) like '%/product/%'
      or (
        jsonb_typeof(data->'variants') = 'array'
        and jsonb_array_length(data->'variants') > 0
      )
    )
  end
)`

// NormalizeOptions is the exported form of normalizeOptions, used by
// internal/basket for variant option matching at add-to-basket time.
func NormalizeOptions(options map[string]string) map[string]string {
	return normalizeOptions(options)
}

// VariantMatchesOptions is the exported form of variantMatchesOptions,
// used by internal/basket for variant resolution.
func VariantMatchesOptions(variantOptions, required map[string]string) bool {
	return variantMatchesOptions(variantOptions, required)
}

// normalizeOptions lowercases and trims option keys/values, dropping any
// pair where either side is blank after trimming.
func normalizeOptions(options map[string]string) map[string]string {
	if len(options) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(options))
	for k, v := range options {
		key := strings.ToLower(strings.TrimSpace(k))
		val := strings.ToLower(strings.TrimSpace(v))
		if key != "" && val != "" {
			out[key] = val
		}
	}
	return out
}

// variantMatchesOptions reports whether variant satisfies every
// required option pair (case-insensitive). An empty required set always
// matches.
func variantMatchesOptions(variantOptions, required map[string]string) bool {
	normalizedVariant := normalizeOptions(variantOptions)
	for k, v := range normalizeOptions(required) {
		if normalizedVariant[k] != v {
			return false
		}
	}
	return true
}
