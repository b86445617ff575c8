package payload

import (
	"reflect"
	"testing"
)

func TestFormat_PriceToCents(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want any
	}{
		{"float dollars", map[string]any{"price": 19.99}, int64(1999)},
		{"string dollars", map[string]any{"price": "19.99"}, int64(1999)},
		{"string dollars with comma", map[string]any{"price": "1,299.00"}, int64(129900)},
		{"already cents key", map[string]any{"price_cents": 1999.0}, int64(1999)},
		{"whole dollar string no decimal", map[string]any{"price": "20"}, int64(20)},
		{"bool price", map[string]any{"price": true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.in).(map[string]any)
			for k := range tt.in {
				if !reflect.DeepEqual(got[k], tt.want) {
					t.Errorf("Format(%v)[%q] = %v (%T), want %v (%T)", tt.in, k, got[k], got[k], tt.want, tt.want)
				}
			}
		})
	}
}

func TestFormat_AvailabilityToBool(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"string true", "in stock", true},
		{"string false", "out of stock", false},
		{"string yes", "yes", true},
		{"string no", "n", false},
		{"int nonzero", 1, true},
		{"int zero", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(map[string]any{"available": tt.in}).(map[string]any)
			if got["available"] != tt.want {
				t.Errorf("available = %v, want %v", got["available"], tt.want)
			}
		})
	}
}

func TestFormat_OmitsNilLeaves(t *testing.T) {
	in := map[string]any{"title": "tee", "vendor": nil}
	got := Format(in).(map[string]any)

	if _, ok := got["vendor"]; ok {
		t.Error("nil-valued key should be omitted")
	}
	if got["title"] != "tee" {
		t.Errorf("title = %v, want tee", got["title"])
	}
}

func TestFormat_ArrayKeysNeverNull(t *testing.T) {
	in := map[string]any{"tags": nil, "variants": nil, "custom_list": nil}
	got := Format(in, "custom_list").(map[string]any)

	for _, key := range []string{"tags", "variants", "custom_list"} {
		val, ok := got[key]
		if !ok {
			t.Errorf("%s should be present as empty array, not omitted", key)
			continue
		}
		arr, ok := val.([]any)
		if !ok || len(arr) != 0 {
			t.Errorf("%s = %v, want empty slice", key, val)
		}
	}
}

func TestFormat_NestedStructures(t *testing.T) {
	in := map[string]any{
		"products": []any{
			map[string]any{"title": "tee", "price": 19.99, "available": "in stock", "vendor": nil},
		},
	}

	got := Format(in).(map[string]any)
	products := got["products"].([]any)
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	first := products[0].(map[string]any)
	if first["price"] != int64(1999) {
		t.Errorf("price = %v, want 1999", first["price"])
	}
	if first["available"] != true {
		t.Errorf("available = %v, want true", first["available"])
	}
	if _, ok := first["vendor"]; ok {
		t.Error("vendor should be omitted")
	}
}

func TestFormat_TopLevelNilReturnsEmptyObject(t *testing.T) {
	got := Format(nil)
	m, ok := got.(map[string]any)
	if !ok || len(m) != 0 {
		t.Errorf("Format(nil) = %v, want empty map", got)
	}
}
