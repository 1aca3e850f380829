package textutil

import (
	"reflect"
	"testing"
)

func TestNormalizeStringMap(t *testing.T) {
	t.Run("strips whitespace and drops empty keys", func(t *testing.T) {
		input := map[string]string{
			" order_id ": " ord_123 ",
			"campaign":   " summer-glow ",
			"note":       "  ",
			"  ":         "dropped",
			"":           "dropped",
		}

		want := map[string]string{
			"order_id": "ord_123",
			"campaign": "summer-glow",
			"note":     "",
		}

		got := NormalizeStringMap(input)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("expected %#v got %#v", want, got)
		}
	})

	t.Run("collapses to nil when nothing survives", func(t *testing.T) {
		if NormalizeStringMap(nil) != nil {
			t.Fatalf("expected nil for nil input")
		}
		if NormalizeStringMap(map[string]string{}) != nil {
			t.Fatalf("expected nil for empty map")
		}
		if NormalizeStringMap(map[string]string{" ": "x"}) != nil {
			t.Fatalf("expected nil when every key is blank")
		}
	})
}
