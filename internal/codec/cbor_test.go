package codec

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMarshal_Deterministic(t *testing.T) {
	doc := map[string]any{
		"zeta":  map[string]any{"value": 1.5, "required": true},
		"alpha": map[string]any{"value": "x", "required": false},
	}

	first, err := Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Marshal(doc)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding is not deterministic")
		}
	}
}

func TestUnmarshal_StringKeyedMaps(t *testing.T) {
	doc := map[string]any{
		"stats": map[string]any{
			"value": map[string]any{
				"str": map[string]any{"value": 18.0, "required": true},
			},
			"required": true,
		},
	}

	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	stats, ok := decoded["stats"].(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", decoded["stats"])
	}
	if _, ok := stats["value"].(map[string]any); !ok {
		t.Fatalf("nested maps must decode as map[string]any, got %T", stats["value"])
	}
	if diff := cmp.Diff(doc, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
