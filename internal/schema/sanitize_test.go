package schema

import (
	"encoding/json"
	"reflect"
	"testing"
)

func mustSchema(t *testing.T, jsonStr string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		t.Fatalf("invalid test schema: %v", err)
	}
	return out
}

func TestSanitizeIsIdempotent(t *testing.T) {
	s := mustSchema(t, `{
		"type": ["string", "null"],
		"pattern": "^[a-z]+$",
		"default": "x",
		"$schema": "http://json-schema.org/draft-07/schema#"
	}`)
	once := Sanitize(s)
	twice := Sanitize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("sanitize not idempotent:\nonce=%v\ntwice=%v", once, twice)
	}
}

func TestSanitizeCollapsesTypeUnion(t *testing.T) {
	s := mustSchema(t, `{"type": ["integer", "null"]}`)
	out := Sanitize(s)
	inputProp := out["properties"].(map[string]any)["input"].(map[string]any)
	if inputProp["type"] != "integer" {
		t.Fatalf("expected collapsed type integer, got %v", inputProp["type"])
	}
}

func TestSanitizeStripsDisallowedKeywords(t *testing.T) {
	s := mustSchema(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1, "pattern": "^a", "format": "email", "default": "x"}
		},
		"additionalProperties": false,
		"$schema": "http://json-schema.org/draft-07/schema#"
	}`)
	out := Sanitize(s)
	for _, kw := range disallowedKeywords {
		if _, ok := out[kw]; ok {
			t.Fatalf("top-level disallowed keyword %q survived sanitize", kw)
		}
	}
	nameProp := out["properties"].(map[string]any)["name"].(map[string]any)
	for _, kw := range disallowedKeywords {
		if _, ok := nameProp[kw]; ok {
			t.Fatalf("nested disallowed keyword %q survived sanitize", kw)
		}
	}
}

func TestSanitizeReplacesRef(t *testing.T) {
	s := mustSchema(t, `{"$ref": "#/$defs/Address"}`)
	out := Sanitize(s)
	if out["type"] != "object" {
		t.Fatalf("expected $ref replaced with object placeholder, got %v", out)
	}
	if desc, _ := out["description"].(string); desc != "See: Address" {
		t.Fatalf("expected description referencing Address, got %q", desc)
	}
}

func TestSanitizeMergesAllOf(t *testing.T) {
	s := mustSchema(t, `{
		"allOf": [
			{"type": "object", "properties": {"a": {"type": "string"}}, "required": ["a"]},
			{"type": "object", "properties": {"b": {"type": "integer"}}, "required": ["b"]}
		]
	}`)
	out := Sanitize(s)
	props := out["properties"].(map[string]any)
	if _, ok := props["a"]; !ok {
		t.Fatalf("expected merged property a, got %v", props)
	}
	if _, ok := props["b"]; !ok {
		t.Fatalf("expected merged property b, got %v", props)
	}
	req := out["required"].([]any)
	if len(req) != 2 {
		t.Fatalf("expected both required fields merged, got %v", req)
	}
}

func TestSanitizeFlattensAnyOfPreferringProperties(t *testing.T) {
	s := mustSchema(t, `{
		"anyOf": [
			{"type": "string"},
			{"type": "object", "properties": {"x": {"type": "integer"}}}
		]
	}`)
	out := Sanitize(s)
	if out["type"] != "object" {
		t.Fatalf("expected the object-with-properties branch chosen, got %v", out)
	}
}

func TestSanitizeEmptySchemaFallback(t *testing.T) {
	out := Sanitize(map[string]any{})
	if out["type"] != "object" {
		t.Fatalf("expected empty-schema fallback to be an object, got %v", out)
	}
	props := out["properties"].(map[string]any)
	if _, ok := props["reason"]; !ok {
		t.Fatalf("expected fallback reason property, got %v", props)
	}
}

func TestSanitizeWrapsNonObjectTopLevelSchema(t *testing.T) {
	s := mustSchema(t, `{"type": "string"}`)
	out := Sanitize(s)
	if out["type"] != "object" {
		t.Fatalf("expected top-level wrap into object, got %v", out)
	}
	props := out["properties"].(map[string]any)
	input, ok := props["input"].(map[string]any)
	if !ok || input["type"] != "string" {
		t.Fatalf("expected wrapped input schema to retain original type, got %v", props)
	}
}

func TestSanitizeIntersectsRequiredWithProperties(t *testing.T) {
	s := mustSchema(t, `{
		"type": "object",
		"properties": {"a": {"type": "string"}},
		"required": ["a", "ghost"]
	}`)
	out := Sanitize(s)
	req := out["required"].([]any)
	if len(req) != 1 || req[0] != "a" {
		t.Fatalf("expected required intersected with declared properties, got %v", req)
	}
}

func TestCacheReturnsEquivalentResultToDirectSanitize(t *testing.T) {
	c, err := NewCache()
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	s := mustSchema(t, `{"type": "string"}`)
	direct := Sanitize(s)
	cached := c.SanitizeCached(s)
	if !reflect.DeepEqual(direct, cached) {
		t.Fatalf("cached result diverges from direct sanitize: %v vs %v", cached, direct)
	}
	// second call should hit the cache and still match.
	cached2 := c.SanitizeCached(s)
	if !reflect.DeepEqual(cached, cached2) {
		t.Fatalf("cache hit produced a different result")
	}
}
