// Package schema normalizes client-supplied JSON Schema tool parameter
// definitions into the restrictive dialect the OpenAI-Responses-style
// backend's function-calling wire format accepts. Grounded on the
// teacher's tool_adapter package (internal/httpserver/tool_adapter) for
// the general shape of a per-translation-pair tool transform, generalized
// from tool filtering/renaming into full recursive schema rewriting since
// this backend's dialect rejects most JSON-Schema keywords outright rather
// than just certain tool names.
package schema

import "sort"

// disallowedKeywords are stripped from every schema object.
var disallowedKeywords = []string{
	"additionalProperties", "default", "$schema", "$defs", "definitions",
	"$id", "$comment", "minLength", "maxLength", "minItems", "maxItems",
	"pattern", "format", "examples", "const",
}

// Sanitize normalizes a JSON-Schema object (already decoded into a
// map[string]any) into the accepted subset. It is idempotent:
// Sanitize(Sanitize(s)) deep-equals Sanitize(s).
func Sanitize(s map[string]any) map[string]any {
	out := sanitizeSchema(s, 0)
	return wrapAsObjectIfNeeded(out)
}

const maxRecursionDepth = 32

func sanitizeSchema(s map[string]any, depth int) map[string]any {
	if s == nil || depth > maxRecursionDepth {
		return emptySchema()
	}

	s = resolveRef(s)
	s = collapseTypeUnion(s)
	s = mergeAllOf(s, depth)
	s = flattenAnyOfOneOf(s, depth)

	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v
	}
	for _, k := range disallowedKeywords {
		delete(out, k)
	}

	if props, ok := out["properties"].(map[string]any); ok {
		newProps := make(map[string]any, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				newProps[name] = sanitizeSchema(sub, depth+1)
			} else {
				newProps[name] = raw
			}
		}
		out["properties"] = newProps
		if req := intersectRequired(out["required"], newProps); req != nil {
			out["required"] = req
		} else {
			delete(out, "required")
		}
	}

	if items, ok := out["items"].(map[string]any); ok {
		out["items"] = sanitizeSchema(items, depth+1)
	}

	if len(out) == 0 {
		return emptySchema()
	}
	return out
}

func emptySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reason": map[string]any{"type": "string"},
		},
		"required": []any{"reason"},
	}
}

// wrapAsObjectIfNeeded enforces that top-level function parameters are an
// object schema, wrapping any other schema as a single "input" property.
func wrapAsObjectIfNeeded(s map[string]any) map[string]any {
	if t, ok := s["type"].(string); ok && t == "object" {
		return s
	}
	if _, hasProps := s["properties"]; hasProps {
		return s
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": s,
		},
		"required": []any{"input"},
	}
}

// collapseTypeUnion collapses type: [T, "null"] to type: T, preferring the
// first non-null entry.
func collapseTypeUnion(s map[string]any) map[string]any {
	arr, ok := s["type"].([]any)
	if !ok {
		return s
	}
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v
	}
	for _, t := range arr {
		if str, ok := t.(string); ok && str != "null" {
			out["type"] = str
			return out
		}
	}
	delete(out, "type")
	return out
}

// resolveRef replaces a $ref with a generic object placeholder describing
// the referenced schema's name, since the wire dialect has no notion of
// shared definitions.
func resolveRef(s map[string]any) map[string]any {
	ref, ok := s["$ref"].(string)
	if !ok {
		return s
	}
	return map[string]any{
		"type":        "object",
		"description": "See: " + lastPathSegment(ref),
	}
}

func lastPathSegment(ref string) string {
	last := ref
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '/' {
			last = ref[i+1:]
			break
		}
	}
	return last
}

// mergeAllOf merges every branch of allOf into the parent object: union of
// properties, union of required.
func mergeAllOf(s map[string]any, depth int) map[string]any {
	branches, ok := s["allOf"].([]any)
	if !ok {
		return s
	}
	out := make(map[string]any, len(s))
	for k, v := range s {
		if k != "allOf" {
			out[k] = v
		}
	}
	mergedProps, _ := out["properties"].(map[string]any)
	if mergedProps == nil {
		mergedProps = map[string]any{}
	}
	requiredSet := map[string]bool{}
	for _, r := range toAnySlice(out["required"]) {
		if name, ok := r.(string); ok {
			requiredSet[name] = true
		}
	}
	for _, b := range branches {
		branch, ok := b.(map[string]any)
		if !ok {
			continue
		}
		branch = sanitizeSchema(branch, depth+1)
		if bp, ok := branch["properties"].(map[string]any); ok {
			for name, def := range bp {
				mergedProps[name] = def
			}
		}
		for _, r := range toAnySlice(branch["required"]) {
			if name, ok := r.(string); ok {
				requiredSet[name] = true
			}
		}
	}
	if len(mergedProps) > 0 {
		out["properties"] = mergedProps
		if out["type"] == nil {
			out["type"] = "object"
		}
	}
	if len(requiredSet) > 0 {
		out["required"] = setToSortedAny(requiredSet)
	}
	return out
}

// flattenAnyOfOneOf picks a single branch from anyOf/oneOf, preferring
// branches with properties over items over a bare type over untyped.
func flattenAnyOfOneOf(s map[string]any, depth int) map[string]any {
	key := "anyOf"
	branches, ok := s[key].([]any)
	if !ok {
		key = "oneOf"
		branches, ok = s[key].([]any)
	}
	if !ok {
		return s
	}
	out := make(map[string]any, len(s))
	for k, v := range s {
		if k != "anyOf" && k != "oneOf" {
			out[k] = v
		}
	}
	best := pickBestBranch(branches)
	if best == nil {
		return out
	}
	sanitized := sanitizeSchema(best, depth+1)
	for k, v := range sanitized {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out
}

func pickBestBranch(branches []any) map[string]any {
	rank := func(b map[string]any) int {
		if _, ok := b["properties"]; ok {
			return 3
		}
		if _, ok := b["items"]; ok {
			return 2
		}
		if _, ok := b["type"]; ok {
			return 1
		}
		return 0
	}
	var best map[string]any
	bestRank := -1
	for _, raw := range branches {
		b, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if r := rank(b); r > bestRank {
			bestRank = r
			best = b
		}
	}
	return best
}

func intersectRequired(required any, props map[string]any) any {
	arr := toAnySlice(required)
	if len(arr) == 0 {
		return nil
	}
	var out []any
	for _, r := range arr {
		name, ok := r.(string)
		if !ok {
			continue
		}
		if _, exists := props[name]; exists {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toAnySlice(v any) []any {
	arr, _ := v.([]any)
	return arr
}

func setToSortedAny(set map[string]bool) []any {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
