// Package mapper projects raw event payloads into their canonical shape
// using an event schema's mapping tree. Pure functions, no side effects.
package mapper

import (
	"strings"

	"leadconnect/internal/schema"
)

// Mapped is the canonical projection of one raw payload.
type Mapped struct {
	EventData   map[string]any
	ProfileData map[string]any
}

// MapEvent resolves the conventional eventData/profileData branches of an
// event schema. A branch missing from the schema yields an empty map.
func MapEvent(es *schema.EventSchema, payload map[string]any) Mapped {
	out := Map(es.Mapping, payload)
	return Mapped{
		EventData:   branch(out, "eventData"),
		ProfileData: branch(out, "profileData"),
	}
}

// Map evaluates a mapping tree against a payload. The output mirrors the
// tree's shape with each leaf replaced by the payload value at its path;
// leaves whose path is absent are omitted. Never errors: any schema tree
// and any payload produce a result.
func Map(tree schema.Group, payload map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for name, node := range tree {
		switch n := node.(type) {
		case schema.Leaf:
			if v, ok := lookup(payload, n.Path); ok {
				out[name] = v
			}
		case schema.Group:
			out[name] = Map(n, payload)
		}
	}
	return out
}

// lookup resolves a dot-separated path through nested payload maps.
func lookup(payload map[string]any, path string) (any, bool) {
	var cur any = payload
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func branch(out map[string]any, name string) map[string]any {
	if m, ok := out[name].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
