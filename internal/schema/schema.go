// Package schema holds the event field-mapping trees and the profile field
// taxonomy, loaded once at startup into an immutable Registry.
package schema

import (
	"encoding/json"
	"fmt"
)

// Node is one node of an event mapping tree: either a Leaf holding a
// dot-separated path into the raw payload, or a Group of named child nodes.
// The string-vs-object ambiguity of the stored JSON is resolved here, at
// decode time; consumers only ever see the tagged variant.
type Node interface {
	isNode()
}

// Leaf resolves to the payload value at Path, or is omitted when absent.
type Leaf struct {
	Path string
}

// Group nests further nodes under their output names.
type Group map[string]Node

func (Leaf) isNode()  {}
func (Group) isNode() {}

// DecodeGroup parses a stored mapping tree. Leaves are JSON strings, groups
// are JSON objects; anything else is rejected.
func DecodeGroup(raw json.RawMessage) (Group, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode mapping group: %w", err)
	}
	group := make(Group, len(obj))
	for name, child := range obj {
		node, err := decodeNode(child)
		if err != nil {
			return nil, fmt.Errorf("decode mapping node %q: %w", name, err)
		}
		group[name] = node
	}
	return group, nil
}

func decodeNode(raw json.RawMessage) (Node, error) {
	var path string
	if err := json.Unmarshal(raw, &path); err == nil {
		if path == "" {
			return nil, fmt.Errorf("empty payload path")
		}
		return Leaf{Path: path}, nil
	}
	return DecodeGroup(raw)
}

// EventSchema translates one event type's raw payload into its canonical
// eventData/profileData shape.
type EventSchema struct {
	ID      int64
	Type    string
	Mapping Group
}

// FieldClass tags a canonical profile field.
type FieldClass string

const (
	// FieldIdentifying fields match and merge leads; their first stored
	// value is never overwritten.
	FieldIdentifying FieldClass = "identifying"

	// FieldDescriptive fields carry latest-write-wins data.
	FieldDescriptive FieldClass = "descriptive"
)

// ProfileSchema classifies every canonical profile field.
type ProfileSchema struct {
	classes map[string]FieldClass
}

// NewProfileSchema builds a profile schema from field classifications.
func NewProfileSchema(classes map[string]FieldClass) *ProfileSchema {
	copied := make(map[string]FieldClass, len(classes))
	for k, v := range classes {
		copied[k] = v
	}
	return &ProfileSchema{classes: copied}
}

// Identifying reports whether key is an identifying field. Unknown keys are
// descriptive.
func (s *ProfileSchema) Identifying(key string) bool {
	return s.classes[key] == FieldIdentifying
}

// IdentifyingSet returns the set of identifying keys, for the merge engine.
func (s *ProfileSchema) IdentifyingSet() map[string]bool {
	set := make(map[string]bool)
	for k, class := range s.classes {
		if class == FieldIdentifying {
			set[k] = true
		}
	}
	return set
}
