package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Attributes is an ordered string-keyed map of scalar or text values.
// Insertion order is preserved through JSON and YAML round trips. The zero
// value is an empty, ready to use map.
type Attributes struct {
	keys   []string
	values map[string]string
}

// NewAttributes builds Attributes from alternating key/value arguments.
// A trailing key without a value is ignored.
func NewAttributes(kv ...string) Attributes {
	var a Attributes
	for i := 0; i+1 < len(kv); i += 2 {
		a.Set(kv[i], kv[i+1])
	}
	return a
}

// AttributesFromMap builds Attributes from a plain map with keys in sorted order.
func AttributesFromMap(m map[string]string) Attributes {
	var a Attributes
	for _, k := range slices.Sorted(maps.Keys(m)) {
		a.Set(k, m[k])
	}
	return a
}

// Get returns the value stored under key.
func (a Attributes) Get(key string) (string, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Set stores value under key. New keys are appended to the end of the order.
func (a *Attributes) Set(key, value string) {
	if a.values == nil {
		a.values = make(map[string]string)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Len returns the number of keys.
func (a Attributes) Len() int { return len(a.keys) }

// Keys returns the keys in insertion order.
func (a Attributes) Keys() []string { return slices.Clone(a.keys) }

// Each calls fn for every pair in insertion order until fn returns false.
func (a Attributes) Each(fn func(key, value string) bool) {
	for _, k := range a.keys {
		if !fn(k, a.values[k]) {
			return
		}
	}
}

// Map returns an unordered copy of the attributes.
func (a Attributes) Map() map[string]string {
	return maps.Clone(a.values)
}

// Clone returns a deep copy.
func (a Attributes) Clone() Attributes {
	return Attributes{keys: slices.Clone(a.keys), values: maps.Clone(a.values)}
}

// Merge adds the keys of other that are not present yet. Existing values win.
func (a *Attributes) Merge(other Attributes) {
	other.Each(func(k, v string) bool {
		if _, ok := a.Get(k); !ok {
			a.Set(k, v)
		}
		return true
	})
}

// MarshalJSON encodes the attributes as a JSON object in insertion order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping document order. Non-string
// values are kept as their compact JSON text; null becomes the empty string.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	*a = Attributes{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("attributes must be a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("attribute key must be a string, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		a.Set(key, rawScalar(raw))
	}

	_, err = dec.Token()
	return err
}

func rawScalar(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return string(trimmed)
	}
	return compact.String()
}

// MarshalYAML encodes the attributes as a YAML mapping in insertion order.
func (a Attributes) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range a.keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: a.values[k]},
		)
	}
	return node, nil
}

// UnmarshalYAML decodes a YAML mapping keeping document order.
func (a *Attributes) UnmarshalYAML(value *yaml.Node) error {
	*a = Attributes{}
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("attributes must be a mapping (line %d)", value.Line)
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			if val.Tag == "!!null" {
				a.Set(key.Value, "")
			} else {
				a.Set(key.Value, val.Value)
			}
		default:
			var decoded any
			if err := val.Decode(&decoded); err != nil {
				return fmt.Errorf("attribute %q: %w", key.Value, err)
			}
			text, err := json.Marshal(decoded)
			if err != nil {
				return fmt.Errorf("attribute %q: %w", key.Value, err)
			}
			a.Set(key.Value, string(text))
		}
	}
	return nil
}

// String renders the attributes as k=v pairs in order.
func (a Attributes) String() string {
	parts := make([]string, 0, len(a.keys))
	for _, k := range a.keys {
		parts = append(parts, k+"="+a.values[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
