package provisioning

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Properties are the ResourceProperties of a CloudFormation custom resource
// event. CloudFormation delivers every scalar as a string, so the typed
// accessors coerce values back to numbers and booleans. Every accessor
// returns an untyped nil for absent keys so the value can be fed to Merge.
type Properties map[string]any

// Value returns the raw value of key, or nil
func (p Properties) Value(key string) any {
	v, ok := p[key]
	if !ok {
		return nil
	}
	return v
}

// String returns the value of key as a string, or "" when absent
func (p Properties) String(key string) string {
	switch v := p.Value(key).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// OptionalString returns the value of key as a string, or nil when absent
func (p Properties) OptionalString(key string) any {
	if p.Value(key) == nil {
		return nil
	}
	return p.String(key)
}

// Int returns the value of key as an int64 when it can be parsed, the raw
// value when it cannot, or nil when absent.
func (p Properties) Int(key string) any {
	switch v := p.Value(key).(type) {
	case nil:
		return nil
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
		return v
	case float64:
		return int64(v)
	default:
		return v
	}
}

// Bool returns the value of key as a bool when it can be parsed, the raw
// value when it cannot, or nil when absent.
func (p Properties) Bool(key string) any {
	switch v := p.Value(key).(type) {
	case nil:
		return nil
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
		return v
	default:
		return v
	}
}

// Truthy reports whether key holds a true boolean or the string "true"
func (p Properties) Truthy(key string) bool {
	b, ok := p.Bool(key).(bool)
	return ok && b
}

// Object returns a nested mapping for key. JSON-encoded strings are decoded.
func (p Properties) Object(key string) any {
	v := p.Value(key)
	if s, ok := v.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "{") {
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err == nil {
			return m
		}
	}
	return v
}

// List returns a nested sequence for key. JSON-encoded strings are decoded.
func (p Properties) List(key string) []any {
	switch v := p.Value(key).(type) {
	case []any:
		return v
	case string:
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var l []any
			if err := json.Unmarshal([]byte(v), &l); err == nil {
				return l
			}
		}
	}
	return nil
}

// StringMap returns a string-to-string mapping for key, such as tags
func (p Properties) StringMap(key string) any {
	m, ok := p.Object(key).(map[string]any)
	if !ok {
		return p.Value(key)
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}
