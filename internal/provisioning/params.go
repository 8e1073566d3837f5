package provisioning

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Params is the merged parameter set sent to a provider API
type Params map[string]any

// Merge combines required and optional parameters. Every required key must
// hold a non-nil value. Optional keys whose value is nil are omitted, so an
// absent property is never sent as an explicit null.
func Merge(required, optional map[string]any) (Params, error) {
	var missing []string
	out := make(Params, len(required)+len(optional))
	for k, v := range required {
		if isNil(v) {
			missing = append(missing, k)
			continue
		}
		out[k] = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingParamsError{Keys: missing}
	}
	for k, v := range optional {
		if isNil(v) {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// Without returns a copy of p without the given keys
func (p Params) Without(keys ...string) Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Decode fills the struct pointed to by out. Keys match field names
// case-insensitively, and string scalars are converted to the numeric or
// boolean kind of the destination field first.
func (p Params) Decode(out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", out)
	}
	shaped := coerce(map[string]any(p), rv.Type())
	b, err := json.Marshal(shaped)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("failed to decode parameters into %T: %w", out, err)
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// coerce reshapes v so that it decodes into a value of type t
func coerce(v any, t reflect.Type) any {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		m, ok := v.(map[string]any)
		if !ok {
			if pm, isParams := v.(Params); isParams {
				m = map[string]any(pm)
			} else {
				return v
			}
		}
		out := make(map[string]any, len(m))
		for k, val := range m {
			if f, found := fieldByName(t, k); found {
				out[k] = coerce(val, f.Type)
			} else {
				out[k] = val
			}
		}
		return out
	case reflect.Slice:
		s, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = coerce(item, t.Elem())
		}
		return out
	case reflect.Map:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = coerce(val, t.Elem())
		}
		return out
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if s, ok := v.(string); ok {
			if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return n
			}
		}
	case reflect.Float32, reflect.Float64:
		if s, ok := v.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
	case reflect.Bool:
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b
			}
		}
	}
	return v
}

// fieldByName finds the exported field encoding/json would decode key into
func fieldByName(t reflect.Type, key string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			if tagName, _, _ := strings.Cut(tag, ","); tagName != "" && tagName != "-" {
				name = tagName
			}
		}
		if strings.EqualFold(name, key) {
			return f, true
		}
	}
	return reflect.StructField{}, false
}
