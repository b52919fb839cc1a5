package paperdash

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// Extra holds JSON object members that a type does not declare. The server
// contract is versioned independently of this client, so fields it adds are
// kept and passed through unchanged.
type Extra map[string]json.RawMessage

// Get decodes the extra field name into v. It reports false when the field
// is absent.
func (e Extra) Get(name string, v any) (bool, error) {
	raw, ok := e[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

var knownFieldsCache sync.Map // reflect.Type -> map[string]struct{}

// knownFields returns the JSON member names declared by t's fields.
func knownFields(t reflect.Type) map[string]struct{} {
	if cached, ok := knownFieldsCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	known := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		known[name] = struct{}{}
	}
	knownFieldsCache.Store(t, known)
	return known
}

// splitExtra returns the members of the JSON object data that are not
// declared on the struct type of v.
func splitExtra(data []byte, v any) (Extra, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	known := knownFields(reflect.TypeOf(v))
	var extra Extra
	for name, value := range raw {
		if _, ok := known[name]; ok {
			continue
		}
		if extra == nil {
			extra = make(Extra)
		}
		extra[name] = value
	}
	return extra, nil
}

// mergeExtra adds the members of extra that data does not already contain.
func mergeExtra(data []byte, extra Extra) ([]byte, error) {
	if len(extra) == 0 {
		return data, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for name, value := range extra {
		if _, ok := merged[name]; !ok {
			merged[name] = value
		}
	}
	return json.Marshal(merged)
}
