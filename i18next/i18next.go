// Package i18next builds i18next JSON translation files from the flat
// key/value payloads PhraseApp returns.
//
// The output format is:
//
//	{
//	    "_meta": { "name": "Русский", "flag": "🇷🇺" },
//	    "translations": {
//	        "greeting": "Привет, %s",
//	        "navigation.search": "Поиск"
//	    }
//	}
//
// The "_meta" object is written only when a name or flag is set.
package i18next

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Meta is the language metadata written to the _meta field.
type Meta struct {
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// File represents an i18next translation file.
type File struct {
	Meta         Meta
	Translations map[string]string
	// keys preserves the original key order.
	keys []string
}

// FromFlat builds a File from a flat JSON object of string values,
// keeping the payload's key order.
func FromFlat(data []byte) (*File, error) {
	om, err := parseOrderedStringMap(data)
	if err != nil {
		return nil, fmt.Errorf("parsing translations: %w", err)
	}
	return &File{Translations: om.values, keys: om.keys}, nil
}

// orderedMap preserves insertion order of a string->string JSON object.
type orderedMap struct {
	keys   []string
	values map[string]string
}

func parseOrderedStringMap(data []byte) (*orderedMap, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))

	t, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected {, got %v", t)
	}

	om := &orderedMap{values: make(map[string]string)}

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", kt)
		}

		vt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		value, ok := vt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string value for key %q, got %T", key, vt)
		}

		if _, dup := om.values[key]; !dup {
			om.keys = append(om.keys, key)
		}
		om.values[key] = value
	}

	return om, nil
}

// Keys returns the translation keys in their original order, or sorted
// when the file was built by hand.
func (f *File) Keys() []string {
	if len(f.keys) == len(f.Translations) {
		return f.keys
	}

	keys := make([]string, 0, len(f.Translations))
	for k := range f.Translations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Marshal produces i18next JSON with 4-space indentation.
func (f *File) Marshal() ([]byte, error) {
	var b strings.Builder
	b.WriteString("{\n")

	if f.Meta.Name != "" || f.Meta.Flag != "" {
		b.WriteString("    \"_meta\": {\n")
		b.WriteString(fmt.Sprintf("        \"name\": %s,\n", jsonString(f.Meta.Name)))
		b.WriteString(fmt.Sprintf("        \"flag\": %s\n", jsonString(f.Meta.Flag)))
		b.WriteString("    },\n")
	}

	keys := f.Keys()
	if len(keys) == 0 {
		b.WriteString("    \"translations\": {}\n")
		b.WriteString("}\n")
		return []byte(b.String()), nil
	}

	b.WriteString("    \"translations\": {\n")
	for i, k := range keys {
		b.WriteString(fmt.Sprintf("        %s: %s", jsonString(k), jsonString(f.Translations[k])))
		if i < len(keys)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("    }\n")
	b.WriteString("}\n")

	return []byte(b.String()), nil
}

// jsonString returns a JSON-encoded string value without HTML escaping.
func jsonString(s string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
