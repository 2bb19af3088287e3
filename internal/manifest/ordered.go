package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
)

// OrderedMap is a string-keyed map that remembers the order keys appeared in
// the manifest document.
type OrderedMap[T any] struct {
	keys   []string
	values map[string]T
}

// Set stores v under k. A key that is already present keeps its position.
func (m *OrderedMap[T]) Set(k string, v T) {
	if m.values == nil {
		m.values = make(map[string]T)
	}
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

func (m OrderedMap[T]) Get(k string) (T, bool) {
	v, ok := m.values[k]
	return v, ok
}

func (m OrderedMap[T]) Len() int {
	return len(m.keys)
}

// Keys returns a copy of the keys in document order.
func (m OrderedMap[T]) Keys() []string {
	return append([]string(nil), m.keys...)
}

// All iterates the entries in document order.
func (m OrderedMap[T]) All() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

type rawEntry struct {
	key   string
	value json.RawMessage
}

// objectEntries splits a JSON object into its members without losing their
// order. Duplicate keys resolve to the last value at the first position.
func objectEntries(data json.RawMessage) ([]rawEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %s", describe(tok))
	}

	var entries []rawEntry
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %s", describe(tok))
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}

		if i, dup := index[key]; dup {
			entries[i].value = value
			continue
		}
		index[key] = len(entries)
		entries = append(entries, rawEntry{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}

func describe(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		if v == '[' {
			return "array"
		}
		return fmt.Sprintf("%q", v.String())
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", tok)
}
