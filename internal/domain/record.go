package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one column of a raw record.
type Field struct {
	Key   string
	Value any
}

// RawRecord is an ordered column→value mapping. The shape depends entirely on
// which source table (or legacy payload) produced it; no schema is enforced
// and lookups tolerate missing keys.
type RawRecord struct {
	fields []Field
	index  map[string]int
}

// Set appends the key or overwrites its value, preserving first-seen order.
func (r *RawRecord) Set(key string, value any) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

// Get returns the value for key and whether it was present.
func (r *RawRecord) Get(key string) (any, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Has reports whether key is present, regardless of its value.
func (r *RawRecord) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Len returns the number of columns.
func (r *RawRecord) Len() int { return len(r.fields) }

// Fields returns the columns in order.
func (r *RawRecord) Fields() []Field { return r.fields }

// UnmarshalJSON decodes a JSON object while preserving key order, which a
// plain map would lose. Numbers decode as json.Number.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		r.Set(key, value)
	}

	_, err = dec.Token()
	return err
}
