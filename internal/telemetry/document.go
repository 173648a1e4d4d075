// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"bytes"
	"encoding/json"
)

// Field is a single document entry
type Field struct {
	Key   string
	Value string
}

// Document is a flat string-valued telemetry document that keeps insertion
// order when marshalled.
type Document struct {
	fields []Field
	index  map[string]int
}

// NewDocument creates an empty document
func NewDocument() *Document {
	return &Document{index: make(map[string]int)}
}

// Set adds key or overwrites its value in place
func (d *Document) Set(key, value string) {
	if i, ok := d.index[key]; ok {
		d.fields[i].Value = value
		return
	}
	d.index[key] = len(d.fields)
	d.fields = append(d.fields, Field{Key: key, Value: value})
}

// Get returns the value stored under key
func (d *Document) Get(key string) (string, bool) {
	i, ok := d.index[key]
	if !ok {
		return "", false
	}
	return d.fields[i].Value, true
}

// Len returns the number of fields
func (d *Document) Len() int {
	return len(d.fields)
}

// Fields returns a copy of the fields in insertion order
func (d *Document) Fields() []Field {
	return append([]Field(nil), d.fields...)
}

// MarshalJSON encodes the document as a JSON object in insertion order
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
