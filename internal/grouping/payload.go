package grouping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned when a page's classification payload is not
// a JSON object. Malformed input fails the whole run rather than being
// partially recovered, since silently misgrouping patient pages is worse than
// failing loudly.
var ErrMalformedPayload = errors.New("malformed classification payload")

// Fields is a JSON object that preserves the stored order of its keys.
// Classification payloads are matched by key-scan order, so the standard
// map[string]any (which loses order) is not enough here. Nested objects
// decode as *Fields, arrays as []any, and numbers as json.Number.
type Fields struct {
	keys   []string
	values map[string]any
}

// NewFields returns an empty ordered object.
func NewFields() *Fields {
	return &Fields{values: make(map[string]any)}
}

// Len returns the number of keys.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Keys returns the keys in stored order. The returned slice is shared;
// callers must not modify it.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	return f.keys
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// Set stores value under key, appending the key if it is new.
func (f *Fields) Set(key string, value any) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected JSON object, got %v", ErrMalformedPayload, tok)
	}

	parsed, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*f = *parsed
	return nil
}

// MarshalJSON encodes the object with keys in stored order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(f.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeObject consumes object members up to and including the closing brace.
// The opening brace has already been consumed.
func decodeObject(dec *json.Decoder) (*Fields, error) {
	f := NewFields()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected object key, got %v", ErrMalformedPayload, tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		f.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return f, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		// string, json.Number, bool or nil
		return tok, nil
	}
	switch delim {
	case '{':
		return decodeObject(dec)
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("%w: unexpected delimiter %v", ErrMalformedPayload, delim)
	}
}
