package frontmatter

import (
	"bytes"
	"encoding/json"
)

type entry struct {
	key   string
	value Value
}

// Metadata is an insertion-ordered set of key/value pairs with unique keys.
// The zero value is empty and ready to use.
type Metadata struct {
	entries []entry
}

func (m *Metadata) index(key string) int {
	for i, e := range m.entries {
		if e.key == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored under key.
func (m Metadata) Get(key string) (Value, bool) {
	if i := m.index(key); i >= 0 {
		return m.entries[i].value, true
	}
	return Value{}, false
}

// Has reports whether key is present.
func (m Metadata) Has(key string) bool {
	return m.index(key) >= 0
}

// Set overwrites an existing key in place or appends a new one.
func (m *Metadata) Set(key string, v Value) {
	if i := m.index(key); i >= 0 {
		m.entries[i].value = v
		return
	}
	m.entries = append(m.entries, entry{key: key, value: v})
}

// Delete removes key if present.
func (m *Metadata) Delete(key string) {
	if i := m.index(key); i >= 0 {
		m.entries = append(m.entries[:i], m.entries[i+1:]...)
	}
}

// Keys returns the keys in insertion order.
func (m Metadata) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys
}

func (m Metadata) Len() int { return len(m.entries) }

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	return Metadata{entries: append([]entry(nil), m.entries...)}
}

// Equal compares keys, order and values.
func (m Metadata) Equal(o Metadata) bool {
	if len(m.entries) != len(o.entries) {
		return false
	}
	for i := range m.entries {
		if m.entries[i].key != o.entries[i].key || !m.entries[i].value.Equal(o.entries[i].value) {
			return false
		}
	}
	return true
}

// MarshalJSON writes an object whose members follow insertion order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.key)
		if err != nil {
			return nil, err
		}
		v, err := e.value.MarshalJSON()
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
