package types

import (
	json "github.com/goccy/go-json"
)

// OrderedMap is what the ordered decode path materializes a map value
// into: entries keyed by string, remembered in insertion order, which for
// a decoded buffer is the format's sorted key order. It carries only the
// surface that path needs; it is not a general-purpose container.
type OrderedMap struct {
	keys []string
	data map[string]any
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{data: make(map[string]any)}
}

func (om *OrderedMap) Len() int {
	return len(om.keys)
}

// Set inserts or updates a key. New keys take the next position.
func (om *OrderedMap) Set(key string, value any) {
	if _, ok := om.data[key]; !ok {
		om.keys = append(om.keys, key)
	}
	om.data[key] = value
}

// Get retrieves a value
func (om *OrderedMap) Get(key string) (any, bool) {
	v, ok := om.data[key]
	return v, ok
}

// Keys returns keys in insertion order. The slice is owned by the map.
func (om *OrderedMap) Keys() []string {
	return om.keys
}

// MarshalJSON encodes as a JSON object in insertion order
func (om *OrderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range om.keys {
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		valBytes, err := json.Marshal(om.data[k])
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')
		buf = append(buf, valBytes...)
	}
	buf = append(buf, '}')
	return buf, nil
}
