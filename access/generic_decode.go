package access

import (
	"github.com/cockroachdb/errors"

	"github.com/quickwritereader/schemaless/types"
)

// Any materializes the referenced value as plain Go data: nil, int64,
// uint64, float64, string, []any, or map[string]any.
func (r Reference) Any() any {
	switch r.typ {
	case types.TypeNull:
		return nil
	case types.TypeInt, types.TypeIndirectInt:
		return r.AsInt64()
	case types.TypeUint, types.TypeIndirectUint:
		return r.AsUint64()
	case types.TypeFloat, types.TypeIndirectFloat:
		return r.AsFloat64()
	case types.TypeString:
		return r.AsString().String()
	case types.TypeKey:
		return r.AsKey()
	case types.TypeVector:
		vec := r.AsVector()
		out := make([]any, vec.Size())
		for i := range out {
			out[i] = vec.At(i).Any()
		}
		return out
	case types.TypeVectorTyped:
		vec := r.AsTypedVector()
		out := make([]any, vec.Size())
		for i := range out {
			out[i] = vec.At(i).Any()
		}
		return out
	case types.TypeMap:
		m := r.AsMap()
		keys := m.Keys()
		out := make(map[string]any, m.Size())
		for i := 0; i < m.Size(); i++ {
			out[keys.At(i).AsKey()] = m.At(i).Any()
		}
		return out
	default:
		return nil
	}
}

// AnyOrdered is Any with maps materialized as *types.OrderedMap,
// preserving the buffer's sorted key order.
func (r Reference) AnyOrdered() any {
	switch r.typ {
	case types.TypeVector:
		vec := r.AsVector()
		out := make([]any, vec.Size())
		for i := range out {
			out[i] = vec.At(i).AnyOrdered()
		}
		return out
	case types.TypeMap:
		m := r.AsMap()
		keys := m.Keys()
		out := types.NewOrderedMap()
		for i := 0; i < m.Size(); i++ {
			out.Set(keys.At(i).AsKey(), m.At(i).AnyOrdered())
		}
		return out
	default:
		return r.Any()
	}
}

// Unpack decodes a finished buffer into plain Go data.
func Unpack(buf []byte) (any, error) {
	root, err := GetRoot(buf)
	if err != nil {
		return nil, errors.Wrap(err, "Unpack")
	}
	return root.Any(), nil
}

// UnpackOrdered decodes a finished buffer with order-preserving maps.
func UnpackOrdered(buf []byte) (any, error) {
	root, err := GetRoot(buf)
	if err != nil {
		return nil, errors.Wrap(err, "UnpackOrdered")
	}
	return root.AnyOrdered(), nil
}

// Pack encodes a generic Go value into a finished buffer in one call.
func Pack(v any) ([]byte, error) {
	b := NewBuilder()
	if err := b.AddAny(v); err != nil {
		return nil, errors.Wrap(err, "Pack")
	}
	if err := b.Finish(); err != nil {
		return nil, errors.Wrap(err, "Pack")
	}
	return b.Bytes()
}
