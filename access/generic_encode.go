package access

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"

	"github.com/quickwritereader/schemaless/utils"
)

// Packable lets a type serialize itself through the event API.
type Packable interface {
	PackInto(b *Builder) error
}

// AddAny encodes a generic Go value. Bools become uints, []byte becomes a
// string payload, maps are keyed by string. Returns an error for
// unsupported types.
func (b *Builder) AddAny(v any) error {
	switch val := v.(type) {
	case nil:
		b.AddNull()
	case bool:
		b.AddBool(val)
	case int:
		b.AddInt(int64(val))
	case int8:
		b.AddInt(int64(val))
	case int16:
		b.AddInt(int64(val))
	case int32:
		b.AddInt(int64(val))
	case int64:
		b.AddInt(val)
	case uint:
		b.AddUint(uint64(val))
	case uint8:
		b.AddUint(uint64(val))
	case uint16:
		b.AddUint(uint64(val))
	case uint32:
		b.AddUint(uint64(val))
	case uint64:
		b.AddUint(val)
	case float32:
		b.AddFloat32(val)
	case float64:
		b.AddFloat64(val)
	case string:
		b.AddString(val)
	case []byte:
		b.AddStringBytes(val)
	case []string:
		return b.AddStringSlice(val)
	case []any:
		return b.AddAnySlice(val)
	case map[string]any:
		return b.AddMapAny(val)
	case map[string]string:
		return b.AddMapStr(val)
	case Packable:
		return val.PackInto(b)
	default:
		return errors.Newf("AddAny: unsupported type %T", v)
	}
	return b.err
}

// AddAnySlice encodes s as an untyped vector.
func (b *Builder) AddAnySlice(s []any) error {
	start := b.BeginVector()
	for i, elem := range s {
		if err := b.AddAny(elem); err != nil {
			return errors.Wrapf(err, "AddAnySlice: element %d", i)
		}
	}
	return b.EndVector(start, false)
}

// AddStringSlice encodes s as an untyped vector of strings. Strings are
// not a typed-vector element, so each element carries its own type byte.
func (b *Builder) AddStringSlice(s []string) error {
	start := b.BeginVector()
	for _, elem := range s {
		b.AddString(elem)
	}
	return b.EndVector(start, false)
}

// AddMapAny encodes m with keys pushed in sorted order.
func (b *Builder) AddMapAny(m map[string]any) error {
	start := b.BeginMap()
	for _, k := range utils.SortKeys(m) {
		b.AddKey(k)
		if err := b.AddAny(m[k]); err != nil {
			return errors.Wrapf(err, "AddMapAny: key %q", k)
		}
	}
	return b.EndMap(start)
}

// AddMapStr encodes m with keys pushed in sorted order.
func (b *Builder) AddMapStr(m map[string]string) error {
	start := b.BeginMap()
	for _, k := range utils.SortKeys(m) {
		b.AddKey(k)
		b.AddString(m[k])
	}
	return b.EndMap(start)
}

// AddPackable lets v push itself.
func (b *Builder) AddPackable(v Packable) error {
	return v.PackInto(b)
}

// AddSignedSlice encodes s as a typed vector of signed integers.
func AddSignedSlice[T constraints.Signed](b *Builder, s []T) error {
	start := b.BeginVector()
	for _, elem := range s {
		b.AddInt(int64(elem))
	}
	return b.EndVector(start, true)
}

// AddUnsignedSlice encodes s as a typed vector of unsigned integers.
func AddUnsignedSlice[T constraints.Unsigned](b *Builder, s []T) error {
	start := b.BeginVector()
	for _, elem := range s {
		b.AddUint(uint64(elem))
	}
	return b.EndVector(start, true)
}

// AddFloatSlice encodes s as a typed vector of floats.
func AddFloatSlice[T constraints.Float](b *Builder, s []T) error {
	start := b.BeginVector()
	for _, elem := range s {
		switch any(elem).(type) {
		case float32:
			b.AddFloat32(float32(elem))
		default:
			b.AddFloat64(float64(elem))
		}
	}
	return b.EndVector(start, true)
}

// AddKeySlice encodes s as a typed vector of keys.
func AddKeySlice(b *Builder, s []string) error {
	start := b.BeginVector()
	for _, elem := range s {
		b.AddKey(elem)
	}
	return b.EndVector(start, true)
}
