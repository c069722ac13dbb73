package access

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/quickwritereader/schemaless/types"
	"github.com/quickwritereader/schemaless/utils"
)

// Stand-in buffers handed out when a reader is asked for a view its type
// cannot provide. They are never part of a finished buffer.
var (
	emptyStringData = []byte{0, 0}
	emptyVectorData = []byte{0}
	emptyMapData    = []byte{0, 0, 1, 0}
)

// indirect resolves the relative offset stored at pos to the absolute
// position it points back to.
func indirect(buf []byte, pos, byteWidth int) int {
	return pos - int(utils.ReadSizedUint(buf, pos, byteWidth))
}

// cstr returns the NUL-terminated bytes starting at pos, without the NUL.
func cstr(buf []byte, pos int) []byte {
	if pos < 0 || pos > len(buf) {
		return nil
	}
	s := buf[pos:]
	if n := bytes.IndexByte(s, 0); n >= 0 {
		s = s[:n]
	}
	return s
}

// Reference is a view of one value inside a finished buffer. It carries
// the width of the slot that held it (parentWidth, for inline reads) and
// the width of the object it points to (byteWidth, for indirect reads).
type Reference struct {
	buf         []byte
	pos         int
	parentWidth int
	byteWidth   int
	typ         types.Type
	vt          types.VectorType
}

// NewReference builds a view from a slot position, the width of the slot,
// and the packed type byte describing the value.
func NewReference(buf []byte, pos, parentWidth int, packed byte) Reference {
	w, t, vt := types.UnpackType(packed)
	return Reference{
		buf:         buf,
		pos:         pos,
		parentWidth: parentWidth,
		byteWidth:   w.ByteWidth(),
		typ:         t,
		vt:          vt,
	}
}

// NullReference is the view every miss resolves to.
func NullReference() Reference {
	return Reference{parentWidth: 1, byteWidth: 1, typ: types.TypeNull}
}

// GetRoot locates the root value through the two-byte trailer.
func GetRoot(buf []byte) (Reference, error) {
	if len(buf) < 3 {
		return NullReference(), errors.Wrapf(ErrInvalidBuffer, "GetRoot: %d bytes", len(buf))
	}
	byteWidth := int(buf[len(buf)-1])
	switch byteWidth {
	case 1, 2, 4, 8:
	default:
		return NullReference(), errors.Wrapf(ErrInvalidBuffer, "GetRoot: root byte width %d", byteWidth)
	}
	pos := len(buf) - byteWidth - 2
	if pos < 0 {
		return NullReference(), errors.Wrapf(ErrInvalidBuffer, "GetRoot: root slot outside buffer")
	}
	return NewReference(buf, pos, byteWidth, buf[len(buf)-2]), nil
}

func (r Reference) indirect() int {
	return indirect(r.buf, r.pos, r.parentWidth)
}

// Type returns the value's type tag.
func (r Reference) Type() types.Type {
	return r.typ
}

func (r Reference) IsNull() bool { return r.typ == types.TypeNull }
func (r Reference) IsInt() bool {
	return r.typ == types.TypeInt || r.typ == types.TypeIndirectInt
}
func (r Reference) IsUint() bool {
	return r.typ == types.TypeUint || r.typ == types.TypeIndirectUint
}
func (r Reference) IsFloat() bool {
	return r.typ == types.TypeFloat || r.typ == types.TypeIndirectFloat
}
func (r Reference) IsNumeric() bool { return r.IsInt() || r.IsUint() || r.IsFloat() }
func (r Reference) IsString() bool  { return r.typ == types.TypeString }
func (r Reference) IsKey() bool     { return r.typ == types.TypeKey }
func (r Reference) IsVector() bool {
	return r.typ == types.TypeVector || r.typ == types.TypeMap
}
func (r Reference) IsTypedVector() bool { return r.typ == types.TypeVectorTyped }
func (r Reference) IsMap() bool         { return r.typ == types.TypeMap }

// AsInt64 reads any type as a signed integer: floats truncate, strings
// are parsed, containers yield their element count, all else is 0.
func (r Reference) AsInt64() int64 {
	switch r.typ {
	case types.TypeInt:
		return utils.ReadSizedInt(r.buf, r.pos, r.parentWidth)
	case types.TypeIndirectInt:
		return utils.ReadSizedInt(r.buf, r.indirect(), r.byteWidth)
	case types.TypeUint:
		return int64(utils.ReadSizedUint(r.buf, r.pos, r.parentWidth))
	case types.TypeIndirectUint:
		return int64(utils.ReadSizedUint(r.buf, r.indirect(), r.byteWidth))
	case types.TypeFloat:
		return int64(utils.ReadSizedFloat(r.buf, r.pos, r.parentWidth))
	case types.TypeIndirectFloat:
		return int64(utils.ReadSizedFloat(r.buf, r.indirect(), r.byteWidth))
	case types.TypeString:
		v, err := strconv.ParseInt(r.AsString().String(), 10, 64)
		if err != nil {
			return 0
		}
		return v
	case types.TypeVector, types.TypeMap:
		return int64(r.AsVector().Size())
	case types.TypeVectorTyped:
		return int64(r.AsTypedVector().Size())
	default:
		return 0
	}
}

func (r Reference) AsInt32() int32 { return int32(r.AsInt64()) }
func (r Reference) AsInt16() int16 { return int16(r.AsInt64()) }
func (r Reference) AsInt8() int8   { return int8(r.AsInt64()) }

// AsUint64 is AsInt64 under unsigned interpretation.
func (r Reference) AsUint64() uint64 {
	switch r.typ {
	case types.TypeUint:
		return utils.ReadSizedUint(r.buf, r.pos, r.parentWidth)
	case types.TypeIndirectUint:
		return utils.ReadSizedUint(r.buf, r.indirect(), r.byteWidth)
	case types.TypeInt:
		return uint64(utils.ReadSizedInt(r.buf, r.pos, r.parentWidth))
	case types.TypeIndirectInt:
		return uint64(utils.ReadSizedInt(r.buf, r.indirect(), r.byteWidth))
	case types.TypeFloat:
		return uint64(utils.ReadSizedFloat(r.buf, r.pos, r.parentWidth))
	case types.TypeIndirectFloat:
		return uint64(utils.ReadSizedFloat(r.buf, r.indirect(), r.byteWidth))
	case types.TypeString:
		v, err := strconv.ParseUint(r.AsString().String(), 10, 64)
		if err != nil {
			return 0
		}
		return v
	case types.TypeVector, types.TypeMap:
		return uint64(r.AsVector().Size())
	case types.TypeVectorTyped:
		return uint64(r.AsTypedVector().Size())
	default:
		return 0
	}
}

func (r Reference) AsUint32() uint32 { return uint32(r.AsUint64()) }
func (r Reference) AsUint16() uint16 { return uint16(r.AsUint64()) }
func (r Reference) AsUint8() uint8   { return uint8(r.AsUint64()) }

// AsFloat64 reads any type as a float: integers convert, strings are
// parsed, containers yield their element count, all else is 0.
func (r Reference) AsFloat64() float64 {
	switch r.typ {
	case types.TypeFloat:
		return utils.ReadSizedFloat(r.buf, r.pos, r.parentWidth)
	case types.TypeIndirectFloat:
		return utils.ReadSizedFloat(r.buf, r.indirect(), r.byteWidth)
	case types.TypeInt:
		return float64(utils.ReadSizedInt(r.buf, r.pos, r.parentWidth))
	case types.TypeIndirectInt:
		return float64(utils.ReadSizedInt(r.buf, r.indirect(), r.byteWidth))
	case types.TypeUint:
		return float64(utils.ReadSizedUint(r.buf, r.pos, r.parentWidth))
	case types.TypeIndirectUint:
		return float64(utils.ReadSizedUint(r.buf, r.indirect(), r.byteWidth))
	case types.TypeString:
		v, err := strconv.ParseFloat(r.AsString().String(), 64)
		if err != nil {
			return 0
		}
		return v
	case types.TypeVector, types.TypeMap:
		return float64(r.AsVector().Size())
	case types.TypeVectorTyped:
		return float64(r.AsTypedVector().Size())
	default:
		return 0
	}
}

func (r Reference) AsFloat32() float32 { return float32(r.AsFloat64()) }

// AsKey returns the key bytes as a string, or "" for non-keys.
func (r Reference) AsKey() string {
	if r.typ != types.TypeKey {
		return ""
	}
	return string(cstr(r.buf, r.indirect()))
}

// AsString returns a view of the string payload, or the empty string view
// for non-strings.
func (r Reference) AsString() String {
	if r.typ != types.TypeString {
		return EmptyString()
	}
	return String{Object{buf: r.buf, pos: r.indirect(), byteWidth: r.byteWidth}}
}

// AsVector returns a view of a vector or map payload, or the empty vector
// view otherwise.
func (r Reference) AsVector() Vector {
	if r.typ == types.TypeVector || r.typ == types.TypeMap {
		return Vector{Object{buf: r.buf, pos: r.indirect(), byteWidth: r.byteWidth}}
	}
	return EmptyVector()
}

// AsTypedVector returns a view of a typed vector payload, or the empty
// typed vector view otherwise.
func (r Reference) AsTypedVector() TypedVector {
	if r.typ == types.TypeVectorTyped {
		return TypedVector{
			Object: Object{buf: r.buf, pos: r.indirect(), byteWidth: r.byteWidth},
			elem:   r.vt.Elem(),
		}
	}
	return EmptyTypedVector()
}

// AsMap returns a view of a map payload, or the empty map view otherwise.
func (r Reference) AsMap() Map {
	if r.typ != types.TypeMap {
		return EmptyMap()
	}
	return Map{Vector{Object{buf: r.buf, pos: r.indirect(), byteWidth: r.byteWidth}}}
}

// ToString renders any value as a string.
func (r Reference) ToString() string {
	switch {
	case r.typ == types.TypeString:
		return r.AsString().String()
	case r.IsKey():
		return r.AsKey()
	case r.IsInt():
		return strconv.FormatInt(r.AsInt64(), 10)
	case r.IsUint():
		return strconv.FormatUint(r.AsUint64(), 10)
	case r.IsFloat():
		return strconv.FormatFloat(r.AsFloat64(), 'g', -1, 64)
	case r.IsNull():
		return "null"
	case r.IsMap():
		return "{..}"
	case r.IsVector() || r.IsTypedVector():
		return "[..]"
	default:
		return "(?)"
	}
}

// Object is a sized region: byteWidth bytes immediately before pos hold
// the element count (or byte length, for strings).
type Object struct {
	buf       []byte
	pos       int
	byteWidth int
}

// Size returns the element count stored before the payload.
func (o Object) Size() int {
	return int(utils.ReadSizedUint(o.buf, o.pos-o.byteWidth, o.byteWidth))
}

// String is a length-prefixed byte sequence with a trailing NUL.
type String struct {
	Object
}

// EmptyString is the stand-in for failed string reads.
func EmptyString() String {
	return String{Object{buf: emptyStringData, pos: 1, byteWidth: 1}}
}

// Len returns the byte length, excluding the NUL terminator.
func (s String) Len() int {
	return s.Size()
}

// Bytes returns the string payload, borrowing the underlying buffer.
func (s String) Bytes() []byte {
	n := s.Size()
	if s.pos < 0 || s.pos+n > len(s.buf) {
		return nil
	}
	return s.buf[s.pos : s.pos+n]
}

// String returns a copy of the payload.
func (s String) String() string {
	return string(s.Bytes())
}

// UnsafeString views the payload as a string without copying. The result
// is valid only while the underlying buffer is.
func (s String) UnsafeString() string {
	return utils.BytesString(s.Bytes())
}

// Vector is a heterogeneous sequence: size slots of byteWidth bytes, then
// size packed type bytes.
type Vector struct {
	Object
}

// EmptyVector is the stand-in for failed vector reads.
func EmptyVector() Vector {
	return Vector{Object{buf: emptyVectorData, pos: 1, byteWidth: 1}}
}

// At returns the i-th element, or a null reference out of range.
func (v Vector) At(i int) Reference {
	l := v.Size()
	if i < 0 || i >= l {
		return NullReference()
	}
	typePos := v.pos + l*v.byteWidth + i
	if typePos >= len(v.buf) {
		return NullReference()
	}
	return NewReference(v.buf, v.pos+i*v.byteWidth, v.byteWidth, v.buf[typePos])
}

// TypedVector is a homogeneous sequence with one shared element type and
// no per-element type bytes.
type TypedVector struct {
	Object
	elem types.Type
}

// EmptyTypedVector is the stand-in for failed typed vector reads.
func EmptyTypedVector() TypedVector {
	return TypedVector{Object: Object{buf: emptyVectorData, pos: 1, byteWidth: 1}, elem: types.TypeNull}
}

// ElemType returns the shared element type.
func (v TypedVector) ElemType() types.Type {
	return v.elem
}

// At returns the i-th element, or a null reference out of range.
func (v TypedVector) At(i int) Reference {
	if i < 0 || i >= v.Size() {
		return NullReference()
	}
	return Reference{
		buf:         v.buf,
		pos:         v.pos + i*v.byteWidth,
		parentWidth: v.byteWidth,
		byteWidth:   1,
		typ:         v.elem,
		vt:          types.VectorNone,
	}
}

// Map is a vector of values with a sorted keys vector reachable through
// the two header fields before the size.
type Map struct {
	Vector
}

// EmptyMap is the stand-in for failed map reads.
func EmptyMap() Map {
	return Map{Vector{Object{buf: emptyMapData, pos: 4, byteWidth: 1}}}
}

// Keys returns the sorted keys vector.
func (m Map) Keys() TypedVector {
	off := m.pos - 3*m.byteWidth
	return TypedVector{
		Object: Object{
			buf:       m.buf,
			pos:       indirect(m.buf, off, m.byteWidth),
			byteWidth: int(utils.ReadSizedUint(m.buf, off+m.byteWidth, m.byteWidth)),
		},
		elem: types.TypeKey,
	}
}

// Get looks key up by binary search over the sorted keys vector and
// returns the corresponding value, or a null reference on a miss.
func (m Map) Get(key string) Reference {
	keys := m.Keys()
	want := utils.StringBytes(key)
	// Each key element is a relative offset at the keys vector's own
	// width; resolve before comparing.
	cmp := func(i int) int {
		elemPos := keys.pos + i*keys.byteWidth
		return bytes.Compare(cstr(keys.buf, indirect(keys.buf, elemPos, keys.byteWidth)), want)
	}
	n := keys.Size()
	i := sort.Search(n, func(i int) bool { return cmp(i) >= 0 })
	if i >= n || cmp(i) != 0 {
		return NullReference()
	}
	return m.At(i)
}
