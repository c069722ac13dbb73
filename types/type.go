package types

// BitWidth is a 2-bit code selecting one of the four slot widths.
type BitWidth uint8

const (
	Width8 BitWidth = iota
	Width16
	Width32
	Width64
)

// ByteWidth returns the number of bytes a slot of this width occupies.
func (w BitWidth) ByteWidth() int {
	return 1 << w
}

// WidthForBytes maps a byte count in {1,2,4,8} back to its width code.
// Other counts return Width64.
func WidthForBytes(n int) BitWidth {
	switch n {
	case 1:
		return Width8
	case 2:
		return Width16
	case 4:
		return Width32
	default:
		return Width64
	}
}

// Type is a 4-bit tag encoded into bits [5:2] of the packed type byte.
// Types up to Float are stored inline; everything above is reached
// through a backward relative offset.
type Type uint8

const (
	TypeNull          Type = 0
	TypeInt           Type = 1
	TypeUint          Type = 2
	TypeFloat         Type = 3
	TypeIndirectInt   Type = 4
	TypeIndirectUint  Type = 5
	TypeIndirectFloat Type = 6
	TypeString        Type = 7
	TypeKey           Type = 8
	TypeVector        Type = 9
	TypeVectorTyped   Type = 10
	TypeMap           Type = 11
)

// String returns the human-readable name of the type
func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeInt:
		return "int"
	case TypeUint:
		return "uint"
	case TypeFloat:
		return "float"
	case TypeIndirectInt:
		return "indirect_int"
	case TypeIndirectUint:
		return "indirect_uint"
	case TypeIndirectFloat:
		return "indirect_float"
	case TypeString:
		return "string"
	case TypeKey:
		return "key"
	case TypeVector:
		return "vector"
	case TypeVectorTyped:
		return "typed_vector"
	case TypeMap:
		return "map"
	default:
		return "invalid"
	}
}

// IsInline reports whether values of this type live in the parent's slot.
func (t Type) IsInline() bool {
	return t <= TypeFloat
}

// VectorType is a 2-bit element tag in bits [7:6] of the packed type byte,
// meaningful only for typed vectors.
type VectorType uint8

const (
	VectorNone  VectorType = 0 // ignored outside typed vectors
	VectorKey   VectorType = 0
	VectorInt   VectorType = 1
	VectorUint  VectorType = 2
	VectorFloat VectorType = 3
)

// IsVectorElem reports whether t may be an element of a typed vector.
func IsVectorElem(t Type) bool {
	return t == TypeKey || (t >= TypeInt && t <= TypeFloat)
}

// ToVectorType folds a scalar or key type into its 2-bit element tag.
func ToVectorType(t Type) VectorType {
	if t == TypeKey {
		return VectorKey
	}
	return VectorType(t)
}

// Elem expands the element tag back into a Type. VectorKey and VectorNone
// share code 0; typed vectors of keys are the only users of that code.
func (vt VectorType) Elem() Type {
	if vt == VectorKey {
		return TypeKey
	}
	return Type(vt)
}

// PackType encodes (width, type, vector element type) into one byte:
// bits [1:0] width code, [5:2] type code, [7:6] element tag.
func PackType(w BitWidth, t Type, vt VectorType) byte {
	return byte(w) | byte(t)<<2 | byte(vt)<<6
}

// UnpackType splits a packed type byte.
func UnpackType(p byte) (w BitWidth, t Type, vt VectorType) {
	return BitWidth(p & 3), Type(p >> 2 & 0xF), VectorType(p >> 6)
}

// NullPackedType is the packed byte of an 8-bit null reference.
func NullPackedType() byte {
	return PackType(Width8, TypeNull, VectorNone)
}

// WidthUint returns the smallest width whose slot holds u.
func WidthUint(u uint64) BitWidth {
	if u&0xFFFFFFFFFFFFFF00 == 0 {
		return Width8
	}
	if u&0xFFFFFFFFFFFF0000 == 0 {
		return Width16
	}
	if u&0xFFFFFFFF00000000 == 0 {
		return Width32
	}
	return Width64
}

// WidthInt returns the smallest width whose two's-complement slot holds i,
// sign bit included.
func WidthInt(i int64) BitWidth {
	u := uint64(i) << 1
	if i < 0 {
		u = ^u
	}
	return WidthUint(u)
}
