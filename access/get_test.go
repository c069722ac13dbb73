package access

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickwritereader/schemaless/types"
)

func TestGetRoot_ExplicitByteMatch(t *testing.T) {
	// [-4, "Hello", 1995] built by hand; see the builder test for the
	// matching encode direction.
	buf := []byte{
		0x05, 'H', 'e', 'l', 'l', 'o', 0x00,
		0x00,
		0x03, 0x00,
		0xFC, 0xFF,
		0x0B, 0x00,
		0xCB, 0x07,
		0x05, 0x1C, 0x09,
		0x09,
		0x25,
		0x01,
	}

	root, err := GetRoot(buf)
	require.NoError(t, err)
	require.True(t, root.IsVector())

	vec := root.AsVector()
	require.Equal(t, 3, vec.Size())

	assert.Equal(t, int32(-4), vec.At(0).AsInt32())
	assert.Equal(t, "Hello", vec.At(1).AsString().String())
	assert.Equal(t, 5, vec.At(1).AsString().Len())
	assert.Equal(t, uint32(1995), vec.At(2).AsUint32())

	// Out of range resolves to null.
	assert.True(t, vec.At(3).IsNull())
	assert.True(t, vec.At(-1).IsNull())
}

func TestGetRoot_InvalidBuffers(t *testing.T) {
	_, err := GetRoot(nil)
	assert.ErrorIs(t, err, ErrInvalidBuffer)

	_, err = GetRoot([]byte{0, 0})
	assert.ErrorIs(t, err, ErrInvalidBuffer)

	// Root width byte not a power of two.
	_, err = GetRoot([]byte{0, 0, 3})
	assert.ErrorIs(t, err, ErrInvalidBuffer)

	// Declared width reaches before the buffer start.
	_, err = GetRoot([]byte{0, 0, 8})
	assert.ErrorIs(t, err, ErrInvalidBuffer)
}

func TestReference_ScalarRoundTrips(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 127, -128, 128, -129, 32767, 32768, -40000, 1 << 40, -(1 << 40)} {
		b := NewBuilder()
		b.AddInt(v)
		buf := finish(t, b)
		root, err := GetRoot(buf)
		require.NoError(t, err)
		assert.Equal(t, v, root.AsInt64(), "int %d", v)
	}
	for _, v := range []uint64{0, 255, 256, 65536, 1 << 32, 1<<64 - 1} {
		b := NewBuilder()
		b.AddUint(v)
		buf := finish(t, b)
		root, err := GetRoot(buf)
		require.NoError(t, err)
		assert.Equal(t, v, root.AsUint64(), "uint %d", v)
	}
	for _, v := range []float32{0, 1.5, -2.25, 3.4e38} {
		b := NewBuilder()
		b.AddFloat32(v)
		buf := finish(t, b)
		root, err := GetRoot(buf)
		require.NoError(t, err)
		assert.Equal(t, v, root.AsFloat32(), "float32 %v", v)
	}
	for _, v := range []float64{0, 1.5, -2.25, 1.7976931348623157e308} {
		b := NewBuilder()
		b.AddFloat64(v)
		buf := finish(t, b)
		root, err := GetRoot(buf)
		require.NoError(t, err)
		assert.Equal(t, v, root.AsFloat64(), "float64 %v", v)
	}
}

func TestReference_IndirectScalars(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Vector(func() {
		b.AddIndirectInt(-(1 << 40))
		b.AddIndirectUint(1 << 40)
		b.AddIndirectFloat32(1.5)
		b.AddIndirectFloat64(2.25)
	}))
	buf := finish(t, b)

	root, err := GetRoot(buf)
	require.NoError(t, err)
	vec := root.AsVector()
	require.Equal(t, 4, vec.Size())

	assert.Equal(t, int64(-(1 << 40)), vec.At(0).AsInt64())
	assert.True(t, vec.At(0).IsInt())
	assert.Equal(t, uint64(1)<<40, vec.At(1).AsUint64())
	assert.Equal(t, float32(1.5), vec.At(2).AsFloat32())
	assert.Equal(t, 2.25, vec.At(3).AsFloat64())
}

func TestReference_Strings(t *testing.T) {
	cases := []string{"", "a", "Hello", "héllo wörld", "\x01\x02binary\xff"}
	for _, s := range cases {
		b := NewBuilder()
		b.AddString(s)
		buf := finish(t, b)
		root, err := GetRoot(buf)
		require.NoError(t, err)
		require.True(t, root.IsString())
		assert.Equal(t, s, root.AsString().String(), "%q", s)
		assert.Equal(t, len(s), root.AsString().Len())
		assert.Equal(t, s, root.AsString().UnsafeString())
	}
}

func TestReference_LongString(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = byte('a' + i%26)
	}
	b := NewBuilder()
	b.AddStringBytes(long)
	buf := finish(t, b)

	root, err := GetRoot(buf)
	require.NoError(t, err)
	assert.Equal(t, long, root.AsString().Bytes())
	assert.Equal(t, 300, root.AsString().Len())
}

func TestReference_Coercions(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Vector(func() {
		b.AddInt(-7)
		b.AddUint(7)
		b.AddFloat64(7.9)
		b.AddString("42")
		b.AddString("3.5")
		b.AddString("junk")
		b.AddNull()
	}))
	buf := finish(t, b)

	root, err := GetRoot(buf)
	require.NoError(t, err)
	vec := root.AsVector()

	// Numeric cross-reads truncate.
	assert.Equal(t, float64(-7), vec.At(0).AsFloat64())
	assert.Equal(t, int64(7), vec.At(2).AsInt64())
	assert.Equal(t, uint64(7), vec.At(2).AsUint64())

	// Strings parse.
	assert.Equal(t, int64(42), vec.At(3).AsInt64())
	assert.Equal(t, uint64(42), vec.At(3).AsUint64())
	assert.Equal(t, 3.5, vec.At(4).AsFloat64())
	assert.Equal(t, int64(0), vec.At(5).AsInt64())

	// Containers read as their element count.
	assert.Equal(t, int64(7), root.AsInt64())
	assert.Equal(t, uint64(7), root.AsUint64())
	assert.Equal(t, float64(7), root.AsFloat64())

	// Nulls are zero.
	assert.Equal(t, int64(0), vec.At(6).AsInt64())
	assert.True(t, vec.At(6).IsNull())

	// Mismatched views return empty stand-ins, not errors.
	assert.Equal(t, "", vec.At(0).AsString().String())
	assert.Equal(t, 0, vec.At(0).AsVector().Size())
	assert.Equal(t, 0, vec.At(0).AsMap().Size())
	assert.Equal(t, 0, vec.At(0).AsTypedVector().Size())
	assert.Equal(t, "", vec.At(0).AsKey())
}

func TestReference_ToString(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Vector(func() {
		b.AddInt(-4)
		b.AddUint(7)
		b.AddFloat64(1.5)
		b.AddString("s")
		b.AddNull()
	}))
	buf := finish(t, b)

	root, err := GetRoot(buf)
	require.NoError(t, err)
	vec := root.AsVector()
	assert.Equal(t, "-4", vec.At(0).ToString())
	assert.Equal(t, "7", vec.At(1).ToString())
	assert.Equal(t, "1.5", vec.At(2).ToString())
	assert.Equal(t, "s", vec.At(3).ToString())
	assert.Equal(t, "null", vec.At(4).ToString())
	assert.Equal(t, "[..]", root.ToString())
}

func TestTypedVector_ElementsAndType(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.TypedVector(func() {
		b.AddInt(-1)
		b.AddInt(300)
		b.AddInt(-70000)
	}))
	buf := finish(t, b)

	root, err := GetRoot(buf)
	require.NoError(t, err)
	require.True(t, root.IsTypedVector())

	vec := root.AsTypedVector()
	require.Equal(t, 3, vec.Size())
	assert.Equal(t, types.TypeInt, vec.ElemType())
	assert.Equal(t, int64(-1), vec.At(0).AsInt64())
	assert.Equal(t, int64(300), vec.At(1).AsInt64())
	assert.Equal(t, int64(-70000), vec.At(2).AsInt64())
	assert.True(t, vec.At(3).IsNull())
}

func TestMap_SortedLookup(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Map(func() {
		b.AddKey("name")
		b.AddString("Pham Van Thong")
		b.AddKey("birth_year")
		b.AddUint(1995)
		b.AddKey("male")
		b.AddUint(1)
	}))
	buf := finish(t, b)

	root, err := GetRoot(buf)
	require.NoError(t, err)
	require.True(t, root.IsMap())

	m := root.AsMap()
	require.Equal(t, 3, m.Size())

	// Keys come back sorted regardless of push order.
	keys := m.Keys()
	require.Equal(t, 3, keys.Size())
	assert.Equal(t, "birth_year", keys.At(0).AsKey())
	assert.Equal(t, "male", keys.At(1).AsKey())
	assert.Equal(t, "name", keys.At(2).AsKey())

	name := m.Get("name")
	require.True(t, name.IsString())
	assert.Equal(t, "Pham Van Thong", name.AsString().String())
	assert.Equal(t, uint64(1995), m.Get("birth_year").AsUint64())
	assert.Equal(t, uint64(1), m.Get("male").AsUint64())

	assert.True(t, m.Get("unknown").IsNull())
	assert.True(t, m.Get("").IsNull())
	assert.True(t, m.Get("zzz").IsNull())
}

func TestMap_WideKeyOffsets(t *testing.T) {
	// Enough key bytes that the keys vector needs 16-bit offsets; the
	// lookup must branch to the matching read width.
	b := NewBuilder()
	n := 40
	require.NoError(t, b.Map(func() {
		for i := 0; i < n; i++ {
			b.AddKey(fmt.Sprintf("key-%02d-padding-padding", i))
			b.AddUint(uint64(i))
		}
	}))
	buf := finish(t, b)

	root, err := GetRoot(buf)
	require.NoError(t, err)
	m := root.AsMap()
	require.Equal(t, n, m.Size())

	for i := 0; i < n; i++ {
		k := fmt.Sprintf("key-%02d-padding-padding", i)
		assert.Equal(t, uint64(i), m.Get(k).AsUint64(), "%s", k)
	}
	assert.True(t, m.Get("key-99-padding-padding").IsNull())
}

func TestMap_Nested(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Map(func() {
		b.AddKey("scores")
		require.NoError(t, b.Vector(func() {
			require.NoError(t, b.Map(func() {
				b.AddKey("subject")
				b.AddString("Math")
				b.AddKey("score")
				b.AddUint(7)
			}))
			require.NoError(t, b.Map(func() {
				b.AddKey("subject")
				b.AddString("Physics")
				b.AddKey("score")
				b.AddUint(8)
			}))
		}))
	}))
	buf := finish(t, b)

	root, err := GetRoot(buf)
	require.NoError(t, err)
	scores := root.AsMap().Get("scores").AsVector()
	require.Equal(t, 2, scores.Size())

	second := scores.At(1).AsMap()
	assert.Equal(t, "Physics", second.Get("subject").AsString().String())
	assert.Equal(t, uint64(8), second.Get("score").AsUint64())

	first := scores.At(0).AsMap()
	assert.Equal(t, "Math", first.Get("subject").AsString().String())
	assert.Equal(t, uint64(7), first.Get("score").AsUint64())
}

func TestMap_EmptyStandIns(t *testing.T) {
	assert.Equal(t, 0, EmptyString().Len())
	assert.Equal(t, "", EmptyString().String())
	assert.Equal(t, 0, EmptyVector().Size())
	assert.Equal(t, 0, EmptyTypedVector().Size())
	assert.Equal(t, 0, EmptyMap().Size())
	assert.Equal(t, 0, EmptyMap().Keys().Size())
	assert.True(t, EmptyMap().Get("x").IsNull())
	assert.True(t, NullReference().IsNull())
}

func TestVector_Iterators(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Map(func() {
		b.AddKey("b")
		b.AddUint(2)
		b.AddKey("a")
		b.AddUint(1)
	}))
	buf := finish(t, b)

	root, err := GetRoot(buf)
	require.NoError(t, err)

	var keys []string
	var vals []uint64
	for k, v := range root.AsMap().All() {
		keys = append(keys, k)
		vals = append(vals, v.AsUint64())
	}
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, []uint64{1, 2}, vals)

	b2 := NewBuilder()
	require.NoError(t, b2.TypedVector(func() {
		b2.AddUint(10)
		b2.AddUint(20)
	}))
	buf2 := finish(t, b2)
	root2, err := GetRoot(buf2)
	require.NoError(t, err)
	var got []uint64
	for _, v := range root2.AsTypedVector().All() {
		got = append(got, v.AsUint64())
	}
	assert.Equal(t, []uint64{10, 20}, got)
}
