package access

import (
	"bytes"
	"math"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/quickwritereader/schemaless/types"
	"github.com/quickwritereader/schemaless/utils"
)

var builderPool = sync.Pool{
	New: func() interface{} {
		return &Builder{
			buf:   make([]byte, 0, 256),
			stack: make([]value, 0, 16),
		}
	},
}

// GetBuilder returns a reset Builder from the pool.
func GetBuilder() *Builder {
	b := builderPool.Get().(*Builder)
	b.Reset()
	return b
}

// ReleaseBuilder returns a builder to the pool. The caller must not use b
// or any buffer obtained from it afterwards.
func ReleaseBuilder(b *Builder) {
	builderPool.Put(b)
}

// value is a pending stack entry: a scalar payload or the absolute buffer
// offset of an already-written object, plus the metadata needed to emit it
// into a parent slot later.
type value struct {
	d     uint64 // scalar bits or absolute target offset
	f     float64
	typ   types.Type
	vt    types.VectorType // element tag, for vectors
	width types.BitWidth   // scalar width, string length width, or container slot width
}

func (v value) storedWidth(parent types.BitWidth) types.BitWidth {
	if v.typ.IsInline() {
		return maxWidth(v.width, parent)
	}
	return v.width
}

func (v value) storedPackedType(parent types.BitWidth) byte {
	return types.PackType(v.storedWidth(parent), v.typ, v.vt)
}

// elemWidth returns the width this value needs when written as element
// elemIndex of a container starting at the current buffer end. Inline
// values know their width; offset values must be probed per candidate
// width, because the slot's future position (and hence the relative
// offset) moves with the width being probed.
func (v value) elemWidth(bufSize, elemIndex int) types.BitWidth {
	if v.typ.IsInline() {
		return v.width
	}
	for byteWidth := 1; byteWidth <= 8; byteWidth *= 2 {
		offsetLoc := bufSize + utils.PaddingBytes(bufSize, byteWidth) + elemIndex*byteWidth
		rel := uint64(offsetLoc) - v.d
		if types.WidthUint(rel).ByteWidth() == byteWidth {
			return types.WidthForBytes(byteWidth)
		}
	}
	return types.Width64
}

func maxWidth(a, b types.BitWidth) types.BitWidth {
	if a > b {
		return a
	}
	return b
}

// Builder emits a buffer from a depth-first stream of value events. It is
// not safe for concurrent use.
type Builder struct {
	buf      []byte
	stack    []value
	finished bool
	err      error
}

// NewBuilder initializes a builder with a default initial buffer.
func NewBuilder() *Builder {
	return NewBuilderSize(256)
}

// NewBuilderSize initializes a builder with an initial buffer capacity.
func NewBuilderSize(n int) *Builder {
	return &Builder{
		buf:   make([]byte, 0, n),
		stack: make([]value, 0, 16),
	}
}

// Reset clears the builder for reuse, keeping allocated capacity.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
	b.stack = b.stack[:0]
	b.finished = false
	b.err = nil
}

// Err returns the first error the builder ran into, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) mutable() bool {
	if b.finished {
		b.fail(ErrAlreadyFinished)
	}
	return b.err == nil && !b.finished
}

// align pads the buffer with zeros to the byte width of w and returns that
// byte width.
func (b *Builder) align(w types.BitWidth) int {
	byteWidth := w.ByteWidth()
	for i := utils.PaddingBytes(len(b.buf), byteWidth); i > 0; i-- {
		b.buf = append(b.buf, 0)
	}
	return byteWidth
}

func (b *Builder) writeSized(v uint64, byteWidth int) {
	b.buf = utils.AppendSized(b.buf, v, byteWidth)
}

func (b *Builder) writeFloat(f float64, byteWidth int) {
	switch byteWidth {
	case 8:
		b.writeSized(math.Float64bits(f), 8)
	case 4:
		b.writeSized(uint64(math.Float32bits(float32(f))), 4)
	default:
		// 8/16-bit floats have no encoding; the builder never chooses
		// these widths for float slots.
		b.writeSized(0, byteWidth)
	}
}

// writeOffset converts the absolute target position into an offset
// relative to the field being written and emits it at byteWidth bytes.
func (b *Builder) writeOffset(target uint64, byteWidth int) {
	rel := uint64(len(b.buf)) - target
	if byteWidth < 8 && rel >= uint64(1)<<(byteWidth*8) {
		b.fail(errors.AssertionFailedf(
			"relative offset %d does not fit %d bytes", rel, byteWidth))
		rel = 0
	}
	b.writeSized(rel, byteWidth)
}

func (b *Builder) writeAny(v value, byteWidth int) {
	switch v.typ {
	case types.TypeNull, types.TypeInt:
		b.writeSized(v.d, byteWidth)
	case types.TypeUint:
		b.writeSized(v.d, byteWidth)
	case types.TypeFloat:
		b.writeFloat(v.f, byteWidth)
	default:
		b.writeOffset(v.d, byteWidth)
	}
}

// AddNull pushes a null value.
func (b *Builder) AddNull() {
	if !b.mutable() {
		return
	}
	b.stack = append(b.stack, value{typ: types.TypeNull, width: types.Width8})
}

// AddInt pushes an inline signed integer.
func (b *Builder) AddInt(i int64) {
	if !b.mutable() {
		return
	}
	b.stack = append(b.stack, value{d: uint64(i), typ: types.TypeInt, width: types.WidthInt(i)})
}

// AddUint pushes an inline unsigned integer.
func (b *Builder) AddUint(u uint64) {
	if !b.mutable() {
		return
	}
	b.stack = append(b.stack, value{d: u, typ: types.TypeUint, width: types.WidthUint(u)})
}

// AddFloat32 pushes an inline 32-bit float.
func (b *Builder) AddFloat32(f float32) {
	if !b.mutable() {
		return
	}
	b.stack = append(b.stack, value{f: float64(f), typ: types.TypeFloat, width: types.Width32})
}

// AddFloat64 pushes an inline 64-bit float.
func (b *Builder) AddFloat64(f float64) {
	if !b.mutable() {
		return
	}
	b.stack = append(b.stack, value{f: f, typ: types.TypeFloat, width: types.Width64})
}

// AddBool pushes a boolean as an unsigned 0/1; the format has no bool type.
func (b *Builder) AddBool(v bool) {
	var u uint64
	if v {
		u = 1
	}
	b.AddUint(u)
}

// AddIndirectInt writes i to the buffer and pushes an offset to it, so a
// wide scalar can sit in a narrow parent slot.
func (b *Builder) AddIndirectInt(i int64) {
	if !b.mutable() {
		return
	}
	w := types.WidthInt(i)
	byteWidth := b.align(w)
	iloc := len(b.buf)
	b.writeSized(uint64(i), byteWidth)
	b.stack = append(b.stack, value{d: uint64(iloc), typ: types.TypeIndirectInt, width: w})
}

// AddIndirectUint writes u to the buffer and pushes an offset to it.
func (b *Builder) AddIndirectUint(u uint64) {
	if !b.mutable() {
		return
	}
	w := types.WidthUint(u)
	byteWidth := b.align(w)
	iloc := len(b.buf)
	b.writeSized(u, byteWidth)
	b.stack = append(b.stack, value{d: uint64(iloc), typ: types.TypeIndirectUint, width: w})
}

// AddIndirectFloat32 writes f to the buffer and pushes an offset to it.
func (b *Builder) AddIndirectFloat32(f float32) {
	if !b.mutable() {
		return
	}
	byteWidth := b.align(types.Width32)
	iloc := len(b.buf)
	b.writeFloat(float64(f), byteWidth)
	b.stack = append(b.stack, value{d: uint64(iloc), typ: types.TypeIndirectFloat, width: types.Width32})
}

// AddIndirectFloat64 writes f to the buffer and pushes an offset to it.
func (b *Builder) AddIndirectFloat64(f float64) {
	if !b.mutable() {
		return
	}
	byteWidth := b.align(types.Width64)
	iloc := len(b.buf)
	b.writeFloat(f, byteWidth)
	b.stack = append(b.stack, value{d: uint64(iloc), typ: types.TypeIndirectFloat, width: types.Width64})
}

// AddKey writes s as NUL-terminated bytes and pushes a key referencing it.
// The returned offset can be handed to AddKeyReuse to reference the same
// bytes again.
func (b *Builder) AddKey(s string) int {
	if !b.mutable() {
		return 0
	}
	sloc := len(b.buf)
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
	b.stack = append(b.stack, value{d: uint64(sloc), typ: types.TypeKey, width: types.Width8})
	return sloc
}

// AddKeyReuse pushes a key referencing bytes previously written by AddKey
// at offset. The wire format is unchanged; only the offset is shared.
func (b *Builder) AddKeyReuse(offset int) {
	if !b.mutable() {
		return
	}
	b.stack = append(b.stack, value{d: uint64(offset), typ: types.TypeKey, width: types.Width8})
}

// AddString writes s as length-prefixed, NUL-terminated bytes and pushes a
// string referencing it. Returns the absolute offset of the byte payload.
func (b *Builder) AddString(s string) int {
	return b.AddStringBytes(utils.StringBytes(s))
}

// AddStringBytes is AddString for raw bytes.
func (b *Builder) AddStringBytes(s []byte) int {
	if !b.mutable() {
		return 0
	}
	w := types.WidthUint(uint64(len(s)))
	byteWidth := b.align(w)
	b.writeSized(uint64(len(s)), byteWidth)
	sloc := len(b.buf)
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
	b.stack = append(b.stack, value{d: uint64(sloc), typ: types.TypeString, width: w})
	return sloc
}

// AddStringReuse pushes a string referencing bytes previously written by
// AddString at offset, whose length prefix was stored at width w.
func (b *Builder) AddStringReuse(offset int, w types.BitWidth) {
	if !b.mutable() {
		return
	}
	b.stack = append(b.stack, value{d: uint64(offset), typ: types.TypeString, width: w})
}

// BeginVector marks the stack depth where a vector's elements start.
func (b *Builder) BeginVector() int {
	return len(b.stack)
}

// BeginMap marks the stack depth where a map's key/value pairs start.
func (b *Builder) BeginMap() int {
	return len(b.stack)
}

// EndVector pops every value pushed since start and emits them as a
// vector. With typed set, elements share one type tag and no per-element
// type bytes are written.
func (b *Builder) EndVector(start int, typed bool) error {
	if !b.mutable() {
		return b.err
	}
	if start < 0 || start > len(b.stack) {
		err := errors.Wrapf(ErrUnbalancedContainers, "EndVector: marker %d outside stack of %d", start, len(b.stack))
		b.fail(err)
		return err
	}
	vec, err := b.createVector(start, len(b.stack)-start, 1, typed, false, 0, 0)
	if err != nil {
		b.fail(err)
		return err
	}
	b.stack = append(b.stack[:start], vec)
	return nil
}

// EndMap pops the key/value pairs pushed since start, sorts them by key
// bytes, and emits the keys vector followed by the value vector.
func (b *Builder) EndMap(start int) error {
	if !b.mutable() {
		return b.err
	}
	if start < 0 || start > len(b.stack) {
		err := errors.Wrapf(ErrUnbalancedContainers, "EndMap: marker %d outside stack of %d", start, len(b.stack))
		b.fail(err)
		return err
	}
	l := len(b.stack) - start
	if l&1 != 0 {
		err := errors.Wrapf(ErrMalformedMap, "EndMap: %d entries, want interleaved key/value pairs", l)
		b.fail(err)
		return err
	}
	for i := start; i < len(b.stack); i += 2 {
		if b.stack[i].typ != types.TypeKey {
			err := errors.Wrapf(ErrMalformedMap, "EndMap: entry %d is %s, want key", i-start, b.stack[i].typ)
			b.fail(err)
			return err
		}
	}
	// Sort before any emission: createVector appends alignment bytes and
	// the comparator reads key bytes at their recorded offsets.
	sort.Sort(pairSorter{pairs: b.stack[start:], buf: b.buf})

	keys, err := b.createVector(start, l/2, 2, true, false, 0, 0)
	if err != nil {
		b.fail(err)
		return err
	}
	vec, err := b.createVector(start+1, l/2, 2, false, true, keys.d, uint64(keys.width.ByteWidth()))
	if err != nil {
		b.fail(err)
		return err
	}
	b.stack = append(b.stack[:start], vec)
	return nil
}

// Vector wraps f's pushes in BeginVector/EndVector.
func (b *Builder) Vector(f func()) error {
	start := b.BeginVector()
	f()
	return b.EndVector(start, false)
}

// TypedVector wraps f's pushes in BeginVector/EndVector with a shared
// element type.
func (b *Builder) TypedVector(f func()) error {
	start := b.BeginVector()
	f()
	return b.EndVector(start, true)
}

// Map wraps f's key/value pushes in BeginMap/EndMap.
func (b *Builder) Map(f func()) error {
	start := b.BeginMap()
	f()
	return b.EndMap(start)
}

// createVector emits the container for length stack entries starting at
// start, visiting every step-th entry. With hasKeys set it prefixes the
// keys header fields, making the result a map; keysTarget is the absolute
// position of the keys vector's data.
func (b *Builder) createVector(start, length, step int, typed bool, hasKeys bool, keysTarget, keysByteWidth uint64) (value, error) {
	bitWidth := types.WidthUint(uint64(length))
	prefix := 1
	if hasKeys {
		// The header offset is the first slot written after alignment;
		// probe candidate widths for it like any other offset field.
		hdr := value{d: keysTarget, typ: types.TypeMap}
		bitWidth = maxWidth(bitWidth, hdr.elemWidth(len(b.buf), 0))
		prefix += 2
	}
	vectorTyp := types.TypeKey
	for i := 0; i < length; i++ {
		elem := b.stack[start+i*step]
		bitWidth = maxWidth(bitWidth, elem.elemWidth(len(b.buf), i+prefix))
		if typed {
			if i == 0 {
				vectorTyp = elem.typ
			} else if elem.typ != vectorTyp {
				return value{}, errors.Wrapf(ErrTypedVectorTypeMismatch,
					"element %d is %s, want %s", i, elem.typ, vectorTyp)
			}
		}
	}
	if typed && !types.IsVectorElem(vectorTyp) {
		return value{}, errors.Wrapf(ErrTypedVectorTypeMismatch,
			"%s cannot be a typed vector element", vectorTyp)
	}
	byteWidth := b.align(bitWidth)
	if hasKeys {
		b.writeOffset(keysTarget, byteWidth)
		b.writeSized(keysByteWidth, byteWidth)
	}
	b.writeSized(uint64(length), byteWidth)
	vloc := len(b.buf)
	for i := 0; i < length; i++ {
		b.writeAny(b.stack[start+i*step], byteWidth)
	}
	if !typed {
		for i := 0; i < length; i++ {
			b.buf = append(b.buf, b.stack[start+i*step].storedPackedType(bitWidth))
		}
	}
	typ := types.TypeVector
	switch {
	case hasKeys:
		typ = types.TypeMap
	case typed:
		typ = types.TypeVectorTyped
	}
	return value{d: uint64(vloc), typ: typ, vt: types.ToVectorType(vectorTyp), width: bitWidth}, nil
}

// Finish writes the root value and the two-byte trailer. The stack must
// hold exactly one value.
func (b *Builder) Finish() error {
	if !b.mutable() {
		return b.err
	}
	if len(b.stack) != 1 {
		err := errors.Wrapf(ErrUnbalancedContainers, "Finish: %d values on stack, want 1", len(b.stack))
		b.fail(err)
		return err
	}
	root := b.stack[0]
	byteWidth := b.align(root.elemWidth(len(b.buf), 0))
	b.writeAny(root, byteWidth)
	b.buf = append(b.buf, root.storedPackedType(types.Width8))
	b.buf = append(b.buf, byte(byteWidth))
	b.finished = true
	return b.err
}

// Bytes returns the finished buffer. The slice aliases the builder's
// internal storage and is invalidated by Reset.
func (b *Builder) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.finished {
		return nil, ErrNotFinished
	}
	return b.buf, nil
}

// pairSorter orders key/value pairs on the value stack by the
// NUL-terminated key bytes they reference, without reinterpreting the
// stack storage.
type pairSorter struct {
	pairs []value
	buf   []byte
}

func (s pairSorter) Len() int {
	return len(s.pairs) / 2
}

func (s pairSorter) Less(i, j int) bool {
	return bytes.Compare(s.keyBytes(i), s.keyBytes(j)) < 0
}

func (s pairSorter) Swap(i, j int) {
	s.pairs[2*i], s.pairs[2*j] = s.pairs[2*j], s.pairs[2*i]
	s.pairs[2*i+1], s.pairs[2*j+1] = s.pairs[2*j+1], s.pairs[2*i+1]
}

func (s pairSorter) keyBytes(i int) []byte {
	k := s.buf[s.pairs[2*i].d:]
	if n := bytes.IndexByte(k, 0); n >= 0 {
		k = k[:n]
	}
	return k
}
