package utils

import (
	"encoding/binary"
	"math"
	"sort"
	"unsafe"
)

func SortKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PaddingBytes returns how many zero bytes must follow a buffer of length
// bufSize so that the next write lands on a byteWidth boundary.
// byteWidth must be a power of two.
func PaddingBytes(bufSize, byteWidth int) int {
	return (^bufSize + 1) & (byteWidth - 1)
}

// AppendSized appends v little-endian using exactly byteWidth bytes.
// Callers guarantee v fits.
func AppendSized(buf []byte, v uint64, byteWidth int) []byte {
	switch byteWidth {
	case 1:
		return append(buf, byte(v))
	case 2:
		return binary.LittleEndian.AppendUint16(buf, uint16(v))
	case 4:
		return binary.LittleEndian.AppendUint32(buf, uint32(v))
	default:
		return binary.LittleEndian.AppendUint64(buf, v)
	}
}

// ReadSizedUint reads a little-endian unsigned scalar of byteWidth bytes
// at pos. Out-of-range reads yield 0.
func ReadSizedUint(buf []byte, pos, byteWidth int) uint64 {
	if pos < 0 || pos+byteWidth > len(buf) {
		return 0
	}
	switch byteWidth {
	case 1:
		return uint64(buf[pos])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf[pos:]))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf[pos:]))
	default:
		return binary.LittleEndian.Uint64(buf[pos:])
	}
}

// ReadSizedInt reads a little-endian signed scalar of byteWidth bytes at
// pos, sign-extended to 64 bits. Out-of-range reads yield 0.
func ReadSizedInt(buf []byte, pos, byteWidth int) int64 {
	if pos < 0 || pos+byteWidth > len(buf) {
		return 0
	}
	switch byteWidth {
	case 1:
		return int64(int8(buf[pos]))
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(buf[pos:])))
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(buf[pos:])))
	default:
		return int64(binary.LittleEndian.Uint64(buf[pos:]))
	}
}

// ReadSizedFloat reads an IEEE-754 scalar of byteWidth bytes at pos.
// Widths below 4 have no float encoding and yield 0.
func ReadSizedFloat(buf []byte, pos, byteWidth int) float64 {
	if pos < 0 || pos+byteWidth > len(buf) {
		return 0
	}
	switch byteWidth {
	case 4:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[pos:])))
	case 8:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf[pos:]))
	default:
		return 0
	}
}

// StringBytes views the bytes of s without copying.
func StringBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// BytesString views b as a string without copying.
func BytesString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
