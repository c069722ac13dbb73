// Package jsonconv converts JSON documents to and from the schemaless
// binary format. Numbers keep their integer identity where the JSON text
// has one; object keys come back in the format's sorted key order.
// The format has no bool type: JSON booleans encode as unsigned 0/1 and
// come back as the numbers 0 and 1.
package jsonconv

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"

	"github.com/quickwritereader/schemaless/access"
	"github.com/quickwritereader/schemaless/utils"
)

// Pack encodes a JSON document into a finished schemaless buffer.
func Pack(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "jsonconv.Pack: decode")
	}

	b := access.GetBuilder()
	defer access.ReleaseBuilder(b)
	if err := addJSON(b, v); err != nil {
		return nil, errors.Wrap(err, "jsonconv.Pack")
	}
	if err := b.Finish(); err != nil {
		return nil, errors.Wrap(err, "jsonconv.Pack")
	}
	buf, err := b.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "jsonconv.Pack")
	}
	// The builder goes back to the pool; detach the result from it.
	return append([]byte(nil), buf...), nil
}

// Unpack renders a finished schemaless buffer as JSON.
func Unpack(buf []byte) ([]byte, error) {
	v, err := access.UnpackOrdered(buf)
	if err != nil {
		return nil, errors.Wrap(err, "jsonconv.Unpack")
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "jsonconv.Unpack: marshal")
	}
	return out, nil
}

func addJSON(b *access.Builder, v any) error {
	switch val := v.(type) {
	case nil:
		b.AddNull()
	case bool:
		b.AddBool(val)
	case string:
		b.AddString(val)
	case json.Number:
		addNumber(b, val)
	case []any:
		start := b.BeginVector()
		for i, elem := range val {
			if err := addJSON(b, elem); err != nil {
				return errors.Wrapf(err, "element %d", i)
			}
		}
		return b.EndVector(start, false)
	case map[string]any:
		start := b.BeginMap()
		for _, k := range utils.SortKeys(val) {
			b.AddKey(k)
			if err := addJSON(b, val[k]); err != nil {
				return errors.Wrapf(err, "key %q", k)
			}
		}
		return b.EndMap(start)
	default:
		return errors.Newf("unsupported JSON value %T", v)
	}
	return nil
}

// addNumber keeps integers integral: signed first, then unsigned for
// values past MaxInt64, floats for everything else.
func addNumber(b *access.Builder, n json.Number) {
	s := n.String()
	if i, err := n.Int64(); err == nil {
		b.AddInt(i)
		return
	}
	if !strings.ContainsAny(s, ".eE-") {
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			b.AddUint(u)
			return
		}
	}
	f, err := n.Float64()
	if err != nil {
		b.AddNull()
		return
	}
	b.AddFloat64(f)
}
