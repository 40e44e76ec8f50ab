package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeKey renders a Key as a byte string whose lexicographic order
// agrees with Key.Compare, so changelog (which only ever compares raw
// []byte) can order start/end keys without importing frame. This holds
// for non-negative int64 values, non-negative IEEE-754 floats, and
// string/byte columns — the ranges a time-series index realistically
// takes (timestamps, monotonic ids, labels).
func EncodeKey(schema Schema, k Key) []byte {
	idx := schema.IndexColumns()
	var buf bytes.Buffer
	for i, c := range idx {
		if i >= len(k) {
			break
		}
		switch c.DType {
		case Int64:
			var tmp [8]byte
			binary.BigEndian.PutUint64(tmp[:], uint64(k[i].(int64)))
			buf.Write(tmp[:])
		case Float64:
			var tmp [8]byte
			binary.BigEndian.PutUint64(tmp[:], math.Float64bits(k[i].(float64)))
			buf.Write(tmp[:])
		case String:
			s := k[i].(string)
			writeUvarint(&buf, uint64(len(s)))
			buf.WriteString(s)
		case Bytes:
			b := k[i].([]byte)
			writeUvarint(&buf, uint64(len(b)))
			buf.Write(b)
		}
	}
	return buf.Bytes()
}

// DecodeKey is EncodeKey's inverse.
func DecodeKey(schema Schema, raw []byte) (Key, error) {
	idx := schema.IndexColumns()
	r := bytes.NewReader(raw)
	k := make(Key, len(idx))
	for i, c := range idx {
		switch c.DType {
		case Int64:
			var tmp [8]byte
			if _, err := readFull(r, tmp[:]); err != nil {
				return nil, fmt.Errorf("frame: decode key column %q: %w", c.Name, err)
			}
			k[i] = int64(binary.BigEndian.Uint64(tmp[:]))
		case Float64:
			var tmp [8]byte
			if _, err := readFull(r, tmp[:]); err != nil {
				return nil, fmt.Errorf("frame: decode key column %q: %w", c.Name, err)
			}
			k[i] = math.Float64frombits(binary.BigEndian.Uint64(tmp[:]))
		case String:
			b, err := readBytesVec(r)
			if err != nil {
				return nil, fmt.Errorf("frame: decode key column %q: %w", c.Name, err)
			}
			k[i] = string(b)
		case Bytes:
			b, err := readBytesVec(r)
			if err != nil {
				return nil, fmt.Errorf("frame: decode key column %q: %w", c.Name, err)
			}
			k[i] = b
		}
	}
	return k, nil
}

func readFull(r *bytes.Reader, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		m, err := r.Read(p[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, fmt.Errorf("frame: short read")
		}
	}
	return n, nil
}

func readBytesVec(r *bytes.Reader) ([]byte, error) {
	l, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, l)
	if _, err := readFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
