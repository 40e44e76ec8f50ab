package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Codec serializes and deserializes a Frame to an opaque byte chunk.
// series stores the encoded bytes verbatim, content-addressed by their
// digest; it never interprets them. A codec's encoding must be
// deterministic: the same Frame always produces the same bytes, since
// the digest is the content address series writes under.
type Codec interface {
	Encode(f *Frame) ([]byte, error)
	Decode(schema Schema, data []byte) (*Frame, error)
}

// SimpleCodec is a straightforward column-major binary codec: fixed
// columns are written as flat arrays, variable-length columns (string,
// bytes) as length-prefixed records. It is not compressed or
// vectorized; it exists to give series something concrete to round-trip
// through.
type SimpleCodec struct{}

var _ Codec = SimpleCodec{}

const simpleCodecMagic = "VSC1"

func (SimpleCodec) Encode(f *Frame) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(simpleCodecMagic)
	writeUvarint(&buf, uint64(f.Len()))
	writeUvarint(&buf, uint64(len(f.Schema.Columns)))
	for _, c := range f.Schema.Columns {
		if err := encodeColumn(&buf, c, f.columns[c.Name], f.Len()); err != nil {
			return nil, fmt.Errorf("frame: encode column %q: %w", c.Name, err)
		}
	}
	return buf.Bytes(), nil
}

func encodeColumn(buf *bytes.Buffer, c ColumnSpec, col any, n int) error {
	switch c.DType {
	case Int64:
		s := col.([]int64)
		for i := 0; i < n; i++ {
			var tmp [8]byte
			binary.BigEndian.PutUint64(tmp[:], uint64(s[i]))
			buf.Write(tmp[:])
		}
	case Float64:
		s := col.([]float64)
		for i := 0; i < n; i++ {
			var tmp [8]byte
			binary.BigEndian.PutUint64(tmp[:], math.Float64bits(s[i]))
			buf.Write(tmp[:])
		}
	case String:
		s := col.([]string)
		for i := 0; i < n; i++ {
			writeUvarint(buf, uint64(len(s[i])))
			buf.WriteString(s[i])
		}
	case Bytes:
		s := col.([][]byte)
		for i := 0; i < n; i++ {
			writeUvarint(buf, uint64(len(s[i])))
			buf.Write(s[i])
		}
	default:
		return fmt.Errorf("unknown dtype %v", c.DType)
	}
	return nil
}

func (SimpleCodec) Decode(schema Schema, data []byte) (*Frame, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)
	magic := make([]byte, len(simpleCodecMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("frame: short read on magic: %w", err)
	}
	if string(magic) != simpleCodecMagic {
		return nil, fmt.Errorf("frame: bad magic %q", magic)
	}
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("frame: read row count: %w", err)
	}
	numCols, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("frame: read column count: %w", err)
	}
	if int(numCols) != len(schema.Columns) {
		return nil, fmt.Errorf("frame: encoded column count %d does not match schema (%d)", numCols, len(schema.Columns))
	}
	b := newBuilder(schema, int(n))
	for _, c := range schema.Columns {
		if err := decodeColumn(r, c, int(n), b); err != nil {
			return nil, fmt.Errorf("frame: decode column %q: %w", c.Name, err)
		}
	}
	return b.build()
}

func decodeColumn(r *bytes.Reader, c ColumnSpec, n int, b *builder) error {
	for i := 0; i < n; i++ {
		switch c.DType {
		case Int64:
			var tmp [8]byte
			if _, err := io.ReadFull(r, tmp[:]); err != nil {
				return err
			}
			b.appendScalar(c.Name, c.DType, int64(binary.BigEndian.Uint64(tmp[:])))
		case Float64:
			var tmp [8]byte
			if _, err := io.ReadFull(r, tmp[:]); err != nil {
				return err
			}
			b.appendScalar(c.Name, c.DType, math.Float64frombits(binary.BigEndian.Uint64(tmp[:])))
		case String:
			l, err := binary.ReadUvarint(r)
			if err != nil {
				return err
			}
			buf := make([]byte, l)
			if _, err := io.ReadFull(r, buf); err != nil {
				return err
			}
			b.appendScalar(c.Name, c.DType, string(buf))
		case Bytes:
			l, err := binary.ReadUvarint(r)
			if err != nil {
				return err
			}
			buf := make([]byte, l)
			if _, err := io.ReadFull(r, buf); err != nil {
				return err
			}
			b.appendScalar(c.Name, c.DType, buf)
		default:
			return fmt.Errorf("unknown dtype %v", c.DType)
		}
	}
	return nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}
