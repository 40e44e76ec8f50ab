// Package changelog implements the append-only DAG of revisions that
// backs each series: writers commit content-addressed revision records,
// readers walk the DAG in deterministic topological order.
package changelog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vistore/vistore/digest"
)

// Revision is one node of the changelog DAG. Identity is never carried
// inside the struct; it is the digest a Revision hashes to (see key below),
// recoverable from the path it was stored under.
type Revision struct {
	Parent    digest.Digest
	Payloads  []digest.Digest
	StartKey  []byte
	EndKey    []byte
	Timestamp int64
	Author    string
}

// encode serializes r to the wire format described in the external
// interfaces: parent digest, payload count and digests, start/end keys,
// timestamp, author — all fixed-width or length-prefixed, no reflection.
func encode(r Revision) ([]byte, error) {
	var buf bytes.Buffer
	parentRaw, err := r.Parent.Bytes()
	if err != nil {
		return nil, fmt.Errorf("changelog: encode parent: %w", err)
	}
	buf.Write(parentRaw)
	writeUvarint(&buf, uint64(len(r.Payloads)))
	for _, p := range r.Payloads {
		raw, err := p.Bytes()
		if err != nil {
			return nil, fmt.Errorf("changelog: encode payload: %w", err)
		}
		buf.Write(raw)
	}
	writeBytes(&buf, r.StartKey)
	writeBytes(&buf, r.EndKey)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(r.Timestamp))
	buf.Write(ts[:])
	writeBytes(&buf, []byte(r.Author))
	return buf.Bytes(), nil
}

func decode(data []byte) (Revision, error) {
	r := bytes.NewReader(data)
	var r0 Revision

	parentRaw := make([]byte, 32)
	if _, err := io.ReadFull(r, parentRaw); err != nil {
		return r0, fmt.Errorf("changelog: decode parent: %w", err)
	}
	r0.Parent = digest.FromRawBytes(parentRaw)

	count, err := binary.ReadUvarint(r)
	if err != nil {
		return r0, fmt.Errorf("changelog: decode payload count: %w", err)
	}
	r0.Payloads = make([]digest.Digest, count)
	for i := range r0.Payloads {
		raw := make([]byte, 32)
		if _, err := io.ReadFull(r, raw); err != nil {
			return r0, fmt.Errorf("changelog: decode payload %d: %w", i, err)
		}
		r0.Payloads[i] = digest.FromRawBytes(raw)
	}

	if r0.StartKey, err = readBytes(r); err != nil {
		return r0, fmt.Errorf("changelog: decode start key: %w", err)
	}
	if r0.EndKey, err = readBytes(r); err != nil {
		return r0, fmt.Errorf("changelog: decode end key: %w", err)
	}

	var ts [8]byte
	if _, err := io.ReadFull(r, ts[:]); err != nil {
		return r0, fmt.Errorf("changelog: decode timestamp: %w", err)
	}
	r0.Timestamp = int64(binary.BigEndian.Uint64(ts[:]))

	author, err := readBytes(r)
	if err != nil {
		return r0, fmt.Errorf("changelog: decode author: %w", err)
	}
	r0.Author = string(author)

	return r0, nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	writeUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	l, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, l)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// key derives a revision's content-addressed identity: the digest of
// (parent || content_digest(payload_digests, start, end, author)); Commit
// stores the revision under that digest's hashed path. Timestamp is deliberately excluded so that committing the
// same logical revision twice — perhaps seconds apart on replay —
// produces the same key (§4.C idempotence).
func key(r Revision) (digest.Digest, error) {
	parentRaw, err := r.Parent.Bytes()
	if err != nil {
		return "", err
	}
	parts := make([][]byte, 0, len(r.Payloads)+3)
	for _, p := range r.Payloads {
		raw, err := p.Bytes()
		if err != nil {
			return "", err
		}
		parts = append(parts, raw)
	}
	parts = append(parts, r.StartKey, r.EndKey, []byte(r.Author))
	inner := digest.Concat(parts...)
	innerRaw, err := inner.Bytes()
	if err != nil {
		return "", err
	}
	return digest.Concat(parentRaw, innerRaw), nil
}
