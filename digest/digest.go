// Package digest computes and manipulates the content digests that vistore
// uses as both blob identity and storage key.
package digest

import (
	"encoding/hex"
	"fmt"
	"strings"

	godigest "github.com/opencontainers/go-digest"
)

// Digest is a content digest expressed as a hex string, algorithm-prefixed
// the way github.com/opencontainers/go-digest expresses it
// (e.g. "sha256:e3b0c4...").
type Digest string

// Algorithm is the one hash algorithm vistore digests use.
const Algorithm = godigest.SHA256

// Zero is the sentinel digest denoting "no parent": all zero bytes under
// Algorithm ("sha256:000...000"). It is well-formed hex of the usual width,
// so it round-trips through HashedPath like any other digest.
var Zero = Digest(string(Algorithm) + ":" + strings.Repeat("0", 64))

// FromBytes computes the digest of p.
func FromBytes(p []byte) Digest {
	return Digest(Algorithm.FromBytes(p).String())
}

// Concat computes the digest of the concatenation of parts, without
// allocating an intermediate buffer.
func Concat(parts ...[]byte) Digest {
	h := Algorithm.Hash()
	for _, p := range parts {
		h.Write(p)
	}
	return Digest(godigest.NewDigestFromBytes(Algorithm, h.Sum(nil)).String())
}

// IsZero reports whether d is the zero (no-parent) digest.
func (d Digest) IsZero() bool {
	return d == Zero
}

// Hex returns the bare hex-encoded hash, without the algorithm prefix.
func (d Digest) Hex() string {
	gd := godigest.Digest(d)
	if i := strings.IndexByte(string(gd), ':'); i >= 0 {
		return string(gd)[i+1:]
	}
	return string(gd)
}

// Validate reports whether d is well-formed.
func (d Digest) Validate() error {
	return godigest.Digest(d).Validate()
}

func (d Digest) String() string {
	return string(d)
}

// HashedPath maps a digest to its storage key: a two-character prefix
// directory followed by the remainder of the hex digest. This bounds
// directory fan-out on filesystem-like PODs.
func HashedPath(d Digest) string {
	h := d.Hex()
	if len(h) < 2 {
		return h
	}
	return h[:2] + "/" + h[2:]
}

// FromHashedPath reverses HashedPath: it recovers the digest whose
// storage key is p. changelog.Walk uses this to recover a revision's own
// identity from the path it was enumerated under, without re-deriving it
// from content.
func FromHashedPath(p string) (Digest, error) {
	h := strings.Replace(p, "/", "", 1)
	d := Digest(fmt.Sprintf("%s:%s", Algorithm, h))
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("digest: invalid hashed path %q: %w", p, err)
	}
	return d, nil
}

// Bytes returns the raw hash bytes (not hex-encoded), for fixed-width
// binary framing such as changelog's revision wire format.
func (d Digest) Bytes() ([]byte, error) {
	b, err := hex.DecodeString(d.Hex())
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}
	return b, nil
}

// FromRawBytes builds a Digest from the raw hash bytes produced by
// Bytes, the inverse operation.
func FromRawBytes(raw []byte) Digest {
	return Digest(godigest.NewDigestFromBytes(Algorithm, raw).String())
}
