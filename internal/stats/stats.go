// Package stats accumulates running statistics for an open resource: a
// content hash and byte count over the raw source bytes, the inferred field
// count and the number of rows emitted so far.
package stats

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/zeebo/xxh3"
)

// DefaultHashing is used when no algorithm is configured.
const DefaultHashing = "md5"

// Stats is mutated incrementally while a resource is consumed. A reader
// that stops early sees counts for the prefix it pulled. Hash is settled at
// EOF and by Snapshot.
type Stats struct {
	Hash   string `json:"hash,omitempty"`
	Bytes  int64  `json:"bytes,omitempty"`
	Fields int    `json:"fields,omitempty"`
	Rows   int    `json:"rows,omitempty"`

	hashing string
	hasher  hash.Hash
	dirty   bool
}

// New returns zeroed stats that hash with the named algorithm.
func New(hashing string) (*Stats, error) {
	s := &Stats{hashing: strings.ToLower(hashing)}
	if s.hashing == "" {
		s.hashing = DefaultHashing
	}
	if _, err := NewHasher(s.hashing); err != nil {
		return nil, err
	}
	return s, nil
}

// Hashing returns the configured algorithm name.
func (s *Stats) Hashing() string { return s.hashing }

// Reset zeroes every counter and discards hash state.
func (s *Stats) Reset() {
	s.Hash = ""
	s.Bytes = 0
	s.Fields = 0
	s.Rows = 0
	s.hasher = nil
	s.dirty = false
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() Stats {
	s.settle()
	return Stats{Hash: s.Hash, Bytes: s.Bytes, Fields: s.Fields, Rows: s.Rows, hashing: s.hashing}
}

// Reader wraps r so that every byte read is counted and hashed.
func (s *Stats) Reader(r io.Reader) io.Reader {
	if s.hasher == nil {
		s.hasher, _ = NewHasher(s.hashing)
	}
	return &countingReader{r: r, s: s}
}

func (s *Stats) observe(p []byte) {
	s.Bytes += int64(len(p))
	s.hasher.Write(p)
	s.dirty = true
}

// settle renders the running hash into Hash.
func (s *Stats) settle() {
	if !s.dirty {
		return
	}
	s.dirty = false
	sum := hex.EncodeToString(s.hasher.Sum(nil))
	if s.hashing != DefaultHashing {
		sum = s.hashing + ":" + sum
	}
	s.Hash = sum
}

type countingReader struct {
	r io.Reader
	s *Stats
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.s.observe(p[:n])
	}
	if err == io.EOF {
		c.s.settle()
	}
	return n, err
}

// NewHasher returns a fresh hash for the named algorithm.
func NewHasher(name string) (hash.Hash, error) {
	switch strings.ToLower(name) {
	case "", "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	case "xxh3":
		return xxh3.New(), nil
	default:
		return nil, fmt.Errorf("stats: unsupported hashing algorithm %q", name)
	}
}
