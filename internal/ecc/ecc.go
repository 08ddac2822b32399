// Package ecc wraps github.com/klauspost/reedsolomon (the same GF(256)
// Reed-Solomon library the corpus's xtaci-kcptun FEC layer vendors) as a
// byte-stream codec: spec.md C4 wants "Reed-Solomon over GF(2^8) ...
// operating on arbitrary byte buffers in the standard chunked manner",
// which is a different shape from klauspost/reedsolomon's native shard API,
// so this package reshapes one into the other.
//
// Each RS block follows the classic RS(255, 255-nsym) convention (the same
// default reedsolo.RSCodec(nsym) in original_source/src/ecc_utils.py uses):
// 255-nsym data bytes become 255-nsym one-byte data shards, nsym parity
// bytes become nsym one-byte parity shards.
//
// klauspost/reedsolomon's public API corrects *erasures* (shards whose
// position is already known to be missing), not substitution errors at
// unknown positions -- true syndrome-based error-locator decoding is a
// different algorithm this package does not implement. Decode instead
// verifies each block and, on mismatch, tries marking up to two shards as
// erasures (all singles, then all pairs, bounded by a combination cap) and
// reconstructing; this recovers the common case of a handful of scattered
// byte flips but is not a full RS decoder for large error counts. See
// DESIGN.md for the tradeoff.
package ecc

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/reedsolomon"

	"github.com/kodestego/stegovid/models"
)

const (
	blockTotal = 255
	// pairCombinationCap bounds the O(n^2) double-erasure search so a
	// large block count never turns a failed decode into a long stall.
	pairCombinationCap = 20000
)

// Codec encodes/decodes arbitrary byte buffers with RS parity.
type Codec interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

type codec struct {
	nsym int
	k    int // data shards per block
	n    int // total shards per block (k+nsym)
	enc  reedsolomon.Encoder
}

// New builds a Codec for the given parity-symbol count. nsym must be in
// [1, 254] (255 would leave zero data shards per block).
func New(nsym int) (Codec, error) {
	if nsym < 1 || nsym > 254 {
		return nil, fmt.Errorf("%w: nsym=%d out of range [1,254]", models.ErrEccUnavailable, nsym)
	}
	k := blockTotal - nsym
	enc, err := reedsolomon.New(k, nsym)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEccUnavailable, err)
	}
	return &codec{nsym: nsym, k: k, n: blockTotal, enc: enc}, nil
}

// Encode RS-encodes data, prefixing a 4-byte big-endian original length so
// Decode can strip the zero padding added to fill the last block.
func (c *codec) Encode(data []byte) ([]byte, error) {
	body := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(body[:4], uint32(len(data)))
	copy(body[4:], data)

	pad := (c.k - len(body)%c.k) % c.k
	if pad > 0 {
		body = append(body, make([]byte, pad)...)
	}

	out := make([]byte, 0, len(body)/c.k*c.n)
	for off := 0; off < len(body); off += c.k {
		block := body[off : off+c.k]
		shards := make([][]byte, c.n)
		for j := 0; j < c.k; j++ {
			shards[j] = []byte{block[j]}
		}
		for j := c.k; j < c.n; j++ {
			shards[j] = make([]byte, 1)
		}
		if err := c.enc.Encode(shards); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrIO, err)
		}
		for _, s := range shards {
			out = append(out, s[0])
		}
	}
	return out, nil
}

// Decode verifies and, where needed, corrects each block, then strips the
// length prefix and padding added by Encode. Returns models.ErrMalformed if
// the input is not a whole number of blocks, and models.ErrEccDecode if a
// block cannot be corrected.
func (c *codec) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%c.n != 0 {
		return nil, fmt.Errorf("%w: ecc stream length %d not a multiple of block size %d", models.ErrMalformed, len(data), c.n)
	}

	body := make([]byte, 0, len(data)/c.n*c.k)
	for off := 0; off < len(data); off += c.n {
		block := data[off : off+c.n]
		shards := make([][]byte, c.n)
		for j := 0; j < c.n; j++ {
			shards[j] = []byte{block[j]}
		}

		ok, err := c.enc.Verify(shards)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrIO, err)
		}
		if !ok {
			if !c.correct(shards) {
				return nil, models.ErrEccDecode
			}
		}
		for j := 0; j < c.k; j++ {
			body = append(body, shards[j][0])
		}
	}

	if len(body) < 4 {
		return nil, fmt.Errorf("%w: decoded body too short for length prefix", models.ErrMalformed)
	}
	origLen := binary.BigEndian.Uint32(body[:4])
	body = body[4:]
	if int(origLen) > len(body) {
		return nil, fmt.Errorf("%w: declared length %d exceeds decoded body %d", models.ErrMalformed, origLen, len(body))
	}
	return body[:origLen], nil
}

// correct tries marking up to two shards as erasures and reconstructing.
// Mutates shards in place on success.
func (c *codec) correct(shards [][]byte) bool {
	maxErrors := c.nsym / 2
	if maxErrors < 1 {
		return false
	}

	original := make([][]byte, len(shards))
	for i, s := range shards {
		cp := make([]byte, len(s))
		copy(cp, s)
		original[i] = cp
	}
	reset := func() {
		for i := range shards {
			copy(shards[i], original[i])
		}
	}

	for i := 0; i < c.n; i++ {
		reset()
		shards[i] = nil
		if err := c.enc.Reconstruct(shards); err == nil {
			if ok, _ := c.enc.Verify(shards); ok {
				return true
			}
		}
	}
	if maxErrors < 2 {
		reset()
		return false
	}

	tried := 0
	for i := 0; i < c.n && tried < pairCombinationCap; i++ {
		for j := i + 1; j < c.n && tried < pairCombinationCap; j++ {
			tried++
			reset()
			shards[i] = nil
			shards[j] = nil
			if err := c.enc.Reconstruct(shards); err == nil {
				if ok, _ := c.enc.Verify(shards); ok {
					return true
				}
			}
		}
	}
	reset()
	return false
}
