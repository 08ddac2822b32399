// Package permute derives a deterministic pseudo-random permutation of
// carrier slots from a password-and-salt-derived seed. Both the embedder
// and the extractor call Select with the same seed and get the same index
// sequence back, which is what lets "spread" mode scatter payload bits
// across the carrier without needing to store the permutation anywhere.
package permute

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Select returns K distinct indices from {0, ..., N-1}, deterministic in
// seed. It mirrors the teacher's deterministicStartIndex (sha256 digest
// folded into an int64 rand.Source) generalized from a single start
// position to a full K-of-N permutation.
//
// When K*10 < N, slots are chosen by rejection sampling into a
// seen-set, preserving the insertion order of first occurrence -- this is
// deterministic across platforms because it depends only on the
// documented output sequence of math/rand.Rand.Intn, never on map
// iteration order. Otherwise the full [0, N) range is materialized and
// Fisher-Yates shuffled, keeping the first K.
func Select(seed []byte, n, k int) ([]int, error) {
	if k < 0 || n < 0 || k > n {
		return nil, fmt.Errorf("permute: invalid selection k=%d n=%d", k, n)
	}
	if k == 0 {
		return []int{}, nil
	}

	digest := sha256.Sum256(seed)
	seedInt := int64(binary.BigEndian.Uint64(digest[:8]))
	r := rand.New(rand.NewSource(seedInt))

	if k*10 < n {
		seen := make(map[int]bool, k)
		out := make([]int, 0, k)
		for len(out) < k {
			v := r.Intn(n)
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
		return out, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k], nil
}

// ChunkSeed derives the per-chunk seed used by the video carrier: the
// SHA-256 of baseSeed concatenated with the chunk index as an 8-byte
// big-endian integer. chunkIndex starts at 0 on the first body chunk,
// never on the prelude batch (spec.md §4.7's critical invariant).
func ChunkSeed(baseSeed []byte, chunkIndex uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, chunkIndex)
	h := sha256.New()
	h.Write(baseSeed)
	h.Write(buf)
	return h.Sum(nil)
}
