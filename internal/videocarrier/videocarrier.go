// Package videocarrier implements the streaming video variant of the
// carrier abstraction (spec.md C7): a chunked INIT/PRELUDE/BODY_CHUNK/CLOSE
// state machine over videoio.FrameSource/FrameSink, mirroring
// original_source/src/stego_video.py's embed_video_streaming and
// extract_video_streaming but expressed with Go's explicit ctx/error
// return idiom instead of Python generators.
//
// Decode and mux themselves are out of scope (spec.md §1): this package
// only consumes a videoio.FrameSource the caller supplies and writes
// through a videoio.FrameSink (internal/writer).
package videocarrier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/kodestego/stegovid/internal/bitpack"
	"github.com/kodestego/stegovid/internal/carrier"
	"github.com/kodestego/stegovid/internal/payload"
	"github.com/kodestego/stegovid/internal/permute"
	"github.com/kodestego/stegovid/internal/videoio"
	"github.com/kodestego/stegovid/models"
)

const (
	headerBits  = payload.HeaderLen * 8 // 192
	saltBits    = 16 * 8                // 128
	preludeBits = headerBits + saltBits // 320

	// DefaultChunkFrames matches spec.md §6's documented default.
	DefaultChunkFrames = 90
)

// EmbedVideoStreaming reads frames from src, embeds payloadBytes and writes
// the result through sink. src is read to exhaustion or until the payload
// is fully embedded. This function closes neither src nor sink; the caller
// owns both and must call sink.Close itself.
func EmbedVideoStreaming(ctx context.Context, src videoio.FrameSource, sink videoio.FrameSink, payloadBytes []byte, password string, lsb int, spread bool, chunkFrames int, progress models.ProgressFunc) error {
	if lsb < 1 || lsb > 3 {
		return fmt.Errorf("%w: lsb=%d must be in {1,2,3}", models.ErrMalformed, lsb)
	}
	if chunkFrames < 1 {
		chunkFrames = DefaultChunkFrames
	}

	w, h, _, total, err := src.Dimensions(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading source dimensions: %v", models.ErrIO, err)
	}
	slotsPerFrame := w * h * 3 * lsb
	needed := 8 * len(payloadBytes)
	if total > 0 && needed > total*slotsPerFrame {
		return fmt.Errorf("%w: payload needs %d bits, video has only %d frames * %d slots/frame", models.ErrCapacity, needed, total, slotsPerFrame)
	}

	bits := bitpack.BytesToBits(payloadBytes)

	// PRELUDE
	f0 := ceilDiv(preludeBits, slotsPerFrame)
	preludeFrames, err := src.NextFrames(ctx, f0)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: reading prelude frames: %v", models.ErrIO, err)
	}
	if slotsAvailable(preludeFrames, lsb) < preludeBits {
		return fmt.Errorf("%w: source ended before the 320-bit prelude could be written", models.ErrCapacity)
	}
	buf := stack(preludeFrames)
	if err := carrier.WriteSequential(buf, lsb, 0, bits[:preludeBits]); err != nil {
		return err
	}
	unstack(preludeFrames, buf)
	if err := sink.WriteFrames(ctx, preludeFrames); err != nil {
		return err
	}
	bitIdx := preludeBits
	report(progress, bitIdx, needed)

	salt := payloadBytes[payload.HeaderLen : payload.HeaderLen+16]
	baseSeed := carrier.Seed(password, salt)

	// BODY_CHUNK
	chunkIndex := uint64(0)
	for bitIdx < needed {
		frames, readErr := src.NextFrames(ctx, chunkFrames)
		if len(frames) == 0 {
			break
		}
		chunkSlots := slotsAvailable(frames, lsb)
		toEmbed := min(chunkSlots, needed-bitIdx)

		var idxs []int
		if spread {
			seedC := permute.ChunkSeed(baseSeed, chunkIndex)
			idxs, err = permute.Select(seedC, chunkSlots, toEmbed)
			if err != nil {
				return err
			}
		} else {
			idxs = sequentialIndices(toEmbed)
		}

		chunkBuf := stack(frames)
		if err := carrier.WriteIndexed(chunkBuf, lsb, 0, idxs, bits[bitIdx:bitIdx+toEmbed]); err != nil {
			return err
		}
		unstack(frames, chunkBuf)
		if err := sink.WriteFrames(ctx, frames); err != nil {
			return err
		}

		bitIdx += toEmbed
		chunkIndex++
		report(progress, bitIdx, needed)

		if errors.Is(readErr, io.EOF) {
			break
		}
	}

	if bitIdx < needed {
		return fmt.Errorf("%w: video ended after %d of %d payload bits were embedded", models.ErrCapacity, bitIdx, needed)
	}
	log.Printf("[INFO] videocarrier: embedded %d bits across %d body chunks", needed, chunkIndex)
	return nil
}

// ExtractVideoStreaming mirrors EmbedVideoStreaming's state machine on
// extract, auto-detecting the LSB density from the prelude.
func ExtractVideoStreaming(ctx context.Context, src videoio.FrameSource, password string, useECC bool, nsym, lsb int, spread bool, chunkFrames int, progress models.ProgressFunc) ([]byte, models.Metadata, error) {
	var meta models.Metadata
	if chunkFrames < 1 {
		chunkFrames = DefaultChunkFrames
	}

	w, h, _, _, err := src.Dimensions(ctx)
	if err != nil {
		return nil, meta, fmt.Errorf("%w: reading source dimensions: %v", models.ErrIO, err)
	}
	slotsPerFrame := w * h * 3 * lsb // used only to size the prelude read at the hinted density

	f0 := ceilDiv(preludeBits, slotsPerFrame)
	preludeFrames, err := src.NextFrames(ctx, f0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, meta, fmt.Errorf("%w: reading prelude frames: %v", models.ErrIO, err)
	}

	detected, headerBuf, err := autoDetectLSB(preludeFrames, lsb, w, h)
	if err != nil {
		return nil, meta, err
	}
	buf := stack(preludeFrames)
	if carrier.TotalSlots(len(buf), detected) < preludeBits {
		return nil, meta, fmt.Errorf("%w: source ended before the 320-bit prelude could be read", models.ErrTruncated)
	}
	saltBitsBuf, err := carrier.ReadSequential(buf, detected, headerBits, saltBits)
	if err != nil {
		return nil, meta, err
	}
	salt := bitpack.BitsToBytes(saltBitsBuf)
	baseSeed := carrier.Seed(password, salt)

	lenField := headerBuf[8:16]
	blobLen := beUint64(lenField)
	fullLen := payload.HeaderLen + int(blobLen)
	remaining := 8*fullLen - preludeBits
	total := remaining

	bodyBits := make([]byte, 0, remaining)
	chunkIndex := uint64(0)
	for remaining > 0 {
		frames, readErr := src.NextFrames(ctx, chunkFrames)
		if len(frames) == 0 {
			return nil, meta, fmt.Errorf("%w: video ended with %d of %d body bits unread", models.ErrTruncated, remaining, total)
		}
		chunkSlots := slotsAvailable(frames, detected)
		take := min(chunkSlots, remaining)

		var idxs []int
		if spread {
			seedC := permute.ChunkSeed(baseSeed, chunkIndex)
			idxs, err = permute.Select(seedC, chunkSlots, take)
			if err != nil {
				return nil, meta, err
			}
		} else {
			idxs = sequentialIndices(take)
		}

		chunkBuf := stack(frames)
		chunkBits, err := carrier.ReadIndexed(chunkBuf, detected, 0, idxs)
		if err != nil {
			return nil, meta, err
		}
		bodyBits = append(bodyBits, chunkBits...)

		remaining -= take
		chunkIndex++
		report(progress, total-remaining, total)

		if remaining == 0 {
			break
		}
		if errors.Is(readErr, io.EOF) {
			return nil, meta, fmt.Errorf("%w: video ended with %d of %d body bits unread", models.ErrTruncated, remaining, total)
		}
	}

	allBits := make([]byte, 0, preludeBits+len(bodyBits))
	allBits = append(allBits, headerBuf...)
	allBits = append(allBits, saltBitsBuf...)
	allBits = append(allBits, bodyBits...)
	fullPayload := bitpack.BitsToBytes(allBits)

	body, meta, err := payload.Parse(fullPayload, password, useECC, nsym)
	if err != nil {
		return nil, meta, err
	}
	return body, meta, nil
}

func autoDetectLSB(frames []videoio.Frame, lsb, w, h int) (int, []byte, error) {
	order := candidateOrder(lsb)
	for _, cand := range order {
		buf := stack(frames)
		if carrier.TotalSlots(len(buf), cand) < headerBits {
			continue
		}
		bits, err := carrier.ReadSequential(buf, cand, 0, headerBits)
		if err != nil {
			continue
		}
		header := bitpack.BitsToBytes(bits)
		if len(header) >= 8 && string(header[:8]) == payload.Magic {
			return cand, bits, nil
		}
	}
	return 0, nil, models.ErrBadMagic
}

func candidateOrder(first int) []int {
	order := []int{first}
	for _, c := range []int{1, 2, 3} {
		if c != first {
			order = append(order, c)
		}
	}
	return order
}

func stack(frames []videoio.Frame) []byte {
	total := 0
	for _, f := range frames {
		total += len(f.Pix)
	}
	buf := make([]byte, 0, total)
	for _, f := range frames {
		buf = append(buf, f.Pix...)
	}
	return buf
}

func unstack(frames []videoio.Frame, buf []byte) {
	off := 0
	for i := range frames {
		n := len(frames[i].Pix)
		copy(frames[i].Pix, buf[off:off+n])
		off += n
	}
}

func slotsAvailable(frames []videoio.Frame, lsb int) int {
	total := 0
	for _, f := range frames {
		total += len(f.Pix) * lsb
	}
	return total
}

func sequentialIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func report(progress models.ProgressFunc, done, total int) {
	if progress != nil {
		progress(done, total)
	}
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}
