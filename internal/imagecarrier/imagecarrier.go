// Package imagecarrier implements the image variant of the carrier
// abstraction (spec.md C6): embed/extract over a flat RGB pixel byte
// array, using internal/carrier for slot I/O and internal/permute for the
// spread body region. This plays the role original_source/stego_image.py
// plays in the Python source, adapted to Go's image/png decode/encode
// pair in place of numpy/PIL, and to the teacher's error-taxonomy style
// (sentinel errors in models, wrapped with fmt.Errorf/%w).
package imagecarrier

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/kodestego/stegovid/internal/bitpack"
	"github.com/kodestego/stegovid/internal/carrier"
	"github.com/kodestego/stegovid/internal/payload"
	"github.com/kodestego/stegovid/internal/permute"
	"github.com/kodestego/stegovid/models"
)

const (
	headerBits = payload.HeaderLen * 8 // 192
	saltBits   = 16 * 8                // 128
	preludeBits = headerBits + saltBits // 320
)

// progressInterval is the bit count between progress callback invocations,
// per spec.md §5's "every ≈10 000 bits for image" guidance.
const progressInterval = 10000

// EmbedImage reads coverPath, writes payload's bits into its pixel LSBs at
// the requested density, and saves a lossless PNG to outPath.
func EmbedImage(coverPath, outPath string, payloadBytes []byte, password string, lsb int, spread bool, progress models.ProgressFunc) error {
	if lsb < 1 || lsb > 3 {
		return fmt.Errorf("%w: lsb=%d must be in {1,2,3}", models.ErrMalformed, lsb)
	}

	img, err := decodeImage(coverPath)
	if err != nil {
		return err
	}
	pix, width, height := flattenRGB(img)

	total := carrier.TotalSlots(len(pix), lsb)
	needed := 8 * len(payloadBytes)
	if needed > total {
		return fmt.Errorf("%w: payload needs %d bits, carrier has %d slots at lsb=%d", models.ErrCapacity, needed, total, lsb)
	}

	bits := bitpack.BytesToBits(payloadBytes)
	if err := carrier.WriteSequential(pix, lsb, 0, bits[:preludeBits]); err != nil {
		return err
	}
	report(progress, preludeBits, needed)

	salt := payloadBytes[payload.HeaderLen : payload.HeaderLen+16]
	bodyBits := bits[preludeBits:]
	k := len(bodyBits)
	r := total - preludeBits

	var idxs []int
	if spread {
		seed := carrier.Seed(password, salt)
		idxs, err = permute.Select(seed, r, k)
		if err != nil {
			return err
		}
	} else {
		idxs = sequentialIndices(k)
	}

	for off := 0; off < k; off += progressInterval {
		end := min(off+progressInterval, k)
		if err := carrier.WriteIndexed(pix, lsb, preludeBits, idxs[off:end], bodyBits[off:end]); err != nil {
			return err
		}
		report(progress, preludeBits+end, needed)
	}

	out, err := rebuildRGB(pix, width, height)
	if err != nil {
		return err
	}
	return savePNG(outPath, out)
}

// ExtractImage decodes inPath, auto-detects LSB density, recovers the full
// transport payload, and parses it.
func ExtractImage(inPath, password string, useECC bool, nsym, lsb int, spread bool, progress models.ProgressFunc) ([]byte, models.Metadata, error) {
	var meta models.Metadata

	img, err := decodeImage(inPath)
	if err != nil {
		return nil, meta, err
	}
	pix, _, _ := flattenRGB(img)

	detected, headerBuf, err := autoDetectLSB(pix, lsb)
	if err != nil {
		return nil, meta, err
	}

	total := carrier.TotalSlots(len(pix), detected)
	lenField := headerBuf[8:16]
	blobLen := beUint64(lenField)
	fullLen := int(payload.HeaderLen) + int(blobLen)
	if 8*fullLen > total {
		return nil, meta, fmt.Errorf("%w: declared payload of %d bytes exceeds %d available slots at lsb=%d", models.ErrCapacity, fullLen, total, detected)
	}

	saltBitsBuf, err := carrier.ReadSequential(pix, detected, headerBits, saltBits)
	if err != nil {
		return nil, meta, err
	}
	salt := bitpack.BitsToBytes(saltBitsBuf)

	k := 8*fullLen - preludeBits
	r := total - preludeBits

	var idxs []int
	if spread {
		seed := carrier.Seed(password, salt)
		idxs, err = permute.Select(seed, r, k)
		if err != nil {
			return nil, meta, err
		}
	} else {
		idxs = sequentialIndices(k)
	}
	bodyBits := make([]byte, 0, len(idxs))
	for off := 0; off < len(idxs); off += progressInterval {
		end := min(off+progressInterval, len(idxs))
		chunk, err := carrier.ReadIndexed(pix, detected, preludeBits, idxs[off:end])
		if err != nil {
			return nil, meta, err
		}
		bodyBits = append(bodyBits, chunk...)
		report(progress, preludeBits+end, 8*fullLen)
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

// autoDetectLSB tries density lsb first, then the remaining candidates in
// {1,2,3}, reading the first headerBits header bits at each and accepting
// the first whose leading 8 bytes equal payload.Magic.
func autoDetectLSB(pix []byte, lsb int) (int, []byte, error) {
	order := candidateOrder(lsb)
	for _, cand := range order {
		if carrier.TotalSlots(len(pix), cand) < headerBits {
			continue
		}
		bits, err := carrier.ReadSequential(pix, cand, 0, headerBits)
		if err != nil {
			continue
		}
		header := bitpack.BitsToBytes(bits)
		if len(header) >= 8 && string(header[:8]) == payload.Magic {
			log.Printf("[DEBUG] imagecarrier: auto-detected lsb=%d", cand)
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

func sequentialIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
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

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening cover %q: %v", models.ErrIO, path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding cover %q: %v", models.ErrIO, path, err)
	}
	return img, nil
}

// flattenRGB converts img into a flat R,G,B,R,G,B... byte slice in
// row-major order, dropping any alpha channel (the carrier only ever
// touches the three color channels).
func flattenRGB(img image.Image) ([]byte, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			pix = append(pix, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}
	return pix, w, h
}

// rebuildRGB reassembles a flat RGB buffer into an image.NRGBA (opaque).
func rebuildRGB(pix []byte, w, h int) (*image.NRGBA, error) {
	if len(pix) != w*h*3 {
		return nil, fmt.Errorf("%w: pixel buffer length %d does not match %dx%d*3", models.ErrMalformed, len(pix), w, h)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: pix[i], G: pix[i+1], B: pix[i+2], A: 255})
			i += 3
		}
	}
	return img, nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %q: %v", models.ErrIO, path, err)
	}
	defer f.Close()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("%w: encoding png: %v", models.ErrIO, err)
	}
	if _, err := io.Copy(f, &buf); err != nil {
		return fmt.Errorf("%w: writing %q: %v", models.ErrIO, path, err)
	}
	return nil
}
