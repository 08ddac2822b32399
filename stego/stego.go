// Package stego is the thin frontend adapter (spec.md C10): the public
// embed/extract surface a GUI or CLI would call, plus build_payload and
// parse_payload for callers that want to manage the carrier themselves.
// It corresponds to the teacher's handlers/service layer -- except,
// unlike gin handlers bound to HTTP routes, this is a plain Go API
// surface, matching the teacher's CalculateCapacity-style service method
// shape (service/steganography_service.go) generalized to image/video
// carriers.
package stego

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/kodestego/stegovid/internal/carrier"
	"github.com/kodestego/stegovid/internal/config"
	"github.com/kodestego/stegovid/internal/imagecarrier"
	"github.com/kodestego/stegovid/internal/payload"
	"github.com/kodestego/stegovid/internal/verify"
	"github.com/kodestego/stegovid/internal/videocarrier"
	"github.com/kodestego/stegovid/internal/videoio"
	"github.com/kodestego/stegovid/internal/writer"
	"github.com/kodestego/stegovid/models"
)

// ProgressFunc re-exports models.ProgressFunc as the public progress
// callback type.
type ProgressFunc = models.ProgressFunc

// DefaultEmbedOptions returns EmbedOptions pre-populated from the process
// environment (internal/config): LSB, ChunkFrames and Codec are set,
// leaving Password, Spread, ECC and OrigFileName at the caller's discretion.
func DefaultEmbedOptions() models.EmbedOptions {
	d := config.Load()
	return models.EmbedOptions{
		LSB:         d.LSB,
		ChunkFrames: d.ChunkFrames,
		Codec:       d.Codec,
	}
}

// DefaultExtractOptions mirrors DefaultEmbedOptions for extraction.
func DefaultExtractOptions() models.ExtractOptions {
	d := config.Load()
	return models.ExtractOptions{
		LSB:         d.LSB,
		ChunkFrames: d.ChunkFrames,
	}
}

// BuildPayload builds the transport payload: optional RS-encode, inner
// frame, AES-GCM encrypt, MAGIC+LEN header.
func BuildPayload(secret []byte, password string, useECC bool, nsym int, origName string) ([]byte, error) {
	return payload.Build(secret, password, useECC, nsym, origName)
}

// ParsePayload reverses BuildPayload.
func ParsePayload(full []byte, password string, useECC bool, nsym int) ([]byte, models.Metadata, error) {
	return payload.Parse(full, password, useECC, nsym)
}

// EmbedImage builds the transport payload from secret and embeds it into
// coverPath's pixel LSBs, writing a lossless PNG to outPath.
func EmbedImage(coverPath, outPath string, secret []byte, opts models.EmbedOptions) error {
	full, err := payload.Build(secret, opts.Password, opts.UseECC, opts.NSym, opts.OrigFileName)
	if err != nil {
		return err
	}
	return imagecarrier.EmbedImage(coverPath, outPath, full, opts.Password, opts.LSB, opts.Spread, opts.Progress)
}

// ExtractImage recovers the secret bytes and metadata embedded in inPath.
func ExtractImage(inPath string, opts models.ExtractOptions) ([]byte, models.Metadata, error) {
	return imagecarrier.ExtractImage(inPath, opts.Password, opts.UseECC, opts.NSym, opts.LSB, opts.Spread, opts.Progress)
}

// OpenForVerify reopens a freshly written artifact for post-embed
// verification (spec.md C9). Callers supply a decoder since video decode
// is an external collaborator.
type OpenForVerify func(path string) (videoio.FrameSource, error)

// EmbedVideoStreaming builds the transport payload, streams it into src's
// frames via the chunked state machine, muxes a lossless video to
// outPath, and (if openVerify is non-nil) reopens the result to confirm
// MAGIC survived the encoder path. A VerifyFailed error means the output
// file must not be trusted.
func EmbedVideoStreaming(ctx context.Context, src videoio.FrameSource, outPath string, secret []byte, opts models.EmbedOptions, openVerify OpenForVerify) error {
	full, err := payload.Build(secret, opts.Password, opts.UseECC, opts.NSym, opts.OrigFileName)
	if err != nil {
		return err
	}

	w, h, fps, _, err := src.Dimensions(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading source dimensions: %v", models.ErrIO, err)
	}

	sink, err := writer.New(ctx, outPath, w, h, fps, opts.Codec)
	if err != nil {
		return err
	}

	embedErr := videocarrier.EmbedVideoStreaming(ctx, src, sink, full, opts.Password, opts.LSB, opts.Spread, opts.ChunkFrames, opts.Progress)
	closeErr := sink.Close()
	if embedErr != nil {
		return embedErr
	}
	if closeErr != nil {
		return closeErr
	}

	if openVerify == nil {
		return nil
	}
	vsrc, err := openVerify(sink.Path())
	if err != nil {
		return fmt.Errorf("%w: reopening artifact for verification: %v", models.ErrIO, err)
	}
	return verify.VerifyEmbed(ctx, vsrc, opts.LSB)
}

// ExtractVideoStreaming runs the chunked extract state machine over src
// and parses the recovered payload.
func ExtractVideoStreaming(ctx context.Context, src videoio.FrameSource, opts models.ExtractOptions) ([]byte, models.Metadata, error) {
	return videocarrier.ExtractVideoStreaming(ctx, src, opts.Password, opts.UseECC, opts.NSym, opts.LSB, opts.Spread, opts.ChunkFrames, opts.Progress)
}

// ImageCapacity reports the maximum secret size, in bytes, coverPath can
// hold at each supported LSB density, after subtracting the transport
// payload's fixed overhead (header, AES-GCM salt/nonce/tag, inner frame
// fields). A negative number means that density cannot hold even an empty
// secret at this cover size.
func ImageCapacity(coverPath string) (models.CapacityResult, error) {
	f, err := os.Open(coverPath)
	if err != nil {
		return models.CapacityResult{}, fmt.Errorf("%w: opening cover: %v", models.ErrIO, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return models.CapacityResult{}, fmt.Errorf("%w: decoding cover: %v", models.ErrMalformed, err)
	}
	bounds := img.Bounds()
	pixelBytes := bounds.Dx() * bounds.Dy() * 3

	densityCapacity := func(lsb int) int {
		bits := carrier.TotalSlots(pixelBytes, lsb)
		return bits/8 - payload.FixedOverhead
	}
	return models.CapacityResult{
		OneLSB:   densityCapacity(1),
		TwoLSB:   densityCapacity(2),
		ThreeLSB: densityCapacity(3),
	}, nil
}
