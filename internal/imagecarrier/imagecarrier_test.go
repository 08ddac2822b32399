package imagecarrier

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/kodestego/stegovid/internal/payload"
	"github.com/kodestego/stegovid/models"
)

func writeCover(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: byte(x * 7), G: byte(y * 13), B: byte((x + y) * 3), A: 255})
		}
	}
	path := filepath.Join(dir, "cover.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating cover: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encoding cover: %v", err)
	}
	return path
}

func TestEmbedExtractRoundTripSequential(t *testing.T) {
	dir := t.TempDir()
	cover := writeCover(t, dir, 64, 64)
	out := filepath.Join(dir, "stego.png")

	secret := []byte("hi")
	full, err := payload.Build(secret, "pw", false, 0, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := EmbedImage(cover, out, full, "pw", 1, false, nil); err != nil {
		t.Fatalf("EmbedImage: %v", err)
	}

	body, meta, err := ExtractImage(out, "pw", false, 0, 1, false, nil)
	if err != nil {
		t.Fatalf("ExtractImage: %v", err)
	}
	if !bytes.Equal(body, secret) {
		t.Errorf("round trip mismatch: got %q want %q", body, secret)
	}
	if meta.HasName {
		t.Errorf("expected no filename, got %q", meta.Filename)
	}
}

func TestEmbedExtractRoundTripSpread(t *testing.T) {
	dir := t.TempDir()
	cover := writeCover(t, dir, 256, 256)
	out := filepath.Join(dir, "stego.png")

	secret := bytes.Repeat([]byte("spread mode payload "), 200)
	full, err := payload.Build(secret, "s3cret", false, 0, "x.bin")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := EmbedImage(cover, out, full, "s3cret", 2, true, nil); err != nil {
		t.Fatalf("EmbedImage: %v", err)
	}

	body, meta, err := ExtractImage(out, "s3cret", false, 0, 2, true, nil)
	if err != nil {
		t.Fatalf("ExtractImage: %v", err)
	}
	if !bytes.Equal(body, secret) {
		t.Errorf("round trip mismatch over %d bytes", len(secret))
	}
	if meta.Filename != "x.bin" {
		t.Errorf("expected filename x.bin, got %q", meta.Filename)
	}
}

func TestEmbedFailsCapacity(t *testing.T) {
	dir := t.TempDir()
	cover := writeCover(t, dir, 4, 4)
	out := filepath.Join(dir, "stego.png")

	full, err := payload.Build([]byte("hello world"), "pw", false, 0, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := EmbedImage(cover, out, full, "pw", 1, false, nil); !errors.Is(err, models.ErrCapacity) {
		t.Errorf("expected ErrCapacity, got %v", err)
	}
}

func TestExtractAutoDetectsDensity(t *testing.T) {
	dir := t.TempDir()
	cover := writeCover(t, dir, 64, 64)
	out := filepath.Join(dir, "stego.png")

	secret := []byte("auto detect me")
	full, err := payload.Build(secret, "pw", false, 0, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := EmbedImage(cover, out, full, "pw", 3, false, nil); err != nil {
		t.Fatalf("EmbedImage: %v", err)
	}

	body, _, err := ExtractImage(out, "pw", false, 0, 1, false, nil)
	if err != nil {
		t.Fatalf("ExtractImage with wrong lsb hint: %v", err)
	}
	if !bytes.Equal(body, secret) {
		t.Errorf("auto-detect round trip mismatch: got %q want %q", body, secret)
	}
}

func TestExtractWrongPasswordFailsAuth(t *testing.T) {
	dir := t.TempDir()
	cover := writeCover(t, dir, 64, 64)
	out := filepath.Join(dir, "stego.png")

	full, err := payload.Build([]byte("tamper me please"), "pw", false, 0, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := EmbedImage(cover, out, full, "pw", 1, false, nil); err != nil {
		t.Fatalf("EmbedImage: %v", err)
	}
	if _, _, err := ExtractImage(out, "wrong-pw", false, 0, 1, false, nil); !errors.Is(err, models.ErrBadAuth) {
		t.Errorf("expected ErrBadAuth, got %v", err)
	}
}
