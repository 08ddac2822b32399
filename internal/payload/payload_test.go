package payload

import (
	"bytes"
	"errors"
	"testing"

	"github.com/kodestego/stegovid/models"
)

func TestBuildParseRoundTripNoName(t *testing.T) {
	secret := []byte("the quick brown fox jumps over the lazy dog")
	full, err := Build(secret, "pw", false, 0, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if string(full[:MagicLen]) != Magic {
		t.Fatalf("missing magic in built payload")
	}

	got, meta, err := Parse(full, "pw", false, 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Errorf("round trip mismatch: got %q want %q", got, secret)
	}
	if meta.HasName {
		t.Errorf("expected HasName=false, got true with filename %q", meta.Filename)
	}
}

func TestBuildParseRoundTripWithName(t *testing.T) {
	secret := []byte("payload body bytes")
	full, err := Build(secret, "pw", false, 0, "report.pdf")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, meta, err := Parse(full, "pw", false, 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Errorf("body mismatch: got %q want %q", got, secret)
	}
	if !meta.HasName || meta.Filename != "report.pdf" {
		t.Errorf("expected filename 'report.pdf', got HasName=%v Filename=%q", meta.HasName, meta.Filename)
	}
}

func TestBuildParseRoundTripWithECC(t *testing.T) {
	secret := bytes.Repeat([]byte("ecc covered secret data "), 20)
	full, err := Build(secret, "pw", true, 16, "x.bin")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, meta, err := Parse(full, "pw", true, 16)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Errorf("ecc round trip mismatch")
	}
	if meta.Filename != "x.bin" {
		t.Errorf("expected filename x.bin, got %q", meta.Filename)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	full, err := Build([]byte("secret"), "pw", false, 0, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	full[0] ^= 0xFF
	if _, _, err := Parse(full, "pw", false, 0); !errors.Is(err, models.ErrBadMagic) {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
}

func TestParseRejectsWrongPassword(t *testing.T) {
	full, err := Build([]byte("secret"), "right", false, 0, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, _, err := Parse(full, "wrong", false, 0); !errors.Is(err, models.ErrBadAuth) {
		t.Errorf("expected ErrBadAuth, got %v", err)
	}
}

func TestParseRejectsTruncatedBlob(t *testing.T) {
	full, err := Build([]byte("a reasonably sized secret"), "pw", false, 0, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	truncated := full[:len(full)-5]
	if _, _, err := Parse(truncated, "pw", false, 0); !errors.Is(err, models.ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestParseRejectsShorterThanHeader(t *testing.T) {
	if _, _, err := Parse(make([]byte, HeaderLen-1), "pw", false, 0); !errors.Is(err, models.ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}
