// Package payload builds and parses the transport envelope described in
// spec.md §3 and §4.5: an outer MAGIC+LEN header that is always readable
// without the password, wrapping an AES-GCM blob whose plaintext is the
// optional-filename inner frame. This corresponds to
// original_source/src/payload_format.py and crypto_utils.py, combined --
// the Go version keeps payload_format's build/parse shape but folds in the
// outer-header design spec.md §9 picks over the Python source's two
// divergent variants.
package payload

import (
	"encoding/binary"
	"fmt"

	"github.com/kodestego/stegovid/internal/cryptoenv"
	"github.com/kodestego/stegovid/internal/ecc"
	"github.com/kodestego/stegovid/models"
)

const (
	// Magic identifies a valid carrier. It is stable across versions.
	Magic = "STEGVID3"

	MagicLen    = 8
	LenFieldLen = 8
	// reservedLen pads the outer header out to the 24-byte/192-bit size
	// the carrier layer's slot arithmetic assumes (spec.md §3/§9). It
	// carries no meaning today; readers must not reject a nonzero value.
	reservedLen = 8
	// HeaderLen is the fixed, password-independent prefix: MAGIC + LEN + reserved.
	HeaderLen = MagicLen + LenFieldLen + reservedLen // 24

	// innerFormatTag marks the inner frame layout.
	innerFormatTag = "SC01"
	innerTagLen    = 4
	nameLenFieldLen = 2

	// FixedOverhead is the number of bytes a built payload carries beyond
	// the raw secret and an optional filename: outer header, AES-GCM
	// salt/nonce/tag, and the inner frame's tag+name-length fields.
	FixedOverhead = HeaderLen + cryptoenv.MinBlobBytes + innerTagLen + nameLenFieldLen
)

// Build constructs the full transport payload: optional RS-encode of the
// raw secret, inner frame wrapping, AES-GCM encryption, and the outer
// MAGIC+LEN header.
func Build(secret []byte, password string, useECC bool, nsym int, origName string) ([]byte, error) {
	body := secret
	if useECC {
		codec, err := ecc.New(nsym)
		if err != nil {
			return nil, err
		}
		body, err = codec.Encode(secret)
		if err != nil {
			return nil, err
		}
	}

	inner := buildInnerFrame(origName, body)

	env := cryptoenv.New()
	blob, err := env.Encrypt(password, inner)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, HeaderLen+len(blob))
	out = append(out, []byte(Magic)...)
	lenBuf := make([]byte, LenFieldLen)
	binary.BigEndian.PutUint64(lenBuf, uint64(len(blob)))
	out = append(out, lenBuf...)
	out = append(out, make([]byte, reservedLen)...)
	out = append(out, blob...)
	return out, nil
}

// Parse validates MAGIC, decrypts the blob, peels the inner frame, and
// optionally RS-decodes the body.
func Parse(full []byte, password string, useECC bool, nsym int) ([]byte, models.Metadata, error) {
	var meta models.Metadata
	if len(full) < HeaderLen {
		return nil, meta, fmt.Errorf("%w: payload shorter than header", models.ErrTruncated)
	}
	if string(full[:MagicLen]) != Magic {
		return nil, meta, models.ErrBadMagic
	}
	blobLen := binary.BigEndian.Uint64(full[MagicLen : MagicLen+LenFieldLen])
	if uint64(len(full)-HeaderLen) < blobLen {
		return nil, meta, fmt.Errorf("%w: declared blob length %d exceeds available %d bytes", models.ErrTruncated, blobLen, len(full)-HeaderLen)
	}
	blob := full[HeaderLen : uint64(HeaderLen)+blobLen]

	env := cryptoenv.New()
	inner, err := env.Decrypt(password, blob)
	if err != nil {
		return nil, meta, err
	}

	body, name, hasName, err := parseInnerFrame(inner)
	if err != nil {
		return nil, meta, err
	}
	meta.Filename = name
	meta.HasName = hasName

	if useECC {
		codec, err := ecc.New(nsym)
		if err != nil {
			return nil, meta, err
		}
		body, err = codec.Decode(body)
		if err != nil {
			return nil, meta, err
		}
	}
	return body, meta, nil
}

func buildInnerFrame(origName string, body []byte) []byte {
	nameBytes := []byte(origName)
	frame := make([]byte, 0, innerTagLen+nameLenFieldLen+len(nameBytes)+len(body))
	frame = append(frame, []byte(innerFormatTag)...)
	nameLen := make([]byte, nameLenFieldLen)
	binary.BigEndian.PutUint16(nameLen, uint16(len(nameBytes)))
	frame = append(frame, nameLen...)
	frame = append(frame, nameBytes...)
	frame = append(frame, body...)
	return frame
}

func parseInnerFrame(plaintext []byte) (body []byte, name string, hasName bool, err error) {
	if len(plaintext) >= innerTagLen && string(plaintext[:innerTagLen]) == innerFormatTag {
		if len(plaintext) < innerTagLen+nameLenFieldLen {
			return nil, "", false, fmt.Errorf("%w: inner frame truncated before name length", models.ErrMalformed)
		}
		nameLen := int(binary.BigEndian.Uint16(plaintext[innerTagLen : innerTagLen+nameLenFieldLen]))
		nameStart := innerTagLen + nameLenFieldLen
		if len(plaintext) < nameStart+nameLen {
			return nil, "", false, fmt.Errorf("%w: inner frame truncated before name bytes", models.ErrMalformed)
		}
		name = string(plaintext[nameStart : nameStart+nameLen])
		body = plaintext[nameStart+nameLen:]
		return body, name, true, nil
	}
	return plaintext, "", false, nil
}
