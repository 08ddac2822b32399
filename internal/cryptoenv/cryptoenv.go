// Package cryptoenv implements the password-based authenticated encryption
// envelope (spec.md C3): PBKDF2-HMAC-SHA256 key derivation feeding
// AES-256-GCM. It replaces the teacher's XOR-based VigenereCipher with a
// real AEAD, but keeps the same small-interface constructor shape
// (NewX() X) the teacher's cryptography_service.go used.
package cryptoenv

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"log"

	"golang.org/x/crypto/pbkdf2"

	"github.com/kodestego/stegovid/models"
)

const (
	SaltLen      = 16
	NonceLen     = 12
	TagLen       = 16
	KeyLen       = 32
	PBKDF2Iters  = 200_000
	MinBlobBytes = SaltLen + NonceLen + TagLen // 44
)

// Envelope performs key derivation and AES-256-GCM sealing/opening.
type Envelope interface {
	// Encrypt returns salt||nonce||ciphertext||tag, with salt and nonce
	// freshly random.
	Encrypt(password string, plaintext []byte) ([]byte, error)
	// Decrypt parses the same layout and authenticates before returning
	// plaintext. Returns models.ErrMalformed if blob is shorter than
	// MinBlobBytes, models.ErrBadAuth if the tag fails to verify.
	Decrypt(password string, blob []byte) ([]byte, error)
}

type envelope struct{}

// New creates a new crypto envelope.
func New() Envelope {
	return &envelope{}
}

// DeriveKey runs PBKDF2-HMAC-SHA256 over the UTF-8 password bytes with the
// given salt, producing a 32-byte key.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, PBKDF2Iters, KeyLen, sha256.New)
}

func (e *envelope) Encrypt(password string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("%w: salt generation: %v", models.ErrIO, err)
	}
	nonce := make([]byte, NonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce generation: %v", models.ErrIO, err)
	}

	key := DeriveKey(password, salt)
	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIO, err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil) // ciphertext||tag
	out := make([]byte, 0, SaltLen+NonceLen+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)

	log.Printf("[DEBUG] cryptoenv.Encrypt: sealed %d bytes plaintext into %d byte blob", len(plaintext), len(out))
	return out, nil
}

func (e *envelope) Decrypt(password string, blob []byte) ([]byte, error) {
	if len(blob) < MinBlobBytes {
		return nil, fmt.Errorf("%w: blob is %d bytes, need at least %d", models.ErrMalformed, len(blob), MinBlobBytes)
	}
	salt := blob[:SaltLen]
	nonce := blob[SaltLen : SaltLen+NonceLen]
	sealed := blob[SaltLen+NonceLen:]

	key := DeriveKey(password, salt)
	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIO, err)
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		log.Printf("[DEBUG] cryptoenv.Decrypt: GCM open failed: %v", err)
		return nil, models.ErrBadAuth
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, NonceLen)
	if err != nil {
		return nil, err
	}
	if gcm.Overhead() != TagLen {
		return nil, fmt.Errorf("unexpected GCM tag size %d", gcm.Overhead())
	}
	return gcm, nil
}
