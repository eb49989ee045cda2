package backup

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// CipherAEAD names the default scheme in the file header.
const CipherAEAD = "argon2id-xchacha20poly1305"

// Argon2id parameters. Changing them breaks existing files.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	keyLen       = chacha20poly1305.KeySize
	saltLen      = 16
)

var encoding = base64.StdEncoding

// random is swapped in tests that need deterministic output.
var random io.Reader = rand.Reader

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, keyLen)
}

func associatedData(h Header) []byte {
	return []byte(fmt.Sprintf("expplan-backup|%d|%s|%s", h.Version, h.Timestamp, h.Cipher))
}

// seal returns nonce||ciphertext and the salt the key was derived with.
func seal(plain []byte, password string, ad []byte) ([]byte, []byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(random, salt); err != nil {
		return nil, nil, fmt.Errorf("generating salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(password, salt))
	if err != nil {
		return nil, nil, fmt.Errorf("creating cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := io.ReadFull(random, nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plain, ad), salt, nil
}

func open(sealed, salt []byte, password string, ad []byte) ([]byte, error) {
	if len(salt) != saltLen {
		return nil, fmt.Errorf("salt is %d bytes, want %d", len(salt), saltLen)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, ad)
	if err != nil {
		return nil, errors.New("authentication failed")
	}
	return plain, nil
}

// xorKey applies the legacy repeating-key XOR over the UTF-8 bytes of the
// payload. The key is the low byte of each UTF-16 code unit of the password,
// so passwords that differ only in high bytes, or that repeat the same key
// ("pw" and "pwpw"), decrypt each other's files. Files written by tools that
// XOR whole code units instead of bytes do not decode to the same text when
// they contain non-ASCII characters. Applying it twice is the identity.
func xorKey(b []byte, password string) []byte {
	units := utf16.Encode([]rune(password))
	out := make([]byte, len(b))
	if len(units) == 0 {
		copy(out, b)
		return out
	}
	for i, c := range b {
		out[i] = c ^ byte(units[i%len(units)])
	}
	return out
}
