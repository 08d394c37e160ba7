package backup

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed archive layout: magic, argon2id salt, XChaCha20-Poly1305 nonce,
// ciphertext.
var sealMagic = []byte("PLOTSEAL")

const sealSaltSize = 16

var (
	// ErrNotSealed means the file is not a sealed archive.
	ErrNotSealed = errors.New("not a sealed archive")
	// ErrWrongPassphrase means decryption failed; wrong passphrase or a
	// corrupt archive.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupt archive")
)

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 3, 64*1024, 4, chacha20poly1305.KeySize)
}

// sealFile encrypts src into dst.
func sealFile(src, dst, passphrase string) error {
	plain, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}

	salt := make([]byte, sealSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealMagic)+len(salt)+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plain, nil)

	if err := os.WriteFile(dst, out, 0o600); err != nil {
		return fmt.Errorf("write sealed archive: %w", err)
	}
	return nil
}

// Unseal decrypts a sealed archive back into a plain tar.gz at dst.
func Unseal(src, dst, passphrase string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read sealed archive: %w", err)
	}

	header := len(sealMagic) + sealSaltSize + chacha20poly1305.NonceSizeX
	if len(data) < header || !bytes.Equal(data[:len(sealMagic)], sealMagic) {
		return ErrNotSealed
	}
	salt := data[len(sealMagic) : len(sealMagic)+sealSaltSize]
	nonce := data[len(sealMagic)+sealSaltSize : header]

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return fmt.Errorf("init cipher: %w", err)
	}
	plain, err := aead.Open(nil, nonce, data[header:], nil)
	if err != nil {
		return ErrWrongPassphrase
	}

	if err := os.WriteFile(dst, plain, 0o600); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}
