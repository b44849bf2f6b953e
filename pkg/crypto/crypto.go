package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Encrypt seals data with XChaCha20-Poly1305 and returns base64 text.
// The nonce is prepended to the ciphertext.
func Encrypt(data, key string) (string, error) {
	aead, err := chacha20poly1305.NewX(FixEncryptionKey(key))
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(data)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(data), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens text produced by Encrypt with the same key.
func Decrypt(data, key string) (string, error) {
	aead, err := chacha20poly1305.NewX(FixEncryptionKey(key))
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", err
	}
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return "", ErrCiphertextTooShort
	}

	nonce, ciphertext := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// FixEncryptionKey derives a 32 byte key from any passphrase.
func FixEncryptionKey(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}
