// Package auth implements the password protected mode of the management
// API: an HMAC proof of the shared password followed by a ChaCha20-Poly1305
// sealed connection.
package auth

import (
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// PasswordLength is the length of generated passwords.
	PasswordLength = 20
	passwordChars  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	keySize       = 32
	kdfIterations = 100_000
	kdfSalt       = "padmap-api-key-v1"
	sessionInfo   = "padmap-api-session-v1"
)

var ErrEmptyPassword = errors.New("password must not be empty")

// GeneratePassword returns a random base62 password.
func GeneratePassword() (string, error) {
	b := make([]byte, PasswordLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = passwordChars[int(b[i])%len(passwordChars)]
	}
	return string(b), nil
}

// DeriveKey stretches a password into the 32 byte handshake key.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return pbkdf2.Key(sha256.New, password, []byte(kdfSalt), kdfIterations, keySize)
}

// sessionKeys expands the handshake key and both nonces into one key per
// direction.
func sessionKeys(key, clientNonce, serverNonce []byte) (toServer, toClient []byte, err error) {
	salt := append(append([]byte{}, clientNonce...), serverNonce...)
	r := hkdf.New(sha256.New, key, salt, []byte(sessionInfo))
	out := make([]byte, 2*keySize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, nil, err
	}
	return out[:keySize], out[keySize:], nil
}
