// Package secretbox seals credentials at rest with AES-GCM.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/datatypes"
)

const payloadVersion = 1

var (
	ErrKeyMissing  = errors.New("encryption_key_missing")
	ErrUnavailable = errors.New("secret_unavailable")
)

type payload struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Box seals and opens secrets. The zero value and a nil Box are disabled.
type Box struct {
	key []byte
}

// New derives the sealing key from secret. An empty secret yields a
// disabled Box.
func New(secret string) *Box {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &Box{}
	}
	sum := sha256.Sum256([]byte(secret))
	return &Box{key: sum[:]}
}

func (b *Box) Enabled() bool {
	return b != nil && len(b.key) > 0
}

func (b *Box) gcm() (cipher.AEAD, error) {
	if !b.Enabled() {
		return nil, ErrKeyMissing
	}
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plain. The sealed value only opens with the same owner,
// so it cannot be moved to another row.
func (b *Box) Seal(owner string, plain string) (datatypes.JSON, error) {
	gcm, err := b.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plain), []byte(owner))
	out, err := json.Marshal(payload{
		Version:    payloadVersion,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(ciphertext),
	})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}

func (b *Box) Open(owner string, sealed datatypes.JSON) (string, error) {
	gcm, err := b.gcm()
	if err != nil {
		return "", err
	}
	if len(sealed) == 0 {
		return "", ErrUnavailable
	}

	var p payload
	if err := json.Unmarshal(sealed, &p); err != nil || p.Version != payloadVersion {
		return "", ErrUnavailable
	}
	nonce, err := base64.RawStdEncoding.DecodeString(p.Nonce)
	if err != nil || len(nonce) != gcm.NonceSize() {
		return "", ErrUnavailable
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(p.Ciphertext)
	if err != nil {
		return "", ErrUnavailable
	}

	plain, err := gcm.Open(nil, nonce, ciphertext, []byte(owner))
	if err != nil {
		return "", ErrUnavailable
	}
	return string(plain), nil
}
