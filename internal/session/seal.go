package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const sealInfo = "shollu-partner bearer token"

var ErrUnseal = errors.New("sealed token could not be opened")

// Sealer encrypts bearer tokens before they are written to storage.
type Sealer struct {
	key [32]byte
}

func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("sealing secret is empty")
	}
	s := &Sealer{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}
	return s, nil
}

// Seal returns nonce || box.
func (s *Sealer) Seal(token string) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], []byte(token), &nonce, &s.key), nil
}

func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) < 24+secretbox.Overhead {
		return "", ErrUnseal
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &s.key)
	if !ok {
		return "", ErrUnseal
	}
	return string(plain), nil
}

// HashToken is the lookup key of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
