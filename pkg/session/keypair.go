package session

import (
	"crypto/rand"
	"fmt"
	"time"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the size of Curve25519 scalars and points in bytes.
const KeySize = 32

// KeyPair holds an ephemeral X25519 keypair.
type KeyPair struct {
	private     []byte
	public      []byte
	generatedAt time.Time
	valid       bool
}

// generateKeyPair produces a fresh X25519 keypair.
func generateKeyPair(now time.Time) (*KeyPair, error) {
	private := make([]byte, KeySize)
	if _, err := rand.Read(private); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	public, err := curve25519.X25519(private, curve25519.Basepoint)
	if err != nil {
		wipe(private)
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	return &KeyPair{
		private:     private,
		public:      public,
		generatedAt: now,
		valid:       true,
	}, nil
}

// Public returns the public point, or nil when the keypair is invalid.
func (k *KeyPair) Public() []byte {
	if k == nil || !k.valid {
		return nil
	}
	return k.public
}

// Valid reports whether the keypair holds usable material.
func (k *KeyPair) Valid() bool {
	return k != nil && k.valid
}

// GeneratedAt returns the generation timestamp.
func (k *KeyPair) GeneratedAt() time.Time {
	if k == nil {
		return time.Time{}
	}
	return k.generatedAt
}

// destroy wipes the private scalar and invalidates the keypair.
func (k *KeyPair) destroy() {
	if k == nil {
		return
	}
	wipe(k.private)
	k.private = nil
	k.public = nil
	k.valid = false
}

// wipe zeroes a byte slice in place.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
