package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Session errors.
var (
	// ErrInitFailed indicates the entropy source or curve context could
	// not be set up.
	ErrInitFailed = errors.New("crypto init failed")

	// ErrKeyExchange indicates the peer public key was rejected or the
	// scalar multiplication failed.
	ErrKeyExchange = errors.New("key exchange failed")

	// ErrNoSession indicates no established session.
	ErrNoSession = errors.New("no established session")

	// ErrSessionExpired indicates the session outlived its timeout.
	ErrSessionExpired = errors.New("session expired")

	// ErrNoKeyPair indicates no valid asymmetric keypair exists.
	ErrNoKeyPair = errors.New("no valid keypair")

	// ErrNoSharedSecret indicates derivation was requested before key
	// agreement completed.
	ErrNoSharedSecret = errors.New("no shared secret")
)

// Key derivation labels. The cipher and MAC keys are independent
// HKDF-SHA256 expansions of the master secret.
const (
	labelCipherKey = "wible v1 cipher"
	labelMACKey    = "wible v1 mac"
)

// minEntropyBytes is the seed size required from the platform entropy
// source at init.
const minEntropyBytes = 32

// Config controls session behavior.
type Config struct {
	// SessionTimeout bounds the lifetime of derived session keys.
	SessionTimeout time.Duration

	// EnablePFS regenerates the asymmetric keypair on every session
	// teardown.
	EnablePFS bool
}

// Key is the derived symmetric session material.
type Key struct {
	cipherKey []byte
	macKey    []byte
	master    []byte
	ivSeed    []byte

	// ID identifies the session on both sides.
	ID string

	createdAt time.Time
	expiresAt time.Time
}

// SessionID returns the session identifier, empty when no session exists.
func (k *Key) SessionID() string {
	if k == nil {
		return ""
	}
	return k.ID
}

// expired reports whether the key outlived its timeout.
func (k *Key) expired(now time.Time) bool {
	return k == nil || now.After(k.expiresAt)
}

// destroy wipes all symmetric material.
func (k *Key) destroy() {
	if k == nil {
		return
	}
	wipe(k.cipherKey)
	wipe(k.macKey)
	wipe(k.master)
	wipe(k.ivSeed)
	k.ID = ""
}

// Crypto owns the asymmetric keypair, the shared secret, and the
// derived session key. It is not goroutine-safe; a single owner drives
// it from the event loop.
type Crypto struct {
	cfg Config

	keyPair      *KeyPair
	sharedSecret []byte
	key          *Key

	established  bool
	renewCounter uint32

	now func() time.Time
}

// NewCrypto sets up the crypto context. It verifies the platform
// entropy source by drawing a full seed before any key is generated.
func NewCrypto(cfg Config) (*Crypto, error) {
	seed := make([]byte, minEntropyBytes)
	n, err := rand.Read(seed)
	wipe(seed)
	if err != nil || n < minEntropyBytes {
		return nil, fmt.Errorf("%w: entropy source returned %d bytes", ErrInitFailed, n)
	}

	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 5 * time.Minute
	}

	return &Crypto{cfg: cfg, now: time.Now}, nil
}

// SetClock replaces the clock. Intended for tests.
func (c *Crypto) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// GenerateKeyPair produces a fresh ephemeral keypair, wiping any
// previous private material first.
func (c *Crypto) GenerateKeyPair() error {
	kp, err := generateKeyPair(c.now())
	if err != nil {
		return err
	}
	c.keyPair.destroy()
	c.keyPair = kp
	return nil
}

// PublicKey returns the 32-byte public point for transmission, or nil
// when no valid keypair exists.
func (c *Crypto) PublicKey() []byte {
	return c.keyPair.Public()
}

// KeyPairValid reports whether a usable keypair exists.
func (c *Crypto) KeyPairValid() bool {
	return c.keyPair.Valid()
}

// ComputeSharedSecret performs X25519 with the peer's public key. The
// peer key must be exactly 32 bytes and must not be the identity;
// low-order points are rejected by the scalar multiplication itself.
func (c *Crypto) ComputeSharedSecret(peerPublic []byte) error {
	if !c.keyPair.Valid() {
		return fmt.Errorf("%w: %v", ErrKeyExchange, ErrNoKeyPair)
	}
	if len(peerPublic) != KeySize {
		return fmt.Errorf("%w: peer key is %d bytes", ErrKeyExchange, len(peerPublic))
	}
	if isAllZero(peerPublic) {
		return fmt.Errorf("%w: peer key is the identity", ErrKeyExchange)
	}

	shared, err := curve25519.X25519(c.keyPair.private, peerPublic)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyExchange, err)
	}

	wipe(c.sharedSecret)
	c.sharedSecret = shared
	return nil
}

// DeriveSessionKey turns the shared secret into session material:
// master = SHA-256(shared secret), cipher and MAC keys expanded from
// the master, a random IV seed, a random base64 session ID, and an
// expiry of now + session timeout. The shared secret is wiped
// immediately after derivation.
func (c *Crypto) DeriveSessionKey() error {
	if len(c.sharedSecret) == 0 {
		return ErrNoSharedSecret
	}

	master := sha256.Sum256(c.sharedSecret)
	wipe(c.sharedSecret)
	c.sharedSecret = nil

	key, err := expandKey(master[:], 0)
	if err != nil {
		wipe(master[:])
		return err
	}

	now := c.now()
	key.createdAt = now
	key.expiresAt = now.Add(c.cfg.SessionTimeout)

	c.key.destroy()
	c.key = key
	c.established = true
	c.renewCounter = 0
	return nil
}

// expandKey derives cipher/MAC keys, IV seed, and session ID from the
// master secret. The counter binds renewed generations to distinct
// keys. Ownership of master passes to the returned Key.
func expandKey(master []byte, counter uint32) (*Key, error) {
	info := []byte{byte(counter >> 24), byte(counter >> 16), byte(counter >> 8), byte(counter)}

	cipherKey := make([]byte, 32)
	macKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, master, append([]byte(labelCipherKey), info...)), cipherKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, master, append([]byte(labelMACKey), info...)), macKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	ivSeed := make([]byte, IVSize)
	if _, err := rand.Read(ivSeed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}
	rawID := make([]byte, 16)
	if _, err := rand.Read(rawID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	return &Key{
		cipherKey: cipherKey,
		macKey:    macKey,
		master:    master,
		ivSeed:    ivSeed,
		ID:        base64.StdEncoding.EncodeToString(rawID),
	}, nil
}

// RenewSessionKey re-derives session material from the retained master
// secret without touching the asymmetric keypair. Used when a session
// approaches its age threshold.
func (c *Crypto) RenewSessionKey() error {
	if !c.established || c.key == nil {
		return ErrNoSession
	}

	c.renewCounter++
	master := make([]byte, len(c.key.master))
	copy(master, c.key.master)

	key, err := expandKey(master, c.renewCounter)
	if err != nil {
		wipe(master)
		return err
	}

	now := c.now()
	key.createdAt = now
	key.expiresAt = now.Add(c.cfg.SessionTimeout)

	c.key.destroy()
	c.key = key
	return nil
}

// TerminateSession wipes all symmetric material. With PFS enabled the
// old private scalar is zeroized and the keypair regenerated so the
// next ceremony starts from fresh ephemeral material; without PFS the
// keypair stays valid for reuse.
func (c *Crypto) TerminateSession() {
	c.key.destroy()
	c.key = nil
	wipe(c.sharedSecret)
	c.sharedSecret = nil
	c.established = false
	c.renewCounter = 0

	if c.cfg.EnablePFS {
		// Best effort: a failed regeneration leaves no valid keypair,
		// which the next ComputeSharedSecret reports.
		_ = c.GenerateKeyPair()
	}
}

// Established reports whether a live, unexpired session exists.
func (c *Crypto) Established() bool {
	return c.established && !c.key.expired(c.now())
}

// SessionID returns the current session identifier.
func (c *Crypto) SessionID() string {
	if !c.established {
		return ""
	}
	return c.key.SessionID()
}

// SessionAge returns how long the current session has existed, zero
// when none does.
func (c *Crypto) SessionAge() time.Duration {
	if !c.established || c.key == nil {
		return 0
	}
	return c.now().Sub(c.key.createdAt)
}

// isAllZero reports whether every byte is zero.
func isAllZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return acc == 0
}
