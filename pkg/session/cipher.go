package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cipher constants.
const (
	// BlockSize is the AES block size; PKCS#7 pads to this.
	BlockSize = 16

	// IVSize is the per-message initialization vector size.
	IVSize = 16

	// TagSize is the HMAC-SHA256 authentication tag size.
	TagSize = 32

	// MaxPlaintextSize bounds a single frame's plaintext.
	MaxPlaintextSize = 256
)

// Cipher errors.
var (
	// ErrEncryptFailed indicates encryption could not complete.
	ErrEncryptFailed = errors.New("encrypt failed")

	// ErrDecryptFailed indicates authentication, padding, or length
	// validation failed. Deliberately coarse: callers and peers learn
	// nothing about which check rejected the frame.
	ErrDecryptFailed = errors.New("decrypt failed")

	// ErrPlaintextTooLarge indicates the plaintext exceeds the frame bound.
	ErrPlaintextTooLarge = errors.New("plaintext too large")
)

// EncryptedMessage is one on-wire frame.
type EncryptedMessage struct {
	// Ciphertext is the CBC output, a whole number of blocks.
	Ciphertext []byte

	// IV is the per-message initialization vector, fresh per encrypt.
	IV []byte

	// AuthTag is HMAC-SHA256 over IV followed by ciphertext.
	AuthTag []byte

	// MessageID identifies the frame for logging and correlation.
	MessageID string

	// Timestamp is when the frame was produced.
	Timestamp time.Time
}

// Encrypt produces an authenticated frame for the plaintext. Requires
// a live session. Each call draws a fresh IV; IVs are never reused
// under the same key.
func (c *Crypto) Encrypt(plaintext []byte) (*EncryptedMessage, error) {
	if !c.established || c.key == nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, ErrNoSession)
	}
	if c.key.expired(c.now()) {
		return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, ErrSessionExpired)
	}
	if len(plaintext) > MaxPlaintextSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPlaintextTooLarge, len(plaintext))
	}

	block, err := aes.NewCipher(c.key.cipherKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}

	padded := pkcs7Pad(plaintext, BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	wipe(padded)

	return &EncryptedMessage{
		Ciphertext: ciphertext,
		IV:         iv,
		AuthTag:    c.computeTag(iv, ciphertext),
		MessageID:  uuid.New().String(),
		Timestamp:  c.now(),
	}, nil
}

// Decrypt authenticates and decrypts a frame. The tag is verified in
// constant time before any cipher work; padding is validated in
// constant time after. All failures collapse to ErrDecryptFailed.
func (c *Crypto) Decrypt(msg *EncryptedMessage) ([]byte, error) {
	if !c.established || c.key == nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, ErrNoSession)
	}
	if c.key.expired(c.now()) {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, ErrSessionExpired)
	}
	if msg == nil || len(msg.IV) != IVSize || len(msg.Ciphertext) == 0 ||
		len(msg.Ciphertext)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: malformed frame", ErrDecryptFailed)
	}

	if len(msg.AuthTag) > 0 {
		expected := c.computeTag(msg.IV, msg.Ciphertext)
		if !hmac.Equal(msg.AuthTag, expected) {
			return nil, fmt.Errorf("%w: authentication failed", ErrDecryptFailed)
		}
	}

	block, err := aes.NewCipher(c.key.cipherKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	padded := make([]byte, len(msg.Ciphertext))
	cipher.NewCBCDecrypter(block, msg.IV).CryptBlocks(padded, msg.Ciphertext)

	plaintext, ok := pkcs7Unpad(padded, BlockSize)
	if !ok {
		wipe(padded)
		return nil, fmt.Errorf("%w: invalid padding", ErrDecryptFailed)
	}
	return plaintext, nil
}

// computeTag returns HMAC-SHA256(macKey, IV ‖ ciphertext).
func (c *Crypto) computeTag(iv, ciphertext []byte) []byte {
	mac := hmac.New(sha256.New, c.key.macKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	return mac.Sum(nil)
}

// pkcs7Pad appends PKCS#7 padding up to a whole block.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

// pkcs7Unpad validates and strips PKCS#7 padding without branching on
// secret bytes. The returned slice aliases data.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}

	padding := int(data[len(data)-1])
	// Range check without leaking the padding value through timing:
	// fold the comparison results into a single mask.
	tooBig := subtle.ConstantTimeLessOrEq(padding, blockSize) ^ 1
	tooSmall := subtle.ConstantTimeLessOrEq(1, padding) ^ 1

	// Compare every candidate padding byte against the padding value.
	bad := 0
	for i := 0; i < blockSize; i++ {
		idx := len(data) - 1 - i
		inPad := subtle.ConstantTimeLessOrEq(i+1, padding)
		match := subtle.ConstantTimeByteEq(data[idx], byte(padding))
		bad |= inPad & (match ^ 1)
	}

	if tooBig|tooSmall|bad != 0 {
		return nil, false
	}
	return data[:len(data)-padding], true
}
