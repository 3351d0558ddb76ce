// Package session implements the encrypted provisioning session.
//
// A session is established by X25519 key agreement with the peer's
// ephemeral public key. The 32-byte shared secret is hashed with
// SHA-256 into a master secret, from which separate cipher and MAC
// keys are expanded with HKDF-SHA256. Frames are AES-256-CBC with
// PKCS#7 padding, authenticated by HMAC-SHA256 over IV and ciphertext.
// The tag is verified in constant time before any cipher work.
//
// Key material is wiped on terminate, renew, and regeneration. With
// perfect forward secrecy enabled, terminating a session also discards
// the asymmetric keypair so a later key compromise reveals nothing
// about past ceremonies.
package session
