package provisioning

import (
	"errors"
	"strings"
)

// Credential field bounds.
const (
	// MaxSSIDLen is the 802.11 SSID limit in bytes.
	MaxSSIDLen = 32

	// MaxPasswordLen is the WPA2 passphrase limit in bytes.
	MaxPasswordLen = 64
)

// Credential errors.
var (
	// ErrInvalidCredentials indicates a frame that parsed but failed
	// validation.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCredentialFormat indicates a frame the parser could not read.
	ErrCredentialFormat = errors.New("credential format invalid")
)

// Credentials is the parsed content of a credential frame. The
// plaintext lives only on the call stack between decryption and the
// Wi-Fi connect call; it is never placed in a long-lived container.
type Credentials struct {
	SSID         string
	Password     string
	SecurityType string
	Hidden       bool
}

// Valid reports whether the credentials satisfy the field bounds:
// non-empty SSID of at most 32 bytes, password of at most 64 bytes.
func (c Credentials) Valid() bool {
	return c.SSID != "" && len(c.SSID) <= MaxSSIDLen && len(c.Password) <= MaxPasswordLen
}

// ParseCredentials extracts credentials from the decrypted payload by
// literal key search, the way constrained peers produce it:
// {"ssid":"...","pass":"..."}. The grammar is fixed; escape sequences
// are not part of it.
func ParseCredentials(payload string) (Credentials, error) {
	ssid, ok := extractField(payload, `"ssid":"`)
	if !ok {
		return Credentials{}, ErrCredentialFormat
	}
	// Password may legitimately be empty (open networks).
	pass, _ := extractField(payload, `"pass":"`)

	creds := Credentials{
		SSID:         ssid,
		Password:     pass,
		SecurityType: "WPA2",
	}
	if sec, ok := extractField(payload, `"security":"`); ok {
		creds.SecurityType = sec
	}
	if hidden, ok := extractField(payload, `"hidden":`); ok {
		creds.Hidden = strings.HasPrefix(hidden, "true")
	}
	return creds, nil
}

// extractField returns the value following the literal key up to the
// next double quote (or comma/brace for bare values).
func extractField(payload, key string) (string, bool) {
	start := strings.Index(payload, key)
	if start < 0 {
		return "", false
	}
	start += len(key)

	rest := payload[start:]
	if strings.HasSuffix(key, `:"`) {
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			return "", false
		}
		return rest[:end], true
	}

	end := strings.IndexAny(rest, ",}")
	if end < 0 {
		end = len(rest)
	}
	return strings.TrimSpace(rest[:end]), true
}
