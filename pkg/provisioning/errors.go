package provisioning

import "fmt"

// ErrorKind classifies provisioning failures.
type ErrorKind uint8

const (
	ErrorNone ErrorKind = iota
	ErrorBleInitFailed
	ErrorBleConnectionLost
	ErrorWifiInitFailed
	ErrorWifiConnectionFailed
	ErrorCredentialFormat
	ErrorAuthenticationFailed
	ErrorCryptoInitFailed
	ErrorCryptoKeyExchangeFailed
	ErrorCryptoDecryptFailed
	ErrorStorageFailed
	ErrorTimeout
	ErrorUnknown
)

// String returns the error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "NONE"
	case ErrorBleInitFailed:
		return "BLE_INIT_FAILED"
	case ErrorBleConnectionLost:
		return "BLE_CONNECTION_LOST"
	case ErrorWifiInitFailed:
		return "WIFI_INIT_FAILED"
	case ErrorWifiConnectionFailed:
		return "WIFI_CONNECTION_FAILED"
	case ErrorCredentialFormat:
		return "CREDENTIAL_FORMAT_INVALID"
	case ErrorAuthenticationFailed:
		return "AUTHENTICATION_FAILED"
	case ErrorCryptoInitFailed:
		return "CRYPTO_INIT_FAILED"
	case ErrorCryptoKeyExchangeFailed:
		return "CRYPTO_KEY_EXCHANGE_FAILED"
	case ErrorCryptoDecryptFailed:
		return "CRYPTO_DECRYPT_FAILED"
	case ErrorStorageFailed:
		return "STORAGE_FAILED"
	case ErrorTimeout:
		return "TIMEOUT_ERROR"
	case ErrorUnknown:
		return "UNKNOWN_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is a provisioning failure surfaced to the application.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Message is a human-readable description.
	Message string

	// CanRetry is true when the ceremony returned to advertising and
	// a peer may try again, false when the machine is parked in the
	// error state pending recovery.
	CanRetry bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ErrorFunc receives provisioning failures.
type ErrorFunc func(kind ErrorKind, message string, canRetry bool)
