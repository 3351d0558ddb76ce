package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CredentialNamespace is the namespace holding provisioned credentials.
const CredentialNamespace = "wible_creds"

// Credential record keys. ssid and pass hold the bare values for
// peers that read the legacy layout; record holds the full CBOR
// record.
const (
	keySSID   = "ssid"
	keyPass   = "pass"
	keyRecord = "record"
)

// Store errors.
var (
	// ErrNotFound indicates the key does not exist in the namespace.
	ErrNotFound = errors.New("key not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("store closed")
)

// Store is a namespaced key/value store. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get returns the value for key in namespace, or ErrNotFound.
	Get(namespace, key string) ([]byte, error)

	// Put writes the value for key in namespace.
	Put(namespace, key string, value []byte) error

	// Delete removes key from namespace. Deleting a missing key is
	// not an error.
	Delete(namespace, key string) error

	// Close releases the store.
	Close() error
}

// CredentialRecord is the persisted form of provisioned credentials.
// CBOR with integer keys, matching the protocol log encoding.
type CredentialRecord struct {
	// SSID is the provisioned network name.
	SSID string `cbor:"1,keyasint"`

	// Password is the network passphrase.
	Password string `cbor:"2,keyasint"`

	// SecurityType is the station security mode string.
	SecurityType string `cbor:"3,keyasint,omitempty"`

	// Hidden marks a non-broadcast SSID.
	Hidden bool `cbor:"4,keyasint,omitempty"`

	// SavedAt is when the record was written.
	SavedAt time.Time `cbor:"5,keyasint"`
}

// CredentialStore persists credential records into a Store.
type CredentialStore struct {
	store Store
}

// NewCredentialStore wraps a Store for credential persistence.
func NewCredentialStore(store Store) *CredentialStore {
	return &CredentialStore{store: store}
}

// Save writes the record under the credential namespace.
func (c *CredentialStore) Save(record CredentialRecord) error {
	if record.SavedAt.IsZero() {
		record.SavedAt = time.Now()
	}

	data, err := cbor.Marshal(&record)
	if err != nil {
		return fmt.Errorf("failed to encode credential record: %w", err)
	}

	if err := c.store.Put(CredentialNamespace, keySSID, []byte(record.SSID)); err != nil {
		return fmt.Errorf("failed to store ssid: %w", err)
	}
	if err := c.store.Put(CredentialNamespace, keyPass, []byte(record.Password)); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}
	if err := c.store.Put(CredentialNamespace, keyRecord, data); err != nil {
		return fmt.Errorf("failed to store credential record: %w", err)
	}
	return nil
}

// Load reads the persisted record, falling back to the bare ssid/pass
// keys when only the legacy layout exists. Returns ErrNotFound when
// the device has never been provisioned.
func (c *CredentialStore) Load() (*CredentialRecord, error) {
	data, err := c.store.Get(CredentialNamespace, keyRecord)
	if err == nil {
		var record CredentialRecord
		if err := cbor.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to decode credential record: %w", err)
		}
		return &record, nil
	}

	ssid, err := c.store.Get(CredentialNamespace, keySSID)
	if err != nil {
		return nil, err
	}
	pass, err := c.store.Get(CredentialNamespace, keyPass)
	if err != nil {
		return nil, err
	}
	return &CredentialRecord{SSID: string(ssid), Password: string(pass)}, nil
}

// Clear removes any persisted credentials.
func (c *CredentialStore) Clear() error {
	for _, key := range []string{keySSID, keyPass, keyRecord} {
		if err := c.store.Delete(CredentialNamespace, key); err != nil {
			return err
		}
	}
	return nil
}
