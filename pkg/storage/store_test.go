package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wible-protocol/wible-go/pkg/storage"
)

func TestMemoryStoreCRUD(t *testing.T) {
	s := storage.NewMemoryStore()

	_, err := s.Get("ns", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Put("ns", "k", []byte("v1")))
	got, err := s.Get("ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Namespaces are isolated.
	_, err = s.Get("other", "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Put("ns", "k", []byte("v2")))
	got, _ = s.Get("ns", "k")
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, s.Delete("ns", "k"))
	_, err = s.Get("ns", "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting a missing key is fine.
	assert.NoError(t, s.Delete("ns", "k"))

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Put("ns", "k", nil), storage.ErrStoreClosed)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := storage.NewMemoryStore()
	val := []byte("secret")
	require.NoError(t, s.Put("ns", "k", val))

	val[0] = 'X'
	got, err := s.Get("ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), got)
}

func TestCredentialStoreRoundTrip(t *testing.T) {
	cs := storage.NewCredentialStore(storage.NewMemoryStore())

	_, err := cs.Load()
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, cs.Save(storage.CredentialRecord{
		SSID:         "HomeNet",
		Password:     "p@ssw0rd",
		SecurityType: "WPA2",
		Hidden:       true,
	}))

	record, err := cs.Load()
	require.NoError(t, err)
	assert.Equal(t, "HomeNet", record.SSID)
	assert.Equal(t, "p@ssw0rd", record.Password)
	assert.Equal(t, "WPA2", record.SecurityType)
	assert.True(t, record.Hidden)
	assert.False(t, record.SavedAt.IsZero())

	require.NoError(t, cs.Clear())
	_, err = cs.Load()
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCredentialStoreLegacyLayout(t *testing.T) {
	s := storage.NewMemoryStore()
	// A device flashed by an older firmware only has the bare keys.
	require.NoError(t, s.Put(storage.CredentialNamespace, "ssid", []byte("OldNet")))
	require.NoError(t, s.Put(storage.CredentialNamespace, "pass", []byte("oldpass")))

	record, err := storage.NewCredentialStore(s).Load()
	require.NoError(t, err)
	assert.Equal(t, "OldNet", record.SSID)
	assert.Equal(t, "oldpass", record.Password)
}

func TestBoltStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/wible.db"

	s, err := storage.OpenBolt(path)
	require.NoError(t, err)

	require.NoError(t, s.Put(storage.CredentialNamespace, "ssid", []byte("HomeNet")))
	got, err := s.Get(storage.CredentialNamespace, "ssid")
	require.NoError(t, err)
	assert.Equal(t, []byte("HomeNet"), got)

	_, err = s.Get(storage.CredentialNamespace, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.Get("empty_ns", "ssid")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Close())

	// Values survive reopening.
	s, err = storage.OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()

	got, err = s.Get(storage.CredentialNamespace, "ssid")
	require.NoError(t, err)
	assert.Equal(t, []byte("HomeNet"), got)

	require.NoError(t, s.Delete(storage.CredentialNamespace, "ssid"))
	_, err = s.Get(storage.CredentialNamespace, "ssid")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, s.Delete("empty_ns", "k"))
}

func TestCredentialStoreOnBolt(t *testing.T) {
	s, err := storage.OpenBolt(t.TempDir() + "/creds.db")
	require.NoError(t, err)
	defer s.Close()

	cs := storage.NewCredentialStore(s)
	require.NoError(t, cs.Save(storage.CredentialRecord{SSID: "Lab", Password: ""}))

	record, err := cs.Load()
	require.NoError(t, err)
	assert.Equal(t, "Lab", record.SSID)
	assert.Empty(t, record.Password)
}
