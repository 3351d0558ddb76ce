package provisioning_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wible-protocol/wible-go/pkg/provisioning"
)

func TestParseCredentials(t *testing.T) {
	creds, err := provisioning.ParseCredentials(`{"ssid":"HomeNet","pass":"p@ssw0rd"}`)
	require.NoError(t, err)
	assert.Equal(t, "HomeNet", creds.SSID)
	assert.Equal(t, "p@ssw0rd", creds.Password)
	assert.Equal(t, "WPA2", creds.SecurityType)
	assert.False(t, creds.Hidden)
	assert.True(t, creds.Valid())
}

func TestParseCredentialsOptionalFields(t *testing.T) {
	creds, err := provisioning.ParseCredentials(
		`{"ssid":"Lab","pass":"","security":"WPA3","hidden":true}`)
	require.NoError(t, err)
	assert.Equal(t, "Lab", creds.SSID)
	assert.Empty(t, creds.Password)
	assert.Equal(t, "WPA3", creds.SecurityType)
	assert.True(t, creds.Hidden)
	assert.True(t, creds.Valid(), "open networks have empty passwords")
}

func TestParseCredentialsMissingSSID(t *testing.T) {
	_, err := provisioning.ParseCredentials(`{"pass":"secret"}`)
	assert.ErrorIs(t, err, provisioning.ErrCredentialFormat)

	_, err = provisioning.ParseCredentials(`not json at all`)
	assert.ErrorIs(t, err, provisioning.ErrCredentialFormat)

	_, err = provisioning.ParseCredentials(`{"ssid":"unterminated`)
	assert.ErrorIs(t, err, provisioning.ErrCredentialFormat)
}

func TestCredentialBounds(t *testing.T) {
	cases := []struct {
		name  string
		creds provisioning.Credentials
		valid bool
	}{
		{"ok", provisioning.Credentials{SSID: "net", Password: "pass"}, true},
		{"empty ssid", provisioning.Credentials{Password: "pass"}, false},
		{"ssid at limit", provisioning.Credentials{SSID: strings.Repeat("a", 32)}, true},
		{"ssid too long", provisioning.Credentials{SSID: strings.Repeat("a", 33)}, false},
		{"password at limit", provisioning.Credentials{SSID: "net", Password: strings.Repeat("p", 64)}, true},
		{"password too long", provisioning.Credentials{SSID: "net", Password: strings.Repeat("p", 65)}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.valid, tc.creds.Valid(), tc.name)
	}
}
