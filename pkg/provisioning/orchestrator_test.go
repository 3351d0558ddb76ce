package provisioning_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wible-protocol/wible-go/internal/sim"
	"github.com/wible-protocol/wible-go/pkg/gatt"
	"github.com/wible-protocol/wible-go/pkg/provisioning"
	"github.com/wible-protocol/wible-go/pkg/session"
	"github.com/wible-protocol/wible-go/pkg/state"
	"github.com/wible-protocol/wible-go/pkg/storage"
)

// rig is a complete in-process device plus the peer side of the
// ceremony. Tests drive the simulated radios and drain the
// orchestrator queue synchronously.
type rig struct {
	t     *testing.T
	orch  *provisioning.Orchestrator
	ble   *sim.GATTServer
	wifi  *sim.WifiDriver
	store *storage.MemoryStore
	peer  *session.Crypto

	errors []provisioning.Error
	wrote  [][]byte
}

func newRig(t *testing.T, mutate func(*provisioning.Config)) *rig {
	t.Helper()

	cfg := provisioning.DefaultConfig()
	cfg.WifiConnectTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	ble := sim.NewGATTServer()
	station := sim.NewWifiDriver()
	station.AddNetwork("HomeNet", "p@ssw0rd")
	store := storage.NewMemoryStore()

	orch, err := provisioning.New(cfg, provisioning.Deps{
		BLE:   ble,
		Wifi:  station,
		Store: store,
	})
	require.NoError(t, err)

	peer, err := session.NewCrypto(session.Config{SessionTimeout: cfg.SessionTimeout})
	require.NoError(t, err)

	r := &rig{t: t, orch: orch, ble: ble, wifi: station, store: store, peer: peer}
	orch.OnError(func(kind provisioning.ErrorKind, message string, canRetry bool) {
		r.errors = append(r.errors, provisioning.Error{Kind: kind, Message: message, CanRetry: canRetry})
	})

	require.NoError(t, orch.StartProvisioning())
	require.Equal(t, state.Advertising, orch.State())
	return r
}

// write records the frame and delivers it as a central write.
func (r *rig) write(characteristicUUID string, data []byte) {
	r.wrote = append(r.wrote, append([]byte(nil), data...))
	r.ble.CentralWrite(characteristicUUID, data)
	r.orch.ProcessPending()
}

func (r *rig) connect() {
	r.ble.CentralConnect("AA:BB:CC:DD:EE:FF")
	r.orch.ProcessPending()
}

// exchangeKeys plays the peer side of the bootstrap and derives the
// matching session.
func (r *rig) exchangeKeys() {
	r.t.Helper()
	require.NoError(r.t, r.peer.GenerateKeyPair())

	frame, err := gatt.EncodePublicKeyFrame(r.peer.PublicKey())
	require.NoError(r.t, err)
	r.write(gatt.CredentialsCharUUID, frame)

	devicePub := r.devicePublicKey()
	require.NotNil(r.t, devicePub, "device must reply with its public key")
	require.NoError(r.t, r.peer.ComputeSharedSecret(devicePub))
	require.NoError(r.t, r.peer.DeriveSessionKey())
}

// devicePublicKey returns the newest bootstrap reply.
func (r *rig) devicePublicKey() []byte {
	notifications := r.ble.Notifications()
	for i := len(notifications) - 1; i >= 0; i-- {
		n := notifications[i]
		if n.Characteristic == gatt.StatusCharUUID &&
			len(n.Data) == 1+gatt.PublicKeySize && n.Data[0] == gatt.TagPublicKey {
			return n.Data[1:]
		}
	}
	return nil
}

// credentialFrame builds an encrypted credential frame from the peer
// session.
func (r *rig) credentialFrame(ssid, password string) []byte {
	r.t.Helper()
	doc := `{"ssid":"` + ssid + `","pass":"` + password + `"}`
	msg, err := r.peer.Encrypt([]byte(doc))
	require.NoError(r.t, err)
	frame, err := gatt.EncodeCiphertextFrame(msg.IV, msg.Ciphertext, msg.AuthTag)
	require.NoError(r.t, err)
	return frame
}

func (r *rig) sendCredentials(ssid, password string) {
	r.write(gatt.CredentialsCharUUID, r.credentialFrame(ssid, password))
}

// lastStatus decrypts the newest status notification.
func (r *rig) lastStatus() string {
	r.t.Helper()
	notifications := r.ble.Notifications()
	for i := len(notifications) - 1; i >= 0; i-- {
		n := notifications[i]
		if n.Characteristic != gatt.StatusCharUUID {
			continue
		}
		if len(n.Data) == 1+gatt.PublicKeySize && n.Data[0] == gatt.TagPublicKey {
			continue
		}
		if len(n.Data) > 0 && n.Data[0] == gatt.TagCiphertext {
			f, err := gatt.ParseCredentialFrame(n.Data, true)
			require.NoError(r.t, err)
			plain, err := r.peer.Decrypt(&session.EncryptedMessage{
				IV: f.IV, Ciphertext: f.Ciphertext, AuthTag: f.Tag,
			})
			require.NoError(r.t, err, "status frame must decrypt with the peer session")
			return string(plain)
		}
		return string(n.Data)
	}
	return ""
}

func TestHappyPath(t *testing.T) {
	r := newRig(t, nil)

	r.connect()
	assert.Equal(t, state.Connected, r.orch.State())

	r.exchangeKeys()
	assert.Equal(t, state.ReceivingCredentials, r.orch.State())
	assert.True(t, r.orch.Crypto().Established())

	r.sendCredentials("HomeNet", "p@ssw0rd")
	assert.Equal(t, state.Provisioned, r.orch.State())
	assert.Equal(t, `{"status":"SUCCESS","msg":"Connected to HomeNet"}`, r.lastStatus())

	// Credentials were persisted after the ceremony completed.
	record, err := storage.NewCredentialStore(r.store).Load()
	require.NoError(t, err)
	assert.Equal(t, "HomeNet", record.SSID)
	assert.Equal(t, "p@ssw0rd", record.Password)

	m := r.orch.Metrics()
	assert.EqualValues(t, 1, m.Attempts)
	assert.EqualValues(t, 1, m.Successes)
	assert.EqualValues(t, 0, m.Failures)
}

func TestBadDecryptEscalatesAfterThree(t *testing.T) {
	r := newRig(t, nil)
	r.connect()
	r.exchangeKeys()

	// 16 IV bytes plus 16 ciphertext bytes that fail authentication.
	garbage := bytes.Repeat([]byte{0x5A}, 32)

	for i := 0; i < 2; i++ {
		r.write(gatt.CredentialsCharUUID, garbage)
		assert.Equal(t, state.ReceivingCredentials, r.orch.State(), "failure %d is recovered locally", i+1)
		assert.Equal(t, `{"status":"ERROR","msg":"Decryption failed"}`, r.lastStatus())
	}

	r.write(gatt.CredentialsCharUUID, garbage)
	assert.Equal(t, state.Error, r.orch.State(), "third failure escalates")

	last := r.errors[len(r.errors)-1]
	assert.False(t, last.CanRetry)
}

func TestMidHandshakeDisconnect(t *testing.T) {
	r := newRig(t, nil)
	r.connect()
	r.exchangeKeys()
	require.Equal(t, state.ReceivingCredentials, r.orch.State())

	r.ble.CentralDisconnect(8)
	r.orch.ProcessPending()

	assert.Equal(t, state.Advertising, r.orch.State())
	assert.False(t, r.orch.Crypto().Established(), "session must be terminated")

	var sawDisconnect bool
	for _, e := range r.errors {
		if e.Kind == provisioning.ErrorBleConnectionLost {
			sawDisconnect = true
			assert.True(t, e.CanRetry, "back in advertising means a peer may retry")
		}
	}
	assert.True(t, sawDisconnect)
}

func TestWifiFailureThenRecovery(t *testing.T) {
	r := newRig(t, nil)
	r.connect()
	r.exchangeKeys()

	r.sendCredentials("HomeNet", "wrong-password")
	assert.Equal(t, state.Error, r.orch.State())

	var sawWifiFailure bool
	for _, e := range r.errors {
		if e.Kind == provisioning.ErrorWifiConnectionFailed {
			sawWifiFailure = true
			assert.False(t, e.CanRetry)
		}
	}
	assert.True(t, sawWifiFailure)
	assert.EqualValues(t, 1, r.orch.Metrics().Failures)

	// Recovery returns to Idle.
	require.True(t, r.orch.Machine().HandleEvent(state.EventErrorRecovered))
	assert.Equal(t, state.Idle, r.orch.State())
}

func TestResetFromArbitraryState(t *testing.T) {
	r := newRig(t, nil)
	r.connect()
	r.exchangeKeys()
	require.Equal(t, state.ReceivingCredentials, r.orch.State())

	r.write(gatt.ControlCharUUID, []byte{gatt.CommandReset})

	assert.Equal(t, state.Idle, r.orch.State())
	assert.False(t, r.orch.Crypto().Established())

	ctx := r.orch.Machine().Context()
	assert.Zero(t, ctx.RetryCount)
	assert.Zero(t, ctx.LastErrorKind)
	assert.Empty(t, ctx.PeerAddress)
}

func TestReplayAfterSessionTeardownRejected(t *testing.T) {
	r := newRig(t, nil)
	r.connect()
	r.exchangeKeys()

	// Capture a frame for a network the driver does not know, so the
	// first delivery fails the join and the ceremony can be retried.
	frame := r.credentialFrame("GhostNet", "nope")
	r.write(gatt.CredentialsCharUUID, frame)
	require.Equal(t, state.Error, r.orch.State())

	// Tear down and run a fresh ceremony; the old session is gone.
	require.True(t, r.orch.Machine().HandleEvent(state.EventErrorRecovered))
	require.NoError(t, r.orch.StartProvisioning())
	r.connect()
	r.exchangeKeys()
	require.Equal(t, state.ReceivingCredentials, r.orch.State())

	// Replaying the captured frame fails against the new session.
	r.write(gatt.CredentialsCharUUID, frame)
	assert.Equal(t, state.ReceivingCredentials, r.orch.State())
	assert.Equal(t, `{"status":"ERROR","msg":"Decryption failed"}`, r.lastStatus())
}

// TestCredentialConfidentiality pins the core promise: the bytes on
// the GATT wire during a successful ceremony reveal no substring of
// the SSID or password.
func TestCredentialConfidentiality(t *testing.T) {
	r := newRig(t, nil)
	r.connect()
	r.exchangeKeys()
	r.sendCredentials("HomeNet", "p@ssw0rd")
	require.Equal(t, state.Provisioned, r.orch.State())

	var wire [][]byte
	wire = append(wire, r.wrote...)
	for _, n := range r.ble.Notifications() {
		wire = append(wire, n.Data)
	}
	require.NotEmpty(t, wire)

	for i, frame := range wire {
		assert.NotContains(t, string(frame), "HomeNet", "frame %d leaks the SSID", i)
		assert.NotContains(t, string(frame), "p@ssw0rd", "frame %d leaks the password", i)
	}
}

func TestPlaintextProfile(t *testing.T) {
	r := newRig(t, func(c *provisioning.Config) {
		c.SecurityLevel = provisioning.SecurityNone
	})
	r.connect()

	// No key exchange: the document travels in the clear.
	r.write(gatt.CredentialsCharUUID, []byte(`{"ssid":"HomeNet","pass":"p@ssw0rd"}`))

	assert.Equal(t, state.Provisioned, r.orch.State())
	assert.Equal(t, `{"status":"SUCCESS","msg":"Connected to HomeNet"}`, r.lastStatus())
}

func TestInvalidCredentialFormat(t *testing.T) {
	r := newRig(t, nil)
	r.connect()
	r.exchangeKeys()

	doc := `{"password-only":"nope"}`
	msg, err := r.peer.Encrypt([]byte(doc))
	require.NoError(t, err)
	frame, err := gatt.EncodeCiphertextFrame(msg.IV, msg.Ciphertext, msg.AuthTag)
	require.NoError(t, err)
	r.write(gatt.CredentialsCharUUID, frame)

	assert.Equal(t, `{"status":"ERROR","msg":"Invalid format"}`, r.lastStatus())

	var sawFormat bool
	for _, e := range r.errors {
		if e.Kind == provisioning.ErrorCredentialFormat {
			sawFormat = true
		}
	}
	assert.True(t, sawFormat)
}

func TestControlAndDataCharacteristics(t *testing.T) {
	r := newRig(t, nil)

	var commands []byte
	r.orch.OnCommand(func(cmd byte) { commands = append(commands, cmd) })
	var data [][]byte
	r.orch.OnData(func(d []byte) { data = append(data, d) })

	r.connect()
	r.write(gatt.ControlCharUUID, []byte{gatt.CommandScan})
	r.write(gatt.ControlCharUUID, []byte{gatt.CommandFactory})
	r.write(gatt.ControlCharUUID, []byte{0xEE})
	r.write(gatt.DataCharUUID, []byte("opaque"))

	assert.Equal(t, []byte{gatt.CommandScan, gatt.CommandFactory}, commands)
	require.Len(t, data, 1)
	assert.Equal(t, []byte("opaque"), data[0])
	// Advisory commands and data writes do not move the machine.
	assert.Equal(t, state.Connected, r.orch.State())
}

func TestAuthWindowTimeout(t *testing.T) {
	r := newRig(t, nil)

	now := time.Unix(5000, 0)
	r.orch.Machine().SetClock(func() time.Time { return now })

	r.connect()
	require.Equal(t, state.Connected, r.orch.State())

	now = now.Add(31 * time.Second)
	r.orch.ProcessPending()

	assert.Equal(t, state.Advertising, r.orch.State())

	var sawTimeout bool
	for _, e := range r.errors {
		if e.Kind == provisioning.ErrorTimeout {
			sawTimeout = true
		}
	}
	assert.True(t, sawTimeout)
}

func TestInvalidKeyExchangeFrame(t *testing.T) {
	r := newRig(t, nil)
	r.connect()

	// The identity point must be rejected.
	frame, err := gatt.EncodePublicKeyFrame(make([]byte, gatt.PublicKeySize))
	require.NoError(t, err)
	r.write(gatt.CredentialsCharUUID, frame)

	assert.False(t, r.orch.Crypto().Established())
	var sawKex bool
	for _, e := range r.errors {
		if e.Kind == provisioning.ErrorCryptoKeyExchangeFailed {
			sawKex = true
		}
	}
	assert.True(t, sawKex)
}

func TestStateChangeCallbackAndHistory(t *testing.T) {
	r := newRig(t, nil)

	var trace []state.State
	r.orch.OnStateChange(func(_, to state.State) { trace = append(trace, to) })

	r.connect()
	r.exchangeKeys()
	r.sendCredentials("HomeNet", "p@ssw0rd")

	assert.Equal(t, []state.State{
		state.Connected,
		state.Authenticating,
		state.ReceivingCredentials,
		state.ConnectingWifi,
		state.Provisioned,
	}, trace)
}

func TestWifiLinkLossDuringJoinPhaseEscalates(t *testing.T) {
	r := newRig(t, nil)
	r.connect()
	r.exchangeKeys()
	r.sendCredentials("HomeNet", "p@ssw0rd")
	require.Equal(t, state.Provisioned, r.orch.State())

	// After Provisioned, link loss is reported but not escalated.
	r.wifi.DropLink()
	r.orch.ProcessPending()
	assert.Equal(t, state.Provisioned, r.orch.State())
	assert.EqualValues(t, 1, r.orch.Metrics().WifiDisconnects)
}
