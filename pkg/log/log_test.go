package log_test

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wible-protocol/wible-go/pkg/log"
)

func sampleEvent() log.Event {
	return log.Event{
		Timestamp:    time.Now().Truncate(time.Microsecond),
		ConnectionID: "conn-1",
		Direction:    log.DirectionOut,
		Layer:        log.LayerSession,
		Category:     log.CategoryCrypto,
		PeerAddress:  "AA:BB:CC:DD:EE:FF",
		SessionID:    "c2Vzc2lvbg==",
		Crypto: &log.CryptoEvent{
			Kind:      log.CryptoSessionEstablished,
			SessionID: "c2Vzc2lvbg==",
		},
	}
}

func TestEventCBORRoundTrip(t *testing.T) {
	event := sampleEvent()

	data, err := log.EncodeEvent(event)
	require.NoError(t, err)

	got, err := log.DecodeEvent(data)
	require.NoError(t, err)

	assert.Equal(t, event.ConnectionID, got.ConnectionID)
	assert.Equal(t, event.Direction, got.Direction)
	assert.Equal(t, event.Layer, got.Layer)
	assert.Equal(t, event.Category, got.Category)
	assert.Equal(t, event.SessionID, got.SessionID)
	require.NotNil(t, got.Crypto)
	assert.Equal(t, log.CryptoSessionEstablished, got.Crypto.Kind)
	assert.True(t, event.Timestamp.Equal(got.Timestamp))
}

func TestFrameEventRoundTrip(t *testing.T) {
	event := log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryFrame,
		Frame: &log.FrameEvent{
			Characteristic: "6e400002-b5a3-f393-e0a9-e50e24dcca9e",
			Size:           48,
			Data:           bytes.Repeat([]byte{0xAB}, 48),
		},
	}

	data, err := log.EncodeEvent(event)
	require.NoError(t, err)
	got, err := log.DecodeEvent(data)
	require.NoError(t, err)

	require.NotNil(t, got.Frame)
	assert.Equal(t, event.Frame.Characteristic, got.Frame.Characteristic)
	assert.Equal(t, event.Frame.Data, got.Frame.Data)
}

func TestFileLoggerReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.wlog")

	fl, err := log.NewFileLogger(path)
	require.NoError(t, err)

	events := []log.Event{
		sampleEvent(),
		{
			Timestamp: time.Now(),
			Direction: log.DirectionIn,
			Layer:     log.LayerProvisioning,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				OldState: "IDLE",
				NewState: "ADVERTISING",
				Event:    "START_ADVERTISING",
			},
		},
	}
	for _, e := range events {
		fl.Log(e)
	}
	require.NoError(t, fl.Close())

	// Close is idempotent and logging after close is ignored.
	require.NoError(t, fl.Close())
	fl.Log(sampleEvent())

	r, err := log.OpenFile(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadAll(nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "conn-1", got[0].ConnectionID)
	require.NotNil(t, got[1].StateChange)
	assert.Equal(t, "ADVERTISING", got[1].StateChange.NewState)
}

func TestFileLoggerExtensionAndSize(t *testing.T) {
	// A bare path gets the capture extension.
	fl, err := log.NewFileLogger(filepath.Join(t.TempDir(), "device"))
	require.NoError(t, err)
	defer fl.Close()

	assert.Equal(t, log.DefaultExtension, filepath.Ext(fl.Path()))
	assert.Zero(t, fl.Size())

	fl.Log(sampleEvent())
	first := fl.Size()
	assert.Positive(t, first)

	fl.Log(sampleEvent())
	assert.Greater(t, fl.Size(), first)

	// Reopening counts the existing events.
	require.NoError(t, fl.Close())
	reopened, err := log.NewFileLogger(fl.Path())
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, fl.Size(), reopened.Size())
}

func TestReaderFilter(t *testing.T) {
	var buf bytes.Buffer
	enc := log.NewEncoder(&buf)

	in := log.DirectionIn
	require.NoError(t, enc.Encode(sampleEvent()))
	require.NoError(t, enc.Encode(log.Event{
		Timestamp: time.Now(),
		Direction: in,
		Layer:     log.LayerTransport,
		Category:  log.CategoryFrame,
		Frame:     &log.FrameEvent{Size: 4},
	}))

	r := log.NewReader(&buf)
	got, err := r.ReadAll(&log.Filter{Direction: &in})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, log.CategoryFrame, got[0].Category)
}

func TestReaderEOF(t *testing.T) {
	r := log.NewReader(bytes.NewReader(nil))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMultiLoggerFansOut(t *testing.T) {
	var a, b capture
	m := log.NewMultiLogger(&a, &b)
	m.Log(sampleEvent())
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestSlogAdapterDoesNotPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := log.NewSlogAdapter(logger)

	a.Log(sampleEvent())
	a.Log(log.Event{Frame: &log.FrameEvent{Size: 1}})
	a.Log(log.Event{StateChange: &log.StateChangeEvent{NewState: "ERROR"}})
	code := 5
	a.Log(log.Event{Error: &log.ErrorEventData{Message: "boom", Code: &code}})
	a.Log(log.Event{Wifi: &log.WifiEvent{SSID: "HomeNet", Connected: true}})

	assert.Contains(t, buf.String(), "protocol")
}

func TestNoopLogger(t *testing.T) {
	log.NoopLogger{}.Log(sampleEvent())
}

// capture is a Logger that records events.
type capture struct {
	events []log.Event
}

func (c *capture) Log(e log.Event) { c.events = append(c.events, e) }

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "IN", log.DirectionIn.String())
	assert.Equal(t, "SESSION", log.LayerSession.String())
	assert.Equal(t, "CRYPTO", log.CategoryCrypto.String())
	assert.Equal(t, "SESSION_TERMINATED", log.CryptoSessionTerminated.String())
}
