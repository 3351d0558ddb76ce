package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.PeerAddress != "" {
		attrs = append(attrs, slog.String("peer", event.PeerAddress))
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}

	// Add type-specific attributes
	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.String("characteristic", event.Frame.Characteristic),
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Event != "" {
			attrs = append(attrs, slog.String("event", event.StateChange.Event))
		}
	case event.Crypto != nil:
		attrs = append(attrs, slog.String("crypto", event.Crypto.Kind.String()))
	case event.Wifi != nil:
		attrs = append(attrs,
			slog.String("ssid", event.Wifi.SSID),
			slog.Bool("connected", event.Wifi.Connected),
		)
		if event.Wifi.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Wifi.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
