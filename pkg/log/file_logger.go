package log

import (
	"io"
	"os"
	"path/filepath"
	"sync"
)

// DefaultExtension is the conventional suffix for protocol capture
// files. NewFileLogger appends it when the path names no extension, so
// every capture a device produces is recognizable to the reader
// tooling.
const DefaultExtension = ".wlog"

// FileLogger appends protocol events to a capture file as a stream of
// CBOR records readable with Reader. It is safe for concurrent use.
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	sink   *countingWriter
	closed bool
}

// countingWriter tracks how many bytes the encoder has produced, so
// Size works without per-event Stat calls.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// NewFileLogger opens (or creates) the capture file at path, appending
// to existing events. A path without an extension gets
// DefaultExtension.
func NewFileLogger(path string) (*FileLogger, error) {
	if filepath.Ext(path) == "" {
		path += DefaultExtension
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	sink := &countingWriter{w: f}
	if info, err := f.Stat(); err == nil {
		sink.n = info.Size()
	}

	return &FileLogger{file: f, sink: sink}, nil
}

// Log appends an event to the capture file. Encoding errors are
// swallowed: capture must never disrupt a ceremony.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	_ = NewEncoder(l.sink).Encode(event)
}

// Size returns the capture file size in bytes, including events that
// were already in the file when it was opened.
func (l *FileLogger) Size() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.n
}

// Path returns the resolved capture file path.
func (l *FileLogger) Path() string {
	return l.file.Name()
}

// Close closes the capture file. Close is idempotent; Log calls after
// Close are silently ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)
