package insert

import (
	"context"
	"sync"
)

// MemoryClipboard is an in-process Clipboard fake. It is the default used
// by cmd/voicewind until a host wires a real OS clipboard binding; it is
// also what the controller/engine tests exercise the Insert algorithm
// against.
type MemoryClipboard struct {
	mu      sync.Mutex
	content []byte
	format  string
	count   uint64
}

// NewMemoryClipboard starts with an empty clipboard.
func NewMemoryClipboard() *MemoryClipboard {
	return &MemoryClipboard{format: "text/plain"}
}

func (m *MemoryClipboard) ReadAll(ctx context.Context) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.content))
	copy(out, m.content)
	return out, m.format, nil
}

func (m *MemoryClipboard) WriteText(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = []byte(text)
	m.format = "text/plain"
	m.count++
	return nil
}

func (m *MemoryClipboard) ChangeCount(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, nil
}

func (m *MemoryClipboard) Restore(ctx context.Context, snapshot []byte, format string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = snapshot
	m.format = format
	m.count++
	return nil
}

// Snapshot returns the current clipboard text, for tests.
func (m *MemoryClipboard) Snapshot() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.content)
}

// ExternalChange simulates another process changing the clipboard, for
// tests that exercise the "leave it alone" branch of Insert.
func (m *MemoryClipboard) ExternalChange(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = []byte(text)
	m.count++
}

// NoopKeystroker posts nothing; it satisfies Keystroker for environments
// with no real input-injection backend.
type NoopKeystroker struct{}

func (NoopKeystroker) PostPaste(ctx context.Context) error { return nil }
func (NoopKeystroker) PostEnter(ctx context.Context) error { return nil }
