// Package history keeps the recent chat transcript, bounded to a fixed number of
// messages, and persists it as YAML between sessions.
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// DefaultMaxMessages bounds the transcript when no limit is configured.
const DefaultMaxMessages = 50

type fileFormat struct {
	Version  int                   `yaml:"version"`
	Messages []schemas.ChatMessage `yaml:"messages"`
}

// Transcript is a bounded, ordered list of chat messages. Oldest messages are
// dropped first once the limit is reached.
type Transcript struct {
	mu       sync.Mutex
	path     string
	max      int
	messages []schemas.ChatMessage
	now      func() time.Time
}

// New creates an empty transcript stored at path ("~" is expanded). An empty path
// keeps the transcript in memory only. max <= 0 selects DefaultMaxMessages.
func New(path string, max int) (*Transcript, error) {
	if max <= 0 {
		max = DefaultMaxMessages
	}
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("history: expand path %q: %w", path, err)
		}
		path = expanded
	}
	return &Transcript{path: path, max: max, now: time.Now}, nil
}

// Open creates a transcript and loads any messages already saved at path.
func Open(path string, max int) (*Transcript, error) {
	t, err := New(path, max)
	if err != nil {
		return nil, err
	}
	if err := t.Load(); err != nil {
		return nil, err
	}
	return t, nil
}

// Path returns the expanded storage path.
func (t *Transcript) Path() string { return t.path }

// Add appends a message stamped with the current time and returns it.
func (t *Transcript) Add(role schemas.Role, content string) schemas.ChatMessage {
	msg := schemas.ChatMessage{Role: role, Content: content, Timestamp: t.now()}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
	t.trim()
	return msg
}

// Messages returns a copy of the transcript, oldest first.
func (t *Transcript) Messages() []schemas.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]schemas.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of stored messages.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Clear drops every message.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}

// Load replaces the in-memory transcript with the saved one. A missing file is not an error.
func (t *Transcript) Load() error {
	if t.path == "" {
		return nil
	}
	data, err := os.ReadFile(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("history: read %s: %w", t.path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("history: decode %s: %w", t.path, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = f.Messages
	t.trim()
	return nil
}

// Save writes the transcript to disk, creating the parent directory if needed.
func (t *Transcript) Save() error {
	if t.path == "" {
		return nil
	}

	t.mu.Lock()
	f := fileFormat{Version: 1, Messages: append([]schemas.ChatMessage(nil), t.messages...)}
	t.mu.Unlock()

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("history: encode transcript: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return fmt.Errorf("history: ensure dir: %w", err)
	}
	if err := os.WriteFile(t.path, data, 0o600); err != nil {
		return fmt.Errorf("history: write %s: %w", t.path, err)
	}
	return nil
}

// trim enforces the bound. Callers must hold t.mu.
func (t *Transcript) trim() {
	if over := len(t.messages) - t.max; over > 0 {
		t.messages = append([]schemas.ChatMessage(nil), t.messages[over:]...)
	}
}
