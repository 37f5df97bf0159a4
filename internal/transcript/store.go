// Package transcript persists the deliberation message log. Every
// message is appended as one JSON object per line to transcript.jsonl,
// giving an auditable, replayable record that later invocations can
// rehydrate without any in-memory state surviving between processes.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Iron-Ham/tribunal/internal/protocol"
)

const transcriptFile = "transcript.jsonl"

// Filter narrows a transcript query. Zero values match everything:
// rounds are 1-based, so Round 0 means any round.
type Filter struct {
	Round     int
	Sender    string
	Recipient string
	Type      protocol.MessageType
	ThreadID  string
}

func (f Filter) matches(m protocol.Message) bool {
	if f.Round != 0 && m.Round != f.Round {
		return false
	}
	if f.Sender != "" && m.Sender != f.Sender {
		return false
	}
	if f.Recipient != "" && m.Recipient != f.Recipient {
		return false
	}
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.ThreadID != "" && m.ThreadID != f.ThreadID {
		return false
	}
	return true
}

// Store provides append-only file-backed transcript storage.
// Writes are serialized via a mutex and use O_APPEND so the log stays
// monotonic even across repeated short-lived invocations.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store rooted at the given table directory.
// The directory is created lazily on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the location of the transcript file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, transcriptFile)
}

// Append writes a message to the end of the transcript.
func (s *Store) Append(msg protocol.Message) error {
	if msg.Sender == "" {
		return fmt.Errorf("transcript: message sender is required")
	}
	if msg.Recipient == "" {
		return fmt.Errorf("transcript: message recipient is required")
	}
	if msg.Type == "" {
		return fmt.Errorf("transcript: message type is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("transcript: create directory: %w", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("transcript: marshal message: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(s.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("transcript: open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("transcript: append: %w", err)
	}
	return f.Sync()
}

// All returns every message in append order.
func (s *Store) All() ([]protocol.Message, error) {
	return s.Messages(Filter{})
}

// Messages returns the messages matching the filter, in append order.
// Lines that fail to decode are skipped rather than failing the query.
func (s *Store) Messages(f Filter) ([]protocol.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("transcript: open: %w", err)
	}
	defer file.Close()

	var messages []protocol.Message
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg protocol.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		if f.matches(msg) {
			messages = append(messages, msg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("transcript: scan: %w", err)
	}
	return messages, nil
}

// Last returns the most recent message matching the filter, or false if
// none match.
func (s *Store) Last(f Filter) (protocol.Message, bool, error) {
	messages, err := s.Messages(f)
	if err != nil || len(messages) == 0 {
		return protocol.Message{}, false, err
	}
	return messages[len(messages)-1], true, nil
}

// Count returns the total number of messages.
func (s *Store) Count() (int, error) {
	messages, err := s.All()
	return len(messages), err
}

// CountBySender returns message totals grouped by sending role.
func (s *Store) CountBySender() (map[string]int, error) {
	messages, err := s.All()
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, m := range messages {
		counts[m.Sender]++
	}
	return counts, nil
}

// Between returns every message a given pair exchanged, in either
// direction.
func (s *Store) Between(roleA, roleB string) ([]protocol.Message, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	var out []protocol.Message
	for _, m := range all {
		if (m.Sender == roleA && m.Recipient == roleB) || (m.Sender == roleB && m.Recipient == roleA) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Reset removes the transcript file. Missing files are not an error.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("transcript: remove: %w", err)
	}
	return nil
}
