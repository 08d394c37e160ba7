package gitstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"plotline/internal/store"
)

func TestAppendAndReadMessagesInOrder(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "messages.jsonl")

	// identical timestamps on purpose: log order wins, not the stamp
	stamp := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	bodies := []string{"first", "second", "third"}
	for i, body := range bodies {
		msg := store.Message{
			ID:        "msg_" + body,
			Role:      store.RoleUser,
			Body:      body,
			CreatedAt: stamp,
		}
		if i == 1 {
			msg.Role = store.RoleAssistant
		}
		if err := appendMessage(path, msg); err != nil {
			t.Fatalf("appendMessage(%q) error = %v", body, err)
		}
	}

	msgs, err := readMessages(path)
	if err != nil {
		t.Fatalf("readMessages() error = %v", err)
	}
	if len(msgs) != len(bodies) {
		t.Fatalf("readMessages() returned %d messages, want %d", len(msgs), len(bodies))
	}
	for i, body := range bodies {
		if msgs[i].Body != body {
			t.Errorf("message %d body = %q, want %q", i, msgs[i].Body, body)
		}
	}
}

func TestReadMessagesMissingFile(t *testing.T) {
	tempDir := t.TempDir()

	msgs, err := readMessages(filepath.Join(tempDir, "absent.jsonl"))
	if err != nil {
		t.Fatalf("readMessages() error = %v, want empty sequence", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("readMessages() returned %d messages, want 0", len(msgs))
	}
}

func TestReadMessagesSkipsBlankLines(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "messages.jsonl")

	content := `{"id":"msg_1","role":"user","body":"one","createdAt":"2026-05-02T09:30:00Z"}

{"id":"msg_2","role":"assistant","body":"two","createdAt":"2026-05-02T09:31:00Z"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	msgs, err := readMessages(path)
	if err != nil {
		t.Fatalf("readMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("readMessages() returned %d messages, want 2", len(msgs))
	}
}

func TestReadMessagesCorruptLineFailsWholeRead(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "messages.jsonl")

	if err := appendMessage(path, store.Message{ID: "msg_ok", Role: store.RoleUser, Body: "fine"}); err != nil {
		t.Fatalf("appendMessage() error = %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if _, err := f.WriteString("{truncated\n"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}
	f.Close()

	if _, err := readMessages(path); !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("readMessages() error = %v, want ErrMalformedDocument", err)
	}
}

func TestAppendMessageNeverRewrites(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "messages.jsonl")

	if err := appendMessage(path, store.Message{ID: "msg_a", Role: store.RoleUser, Body: "a"}); err != nil {
		t.Fatalf("appendMessage() error = %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if err := appendMessage(path, store.Message{ID: "msg_b", Role: store.RoleUser, Body: "b"}); err != nil {
		t.Fatalf("appendMessage() error = %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(second) <= len(first) {
		t.Fatalf("log did not grow: %d -> %d bytes", len(first), len(second))
	}
	if string(second[:len(first)]) != string(first) {
		t.Error("existing log bytes were rewritten by a later append")
	}
}
