package gitstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"plotline/internal/store"
)

// appendMessage writes one record as a single line at the end of the log
// file, creating it on first use. Existing bytes are never rewritten; each
// call is one sequential write.
func appendMessage(path string, msg store.Message) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open message log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// readMessages returns the full ordered sequence from the log. An absent
// file is an empty sequence. Blank lines are skipped; a single corrupt line
// fails the whole read, with no partial-recovery policy.
func readMessages(path string) ([]store.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []store.Message{}, nil
		}
		return nil, fmt.Errorf("open message log: %w", err)
	}
	defer f.Close()

	msgs := []store.Message{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var msg store.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrMalformedDocument, path, line, err)
		}
		msgs = append(msgs, msg)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan message log: %w", err)
	}
	return msgs, nil
}
