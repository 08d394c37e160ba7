package gitstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// document is anything the codec stamps before writing.
type document interface {
	Touch(now time.Time)
}

// writeDocument serializes doc as stable pretty-printed JSON and overwrites
// path in place through a single write call. The update timestamp is stamped
// first so the bytes on disk always carry it.
func writeDocument(path string, doc document) error {
	doc.Touch(time.Now().UTC())
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// readDocument loads path into out. A missing file is ErrNotFound; a file
// that fails to parse is ErrMalformedDocument. Any other I/O failure
// propagates wrapped. Callers must not conflate "no data yet" with "storage
// is broken".
func readDocument(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read document: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedDocument, path, err)
	}
	return nil
}
