package gitstore

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"plotline/internal/store"
)

func TestWriteReadProjectRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "project.json")

	want := &store.Project{
		ID:          "proj_roundtrip",
		Name:        "Round Trip",
		Category:    "demo",
		Status:      "active",
		Description: "checks that reads give back what writes stored",
		Theme:       map[string]string{"accent": "#667eea"},
		Repo:        &store.RepoLink{URL: "https://example.com/demo.git", Branch: "main"},
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	before := time.Now().UTC()
	if err := writeDocument(path, want); err != nil {
		t.Fatalf("writeDocument() error = %v", err)
	}

	var got store.Project
	if err := readDocument(path, &got); err != nil {
		t.Fatalf("readDocument() error = %v", err)
	}

	if got.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt = %v, want stamped at write time", got.UpdatedAt)
	}
	got.UpdatedAt = time.Time{}
	want.UpdatedAt = time.Time{}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = time.Time{}
	cmp := *want
	cmp.CreatedAt = time.Time{}
	if !reflect.DeepEqual(got, cmp) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, cmp)
	}
}

func TestReadDocumentMissingFile(t *testing.T) {
	tempDir := t.TempDir()

	var project store.Project
	err := readDocument(filepath.Join(tempDir, "absent.json"), &project)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("readDocument() error = %v, want ErrNotFound", err)
	}
}

func TestReadDocumentMalformed(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var project store.Project
	err := readDocument(path, &project)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("readDocument() error = %v, want ErrMalformedDocument", err)
	}
}

func TestWriteDocumentPrettyPrinted(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "chat.json")

	chat := &store.Chat{ID: "chat_fmt", Title: "Formatting"}
	if err := writeDocument(path, chat); err != nil {
		t.Fatalf("writeDocument() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	text := string(data)
	if !strings.HasSuffix(text, "\n") {
		t.Error("document should end with a newline")
	}
	if !strings.Contains(text, "\n  \"id\": \"chat_fmt\",\n") {
		t.Errorf("document not indented as expected:\n%s", text)
	}
}
