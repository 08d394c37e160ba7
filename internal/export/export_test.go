package export

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"testing"
	"time"

	"plotline/internal/store"
)

type fakeStore struct {
	project   store.Project
	roadmaps  []store.Roadmap
	metas     map[string]store.MetaChat
	chats     map[string][]store.Chat
	counts    map[string]int
	revisions []store.RevisionInfo
	snapshots []store.SnapshotInfo
	diffs     map[string]string
}

func (f *fakeStore) GetProject(ctx context.Context, projectID string) (store.Project, error) {
	if projectID != f.project.ID {
		return store.Project{}, errors.New("project not found")
	}
	return f.project, nil
}

func (f *fakeStore) ListRoadmaps(ctx context.Context, projectID string) ([]store.Roadmap, error) {
	return f.roadmaps, nil
}

func (f *fakeStore) GetMetaChat(ctx context.Context, projectID, roadmapID string) (store.MetaChat, error) {
	meta, ok := f.metas[roadmapID]
	if !ok {
		return store.MetaChat{}, errors.New("meta-chat not found")
	}
	return meta, nil
}

func (f *fakeStore) ListChats(ctx context.Context, projectID, roadmapID string) ([]store.Chat, error) {
	return f.chats[roadmapID], nil
}

func (f *fakeStore) CountMessages(ctx context.Context, projectID, roadmapID, chatID string) (int, error) {
	return f.counts[chatID], nil
}

func (f *fakeStore) History(ctx context.Context, projectID string, limit int) ([]store.RevisionInfo, error) {
	if limit > 0 && limit < len(f.revisions) {
		return f.revisions[:limit], nil
	}
	return f.revisions, nil
}

func (f *fakeStore) Snapshots(ctx context.Context, projectID string) ([]store.SnapshotInfo, error) {
	return f.snapshots, nil
}

func (f *fakeStore) Diff(ctx context.Context, projectID, revisionID string) (string, error) {
	patch, ok := f.diffs[revisionID]
	if !ok {
		return "", errors.New("revision not found")
	}
	return patch, nil
}

func newFakeStore() *fakeStore {
	now := time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC)
	return &fakeStore{
		project: store.Project{
			ID:          "proj_demo",
			Name:        "Atlas Rewrite",
			Category:    "infrastructure",
			Status:      "active",
			Description: "Rebuild the ingestion pipeline from scratch.",
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		roadmaps: []store.Roadmap{
			{ID: "rm_1", Title: "Phase One", Status: "in-progress", Progress: 0.4, Tags: []string{"q4", "backend"}},
		},
		metas: map[string]store.MetaChat{
			"rm_1": {ID: "meta_1", RoadmapID: "rm_1", Summary: "Two of five chats complete.", Progress: 0.4},
		},
		chats: map[string][]store.Chat{
			"rm_1": {
				{ID: "chat_1", Title: "Kickoff", Goal: "Agree on milestones", Status: "done", Progress: 1},
				{ID: "chat_2", Title: "Schema design", Goal: "Settle the event schema", Status: "open", Progress: 0.25},
			},
		},
		counts: map[string]int{"chat_1": 14, "chat_2": 3},
		revisions: []store.RevisionInfo{
			{ID: strings.Repeat("a", 40), Message: "Update chat chat_2\n\ncommitted-at: 2025-11-03T10:30:00Z", Author: "Plotline", CreatedAt: now},
			{ID: strings.Repeat("b", 40), Message: "Initial setup", Author: "Plotline", CreatedAt: now.Add(-time.Hour)},
		},
		snapshots: []store.SnapshotInfo{
			{Name: "phase-one-kickoff", RevisionID: strings.Repeat("b", 40), Message: "before schema work", CreatedAt: now.Add(-30 * time.Minute)},
		},
		diffs: map[string]string{
			strings.Repeat("a", 40): "--- a/roadmaps/rm_1/chats/chat_2/chat.json\n+++ b/roadmaps/rm_1/chats/chat_2/chat.json\n@@ -1,3 +1,3 @@\n-  \"progress\": 0,\n+  \"progress\": 0.25,\n",
		},
	}
}

func TestExportHTML(t *testing.T) {
	svc := NewService(newFakeStore())

	res, err := svc.Export(context.Background(), Request{
		ProjectID:    "proj_demo",
		Format:       FormatHTML,
		IncludeDiffs: true,
	})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if res.MimeType != "text/html; charset=utf-8" {
		t.Fatalf("MimeType = %q", res.MimeType)
	}
	if res.Filename != "Atlas-Rewrite.html" {
		t.Fatalf("Filename = %q", res.Filename)
	}

	html := string(res.Data)
	for _, want := range []string{
		"Atlas Rewrite",
		"Phase One",
		"Two of five chats complete.",
		"Kickoff",
		"Schema design",
		"<td>14</td>",
		"phase-one-kickoff",
		"aaaaaaaa", // short revision id
		"Update chat chat_2",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// The trailer stays out of the rendered history.
	if strings.Contains(html, "committed-at") {
		t.Error("report should show only the commit subject")
	}

	// Highlighted diff with inline styles.
	if !strings.Contains(html, "<pre") || !strings.Contains(html, "chat.json") {
		t.Error("report missing highlighted diff")
	}
}

func TestExportSkipsDiffsUnlessAsked(t *testing.T) {
	svc := NewService(newFakeStore())

	res, err := svc.Export(context.Background(), Request{ProjectID: "proj_demo", Format: FormatHTML})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if strings.Contains(string(res.Data), "@@") {
		t.Error("diff rendered without IncludeDiffs")
	}
}

func TestExportUnknownProject(t *testing.T) {
	svc := NewService(newFakeStore())

	if _, err := svc.Export(context.Background(), Request{ProjectID: "proj_nope", Format: FormatHTML}); err == nil {
		t.Fatal("Export() expected error for unknown project")
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := NewService(newFakeStore())

	if _, err := svc.Export(context.Background(), Request{ProjectID: "proj_demo", Format: "epub"}); err == nil {
		t.Fatal("Export() expected error for unsupported format")
	}
}

func TestHighlightDiff(t *testing.T) {
	out, err := highlightDiff("--- a/x\n+++ b/x\n@@ -1 +1 @@\n-old\n+new\n")
	if err != nil {
		t.Fatalf("highlightDiff() error = %v", err)
	}
	if !strings.Contains(string(out), "<span") {
		t.Errorf("highlightDiff() = %q, want span markup", out)
	}

	out, err = highlightDiff("")
	if err != nil || out != "" {
		t.Fatalf("highlightDiff(empty) = %q, %v", out, err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"My Project v1.2", "My-Project-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "project"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"}, // Spaces encoded as %20, not +
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRenderReportHTMLDoesNotEscapeDiff(t *testing.T) {
	data := TemplateData{
		Project:     store.Project{ID: "proj_x", Name: "Escape Check"},
		GeneratedAt: time.Now(),
		Revisions: []RevisionSection{
			{
				RevisionInfo: store.RevisionInfo{ID: strings.Repeat("c", 40), Message: "Edit", Author: "Plotline", CreatedAt: time.Now()},
				ShortID:      "cccccccc",
				DiffHTML:     template.HTML("<pre>diff body</pre>"),
			},
		},
	}

	html, err := RenderReportHTML(data)
	if err != nil {
		t.Fatalf("RenderReportHTML() error = %v", err)
	}
	if strings.Contains(html, "&lt;pre&gt;") {
		t.Error("diff HTML was escaped")
	}
	if !strings.Contains(html, "<pre>diff body</pre>") {
		t.Error("diff HTML missing from output")
	}
}

func TestShortID(t *testing.T) {
	long := fmt.Sprintf("%040d", 7)
	if got := shortID(long); got != long[:8] {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() = %q", got)
	}
}
