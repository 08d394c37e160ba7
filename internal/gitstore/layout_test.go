package gitstore

import (
	"path/filepath"
	"testing"
)

// Backup and export tooling reads these paths directly, so they are part of
// the contract, not an implementation detail.
func TestLayoutPaths(t *testing.T) {
	layout := NewLayout("/data/projects")

	tests := []struct {
		name string
		got  string
		want []string
	}{
		{"project dir", layout.ProjectDir("p1"), []string{"p1"}},
		{"project file", layout.ProjectFile("p1"), []string{"p1", "project.json"}},
		{"roadmap file", layout.RoadmapFile("p1", "r1"), []string{"p1", "roadmaps", "r1", "roadmap.json"}},
		{"meta chat file", layout.MetaChatFile("p1", "r1"), []string{"p1", "roadmaps", "r1", "meta-chat.json"}},
		{"chat file", layout.ChatFile("p1", "r1", "c1"), []string{"p1", "roadmaps", "r1", "chats", "c1", "chat.json"}},
		{"message log", layout.MessageLog("p1", "r1", "c1"), []string{"p1", "roadmaps", "r1", "chats", "c1", "messages.jsonl"}},
		{"workspace dir", layout.WorkspaceDir("p1", "r1", "c1"), []string{"p1", "roadmaps", "r1", "chats", "c1", "workspace"}},
		{"template file", layout.TemplateFile("p1", "t1"), []string{"p1", "templates", "t1.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := filepath.Join(append([]string{"/data/projects"}, tt.want...)...)
			if tt.got != want {
				t.Errorf("got %q, want %q", tt.got, want)
			}
		})
	}
}
