package gitstore

import "path/filepath"

// File and directory names fixed by the on-disk contract. Backup and export
// tooling reads project trees directly, so these never change.
const (
	projectFile  = "project.json"
	roadmapsDir  = "roadmaps"
	roadmapFile  = "roadmap.json"
	metaChatFile = "meta-chat.json"
	chatsDir     = "chats"
	chatFile     = "chat.json"
	messagesFile = "messages.jsonl"
	workspaceDir = "workspace"
	templatesDir = "templates"
)

// Layout resolves entity id chains to canonical paths under the base
// directory. Pure path arithmetic: no I/O, no id validation; callers supply
// valid ids.
type Layout struct {
	root string
}

func NewLayout(root string) Layout {
	return Layout{root: root}
}

func (l Layout) Root() string {
	return l.root
}

func (l Layout) ProjectDir(projectID string) string {
	return filepath.Join(l.root, projectID)
}

func (l Layout) ProjectFile(projectID string) string {
	return filepath.Join(l.root, projectID, projectFile)
}

func (l Layout) RoadmapsDir(projectID string) string {
	return filepath.Join(l.root, projectID, roadmapsDir)
}

func (l Layout) RoadmapDir(projectID, roadmapID string) string {
	return filepath.Join(l.root, projectID, roadmapsDir, roadmapID)
}

func (l Layout) RoadmapFile(projectID, roadmapID string) string {
	return filepath.Join(l.RoadmapDir(projectID, roadmapID), roadmapFile)
}

func (l Layout) MetaChatFile(projectID, roadmapID string) string {
	return filepath.Join(l.RoadmapDir(projectID, roadmapID), metaChatFile)
}

func (l Layout) ChatsDir(projectID, roadmapID string) string {
	return filepath.Join(l.RoadmapDir(projectID, roadmapID), chatsDir)
}

func (l Layout) ChatDir(projectID, roadmapID, chatID string) string {
	return filepath.Join(l.RoadmapDir(projectID, roadmapID), chatsDir, chatID)
}

func (l Layout) ChatFile(projectID, roadmapID, chatID string) string {
	return filepath.Join(l.ChatDir(projectID, roadmapID, chatID), chatFile)
}

func (l Layout) MessageLog(projectID, roadmapID, chatID string) string {
	return filepath.Join(l.ChatDir(projectID, roadmapID, chatID), messagesFile)
}

func (l Layout) WorkspaceDir(projectID, roadmapID, chatID string) string {
	return filepath.Join(l.ChatDir(projectID, roadmapID, chatID), workspaceDir)
}

func (l Layout) TemplatesDir(projectID string) string {
	return filepath.Join(l.root, projectID, templatesDir)
}

func (l Layout) TemplateFile(projectID, templateID string) string {
	return filepath.Join(l.root, projectID, templatesDir, templateID+".json")
}
