package gitstore

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"plotline/internal/store"
)

// Typed document operations. Writes acquire the project lock and create the
// entity directory on first use; reads run lock-free and rely on the codec's
// single-write guarantee. None of these commit; callers follow a write with
// CommitAll to make it durable.

func (s *Service) WriteProject(project *store.Project) error {
	lock := s.locks.get(project.ID)
	lock.Lock()
	defer lock.Unlock()

	return writeDocument(s.layout.ProjectFile(project.ID), project)
}

func (s *Service) ReadProject(projectID string) (*store.Project, error) {
	var project store.Project
	if err := readDocument(s.layout.ProjectFile(projectID), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects returns every initialized project under the base directory.
// Directories without a project document are skipped.
func (s *Service) ListProjects() ([]*store.Project, error) {
	entries, err := os.ReadDir(s.layout.Root())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*store.Project{}, nil
		}
		return nil, fmt.Errorf("read base dir: %w", err)
	}
	projects := []*store.Project{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		project, err := s.ReadProject(entry.Name())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, nil
}

func (s *Service) WriteRoadmap(projectID string, roadmap *store.Roadmap) error {
	lock := s.locks.get(projectID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.layout.RoadmapDir(projectID, roadmap.ID), 0o755); err != nil {
		return fmt.Errorf("create roadmap dir: %w", err)
	}
	return writeDocument(s.layout.RoadmapFile(projectID, roadmap.ID), roadmap)
}

func (s *Service) ReadRoadmap(projectID, roadmapID string) (*store.Roadmap, error) {
	var roadmap store.Roadmap
	if err := readDocument(s.layout.RoadmapFile(projectID, roadmapID), &roadmap); err != nil {
		return nil, err
	}
	return &roadmap, nil
}

func (s *Service) ListRoadmaps(projectID string) ([]*store.Roadmap, error) {
	entries, err := os.ReadDir(s.layout.RoadmapsDir(projectID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*store.Roadmap{}, nil
		}
		return nil, fmt.Errorf("read roadmaps dir: %w", err)
	}
	roadmaps := []*store.Roadmap{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		roadmap, err := s.ReadRoadmap(projectID, entry.Name())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		roadmaps = append(roadmaps, roadmap)
	}
	return roadmaps, nil
}

// RemoveRoadmap deletes the roadmap subtree from the working tree, chats and
// meta-chat included. The deletion becomes durable on the next CommitAll,
// which stages removed tracked files.
func (s *Service) RemoveRoadmap(projectID, roadmapID string) error {
	lock := s.locks.get(projectID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.layout.RoadmapDir(projectID, roadmapID)); err != nil {
		return fmt.Errorf("remove roadmap dir: %w", err)
	}
	return nil
}

func (s *Service) WriteMetaChat(projectID, roadmapID string, meta *store.MetaChat) error {
	lock := s.locks.get(projectID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.layout.RoadmapDir(projectID, roadmapID), 0o755); err != nil {
		return fmt.Errorf("create roadmap dir: %w", err)
	}
	return writeDocument(s.layout.MetaChatFile(projectID, roadmapID), meta)
}

func (s *Service) ReadMetaChat(projectID, roadmapID string) (*store.MetaChat, error) {
	var meta store.MetaChat
	if err := readDocument(s.layout.MetaChatFile(projectID, roadmapID), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// WriteChat creates or rewrites a chat document. First write also lays down
// the chat's untracked workspace directory.
func (s *Service) WriteChat(projectID, roadmapID string, chat *store.Chat) error {
	lock := s.locks.get(projectID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.layout.WorkspaceDir(projectID, roadmapID, chat.ID), 0o755); err != nil {
		return fmt.Errorf("create chat dir: %w", err)
	}
	return writeDocument(s.layout.ChatFile(projectID, roadmapID, chat.ID), chat)
}

func (s *Service) ReadChat(projectID, roadmapID, chatID string) (*store.Chat, error) {
	var chat store.Chat
	if err := readDocument(s.layout.ChatFile(projectID, roadmapID, chatID), &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *Service) ListChats(projectID, roadmapID string) ([]*store.Chat, error) {
	entries, err := os.ReadDir(s.layout.ChatsDir(projectID, roadmapID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*store.Chat{}, nil
		}
		return nil, fmt.Errorf("read chats dir: %w", err)
	}
	chats := []*store.Chat{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		chat, err := s.ReadChat(projectID, roadmapID, entry.Name())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (s *Service) RemoveChat(projectID, roadmapID, chatID string) error {
	lock := s.locks.get(projectID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.layout.ChatDir(projectID, roadmapID, chatID)); err != nil {
		return fmt.Errorf("remove chat dir: %w", err)
	}
	return nil
}

// AppendMessage adds one record to the chat's append-only log. The chat must
// have been written first; appending into a missing chat directory fails.
func (s *Service) AppendMessage(projectID, roadmapID, chatID string, msg store.Message) error {
	lock := s.locks.get(projectID)
	lock.Lock()
	defer lock.Unlock()

	return appendMessage(s.layout.MessageLog(projectID, roadmapID, chatID), msg)
}

// Messages returns the chat's full record sequence in log order. Log order
// is authoritative; embedded timestamps may collide.
func (s *Service) Messages(projectID, roadmapID, chatID string) ([]store.Message, error) {
	return readMessages(s.layout.MessageLog(projectID, roadmapID, chatID))
}

// WriteTemplate creates or replaces a template. Every write refreshes the
// millisecond version marker so readers get a version without consulting
// history.
func (s *Service) WriteTemplate(projectID string, tmpl *store.Template) error {
	lock := s.locks.get(projectID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.layout.TemplatesDir(projectID), 0o755); err != nil {
		return fmt.Errorf("create templates dir: %w", err)
	}
	tmpl.Version = time.Now().UnixMilli()
	return writeDocument(s.layout.TemplateFile(projectID, tmpl.ID), tmpl)
}

func (s *Service) ReadTemplate(projectID, templateID string) (*store.Template, error) {
	var tmpl store.Template
	if err := readDocument(s.layout.TemplateFile(projectID, templateID), &tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (s *Service) ListTemplates(projectID string) ([]*store.Template, error) {
	entries, err := os.ReadDir(s.layout.TemplatesDir(projectID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*store.Template{}, nil
		}
		return nil, fmt.Errorf("read templates dir: %w", err)
	}
	templates := []*store.Template{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		tmpl, err := s.ReadTemplate(projectID, strings.TrimSuffix(name, ".json"))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

func (s *Service) RemoveTemplate(projectID, templateID string) error {
	lock := s.locks.get(projectID)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(s.layout.TemplateFile(projectID, templateID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove template: %w", err)
	}
	return nil
}
