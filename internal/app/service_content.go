package app

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"plotline/internal/store"
	"plotline/internal/util"
)

// Roadmaps

// CreateRoadmap writes the roadmap and its meta-chat together and captures
// both in one revision. Every roadmap has exactly one meta-chat for its
// whole life.
func (s *Service) CreateRoadmap(ctx context.Context, projectID string, input RoadmapInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if _, err := s.store.ReadProject(projectID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meta := &store.MetaChat{
		ID:        util.NewID("meta"),
		Status:    "empty",
		CreatedAt: now,
		UpdatedAt: now,
	}
	roadmap := &store.Roadmap{
		ID:         util.NewID("rm"),
		Title:      title,
		Tags:       input.Tags,
		Status:     firstNonBlank(input.Status, "active"),
		MetaChatID: meta.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	meta.RoadmapID = roadmap.ID

	if err := s.store.WriteRoadmap(projectID, roadmap); err != nil {
		return nil, err
	}
	if err := s.store.WriteMetaChat(projectID, roadmap.ID, meta); err != nil {
		return nil, err
	}
	revisionID, err := s.store.CommitAll(projectID, "Create roadmap "+title)
	if err != nil {
		return nil, err
	}
	return map[string]any{"roadmap": roadmap, "metaChat": meta, "revisionId": revisionID}, nil
}

func (s *Service) GetRoadmap(ctx context.Context, projectID, roadmapID string) (map[string]any, error) {
	roadmap, err := s.store.ReadRoadmap(projectID, roadmapID)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{"roadmap": roadmap}
	if meta, err := s.store.ReadMetaChat(projectID, roadmapID); err == nil {
		payload["metaChat"] = meta
	}
	chats, err := s.store.ListChats(projectID, roadmapID)
	if err != nil {
		return nil, err
	}
	sortChats(chats)
	payload["chats"] = chats
	return payload, nil
}

func (s *Service) ListRoadmaps(ctx context.Context, projectID string) ([]*store.Roadmap, error) {
	if _, err := s.store.ReadProject(projectID); err != nil {
		return nil, err
	}
	roadmaps, err := s.store.ListRoadmaps(projectID)
	if err != nil {
		return nil, err
	}
	sortRoadmaps(roadmaps)
	return roadmaps, nil
}

func (s *Service) UpdateRoadmap(ctx context.Context, projectID, roadmapID string, input RoadmapInput) (map[string]any, error) {
	roadmap, err := s.store.ReadRoadmap(projectID, roadmapID)
	if err != nil {
		return nil, err
	}
	roadmap.Title = firstNonBlank(input.Title, roadmap.Title)
	roadmap.Status = firstNonBlank(input.Status, roadmap.Status)
	if input.Tags != nil {
		roadmap.Tags = input.Tags
	}
	if input.Progress != nil {
		if *input.Progress < 0 || *input.Progress > 1 {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "progress must be between 0 and 1", nil)
		}
		roadmap.Progress = *input.Progress
	}
	roadmap.Touch(time.Now().UTC())

	if err := s.store.WriteRoadmap(projectID, roadmap); err != nil {
		return nil, err
	}
	revisionID, err := s.store.CommitAll(projectID, "Update roadmap "+roadmap.Title)
	if err != nil {
		return nil, err
	}
	return map[string]any{"roadmap": roadmap, "revisionId": revisionID}, nil
}

// DeleteRoadmap removes the roadmap subtree, chats included, and scrubs the
// deleted chats from the search index.
func (s *Service) DeleteRoadmap(ctx context.Context, projectID, roadmapID string) (map[string]any, error) {
	roadmap, err := s.store.ReadRoadmap(projectID, roadmapID)
	if err != nil {
		return nil, err
	}
	chats, err := s.store.ListChats(projectID, roadmapID)
	if err != nil {
		return nil, err
	}
	if err := s.store.RemoveRoadmap(projectID, roadmapID); err != nil {
		return nil, err
	}
	revisionID, err := s.store.CommitAll(projectID, "Delete roadmap "+roadmap.Title)
	if err != nil {
		return nil, err
	}
	for _, chat := range chats {
		s.search.DeleteChat(chat.ID)
	}
	return map[string]any{"revisionId": revisionID}, nil
}

// Meta-chat

func (s *Service) GetMetaChat(ctx context.Context, projectID, roadmapID string) (*store.MetaChat, error) {
	if _, err := s.store.ReadRoadmap(projectID, roadmapID); err != nil {
		return nil, err
	}
	return s.store.ReadMetaChat(projectID, roadmapID)
}

// RecomputeMetaChat aggregates the roadmap's chats into its meta-chat: mean
// progress, a derived status and a counts summary. The roadmap's own
// progress follows the rollup. The core store never computes this.
func (s *Service) RecomputeMetaChat(ctx context.Context, projectID, roadmapID string) (map[string]any, error) {
	roadmap, err := s.store.ReadRoadmap(projectID, roadmapID)
	if err != nil {
		return nil, err
	}
	meta, err := s.store.ReadMetaChat(projectID, roadmapID)
	if err != nil {
		return nil, err
	}
	chats, err := s.store.ListChats(projectID, roadmapID)
	if err != nil {
		return nil, err
	}

	progress, status, summary := rollupChats(chats)
	now := time.Now().UTC()
	meta.Progress = progress
	meta.Status = status
	meta.Summary = summary
	meta.Touch(now)
	roadmap.Progress = progress
	roadmap.Touch(now)

	if err := s.store.WriteMetaChat(projectID, roadmapID, meta); err != nil {
		return nil, err
	}
	if err := s.store.WriteRoadmap(projectID, roadmap); err != nil {
		return nil, err
	}
	revisionID, err := s.store.CommitAll(projectID, "Update rollup for roadmap "+roadmap.Title)
	if err != nil {
		return nil, err
	}
	return map[string]any{"metaChat": meta, "roadmap": roadmap, "revisionId": revisionID}, nil
}

// rollupChats derives the meta-chat fields from the chat set. Status rules:
// no chats is "empty", every chat at full progress is "complete", any chat
// marked active is "active", otherwise "pending".
func rollupChats(chats []*store.Chat) (progress float64, status, summary string) {
	if len(chats) == 0 {
		return 0, "empty", "no chats yet"
	}
	var sum float64
	complete := 0
	active := false
	for _, chat := range chats {
		sum += chat.Progress
		if chat.Progress >= 1 {
			complete++
		}
		if chat.Status == "active" {
			active = true
		}
	}
	progress = sum / float64(len(chats))
	switch {
	case complete == len(chats):
		status = "complete"
	case active:
		status = "active"
	default:
		status = "pending"
	}
	summary = fmt.Sprintf("%d of %d chats complete, mean progress %d%%", complete, len(chats), int(progress*100+0.5))
	return progress, status, summary
}

// Chats

// CreateChat starts a chat under a roadmap. With a template id the template
// seeds the chat: title and goal default from it, the system prompt becomes
// the first log record, starters follow with fresh ids, and the template id
// is recorded on the chat.
func (s *Service) CreateChat(ctx context.Context, projectID, roadmapID string, input ChatInput) (map[string]any, error) {
	if _, err := s.store.ReadRoadmap(projectID, roadmapID); err != nil {
		return nil, err
	}

	var tmpl *store.Template
	if input.TemplateID != "" {
		var err error
		tmpl, err = s.store.ReadTemplate(projectID, input.TemplateID)
		if err != nil {
			return nil, err
		}
	}

	title := strings.TrimSpace(input.Title)
	goal := strings.TrimSpace(input.Goal)
	if tmpl != nil {
		title = firstNonBlank(title, tmpl.Title)
		goal = firstNonBlank(goal, tmpl.Goal)
	}
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	now := time.Now().UTC()
	chat := &store.Chat{
		ID:        util.NewID("chat"),
		Title:     title,
		Goal:      goal,
		Status:    firstNonBlank(input.Status, "active"),
		Meta:      input.Meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if tmpl != nil {
		chat.TemplateID = tmpl.ID
	}
	if err := s.store.WriteChat(projectID, roadmapID, chat); err != nil {
		return nil, err
	}

	messages := []store.Message{}
	if tmpl != nil {
		messages = seedMessages(tmpl, now)
		for _, msg := range messages {
			if err := s.store.AppendMessage(projectID, roadmapID, chat.ID, msg); err != nil {
				return nil, err
			}
		}
	}

	revisionID, err := s.store.CommitAll(projectID, "Create chat "+title)
	if err != nil {
		return nil, err
	}
	s.indexChat(projectID, roadmapID, chat)
	return map[string]any{"chat": chat, "messages": messages, "revisionId": revisionID}, nil
}

// seedMessages builds the initial log for a template-backed chat: the system
// prompt first, then the starters in template order, all with fresh ids.
func seedMessages(tmpl *store.Template, now time.Time) []store.Message {
	messages := []store.Message{}
	if strings.TrimSpace(tmpl.SystemPrompt) != "" {
		messages = append(messages, store.Message{
			ID:        util.NewID("msg"),
			Role:      store.RoleSystem,
			Body:      tmpl.SystemPrompt,
			CreatedAt: now,
		})
	}
	for _, starter := range tmpl.Starters {
		messages = append(messages, store.Message{
			ID:        util.NewID("msg"),
			Role:      starter.Role,
			Body:      starter.Body,
			Meta:      starter.Meta,
			CreatedAt: now,
		})
	}
	return messages
}

func (s *Service) GetChat(ctx context.Context, projectID, roadmapID, chatID string) (map[string]any, error) {
	chat, err := s.store.ReadChat(projectID, roadmapID, chatID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.Messages(projectID, roadmapID, chatID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"chat": chat, "messages": messages}, nil
}

func (s *Service) ListChats(ctx context.Context, projectID, roadmapID string) ([]*store.Chat, error) {
	if _, err := s.store.ReadRoadmap(projectID, roadmapID); err != nil {
		return nil, err
	}
	chats, err := s.store.ListChats(projectID, roadmapID)
	if err != nil {
		return nil, err
	}
	sortChats(chats)
	return chats, nil
}

func (s *Service) UpdateChat(ctx context.Context, projectID, roadmapID, chatID string, input ChatInput) (map[string]any, error) {
	chat, err := s.store.ReadChat(projectID, roadmapID, chatID)
	if err != nil {
		return nil, err
	}
	chat.Title = firstNonBlank(input.Title, chat.Title)
	chat.Goal = firstNonBlank(input.Goal, chat.Goal)
	chat.Status = firstNonBlank(input.Status, chat.Status)
	if input.Progress != nil {
		if *input.Progress < 0 || *input.Progress > 1 {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "progress must be between 0 and 1", nil)
		}
		chat.Progress = *input.Progress
	}
	if input.Meta != nil {
		chat.Meta = input.Meta
	}
	chat.Touch(time.Now().UTC())

	if err := s.store.WriteChat(projectID, roadmapID, chat); err != nil {
		return nil, err
	}
	revisionID, err := s.store.CommitAll(projectID, "Update chat "+chat.Title)
	if err != nil {
		return nil, err
	}
	s.indexChat(projectID, roadmapID, chat)
	return map[string]any{"chat": chat, "revisionId": revisionID}, nil
}

func (s *Service) DeleteChat(ctx context.Context, projectID, roadmapID, chatID string) (map[string]any, error) {
	chat, err := s.store.ReadChat(projectID, roadmapID, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.store.RemoveChat(projectID, roadmapID, chatID); err != nil {
		return nil, err
	}
	revisionID, err := s.store.CommitAll(projectID, "Delete chat "+chat.Title)
	if err != nil {
		return nil, err
	}
	s.search.DeleteChat(chatID)
	return map[string]any{"revisionId": revisionID}, nil
}

// Messages

func (s *Service) AppendMessage(ctx context.Context, projectID, roadmapID, chatID string, input MessageInput) (map[string]any, error) {
	if !store.ValidRole(input.Role) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "role must be user, assistant, system, status or meta", nil)
	}
	if strings.TrimSpace(input.Body) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "body is required", nil)
	}
	chat, err := s.store.ReadChat(projectID, roadmapID, chatID)
	if err != nil {
		return nil, err
	}

	msg := store.Message{
		ID:        util.NewID("msg"),
		Role:      input.Role,
		Body:      input.Body,
		Meta:      input.Meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendMessage(projectID, roadmapID, chatID, msg); err != nil {
		return nil, err
	}
	revisionID, err := s.store.CommitAll(projectID, "Add message to "+chat.Title)
	if err != nil {
		return nil, err
	}
	return map[string]any{"message": msg, "revisionId": revisionID}, nil
}

func (s *Service) ListMessages(ctx context.Context, projectID, roadmapID, chatID string) ([]store.Message, error) {
	if _, err := s.store.ReadChat(projectID, roadmapID, chatID); err != nil {
		return nil, err
	}
	return s.store.Messages(projectID, roadmapID, chatID)
}

// Templates

// SaveTemplate creates or replaces a template. Starters are validated and
// stamped with fresh ids; the store refreshes the version marker on write.
func (s *Service) SaveTemplate(ctx context.Context, projectID string, input TemplateInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	for _, starter := range input.Starters {
		if !store.ValidRole(starter.Role) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "starter role must be user, assistant, system, status or meta", nil)
		}
	}
	if _, err := s.store.ReadProject(projectID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tmpl := &store.Template{
		ID:               input.ID,
		Title:            title,
		Goal:             input.Goal,
		SystemPrompt:     input.SystemPrompt,
		ScriptID:         input.ScriptID,
		StructuredOutput: input.StructuredOutput,
		Meta:             input.Meta,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if tmpl.ID == "" {
		tmpl.ID = util.NewID("tmpl")
	} else if existing, err := s.store.ReadTemplate(projectID, tmpl.ID); err == nil {
		tmpl.CreatedAt = existing.CreatedAt
	}
	for _, starter := range input.Starters {
		tmpl.Starters = append(tmpl.Starters, store.Message{
			ID:        util.NewID("msg"),
			Role:      starter.Role,
			Body:      starter.Body,
			Meta:      starter.Meta,
			CreatedAt: now,
		})
	}

	if err := s.store.WriteTemplate(projectID, tmpl); err != nil {
		return nil, err
	}
	revisionID, err := s.store.CommitAll(projectID, "Save template "+title)
	if err != nil {
		return nil, err
	}
	s.indexTemplate(projectID, tmpl)
	return map[string]any{"template": tmpl, "revisionId": revisionID}, nil
}

func (s *Service) GetTemplate(ctx context.Context, projectID, templateID string) (*store.Template, error) {
	return s.store.ReadTemplate(projectID, templateID)
}

func (s *Service) ListTemplates(ctx context.Context, projectID string) ([]*store.Template, error) {
	if _, err := s.store.ReadProject(projectID); err != nil {
		return nil, err
	}
	templates, err := s.store.ListTemplates(projectID)
	if err != nil {
		return nil, err
	}
	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Title < templates[j].Title
	})
	return templates, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, projectID, templateID string) (map[string]any, error) {
	tmpl, err := s.store.ReadTemplate(projectID, templateID)
	if err != nil {
		return nil, err
	}
	if err := s.store.RemoveTemplate(projectID, templateID); err != nil {
		return nil, err
	}
	revisionID, err := s.store.CommitAll(projectID, "Delete template "+tmpl.Title)
	if err != nil {
		return nil, err
	}
	s.search.DeleteTemplate(templateID)
	return map[string]any{"revisionId": revisionID}, nil
}

// Evaluation

// EvaluateChat runs the chat's template logic script and writes the verdict
// back to the chat. Attempts are capped per chat inside a sliding window;
// the script sees the chat's current state and its latest log record.
func (s *Service) EvaluateChat(ctx context.Context, projectID, roadmapID, chatID string) (map[string]any, error) {
	chat, err := s.store.ReadChat(projectID, roadmapID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.TemplateID == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "NO_SCRIPT", "chat has no template", nil)
	}
	tmpl, err := s.store.ReadTemplate(projectID, chat.TemplateID)
	if err != nil {
		return nil, err
	}
	if tmpl.ScriptID == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "NO_SCRIPT", "template has no evaluation script", nil)
	}

	if !s.attempts.Allow(chatID) {
		return nil, domainError(http.StatusTooManyRequests, "RATE_LIMITED", "Evaluation rate limit reached", map[string]any{
			"windowSeconds": int(s.cfg.EvalWindow / time.Second),
		})
	}

	messages, err := s.store.Messages(projectID, roadmapID, chatID)
	if err != nil {
		return nil, err
	}
	input := map[string]any{
		"title":        chat.Title,
		"goal":         chat.Goal,
		"status":       chat.Status,
		"progress":     chat.Progress,
		"messageCount": len(messages),
	}
	if len(messages) > 0 {
		last := messages[len(messages)-1]
		input["lastRole"] = last.Role
		input["lastBody"] = last.Body
	}

	result, err := s.eval.Evaluate(ctx, tmpl.ScriptID, input)
	if err != nil {
		return nil, err
	}

	if result.Status != "" {
		chat.Status = result.Status
	}
	chat.Progress = result.Progress
	chat.Touch(time.Now().UTC())
	if err := s.store.WriteChat(projectID, roadmapID, chat); err != nil {
		return nil, err
	}
	revisionID, err := s.store.CommitAll(projectID, "Evaluate chat "+chat.Title)
	if err != nil {
		return nil, err
	}
	s.indexChat(projectID, roadmapID, chat)
	return map[string]any{"chat": chat, "evaluation": result, "revisionId": revisionID}, nil
}
