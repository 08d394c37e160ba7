package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"plotline/internal/attempt"
	"plotline/internal/backup"
	"plotline/internal/config"
	"plotline/internal/export"
	"plotline/internal/gitstore"
	"plotline/internal/monitor"
	"plotline/internal/scripteval"
	"plotline/internal/search"
	"plotline/internal/store"
	"plotline/internal/util"
)

// ProjectInput is the request body for creating or updating a project. On
// update, blank fields keep their current value; theme and repo replace
// wholesale when present.
type ProjectInput struct {
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Status      string            `json:"status"`
	Description string            `json:"description"`
	Theme       map[string]string `json:"theme"`
	Repo        *store.RepoLink   `json:"repo"`
}

type RoadmapInput struct {
	Title    string   `json:"title"`
	Tags     []string `json:"tags"`
	Status   string   `json:"status"`
	Progress *float64 `json:"progress"`
}

type ChatInput struct {
	Title      string         `json:"title"`
	Goal       string         `json:"goal"`
	TemplateID string         `json:"templateId"`
	Status     string         `json:"status"`
	Progress   *float64       `json:"progress"`
	Meta       map[string]any `json:"meta"`
}

type MessageInput struct {
	Role string         `json:"role"`
	Body string         `json:"body"`
	Meta map[string]any `json:"meta"`
}

type TemplateInput struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Goal             string         `json:"goal"`
	SystemPrompt     string         `json:"systemPrompt"`
	Starters         []MessageInput `json:"starters"`
	ScriptID         string         `json:"scriptId"`
	StructuredOutput bool           `json:"structuredOutput"`
	Meta             map[string]any `json:"meta"`
}

// Service is the workspace layer over the git store. Every durable mutation
// ends with a commit and a search reindex of whatever changed.
type Service struct {
	cfg      config.Config
	store    *gitstore.Service
	search   *search.Service
	exporter *export.Service
	backups  *backup.Service
	eval     scripteval.Evaluator
	attempts *attempt.Tracker
	monitor  *monitor.Service
}

func New(cfg config.Config, gitStore *gitstore.Service, searchSvc *search.Service, backups *backup.Service, eval scripteval.Evaluator, attempts *attempt.Tracker, monitorSvc *monitor.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    gitStore,
		search:   searchSvc,
		exporter: export.NewService(exportStore{store: gitStore}),
		backups:  backups,
		eval:     eval,
		attempts: attempts,
		monitor:  monitorSvc,
	}
}

// Projects

func (s *Service) CreateProject(ctx context.Context, input ProjectInput) (map[string]any, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}

	now := time.Now().UTC()
	project := &store.Project{
		ID:          util.NewID("proj"),
		Name:        name,
		Category:    strings.TrimSpace(input.Category),
		Status:      firstNonBlank(input.Status, "active"),
		Description: input.Description,
		Theme:       input.Theme,
		Repo:        input.Repo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	revisionID, err := s.store.InitProject(project)
	if err != nil {
		return nil, err
	}
	s.indexProject(project)
	return map[string]any{"project": project, "revisionId": revisionID}, nil
}

func (s *Service) GetProject(ctx context.Context, projectID string) (map[string]any, error) {
	project, err := s.store.ReadProject(projectID)
	if err != nil {
		return nil, err
	}
	roadmaps, err := s.store.ListRoadmaps(projectID)
	if err != nil {
		return nil, err
	}
	sortRoadmaps(roadmaps)
	return map[string]any{"project": project, "roadmaps": roadmaps}, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]*store.Project, error) {
	projects, err := s.store.ListProjects()
	if err != nil {
		return nil, err
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

func (s *Service) UpdateProject(ctx context.Context, projectID string, input ProjectInput) (map[string]any, error) {
	project, err := s.store.ReadProject(projectID)
	if err != nil {
		return nil, err
	}
	project.Name = firstNonBlank(input.Name, project.Name)
	project.Category = firstNonBlank(input.Category, project.Category)
	project.Status = firstNonBlank(input.Status, project.Status)
	project.Description = firstNonBlank(input.Description, project.Description)
	if input.Theme != nil {
		project.Theme = input.Theme
	}
	if input.Repo != nil {
		project.Repo = input.Repo
	}
	project.Touch(time.Now().UTC())

	if err := s.store.WriteProject(project); err != nil {
		return nil, err
	}
	revisionID, err := s.store.CommitAll(projectID, "Update project metadata")
	if err != nil {
		return nil, err
	}
	s.indexProject(project)
	return map[string]any{"project": project, "revisionId": revisionID}, nil
}

func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := s.store.ReadProject(projectID); err != nil {
		return err
	}
	if err := s.store.RemoveProject(projectID); err != nil {
		return err
	}
	s.search.DeleteProject(projectID)
	return nil
}

// Snapshots and history

func (s *Service) SnapshotProject(ctx context.Context, projectID, name, message string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	if _, err := s.store.ReadProject(projectID); err != nil {
		return nil, err
	}
	revisionID, err := s.store.Snapshot(projectID, name, message)
	if err != nil {
		return nil, err
	}
	return map[string]any{"name": name, "revisionId": revisionID}, nil
}

func (s *Service) ListSnapshots(ctx context.Context, projectID string) ([]store.SnapshotInfo, error) {
	if _, err := s.store.ReadProject(projectID); err != nil {
		return nil, err
	}
	return s.store.Snapshots(projectID)
}

func (s *Service) ProjectHistory(ctx context.Context, projectID string, limit int) ([]store.RevisionInfo, error) {
	if _, err := s.store.ReadProject(projectID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return s.store.History(projectID, limit)
}

func (s *Service) RevisionDiff(ctx context.Context, projectID, revisionID string) (map[string]any, error) {
	if _, err := s.store.ReadProject(projectID); err != nil {
		return nil, err
	}
	patch, err := s.store.Diff(projectID, revisionID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"revisionId": revisionID, "diff": patch}, nil
}

func (s *Service) PendingChanges(ctx context.Context, projectID string) ([]store.PendingChange, error) {
	if _, err := s.store.ReadProject(projectID); err != nil {
		return nil, err
	}
	return s.store.PendingChanges(projectID)
}

// Export and backup

func (s *Service) ExportProject(ctx context.Context, projectID string, format export.Format, includeDiffs bool, revisionLimit int) (*export.Result, error) {
	switch format {
	case export.FormatHTML, export.FormatPDF, export.FormatDOCX:
	default:
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be html, pdf or docx", nil)
	}
	return s.exporter.Export(ctx, export.Request{
		ProjectID:     projectID,
		Format:        format,
		IncludeDiffs:  includeDiffs,
		RevisionLimit: revisionLimit,
	})
}

func (s *Service) BackupProject(ctx context.Context, projectID string) (backup.Info, error) {
	if _, err := s.store.ReadProject(projectID); err != nil {
		return backup.Info{}, err
	}
	return s.backups.CreateProject(ctx, projectID)
}

func (s *Service) ListBackups(ctx context.Context, projectID string) (map[string]any, error) {
	if _, err := s.store.ReadProject(projectID); err != nil {
		return nil, err
	}
	all, err := s.backups.List()
	if err != nil {
		return nil, err
	}
	local := []backup.Info{}
	for _, info := range all {
		if strings.HasPrefix(info.Name, projectID+"-") {
			local = append(local, info)
		}
	}
	remote, err := s.backups.ListRemote(ctx, projectID)
	if err != nil {
		log.Printf("app: list remote backups for %s: %v", projectID, err)
		remote = nil
	}
	return map[string]any{"backups": local, "remote": remote}, nil
}

// Search and health

func (s *Service) Search(ctx context.Context, text, filterType, filterProjectID string, limit, offset int) (search.Response, error) {
	switch search.ResultType(filterType) {
	case "", search.ResultProject, search.ResultChat, search.ResultTemplate:
	default:
		return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be project, chat or template", nil)
	}
	return s.search.Search(search.Query{
		Text:            text,
		FilterType:      search.ResultType(filterType),
		FilterProjectID: filterProjectID,
		Limit:           limit,
		Offset:          offset,
	}), nil
}

func (s *Service) Health(ctx context.Context) map[string]any {
	meiliConfigured, meiliHealthy := s.search.Status()
	return map[string]any{
		"ok": true,
		"search": map[string]any{
			"meilisearch": map[string]any{"configured": meiliConfigured, "healthy": meiliHealthy},
			"fallback":    "ok",
		},
		"system": s.monitor.Snapshot(ctx),
	}
}

// Ready reports whether the service can take traffic. The store root must be
// reachable; search degrades to the embedded index and never blocks readiness.
func (s *Service) Ready(ctx context.Context) (map[string]any, bool) {
	ready := true
	checks := map[string]any{}

	if _, err := os.Stat(s.cfg.DataDir); err != nil {
		ready = false
		checks["storage"] = map[string]any{"status": "error", "error": err.Error()}
	} else {
		checks["storage"] = map[string]any{"status": "ok"}
	}

	snap := s.monitor.Snapshot(ctx)
	checks["disk"] = map[string]any{
		"freeBytes":   snap.DiskFreeBytes,
		"usedPercent": snap.DiskUsedPercent,
	}

	status := "ready"
	if !ready {
		status = "not_ready"
	}
	return map[string]any{"ok": ready, "status": status, "checks": checks}, ready
}

// Reindexing

// ReindexProject rebuilds the search records for one project from disk. The
// watcher calls it when files change out-of-band; a vanished project is
// scrubbed from the index instead.
func (s *Service) ReindexProject(projectID string) {
	project, err := s.store.ReadProject(projectID)
	if errors.Is(err, gitstore.ErrNotFound) {
		s.search.DeleteProject(projectID)
		return
	}
	if err != nil {
		log.Printf("app: reindex project %s: %v", projectID, err)
		return
	}
	s.indexProject(project)

	roadmaps, err := s.store.ListRoadmaps(projectID)
	if err != nil {
		log.Printf("app: reindex roadmaps %s: %v", projectID, err)
		return
	}
	for _, roadmap := range roadmaps {
		chats, err := s.store.ListChats(projectID, roadmap.ID)
		if err != nil {
			log.Printf("app: reindex chats %s/%s: %v", projectID, roadmap.ID, err)
			continue
		}
		for _, chat := range chats {
			s.indexChat(projectID, roadmap.ID, chat)
		}
	}

	templates, err := s.store.ListTemplates(projectID)
	if err != nil {
		log.Printf("app: reindex templates %s: %v", projectID, err)
		return
	}
	for _, tmpl := range templates {
		s.indexTemplate(projectID, tmpl)
	}
}

// ReindexAll warms the search index from disk, then mirrors it into
// Meilisearch. Called once at startup.
func (s *Service) ReindexAll(ctx context.Context) error {
	projects, err := s.store.ListProjects()
	if err != nil {
		return err
	}
	for _, project := range projects {
		s.ReindexProject(project.ID)
	}
	s.search.ReindexMeili(ctx)
	return nil
}

func (s *Service) indexProject(p *store.Project) {
	s.search.IndexProject(search.ProjectRecord{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
	})
}

func (s *Service) indexChat(projectID, roadmapID string, c *store.Chat) {
	s.search.IndexChat(search.ChatRecord{
		ID:        c.ID,
		Title:     c.Title,
		Goal:      c.Goal,
		ProjectID: projectID,
		RoadmapID: roadmapID,
		Status:    c.Status,
	})
}

func (s *Service) indexTemplate(projectID string, t *store.Template) {
	s.search.IndexTemplate(search.TemplateRecord{
		ID:        t.ID,
		Title:     t.Title,
		Goal:      t.Goal,
		ProjectID: projectID,
	})
}

// exportStore adapts the git store to the exporter's read interface. The
// store is synchronous filesystem work, so the contexts go unused.
type exportStore struct {
	store *gitstore.Service
}

func (e exportStore) GetProject(ctx context.Context, projectID string) (store.Project, error) {
	project, err := e.store.ReadProject(projectID)
	if err != nil {
		return store.Project{}, err
	}
	return *project, nil
}

func (e exportStore) ListRoadmaps(ctx context.Context, projectID string) ([]store.Roadmap, error) {
	roadmaps, err := e.store.ListRoadmaps(projectID)
	if err != nil {
		return nil, err
	}
	sortRoadmaps(roadmaps)
	out := make([]store.Roadmap, 0, len(roadmaps))
	for _, roadmap := range roadmaps {
		out = append(out, *roadmap)
	}
	return out, nil
}

func (e exportStore) GetMetaChat(ctx context.Context, projectID, roadmapID string) (store.MetaChat, error) {
	meta, err := e.store.ReadMetaChat(projectID, roadmapID)
	if err != nil {
		return store.MetaChat{}, err
	}
	return *meta, nil
}

func (e exportStore) ListChats(ctx context.Context, projectID, roadmapID string) ([]store.Chat, error) {
	chats, err := e.store.ListChats(projectID, roadmapID)
	if err != nil {
		return nil, err
	}
	sortChats(chats)
	out := make([]store.Chat, 0, len(chats))
	for _, chat := range chats {
		out = append(out, *chat)
	}
	return out, nil
}

func (e exportStore) CountMessages(ctx context.Context, projectID, roadmapID, chatID string) (int, error) {
	messages, err := e.store.Messages(projectID, roadmapID, chatID)
	if err != nil {
		return 0, err
	}
	return len(messages), nil
}

func (e exportStore) History(ctx context.Context, projectID string, limit int) ([]store.RevisionInfo, error) {
	return e.store.History(projectID, limit)
}

func (e exportStore) Snapshots(ctx context.Context, projectID string) ([]store.SnapshotInfo, error) {
	return e.store.Snapshots(projectID)
}

func (e exportStore) Diff(ctx context.Context, projectID, revisionID string) (string, error) {
	return e.store.Diff(projectID, revisionID)
}

func sortRoadmaps(roadmaps []*store.Roadmap) {
	sort.Slice(roadmaps, func(i, j int) bool {
		return roadmaps[i].CreatedAt.Before(roadmaps[j].CreatedAt)
	})
}

func sortChats(chats []*store.Chat) {
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].CreatedAt.Before(chats[j].CreatedAt)
	})
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
