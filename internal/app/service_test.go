package app

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
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
)

type fakeEvaluator struct {
	evaluateFn func(ctx context.Context, scriptID string, input map[string]any) (scripteval.Result, error)
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, scriptID string, input map[string]any) (scripteval.Result, error) {
	if f.evaluateFn != nil {
		return f.evaluateFn(ctx, scriptID, input)
	}
	return scripteval.Result{Status: "complete", Progress: 1}, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	dataDir := t.TempDir()
	fts, err := search.NewSQLiteFTS(filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatalf("NewSQLiteFTS() error = %v", err)
	}
	t.Cleanup(func() { fts.Close() })

	cfg := config.Config{
		DataDir:         dataDir,
		EvalWindow:      time.Minute,
		EvalMaxAttempts: 3,
	}
	return New(cfg,
		gitstore.New(dataDir),
		search.NewService(nil, fts),
		backup.NewService(dataDir, filepath.Join(t.TempDir(), "backups"), nil, ""),
		&fakeEvaluator{},
		attempt.NewTracker(cfg.EvalWindow, cfg.EvalMaxAttempts),
		monitor.NewService(dataDir),
	)
}

var revisionIDPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

func createTestProject(t *testing.T, svc *Service, name string) *store.Project {
	t.Helper()
	payload, err := svc.CreateProject(context.Background(), ProjectInput{Name: name})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return payload["project"].(*store.Project)
}

func createTestRoadmap(t *testing.T, svc *Service, projectID, title string) *store.Roadmap {
	t.Helper()
	payload, err := svc.CreateRoadmap(context.Background(), projectID, RoadmapInput{Title: title})
	if err != nil {
		t.Fatalf("CreateRoadmap() error = %v", err)
	}
	return payload["roadmap"].(*store.Roadmap)
}

func createTestChat(t *testing.T, svc *Service, projectID, roadmapID string, input ChatInput) *store.Chat {
	t.Helper()
	payload, err := svc.CreateChat(context.Background(), projectID, roadmapID, input)
	if err != nil {
		t.Fatalf("CreateChat() error = %v", err)
	}
	return payload["chat"].(*store.Chat)
}

func floatPtr(v float64) *float64 { return &v }

func TestCreateProjectInitializesRepo(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	payload, err := svc.CreateProject(ctx, ProjectInput{Name: "Atlas Rewrite", Description: "Storage engine rework"})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	project := payload["project"].(*store.Project)
	if !strings.HasPrefix(project.ID, "proj_") {
		t.Errorf("project id = %q, want proj_ prefix", project.ID)
	}
	if project.Status != "active" {
		t.Errorf("default status = %q, want active", project.Status)
	}
	if rev := payload["revisionId"].(string); !revisionIDPattern.MatchString(rev) {
		t.Errorf("revisionId = %q, want 40 hex characters", rev)
	}

	got, err := svc.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got["project"].(*store.Project).Name != "Atlas Rewrite" {
		t.Errorf("stored name = %q", got["project"].(*store.Project).Name)
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateProject(context.Background(), ProjectInput{Name: "   "})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("CreateProject() error = %v, want 422 domain error", err)
	}
}

func TestUpdateProjectKeepsBlankFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")

	payload, err := svc.UpdateProject(ctx, project.ID, ProjectInput{Status: "archived"})
	if err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}
	updated := payload["project"].(*store.Project)
	if updated.Name != "Atlas" {
		t.Errorf("name changed to %q on blank input", updated.Name)
	}
	if updated.Status != "archived" {
		t.Errorf("status = %q, want archived", updated.Status)
	}
}

func TestDeleteProjectRemovesEverything(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Doomed")

	if err := svc.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	if _, err := svc.GetProject(ctx, project.ID); !errors.Is(err, gitstore.ErrNotFound) {
		t.Fatalf("GetProject() after delete error = %v, want ErrNotFound", err)
	}

	resp, err := svc.Search(ctx, "Doomed", "", "", 10, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("search still finds deleted project: %+v", resp.Results)
	}
}

func TestCreateRoadmapWritesMetaChatTogether(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")

	payload, err := svc.CreateRoadmap(ctx, project.ID, RoadmapInput{Title: "Phase One", Tags: []string{"q3"}})
	if err != nil {
		t.Fatalf("CreateRoadmap() error = %v", err)
	}
	roadmap := payload["roadmap"].(*store.Roadmap)
	meta := payload["metaChat"].(*store.MetaChat)
	if roadmap.MetaChatID != meta.ID {
		t.Errorf("roadmap.MetaChatID = %q, meta id = %q", roadmap.MetaChatID, meta.ID)
	}
	if meta.RoadmapID != roadmap.ID {
		t.Errorf("meta.RoadmapID = %q, roadmap id = %q", meta.RoadmapID, roadmap.ID)
	}
	if meta.Status != "empty" {
		t.Errorf("fresh meta status = %q, want empty", meta.Status)
	}

	got, err := svc.GetRoadmap(ctx, project.ID, roadmap.ID)
	if err != nil {
		t.Fatalf("GetRoadmap() error = %v", err)
	}
	if _, ok := got["metaChat"]; !ok {
		t.Error("GetRoadmap() payload is missing the meta-chat")
	}
}

func TestCreateChatFromTemplateSeedsLog(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")
	roadmap := createTestRoadmap(t, svc, project.ID, "Phase One")

	tmplPayload, err := svc.SaveTemplate(ctx, project.ID, TemplateInput{
		Title:        "Design review",
		Goal:         "Agree on the schema",
		SystemPrompt: "You are a meticulous reviewer.",
		Starters: []MessageInput{
			{Role: store.RoleUser, Body: "Here is the current draft."},
			{Role: store.RoleAssistant, Body: "Walking through it now."},
		},
		ScriptID: "checklist",
	})
	if err != nil {
		t.Fatalf("SaveTemplate() error = %v", err)
	}
	tmpl := tmplPayload["template"].(*store.Template)
	if tmpl.Version == 0 {
		t.Error("template version was not stamped")
	}

	chatPayload, err := svc.CreateChat(ctx, project.ID, roadmap.ID, ChatInput{TemplateID: tmpl.ID})
	if err != nil {
		t.Fatalf("CreateChat() error = %v", err)
	}
	chat := chatPayload["chat"].(*store.Chat)
	if chat.Title != "Design review" {
		t.Errorf("chat title = %q, want template title", chat.Title)
	}
	if chat.TemplateID != tmpl.ID {
		t.Errorf("chat.TemplateID = %q, want %q", chat.TemplateID, tmpl.ID)
	}

	messages, err := svc.ListMessages(ctx, project.ID, roadmap.ID, chat.ID)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("seeded log has %d records, want 3", len(messages))
	}
	if messages[0].Role != store.RoleSystem || messages[0].Body != "You are a meticulous reviewer." {
		t.Errorf("first record = %+v, want the system prompt", messages[0])
	}
	if messages[1].Body != "Here is the current draft." || messages[2].Body != "Walking through it now." {
		t.Errorf("starters out of order: %q then %q", messages[1].Body, messages[2].Body)
	}
	if messages[1].ID == tmpl.Starters[0].ID {
		t.Error("seeded message reused the template starter id")
	}
}

func TestAppendMessageValidatesRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")
	roadmap := createTestRoadmap(t, svc, project.ID, "Phase One")
	chat := createTestChat(t, svc, project.ID, roadmap.ID, ChatInput{Title: "Kickoff"})

	_, err := svc.AppendMessage(ctx, project.ID, roadmap.ID, chat.ID, MessageInput{Role: "robot", Body: "hi"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("AppendMessage() error = %v, want 422 domain error", err)
	}

	payload, err := svc.AppendMessage(ctx, project.ID, roadmap.ID, chat.ID, MessageInput{Role: store.RoleUser, Body: "first"})
	if err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	msg := payload["message"].(store.Message)
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("message id = %q, want msg_ prefix", msg.ID)
	}

	messages, err := svc.ListMessages(ctx, project.ID, roadmap.ID, chat.ID)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "first" {
		t.Fatalf("log = %+v, want the single appended record", messages)
	}
}

func TestRecomputeMetaChatRollsUpChats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")
	roadmap := createTestRoadmap(t, svc, project.ID, "Phase One")

	done := createTestChat(t, svc, project.ID, roadmap.ID, ChatInput{Title: "Schema"})
	if _, err := svc.UpdateChat(ctx, project.ID, roadmap.ID, done.ID, ChatInput{Status: "done", Progress: floatPtr(1)}); err != nil {
		t.Fatalf("UpdateChat() error = %v", err)
	}
	partial := createTestChat(t, svc, project.ID, roadmap.ID, ChatInput{Title: "Indexes"})
	if _, err := svc.UpdateChat(ctx, project.ID, roadmap.ID, partial.ID, ChatInput{Progress: floatPtr(0.5)}); err != nil {
		t.Fatalf("UpdateChat() error = %v", err)
	}

	payload, err := svc.RecomputeMetaChat(ctx, project.ID, roadmap.ID)
	if err != nil {
		t.Fatalf("RecomputeMetaChat() error = %v", err)
	}
	meta := payload["metaChat"].(*store.MetaChat)
	if meta.Progress != 0.75 {
		t.Errorf("meta progress = %v, want 0.75", meta.Progress)
	}
	if meta.Status != "active" {
		t.Errorf("meta status = %q, want active", meta.Status)
	}
	if !strings.Contains(meta.Summary, "1 of 2") {
		t.Errorf("summary = %q, want the completion count", meta.Summary)
	}
	if got := payload["roadmap"].(*store.Roadmap).Progress; got != 0.75 {
		t.Errorf("roadmap progress = %v, want the rollup value", got)
	}
}

func TestRecomputeMetaChatEmptyRoadmap(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")
	roadmap := createTestRoadmap(t, svc, project.ID, "Phase One")

	payload, err := svc.RecomputeMetaChat(ctx, project.ID, roadmap.ID)
	if err != nil {
		t.Fatalf("RecomputeMetaChat() error = %v", err)
	}
	meta := payload["metaChat"].(*store.MetaChat)
	if meta.Status != "empty" || meta.Progress != 0 {
		t.Errorf("empty rollup = status %q progress %v", meta.Status, meta.Progress)
	}
}

func TestChatCreateWithoutTitleOrTemplateFails(t *testing.T) {
	svc := newTestService(t)
	project := createTestProject(t, svc, "Atlas")
	roadmap := createTestRoadmap(t, svc, project.ID, "Phase One")

	_, err := svc.CreateChat(context.Background(), project.ID, roadmap.ID, ChatInput{})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("CreateChat() error = %v, want 422 domain error", err)
	}
}

func TestChatProgressValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")
	roadmap := createTestRoadmap(t, svc, project.ID, "Phase One")
	chat := createTestChat(t, svc, project.ID, roadmap.ID, ChatInput{Title: "Kickoff"})

	_, err := svc.UpdateChat(ctx, project.ID, roadmap.ID, chat.ID, ChatInput{Progress: floatPtr(1.2)})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("UpdateChat() error = %v, want 422 domain error", err)
	}
}

func TestEvaluateChatWritesVerdict(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")
	roadmap := createTestRoadmap(t, svc, project.ID, "Phase One")

	tmplPayload, err := svc.SaveTemplate(ctx, project.ID, TemplateInput{Title: "Checklist", ScriptID: "checklist"})
	if err != nil {
		t.Fatalf("SaveTemplate() error = %v", err)
	}
	tmpl := tmplPayload["template"].(*store.Template)
	chat := createTestChat(t, svc, project.ID, roadmap.ID, ChatInput{Title: "Kickoff", TemplateID: tmpl.ID})
	if _, err := svc.AppendMessage(ctx, project.ID, roadmap.ID, chat.ID, MessageInput{Role: store.RoleUser, Body: "ship it"}); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	var seenScript string
	var seenInput map[string]any
	svc.eval = &fakeEvaluator{evaluateFn: func(_ context.Context, scriptID string, input map[string]any) (scripteval.Result, error) {
		seenScript = scriptID
		seenInput = input
		return scripteval.Result{Status: "blocked", Progress: 0.4}, nil
	}}

	payload, err := svc.EvaluateChat(ctx, project.ID, roadmap.ID, chat.ID)
	if err != nil {
		t.Fatalf("EvaluateChat() error = %v", err)
	}
	if seenScript != "checklist" {
		t.Errorf("script id = %q, want checklist", seenScript)
	}
	if seenInput["title"] != "Kickoff" || seenInput["messageCount"] != 1 || seenInput["lastBody"] != "ship it" {
		t.Errorf("script input = %+v", seenInput)
	}
	updated := payload["chat"].(*store.Chat)
	if updated.Status != "blocked" || updated.Progress != 0.4 {
		t.Errorf("chat after evaluate = status %q progress %v", updated.Status, updated.Progress)
	}
}

func TestEvaluateChatRateLimits(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	svc.attempts = attempt.NewTracker(time.Minute, 2)
	project := createTestProject(t, svc, "Atlas")
	roadmap := createTestRoadmap(t, svc, project.ID, "Phase One")

	tmplPayload, err := svc.SaveTemplate(ctx, project.ID, TemplateInput{Title: "Checklist", ScriptID: "checklist"})
	if err != nil {
		t.Fatalf("SaveTemplate() error = %v", err)
	}
	tmpl := tmplPayload["template"].(*store.Template)
	chat := createTestChat(t, svc, project.ID, roadmap.ID, ChatInput{Title: "Kickoff", TemplateID: tmpl.ID})

	for i := 0; i < 2; i++ {
		if _, err := svc.EvaluateChat(ctx, project.ID, roadmap.ID, chat.ID); err != nil {
			t.Fatalf("EvaluateChat() #%d error = %v", i+1, err)
		}
	}
	_, err = svc.EvaluateChat(ctx, project.ID, roadmap.ID, chat.ID)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusTooManyRequests {
		t.Fatalf("EvaluateChat() over limit error = %v, want 429 domain error", err)
	}
}

func TestEvaluateChatRequiresScript(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")
	roadmap := createTestRoadmap(t, svc, project.ID, "Phase One")
	chat := createTestChat(t, svc, project.ID, roadmap.ID, ChatInput{Title: "Kickoff"})

	_, err := svc.EvaluateChat(ctx, project.ID, roadmap.ID, chat.ID)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "NO_SCRIPT" {
		t.Fatalf("EvaluateChat() error = %v, want NO_SCRIPT domain error", err)
	}
}

func TestSnapshotRejectsDuplicateName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")

	if _, err := svc.SnapshotProject(ctx, project.ID, "v1", "first cut"); err != nil {
		t.Fatalf("SnapshotProject() error = %v", err)
	}
	_, err := svc.SnapshotProject(ctx, project.ID, "v1", "again")
	if !errors.Is(err, gitstore.ErrDuplicateSnapshot) {
		t.Fatalf("duplicate SnapshotProject() error = %v, want ErrDuplicateSnapshot", err)
	}
	if status, _, _, _ := mapError(err); status != http.StatusConflict {
		t.Errorf("mapError() status = %d, want 409", status)
	}
}

func TestProjectHistoryNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")
	createTestRoadmap(t, svc, project.ID, "Phase One")

	revisions, err := svc.ProjectHistory(ctx, project.ID, 10)
	if err != nil {
		t.Fatalf("ProjectHistory() error = %v", err)
	}
	if len(revisions) < 2 {
		t.Fatalf("history has %d revisions, want at least 2", len(revisions))
	}
	if !strings.Contains(revisions[0].Message, "Create roadmap") {
		t.Errorf("newest revision = %q, want the roadmap commit first", revisions[0].Message)
	}
}

func TestDeleteRoadmapScrubsChatIndex(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")
	roadmap := createTestRoadmap(t, svc, project.ID, "Phase One")
	createTestChat(t, svc, project.ID, roadmap.ID, ChatInput{Title: "Flux capacitor sizing"})

	resp, err := svc.Search(ctx, "capacitor", "chat", "", 10, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("search before delete found %d hits, want 1", resp.Total)
	}

	if _, err := svc.DeleteRoadmap(ctx, project.ID, roadmap.ID); err != nil {
		t.Fatalf("DeleteRoadmap() error = %v", err)
	}
	resp, err = svc.Search(ctx, "capacitor", "chat", "", 10, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("search after delete still finds %d hits", resp.Total)
	}
}

func TestSearchFiltersByProject(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	first := createTestProject(t, svc, "Atlas")
	second := createTestProject(t, svc, "Borealis")
	firstRoadmap := createTestRoadmap(t, svc, first.ID, "Phase One")
	secondRoadmap := createTestRoadmap(t, svc, second.ID, "Phase One")
	createTestChat(t, svc, first.ID, firstRoadmap.ID, ChatInput{Title: "Pipeline tuning"})
	createTestChat(t, svc, second.ID, secondRoadmap.ID, ChatInput{Title: "Pipeline teardown"})

	resp, err := svc.Search(ctx, "pipeline", "chat", first.ID, 10, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("filtered search found %d hits, want 1", resp.Total)
	}
	if resp.Results[0].ProjectID != first.ID {
		t.Errorf("hit belongs to %q, want %q", resp.Results[0].ProjectID, first.ID)
	}

	_, err = svc.Search(ctx, "pipeline", "widget", "", 10, 0)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("Search() with bad type error = %v, want 422 domain error", err)
	}
}

func TestReindexProjectRestoresScrubbedRecords(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")
	roadmap := createTestRoadmap(t, svc, project.ID, "Phase One")
	chat := createTestChat(t, svc, project.ID, roadmap.ID, ChatInput{Title: "Pipeline tuning"})

	svc.search.DeleteChat(chat.ID)
	if resp, _ := svc.Search(ctx, "pipeline", "chat", "", 10, 0); resp.Total != 0 {
		t.Fatalf("chat still indexed after scrub: %+v", resp.Results)
	}

	svc.ReindexProject(project.ID)
	resp, err := svc.Search(ctx, "pipeline", "chat", "", 10, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("reindex restored %d hits, want 1", resp.Total)
	}
}

func TestExportProjectHTML(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas Rewrite")
	createTestRoadmap(t, svc, project.ID, "Phase One")

	result, err := svc.ExportProject(ctx, project.ID, export.FormatHTML, false, 0)
	if err != nil {
		t.Fatalf("ExportProject() error = %v", err)
	}
	html := string(result.Data)
	if !strings.Contains(html, "Atlas Rewrite") || !strings.Contains(html, "Phase One") {
		t.Errorf("report is missing project content")
	}

	_, err = svc.ExportProject(ctx, project.ID, "epub", false, 0)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("ExportProject() with bad format error = %v, want 422 domain error", err)
	}
}

func TestBackupProject(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	project := createTestProject(t, svc, "Atlas")

	info, err := svc.BackupProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("BackupProject() error = %v", err)
	}
	if !strings.HasPrefix(info.Name, project.ID+"-") {
		t.Errorf("backup name = %q, want project prefix", info.Name)
	}

	payload, err := svc.ListBackups(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if got := payload["backups"].([]backup.Info); len(got) != 1 {
		t.Errorf("ListBackups() returned %d entries, want 1", len(got))
	}
}

func TestOperationsOnMissingProject(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.GetProject(ctx, "proj_missing"); !errors.Is(err, gitstore.ErrNotFound) {
		t.Errorf("GetProject() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.CreateRoadmap(ctx, "proj_missing", RoadmapInput{Title: "x"}); !errors.Is(err, gitstore.ErrNotFound) {
		t.Errorf("CreateRoadmap() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.BackupProject(ctx, "proj_missing"); !errors.Is(err, gitstore.ErrNotFound) {
		t.Errorf("BackupProject() error = %v, want ErrNotFound", err)
	}
	if status, _, _, _ := mapError(gitstore.ErrNotFound); status != http.StatusNotFound {
		t.Errorf("mapError(ErrNotFound) status = %d, want 404", status)
	}
}
