package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to the
// embedded FTS5 index. Writes go through to the fallback synchronously and
// to Meilisearch in the background, so the fallback is always current.
type Service struct {
	meili    *Meili
	fallback *SQLiteFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, fallback *SQLiteFTS) *Service {
	return &Service{meili: meili, fallback: fallback}
}

// Status reports primary-engine availability for health payloads.
func (s *Service) Status() (meiliConfigured, meiliHealthy bool) {
	if s.meili == nil {
		return false, false
	}
	return true, s.meili.Healthy()
}

// Search tries Meilisearch if healthy, otherwise queries the embedded index.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to fts: %v", err)
	}

	results, total, err := s.fallback.Search(q)
	if err != nil {
		log.Printf("search: fts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexProject indexes a project in both engines.
func (s *Service) IndexProject(p ProjectRecord) {
	if err := s.fallback.IndexProject(p); err != nil {
		log.Printf("search: fts index project %s: %v", p.ID, err)
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexProject(p); err != nil {
			log.Printf("search: index project %s: %v", p.ID, err)
		}
	}()
}

// IndexChat indexes a chat in both engines.
func (s *Service) IndexChat(c ChatRecord) {
	if err := s.fallback.IndexChat(c); err != nil {
		log.Printf("search: fts index chat %s: %v", c.ID, err)
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexChat(c); err != nil {
			log.Printf("search: index chat %s: %v", c.ID, err)
		}
	}()
}

// IndexTemplate indexes a template in both engines.
func (s *Service) IndexTemplate(t TemplateRecord) {
	if err := s.fallback.IndexTemplate(t); err != nil {
		log.Printf("search: fts index template %s: %v", t.ID, err)
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexTemplate(t); err != nil {
			log.Printf("search: index template %s: %v", t.ID, err)
		}
	}()
}

// DeleteChat removes a chat from both engines.
func (s *Service) DeleteChat(id string) {
	if err := s.fallback.DeleteChat(id); err != nil {
		log.Printf("search: fts delete chat %s: %v", id, err)
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteChat(id); err != nil {
			log.Printf("search: delete chat %s: %v", id, err)
		}
	}()
}

// DeleteTemplate removes a template from both engines.
func (s *Service) DeleteTemplate(id string) {
	if err := s.fallback.DeleteTemplate(id); err != nil {
		log.Printf("search: fts delete template %s: %v", id, err)
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteTemplate(id); err != nil {
			log.Printf("search: delete template %s: %v", id, err)
		}
	}()
}

// DeleteProject removes a project and everything under it from both engines.
func (s *Service) DeleteProject(id string) {
	if err := s.fallback.DeleteByProject(id); err != nil {
		log.Printf("search: fts delete project %s: %v", id, err)
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteProject(id); err != nil {
			log.Printf("search: delete project %s: %v", id, err)
		}
	}()
}

// ReindexMeili pushes everything in the embedded index to Meilisearch.
// Called at startup and when the watcher sees out-of-band changes.
func (s *Service) ReindexMeili(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	projects, chats, templates, err := s.fallback.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexProjects(projects); err != nil {
		log.Printf("search: reindex projects: %v", err)
	}
	if err := s.meili.IndexChats(chats); err != nil {
		log.Printf("search: reindex chats: %v", err)
	}
	if err := s.meili.IndexTemplates(templates); err != nil {
		log.Printf("search: reindex templates: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
