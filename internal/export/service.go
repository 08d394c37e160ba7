package export

import (
	"context"
	"fmt"
	"time"

	"plotline/internal/store"
)

// DataStore is the narrow read surface the exporter pulls report data
// through. The service layer implements it over the git store.
type DataStore interface {
	GetProject(ctx context.Context, projectID string) (store.Project, error)
	ListRoadmaps(ctx context.Context, projectID string) ([]store.Roadmap, error)
	GetMetaChat(ctx context.Context, projectID, roadmapID string) (store.MetaChat, error)
	ListChats(ctx context.Context, projectID, roadmapID string) ([]store.Chat, error)
	CountMessages(ctx context.Context, projectID, roadmapID, chatID string) (int, error)
	History(ctx context.Context, projectID string, limit int) ([]store.RevisionInfo, error)
	Snapshots(ctx context.Context, projectID string) ([]store.SnapshotInfo, error)
	Diff(ctx context.Context, projectID, revisionID string) (string, error)
}

// Service renders audit reports for a project.
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

const defaultRevisionLimit = 20

// Export generates a project report in the requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	proj, err := s.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	data := TemplateData{
		Project:     proj,
		GeneratedAt: time.Now().UTC(),
	}

	roadmaps, err := s.store.ListRoadmaps(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}
	for _, rm := range roadmaps {
		section := RoadmapSection{Roadmap: rm}

		// Roadmaps without a meta-chat render without the rollup block.
		if meta, err := s.store.GetMetaChat(ctx, req.ProjectID, rm.ID); err == nil {
			section.MetaSummary = meta.Summary
			section.MetaProgress = meta.Progress
		}

		chats, err := s.store.ListChats(ctx, req.ProjectID, rm.ID)
		if err != nil {
			return nil, fmt.Errorf("list chats: %w", err)
		}
		for _, chat := range chats {
			row := ChatRow{Chat: chat}
			if n, err := s.store.CountMessages(ctx, req.ProjectID, rm.ID, chat.ID); err == nil {
				row.MessageCount = n
			}
			section.Chats = append(section.Chats, row)
		}
		data.Roadmaps = append(data.Roadmaps, section)
	}

	snapshots, err := s.store.Snapshots(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	data.Snapshots = snapshots

	limit := req.RevisionLimit
	if limit <= 0 {
		limit = defaultRevisionLimit
	}
	revisions, err := s.store.History(ctx, req.ProjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	for _, rev := range revisions {
		section := RevisionSection{RevisionInfo: rev, ShortID: shortID(rev.ID)}
		if req.IncludeDiffs {
			if patch, err := s.store.Diff(ctx, req.ProjectID, rev.ID); err == nil {
				if highlighted, err := highlightDiff(patch); err == nil {
					section.DiffHTML = highlighted
				}
			}
		}
		data.Revisions = append(data.Revisions, section)
	}

	html, err := RenderReportHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(proj.Name) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(html, proj.Name)
	case FormatDOCX:
		return exportDOCX(html, proj.Name)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
