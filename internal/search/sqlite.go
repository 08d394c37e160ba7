package search

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteFTS implements Searcher and Indexer on an embedded SQLite FTS5 table.
// The service keeps it write-through, so search stays available when
// Meilisearch is down and survives restarts without a cold reindex.
type SQLiteFTS struct {
	db *sql.DB
}

// NewSQLiteFTS opens (or creates) the index database at path.
func NewSQLiteFTS(path string) (*SQLiteFTS, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	s := &SQLiteFTS{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteFTS) migrate() error {
	_, err := s.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS records USING fts5(
			kind UNINDEXED,
			id UNINDEXED,
			project_id UNINDEXED,
			roadmap_id UNINDEXED,
			status UNINDEXED,
			title,
			body,
			tokenize = 'porter unicode61'
		)
	`)
	if err != nil {
		return fmt.Errorf("create fts table: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteFTS) Close() error {
	return s.db.Close()
}

// Healthy always returns true; the index is embedded.
func (s *SQLiteFTS) Healthy() bool {
	return true
}

// Search runs an FTS5 match across indexed records, best rank first, with
// highlighted titles and body snippets.
func (s *SQLiteFTS) Search(q Query) ([]Result, int, error) {
	match := ftsQuery(q.Text)
	if match == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "records MATCH ?"
	args := []any{match}
	if q.FilterType != "" {
		where += " AND kind = ?"
		args = append(args, string(q.FilterType))
	}
	if q.FilterProjectID != "" {
		where += " AND project_id = ?"
		args = append(args, q.FilterProjectID)
	}

	var total int
	if err := s.db.QueryRow("SELECT count(*) FROM records WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("fts count: %w", err)
	}

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT kind, id, project_id, roadmap_id,
			highlight(records, 5, '<mark>', '</mark>'),
			snippet(records, 6, '<mark>', '</mark>', '…', 24)
		FROM records
		WHERE %s
		ORDER BY rank
		LIMIT %d OFFSET %d`, where, limit, offset), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var kind string
		if err := rows.Scan(&kind, &r.ID, &r.ProjectID, &r.RoadmapID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("fts scan: %w", err)
		}
		r.Type = ResultType(kind)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// ftsQuery quotes each term so raw user input cannot break FTS5 query syntax.
func ftsQuery(text string) string {
	var terms []string
	for _, w := range strings.Fields(text) {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " ")
}

// IndexProject adds or updates a project record.
func (s *SQLiteFTS) IndexProject(p ProjectRecord) error {
	return s.upsert(string(ResultProject), p.ID, p.ID, "", p.Status, p.Name, p.Description)
}

// IndexChat adds or updates a chat record.
func (s *SQLiteFTS) IndexChat(c ChatRecord) error {
	return s.upsert(string(ResultChat), c.ID, c.ProjectID, c.RoadmapID, c.Status, c.Title, c.Goal)
}

// IndexTemplate adds or updates a template record.
func (s *SQLiteFTS) IndexTemplate(t TemplateRecord) error {
	return s.upsert(string(ResultTemplate), t.ID, t.ProjectID, "", "", t.Title, t.Goal)
}

// DeleteProject removes a project record.
func (s *SQLiteFTS) DeleteProject(id string) error {
	return s.remove(string(ResultProject), id)
}

// DeleteChat removes a chat record.
func (s *SQLiteFTS) DeleteChat(id string) error {
	return s.remove(string(ResultChat), id)
}

// DeleteTemplate removes a template record.
func (s *SQLiteFTS) DeleteTemplate(id string) error {
	return s.remove(string(ResultTemplate), id)
}

// DeleteByProject drops every record belonging to a project, the project's
// own record included. Used when a project is removed.
func (s *SQLiteFTS) DeleteByProject(projectID string) error {
	if _, err := s.db.Exec(`DELETE FROM records WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("fts delete by project: %w", err)
	}
	return nil
}

func (s *SQLiteFTS) upsert(kind, id, projectID, roadmapID, status, title, body string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("fts begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM records WHERE kind = ? AND id = ?`, kind, id); err != nil {
		return fmt.Errorf("fts clear: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO records (kind, id, project_id, roadmap_id, status, title, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		kind, id, projectID, roadmapID, status, title, body); err != nil {
		return fmt.Errorf("fts insert: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteFTS) remove(kind, id string) error {
	if _, err := s.db.Exec(`DELETE FROM records WHERE kind = ? AND id = ?`, kind, id); err != nil {
		return fmt.Errorf("fts delete: %w", err)
	}
	return nil
}

// LoadAllRecords returns everything in the index, grouped by kind. The
// write-through index is the reindex source when Meilisearch comes back.
func (s *SQLiteFTS) LoadAllRecords(ctx context.Context) ([]ProjectRecord, []ChatRecord, []TemplateRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, id, project_id, roadmap_id, status, title, body FROM records`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load records: %w", err)
	}
	defer rows.Close()

	projects := make([]ProjectRecord, 0)
	chats := make([]ChatRecord, 0)
	templates := make([]TemplateRecord, 0)
	for rows.Next() {
		var kind, id, projectID, roadmapID, status, title, body string
		if err := rows.Scan(&kind, &id, &projectID, &roadmapID, &status, &title, &body); err != nil {
			return nil, nil, nil, fmt.Errorf("scan record: %w", err)
		}
		switch ResultType(kind) {
		case ResultProject:
			projects = append(projects, ProjectRecord{ID: id, Name: title, Description: body, Status: status})
		case ResultChat:
			chats = append(chats, ChatRecord{ID: id, Title: title, Goal: body, ProjectID: projectID, RoadmapID: roadmapID, Status: status})
		case ResultTemplate:
			templates = append(templates, TemplateRecord{ID: id, Title: title, Goal: body, ProjectID: projectID})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate records: %w", err)
	}
	return projects, chats, templates, nil
}
