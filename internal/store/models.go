package store

import "time"

// Message roles. The store persists whatever it is given; the service layer
// validates incoming roles against this set.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleStatus    = "status"
	RoleMeta      = "meta"
)

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem, RoleStatus, RoleMeta:
		return true
	}
	return false
}

// RepoLink points a project at an external repository.
type RepoLink struct {
	URL    string `json:"url"`
	Branch string `json:"branch,omitempty"`
}

type Project struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Category    string            `json:"category,omitempty"`
	Status      string            `json:"status,omitempty"`
	Description string            `json:"description,omitempty"`
	Theme       map[string]string `json:"theme,omitempty"`
	Repo        *RepoLink         `json:"repo,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type Roadmap struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags,omitempty"`
	Progress   float64   `json:"progress"`
	Status     string    `json:"status,omitempty"`
	MetaChatID string    `json:"metaChatId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MetaChat carries the rollup for one roadmap. The values are computed by the
// service layer from the roadmap's chats, never by the store.
type MetaChat struct {
	ID        string    `json:"id"`
	RoadmapID string    `json:"roadmapId"`
	Status    string    `json:"status,omitempty"`
	Progress  float64   `json:"progress"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Chat struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Goal       string         `json:"goal,omitempty"`
	TemplateID string         `json:"templateId,omitempty"`
	Status     string         `json:"status,omitempty"`
	Progress   float64        `json:"progress"`
	Meta       map[string]any `json:"meta,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// Message is one line of a chat's append-only log. Log order is the
// authoritative order; CreatedAt may collide and is informational only.
type Message struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Body      string         `json:"body"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Template seeds new chats. Version is a Unix-millisecond stamp refreshed on
// every write; it duplicates what commit history records so that readers get
// a version without walking history.
type Template struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Goal             string         `json:"goal,omitempty"`
	SystemPrompt     string         `json:"systemPrompt,omitempty"`
	Starters         []Message      `json:"starters,omitempty"`
	ScriptID         string         `json:"scriptId,omitempty"`
	StructuredOutput bool           `json:"structuredOutput"`
	Meta             map[string]any `json:"meta,omitempty"`
	Version          int64          `json:"version"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// RevisionInfo describes one commit in a project's history.
type RevisionInfo struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// SnapshotInfo describes one named checkpoint (annotated tag).
type SnapshotInfo struct {
	Name       string    `json:"name"`
	RevisionID string    `json:"revisionId"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PendingChange is one uncommitted file relative to HEAD.
type PendingChange struct {
	Path  string `json:"path"`
	State string `json:"state"`
	Diff  string `json:"diff,omitempty"`
}

func (p *Project) Touch(now time.Time)  { p.UpdatedAt = now }
func (r *Roadmap) Touch(now time.Time)  { r.UpdatedAt = now }
func (m *MetaChat) Touch(now time.Time) { m.UpdatedAt = now }
func (c *Chat) Touch(now time.Time)     { c.UpdatedAt = now }
func (t *Template) Touch(now time.Time) { t.UpdatedAt = now }
