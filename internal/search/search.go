package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultProject  ResultType = "project"
	ResultChat     ResultType = "chat"
	ResultTemplate ResultType = "template"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	ProjectID string     `json:"projectId"`
	RoadmapID string     `json:"roadmapId,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text            string
	FilterType      ResultType // empty = all types
	FilterProjectID string
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexProject(p ProjectRecord) error
	IndexChat(c ChatRecord) error
	IndexTemplate(t TemplateRecord) error
	DeleteProject(id string) error
	DeleteChat(id string) error
	DeleteTemplate(id string) error
}

// ProjectRecord is the data we index for a project.
type ProjectRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// ChatRecord is the data we index for a chat.
type ChatRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Goal      string `json:"goal"`
	ProjectID string `json:"projectId"`
	RoadmapID string `json:"roadmapId"`
	Status    string `json:"status"`
}

// TemplateRecord is the data we index for a chat template.
type TemplateRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Goal      string `json:"goal"`
	ProjectID string `json:"projectId"`
}
