package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"plotline/internal/store"
)

// SafeHTML is a template function that marks a string as safe HTML
func SafeHTML(s interface{}) template.HTML {
	switch v := s.(type) {
	case string:
		return template.HTML(v)
	case template.HTML:
		return v
	default:
		return template.HTML("")
	}
}

var reportTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"firstLine": func(s string) string {
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				return s[:i]
			}
			return s
		},
		"percent": func(v float64) string {
			return fmt.Sprintf("%d%%", int(v*100+0.5))
		},
		"safeHTML": SafeHTML,
	}

	reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(reportHTML))
}

// TemplateData holds data for report rendering
type TemplateData struct {
	Project     store.Project
	Roadmaps    []RoadmapSection
	Snapshots   []store.SnapshotInfo
	Revisions   []RevisionSection
	GeneratedAt time.Time
}

// RoadmapSection holds one roadmap with its meta-chat rollup and chats
type RoadmapSection struct {
	store.Roadmap
	MetaSummary  string
	MetaProgress float64
	Chats        []ChatRow
}

// ChatRow holds one chat with its message count
type ChatRow struct {
	store.Chat
	MessageCount int
}

// RevisionSection holds one revision, optionally with a highlighted diff
type RevisionSection struct {
	store.RevisionInfo
	ShortID  string
	DiffHTML template.HTML
}

// RenderReportHTML renders the report template with provided data
func RenderReportHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Project.Name}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; max-width: 880px; margin: 2rem auto; color: #1f2328; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    h2 { margin-top: 2rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .badge { display: inline-block; background: #eef1f4; border-radius: 4px; padding: 0.1rem 0.5rem; font-size: 0.85em; margin-right: 0.3rem; }
    .rollup { background: #f5f5f5; padding: 1rem; margin: 0.75rem 0; border-left: 3px solid #333; }
    table { border-collapse: collapse; width: 100%; margin: 0.75rem 0; }
    th, td { border: 1px solid #d0d7de; padding: 0.4rem 0.6rem; text-align: left; font-size: 0.92em; }
    th { background: #f6f8fa; }
    .revision { margin: 1rem 0; padding-bottom: 0.75rem; border-bottom: 1px solid #d0d7de; }
    .revision .id { font-family: monospace; color: #57606a; }
    .diff pre { overflow-x: auto; padding: 0.6rem; font-size: 0.85em; }
  </style>
</head>
<body>
  <h1>{{.Project.Name}}</h1>
  <div class="meta">
    {{if .Project.Category}}<span class="badge">{{.Project.Category}}</span>{{end}}
    {{if .Project.Status}}<span class="badge">{{.Project.Status}}</span>{{end}}
    generated {{formatDate .GeneratedAt "Jan 2, 2006 15:04 MST"}}
  </div>
  {{if .Project.Description}}<p>{{.Project.Description}}</p>{{end}}
  {{if .Project.Repo}}<p class="meta">repository: {{.Project.Repo.URL}}{{if .Project.Repo.Branch}} ({{.Project.Repo.Branch}}){{end}}</p>{{end}}

  {{range .Roadmaps}}
  <h2>{{.Title}} <span class="badge">{{.Status | lower}}</span> <span class="badge">{{percent .Progress}}</span></h2>
  {{if .Tags}}<div class="meta">{{range .Tags}}<span class="badge">{{.}}</span>{{end}}</div>{{end}}
  {{if .MetaSummary}}
  <div class="rollup"><strong>Rollup ({{percent .MetaProgress}})</strong><br>{{.MetaSummary}}</div>
  {{end}}
  {{if .Chats}}
  <table>
    <tr><th>Chat</th><th>Goal</th><th>Status</th><th>Progress</th><th>Messages</th></tr>
    {{range .Chats}}
    <tr><td>{{.Title}}</td><td>{{.Goal}}</td><td>{{.Status | lower}}</td><td>{{percent .Progress}}</td><td>{{.MessageCount}}</td></tr>
    {{end}}
  </table>
  {{end}}
  {{end}}

  {{if .Snapshots}}
  <h2>Snapshots</h2>
  <table>
    <tr><th>Name</th><th>Revision</th><th>Message</th><th>Created</th></tr>
    {{range .Snapshots}}
    <tr><td>{{.Name}}</td><td class="id">{{.RevisionID}}</td><td>{{firstLine .Message}}</td><td>{{formatDate .CreatedAt "Jan 2, 2006"}}</td></tr>
    {{end}}
  </table>
  {{end}}

  {{if .Revisions}}
  <h2>History</h2>
  {{range .Revisions}}
  <div class="revision">
    <span class="id">{{.ShortID}}</span> {{firstLine .Message}}
    <div class="meta">{{.Author}} | {{formatDate .CreatedAt "Jan 2, 2006 15:04"}}</div>
    {{if .DiffHTML}}<div class="diff">{{.DiffHTML | safeHTML}}</div>{{end}}
  </div>
  {{end}}
  {{end}}
</body>
</html>`
