package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"text/template"
	"time"
)

// Instagram engagement peaks used for advisory scheduling.
var optimalHours = []int{11, 14, 17}

const maxPostsPerDay = 3

// ScheduledPost is a post with advisory calendar placement attached. The
// schedule is metadata for external tools; no poster enforces it.
type ScheduledPost struct {
	Post
	ScheduledDate string `json:"scheduledDate"`
	ScheduledTime string `json:"scheduledTime"`
}

const htmlExportTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>Instagram Posts Export</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
        .post { border: 1px solid #ddd; padding: 20px; margin-bottom: 20px; border-radius: 8px; }
        .post img { max-width: 100%; height: auto; }
        .caption { margin: 15px 0; line-height: 1.6; }
        .hashtags { color: #1e88e5; }
        .meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <h1>Instagram Posts - {{.Date}}</h1>
{{- range $i, $p := .Posts}}
    <div class="post">
        <h2>Post {{$p.SequenceID}}</h2>
        <img src="{{$p.ImageURL}}" alt="Post {{$p.SequenceID}}">
        <div class="caption">{{$p.Caption}}</div>
        <div class="hashtags">{{$p.Hashtags}}</div>
        <div class="meta">Source: {{$p.SourceURL}}</div>
    </div>
{{- end}}
</body>
</html>
`

const markdownExportTemplate = `# Instagram Posts Export

Generated: {{.Date}}
{{range .Posts}}
## Post {{.SequenceID}}

**Caption:**
{{.Caption}}

**Hashtags:**
{{.Hashtags}}

**Image:** [View Image]({{.ImageURL}})

**Source:** {{.SourceURL}}

---
{{end}}`

// Exporter serializes finished post lists for external scheduling tools.
// Output is a pure function of its input apart from embedded timestamps.
type Exporter struct {
	now  func() time.Time
	pick func(n int) int

	htmlTmpl     *template.Template
	markdownTmpl *template.Template
}

func NewExporter() *Exporter {
	return &Exporter{
		now:          time.Now,
		pick:         rand.Intn,
		htmlTmpl:     template.Must(template.New("html").Parse(htmlExportTemplate)),
		markdownTmpl: template.Must(template.New("markdown").Parse(markdownExportTemplate)),
	}
}

// Export serializes posts as csv, json, html, or markdown.
func (e *Exporter) Export(posts []Post, format string) (string, error) {
	switch format {
	case "csv":
		return e.generateCSV(posts), nil
	case "json":
		data, err := json.MarshalIndent(posts, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling posts: %w", err)
		}
		return string(data), nil
	case "html":
		return e.renderTemplate(e.htmlTmpl, posts)
	case "markdown":
		return e.renderTemplate(e.markdownTmpl, posts)
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
}

// Filename returns the suggested download name for an export.
func (e *Exporter) Filename(format string) string {
	ext := format
	if format == "markdown" {
		ext = "md"
	}
	return fmt.Sprintf("instagram_posts_%d.%s", e.now().UnixMilli(), ext)
}

// generateCSV writes the bulk-scheduler import format. Captions are
// quote-wrapped with internal quotes doubled; no other escaping is
// performed.
func (e *Exporter) generateCSV(posts []Post) string {
	lines := make([]string, 0, len(posts)+1)
	lines = append(lines, "URL,Caption,Hashtags")
	for _, p := range posts {
		caption := `"` + strings.ReplaceAll(p.Caption, `"`, `""`) + `"`
		lines = append(lines, p.SourceURL+","+caption+","+p.Hashtags)
	}
	return strings.Join(lines, "\n")
}

func (e *Exporter) renderTemplate(tmpl *template.Template, posts []Post) (string, error) {
	var b strings.Builder
	err := tmpl.Execute(&b, struct {
		Date  string
		Posts []Post
	}{
		Date:  e.now().Format("2006-01-02"),
		Posts: posts,
	})
	if err != nil {
		return "", fmt.Errorf("rendering export: %w", err)
	}
	return b.String(), nil
}

// GenerateSchedule assigns each post a calendar date and one of the
// optimal posting hours, capping at three posts per day before advancing.
// Hour choice is pseudo-random and carries no determinism guarantee.
func (e *Exporter) GenerateSchedule(posts []Post) []ScheduledPost {
	schedule := make([]ScheduledPost, 0, len(posts))

	dayOffset := 0
	postsToday := 0
	for _, p := range posts {
		if postsToday >= maxPostsPerDay {
			dayOffset++
			postsToday = 0
		}

		date := e.now().AddDate(0, 0, dayOffset)
		hour := optimalHours[e.pick(len(optimalHours))]
		schedule = append(schedule, ScheduledPost{
			Post:          p,
			ScheduledDate: date.Format("2006-01-02"),
			ScheduledTime: fmt.Sprintf("%d:00", hour),
		})
		postsToday++
	}

	return schedule
}
