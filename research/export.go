package research

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Export formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatHTML     = "html"
)

// ExportMeta is the metadata header on JSON exports.
type ExportMeta struct {
	ExportedAt time.Time `json:"exported_at"`
	EntryCount int       `json:"entry_count"`
	Generator  string    `json:"generator"`
}

type jsonExport struct {
	Meta    ExportMeta `json:"meta"`
	Entries []*Entry   `json:"entries"`
}

// Export serializes the whole collection. Formats: markdown, json, html.
func (p *Pipeline) Export(format string) ([]byte, error) {
	entries := p.Entries()
	switch format {
	case FormatJSON:
		return json.MarshalIndent(jsonExport{
			Meta: ExportMeta{
				ExportedAt: time.Now(),
				EntryCount: len(entries),
				Generator:  "carnet",
			},
			Entries: entries,
		}, "", "  ")
	case FormatMarkdown:
		return p.exportMarkdown(entries), nil
	case FormatHTML:
		return exportHTML(entries), nil
	}
	return nil, fmt.Errorf("research: unknown export format %q", format)
}

func (p *Pipeline) exportMarkdown(entries []*Entry) []byte {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Research Export\n\nExported %s, %d entries.\n",
		time.Now().Format(time.RFC3339), len(entries))
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n## %s\n\n- URL: %s\n- Captured: %s\n",
			e.Title, e.URL, e.Timestamp.Format(time.RFC3339))
		if e.Analysis != nil {
			fmt.Fprintf(&sb, "\n### Analysis\n\n%s\n", e.Analysis.Text)
		}
		sb.WriteString("\n### Content\n\n")
		sb.WriteString(contentMarkdown(conv, e))
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// contentMarkdown converts captured HTML to markdown, falling back to the
// plain extracted text when conversion fails or is empty.
func contentMarkdown(conv *converter.Converter, e *Entry) string {
	if e.Snapshot.ContentHTML != "" {
		md, err := conv.ConvertString(e.Snapshot.ContentHTML, converter.WithDomain(e.URL))
		if err == nil && strings.TrimSpace(md) != "" {
			return strings.TrimSpace(md)
		}
	}
	return e.Snapshot.MainText
}

func exportHTML(entries []*Entry) []byte {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Research Export</title></head><body>\n")
	fmt.Fprintf(&sb, "<h1>Research Export</h1>\n<p>Exported %s, %d entries.</p>\n",
		time.Now().Format(time.RFC3339), len(entries))
	for _, e := range entries {
		fmt.Fprintf(&sb, "<article>\n<h2>%s</h2>\n<p><a href=\"%s\">%s</a></p>\n",
			html.EscapeString(e.Title), html.EscapeString(e.URL), html.EscapeString(e.URL))
		if e.Analysis != nil {
			fmt.Fprintf(&sb, "<h3>Analysis</h3>\n<p>%s</p>\n", html.EscapeString(e.Analysis.Text))
		}
		if e.Snapshot.ContentHTML != "" {
			// Already sanitized at capture time.
			fmt.Fprintf(&sb, "<h3>Content</h3>\n%s\n", e.Snapshot.ContentHTML)
		} else {
			fmt.Fprintf(&sb, "<h3>Content</h3>\n<p>%s</p>\n", html.EscapeString(e.Snapshot.MainText))
		}
		sb.WriteString("</article>\n")
	}
	sb.WriteString("</body></html>\n")
	return []byte(sb.String())
}
