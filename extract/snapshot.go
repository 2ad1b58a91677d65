package extract

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Heading is one document heading with its level (1..6).
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is one outbound link with non-empty anchor text.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// ContentSnapshot is an immutable record of a page's extracted content at one
// point in time. Callers receive a fresh value per extraction and must not
// share mutable references into it.
type ContentSnapshot struct {
	URL          string            `json:"url"`
	Title        string            `json:"title"`
	MainText     string            `json:"main_text"`
	ContentHTML  string            `json:"content_html,omitempty"`
	Headings     []Heading         `json:"headings,omitempty"`
	Links        []Link            `json:"links,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CapturedAt   time.Time         `json:"captured_at"`
	StrategyUsed string            `json:"strategy_used"`
}

// collectHeadings walks the document and returns h1..h6 text in order.
func collectHeadings(root *html.Node) []Heading {
	var out []Heading
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			var level int
			switch n.DataAtom {
			case atom.H1:
				level = 1
			case atom.H2:
				level = 2
			case atom.H3:
				level = 3
			case atom.H4:
				level = 4
			case atom.H5:
				level = 5
			case atom.H6:
				level = 6
			}
			if level > 0 {
				text := collectText(n)
				if text != "" {
					out = append(out, Heading{Level: level, Text: text})
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// collectLinks gathers outbound links with non-empty anchor text, resolves
// them against base, drops fragments and non-http schemes, de-duplicates by
// resolved URL, and caps the result at max.
func collectLinks(root *html.Node, base *url.URL, max int) []Link {
	seen := make(map[string]bool)
	var out []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			href := getAttr(n, "href")
			text := collectText(n)
			if href != "" && text != "" && !strings.HasPrefix(href, "#") {
				if u, err := url.Parse(href); err == nil {
					if base != nil {
						u = base.ResolveReference(u)
					}
					if u.Scheme == "http" || u.Scheme == "https" {
						u.Fragment = ""
						abs := u.String()
						if !seen[abs] && len(out) < max {
							seen[abs] = true
							out = append(out, Link{URL: abs, Text: text})
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// metaNames are the <meta> fields carried into snapshot metadata. Open Graph
// values fill the plain key when the plain meta tag is absent.
var metaNames = map[string]string{
	"description":    "description",
	"keywords":       "keywords",
	"author":         "author",
	"og:description": "description",
	"og:title":       "og:title",
	"og:site_name":   "site_name",
	"og:type":        "og:type",
	"article:author": "author",
}

// collectMetadata reads description/keywords/author and their Open Graph
// equivalents from the document head.
func collectMetadata(root *html.Node) map[string]string {
	out := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
			key := getAttr(n, "name")
			if key == "" {
				key = getAttr(n, "property")
			}
			content := getAttr(n, "content")
			if mapped, ok := metaNames[strings.ToLower(key)]; ok && content != "" {
				if _, exists := out[mapped]; !exists {
					out[mapped] = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	if len(out) == 0 {
		return nil
	}
	return out
}

// documentTitle returns the <title> text, or the first h1 when absent.
func documentTitle(root *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			title = collectText(n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	if title == "" {
		for _, h := range collectHeadings(root) {
			if h.Level == 1 {
				return h.Text
			}
		}
	}
	return title
}
