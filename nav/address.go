package nav

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultSearchURL is where dot-free or space-containing input is sent.
const DefaultSearchURL = "https://duckduckgo.com/?q=%s"

// FormatAddress turns raw address-bar input into a navigable URL.
//
// Rules: input already carrying an http(s) scheme passes through; input with
// spaces or without any dot is treated as a search query; localhost and
// loopback addresses get http; everything else gets https.
func FormatAddress(raw, searchURL string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}

	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "localhost") || strings.HasPrefix(lower, "127.") {
		return "http://" + raw
	}

	if strings.Contains(raw, " ") || !strings.Contains(raw, ".") {
		return fmt.Sprintf(searchURL, url.QueryEscape(raw))
	}

	return "https://" + raw
}
