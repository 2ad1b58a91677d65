package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoEntries is returned when a summary is requested of an empty collection.
var ErrNoEntries = errors.New("research: no entries to summarize")

// perEntrySummaryChars caps the text each entry contributes to the summary
// prompt so large collections still fit a single request.
const perEntrySummaryChars = 1500

// Summary asks the analysis client for a cross-entry synthesis of the whole
// collection.
func (p *Pipeline) Summary(ctx context.Context) (string, error) {
	entries := p.Entries()
	if len(entries) == 0 {
		return "", ErrNoEntries
	}

	var sb strings.Builder
	sb.WriteString("Synthesize the research captured below into a concise summary: shared themes, key findings per source, and open questions.\n")
	for i, e := range entries {
		text := truncate(e.Snapshot.MainText, perEntrySummaryChars)
		fmt.Fprintf(&sb, "\n--- Source %d: %s (%s) ---\n%s\n", i+1, e.Title, e.URL, text)
		if e.Analysis != nil {
			fmt.Fprintf(&sb, "Prior analysis: %s\n", e.Analysis.Text)
		}
	}

	text, err := p.llm.SendMessage(ctx, sb.String(), nil)
	if err != nil {
		return "", fmt.Errorf("research: summary: %w", err)
	}
	return text, nil
}
