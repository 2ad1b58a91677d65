package research

import (
	"time"

	"github.com/hazyhaar/carnet/extract"
)

// Analysis is one completed LLM analysis of an entry.
type Analysis struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Entry is a unit of captured knowledge built from a content snapshot.
// Analysis and saved-state are optional and independent; an entry is never
// removed except by Clear.
type Entry struct {
	ID            string                   `json:"id"`
	URL           string                   `json:"url"`
	Title         string                   `json:"title"`
	Timestamp     time.Time                `json:"timestamp"`
	Snapshot      *extract.ContentSnapshot `json:"snapshot"`
	Analysis      *Analysis                `json:"analysis,omitempty"`
	Error         string                   `json:"error,omitempty"`
	SavedToStore  bool                     `json:"saved_to_store"`
	SaveTimestamp time.Time                `json:"save_timestamp,omitzero"`
}

// clone returns a copy safe to hand out: scalar fields are copied and the
// pointers are to values the pipeline never mutates after creation.
func (e *Entry) clone() *Entry {
	c := *e
	if e.Analysis != nil {
		a := *e.Analysis
		c.Analysis = &a
	}
	return &c
}
