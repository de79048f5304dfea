package domain

import "fmt"

// Page is one page of extracted document text, as returned by the
// extraction collaborator. Numbering is 1-based.
type Page struct {
	Number int
	Text   string
}

// Chunk is the atomic retrievable unit of a document. Its ID is
// deterministic ("<document>:<page>:<seq>") so that re-ingesting identical
// content recomputes the same identity and the vector upsert becomes a no-op.
type Chunk struct {
	ID       string
	Document string
	Page     int
	Seq      int
	Text     string
}

// PageID returns the "<document>:<page>" prefix shared by all chunks of a page.
func (c Chunk) PageID() string {
	return fmt.Sprintf("%s:%d", c.Document, c.Page)
}

// SearchResult is one lexical search hit surfaced to users. Score is
// normalized to [0,1] relative to the best hit of the same result set,
// rounded to two decimals.
type SearchResult struct {
	Filename string
	Page     int
	Snippet  string
	Score    float64
	URL      string
}

// Hit is one vector similarity candidate. Distance is the store's native
// metric: smaller means more similar. It is not comparable to cross-encoder
// relevance scores, where larger means more relevant.
type Hit struct {
	Chunk    Chunk
	Distance float64
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn of conversation history.
type Message struct {
	Role    Role
	Content string
}

// Answer is the query orchestrator's response: the model's raw text plus the
// chunk IDs that made up the context, in context order.
type Answer struct {
	Text    string
	Sources []string
}
