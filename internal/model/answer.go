package model

// DocumentChunk is the unit of retrieval: a bounded span of manual text with
// its embedding and source metadata. Created once at index-build time and
// immutable thereafter.
type DocumentChunk struct {
	Seq          int       `json:"seq"`
	Text         string    `json:"text"`
	Embedding    []float32 `json:"-"`
	PageLabel    string    `json:"page_label"`
	SourceManual string    `json:"source_manual"`
}

// RetrievedChunk pairs a chunk with its relevance to one question.
// Ephemeral; produced per query.
type RetrievedChunk struct {
	Chunk DocumentChunk `json:"chunk"`
	Score float64       `json:"score"`
}

// ConversationTurn is one message in a session-scoped chat history. History
// is caller-owned and transmitted with every request; the server never
// stores it.
type ConversationTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Source is the caller-facing summary of one retrieved chunk backing an
// answer. Text is truncated for display.
type Source struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Page  string  `json:"page,omitempty"`
}

// PageImage references an extracted manual page image by URL.
type PageImage struct {
	URL    string `json:"url"`
	Page   string `json:"page"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Answer is the terminal output of the answering pipeline. Confidence is the
// arithmetic mean of source scores, zero when no sources. IsFallback marks
// answers generated without manual grounding.
type Answer struct {
	Text       string      `json:"answer"`
	Sources    []Source    `json:"sources"`
	Confidence float64     `json:"confidence"`
	Images     []PageImage `json:"images"`
	IsFallback bool        `json:"is_fallback"`
}
