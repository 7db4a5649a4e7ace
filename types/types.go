package types

import (
	"github.com/google/uuid"
)

type ElementKind string

const (
	KindText  ElementKind = "text"
	KindTable ElementKind = "table"
	KindImage ElementKind = "image"
)

// Element is one typed unit extracted from a source document. For text
// elements Content holds prose, for tables the HTML rendering, for images
// the base64 payload.
type Element struct {
	Kind    ElementKind
	Content string
	Source  string // originating file
	Page    int    // page number, 0 when unknown
}

// Summarized pairs an element with its LLM summary, 1:1.
type Summarized struct {
	Element Element
	Summary string
}

// IndexedRecord is the unit written to the dual store: the summary embedding
// goes to the vector side, the original content to the content side, linked
// by DocID.
type IndexedRecord struct {
	DocID     uuid.UUID
	Summary   string
	Embedding []float32
	Kind      ElementKind
	Content   string
	Source    string
	Page      int
}

// Hit is a vector-search match. It carries the summary, never raw content.
type Hit struct {
	DocID   uuid.UUID
	Summary string
	Score   float64
}

// ResolvedContent is raw content fetched from the content store for a hit.
type ResolvedContent struct {
	DocID   uuid.UUID
	Kind    ElementKind
	Content string
	Source  string
	Page    int
}

// Segment is one typed block returned by the external partition service.
type Segment struct {
	Type string `json:"type"`
	Text string `json:"text"`
	HTML string `json:"text_as_html,omitempty"`
	Page int    `json:"page_number,omitempty"`
}
