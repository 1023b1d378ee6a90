package domain

import (
	"encoding/json"
	"time"
)

// ToolKind identifies which external tool produced a history record.
type ToolKind string

const (
	ToolSearch ToolKind = "search"
	ToolImage  ToolKind = "image"
)

// Valid reports whether the kind is one of the known tool kinds.
func (k ToolKind) Valid() bool {
	return k == ToolSearch || k == ToolImage
}

// SearchRecord is one persisted web search invocation.
type SearchRecord struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Query     string          `json:"query"`
	Response  json.RawMessage `json:"response"`
	Endpoint  string          `json:"endpoint"`
	CreatedAt time.Time       `json:"created_at"`
}

// ImageRecord is one persisted image generation invocation.
type ImageRecord struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Prompt    string          `json:"prompt"`
	ImageURL  string          `json:"image_url"`
	Response  json.RawMessage `json:"response"`
	Endpoint  string          `json:"endpoint"`
	CreatedAt time.Time       `json:"created_at"`
}

// HistoryItem is a single dashboard entry, normalized across record kinds.
type HistoryItem struct {
	ID        string          `json:"id"`
	Kind      ToolKind        `json:"type"`
	Input     string          `json:"input"`
	ImageURL  string          `json:"image_url,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// HistoryFilter narrows a dashboard listing. Zero values mean "no constraint".
type HistoryFilter struct {
	Kind    ToolKind
	Keyword string
	From    *time.Time
	To      *time.Time
	Limit   int
}

// DefaultHistoryLimit caps dashboard listings when no limit is given.
const DefaultHistoryLimit = 50

// Normalize applies the default and maximum listing limit.
func (f *HistoryFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > DefaultHistoryLimit {
		f.Limit = DefaultHistoryLimit
	}
}
