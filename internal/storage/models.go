package storage

import (
	"time"

	"github.com/pders01/vsearch/internal/api"
)

// SearchRecord is one published search outcome kept in history.
type SearchRecord struct {
	ID          string        `json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	SourceKind  string        `json:"source_kind"`
	SourceLabel string        `json:"source_label"`
	Threshold   float64       `json:"threshold"`
	ResultCount int           `json:"result_count"`
	Outcome     string        `json:"outcome"`
	Message     string        `json:"message,omitempty"`
	Products    []api.Product `json:"products,omitempty"`
	ElapsedMS   int64         `json:"elapsed_ms"`
}

// SeenProduct is a catalog item that appeared in at least one result set.
type SeenProduct struct {
	api.Product
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	SeenCount int       `json:"seen_count"`
	// BestSimilarity is the highest similarity the product scored.
	BestSimilarity float64 `json:"best_similarity"`
}

// Preferences are the search form settings restored on the next start.
type Preferences struct {
	Method           string `json:"method"`
	ThresholdPercent int    `json:"threshold_percent"`
	ResultCount      int    `json:"result_count"`
	LastURL          string `json:"last_url,omitempty"`
	LastDemoID       string `json:"last_demo_id,omitempty"`
}
