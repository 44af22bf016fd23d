package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ProductID is a catalog identifier. The collaborator emits either JSON
// numbers or strings; both decode to the same textual form.
type ProductID string

func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProductID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*id = ProductID(n.String())
	return nil
}

func (id ProductID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

func (id ProductID) String() string { return string(id) }

// Product is one catalog item matched by a similarity search.
type Product struct {
	ID         ProductID `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	ImagePath  string    `json:"image_path"`
	Similarity float64   `json:"similarity"`
}

// SearchResponse is the body returned by both search endpoints.
type SearchResponse struct {
	Success  bool      `json:"success"`
	Products []Product `json:"products"`
}

// Health is the collaborator's health document. Its shape is
// implementation-defined, so it is kept as a generic object.
type Health map[string]any

// Status returns the "status" field when present.
func (h Health) Status() string {
	if s, ok := h["status"].(string); ok {
		return s
	}
	return ""
}

// Stats is the collaborator's statistics document.
type Stats map[string]any

// Int returns a numeric stat by key.
func (s Stats) Int(key string) (int, bool) {
	switch v := s[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

type urlSearchRequest struct {
	URL       string  `json:"url"`
	K         int     `json:"k"`
	Threshold float64 `json:"threshold"`
}

type productEnvelope struct {
	Success *bool    `json:"success"`
	Product *Product `json:"product"`
}
