package storage

import (
	"testing"
	"time"

	"github.com/pders01/vsearch/internal/api"
	"github.com/pders01/vsearch/internal/orchestrator"
	"github.com/pders01/vsearch/internal/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	p := params.SearchParameters{
		Source:      params.DemoSource{ImageID: "demo/watch.jpg"},
		Threshold:   0.3,
		ResultCount: 20,
	}
	out := orchestrator.Success([]api.Product{{ID: "7", Name: "Watch"}})

	rec := NewRecord(p, out, 1500*time.Millisecond)

	assert.Equal(t, "demo", rec.SourceKind)
	assert.Equal(t, "demo/watch.jpg", rec.SourceLabel)
	assert.Equal(t, 0.3, rec.Threshold)
	assert.Equal(t, 20, rec.ResultCount)
	assert.Equal(t, "success", rec.Outcome)
	assert.Equal(t, int64(1500), rec.ElapsedMS)
	assert.Len(t, rec.Products, 1)
}

func TestStore_RecorderPersistsAndNotifies(t *testing.T) {
	store := setupTestStore(t, 0)

	var saved []*SearchRecord
	rec := store.Recorder(func(r *SearchRecord) { saved = append(saved, r) })

	p := params.SearchParameters{Source: params.URLSource{URL: "https://img.example/a.jpg"}, Threshold: 0.5, ResultCount: 10}
	rec(p, orchestrator.Failure(orchestrator.MsgNoResults, orchestrator.ReasonNoResults), time.Second)

	require.Len(t, saved, 1)
	got, err := store.GetSearch(saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "failure", got.Outcome)
	assert.Equal(t, orchestrator.MsgNoResults, got.Message)
	assert.Equal(t, "https://img.example/a.jpg", got.SourceLabel)
}
