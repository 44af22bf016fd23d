package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pders01/vsearch/internal/api"
	"github.com/pders01/vsearch/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*storage.Store, *Index) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"), time.Second, 0)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ix, err := Open(store, "")
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return store, ix
}

func save(t *testing.T, store *storage.Store, ix *Index, products ...api.Product) {
	t.Helper()
	rec := &storage.SearchRecord{SourceKind: "url", SourceLabel: "x", Outcome: "success", Products: products}
	require.NoError(t, store.SaveSearch(rec))
	ix.OnSearchSaved(rec)
}

func TestIndex_SearchByNameAndCategory(t *testing.T) {
	store, ix := setup(t)
	save(t, store, ix,
		api.Product{ID: "1", Name: "Leather Handbag", Category: "Bags", ImagePath: "images/1.jpg", Similarity: 0.8},
		api.Product{ID: "2", Name: "Running Sneakers", Category: "Shoes", ImagePath: "images/2.jpg", Similarity: 0.7},
		api.Product{ID: "3", Name: "Silk Scarf", Category: "Accessories", ImagePath: "images/3.jpg", Similarity: 0.6},
	)

	res, err := ix.Search("sneak", 10)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, api.ProductID("2"), res[0].Product.ID)
	assert.Equal(t, "Running Sneakers", res[0].Product.Name)
	assert.Equal(t, "Shoes", res[0].Product.Category)

	res, err = ix.Search("accessories", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, api.ProductID("3"), res[0].Product.ID)
}

func TestIndex_ShortQueryReturnsNothing(t *testing.T) {
	store, ix := setup(t)
	save(t, store, ix, api.Product{ID: "1", Name: "Watch"})

	for _, q := range []string{"", " ", "w"} {
		res, err := ix.Search(q, 10)
		require.NoError(t, err)
		assert.Empty(t, res, q)
	}
}

func TestIndex_RepeatSightingsAccumulate(t *testing.T) {
	store, ix := setup(t)
	save(t, store, ix, api.Product{ID: "9", Name: "Steel Watch", Similarity: 0.5})
	save(t, store, ix, api.Product{ID: "9", Name: "Steel Watch", Similarity: 0.9})

	res, err := ix.Search("watch", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 2, res[0].SeenCount)
	assert.InDelta(t, 0.9, res[0].BestSimilarity, 1e-9)

	n, err := ix.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndex_ReindexFromStore(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"), time.Second, 0)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveSearch(&storage.SearchRecord{Products: []api.Product{
		{ID: "1", Name: "Canvas Tote"},
		{ID: "2", Name: "Wool Beanie"},
	}}))

	ix, err := Open(store, filepath.Join(t.TempDir(), "idx", "products.bleve"))
	require.NoError(t, err)
	defer ix.Close()

	n, err := ix.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := ix.Search("tote", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Canvas Tote", res[0].Product.Name)
}

func TestIndex_OnHistoryCleared(t *testing.T) {
	store, ix := setup(t)
	save(t, store, ix, api.Product{ID: "1", Name: "Boots"}, api.Product{ID: "2", Name: "Belt"})

	require.NoError(t, ix.OnHistoryCleared())
	n, err := ix.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"red", "leather", "bag"}, tokenize("Red leather-bag!"))
	assert.Equal(t, []string{"x2"}, tokenize("a x2 b"))
	assert.Empty(t, tokenize("a b c"))
}
