package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bioindex/internal/core/domain"
	"github.com/custodia-labs/bioindex/internal/core/ports/driven"
)

// stubEmbedder returns fixed vectors per text so distances are predictable.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := s.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int   { return 3 }
func (s *stubEmbedder) ModelName() string { return "stub" }
func (s *stubEmbedder) Close() error      { return nil }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store := newTestStore(t)
	assert.NotEmpty(t, store.Path())
}

func TestNewStore_Reopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	c := store.Collection("meta", &stubEmbedder{})
	require.NoError(t, c.Add(context.Background(), []driven.Record{
		{ID: "a", Text: "alpha", Metadata: map[string]any{"k": "v"}},
	}))
	require.NoError(t, store.Close())

	// Migrations are idempotent and data survives a reopen.
	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	rec, err := store.Collection("meta", &stubEmbedder{}).Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "alpha", rec.Text)
	assert.Equal(t, "v", rec.Metadata["k"])
}

func TestCollection_AddGetDelete(t *testing.T) {
	store := newTestStore(t)
	c := store.Collection("meta", &stubEmbedder{})
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, []driven.Record{
		{ID: "a", Text: "alpha", Metadata: map[string]any{"group": "x"}},
		{ID: "b", Text: "beta", Metadata: map[string]any{"group": "y"}},
	}))

	rec, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "alpha", rec.Text)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, c.Delete(ctx, []string{"a"}))
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCollection_Upsert(t *testing.T) {
	store := newTestStore(t)
	c := store.Collection("meta", &stubEmbedder{})
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, []driven.Record{{ID: "a", Text: "one"}}))
	require.NoError(t, c.Add(ctx, []driven.Record{{ID: "a", Text: "two"}}))

	rec, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "two", rec.Text)

	records, err := c.Find(ctx, nil, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCollection_Find(t *testing.T) {
	store := newTestStore(t)
	c := store.Collection("content", &stubEmbedder{})
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, []driven.Record{
		{ID: "c1", Text: "t", Metadata: map[string]any{"parent_doc_id": "d1", "chunk_index": 0}},
		{ID: "c2", Text: "t", Metadata: map[string]any{"parent_doc_id": "d2", "chunk_index": 0}},
		{ID: "c3", Text: "t", Metadata: map[string]any{"parent_doc_id": "d1", "chunk_index": 1}},
	}))

	records, err := c.Find(ctx, driven.Filter{"parent_doc_id": "d1"}, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c1", records[0].ID, "insertion order preserved")

	// JSON round-trips numbers as float64; equality must still hold.
	records, err = c.Find(ctx, driven.Filter{"parent_doc_id": "d1", "chunk_index": 1}, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "c3", records[0].ID)
}

func TestCollection_QueryRanksAndFilters(t *testing.T) {
	store := newTestStore(t)
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"query": {1, 0, 0},
		"near":  {1, 0.2, 0},
		"far":   {0, 1, 0},
	}}
	c := store.Collection("meta", embedder)
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, []driven.Record{
		{ID: "far", Text: "far", Metadata: map[string]any{"g": "x"}},
		{ID: "near", Text: "near", Metadata: map[string]any{"g": "x"}},
	}))

	hits, err := c.Query(ctx, "query", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].ID)
	assert.Less(t, hits[0].Distance, hits[1].Distance)

	hits, err = c.Query(ctx, "query", driven.Filter{"g": "missing"}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = c.Query(ctx, "query", nil, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestCollection_Isolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	meta := store.Collection("meta", &stubEmbedder{})
	content := store.Collection("content", &stubEmbedder{})

	require.NoError(t, meta.Add(ctx, []driven.Record{{ID: "a", Text: "doc"}}))
	require.NoError(t, content.Add(ctx, []driven.Record{{ID: "a_chunk_0", Text: "chunk"}}))

	_, err := meta.Get(ctx, "a_chunk_0")
	assert.ErrorIs(t, err, domain.ErrNotFound, "collections must not leak into each other")

	records, err := content.Find(ctx, nil, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFloat32RoundTrip(t *testing.T) {
	in := []float32{0, 1, -1, 3.14, -2.5e-3}
	out := bytesToFloat32Slice(float32SliceToBytes(in))
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i], out[i])
	}

	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
