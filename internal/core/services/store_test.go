package services

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bioindex/internal/chunker"
	"github.com/custodia-labs/bioindex/internal/core/domain"
	"github.com/custodia-labs/bioindex/internal/core/ports/driving"
)

func newTestIndexService(opLog *[]string) (*IndexService, *fakeCollection, *fakeCollection) {
	metadata := newFakeCollection("metadata", opLog)
	content := newFakeCollection("content", opLog)
	return NewIndexService(metadata, content, chunker.New()), metadata, content
}

func TestNewDocumentID(t *testing.T) {
	id := newDocumentID()
	require.GreaterOrEqual(t, len(id), 14)
	_, err := strconv.ParseUint(id, 10, 64)
	assert.NoError(t, err, "id must be numeric")

	other := newDocumentID()
	assert.NotEqual(t, id, other, "ids must differ across allocations")
}

func TestComposeSummaryText(t *testing.T) {
	t.Run("without disease tags", func(t *testing.T) {
		text := ComposeSummaryText("Study A", "Diabetes cohort", map[string]any{})
		assert.Equal(t, "Dataset Title: Study A\nDiabetes cohort", text)
	})

	t.Run("with disease tags", func(t *testing.T) {
		text := ComposeSummaryText("Study A", "Diabetes cohort", map[string]any{
			"disease_tags": "diabetes",
		})
		assert.Equal(t, "Dataset Title: Study A\nDiabetes cohort\nDisease Tags: diabetes", text)
	})

	t.Run("empty disease tags omitted", func(t *testing.T) {
		text := ComposeSummaryText("Study A", "Summary", map[string]any{"disease_tags": ""})
		assert.NotContains(t, text, "Disease Tags")
	})
}

func TestSplitSummaryText(t *testing.T) {
	composed := ComposeSummaryText("Study A", "Diabetes cohort", map[string]any{
		"disease_tags": "diabetes",
	})
	assert.Equal(t, "Diabetes cohort", SplitSummaryText(composed))

	plain := ComposeSummaryText("Study A", "Diabetes cohort", nil)
	assert.Equal(t, "Diabetes cohort", SplitSummaryText(plain))
}

func TestStore_RequiredFields(t *testing.T) {
	svc, _, _ := newTestIndexService(nil)

	tests := []struct {
		name string
		req  driving.StoreRequest
	}{
		{"missing summary", driving.StoreRequest{DatasetTitle: "t", CID: "c"}},
		{"missing title", driving.StoreRequest{Summary: "s", CID: "c"}},
		{"missing cid", driving.StoreRequest{Summary: "s", DatasetTitle: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Store(context.Background(), tt.req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestStore_MetadataRecord(t *testing.T) {
	svc, metadata, _ := newTestIndexService(nil)

	result, err := svc.Store(context.Background(), driving.StoreRequest{
		Summary:      "Diabetes cohort",
		DatasetTitle: "Study A",
		CID:          "cid-1",
		FileType:     "spreadsheet",
		OwnerAddress: "0xABC",
		Metadata:     map[string]any{"dataType": "Institution"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ChunkCount)

	rec, err := metadata.Get(context.Background(), result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Dataset Title: Study A\nDiabetes cohort", rec.Text)
	assert.Equal(t, "cid-1", rec.Metadata[domain.MetaCID])
	assert.Equal(t, "Study A", rec.Metadata[domain.MetaDatasetTitle])
	assert.Equal(t, "spreadsheet", rec.Metadata[domain.MetaFileType])
	assert.Equal(t, "0xABC", rec.Metadata[domain.MetaOwnerAddress])
	assert.Equal(t, "Institution", rec.Metadata["dataType"])
}

func TestStore_MetadataWrittenBeforeChunks(t *testing.T) {
	var opLog []string
	svc, _, _ := newTestIndexService(&opLog)

	_, err := svc.Store(context.Background(), driving.StoreRequest{
		Summary:          "s",
		DatasetTitle:     "t",
		CID:              "c",
		ExtractedContent: "Some extracted content.",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"metadata.add", "content.add"}, opLog)
}

func TestStore_ChunkRecords(t *testing.T) {
	svc, _, content := newTestIndexService(nil)
	svc.chunker = chunker.New(chunker.WithMaxLen(30))

	longText := "First sentence of content here. Second sentence of content here. Third sentence of content here."
	result, err := svc.Store(context.Background(), driving.StoreRequest{
		Summary:          "s",
		DatasetTitle:     "t",
		CID:              "c",
		ExtractedContent: longText,
	})
	require.NoError(t, err)
	require.Greater(t, result.ChunkCount, 1)

	for i := 0; i < result.ChunkCount; i++ {
		id := result.DocumentID + "_chunk_" + strconv.Itoa(i)
		rec, err := content.Get(context.Background(), id)
		require.NoError(t, err, "chunk %s must exist", id)
		assert.NotEmpty(t, rec.Text)
		assert.Equal(t, i, rec.Metadata[domain.MetaChunkIndex])
		assert.Equal(t, result.ChunkCount, rec.Metadata[domain.MetaTotalChunks])
		assert.Equal(t, result.DocumentID, rec.Metadata[domain.MetaParentDocID])
		assert.Equal(t, "c", rec.Metadata[domain.MetaCID], "chunk copies parent metadata")
	}
}

func TestStore_ShortContentSingleChunk(t *testing.T) {
	svc, _, _ := newTestIndexService(nil)

	result, err := svc.Store(context.Background(), driving.StoreRequest{
		Summary:          "Diabetes cohort",
		DatasetTitle:     "Study A",
		CID:              "cid-1",
		Metadata:         map[string]any{"disease_tags": "diabetes"},
		ExtractedContent: "Patient has type 2 diabetes. Follow-up in six months.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunkCount, "content under the chunk threshold is one chunk")
	assert.NotEmpty(t, result.DocumentID)
}

func TestStore_WhitespaceContentIgnored(t *testing.T) {
	svc, _, content := newTestIndexService(nil)

	result, err := svc.Store(context.Background(), driving.StoreRequest{
		Summary:          "s",
		DatasetTitle:     "t",
		CID:              "c",
		ExtractedContent: "   \n\t  ",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ChunkCount)
	assert.Empty(t, content.order)
}

func TestStore_MetadataWriteFailureAborts(t *testing.T) {
	svc, metadata, content := newTestIndexService(nil)
	metadata.addErr = assert.AnError

	_, err := svc.Store(context.Background(), driving.StoreRequest{
		Summary: "s", DatasetTitle: "t", CID: "c", ExtractedContent: "Content.",
	})
	require.Error(t, err)
	assert.Empty(t, content.order, "no chunk may be written after a metadata failure")
}

func TestStore_ChunkWriteFailureSurfaces(t *testing.T) {
	svc, _, content := newTestIndexService(nil)
	content.addErr = assert.AnError

	_, err := svc.Store(context.Background(), driving.StoreRequest{
		Summary: "s", DatasetTitle: "t", CID: "c", ExtractedContent: "Content.",
	})
	assert.Error(t, err, "partial write must surface as a storage error")
}

func TestGet(t *testing.T) {
	svc, _, _ := newTestIndexService(nil)

	result, err := svc.Store(context.Background(), driving.StoreRequest{
		Summary: "Diabetes cohort", DatasetTitle: "Study A", CID: "cid-1", OwnerAddress: "0xabc",
	})
	require.NoError(t, err)

	doc, err := svc.Get(context.Background(), result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, result.DocumentID, doc.ID)
	assert.Equal(t, "cid-1", doc.CID)
	assert.Equal(t, "Study A", doc.DatasetTitle)
	assert.Equal(t, "0xabc", doc.OwnerAddress)
	assert.True(t, strings.HasPrefix(doc.Summary, "Dataset Title: Study A"))

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
