package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/bioindex/internal/chunker"
	"github.com/custodia-labs/bioindex/internal/core/domain"
	"github.com/custodia-labs/bioindex/internal/core/ports/driven"
	"github.com/custodia-labs/bioindex/internal/core/ports/driving"
	"github.com/custodia-labs/bioindex/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService orchestrates document writes across the two indexes:
// one metadata record per document, one content record per chunk.
type IndexService struct {
	metadata driven.Collection
	content  driven.Collection
	chunker  *chunker.Chunker
}

// NewIndexService creates a new index service. The chunker may be nil,
// in which case a default-configured one is used.
func NewIndexService(metadata, content driven.Collection, c *chunker.Chunker) *IndexService {
	if c == nil {
		c = chunker.New()
	}
	return &IndexService{
		metadata: metadata,
		content:  content,
		chunker:  c,
	}
}

// newDocumentID allocates a document identifier embedding the creation
// time in epoch milliseconds, followed by a random four-digit suffix.
// Monotonically informative, not strictly ordered.
func newDocumentID() string {
	u := uuid.New()
	suffix := binary.BigEndian.Uint32(u[0:4]) % 10000
	return fmt.Sprintf("%d%04d", time.Now().UnixMilli(), suffix)
}

// ComposeSummaryText builds the text indexed in the metadata index from
// the dataset title, the summary and optional disease tags.
func ComposeSummaryText(title, summary string, metadata map[string]any) string {
	text := fmt.Sprintf("Dataset Title: %s\n%s", title, summary)
	if tags, ok := metadata[domain.MetaDiseaseTags].(string); ok && tags != "" {
		text += fmt.Sprintf("\nDisease Tags: %s", tags)
	}
	return text
}

// SplitSummaryText is the inverse of ComposeSummaryText: it strips the
// title line and the disease tags suffix, returning the raw summary.
func SplitSummaryText(text string) string {
	if strings.HasPrefix(text, "Dataset Title: ") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		} else {
			text = ""
		}
	}
	if i := strings.Index(text, "\nDisease Tags: "); i >= 0 {
		text = text[:i]
	}
	return text
}

// Store writes a new document. The metadata record is written before any
// chunk so a chunk's parent_doc_id never dangles for readers that observe
// the content index after the metadata index.
func (s *IndexService) Store(ctx context.Context, req driving.StoreRequest) (*driving.StoreResult, error) {
	if s.metadata == nil || s.content == nil {
		return nil, domain.ErrCollectionUnavailable
	}
	if strings.TrimSpace(req.Summary) == "" {
		return nil, fmt.Errorf("%w: summary is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.DatasetTitle) == "" {
		return nil, fmt.Errorf("%w: dataset_title is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.CID) == "" {
		return nil, fmt.Errorf("%w: cid is required", domain.ErrInvalidInput)
	}

	id := newDocumentID()

	metadata := make(map[string]any, len(req.Metadata)+4)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata[domain.MetaCID] = req.CID
	metadata[domain.MetaDatasetTitle] = req.DatasetTitle
	if req.FileType != "" {
		metadata[domain.MetaFileType] = req.FileType
	}
	if req.OwnerAddress != "" {
		metadata[domain.MetaOwnerAddress] = req.OwnerAddress
	}

	summaryText := ComposeSummaryText(req.DatasetTitle, req.Summary, metadata)

	record := driven.Record{ID: id, Text: summaryText, Metadata: metadata}
	if err := s.metadata.Add(ctx, []driven.Record{record}); err != nil {
		return nil, fmt.Errorf("writing metadata record: %w", err)
	}
	logger.Debug("stored metadata record %s (cid=%s)", id, req.CID)

	chunkCount := 0
	if content := strings.TrimSpace(req.ExtractedContent); content != "" {
		parts := s.chunker.Split(content)
		records := make([]driven.Record, len(parts))
		for i, part := range parts {
			chunkMeta := make(map[string]any, len(metadata)+3)
			for k, v := range metadata {
				chunkMeta[k] = v
			}
			chunkMeta[domain.MetaChunkIndex] = i
			chunkMeta[domain.MetaTotalChunks] = len(parts)
			chunkMeta[domain.MetaParentDocID] = id

			records[i] = driven.Record{
				ID:       fmt.Sprintf("%s_chunk_%d", id, i),
				Text:     part,
				Metadata: chunkMeta,
			}
		}
		if err := s.content.Add(ctx, records); err != nil {
			// The metadata record is already committed; the caller must
			// treat this as unknown state and may re-store under a fresh id.
			return nil, fmt.Errorf("writing content chunks: %w", err)
		}
		chunkCount = len(records)
		logger.Debug("stored %d content chunks for %s", chunkCount, id)
	}

	logger.Info("stored document %s (%d chunks)", id, chunkCount)
	return &driving.StoreResult{DocumentID: id, ChunkCount: chunkCount}, nil
}

// Get retrieves a stored document by identifier.
func (s *IndexService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if s.metadata == nil {
		return nil, domain.ErrCollectionUnavailable
	}
	rec, err := s.metadata.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return recordToDocument(rec), nil
}

// recordToDocument lifts a raw metadata index record into the domain type.
func recordToDocument(rec *driven.Record) *domain.Document {
	doc := &domain.Document{
		ID:       rec.ID,
		Summary:  rec.Text,
		Metadata: rec.Metadata,
	}
	if v, ok := rec.Metadata[domain.MetaCID].(string); ok {
		doc.CID = v
	}
	if v, ok := rec.Metadata[domain.MetaDatasetTitle].(string); ok {
		doc.DatasetTitle = v
	}
	if v, ok := rec.Metadata[domain.MetaFileType].(string); ok {
		doc.FileType = v
	}
	doc.OwnerAddress = domain.OwnerOf(rec.Metadata)
	return doc
}
