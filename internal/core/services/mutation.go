package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/bioindex/internal/core/domain"
	"github.com/custodia-labs/bioindex/internal/core/ports/driven"
	"github.com/custodia-labs/bioindex/internal/core/ports/driving"
	"github.com/custodia-labs/bioindex/internal/logger"
)

// Ensure MutationService implements the interface.
var _ driving.MutationService = (*MutationService)(nil)

// MutationService gates document update and delete behind ownership and
// authorization checks. Updates supersede: the merged document is written
// under a fresh identifier before the old record and its chunks are
// removed. Deletes cascade to content chunks.
type MutationService struct {
	metadata driven.Collection
	content  driven.Collection
	index    driving.IndexService
	verifier driven.SignatureVerifier
}

// NewMutationService creates a new mutation service.
func NewMutationService(
	metadata, content driven.Collection,
	index driving.IndexService,
	verifier driven.SignatureVerifier,
) *MutationService {
	return &MutationService{
		metadata: metadata,
		content:  content,
		index:    index,
		verifier: verifier,
	}
}

// authorize fetches the document and enforces the mutation checks:
// ownership (case-insensitive; an empty stored owner never matches) and
// presence of the authorization proof, then the pluggable verifier.
func (s *MutationService) authorize(
	ctx context.Context, id, ownerAddress, signature string,
) (*driven.Record, error) {
	rec, err := s.metadata.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	stored := domain.OwnerOf(rec.Metadata)
	if stored == "" || !strings.EqualFold(stored, ownerAddress) {
		return nil, fmt.Errorf("%w: caller does not own document %s", domain.ErrForbidden, id)
	}

	if strings.TrimSpace(signature) == "" {
		return nil, fmt.Errorf("%w: signature is required", domain.ErrUnauthenticated)
	}

	if s.verifier != nil {
		ok, err := s.verifier.Verify(ctx, ownerAddress, id, signature)
		if err != nil {
			return nil, fmt.Errorf("verifying signature: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: signature rejected", domain.ErrUnauthenticated)
		}
	}

	return rec, nil
}

// Update replaces a document. The caller's partial fields are merged over
// the stored record, the result is stored under a fresh identifier with a
// supersedes marker, and only then are the old record and its chunks
// removed. Both identifiers are returned.
func (s *MutationService) Update(
	ctx context.Context, id string, req driving.UpdateRequest,
) (*driving.UpdateResult, error) {
	if s.metadata == nil || s.content == nil {
		return nil, domain.ErrCollectionUnavailable
	}

	rec, err := s.authorize(ctx, id, req.OwnerAddress, req.Signature)
	if err != nil {
		return nil, err
	}

	title := req.DatasetTitle
	if title == "" {
		title, _ = rec.Metadata[domain.MetaDatasetTitle].(string)
	}
	summary := req.Summary
	if summary == "" {
		summary = SplitSummaryText(rec.Text)
	}

	merged := make(map[string]any, len(rec.Metadata)+len(req.Metadata)+1)
	for k, v := range rec.Metadata {
		merged[k] = v
	}
	for k, v := range req.Metadata {
		merged[k] = v
	}
	merged[domain.MetaSupersedes] = id

	// Carry the indexed content across: reassemble it from the old
	// chunks so the replacement document stays content-searchable.
	content, err := s.reassembleContent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading chunks of %s: %w", id, err)
	}

	store := driving.StoreRequest{
		Summary:          summary,
		DatasetTitle:     title,
		CID:              cidOf(rec.Metadata),
		FileType:         fileTypeOf(merged),
		OwnerAddress:     req.OwnerAddress,
		Metadata:         merged,
		ExtractedContent: content,
	}
	result, err := s.index.Store(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("storing replacement document: %w", err)
	}

	// The replacement is committed; now retire the superseded record.
	if err := s.removeDocument(ctx, id); err != nil {
		// Both versions remain queryable until reconciled.
		logger.Warn("superseded document %s not fully removed: %v", id, err)
		return nil, fmt.Errorf("removing superseded document %s: %w", id, err)
	}

	logger.Info("document %s superseded by %s", id, result.DocumentID)
	return &driving.UpdateResult{OldID: id, NewID: result.DocumentID}, nil
}

// Delete removes a document and cascades to its content chunks.
func (s *MutationService) Delete(ctx context.Context, id, ownerAddress, signature string) error {
	if s.metadata == nil || s.content == nil {
		return domain.ErrCollectionUnavailable
	}

	if _, err := s.authorize(ctx, id, ownerAddress, signature); err != nil {
		return err
	}

	if err := s.removeDocument(ctx, id); err != nil {
		return err
	}

	logger.Info("document %s deleted", id)
	return nil
}

// removeDocument deletes the metadata record and every chunk whose
// parent_doc_id references it.
func (s *MutationService) removeDocument(ctx context.Context, id string) error {
	if err := s.metadata.Delete(ctx, []string{id}); err != nil {
		return fmt.Errorf("deleting metadata record: %w", err)
	}

	chunks, err := s.content.Find(ctx, driven.Filter{domain.MetaParentDocID: id}, 0)
	if err != nil {
		return fmt.Errorf("finding chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	if err := s.content.Delete(ctx, ids); err != nil {
		return fmt.Errorf("deleting %d chunks: %w", len(ids), err)
	}
	logger.Debug("cascaded delete of %d chunks for %s", len(ids), id)
	return nil
}

// reassembleContent joins a document's chunks back into the original
// extracted content, in chunk order.
func (s *MutationService) reassembleContent(ctx context.Context, id string) (string, error) {
	chunks, err := s.content.Find(ctx, driven.Filter{domain.MetaParentDocID: id}, 0)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "", nil
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunkIndexOf(chunks[i].Metadata) < chunkIndexOf(chunks[j].Metadata)
	})

	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, " "), nil
}

func chunkIndexOf(metadata map[string]any) int {
	switch v := metadata[domain.MetaChunkIndex].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func fileTypeOf(metadata map[string]any) string {
	ft, _ := metadata[domain.MetaFileType].(string)
	return ft
}
