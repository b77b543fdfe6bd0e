// Package qdrant provides a driven.Collection backed by a remote Qdrant
// instance over its REST API.
//
// Qdrant point identifiers must be UUIDs or integers, so record
// identifiers are mapped to deterministic SHA1 UUIDs and the original
// identifier travels in the payload.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/bioindex/internal/core/domain"
	"github.com/custodia-labs/bioindex/internal/core/ports/driven"
)

// Ensure Collection implements the interface.
var _ driven.Collection = (*Collection)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:6333"
	DefaultTimeout = 15 * time.Second
)

// Config holds configuration for the Qdrant collection.
type Config struct {
	// BaseURL is the Qdrant API base URL (default: http://localhost:6333).
	BaseURL string

	// APIKey authenticates requests (optional).
	APIKey string

	// Name is the Qdrant collection name (required).
	Name string

	// Timeout is the request timeout (default: 15s).
	Timeout time.Duration
}

// Collection is a minimal REST client to one Qdrant collection.
// It assumes cosine distance and creates the collection on first write.
type Collection struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	name     string
	embedder driven.EmbeddingService

	ensureOnce sync.Once
	ensureErr  error
}

// New creates a Qdrant-backed collection. The embedder produces vectors
// client-side; its dimension sizes the remote collection.
func New(cfg Config, embedder driven.EmbeddingService) *Collection {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Collection{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		name:     cfg.Name,
		embedder: embedder,
	}
}

// pointID maps a record identifier to a deterministic UUID.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

// ensureCollection creates the remote collection if missing.
func (c *Collection) ensureCollection(ctx context.Context) error {
	c.ensureOnce.Do(func() {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     c.embedder.Dimensions(),
				"distance": "Cosine",
			},
		}
		// Qdrant answers 200 when the collection already exists with the
		// same schema; a conflict status is tolerated too.
		err := c.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", c.name), body, nil)
		if err != nil && !isConflict(err) {
			c.ensureErr = err
		}
	})
	return c.ensureErr
}

// Add embeds and upserts the given records as one batch.
func (c *Collection) Add(ctx context.Context, records []driven.Record) error {
	if len(records) == 0 {
		return nil
	}
	if c.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}
	if err := c.ensureCollection(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCollectionUnavailable, err)
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding batch: %w", err)
	}

	points := make([]map[string]any, len(records))
	for i, rec := range records {
		points[i] = map[string]any{
			"id":     pointID(rec.ID),
			"vector": vectors[i],
			"payload": map[string]any{
				"record_id": rec.ID,
				"text":      rec.Text,
				"metadata":  rec.Metadata,
			},
		}
	}
	body := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", c.name)
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// Get retrieves a record by identifier.
func (c *Collection) Get(ctx context.Context, id string) (*driven.Record, error) {
	body := map[string]any{
		"ids":          []string{pointID(id)},
		"with_payload": true,
	}
	var resp struct {
		Result []pointResult `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points", c.name)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, domain.ErrNotFound
	}
	rec := resp.Result[0].record()
	return &rec, nil
}

// Find scrolls records matching the filter.
func (c *Collection) Find(ctx context.Context, filter driven.Filter, limit int) ([]driven.Record, error) {
	if limit <= 0 {
		limit = 1000
	}
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
	}
	if f := translateFilter(filter); f != nil {
		body["filter"] = f
	}
	var resp struct {
		Result struct {
			Points []pointResult `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/scroll", c.name)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	records := make([]driven.Record, len(resp.Result.Points))
	for i, p := range resp.Result.Points {
		records[i] = p.record()
	}
	return records, nil
}

// Query embeds the text and searches the nearest k points.
func (c *Collection) Query(ctx context.Context, text string, filter driven.Filter, k int) ([]driven.Hit, error) {
	if c.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	vector, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if f := translateFilter(filter); f != nil {
		body["filter"] = f
	}
	var resp struct {
		Result []struct {
			pointResult
			Score float64 `json:"score"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", c.name)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	hits := make([]driven.Hit, len(resp.Result))
	for i, r := range resp.Result {
		// Qdrant returns cosine similarity; convert to a distance.
		distance := 1 - r.Score
		if distance < 0 {
			distance = 0
		}
		hits[i] = driven.Hit{Record: r.record(), Distance: distance}
	}
	return hits, nil
}

// Delete removes the records with the given identifiers.
func (c *Collection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]string, len(ids))
	for i, id := range ids {
		points[i] = pointID(id)
	}
	body := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", c.name)
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("deleting %d points: %w", len(ids), err)
	}
	return nil
}

// Close releases resources.
func (c *Collection) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// translateFilter lifts the conjunction into Qdrant's must clauses.
func translateFilter(filter driven.Filter) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(filter))
	for key, value := range filter {
		must = append(must, map[string]any{
			"key":   "metadata." + key,
			"match": map[string]any{"value": value},
		})
	}
	return map[string]any{"must": must}
}

// pointResult is the shared payload shape of Qdrant point responses.
type pointResult struct {
	Payload struct {
		RecordID string         `json:"record_id"`
		Text     string         `json:"text"`
		Metadata map[string]any `json:"metadata"`
	} `json:"payload"`
}

func (p pointResult) record() driven.Record {
	return driven.Record{
		ID:       p.Payload.RecordID,
		Text:     p.Payload.Text,
		Metadata: p.Payload.Metadata,
	}
}

// statusError reports a non-2xx response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant status %d: %s", e.code, e.body)
}

func isConflict(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusConflict
}

// do sends one JSON request and decodes the response into out.
func (c *Collection) do(ctx context.Context, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &statusError{code: resp.StatusCode, body: string(detail)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
