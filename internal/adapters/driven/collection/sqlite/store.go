// Package sqlite provides an embedded driven.Collection backed by SQLite.
// Records are ranked brute-force by cosine distance over stored
// embeddings, which is adequate for the collection sizes a single node
// serves.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/bioindex/internal/adapters/driven/collection"
	"github.com/custodia-labs/bioindex/internal/adapters/driven/collection/sqlite/migrations"
	"github.com/custodia-labs/bioindex/internal/core/domain"
	"github.com/custodia-labs/bioindex/internal/core/ports/driven"
)

// Store is a SQLite database holding any number of named collections.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database under dataDir.
// If dataDir is empty, defaults to ~/.bioindex/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".bioindex", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// WAL mode for concurrent readers alongside writers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Collection returns a driven.Collection stored under the given name.
func (s *Store) Collection(name string, embedder driven.EmbeddingService) driven.Collection {
	return &sqlCollection{store: s, name: name, embedder: embedder}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// sqlCollection implements driven.Collection over one named collection.
type sqlCollection struct {
	store    *Store
	name     string
	embedder driven.EmbeddingService
}

var _ driven.Collection = (*sqlCollection)(nil)

// Add inserts the given records as one batch within a transaction.
func (c *sqlCollection) Add(ctx context.Context, records []driven.Record) error {
	if len(records) == 0 {
		return nil
	}
	if c.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding batch: %w", err)
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for i, rec := range records {
		metadataJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", rec.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (collection, id, text, embedding, metadata)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET
				text = excluded.text,
				embedding = excluded.embedding,
				metadata = excluded.metadata
		`, c.name, rec.ID, rec.Text, float32SliceToBytes(vectors[i]), string(metadataJSON))
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// Get retrieves a record by identifier.
func (c *sqlCollection) Get(ctx context.Context, id string) (*driven.Record, error) {
	row := c.store.db.QueryRowContext(ctx, `
		SELECT id, text, metadata FROM records
		WHERE collection = ? AND id = ?
	`, c.name, id)

	var rec driven.Record
	var metadataJSON string
	if err := row.Scan(&rec.ID, &rec.Text, &metadataJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return &rec, nil
}

// Find returns records matching the filter, in insertion order.
func (c *sqlCollection) Find(ctx context.Context, filter driven.Filter, limit int) ([]driven.Record, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, text, metadata FROM records
		WHERE collection = ? ORDER BY rowid
	`, c.name)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []driven.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if !collection.MatchesFilter(rec.Metadata, filter) {
			continue
		}
		out = append(out, *rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return out, nil
}

// Query embeds the text and ranks matching records by cosine distance.
func (c *sqlCollection) Query(ctx context.Context, text string, filter driven.Filter, k int) ([]driven.Hit, error) {
	if c.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	query, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, text, embedding, metadata FROM records
		WHERE collection = ? ORDER BY rowid
	`, c.name)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var hits []driven.Hit
	for rows.Next() {
		var rec driven.Record
		var embeddingBlob []byte
		var metadataJSON string
		if err := rows.Scan(&rec.ID, &rec.Text, &embeddingBlob, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
		if !collection.MatchesFilter(rec.Metadata, filter) {
			continue
		}
		hits = append(hits, driven.Hit{
			Record:   rec,
			Distance: collection.CosineDistance(query, bytesToFloat32Slice(embeddingBlob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete removes the records with the given identifiers.
func (c *sqlCollection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM records WHERE collection = ? AND id = ?", c.name, id); err != nil {
			return fmt.Errorf("deleting record %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// Close is a no-op; the owning Store closes the database.
func (c *sqlCollection) Close() error {
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*driven.Record, error) {
	var rec driven.Record
	var metadataJSON string
	if err := row.Scan(&rec.ID, &rec.Text, &metadataJSON); err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return &rec, nil
}

// float32SliceToBytes encodes a vector as little-endian float32 bits.
func float32SliceToBytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice decodes a vector encoded by float32SliceToBytes.
func bytesToFloat32Slice(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
