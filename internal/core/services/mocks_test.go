package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/bioindex/internal/core/domain"
	"github.com/custodia-labs/bioindex/internal/core/ports/driven"
)

// fakeCollection implements driven.Collection for testing. It keeps
// records in insertion order and lets tests script query results and
// failures. An optional shared opLog records cross-collection ordering.
type fakeCollection struct {
	mu      sync.Mutex
	name    string
	records map[string]driven.Record
	order   []string

	queryHits []driven.Hit
	queryErr  error
	addErr    error
	findErr   error
	deleteErr error

	opLog *[]string
}

var _ driven.Collection = (*fakeCollection)(nil)

func newFakeCollection(name string, opLog *[]string) *fakeCollection {
	return &fakeCollection{
		name:    name,
		records: make(map[string]driven.Record),
		opLog:   opLog,
	}
}

func (f *fakeCollection) logOp(op string) {
	if f.opLog != nil {
		*f.opLog = append(*f.opLog, f.name+"."+op)
	}
}

func (f *fakeCollection) Add(_ context.Context, records []driven.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logOp("add")
	if f.addErr != nil {
		return f.addErr
	}
	for _, rec := range records {
		if _, exists := f.records[rec.ID]; !exists {
			f.order = append(f.order, rec.ID)
		}
		f.records[rec.ID] = rec
	}
	return nil
}

func (f *fakeCollection) Get(_ context.Context, id string) (*driven.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeCollection) Find(_ context.Context, filter driven.Filter, limit int) ([]driven.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []driven.Record
	for _, id := range f.order {
		rec := f.records[id]
		if matchesFilter(rec.Metadata, filter) {
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeCollection) Query(ctx context.Context, _ string, _ driven.Filter, k int) ([]driven.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if k > 0 && len(f.queryHits) > k {
		return f.queryHits[:k], nil
	}
	return f.queryHits, nil
}

func (f *fakeCollection) Delete(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logOp("delete")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, id := range ids {
		delete(f.records, id)
		for i, ordered := range f.order {
			if ordered == id {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (f *fakeCollection) Close() error { return nil }

func matchesFilter(metadata map[string]any, filter driven.Filter) bool {
	for k, want := range filter {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

// fakeVerifier implements driven.SignatureVerifier.
type fakeVerifier struct {
	ok  bool
	err error
}

func (f *fakeVerifier) Verify(_ context.Context, _, _, _ string) (bool, error) {
	return f.ok, f.err
}
