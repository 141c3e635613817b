package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

type memStore struct {
	mu         sync.Mutex
	recs       map[string]*models.OutboxRecord
	docs       map[string]models.MetadataDocument
	enqueueErr error
}

func newMemStore() *memStore {
	return &memStore{recs: map[string]*models.OutboxRecord{}, docs: map[string]models.MetadataDocument{}}
}

func (m *memStore) Enqueue(ctx context.Context, rec *models.OutboxRecord, doc *models.MetadataDocument) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	if err := m.Create(ctx, rec); err != nil {
		return err
	}
	if doc != nil {
		m.mu.Lock()
		m.docs[rec.CID] = *doc
		m.mu.Unlock()
	}
	return nil
}

func (m *memStore) Create(_ context.Context, rec *models.OutboxRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.ID]; ok {
		return errors.New("duplicate id")
	}
	cp := *rec
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	m.recs[rec.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*models.OutboxRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) MarkDispatched(_ context.Context, id, txHash string, at time.Time) error {
	return m.update(id, func(r *models.OutboxRecord) {
		r.Status = models.StatusDispatched
		r.TxHash = txHash
		r.Attempts++
		r.DispatchedAt = &at
	})
}

func (m *memStore) MarkFailed(_ context.Context, id, reason string) error {
	return m.update(id, func(r *models.OutboxRecord) {
		r.Status = models.StatusFailed
		r.LastError = reason
		r.Attempts++
	})
}

func (m *memStore) SetStatus(_ context.Context, id string, status models.OutboxStatus) error {
	return m.update(id, func(r *models.OutboxRecord) { r.Status = status })
}

func (m *memStore) ListByStatus(_ context.Context, status models.OutboxStatus, limit int) ([]models.OutboxRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OutboxRecord
	for _, r := range m.recs {
		if r.Status == status {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) sendable(r *models.OutboxRecord, staleBefore time.Time) bool {
	switch r.Status {
	case models.StatusPending, models.StatusFailed:
		return true
	case models.StatusDispatching:
		return r.UpdatedAt.Before(staleBefore)
	}
	return false
}

func (m *memStore) Claim(_ context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]models.OutboxRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, r := range m.recs {
		if r.Attempts < maxAttempts && m.sendable(r, staleBefore) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]models.OutboxRecord, 0, len(ids))
	for _, id := range ids {
		r := m.recs[id]
		r.Status = models.StatusDispatching
		r.UpdatedAt = time.Now()
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) Abandon(_ context.Context, maxAttempts int, staleBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.recs {
		if r.Attempts >= maxAttempts && m.sendable(r, staleBefore) {
			r.Status = models.StatusAbandoned
			r.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (m *memStore) update(id string, fn func(*models.OutboxRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok {
		return common.ErrNotFound
	}
	fn(r)
	r.UpdatedAt = time.Now()
	return nil
}

type call struct {
	method  string
	cid     string
	creator string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []call
	err   error
	n     int

	// when release is set, the first call reports on entered and waits
	entered chan call
	release chan struct{}
	held    bool
}

func (f *fakeDispatcher) SubmitMeme(_ context.Context, cid, creator string) (string, error) {
	return f.record(call{"submitMeme", cid, creator})
}

func (f *fakeDispatcher) DeclareWinner(_ context.Context, cid string) (string, error) {
	return f.record(call{"declareWinner", cid, ""})
}

func (f *fakeDispatcher) record(c call) (string, error) {
	f.mu.Lock()
	if f.release != nil && !f.held {
		f.held = true
		f.mu.Unlock()
		f.entered <- c
		<-f.release
		f.mu.Lock()
	}
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.err != nil {
		return "", f.err
	}
	f.n++
	return "0xtx" + string(rune('0'+f.n)), nil
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeReceipts map[string]Receipt

func (f fakeReceipts) Receipt(_ context.Context, txHash string) (Receipt, error) {
	r, ok := f[txHash]
	if !ok {
		return Receipt{}, nil
	}
	return r, nil
}
