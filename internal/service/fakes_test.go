package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sort"
	"strings"
	"sync"

	"docvault/internal/integrity"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// memStore is an in-memory content store with pin and GC semantics.
type memStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	pinned  map[string]bool
	tempDir string
	// tamper, when set, alters fetched bytes before they are handed out.
	tamper func([]byte) []byte
}

func newMemStore(tempDir string) *memStore {
	return &memStore{blobs: map[string][]byte{}, pinned: map[string]bool{}, tempDir: tempDir}
}

func (m *memStore) Store(_ context.Context, r io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	digest, _ := integrity.Digest(bytes.NewReader(data))
	addr, err := storage.AddressForDigest(digest)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[addr] = data
	m.pinned[addr] = true
	return addr, nil
}

func (m *memStore) Fetch(_ context.Context, addr, name string) (*storage.Handle, error) {
	m.mu.Lock()
	data, ok := m.blobs[addr]
	m.mu.Unlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := append([]byte(nil), data...)
	if m.tamper != nil {
		out = m.tamper(out)
	}
	return storage.Spool(m.tempDir, name, bytes.NewReader(out))
}

func (m *memStore) Unpin(_ context.Context, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pinned, addr)
	return nil
}

func (m *memStore) GC(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for addr := range m.blobs {
		if !m.pinned[addr] {
			delete(m.blobs, addr)
			removed = append(removed, addr)
		}
	}
	return removed, nil
}

func (m *memStore) isPinned(addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pinned[addr]
}

func (m *memStore) has(addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[addr]
	return ok
}

// memDocs is an in-memory DocumentRepository with the same counter semantics as
// the postgres implementation.
type memDocs struct {
	mu       sync.Mutex
	rows     map[string]model.Document
	counters map[[2]string]int
}

func newMemDocs() *memDocs {
	return &memDocs{rows: map[string]model.Document{}, counters: map[[2]string]int{}}
}

var _ repository.DocumentRepository = (*memDocs)(nil)

func (m *memDocs) CreateVersioned(_ context.Context, doc *model.Document) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{doc.OwnerID, doc.Filename}
	m.counters[key] = max(m.counters[key], m.versionFloor(key)) + 1
	out := *doc
	out.Version = m.counters[key]
	m.rows[out.ID] = out
	return &out, nil
}

func (m *memDocs) FindByID(_ context.Context, id string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

func (m *memDocs) List(_ context.Context, q repository.DocumentQuery) (*repository.PageResult[model.Document], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []model.Document
	for _, d := range m.rows {
		if q.OwnerID != "" && d.OwnerID != q.OwnerID {
			continue
		}
		if !q.IncludeDeleted && d.Deleted {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(d.Filename), strings.ToLower(q.Search)) {
			continue
		}
		items = append(items, d)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].UploadedAt.After(items[j].UploadedAt) })
	total := len(items)
	if q.Offset < len(items) {
		items = items[q.Offset:]
	} else {
		items = nil
	}
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

func (m *memDocs) ListByOwner(_ context.Context, ownerID string) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Document
	for _, d := range m.rows {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDocs) Revise(_ context.Context, doc *model.Document) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[doc.ID]
	if !ok || d.Deleted {
		return nil, sql.ErrNoRows
	}
	d.Filename = doc.Filename
	d.Filetype = doc.Filetype
	d.Size = doc.Size
	d.ContentAddress = doc.ContentAddress
	d.Digest = doc.Digest
	d.UploadedAt = doc.UploadedAt
	d.Version++
	m.rows[d.ID] = d
	key := [2]string{d.OwnerID, d.Filename}
	m.counters[key] = max(m.counters[key], m.versionFloor(key))
	return &d, nil
}

// versionFloor mirrors the SQL floor: row count or highest version under the name.
func (m *memDocs) versionFloor(key [2]string) int {
	n, top := 0, 0
	for _, r := range m.rows {
		if r.OwnerID == key[0] && r.Filename == key[1] {
			n++
			top = max(top, r.Version)
		}
	}
	return max(n, top)
}

func (m *memDocs) SetDescription(_ context.Context, id string, description *string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok || d.Deleted {
		return nil, sql.ErrNoRows
	}
	d.Description = description
	m.rows[id] = d
	return &d, nil
}

func (m *memDocs) SetDeleted(_ context.Context, id string, deleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok || d.Deleted == deleted {
		return sql.ErrNoRows
	}
	d.Deleted = deleted
	m.rows[id] = d
	return nil
}

func (m *memDocs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memDocs) CountByContentAddress(_ context.Context, addr string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.rows {
		if d.ContentAddress == addr {
			n++
		}
	}
	return n, nil
}
