package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/posting-api/internal/domain"
	"github.com/phrazzld/posting-api/internal/events"
	"github.com/phrazzld/posting-api/internal/store"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

// fakeRecordStore is an in-memory store.RecordStore that fails with err when set.
type fakeRecordStore struct {
	class   string
	mu      sync.Mutex
	records map[uuid.UUID]*domain.VersionedRecord
	active  *domain.VersionedRecord
	err     error
}

func newFakeRecordStore(class string) *fakeRecordStore {
	return &fakeRecordStore{class: class, records: map[uuid.UUID]*domain.VersionedRecord{}}
}

func (f *fakeRecordStore) Class() string { return f.class }

func (f *fakeRecordStore) Upsert(_ context.Context, tenantID string, in domain.UpsertInput) (*domain.VersionedRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if in.IsUpdate() {
		rec, ok := f.records[*in.ID]
		if !ok || rec.TenantID != tenantID {
			return nil, store.ErrRecordNotFound
		}
		rec.Document = in.Document
		return rec, nil
	}
	rec := &domain.VersionedRecord{
		ID:       uuid.New(),
		TenantID: tenantID,
		Class:    f.class,
		Document: in.Document.
			With(domain.FieldVersion, domain.String("v1")).
			With(domain.FieldCode, domain.String("POLv1")),
	}
	f.records[rec.ID] = rec
	f.active = rec
	return rec, nil
}

func (f *fakeRecordStore) GetByID(_ context.Context, tenantID string, id uuid.UUID) (*domain.VersionedRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[id]
	if !ok || rec.TenantID != tenantID {
		return nil, store.ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeRecordStore) GetActive(_ context.Context, tenantID string) (*domain.VersionedRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.active == nil || f.active.TenantID != tenantID {
		return nil, store.ErrRecordNotFound
	}
	return f.active, nil
}

func (f *fakeRecordStore) ListByTenant(_ context.Context, tenantID string) ([]*domain.VersionedRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []*domain.VersionedRecord{}
	for _, rec := range f.records {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

var _ store.RecordStore = (*fakeRecordStore)(nil)

// recordingEmitter captures emitted events and fails with err when set.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}

func (e *recordingEmitter) emitted() []*events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*events.Event(nil), e.events...)
}
