package draft

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/jacquard/internal/model"
	"github.com/roach88/jacquard/internal/store"
	"github.com/roach88/jacquard/internal/testutil"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// memStore keeps payloads exactly as received and counts every call.
type memStore struct {
	records map[model.ID]model.Record
	next    model.ID

	gets, inserts, updates int
	failWrites             error
}

func newMemStore() *memStore {
	return &memStore{records: map[model.ID]model.Record{}}
}

func (m *memStore) GetRecord(_ context.Context, id model.ID) (model.Record, error) {
	m.gets++
	r, ok := m.records[id]
	if !ok {
		return model.Record{}, &store.Error{Code: store.ErrCodeNotFound, Op: "get", Collection: "records", ID: id}
	}
	return r, nil
}

func (m *memStore) InsertRecord(_ context.Context, r model.Record) (model.ID, error) {
	m.inserts++
	if m.failWrites != nil {
		return 0, m.failWrites
	}
	m.next++
	r.ID = m.next
	m.records[r.ID] = r
	return r.ID, nil
}

func (m *memStore) UpdateRecord(_ context.Context, r model.Record) error {
	m.updates++
	if m.failWrites != nil {
		return m.failWrites
	}
	m.records[r.ID] = r
	return nil
}

func (m *memStore) calls() int { return m.gets + m.inserts + m.updates }
