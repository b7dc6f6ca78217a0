package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jacquard/internal/model"
	"github.com/roach88/jacquard/internal/testutil"
)

func TestMigrate_ReopenChangesNothing(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	p, err := s.InsertProject(ctx, model.Project{Name: "Spring"})
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, testutil.Record("R1", model.Ref(p), "a", "b"))
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, testutil.Record("R2", nil, "c"))
	require.NoError(t, err)

	schema := schemaSnapshot(t, s)
	records := tableChecksum(t, s, "records")
	projects := tableChecksum(t, s, "projects")
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, schema, schemaSnapshot(t, s))
	assert.Equal(t, records, tableChecksum(t, s, "records"))
	assert.Equal(t, projects, tableChecksum(t, s, "projects"))
}

func TestMigrate_V1ToV2PreservesRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	clock := testutil.NewDeterministicClock()

	v1, err := Open(ctx, path, WithTargetVersion(1), WithClock(clock.Now))
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version())

	id1, err := v1.InsertRecord(ctx, testutil.Record("", nil, "a"))
	require.NoError(t, err)
	id2, err := v1.InsertRecord(ctx, testutil.Record("", nil, "b", "c"))
	require.NoError(t, err)
	before, err := v1.ListRecords(ctx)
	require.NoError(t, err)
	require.NoError(t, v1.Close())

	v2, err := Open(ctx, path, WithClock(clock.Now))
	require.NoError(t, err)
	defer v2.Close()
	assert.Equal(t, 2, userVersion(t, v2))

	after, err := v2.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, id1, after[0].ID)
	assert.Equal(t, id2, after[1].ID)
	for i := range after {
		assert.Equal(t, before[i].Date, after[i].Date)
		assert.True(t, before[i].Timestamp.Equal(after[i].Timestamp))
		assert.Len(t, after[i].Pages, len(before[i].Pages))
		assert.Empty(t, after[i].Name)
		assert.True(t, after[i].Ungrouped(), "upgraded records start ungrouped")
	}

	// The upgraded layout accepts names and projects.
	p, err := v2.InsertProject(ctx, model.Project{Name: "Upgraded"})
	require.NoError(t, err)
	rec := after[0]
	rec.Name = "now named"
	rec.ProjectID = model.Ref(p)
	require.NoError(t, v2.UpdateRecord(ctx, rec))

	got, err := v2.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "now named", got.Name)
	assert.True(t, model.SameProject(got.ProjectID, model.Ref(p)))
}

func TestMigrate_FailedStepLeavesVersion(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, testutil.Record("keep", nil, "a"))
	require.NoError(t, err)
	schema := schemaSnapshot(t, s)
	require.NoError(t, s.Close())

	orig := migrations
	t.Cleanup(func() { migrations = orig })
	migrations = append(append([]migration{}, orig...), migration{
		version: 3,
		apply: func(ctx context.Context, tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `CREATE TABLE scratch (id INTEGER PRIMARY KEY)`); err != nil {
				return err
			}
			return errors.New("boom")
		},
	})

	_, err = Open(ctx, path, WithTargetVersion(3))
	require.Error(t, err)
	assert.True(t, IsOpenFailed(err))
	assert.Contains(t, err.Error(), "migrate to v3")

	migrations = orig
	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 2, userVersion(t, s))
	assert.Equal(t, schema, schemaSnapshot(t, s), "partial step must not leave tables behind")

	records, err := s.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "keep", records[0].Name)
}

func TestMigrate_FailedFirstOpenLeavesEmptyStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	orig := migrations
	t.Cleanup(func() { migrations = orig })
	migrations = []migration{
		orig[0],
		{version: 2, apply: func(context.Context, *sql.Tx) error { return errors.New("boom") }},
	}

	_, err := Open(ctx, path)
	require.Error(t, err)
	assert.True(t, IsOpenFailed(err))

	migrations = orig
	s, err := Open(ctx, path, WithTargetVersion(1))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 1, userVersion(t, s))
}

func TestDetectRecordColumns(t *testing.T) {
	v1, _ := createTestStore(t, WithTargetVersion(1))
	assert.False(t, v1.cols.name)
	assert.False(t, v1.cols.project)
	assert.False(t, v1.cols.projects)
	assert.Equal(t, "id, timestamp, date, pages", v1.recordSelect())

	v2, _ := createTestStore(t)
	assert.True(t, v2.cols.name)
	assert.True(t, v2.cols.project)
	assert.True(t, v2.cols.projects)
	assert.Equal(t, "id, timestamp, date, pages, name, project_id", v2.recordSelect())
}

func TestIndexes_V1Layout(t *testing.T) {
	s, _ := createTestStore(t, WithTargetVersion(1))

	idx, err := s.Indexes(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"idx_records_date", "idx_records_timestamp"}, idx["records"])
	assert.NotContains(t, idx, "projects")
}
