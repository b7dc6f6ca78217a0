package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jacquard/internal/model"
	"github.com/roach88/jacquard/internal/testutil"
)

func TestInsertRecord_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	in := testutil.Record("Blue Damask", nil, "a", "b")
	id, err := s.InsertRecord(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, model.ID(1), id)

	got, err := s.GetRecord(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Blue Damask", got.Name)
	assert.Nil(t, got.ProjectID)
	if diff := cmp.Diff(in.Pages, got.Pages); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertRecord_StampsTimestampAndDate(t *testing.T) {
	ctx := context.Background()
	s, clock := createTestStore(t)

	in := testutil.Record("x", nil, "a")
	in.Timestamp = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	in.Date = "1999-01-01"

	want := clock.Peek()
	id, err := s.InsertRecord(ctx, in)
	require.NoError(t, err)

	got, err := s.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.True(t, want.Equal(got.Timestamp), "timestamp %v, want %v", got.Timestamp, want)
	assert.Equal(t, "2024-03-01", got.Date)
}

func TestInsertRecord_TruncatesToMillis(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 5, 6, 23, 59, 59, 999_999_999, time.UTC)
	clock := testutil.NewDeterministicClockAt(start, time.Nanosecond)
	s, _ := createTestStore(t, WithClock(clock.Now))

	id, err := s.InsertRecord(ctx, testutil.Record("x", nil, "a"))
	require.NoError(t, err)

	got, err := s.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.True(t, start.Truncate(time.Millisecond).Equal(got.Timestamp))
	assert.Equal(t, "2024-05-06", got.Date, "date derives from the stored instant")
}

func TestInsertRecord_RejectsPreassignedID(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	in := testutil.Record("x", nil, "a")
	in.ID = 9
	_, err := s.InsertRecord(ctx, in)
	require.Error(t, err)
	assert.True(t, IsWriteFailed(err))
	assert.True(t, errors.Is(err, ErrPreassignedID))

	all, err := s.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInsertRecord_NilPagesStoredAsEmpty(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	id, err := s.InsertRecord(ctx, model.Record{Name: "empty"})
	require.NoError(t, err)

	got, err := s.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, got.Pages)
	assert.Empty(t, got.Pages)
}

func TestInsertRecord_NormalizesName(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	// "e" + combining acute composes to a single rune under NFC.
	id, err := s.InsertRecord(ctx, model.Record{Name: "  Cafe\u0301  "})
	require.NoError(t, err)

	got, err := s.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9", got.Name)
}

func TestRecordIDs_NeverReused(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	id1, err := s.InsertRecord(ctx, testutil.Record("a", nil))
	require.NoError(t, err)
	id2, err := s.InsertRecord(ctx, testutil.Record("b", nil))
	require.NoError(t, err)
	require.NoError(t, s.DeleteRecord(ctx, id2))

	id3, err := s.InsertRecord(ctx, testutil.Record("c", nil))
	require.NoError(t, err)

	assert.Equal(t, model.ID(1), id1)
	assert.Equal(t, model.ID(2), id2)
	assert.Equal(t, model.ID(3), id3)
}

func TestGetRecord_NotFound(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.GetRecord(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, model.ID(404), se.ID)
	assert.Equal(t, "records", se.Collection)
}

func TestListRecords_EmptyStore(t *testing.T) {
	s, _ := createTestStore(t)

	records, err := s.ListRecords(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records, "should return empty slice, not nil")
	assert.Empty(t, records)
}

func TestListRecords_OrderedByID(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	for _, name := range []string{"c", "a", "b"} {
		_, err := s.InsertRecord(ctx, testutil.Record(name, nil))
		require.NoError(t, err)
	}

	records, err := s.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, model.ID(i+1), r.ID)
	}
	assert.Equal(t, "c", records[0].Name)
}

func TestUpdateRecord_ReplacesWholeRecord(t *testing.T) {
	ctx := context.Background()
	s, clock := createTestStore(t)

	id, err := s.InsertRecord(ctx, testutil.Record("before", nil, "a", "b"))
	require.NoError(t, err)

	p, err := s.InsertProject(ctx, model.Project{Name: "P"})
	require.NoError(t, err)

	updated := testutil.Record("after", model.Ref(p), "z")
	updated.ID = id
	want := clock.Peek()
	require.NoError(t, s.UpdateRecord(ctx, updated))

	got, err := s.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
	assert.True(t, model.SameProject(model.Ref(p), got.ProjectID))
	assert.True(t, want.Equal(got.Timestamp))
	if diff := cmp.Diff(updated.Pages, got.Pages); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}

	all, err := s.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateRecord_ClearsProject(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	p, err := s.InsertProject(ctx, model.Project{Name: "P"})
	require.NoError(t, err)
	id, err := s.InsertRecord(ctx, testutil.Record("r", model.Ref(p), "a"))
	require.NoError(t, err)

	rec, err := s.GetRecord(ctx, id)
	require.NoError(t, err)
	rec.ProjectID = nil
	require.NoError(t, s.UpdateRecord(ctx, rec))

	got, err := s.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Ungrouped())
}

func TestUpdateRecord_PutCreatesMissing(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	rec := testutil.Record("ghost", nil, "a")
	rec.ID = 42
	require.NoError(t, s.UpdateRecord(ctx, rec))

	got, err := s.GetRecord(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "ghost", got.Name)
}

func TestUpdateRecord_RequiresID(t *testing.T) {
	s, _ := createTestStore(t)

	err := s.UpdateRecord(context.Background(), testutil.Record("x", nil))
	require.Error(t, err)
	assert.True(t, IsWriteFailed(err))
	assert.True(t, errors.Is(err, ErrMissingID))
}

func TestDeleteRecord_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	id, err := s.InsertRecord(ctx, testutil.Record("x", nil, "a"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecord(ctx, id))
	require.NoError(t, s.DeleteRecord(ctx, id))
	require.NoError(t, s.DeleteRecord(ctx, 999))

	_, err = s.GetRecord(ctx, id)
	assert.True(t, IsNotFound(err))
}

func TestOldLayout_RejectsNameAndProject(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t, WithTargetVersion(1))

	_, err := s.InsertRecord(ctx, testutil.Record("named", nil, "a"))
	require.Error(t, err)
	assert.True(t, IsWriteFailed(err))
	assert.True(t, errors.Is(err, errOldLayout))

	_, err = s.InsertRecord(ctx, testutil.Record("", model.Ref(1), "a"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errOldLayout))

	id, err := s.InsertRecord(ctx, testutil.Record("", nil, "a"))
	require.NoError(t, err)
	got, err := s.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.Name)
	assert.True(t, got.Ungrouped())
}

func TestSearchRecords(t *testing.T) {
	ctx := context.Background()
	s, _ := createTestStore(t)

	for _, name := range []string{"Blue Damask", "red twill", "BLUE satin", ""} {
		_, err := s.InsertRecord(ctx, testutil.Record(name, nil))
		require.NoError(t, err)
	}

	tests := []struct {
		term string
		want []string
	}{
		{"blue", []string{"Blue Damask", "BLUE satin"}},
		{"TWILL", []string{"red twill"}},
		{"  damask ", []string{"Blue Damask"}},
		{"velvet", nil},
		{"", []string{"Blue Damask", "red twill", "BLUE satin", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, err := s.SearchRecords(ctx, tt.term)
			require.NoError(t, err)
			var names []string
			for _, r := range got {
				names = append(names, r.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRecordsOnDate(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewDeterministicClockAt(testutil.DefaultEpoch, 24*time.Hour)
	s, _ := createTestStore(t, WithClock(clock.Now))

	day1, err := s.InsertRecord(ctx, testutil.Record("d1", nil))
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, testutil.Record("d2", nil))
	require.NoError(t, err)

	got, err := s.RecordsOnDate(ctx, "2024-03-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, day1, got[0].ID)

	got, err = s.RecordsOnDate(ctx, "2030-01-01")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.RecordsOnDate(ctx, "01/03/2024")
	assert.Error(t, err)
}
