package duplicate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jacquard/internal/model"
	"github.com/roach88/jacquard/internal/store"
	"github.com/roach88/jacquard/internal/testutil"
)

func TestRecord_StripsIdentity(t *testing.T) {
	clock := testutil.NewDeterministicClock()
	d := Duplicator{Now: clock.Now}

	orig := testutil.Record("Blue", model.Ref(2), "a", "b")
	orig.ID = 11
	orig.Timestamp = testutil.DefaultEpoch.AddDate(-1, 0, 0)
	orig.Date = "2023-03-01"

	c := d.Record(orig)
	assert.Zero(t, c.ID)
	assert.Equal(t, "Blue copy", c.Name)
	assert.True(t, testutil.DefaultEpoch.Equal(c.Timestamp))
	assert.Equal(t, "2024-03-01", c.Date)
	assert.True(t, model.SameProject(orig.ProjectID, c.ProjectID))
	if diff := cmp.Diff(orig.Pages, c.Pages); diff != "" {
		t.Errorf("pages differ (-orig +copy):\n%s", diff)
	}

	// Shared blobs, independent structure.
	assert.Same(t, &orig.Pages[0].EPImage[0], &c.Pages[0].EPImage[0])
	c.Pages[0].WarpYarns[0].Text = "changed"
	*c.ProjectID = 9
	assert.Equal(t, "warp a", orig.Pages[0].WarpYarns[0].Text)
	assert.Equal(t, model.ID(2), *orig.ProjectID)
}

func TestRecord_UntitledAndCustomSuffix(t *testing.T) {
	d := Duplicator{Suffix: " 副本"}
	assert.Equal(t, "Untitled record 副本", d.Record(model.Record{}).Name)
	assert.Equal(t, "Twill 副本", d.Record(model.Record{Name: " Twill "}).Name)
}

func TestProject(t *testing.T) {
	clock := testutil.NewDeterministicClock()
	d := Duplicator{Now: clock.Now}

	p := model.Project{ID: 4, Name: "Spring", CreatedAt: testutil.DefaultEpoch.AddDate(-1, 0, 0)}
	c := d.Project(p)
	assert.Zero(t, c.ID)
	assert.Equal(t, "Spring copy", c.Name)
	assert.True(t, testutil.DefaultEpoch.Equal(c.CreatedAt))
	assert.True(t, c.CreatedAt.Equal(c.Timestamp))

	assert.Equal(t, "Untitled project copy", d.Project(model.Project{}).Name)
}

func TestRecord_InsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewDeterministicClock()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "test.db"), store.WithClock(clock.Now))
	require.NoError(t, err)
	defer st.Close()

	p, err := st.InsertProject(ctx, model.Project{Name: "P"})
	require.NoError(t, err)
	id, err := st.InsertRecord(ctx, testutil.Record("Damask", model.Ref(p), "a", "b", "c"))
	require.NoError(t, err)
	orig, err := st.GetRecord(ctx, id)
	require.NoError(t, err)

	copyID, err := st.InsertRecord(ctx, Duplicator{Now: clock.Now}.Record(orig))
	require.NoError(t, err)
	assert.NotEqual(t, id, copyID)

	got, err := st.GetRecord(ctx, copyID)
	require.NoError(t, err)

	assert.Equal(t, orig.Name+DefaultSuffix, got.Name)
	if diff := cmp.Diff(orig, got, cmpopts.IgnoreFields(model.Record{}, "ID", "Timestamp", "Name")); diff != "" {
		t.Errorf("copy differs beyond identity, timestamp and name (-orig +copy):\n%s", diff)
	}
}
