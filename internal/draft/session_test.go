package draft

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jacquard/internal/model"
	"github.com/roach88/jacquard/internal/store"
	"github.com/roach88/jacquard/internal/testutil"
)

func TestNew_OneBlankPage(t *testing.T) {
	s := New(newMemStore(), nil)

	assert.Equal(t, Composing, s.State())
	assert.Equal(t, model.ID(0), s.ActiveID())
	assert.Nil(t, s.Project())
	require.Equal(t, 1, s.Len())

	p, err := s.Page(0)
	require.NoError(t, err)
	assert.False(t, p.HasEPImage())
	assert.Empty(t, p.WarpYarns)
	assert.NotNil(t, p.Problems)
}

func TestSave_ValidationGate(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	s := New(st, nil)

	require.NoError(t, s.SetEPImage(0, testutil.Image("ep")))
	s.AddPage()
	s.AddPage()
	require.NoError(t, s.SetEPImage(1, nil))
	require.Equal(t, 3, s.Len())

	_, err := s.Save(ctx)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "VALIDATION_FAILED")

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []int{1}, ve.Indices)

	assert.Equal(t, Composing, s.State())
	assert.Equal(t, 3, s.Len(), "no data lost")
	assert.Zero(t, st.calls(), "validation happens before any store access")
	assert.Empty(t, st.records)
}

func TestSave_ValidationGateOnEdit(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	id, err := st.InsertRecord(ctx, testutil.Record("r", nil, "a", "b", "c"))
	require.NoError(t, err)
	before, err := st.GetRecord(ctx, id)
	require.NoError(t, err)

	s := New(st, nil)
	require.NoError(t, s.BeginEditRecord(ctx, id))
	require.NoError(t, s.SetEPImage(1, nil))
	require.NoError(t, s.SetDensity(0, "99"))

	_, err = s.Save(ctx)
	require.True(t, IsValidationError(err))

	after, err := st.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.True(t, before.Timestamp.Equal(after.Timestamp))
	assert.Equal(t, "48", after.Pages[0].ActualDensity)
}

func TestSave_ReportsEveryInvalidPage(t *testing.T) {
	s := New(newMemStore(), nil)
	s.AddPage()
	s.AddPage()
	require.NoError(t, s.SetEPImage(1, testutil.Image("x")))

	_, err := s.Save(context.Background())
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []int{0, 2}, ve.Indices)
}

func TestAddRemovePage_Scenario(t *testing.T) {
	s := New(newMemStore(), nil)
	s.BeginNewRecord(nil)
	require.Equal(t, 1, s.Len())

	s.AddPage()
	s.AddPage()
	require.Equal(t, 3, s.Len())

	require.NoError(t, s.RemovePage(2))
	require.NoError(t, s.RemovePage(0))
	require.Equal(t, 1, s.Len())

	err := s.RemovePage(0)
	assert.ErrorIs(t, err, ErrLastPage)
	assert.Equal(t, 1, s.Len())
}

func TestRemovePage_KeepsOrder(t *testing.T) {
	s := New(newMemStore(), nil)
	s.AddPage()
	s.AddPage()
	handles := s.Handles()

	require.NoError(t, s.RemovePage(1))
	assert.Equal(t, []Handle{handles[0], handles[2]}, s.Handles())

	assert.ErrorIs(t, s.RemovePage(5), ErrPageIndex)
	assert.ErrorIs(t, s.RemovePage(-1), ErrPageIndex)
}

func TestAddPage_CopiesForward(t *testing.T) {
	src := NewStaticSource()
	s := New(newMemStore(), src)

	ep := testutil.Image("ep")
	require.NoError(t, s.SetEPImage(0, ep))
	_, err := s.AddWarpYarn(0, "typed")
	require.NoError(t, err)
	require.NoError(t, s.AttachYarnMedia(0, Warp, 0, testutil.Photo("w")))
	_, err = s.AddWeftYarn(0, "weft")
	require.NoError(t, err)
	require.NoError(t, s.SetDensity(0, "40"))
	require.NoError(t, s.AddProblem(0, testutil.Photo("p")))
	require.NoError(t, s.AddProduct(0, testutil.Video("v")))

	first := s.Handles()[0]
	src.Set(first, WarpText(0), "live warp")
	src.Set(first, Density(), "44")

	h := s.AddPage()
	assert.Equal(t, s.Handles()[1], h)
	assert.NotEqual(t, first, h)

	prev, err := s.Page(0)
	require.NoError(t, err)
	assert.Equal(t, "live warp", prev.WarpYarns[0].Text, "last page is reconciled before copying")

	next, err := s.Page(1)
	require.NoError(t, err)
	assert.Equal(t, ep, next.EPImage)
	assert.Same(t, &ep[0], &next.EPImage[0], "blobs are shared")
	assert.Equal(t, "44", next.ActualDensity)
	require.Len(t, next.WarpYarns, 1)
	assert.Equal(t, "live warp", next.WarpYarns[0].Text)
	assert.Len(t, next.WarpYarns[0].Media, 1)
	assert.Equal(t, "weft", next.WeftYarns[0].Text)
	assert.NotNil(t, next.Problems)
	assert.Empty(t, next.Problems)
	assert.Empty(t, next.Products)

	// The copies are independent.
	require.NoError(t, s.AttachYarnMedia(1, Warp, 0, testutil.Photo("w2")))
	prev, err = s.Page(0)
	require.NoError(t, err)
	assert.Len(t, prev.WarpYarns[0].Media, 1)
}

func TestSave_ReconcilesEveryPage(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	src := NewStaticSource()
	s := New(st, src)

	require.NoError(t, s.SetEPImage(0, testutil.Image("ep")))
	_, err := s.AddWarpYarn(0, "stale")
	require.NoError(t, err)
	s.AddPage()
	s.AddPage()

	for i, h := range s.Handles() {
		src.Set(h, WarpText(0), []string{"w0", "w1", "w2"}[i])
		src.Set(h, Density(), []string{"10", "11", "12"}[i])
	}
	// A live value for a yarn that does not exist is ignored.
	src.Set(s.Handles()[0], WeftText(3), "ghost")

	res, err := s.Save(ctx)
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.Equal(t, 3, res.Pages)

	got, err := st.GetRecord(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, got.Pages, 3)
	for i, p := range got.Pages {
		assert.Equal(t, []string{"w0", "w1", "w2"}[i], p.WarpYarns[0].Text)
		assert.Equal(t, []string{"10", "11", "12"}[i], p.ActualDensity)
		assert.Empty(t, p.WeftYarns)
	}
}

func TestSave_InsertTagsProjectAndContinues(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	p, err := st.InsertProject(ctx, model.Project{Name: "P"})
	require.NoError(t, err)

	s := New(st, nil)
	s.BeginNewRecord(model.Ref(p))
	s.SetName("Blue damask")
	require.NoError(t, s.SetEPImage(0, testutil.Image("ep")))

	first, err := s.Save(ctx)
	require.NoError(t, err)
	assert.True(t, first.Inserted)
	assert.Equal(t, Committed, s.State())
	assert.Equal(t, first.ID, s.ActiveID())

	rec, err := st.GetRecord(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue damask", rec.Name)
	assert.True(t, model.SameProject(model.Ref(p), rec.ProjectID))

	require.NoError(t, s.SetDensity(0, "52"))
	assert.Equal(t, Composing, s.State(), "editing after commit resumes composing")

	second, err := s.Save(ctx)
	require.NoError(t, err)
	assert.False(t, second.Inserted)
	assert.Equal(t, first.ID, second.ID)

	all, err := st.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "52", all[0].Pages[0].ActualDensity)
}

func TestSave_UpdatesEditedRecord(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	id, err := st.InsertRecord(ctx, testutil.Record("r", nil, "a", "b"))
	require.NoError(t, err)

	s := New(st, nil)
	require.NoError(t, s.BeginEditRecord(ctx, id))
	assert.Equal(t, id, s.ActiveID())
	assert.Equal(t, "r", s.Name())
	require.Equal(t, 2, s.Len())

	require.NoError(t, s.RemovePage(1))
	res, err := s.Save(ctx)
	require.NoError(t, err)
	assert.False(t, res.Inserted)
	assert.Equal(t, id, res.ID)

	got, err := st.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got.Pages, 1, "pages are replaced, not merged")
}

func TestSave_KeepsRenameAndMoveMadeWhileEditing(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	p, err := st.InsertProject(ctx, model.Project{Name: "P"})
	require.NoError(t, err)
	id, err := st.InsertRecord(ctx, testutil.Record("r", nil, "a", "b"))
	require.NoError(t, err)

	s := New(st, nil)
	require.NoError(t, s.BeginEditRecord(ctx, id))

	// Renamed and moved from the listing while the record is open.
	other, err := st.GetRecord(ctx, id)
	require.NoError(t, err)
	other.Name = "renamed"
	other.ProjectID = model.Ref(p)
	require.NoError(t, st.UpdateRecord(ctx, other))

	require.NoError(t, s.RemovePage(1))
	require.NoError(t, s.SetDensity(0, "60"))
	res, err := s.Save(ctx)
	require.NoError(t, err)
	assert.False(t, res.Inserted)

	got, err := st.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.True(t, model.SameProject(model.Ref(p), got.ProjectID))
	require.Len(t, got.Pages, 1)
	assert.Equal(t, "60", got.Pages[0].ActualDensity)

	assert.Equal(t, "renamed", s.Name())
	assert.True(t, model.SameProject(model.Ref(p), s.Project()))
}

func TestSave_SessionNameWinsOverOutsideRename(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	p, err := st.InsertProject(ctx, model.Project{Name: "P"})
	require.NoError(t, err)
	id, err := st.InsertRecord(ctx, testutil.Record("r", nil, "a"))
	require.NoError(t, err)

	s := New(st, nil)
	require.NoError(t, s.BeginEditRecord(ctx, id))
	s.SetName("mine")

	other, err := st.GetRecord(ctx, id)
	require.NoError(t, err)
	other.Name = "theirs"
	other.ProjectID = model.Ref(p)
	require.NoError(t, st.UpdateRecord(ctx, other))

	_, err = s.Save(ctx)
	require.NoError(t, err)

	got, err := st.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Name)
	assert.True(t, model.SameProject(model.Ref(p), got.ProjectID), "project was not touched")

	// Once saved, the name is no longer pending.
	got.Name = "theirs again"
	require.NoError(t, st.UpdateRecord(ctx, got))
	require.NoError(t, s.SetDensity(0, "52"))
	_, err = s.Save(ctx)
	require.NoError(t, err)

	got, err = st.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "theirs again", got.Name)
}

func TestSave_SetProjectMovesEditedRecord(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	p, err := st.InsertProject(ctx, model.Project{Name: "P"})
	require.NoError(t, err)
	id, err := st.InsertRecord(ctx, testutil.Record("r", model.Ref(p), "a"))
	require.NoError(t, err)

	s := New(st, nil)
	require.NoError(t, s.BeginEditRecord(ctx, id))
	s.SetProject(nil)

	_, err = s.Save(ctx)
	require.NoError(t, err)

	got, err := st.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Ungrouped())
	assert.Equal(t, "r", got.Name)
}

func TestBeginEdit_EmptyRecordGetsBlankPage(t *testing.T) {
	s := New(newMemStore(), nil)
	s.BeginEdit(model.Record{ID: 4, Name: "empty"})

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, model.ID(4), s.ActiveID())
}

func TestBeginEditRecord_NotFoundLeavesSession(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	s := New(st, nil)
	s.SetName("in progress")
	s.AddPage()

	err := s.BeginEditRecord(ctx, 404)
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))

	assert.Equal(t, "in progress", s.Name())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, model.ID(0), s.ActiveID())
}

func TestSave_StaleEditFallsBackToInsert(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	stale, err := st.InsertRecord(ctx, testutil.Record("listed", nil, "a"))
	require.NoError(t, err)
	listed, err := st.ListRecords(ctx)
	require.NoError(t, err)

	// Another flow deletes the record between list-load and edit-open.
	require.NoError(t, st.DeleteRecord(ctx, stale))

	s := New(st, nil)
	s.BeginEdit(listed[0])

	res, err := s.Save(ctx)
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.NotEqual(t, stale, res.ID)
	assert.Equal(t, res.ID, s.ActiveID())

	got, err := st.GetRecord(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "listed", got.Name)

	_, err = st.GetRecord(ctx, stale)
	assert.True(t, store.IsNotFound(err), "stale identity is not resurrected")
}

func TestSave_DeletedWhileEditing(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	id, err := st.InsertRecord(ctx, testutil.Record("r", nil, "a"))
	require.NoError(t, err)

	s := New(st, nil)
	require.NoError(t, s.BeginEditRecord(ctx, id))
	require.NoError(t, st.DeleteRecord(ctx, id))

	res, err := s.Save(ctx)
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.Greater(t, int64(res.ID), int64(id))
}

func TestSave_PayloadIsDeepCopy(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	s := New(st, nil)

	require.NoError(t, s.SetEPImage(0, testutil.Image("ep")))
	_, err := s.AddWarpYarn(0, "w")
	require.NoError(t, err)

	res, err := s.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, s.AttachYarnMedia(0, Warp, 0, testutil.Photo("later")))
	require.NoError(t, s.AddProblem(0, testutil.Photo("later")))
	s.AddPage()

	saved := st.records[res.ID]
	require.Len(t, saved.Pages, 1)
	assert.Empty(t, saved.Pages[0].WarpYarns[0].Media)
	assert.Empty(t, saved.Pages[0].Problems)
}

func TestSave_WriteFailureReturnsToComposing(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.failWrites = errors.New("disk full")
	s := New(st, nil)
	require.NoError(t, s.SetEPImage(0, testutil.Image("ep")))

	_, err := s.Save(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, Composing, s.State())
	assert.Equal(t, model.ID(0), s.ActiveID())
}

func TestSave_LookupErrorIsNotTreatedAsMissing(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	id, err := st.InsertRecord(ctx, testutil.Record("r", nil, "a"))
	require.NoError(t, err)
	s := New(st, nil)
	require.NoError(t, s.BeginEditRecord(ctx, id))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Save(cctx)
	require.Error(t, err)
	assert.False(t, store.IsNotFound(err))

	all, err := st.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "no fallback insert on a failed lookup")
}

func TestReset_KeepsProject(t *testing.T) {
	s := New(newMemStore(), nil)
	s.BeginEdit(testutil.Record("r", model.Ref(3), "a", "b"))

	s.Reset()
	assert.Equal(t, model.ID(0), s.ActiveID())
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.Name())
	require.NotNil(t, s.Project())
	assert.Equal(t, model.ID(3), *s.Project())

	p, err := s.Page(0)
	require.NoError(t, err)
	assert.False(t, p.HasEPImage())
}

func TestMediaHelpers_RejectAudio(t *testing.T) {
	s := New(newMemStore(), nil)
	_, err := s.AddWarpYarn(0, "w")
	require.NoError(t, err)

	audio := model.MediaEntry{Kind: model.MediaAudio, Data: []byte("a")}
	assert.ErrorIs(t, s.AddProblem(0, audio), ErrMediaKind)
	assert.ErrorIs(t, s.AddProduct(0, audio), ErrMediaKind)
	assert.ErrorIs(t, s.AttachYarnMedia(0, Warp, 0, audio), ErrMediaKind)
	assert.ErrorIs(t, s.AddProblem(0, model.MediaEntry{Kind: "sketch"}), ErrMediaKind)

	p, err := s.Page(0)
	require.NoError(t, err)
	assert.Empty(t, p.Problems)
	assert.Empty(t, p.WarpYarns[0].Media)
}

func TestBeginEdit_KeepsLegacyAudio(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	page := testutil.Page("a")
	page.Products = append(page.Products, model.MediaEntry{Kind: model.MediaAudio, Data: []byte("old")})
	st.records[1] = model.Record{ID: 1, Pages: []model.Page{page}}

	s := New(st, nil)
	require.NoError(t, s.BeginEditRecord(ctx, 1))
	_, err := s.Save(ctx)
	require.NoError(t, err)

	assert.Equal(t, model.MediaAudio, st.records[1].Pages[0].Products[1].Kind)
}

func TestYarnEditing(t *testing.T) {
	s := New(newMemStore(), nil)

	i, err := s.AddWeftYarn(0, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	i, err = s.AddWeftYarn(0, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	require.NoError(t, s.RemoveWeftYarn(0, 0))
	assert.ErrorIs(t, s.RemoveWeftYarn(0, 4), ErrYarnIndex)
	assert.ErrorIs(t, s.RemoveWarpYarn(0, 0), ErrYarnIndex)
	assert.ErrorIs(t, s.AttachYarnMedia(0, Weft, 2, testutil.Photo("x")), ErrYarnIndex)
	_, err = s.AddWarpYarn(3, "x")
	assert.ErrorIs(t, err, ErrPageIndex)

	p, err := s.Page(0)
	require.NoError(t, err)
	require.Len(t, p.WeftYarns, 1)
	assert.Equal(t, "b", p.WeftYarns[0].Text)
}

func TestStateAndFieldNames(t *testing.T) {
	assert.Equal(t, "composing", Composing.String())
	assert.Equal(t, "committed", Committed.String())
	assert.Equal(t, "unknown", State(42).String())

	assert.Equal(t, "warp[2].text", WarpText(2).String())
	assert.Equal(t, "weft[0].text", WeftText(0).String())
	assert.Equal(t, "density", Density().String())
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource()
	h := Handle("page")

	_, ok := src.Value(h, Density())
	assert.False(t, ok)

	src.Set(h, Density(), "30")
	v, ok := src.Value(h, Density())
	assert.True(t, ok)
	assert.Equal(t, "30", v)

	src.Forget(h)
	_, ok = src.Value(h, Density())
	assert.False(t, ok)
}
