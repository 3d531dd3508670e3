package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/locations-gateway/internal/config"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/storage"
	"github.com/pribylovaa/locations-gateway/internal/upstream"
	"github.com/pribylovaa/locations-gateway/internal/upstream/transport"
	"github.com/pribylovaa/locations-gateway/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type deps struct {
	up      *mocks.MockUpstream
	journal *mocks.MockJournal
	archive *mocks.MockImportArchive
}

func testConfig() config.Config {
	return config.Config{
		Tree: config.TreeConfig{
			PageSize:      10,
			SessionTTL:    time.Minute,
			SweepInterval: 5 * time.Millisecond,
		},
	}
}

func newService(t *testing.T) (*Service, deps) {
	t.Helper()

	ctrl := gomock.NewController(t)
	d := deps{
		up:      mocks.NewMockUpstream(ctrl),
		journal: mocks.NewMockJournal(ctrl),
		archive: mocks.NewMockImportArchive(ctrl),
	}

	return New(d.up, d.journal, d.archive, testConfig(), nil), d
}

func adminCtx() context.Context {
	return transport.WithRequestContext(context.Background(), "req-1", "token", "admin")
}

func page(items ...models.Location) *models.Page {
	return &models.Page{Items: items}
}

func childIDs(children []models.Location) []int64 {
	out := make([]int64, 0, len(children))
	for _, c := range children {
		out = append(out, c.ID)
	}
	return out
}

// loadCountry раскрывает корень с одной страной id=1 и её районы districts.
func loadCountry(t *testing.T, s *Service, d deps, districts ...models.Location) {
	t.Helper()
	ctx := adminCtx()

	d.up.EXPECT().
		Children(gomock.Any(), models.LevelCountries, int64(0), 0, 10).
		Return(page(models.Location{ID: 1, Name: "Uganda"}), nil)
	d.up.EXPECT().
		Children(gomock.Any(), models.LevelDistricts, int64(1), 0, 10).
		Return(page(districts...), nil)

	s.RootView(ctx)
	v, err := s.Expand(ctx, models.LevelCountries, 1)
	require.NoError(t, err)
	require.Len(t, v.Children, len(districts))
}

func TestRootView_LoadsOnce(t *testing.T) {
	t.Parallel()
	s, d := newService(t)
	ctx := adminCtx()

	d.up.EXPECT().
		Children(gomock.Any(), models.LevelCountries, int64(0), 0, 10).
		Return(page(models.Location{ID: 2, Name: "Kenya"}, models.Location{ID: 1, Name: "Uganda"}), nil).
		Times(1)

	v := s.RootView(ctx)
	require.True(t, v.Expanded)
	require.Equal(t, []int64{1, 2}, childIDs(v.Items()))

	v = s.RootView(ctx)
	require.Len(t, v.Children, 2)
}

func TestNode_NotLoaded(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	_, err := s.Toggle(adminCtx(), models.LevelDistricts, 5)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Node(adminCtx(), models.Level(42), 5)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLoadMore_MapsTreeErrors(t *testing.T) {
	t.Parallel()
	s, d := newService(t)
	ctx := adminCtx()

	d.up.EXPECT().
		Children(gomock.Any(), models.LevelCountries, int64(0), 0, 10).
		Return(page(models.Location{ID: 1, Name: "Uganda"}), nil)

	_, err := s.LoadMoreRoot(ctx)
	require.ErrorIs(t, err, ErrPrecondition)

	d.up.EXPECT().
		Children(gomock.Any(), models.LevelDistricts, int64(1), 0, 10).
		Return(nil, upstream.ErrUnavailable)

	v, err := s.Expand(ctx, models.LevelCountries, 1)
	require.NoError(t, err)
	require.NotEmpty(t, v.Error)
	require.Empty(t, v.Children)

	_, err = s.LoadMore(ctx, models.LevelCountries, 1)
	require.ErrorIs(t, err, ErrPrecondition)
}

func TestCollapse_KeepsCache(t *testing.T) {
	t.Parallel()
	s, d := newService(t)
	ctx := adminCtx()

	loadCountry(t, s, d, models.Location{ID: 10, Name: "Gulu"})

	v, err := s.Collapse(ctx, models.LevelCountries, 1)
	require.NoError(t, err)
	require.False(t, v.Expanded)
	require.Nil(t, v.Children)
	require.Equal(t, 1, v.ChildCount)

	v, err = s.Toggle(ctx, models.LevelCountries, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{10}, childIDs(v.Items()))
}

func TestSessions_PerActor(t *testing.T) {
	t.Parallel()
	s, d := newService(t)

	d.up.EXPECT().
		Children(gomock.Any(), models.LevelCountries, int64(0), 0, 10).
		Return(page(models.Location{ID: 1, Name: "Uganda"}), nil).
		Times(2)

	s.RootView(transport.WithRequestContext(context.Background(), "r1", "", "alice"))
	s.RootView(transport.WithRequestContext(context.Background(), "r2", "", "bob"))
	require.Equal(t, 2, s.Sessions())
}

func TestSweep_EvictsIdle(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.treeFor(transport.WithRequestContext(context.Background(), "r1", "", "alice"))
	now = now.Add(2 * time.Minute)
	s.treeFor(transport.WithRequestContext(context.Background(), "r2", "", "bob"))

	require.Equal(t, 1, s.sweep(time.Minute))
	require.Equal(t, 1, s.Sessions())
}

func TestStartSweeper(t *testing.T) {
	t.Parallel()

	t.Run("disabled ttl", func(t *testing.T) {
		cfg := testConfig()
		cfg.Tree.SessionTTL = 0
		s := New(nil, nil, nil, cfg, nil)

		require.Error(t, s.StartSweeper(context.Background()))
	})

	t.Run("stops on cancel", func(t *testing.T) {
		s := New(nil, nil, nil, testConfig(), nil)
		s.treeFor(context.Background())
		s.mu.Lock()
		s.sessions[anonymous].lastSeen = time.Now().Add(-time.Hour)
		s.mu.Unlock()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.StartSweeper(ctx) }()

		require.Eventually(t, func() bool { return s.Sessions() == 0 }, time.Second, 5*time.Millisecond)

		cancel()
		require.NoError(t, <-done)
	})
}

func TestSearch_PartialSuccess(t *testing.T) {
	t.Parallel()
	s, d := newService(t)

	for _, level := range models.Levels() {
		call := d.up.EXPECT().Search(gomock.Any(), level, "gu", 0, 10)
		switch level {
		case models.LevelDistricts:
			call.Return([]models.Location{{ID: 10, Name: "Gulu"}}, nil)
		case models.LevelVillages:
			call.Return([]models.Location{{ID: 900, Name: "Gurun"}}, nil)
		case models.LevelCounties:
			call.Return(nil, upstream.ErrUnavailable)
		default:
			call.Return([]models.Location{}, nil)
		}
	}

	res, err := s.Search(adminCtx(), "  gu ")
	require.NoError(t, err)
	require.Equal(t, "gu", res.Query)
	require.Len(t, res.Items, 2)
	require.Equal(t, models.LevelDistricts, res.Items[0].Level)
	require.Equal(t, models.LevelVillages, res.Items[1].Level)
	require.Equal(t, []models.Level{models.LevelCounties}, res.Failed)
}

func TestSearch_BlankQuery(t *testing.T) {
	t.Parallel()
	s, _ := newService(t)

	res, err := s.Search(adminCtx(), "   ")
	require.NoError(t, err)
	require.Empty(t, res.Items)
	require.NotNil(t, res.Items)
}

func TestSearch_CallerCancelled(t *testing.T) {
	t.Parallel()
	s, d := newService(t)

	d.up.EXPECT().
		Search(gomock.Any(), gomock.Any(), "gu", 0, 10).
		DoAndReturn(func(ctx context.Context, _ models.Level, _ string, _, _ int) ([]models.Location, error) {
			return nil, ctx.Err()
		}).
		AnyTimes()

	ctx, cancel := context.WithCancel(adminCtx())
	cancel()

	_, err := s.Search(ctx, "gu")
	require.ErrorIs(t, err, context.Canceled)
}

func TestAdd_RefreshesParent(t *testing.T) {
	t.Parallel()
	s, d := newService(t)
	ctx := adminCtx()

	loadCountry(t, s, d, models.Location{ID: 10, Name: "Gulu"})

	d.up.EXPECT().
		Create(gomock.Any(), models.LevelDistricts, int64(1), "Lira", "").
		Return(models.Location{ID: 11, Name: "Lira"}, nil)
	d.journal.EXPECT().
		Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e models.JournalEntry) (models.JournalEntry, error) {
			require.Equal(t, models.OpAdd, e.Op)
			require.Equal(t, "req-1", e.RequestID)
			require.Equal(t, "admin", e.Actor)
			require.Equal(t, int64(11), e.TargetID)
			require.Equal(t, models.OutcomeOK, e.Outcome)
			return e, nil
		})
	d.up.EXPECT().
		Children(gomock.Any(), models.LevelDistricts, int64(1), 0, 10).
		Return(page(models.Location{ID: 10, Name: "Gulu"}, models.Location{ID: 11, Name: "Lira"}), nil)

	loc, err := s.Add(ctx, AddInput{Level: models.LevelDistricts, ParentID: 1, Name: "  Lira "})
	require.NoError(t, err)
	require.Equal(t, int64(11), loc.ID)

	v, err := s.Node(ctx, models.LevelCountries, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{10, 11}, childIDs(v.Items()))
}

func TestAdd_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   AddInput
	}{
		{name: "empty name", in: AddInput{Level: models.LevelCountries, Name: "  "}},
		{name: "missing parent", in: AddInput{Level: models.LevelDistricts, Name: "Gulu"}},
		{name: "country with parent", in: AddInput{Level: models.LevelCountries, ParentID: 3, Name: "Kenya"}},
		{name: "flag on district", in: AddInput{Level: models.LevelDistricts, ParentID: 1, Name: "Gulu", Flag: "x"}},
		{name: "unknown level", in: AddInput{Name: "x"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, _ := newService(t)

			_, err := s.Add(adminCtx(), tc.in)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestAdd_UpstreamConflict(t *testing.T) {
	t.Parallel()
	s, d := newService(t)

	d.up.EXPECT().
		Create(gomock.Any(), models.LevelCountries, int64(0), "Kenya", "🇰🇪").
		Return(models.Location{}, &upstream.StatusError{Status: 409, Message: "exists"})
	d.journal.EXPECT().
		Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e models.JournalEntry) (models.JournalEntry, error) {
			require.Equal(t, models.OutcomeFailed, e.Outcome)
			require.NotEmpty(t, e.Error)
			return e, nil
		})

	_, err := s.Add(adminCtx(), AddInput{Level: models.LevelCountries, Name: "Kenya", Flag: "🇰🇪"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestEdit_NotLoaded_NoRefresh(t *testing.T) {
	t.Parallel()
	s, d := newService(t)

	d.up.EXPECT().
		Rename(gomock.Any(), models.LevelVillages, int64(77), "Awach").
		Return(models.Location{ID: 77, Name: "Awach"}, nil)
	d.journal.EXPECT().Record(gomock.Any(), gomock.Any()).Return(models.JournalEntry{}, storage.ErrDuplicate)

	loc, err := s.Edit(adminCtx(), models.LevelVillages, 77, "Awach")
	require.NoError(t, err)
	require.Equal(t, "Awach", loc.Name)
}

func TestDelete_ForgetsAndRefreshes(t *testing.T) {
	t.Parallel()
	s, d := newService(t)
	ctx := adminCtx()

	loadCountry(t, s, d, models.Location{ID: 10, Name: "Gulu"}, models.Location{ID: 11, Name: "Lira"})

	d.up.EXPECT().Delete(gomock.Any(), models.LevelDistricts, int64(10)).Return(nil)
	d.journal.EXPECT().
		Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e models.JournalEntry) (models.JournalEntry, error) {
			require.Equal(t, int64(1), e.ParentID)
			return e, nil
		})
	d.up.EXPECT().
		Children(gomock.Any(), models.LevelDistricts, int64(1), 0, 10).
		Return(page(models.Location{ID: 11, Name: "Lira"}), nil)

	require.NoError(t, s.Delete(ctx, models.LevelDistricts, 10))

	_, err := s.Node(ctx, models.LevelDistricts, 10)
	require.ErrorIs(t, err, ErrNotFound)

	v, err := s.Node(ctx, models.LevelCountries, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{11}, childIDs(v.Items()))
}

func TestDelete_UpstreamNotFound(t *testing.T) {
	t.Parallel()
	s, d := newService(t)

	d.up.EXPECT().Delete(gomock.Any(), models.LevelParishes, int64(5)).
		Return(&upstream.StatusError{Status: 404})
	d.journal.EXPECT().Record(gomock.Any(), gomock.Any()).Return(models.JournalEntry{}, errors.New("db down"))

	err := s.Delete(adminCtx(), models.LevelParishes, 5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBulkImport(t *testing.T) {
	t.Parallel()

	data := []byte(`[{"name":"Gulu"},{"name":"Lira"}]`)

	t.Run("archives and imports", func(t *testing.T) {
		t.Parallel()
		s, d := newService(t)

		d.archive.EXPECT().
			Put(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, f models.ImportFile) (string, error) {
				require.Equal(t, "admin", f.Actor)
				require.Equal(t, data, f.Data)
				return "imports/districts/key", nil
			})
		d.up.EXPECT().
			BulkCreate(gomock.Any(), models.LevelDistricts, int64(1), "districts.json", data).
			Return(models.BulkResult{Level: models.LevelDistricts, ParentID: 1, Imported: 2}, nil)
		d.journal.EXPECT().Record(gomock.Any(), gomock.Any()).Return(models.JournalEntry{}, nil)

		res, err := s.BulkImport(adminCtx(), BulkImportInput{
			Level: models.LevelDistricts, ParentID: 1, Filename: "districts.json", Data: data,
		})
		require.NoError(t, err)
		require.Equal(t, 2, res.Imported)
		require.Equal(t, "imports/districts/key", res.ArchiveKey)
	})

	t.Run("archive failure is tolerated", func(t *testing.T) {
		t.Parallel()
		s, d := newService(t)

		d.archive.EXPECT().Put(gomock.Any(), gomock.Any()).Return("", errors.New("s3 down"))
		d.up.EXPECT().
			BulkCreate(gomock.Any(), models.LevelCountries, int64(0), "c.json", data).
			Return(models.BulkResult{Imported: 2}, nil)
		d.journal.EXPECT().Record(gomock.Any(), gomock.Any()).Return(models.JournalEntry{}, nil)

		res, err := s.BulkImport(adminCtx(), BulkImportInput{
			Level: models.LevelCountries, Filename: "c.json", Data: data,
		})
		require.NoError(t, err)
		require.Empty(t, res.ArchiveKey)
	})

	t.Run("rejects bad files", func(t *testing.T) {
		t.Parallel()
		s, _ := newService(t)

		for _, in := range []BulkImportInput{
			{Level: models.LevelCountries, Filename: "c.csv", Data: data},
			{Level: models.LevelCountries, Filename: "c.json", Data: []byte("{oops")},
			{Level: models.LevelCountries, Filename: "c.json"},
			{Level: models.LevelVillages, Filename: "v.json", Data: data},
		} {
			_, err := s.BulkImport(adminCtx(), in)
			require.ErrorIs(t, err, ErrInvalidArgument)
		}
	})
}

func TestJournal(t *testing.T) {
	t.Parallel()
	s, d := newService(t)

	d.journal.EXPECT().Recent(gomock.Any(), 20).Return(nil, nil)
	items, err := s.Journal(adminCtx(), 20)
	require.NoError(t, err)
	require.NotNil(t, items)

	d.journal.EXPECT().Recent(gomock.Any(), 5).Return(nil, errors.New("db down"))
	_, err = s.Journal(adminCtx(), 5)
	require.ErrorIs(t, err, ErrInternal)

	_, err = s.Journal(adminCtx(), -1)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
