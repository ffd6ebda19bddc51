package session_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
	"github.com/KaramelBytes/datapro-cli/internal/session"
	"github.com/KaramelBytes/datapro-cli/internal/table"
)

func sample() *table.Table {
	return table.MustNew(
		table.Numeric("price", 1.5, math.NaN(), 3, 1e-7),
		table.Categorical("code", "001", "002", "", "010"),
		table.Categorical("city", "Oslo", "Lima", "Oslo", ""),
		table.Datetime("seen",
			time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 3, 10, 30, 0, 0, time.UTC),
			time.Time{},
			time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)),
	).WithName("data.csv")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	orig := sample()
	s := session.New("data.csv", orig, dir)
	require.NoError(t, s.Save())

	got, err := session.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "data.csv", got.SourceName)
	assert.Equal(t, orig.Schema(), got.Original.Schema())
	assert.True(t, orig.Equal(got.Original), "reloaded table differs")
	assert.Equal(t, "data.csv", got.Original.Name())
	assert.False(t, got.HasCleaned())
	assert.Same(t, got.Original, got.Current())

	code, _ := got.Original.Column("code")
	assert.Equal(t, "001", code.Str(0))
}

func TestCleanedVariantPersists(t *testing.T) {
	dir := t.TempDir()
	s := session.New("data.csv", sample(), dir)
	require.NoError(t, s.Save())

	cleaned := s.Original.Take([]int{0, 1})
	next := s.WithCleaned(cleaned)
	assert.Nil(t, s.Cleaned, "WithCleaned must not modify the receiver")
	assert.Same(t, cleaned, next.Current())
	require.NoError(t, next.Save())

	got, err := session.Load(dir)
	require.NoError(t, err)
	require.True(t, got.HasCleaned())
	assert.Equal(t, 2, got.CleanedRows)
	assert.True(t, cleaned.Equal(got.Cleaned))
	assert.Equal(t, 4, got.Original.NumRows())
}

func TestSaveRemovesStaleCleaned(t *testing.T) {
	dir := t.TempDir()
	s := session.New("data.csv", sample(), dir)
	require.NoError(t, s.WithCleaned(s.Original).Save())
	_, err := os.Stat(filepath.Join(dir, "cleaned.csv"))
	require.NoError(t, err)

	require.NoError(t, session.New("other.csv", sample(), dir).Save())
	_, err = os.Stat(filepath.Join(dir, "cleaned.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadEmptyDir(t *testing.T) {
	_, err := session.Load(t.TempDir())
	assert.ErrorIs(t, err, errs.ErrNoDataLoaded)
	assert.Equal(t, errs.KindNoDataLoaded, errs.KindOf(err))
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, session.New("data.csv", sample(), dir).Save())
	require.NoError(t, session.Clear(dir))
	_, err := session.Load(dir)
	assert.ErrorIs(t, err, errs.ErrNoDataLoaded)
	require.NoError(t, session.Clear(dir))
}

func TestStoreLifecycle(t *testing.T) {
	dir := t.TempDir()
	st := session.NewStore(dir)
	require.NoError(t, st.Open())

	_, err := st.Current()
	assert.ErrorIs(t, err, errs.ErrNoDataLoaded)
	_, err = st.CommitCleaned(func(o *table.Table) (*table.Table, error) { return o, nil })
	assert.ErrorIs(t, err, errs.ErrNoDataLoaded)

	sess, err := st.Replace("data.csv", sample())
	require.NoError(t, err)
	cur, err := st.Current()
	require.NoError(t, err)
	assert.Same(t, sess.Original, cur)

	_, err = st.CommitCleaned(func(o *table.Table) (*table.Table, error) { return o.Take([]int{0}), nil })
	require.NoError(t, err)
	cur, _ = st.Current()
	assert.Equal(t, 1, cur.NumRows())

	// a fresh store picks up what the first one saved
	other := session.NewStore(dir)
	require.NoError(t, other.Open())
	cur, err = other.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, cur.NumRows())

	require.NoError(t, st.Clear())
	_, err = st.Session()
	assert.ErrorIs(t, err, errs.ErrNoDataLoaded)
	_, err = os.Stat(filepath.Join(dir, "session.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestReplaceSavesBeforeCleanup(t *testing.T) {
	dir := t.TempDir()
	st := session.NewStore(dir)
	_, err := st.Replace("first.csv", sample())
	require.NoError(t, err)

	// a cleaned.csv that cannot be removed must not cost the new session
	stuck := filepath.Join(dir, "cleaned.csv")
	require.NoError(t, os.MkdirAll(filepath.Join(stuck, "keep"), 0o755))

	next, err := st.Replace("second.csv", sample().Take([]int{0, 1}))
	require.NoError(t, err)
	sess, err := st.Session()
	require.NoError(t, err)
	assert.Equal(t, next.ID, sess.ID)

	got, err := session.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, next.ID, got.ID)
	assert.Equal(t, "second.csv", got.SourceName)
	assert.Equal(t, 2, got.Original.NumRows())
	assert.False(t, got.HasCleaned())
}

func TestFailedCommitKeepsPriorCleaned(t *testing.T) {
	dir := t.TempDir()
	st := session.NewStore(dir)
	_, err := st.Replace("data.csv", sample())
	require.NoError(t, err)
	_, err = st.CommitCleaned(func(o *table.Table) (*table.Table, error) { return o.Take([]int{0, 1}), nil })
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(dir, "cleaned.csv"))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = st.CommitCleaned(func(*table.Table) (*table.Table, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	cur, _ := st.Current()
	assert.Equal(t, 2, cur.NumRows())
	after, err := os.ReadFile(filepath.Join(dir, "cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCommitsAreSerialized(t *testing.T) {
	st := session.NewStore("")
	_, err := st.Replace("data.csv", sample())
	require.NoError(t, err)

	var inFlight, maxInFlight atomic.Int32
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		rows := []int{i % 4}
		g.Go(func() error {
			_, err := st.CommitCleaned(func(o *table.Table) (*table.Table, error) {
				n := inFlight.Add(1)
				defer inFlight.Add(-1)
				for {
					m := maxInFlight.Load()
					if n <= m || maxInFlight.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				return o.Take(rows), nil
			})
			return err
		})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			cur, err := st.Current()
			if err != nil || cur == nil {
				t.Errorf("reader saw no table: %v", err)
				return
			}
		}
	}()
	require.NoError(t, g.Wait())
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	sess, err := st.Session()
	require.NoError(t, err)
	assert.Equal(t, 4, sess.Original.NumRows(), "original must never change")
	assert.Equal(t, 1, sess.Current().NumRows())
}
