package history

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/dtypes/internal/typesystem"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path, log.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordEvolvesCompatibly(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "history.db"))

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	first, err := s.Record(ctx, "metrics", typesystem.TypeOf([]any{}))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Seq)
	assert.True(t, typesystem.Equal(typesystem.NewList(nil), first.Type))
	assert.Equal(t, clock, first.CreatedAt)

	second, err := s.Record(ctx, "metrics", typesystem.TypeOf([]any{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Seq)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, typesystem.Equal(typesystem.NewList(typesystem.NewNumber()), second.Type), "got %s", second.Type)

	// same descriptor again: no new version
	again, err := s.Record(ctx, "metrics", typesystem.TypeOf([]any{3}))
	require.NoError(t, err)
	assert.Equal(t, second.ID, again.ID)
	assert.Equal(t, 2, again.Seq)

	versions, err := s.History(ctx, "metrics")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Seq)
	assert.Equal(t, 2, versions[1].Seq)
	assert.Equal(t, second.ID, versions[1].ID)
}

func TestRecordRejectsIncompatible(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "history.db"))

	_, err := s.Record(ctx, "labels", typesystem.NewList(typesystem.NewNumber()))
	require.NoError(t, err)

	incoming := typesystem.NewList(typesystem.NewString())
	_, err = s.Record(ctx, "labels", incoming)
	var incompatible *IncompatibleError
	require.True(t, errors.As(err, &incompatible), "got %v", err)
	assert.Equal(t, "labels", incompatible.Artifact)
	assert.True(t, typesystem.Equal(incoming, incompatible.Incoming))
	assert.Contains(t, err.Error(), `"labels"`)

	versions, err := s.History(ctx, "labels")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestUnionWidensAcrossVersions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "history.db"))

	open := typesystem.NewUnion(typesystem.NewNumber(), typesystem.NewUnknown())
	_, err := s.Record(ctx, "score", open)
	require.NoError(t, err)

	v, err := s.Record(ctx, "score", typesystem.NewString())
	require.NoError(t, err)
	want := typesystem.NewUnion(typesystem.NewNumber(), typesystem.NewString())
	assert.True(t, typesystem.Equal(want, v.Type), "got %s", v.Type)

	// the wildcard is used up
	_, err = s.Record(ctx, "score", typesystem.NewBoolean())
	var incompatible *IncompatibleError
	assert.True(t, errors.As(err, &incompatible))
}

func TestLatestAndNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "history.db"))

	_, err := s.Latest(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.History(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	d := typesystem.NewDictionary(map[string]typesystem.Type{"a": typesystem.NewBoolean()})
	recorded, err := s.Record(ctx, "config", d)
	require.NoError(t, err)

	latest, err := s.Latest(ctx, "config")
	require.NoError(t, err)
	assert.Equal(t, recorded.ID, latest.ID)
	assert.True(t, typesystem.Equal(d, latest.Type))
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	_, err = s.Record(ctx, "a", typesystem.NewString())
	require.NoError(t, err)
	_, err = s.Record(ctx, "b", typesystem.NewNumber())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = openTestStore(t, path)
	names, err := s.Artifacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	latest, err := s.Latest(ctx, "b")
	require.NoError(t, err)
	assert.True(t, typesystem.Equal(typesystem.NewNumber(), latest.Type))
}

func TestConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "history.db"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Record(ctx, "shared", typesystem.NewNumber())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	versions, err := s.History(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}
