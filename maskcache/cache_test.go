package maskcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/fresnel"
)

func testSpec() fresnel.ZonePlateSpec {
	return fresnel.ZonePlateSpec{Width: 0.01, Zones: 8, Offset: 0.75, Wavelength: 500e-9, Duty: 0.25}
}

func TestKeyIsCanonical(t *testing.T) {
	a := Key{Spec: testSpec(), Size: 64}
	b := Key{Spec: testSpec(), Size: 64}
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, a.Digest(), b.Digest())
	assert.Len(t, a.Digest(), 64)

	c := a
	c.Size = 66
	assert.NotEqual(t, a.Digest(), c.Digest())

	d := a
	d.Spec.Obstruction = 1e-9
	assert.NotEqual(t, a.String(), d.String())
	assert.Contains(t, d.String(), "obstruction=1e-09")

	e := a
	e.Spec.BarThickness, e.Spec.BarSpacing = 0.0002, 0.01
	assert.NotEqual(t, a.Digest(), e.Digest())
	assert.Contains(t, a.String(), "bars=0/0")
	assert.Contains(t, e.String(), "bars=0.0002/0.01")
}

// exerciseStore runs the get/put contract shared by every backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	key := Key{Spec: testSpec(), Size: 48}

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	built, hit, err := GetOrBuild(ctx, store, key.Spec, key.Size, 2)
	require.NoError(t, err)
	assert.False(t, hit)

	cached, hit, err := GetOrBuild(ctx, store, key.Spec, key.Size, 2)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, built.Equal(cached))

	other := key
	other.Spec.Duty = 0.2
	_, ok, err = store.Get(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)

	barred := key
	barred.Spec.BarThickness, barred.Spec.BarSpacing = 0.0002, 0.001
	_, ok, err = store.Get(ctx, barred)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Get(ctx, Key{Spec: key.Spec, Size: 50})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)
	assert.Equal(t, 1, store.Len())
}

func TestDirStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStore(dir)
	require.NoError(t, err)
	store.Now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	// Files that are not masks are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.fits"), []byte("not a fits file"), 0600))

	exerciseStore(t, store)

	name, ok, err := store.Path(context.Background(), Key{Spec: testSpec(), Size: 48})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "FresnelArray_20240102_030405.fits", filepath.Base(name))

	// A second mask written in the same second gets a distinct name
	_, _, err = GetOrBuild(context.Background(), store, testSpec(), 32, 1)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "FresnelArray_20240102_030405_1.fits"))
}

func TestBadgerStoreInMemory(t *testing.T) {
	store, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer store.Close()
	exerciseStore(t, store)
}

func TestBadgerStorePersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenBadger(BadgerConfig{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	built, _, err := GetOrBuild(ctx, store, testSpec(), 40, 1)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer store.Close()
	got, ok, err := store.Get(ctx, Key{Spec: testSpec(), Size: 40})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, built.Equal(got))
}

func TestOpenBadgerRequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestGetOrBuildWithoutStore(t *testing.T) {
	m, hit, err := GetOrBuild(context.Background(), nil, testSpec(), 16, 1)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 16, m.Size)

	_, _, err = GetOrBuild(context.Background(), nil, testSpec(), 15, 1)
	assert.ErrorIs(t, err, fresnel.ErrInvalidSize)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	_, _, err = GetOrBuild(ctx, store, testSpec(), 16, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
