package templatecache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pjanec/simhost/internal/ids"
	"github.com/pjanec/simhost/internal/lifecycle"
	"github.com/pjanec/simhost/internal/world"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := NewMemCache()
	ctx := context.Background()

	m := Manifest{
		DisType:        7,
		Descriptors:    []uint32{1, 2},
		InstanceCounts: map[uint32]int{1: 1, 2: 4},
	}

	id, err := c.Put(ctx, m)
	require.NoError(t, err)
	require.True(t, id.Defined())

	got, err := c.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestPutIsContentAddressed(t *testing.T) {
	c := NewMemCache()
	ctx := context.Background()

	m := Manifest{DisType: 7, Descriptors: []uint32{1, 2}}

	id1, err := c.Put(ctx, m)
	require.NoError(t, err)
	id2, err := c.Put(ctx, m)
	require.NoError(t, err)
	require.Equal(t, id1, id2, "identical manifests must hash to the same CID")

	other := Manifest{DisType: 7, Descriptors: []uint32{1, 2, 3}}
	id3, err := c.Put(ctx, other)
	require.NoError(t, err)
	require.NotEqual(t, id1, id3)
}

func TestResolveAndGetByDisType(t *testing.T) {
	c := NewMemCache()
	ctx := context.Background()

	_, ok := c.Resolve(7)
	require.False(t, ok)

	m := Manifest{DisType: 7, Descriptors: []uint32{1}, InstanceCounts: map[uint32]int{1: 2}}
	id, err := c.Put(ctx, m)
	require.NoError(t, err)

	resolved, ok := c.Resolve(7)
	require.True(t, ok)
	require.Equal(t, id, resolved)

	got, ok, err := c.GetByDisType(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, m, got)

	_, ok, err = c.GetByDisType(ctx, 99)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolveFollowsLatestPut(t *testing.T) {
	c := NewMemCache()
	ctx := context.Background()

	first := Manifest{DisType: 7, Descriptors: []uint32{1}}
	_, err := c.Put(ctx, first)
	require.NoError(t, err)

	second := Manifest{DisType: 7, Descriptors: []uint32{1, 2}}
	id2, err := c.Put(ctx, second)
	require.NoError(t, err)

	resolved, ok := c.Resolve(7)
	require.True(t, ok)
	require.Equal(t, id2, resolved)

	got, ok, err := c.GetByDisType(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second, got)
}

func TestRegisterFromManifestWiresTemplateDatabase(t *testing.T) {
	c := NewMemCache()
	ctx := context.Background()
	db := lifecycle.NewTemplateDatabase()

	m := Manifest{
		DisType:        7,
		Descriptors:    []uint32{1, 2},
		InstanceCounts: map[uint32]int{2: 3},
	}
	_, err := c.Put(ctx, m)
	require.NoError(t, err)

	applied := false
	apply := func(w *world.World, e ids.Entity, preserveExisting bool) error {
		applied = true
		return nil
	}

	require.NoError(t, RegisterFromManifest(ctx, c, db, 7, apply))

	entry, ok := db.Lookup(7)
	require.True(t, ok)
	require.Equal(t, []uint32{1, 2}, entry.Descriptors)
	require.Equal(t, 3, entry.InstanceCounter(7, 2))
	require.Equal(t, 1, entry.InstanceCounter(7, 1))

	require.NoError(t, entry.Apply(nil, ids.Entity{}, false))
	require.True(t, applied)
}

func TestRegisterFromManifestMissingDisTypeErrors(t *testing.T) {
	c := NewMemCache()
	db := lifecycle.NewTemplateDatabase()

	err := RegisterFromManifest(context.Background(), c, db, 42, func(*world.World, ids.Entity, bool) error { return nil })
	require.Error(t, err)
	var missing *lifecycle.ErrMissingTemplate
	require.ErrorAs(t, err, &missing)
	require.Equal(t, uint32(42), missing.DisType)
}
