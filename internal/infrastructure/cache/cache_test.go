package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/infrastructure/config"
	"recipe-discovery/internal/pkg/common"
)

func newTestManager(t *testing.T, maxSize int) (*Manager, *time.Time) {
	t.Helper()
	m := NewManager(config.CacheConfig{MaxSize: maxSize, TTL: time.Minute})
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	t.Cleanup(func() { m.Close() })
	return m, &clock
}

func TestManager_GetSet(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager(t, 10)

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "k", "v"))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	*clock = clock.Add(2 * time.Minute)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(2), stats["misses"])
}

func TestManager_EvictsLeastUsedWhenFull(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager(t, 2)

	require.NoError(t, m.Set(ctx, "a", "1"))
	*clock = clock.Add(time.Second)
	require.NoError(t, m.Set(ctx, "b", "2"))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "c", "3"))

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = m.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestNew(t *testing.T) {
	c, err := New(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(config.CacheConfig{Enabled: true, Type: "memory", MaxSize: 1, TTL: time.Minute})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.NoError(t, c.Close())

	_, err = New(config.CacheConfig{Enabled: true, Type: "memcached"})
	assert.Error(t, err)
}

type countingExternal struct {
	calls   int
	recipes []domain.ExternalRecipe
	err     error
}

func (c *countingExternal) SearchByIngredientNames(_ context.Context, _ []string, _ domain.Preferences) ([]domain.ExternalRecipe, error) {
	c.calls++
	return c.recipes, c.err
}

type countingGenerator struct {
	calls   int
	recipes []domain.GeneratedRecipe
}

func (c *countingGenerator) Generate(_ context.Context, _ []string, _ domain.Preferences) ([]domain.GeneratedRecipe, error) {
	c.calls++
	return c.recipes, nil
}

func TestWrapExternal(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, 10)
	next := &countingExternal{recipes: []domain.ExternalRecipe{{SourceID: "1", Title: "Soup"}}}

	var hits, misses int
	src := WrapExternal(next, m, func(kind string, hit bool) {
		assert.Equal(t, "external", kind)
		if hit {
			hits++
		} else {
			misses++
		}
	})

	first, err := src.SearchByIngredientNames(ctx, []string{"Milk", "egg"}, domain.Preferences{})
	require.NoError(t, err)
	second, err := src.SearchByIngredientNames(ctx, []string{"EGG", "milk"}, domain.Preferences{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	_, err = src.SearchByIngredientNames(ctx, []string{"milk", "egg"}, domain.Preferences{MaxCookMinutes: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestWrapExternal_ErrorsAndEmptyNotCached(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, 10)

	failing := &countingExternal{err: errors.New("down")}
	src := WrapExternal(failing, m, nil)
	_, err := src.SearchByIngredientNames(ctx, []string{"milk"}, domain.Preferences{})
	assert.Error(t, err)
	_, _ = src.SearchByIngredientNames(ctx, []string{"milk"}, domain.Preferences{})
	assert.Equal(t, 2, failing.calls)

	empty := &countingExternal{}
	src = WrapExternal(empty, m, nil)
	_, _ = src.SearchByIngredientNames(ctx, []string{"egg"}, domain.Preferences{})
	_, _ = src.SearchByIngredientNames(ctx, []string{"egg"}, domain.Preferences{})
	assert.Equal(t, 2, empty.calls)
}

func TestWrapGenerator(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, 10)
	next := &countingGenerator{recipes: []domain.GeneratedRecipe{{Title: "Omelette"}}}

	src := WrapGenerator(next, m, nil)
	for i := 0; i < 3; i++ {
		got, err := src.Generate(ctx, []string{"egg"}, domain.Preferences{Tags: []string{"Quick"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 1, next.calls)

	assert.Same(t, next, WrapGenerator(next, nil, nil))
}

func TestRecipeKey(t *testing.T) {
	a := RecipeKey("external", []string{"b", "A"}, domain.Preferences{Tags: []string{"x", "Y"}})
	b := RecipeKey("external", []string{"a", "b", "a"}, domain.Preferences{Tags: []string{"y", "x"}})
	c := RecipeKey("generated", []string{"a", "b"}, domain.Preferences{Tags: []string{"x", "y"}})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
