package recipeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/infrastructure/config"
)

const sampleResponse = `{
  "results": [
    {
      "id": 715538,
      "title": "Tomato Egg Scramble",
      "readyInMinutes": 15,
      "dishTypes": ["breakfast"],
      "diets": ["vegetarian"],
      "usedIngredients": [
        {"name": "eggs", "amount": 3, "unit": ""},
        {"name": "tomato", "amount": 2, "unit": "pieces"}
      ],
      "missedIngredients": [
        {"name": "chives", "amount": 1, "unit": "tbsp"}
      ],
      "analyzedInstructions": [
        {"steps": [{"step": "Whisk eggs."}, {"step": "Cook with tomato."}]}
      ]
    }
  ]
}`

func testConfig(url string) config.RecipeAPIConfig {
	return config.RecipeAPIConfig{
		Enabled:      true,
		BaseURL:      url,
		APIKey:       "test-key",
		Timeout:      2 * time.Second,
		RetryCount:   1,
		RequestsPerS: 100,
		Burst:        10,
		MaxRecipes:   5,
	}
}

func TestSearchByIngredientNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recipes/complexSearch", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "egg,tomato", r.URL.Query().Get("includeIngredients"))
		assert.Equal(t, "3", r.URL.Query().Get("number"))
		assert.Equal(t, "20", r.URL.Query().Get("maxReadyTime"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	recipes, err := c.SearchByIngredientNames(context.Background(), []string{"Tomato", "egg"},
		domain.Preferences{MaxCookMinutes: 20, MaxResults: 3})
	require.NoError(t, err)
	require.Len(t, recipes, 1)

	r := recipes[0]
	assert.Equal(t, "spoonacular:715538", r.SourceID)
	assert.Equal(t, "Tomato Egg Scramble", r.Title)
	assert.Equal(t, 15, r.CookMinutes)
	assert.Equal(t, []string{"breakfast", "vegetarian"}, r.Tags)
	require.Len(t, r.Ingredients, 3)
	assert.Equal(t, domain.FreeTextIngredient{Name: "chives", Quantity: 1, Unit: "tbsp"}, r.Ingredients[2])
	assert.Equal(t, []string{"Whisk eggs.", "Cook with tomato."}, r.Steps)
}

func TestSearchByIngredientNames_EmptyNamesSkipsCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	recipes, err := NewClient(testConfig(srv.URL)).SearchByIngredientNames(context.Background(), []string{" "}, domain.Preferences{})
	require.NoError(t, err)
	assert.Empty(t, recipes)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSearchByIngredientNames_RetriesThenFails(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).SearchByIngredientNames(context.Background(), []string{"milk"}, domain.Preferences{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSearchByIngredientNames_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).SearchByIngredientNames(context.Background(), []string{"milk"}, domain.Preferences{})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSearchByIngredientNames_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(testConfig(srv.URL)).SearchByIngredientNames(ctx, []string{"milk"}, domain.Preferences{})
	assert.Error(t, err)
}
