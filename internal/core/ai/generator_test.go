package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/infrastructure/config"
)

type fakeCompleter struct {
	content string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.content, f.err
}

func TestRecipeGenerator_Generate(t *testing.T) {
	content := "```json\n" + `{"recipes":[
		{"title":" Tomato Omelette ","cook_minutes":15,"difficulty":"Easy","tags":["Quick","quick"],
		 "ingredients":[{"name":"egg","quantity":2,"unit":"piece"},{"name":"","quantity":1,"unit":"g"},{"name":"tomato","quantity":-1,"unit":"pc"}],
		 "steps":["Beat eggs."," ","Cook."]},
		{"title":"","ingredients":[]},
		{"title":"Shakshuka","difficulty":"expert","cook_minutes":-5}
	]}` + "\n```"
	fc := &fakeCompleter{content: content}

	recipes, err := NewRecipeGenerator(fc, 5).Generate(context.Background(), []string{"egg", "tomato"},
		domain.Preferences{MaxCookMinutes: 30, Difficulty: domain.DifficultyEasy, Tags: []string{"quick"}})
	require.NoError(t, err)
	require.Len(t, recipes, 2)

	first := recipes[0]
	assert.Equal(t, "Tomato Omelette", first.Title)
	assert.Equal(t, domain.DifficultyEasy, first.Difficulty)
	assert.Equal(t, []string{"quick"}, first.Tags)
	assert.Equal(t, []domain.FreeTextIngredient{
		{Name: "egg", Quantity: 2, Unit: "piece"},
		{Name: "tomato", Quantity: 0, Unit: "pc"},
	}, first.Ingredients)
	assert.Equal(t, []string{"Beat eggs.", "Cook."}, first.Steps)

	second := recipes[1]
	assert.Equal(t, domain.Difficulty(""), second.Difficulty)
	assert.Zero(t, second.CookMinutes)

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "egg, tomato")
	assert.Contains(t, fc.prompts[0], "at most 30 minutes")
	assert.Contains(t, fc.prompts[0], "no harder than easy")
}

func TestRecipeGenerator_CapsCount(t *testing.T) {
	fc := &fakeCompleter{content: `{"recipes":[{"title":"A"},{"title":"B"},{"title":"C"}]}`}

	recipes, err := NewRecipeGenerator(fc, 5).Generate(context.Background(), []string{"egg"}, domain.Preferences{MaxResults: 2})
	require.NoError(t, err)
	assert.Len(t, recipes, 2)
	assert.Contains(t, fc.prompts[0], "up to 2 recipes")

	recipes, err = NewRecipeGenerator(fc, 1).Generate(context.Background(), []string{"egg"}, domain.Preferences{})
	require.NoError(t, err)
	assert.Len(t, recipes, 1)
}

func TestRecipeGenerator_Failures(t *testing.T) {
	tests := []struct {
		name string
		fc   *fakeCompleter
	}{
		{"completer error", &fakeCompleter{err: errors.New("boom")}},
		{"empty content", &fakeCompleter{content: "  "}},
		{"not json", &fakeCompleter{content: "sorry, I cannot help"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecipeGenerator(tt.fc, 3).Generate(context.Background(), []string{"egg"}, domain.Preferences{})
			assert.Error(t, err)
		})
	}
}

func TestRecipeGenerator_NoProductsSkipsCall(t *testing.T) {
	fc := &fakeCompleter{}
	recipes, err := NewRecipeGenerator(fc, 3).Generate(context.Background(), nil, domain.Preferences{})
	require.NoError(t, err)
	assert.Empty(t, recipes)
	assert.Empty(t, fc.prompts)
}

func TestOpenRouterClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 512, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}],"usage":{"total_tokens":3}}`))
	}))
	defer srv.Close()

	c := NewOpenRouterClient(config.OpenRouterConfig{
		BaseURL: srv.URL, APIKey: "secret", Model: "test-model", MaxTokens: 512, Timeout: 2 * time.Second,
	})
	got, err := c.Complete(context.Background(), "  hello ")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
}

func TestOpenRouterClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"non 200", http.StatusTooManyRequests, `{"error":"rate limited"}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"bad json", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewOpenRouterClient(config.OpenRouterConfig{BaseURL: srv.URL, Timeout: time.Second})
			_, err := c.Complete(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}
