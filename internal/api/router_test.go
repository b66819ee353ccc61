package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-discovery/internal/api/handlers"
	"recipe-discovery/internal/api/handlers/health"
	"recipe-discovery/internal/core/discovery"
	"recipe-discovery/internal/core/domain"
	"recipe-discovery/internal/core/matching"
	"recipe-discovery/internal/core/product"
	"recipe-discovery/internal/core/units"
	"recipe-discovery/internal/infrastructure/config"
	"recipe-discovery/internal/infrastructure/metrics"
	"recipe-discovery/internal/infrastructure/store"
)

type fakeExternal struct {
	calls   int
	names   [][]string
	recipes []domain.ExternalRecipe
}

func (f *fakeExternal) SearchByIngredientNames(_ context.Context, names []string, _ domain.Preferences) ([]domain.ExternalRecipe, error) {
	f.calls++
	f.names = append(f.names, names)
	return f.recipes, nil
}

type testServer struct {
	router   *gin.Engine
	external *fakeExternal
}

func testConfig() *config.Config {
	return &config.Config{
		App:         config.AppConfig{Debug: true, Version: "test"},
		Server:      config.ServerConfig{MaxBodyBytes: 1 << 20, RequestTimeout: 5 * time.Second},
		DedupWindow: time.Minute,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry := units.NewRegistry()
	require.NoError(t, db.SeedUnits(ctx, registry.Units()))

	m := metrics.New()
	resolver := product.NewResolver(db, product.DefaultConfig(), product.WithObserver(m.ObserveResolution))
	unitResolver := units.NewResolver(nil)
	scorer := matching.NewScorer(unitResolver)
	external := &fakeExternal{recipes: []domain.ExternalRecipe{{
		SourceID:    "ext:1",
		Title:       "Flour Paste",
		Ingredients: []domain.FreeTextIngredient{{Name: "flour", Quantity: 200, Unit: "g"}},
	}}}
	orchestrator := discovery.NewOrchestrator(db, resolver, scorer, registry, discovery.DefaultConfig(),
		discovery.WithExternalSource(external),
		discovery.WithObserver(m),
	)

	router, cleanup, err := SetupRouter(cfg, Dependencies{
		Handlers: handlers.Dependencies{
			Discoverer: orchestrator,
			Products:   resolver,
			Units:      unitResolver,
			Registry:   registry,
			Scorer:     scorer,
			Fridge:     db,
			Recipes:    db,
			Debug:      true,
		},
		Metrics: m,
		Checks:  map[string]health.Checker{"store": db.Ping},
	})
	require.NoError(t, err)
	t.Cleanup(cleanup)

	return &testServer{router: router, external: external}
}

func (s *testServer) do(method, path, owner, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set("X-Owner-ID", owner)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestSetupRouter_MissingDependencies(t *testing.T) {
	_, _, err := SetupRouter(testConfig(), Dependencies{})
	assert.Error(t, err)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t, testConfig())

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/ready", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/live", "", "").Code)

	rec := s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recipe_discovery_http_requests_total")
}

func TestRouter_RequiresOwner(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := s.do(http.MethodGet, "/api/v1/fridge", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ResolveProduct(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(http.MethodPost, "/api/v1/products/resolve", "alice", `{"name":"Milk"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created product.Ref
	decode(t, rec, &created)
	assert.Equal(t, product.MethodCreated, created.Method)
	assert.Equal(t, "Milk", created.Product.Name)

	rec = s.do(http.MethodPost, "/api/v1/products/resolve", "alice", `{"name":"  MILK "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var exact product.Ref
	decode(t, rec, &exact)
	assert.Equal(t, product.MethodExact, exact.Method)
	assert.Equal(t, created.Product.ID, exact.Product.ID)

	rec = s.do(http.MethodPost, "/api/v1/products/resolve", "alice", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_FridgeRecipeMatchDiscover(t *testing.T) {
	s := newTestServer(t, testConfig())
	const owner = "alice"

	require.Equal(t, http.StatusCreated,
		s.do(http.MethodPost, "/api/v1/fridge", owner, `{"name":"Milk","quantity":500,"unit":"ml"}`).Code)
	require.Equal(t, http.StatusCreated,
		s.do(http.MethodPost, "/api/v1/fridge", owner, `{"name":"Egg","quantity":2,"unit":""}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		s.do(http.MethodPost, "/api/v1/fridge", owner, `{"name":"Egg","quantity":0}`).Code)

	rec := s.do(http.MethodGet, "/api/v1/fridge", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fridge struct {
		Items []domain.AvailableItem `json:"items"`
	}
	decode(t, rec, &fridge)
	require.Len(t, fridge.Items, 2)
	assert.Equal(t, "piece", fridge.Items[1].Unit.ID)

	rec = s.do(http.MethodPost, "/api/v1/recipes", owner, `{
		"title":"Pancakes","difficulty":"Easy","cook_minutes":20,"tags":["Breakfast"],
		"ingredients":[{"name":"milk","quantity":1,"unit":"cup"},{"name":"egg","quantity":2}],
		"steps":["Mix.","Fry."]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var saved domain.Recipe
	decode(t, rec, &saved)
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, domain.DifficultyEasy, saved.Difficulty)
	for _, ing := range saved.Ingredients {
		assert.True(t, ing.Resolved(), ing.Name)
	}

	rec = s.do(http.MethodPost, "/api/v1/match", owner, `{"recipe_id":"`+saved.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var match handlers.MatchResponse
	decode(t, rec, &match)
	assert.Equal(t, 1.0, match.Match.Score)
	assert.Len(t, match.Match.Available, 2)

	rec = s.do(http.MethodPost, "/api/v1/discover", owner, `{"preferences":{"tags":["breakfast"]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp discovery.Response
	decode(t, rec, &resp)
	assert.Equal(t, domain.SourceUserRecipes, resp.Source)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Pancakes", resp.Results[0].Recipe.Title)
	assert.Zero(t, s.external.calls)

	rec = s.do(http.MethodGet, "/api/v1/recipes/"+saved.ID, owner, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/recipes/"+saved.ID, "bob", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodPost, "/api/v1/recipes", "bob", `{"id":"`+saved.ID+`","title":"Stolen"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_DiscoverFallsThroughToExternal(t *testing.T) {
	s := newTestServer(t, testConfig())
	const owner = "alice"

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/recipes", owner,
		`{"title":"Omelette","ingredients":[{"name":"egg","quantity":3,"unit":"piece"}]}`).Code)

	rec := s.do(http.MethodPost, "/api/v1/discover", owner,
		`{"available":[{"name":"flour","quantity":100,"unit":"g"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp discovery.Response
	decode(t, rec, &resp)
	assert.Equal(t, domain.SourceExternalAPI, resp.Source)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Flour Paste", resp.Results[0].Recipe.Title)
	assert.Equal(t, 1.0, resp.Results[0].Match.Score)
	assert.Equal(t, domain.VerdictPartial, resp.Results[0].Match.Available[0].Verdict)
	assert.Equal(t, 1, s.external.calls)
}

func TestRouter_DiscoverByProductID(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(http.MethodPost, "/api/v1/products/resolve", "alice", `{"name":"flour"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var flour product.Ref
	decode(t, rec, &flour)
	id := strconv.FormatInt(flour.Product.ID, 10)

	rec = s.do(http.MethodPost, "/api/v1/discover", "alice",
		`{"available":[{"product_id":`+id+`,"quantity":500,"unit":"g"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp discovery.Response
	decode(t, rec, &resp)
	assert.Equal(t, domain.SourceExternalAPI, resp.Source)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1.0, resp.Results[0].Match.Score)
	assert.Equal(t, [][]string{{"flour"}}, s.external.names)

	t.Run("private product of another owner", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/discover", "bob",
			`{"available":[{"product_id":`+id+`,"quantity":500,"unit":"g"}]}`)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

		rec = s.do(http.MethodPost, "/api/v1/match", "bob",
			`{"ingredients":[{"product_id":`+id+`,"quantity":1}],"available":[{"name":"sugar","quantity":1}]}`)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
		assert.Equal(t, 1, s.external.calls)
	})
}

func TestRouter_MatchInlineIngredients(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := s.do(http.MethodPost, "/api/v1/match", "alice", `{
		"ingredients":[{"name":"milk","quantity":2,"unit":"cup"},{"name":"saffron","quantity":1,"unit":"pinch"}],
		"available":[{"name":"milk","quantity":250,"unit":"ml"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var match handlers.MatchResponse
	decode(t, rec, &match)
	assert.Equal(t, 0.5, match.Match.Score)
	require.Len(t, match.Match.Missing, 1)
	assert.Equal(t, domain.VerdictNone, match.Match.Missing[0].Verdict)
}

func TestRouter_ReconcileUnits(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name    string
		body    string
		verdict domain.Verdict
	}{
		{"converted", `{"required":{"amount":1,"unit":"cup"},"available":{"amount":300,"unit":"ml"}}`, domain.VerdictFull},
		{"unknown", `{"required":{"amount":2,"unit":"clove"},"available":{"amount":1,"unit":"head"}}`, domain.VerdictUnknown},
		{"manual partial", `{"required":{"amount":2,"unit":"clove"},"available":{"amount":1,"unit":"head"},"manual_amount":3}`, domain.VerdictPartial},
		{"manual full", `{"required":{"amount":2,"unit":"clove"},"available":{"amount":1,"unit":"head"},"manual_amount":0.5}`, domain.VerdictFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/v1/units/reconcile", "alice", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got units.Reconciliation
			decode(t, rec, &got)
			assert.Equal(t, tt.verdict, got.Verdict)
		})
	}

	rec := s.do(http.MethodGet, "/api/v1/units", "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tbsp"`)
}

func TestRouter_ValidationErrors(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown source", http.MethodPost, "/api/v1/discover", `{"available":[{"name":"flour","quantity":1}],"source":"bogus"}`, http.StatusBadRequest},
		{"empty fridge", http.MethodPost, "/api/v1/discover", `{}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/v1/discover", `{`, http.StatusBadRequest},
		{"match needs one input", http.MethodPost, "/api/v1/match", `{}`, http.StatusBadRequest},
		{"missing recipe", http.MethodPost, "/api/v1/match", `{"recipe_id":"nope"}`, http.StatusNotFound},
		{"negative amount", http.MethodPost, "/api/v1/units/reconcile", `{"required":{"amount":-1,"unit":"g"}}`, http.StatusBadRequest},
		{"bad difficulty", http.MethodPost, "/api/v1/recipes", `{"title":"x","difficulty":"expert"}`, http.StatusBadRequest},
		{"missing title", http.MethodPost, "/api/v1/recipes", `{"title":" "}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, "alice", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_Deduplicates(t *testing.T) {
	s := newTestServer(t, testConfig())
	body := `{"name":"Basil"}`

	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/products/resolve", "alice", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodPost, "/api/v1/products/resolve", "alice", body).Code)
	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/products/resolve", "bob", body).Code)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Hour}
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/units", "alice", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/units", "alice", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodGet, "/api/v1/units", "alice", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "alice", "").Code)
}
