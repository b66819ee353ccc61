package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func ok(c *gin.Context) { c.Status(http.StatusNoContent) }

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(time.Minute)
	rl.Allow("b")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "b")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(1, time.Hour))
	r.GET("/", ok)

	owner := map[string]string{OwnerHeader: "alice"}
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", "", owner).Code)

	rec := serve(r, http.MethodGet, "/", "", owner)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", "", map[string]string{OwnerHeader: "bob"}).Code)
}

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator(time.Second)
	defer d.Close()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	r := gin.New()
	r.Use(d.Middleware())
	r.POST("/x", ok)
	r.GET("/x", ok)

	alice := map[string]string{OwnerHeader: "alice"}
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/x", `{"a":1}`, alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/x", `{"a":1}`, alice).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/x", `{"a":2}`, alice).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/x", `{"a":1}`, map[string]string{OwnerHeader: "bob"}).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/x", "", alice).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/x", "", alice).Code)

	now = now.Add(2 * time.Second)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/x", `{"a":1}`, alice).Code)

	d.cleanup()
	d.mu.Lock()
	assert.Len(t, d.requests, 1)
	d.mu.Unlock()
}

func TestDeduplicator_BodyStillReadable(t *testing.T) {
	d := NewDeduplicator(time.Second)
	defer d.Close()

	r := gin.New()
	r.Use(d.Middleware())
	r.POST("/echo", func(c *gin.Context) {
		var body map[string]int
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, body)
	})

	rec := serve(r, http.MethodPost, "/echo", `{"a":7}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"a":7}`, rec.Body.String())
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(8))
	r.POST("/", ok)

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/", "tiny", nil).Code)
	rec := serve(r, http.MethodPost, "/", strings.Repeat("x", 64), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "REQUEST_TOO_LARGE")
}

func TestDeduplicator_OversizedBodyWithoutLength(t *testing.T) {
	d := NewDeduplicator(time.Second)
	defer d.Close()

	r := gin.New()
	r.Use(BodySizeLimit(8), d.Middleware())
	r.POST("/", ok)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "REQUEST_TOO_LARGE")
}

func TestRequireOwner(t *testing.T) {
	r := gin.New()
	r.Use(RequireOwner())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, OwnerID(c)) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/", "", map[string]string{OwnerHeader: "  "}).Code)

	rec := serve(r, http.MethodGet, "/", "", map[string]string{OwnerHeader: " alice "})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", ok)

	assert.Equal(t, http.StatusGatewayTimeout, serve(r, http.MethodGet, "/slow", "", nil).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/fast", "", nil).Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(), Logger())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := serve(r, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

type recordingObserver struct {
	routes []string
	codes  []int
}

func (r *recordingObserver) ObserveRequest(_, route string, status int) {
	r.routes = append(r.routes, route)
	r.codes = append(r.codes, status)
}

func TestMetricsMiddleware(t *testing.T) {
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/items/:id", ok)

	serve(r, http.MethodGet, "/items/42", "", nil)
	serve(r, http.MethodGet, "/nope", "", nil)

	assert.Equal(t, []string{"/items/:id", ""}, obs.routes)
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNotFound}, obs.codes)
}
