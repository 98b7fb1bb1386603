package middleware_test

import (
	"VoiceBoard/internal/testutil"
	"VoiceBoard/pkg/i18n"
	"VoiceBoard/pkg/middleware"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := middleware.NewPrometheusObserver(reg)
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:          "100-M",
		PerRouteRates: map[string]string{"/upload-audio": "2-M"},
		AddHeaders:    true,
		SkipPaths:     []string{"/metrics"},
		DenyMessage:   func(*gin.Context) string { return "slow down" },
	}, nil).WithObserver(obs)

	r := gin.New()
	r.Use(rl.Middleware())
	r.POST("/upload-audio", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := perform(r, http.MethodPost, "/upload-audio", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}
	w := perform(r, http.MethodPost, "/upload-audio", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "slow down")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/metrics", "", nil).Code)
	}

	assert.Equal(t, 2.0, promtest.ToFloat64(obs.AllowCounter("/upload-audio")))
	assert.Equal(t, 1.0, promtest.ToFloat64(obs.DenyCounter("/upload-audio")))
}

func TestRateLimiterWhitelist(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:           "1-M",
		WhitelistCIDRs: []string{"192.0.2.0/24"},
	}, nil)
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	// httptest requests come from 192.0.2.1
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/x", "", nil).Code)
	}
}

func TestIdempotency(t *testing.T) {
	calls := 0
	fail := false
	r := gin.New()
	r.Use(middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{TTL: time.Minute}))
	r.POST("/upload-audio", func(c *gin.Context) {
		calls++
		if fail {
			c.Status(http.StatusInternalServerError)
			return
		}
		if c.GetHeader("X-Has-File") == "" {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	key := map[string]string{"Idempotency-Key": "abc", "X-Has-File": "1"}
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/upload-audio", "", key).Code)
	assert.Equal(t, http.StatusConflict, perform(r, http.MethodPost, "/upload-audio", "", key).Code)
	assert.Equal(t, 1, calls)

	// no header, no dedup
	withFile := map[string]string{"X-Has-File": "1"}
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/upload-audio", "", withFile).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/upload-audio", "", withFile).Code)
	assert.Equal(t, 3, calls)

	// a rejected request releases its key
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPost, "/upload-audio", "", map[string]string{"Idempotency-Key": "ghi"}).Code)
	retry := map[string]string{"Idempotency-Key": "ghi", "X-Has-File": "1"}
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/upload-audio", "", retry).Code)
	assert.Equal(t, http.StatusConflict, perform(r, http.MethodPost, "/upload-audio", "", retry).Code)
	assert.Equal(t, 5, calls)

	// a failed request releases its key
	fail = true
	other := map[string]string{"Idempotency-Key": "def"}
	assert.Equal(t, http.StatusInternalServerError, perform(r, http.MethodPost, "/upload-audio", "", other).Code)
	assert.Equal(t, http.StatusInternalServerError, perform(r, http.MethodPost, "/upload-audio", "", other).Code)
	assert.Equal(t, 7, calls)
}

func TestSignVerify(t *testing.T) {
	const secret = "s3cret"
	r := gin.New()
	r.Use(middleware.SignVerifyMiddleware(secret, 5*time.Minute))
	r.PUT("/admin/messages/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	body := `{"moderatedText":"hi"}`
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := middleware.GenerateSignature(http.MethodPut, "/admin/messages/1", []byte(body), ts, secret)

	w := perform(r, http.MethodPut, "/admin/messages/1?timestamp="+ts, body, map[string]string{"Signature": sig})
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPut, "/admin/messages/1?timestamp="+ts, body, map[string]string{"Signature": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, http.MethodPut, "/admin/messages/1", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	old := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	sig = middleware.GenerateSignature(http.MethodPut, "/admin/messages/1", []byte(body), old, secret)
	w = perform(r, http.MethodPut, "/admin/messages/1?timestamp="+old, body, map[string]string{"Signature": sig})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignVerifyRejectsOversizedBody(t *testing.T) {
	const secret = "s3cret"
	reached := false
	r := gin.New()
	r.Use(middleware.SignVerifyMiddleware(secret, 5*time.Minute))
	r.POST("/display/messages", func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	body := strings.Repeat("a", middleware.MaxSignedBodyBytes+1)
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := middleware.GenerateSignature(http.MethodPost, "/display/messages", []byte(body), ts, secret)

	w := perform(r, http.MethodPost, "/display/messages?timestamp="+ts, body, map[string]string{"Signature": sig})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, reached)
}

func TestSignVerifyDisabled(t *testing.T) {
	r := gin.New()
	r.Use(middleware.SignVerifyMiddleware("", time.Minute))
	r.DELETE("/admin/messages/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, perform(r, http.MethodDelete, "/admin/messages/1", "", nil).Code)
}

func TestOperationLog(t *testing.T) {
	db := testutil.NewTestDB(t)
	require.NoError(t, db.AutoMigrate(&middleware.OperationLog{}))

	r := gin.New()
	r.Use(middleware.OperationLogMiddleware(db, nil))
	r.GET("/display/messages", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.DELETE("/display/messages/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	perform(r, http.MethodGet, "/display/messages", "", map[string]string{"User-Agent": ua})
	perform(r, http.MethodDelete, "/display/messages/7", "", map[string]string{"User-Agent": ua})

	logs, err := middleware.ListOperationLogs(db, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	entry := logs[0]
	assert.Equal(t, http.MethodDelete, entry.Action)
	assert.Equal(t, "/display/messages/7", entry.Target)
	assert.Equal(t, "/display/messages/:id", entry.Route)
	assert.Equal(t, http.StatusNotFound, entry.StatusCode)
	assert.Equal(t, "desktop", entry.Device)
	assert.Contains(t, entry.Browser, "Chrome")
	assert.Contains(t, entry.OperatingSystem, "Windows")
	assert.Empty(t, entry.Location)
}

func TestLanguageMiddleware(t *testing.T) {
	support, err := i18n.NewI18nSupport("ko")
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.LanguageMiddleware(support))
	r.GET("/lang", func(c *gin.Context) { c.String(http.StatusOK, middleware.Lang(c)) })

	assert.Equal(t, "ko", perform(r, http.MethodGet, "/lang", "", nil).Body.String())
	assert.Equal(t, "en", perform(r, http.MethodGet, "/lang?lang=en", "", nil).Body.String())
	assert.Equal(t, "en", perform(r, http.MethodGet, "/lang", "", map[string]string{"Accept-Language": "en-US,en;q=0.9"}).Body.String())
}
