package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersByRoute_AndUnmatchedLabel(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/news", func(c *gin.Context) {
		c.String(http.StatusOK, "hello")
	})

	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/news", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedPath, "404"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/news", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /news -> %d", w.Code)
	}

	// Two different unknown URLs share one series.
	for _, p := range []string{"/wp-login.php", "/.env"} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("GET %s -> %d", p, w.Code)
		}
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/news", "200")); got != baseOK+1 {
		t.Fatalf("counter /news 200 = %v; want %v", got, baseOK+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedPath, "404")); got != base404+2 {
		t.Fatalf("counter unmatched 404 = %v; want %v", got, base404+2)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}

func TestMetrics_ConditionalRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	const etag = `W/"news:2026-10-15:0011223344556677"`
	r := gin.New()
	r.Use(Metrics())
	r.GET("/news/text", func(c *gin.Context) {
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.String(http.StatusOK, "text")
	})

	baseHit := testutil.ToFloat64(httpConditional.WithLabelValues("/news/text", "not_modified"))
	baseMiss := testutil.ToFloat64(httpConditional.WithLabelValues("/news/text", "modified"))
	base304 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/news/text", "304"))

	send := func(inm string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/news/text", nil)
		if inm != "" {
			req.Header.Set("If-None-Match", inm)
		}
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(etag); code != http.StatusNotModified {
		t.Fatalf("matching ETag -> %d", code)
	}
	if code := send(`W/"stale"`); code != http.StatusOK {
		t.Fatalf("stale ETag -> %d", code)
	}
	// Unconditional reads are not counted.
	if code := send(""); code != http.StatusOK {
		t.Fatalf("plain GET -> %d", code)
	}

	if got := testutil.ToFloat64(httpConditional.WithLabelValues("/news/text", "not_modified")); got != baseHit+1 {
		t.Fatalf("not_modified = %v; want %v", got, baseHit+1)
	}
	if got := testutil.ToFloat64(httpConditional.WithLabelValues("/news/text", "modified")); got != baseMiss+1 {
		t.Fatalf("modified = %v; want %v", got, baseMiss+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/news/text", "304")); got != base304+1 {
		t.Fatalf("counter 304 = %v; want %v", got, base304+1)
	}
}
