package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/inference/common/logger"
	"basegraph.app/inference/internal/http/middleware"
	"basegraph.app/inference/internal/ratelimit"
)

type mockLimiter struct {
	allowFn func(ctx context.Context, key string) (ratelimit.Decision, error)
	keys    []string
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	m.keys = append(m.keys, key)
	return m.allowFn(ctx, key)
}

type requestRecord struct {
	method, route, status string
}

type mockRequestRecorder struct {
	records []requestRecord
}

func (m *mockRequestRecorder) RecordRequest(method, route, status string, _ time.Duration) {
	m.records = append(m.records, requestRecord{method: method, route: route, status: status})
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var _ = BeforeEach(func() {
	gin.SetMode(gin.TestMode)
})

var _ = Describe("RequestID", func() {
	var (
		router  *gin.Engine
		seenCtx context.Context
	)

	BeforeEach(func() {
		router = gin.New()
		router.Use(middleware.RequestID())
		router.GET("/ping", func(c *gin.Context) {
			seenCtx = c.Request.Context()
			c.Status(http.StatusNoContent)
		})
	})

	It("keeps the caller's request id", func() {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-123")

		w := serve(router, req)

		Expect(w.Header().Get(middleware.RequestIDHeader)).To(Equal("req-123"))
		Expect(*logger.GetLogFields(seenCtx).RequestID).To(Equal("req-123"))
	})

	It("mints a uuid when the header is missing", func() {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/ping", nil))

		requestID := w.Header().Get(middleware.RequestIDHeader)
		_, err := uuid.Parse(requestID)
		Expect(err).NotTo(HaveOccurred())
		Expect(*logger.GetLogFields(seenCtx).RequestID).To(Equal(requestID))
	})

	It("replaces an oversized request id", func() {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(middleware.RequestIDHeader, strings.Repeat("x", 500))

		w := serve(router, req)

		Expect(w.Header().Get(middleware.RequestIDHeader)).To(HaveLen(36))
	})
})

var _ = Describe("Recovery", func() {
	It("turns panics into a 500 JSON error", func() {
		router := gin.New()
		router.Use(middleware.Recovery())
		router.GET("/boom", func(c *gin.Context) {
			panic("boom")
		})

		w := serve(router, httptest.NewRequest(http.MethodGet, "/boom", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(MatchJSON(`{"error": "internal server error"}`))
	})
})

var _ = Describe("Logger", func() {
	It("passes the response through untouched", func() {
		router := gin.New()
		router.Use(middleware.Logger())
		router.GET("/teapot", func(c *gin.Context) {
			c.String(http.StatusTeapot, "short and stout")
		})

		w := serve(router, httptest.NewRequest(http.MethodGet, "/teapot?x=1", nil))

		Expect(w.Code).To(Equal(http.StatusTeapot))
		Expect(w.Body.String()).To(Equal("short and stout"))
	})
})

var _ = Describe("Metrics", func() {
	It("records the matched route, not the raw path", func() {
		recorder := &mockRequestRecorder{}
		router := gin.New()
		router.Use(middleware.Metrics(recorder))
		router.GET("/ai/generations/:id", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		serve(router, httptest.NewRequest(http.MethodGet, "/ai/generations/42", nil))
		serve(router, httptest.NewRequest(http.MethodGet, "/wp-login.php", nil))

		Expect(recorder.records).To(Equal([]requestRecord{
			{method: http.MethodGet, route: "/ai/generations/:id", status: "200"},
			{method: http.MethodGet, route: "unmatched", status: "404"},
		}))
	})
})

var _ = Describe("RateLimit", func() {
	var (
		router  *gin.Engine
		limiter *mockLimiter
		calls   int
	)

	BeforeEach(func() {
		calls = 0
		limiter = &mockLimiter{}
		router = gin.New()
		router.POST("/ai/generate", middleware.RateLimit(limiter), func(c *gin.Context) {
			calls++
			c.Status(http.StatusOK)
		})
	})

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/ai/generate", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		return serve(router, req)
	}

	It("lets allowed requests through with quota headers", func() {
		limiter.allowFn = func(_ context.Context, _ string) (ratelimit.Decision, error) {
			return ratelimit.Decision{Allowed: true, Limit: 60, Remaining: 59}, nil
		}

		w := post()

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(calls).To(Equal(1))
		Expect(limiter.keys).To(Equal([]string{"203.0.113.7"}))
		Expect(w.Header().Get("X-RateLimit-Limit")).To(Equal("60"))
		Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal("59"))
	})

	It("rejects with 429 and Retry-After when the quota is spent", func() {
		limiter.allowFn = func(_ context.Context, _ string) (ratelimit.Decision, error) {
			return ratelimit.Decision{Allowed: false, Limit: 60, Remaining: 0, RetryAfter: 12300 * time.Millisecond}, nil
		}

		w := post()

		Expect(w.Code).To(Equal(http.StatusTooManyRequests))
		Expect(calls).To(BeZero())
		Expect(w.Header().Get("Retry-After")).To(Equal("13"))
		Expect(w.Body.String()).To(MatchJSON(`{"error": "rate limit exceeded"}`))
	})

	It("fails open when the limiter errors", func() {
		limiter.allowFn = func(_ context.Context, _ string) (ratelimit.Decision, error) {
			return ratelimit.Decision{}, errors.New("redis: connection refused")
		}

		w := post()

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(calls).To(Equal(1))
	})
})
