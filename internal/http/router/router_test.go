package router_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"basegraph.app/inference/common/llm"
	"basegraph.app/inference/common/metrics"
	"basegraph.app/inference/internal/http/middleware"
	"basegraph.app/inference/internal/http/router"
	"basegraph.app/inference/internal/ratelimit"
	"basegraph.app/inference/internal/service"
)

type stubGenerator struct {
	output  string
	err     error
	prompts []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (*llm.Completion, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Completion{Text: s.output, FinishReason: "stop"}, nil
}

func (s *stubGenerator) Provider() string { return llm.ProviderOpenAI }
func (s *stubGenerator) Model() string    { return "gpt-4o-mini" }

var _ = Describe("SetupRoutes", func() {
	var (
		engine    *gin.Engine
		generator *stubGenerator
		collector *metrics.Collector
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		generator = &stubGenerator{output: "world"}
		collector = metrics.NewCollector()

		engine = gin.New()
		engine.Use(middleware.Recovery(), middleware.RequestID(), middleware.Metrics(collector))

		services := service.NewServices(service.ServicesConfig{
			Generator: generator,
			Metrics:   collector,
		})
		Expect(router.SetupRoutes(engine, services, router.RouterConfig{
			Title:          "inference",
			Version:        "test",
			MetricsHandler: collector.Handler(),
		})).To(Succeed())
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	It("returns the provider text verbatim", func() {
		w := do(http.MethodPost, "/ai/generate", `{"prompt": "hello"}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"output": "world"}`))
		Expect(generator.prompts).To(Equal([]string{"hello"}))
		Expect(w.Header().Get(middleware.RequestIDHeader)).NotTo(BeEmpty())
	})

	It("preserves whitespace and unicode in the output", func() {
		generator.output = "  héllo\n\twörld 👋  "

		w := do(http.MethodPost, "/ai/generate", `{"prompt": "hi"}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"output": "  héllo\n\twörld 👋  "}`))
	})

	It("rejects a body without a prompt and never calls the provider", func() {
		w := do(http.MethodPost, "/ai/generate", `{}`)

		Expect(w.Code).To(BeNumerically(">=", 400))
		Expect(w.Code).To(BeNumerically("<", 500))
		Expect(generator.prompts).To(BeEmpty())
	})

	It("maps provider failures to 502", func() {
		generator.err = errors.New("connection reset by peer")

		w := do(http.MethodPost, "/ai/generate", `{"prompt": "hello"}`)

		Expect(w.Code).To(Equal(http.StatusBadGateway))
		Expect(w.Body.String()).To(MatchJSON(`{"error": "generation failed"}`))
	})

	It("does not expose history without a store", func() {
		Expect(do(http.MethodGet, "/ai/generations/1", "").Code).To(Equal(http.StatusNotFound))
	})

	It("only accepts POST on the generate route", func() {
		Expect(do(http.MethodGet, "/ai/generate", "").Code).To(Equal(http.StatusNotFound))
		Expect(generator.prompts).To(BeEmpty())
	})

	It("serves health, openapi and metrics", func() {
		Expect(do(http.MethodGet, "/health", "").Body.String()).To(MatchJSON(`{"status": "ok"}`))
		Expect(do(http.MethodGet, "/openapi.json", "").Code).To(Equal(http.StatusOK))

		do(http.MethodPost, "/ai/generate", `{"prompt": "hello"}`)
		w := do(http.MethodGet, "/metrics", "")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`inference_generations_total{model="gpt-4o-mini",provider="openai",status="success"} 1`))
		Expect(w.Body.String()).To(ContainSubstring(`route="/ai/generate"`))
	})
})

var _ = Describe("Rate limited generate route", func() {
	var (
		generator *stubGenerator
		limiter   *ratelimit.RedisLimiter
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		generator = &stubGenerator{output: "world"}

		mr, err := miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mr.Close)

		limiter = ratelimit.NewRedisLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 2, time.Minute)
		DeferCleanup(limiter.Close)
	})

	newEngine := func(trustedProxies []string) *gin.Engine {
		engine := gin.New()
		services := service.NewServices(service.ServicesConfig{Generator: generator})
		Expect(router.SetupRoutes(engine, services, router.RouterConfig{
			Title:              "inference",
			Version:            "test",
			GenerateMiddleware: []gin.HandlerFunc{middleware.RateLimit(limiter)},
			TrustedProxies:     trustedProxies,
		})).To(Succeed())
		return engine
	}

	postFrom := func(engine *gin.Engine, remoteAddr, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/ai/generate", bytes.NewBufferString(`{"prompt": "hello"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w.Code
	}

	It("keys on the peer address when no proxy is trusted", func() {
		engine := newEngine(nil)

		var codes []int
		for i := range 10 {
			codes = append(codes, postFrom(engine, "203.0.113.7:5555", fmt.Sprintf("10.0.0.%d", i)))
		}

		Expect(codes[:2]).To(HaveEach(http.StatusOK))
		Expect(codes[2:]).To(HaveEach(http.StatusTooManyRequests))
		Expect(generator.prompts).To(HaveLen(2))
	})

	It("honours X-Forwarded-For from a trusted proxy", func() {
		engine := newEngine([]string{"192.0.2.1"})

		for i := range 5 {
			Expect(postFrom(engine, "192.0.2.1:443", fmt.Sprintf("10.0.0.%d", i))).To(Equal(http.StatusOK))
		}
		Expect(postFrom(engine, "192.0.2.1:443", "10.0.0.1")).To(Equal(http.StatusOK))
		Expect(postFrom(engine, "192.0.2.1:443", "10.0.0.1")).To(Equal(http.StatusTooManyRequests))
	})

	It("rejects an invalid proxy entry", func() {
		engine := gin.New()
		services := service.NewServices(service.ServicesConfig{Generator: generator})
		err := router.SetupRoutes(engine, services, router.RouterConfig{TrustedProxies: []string{"not-an-ip"}})
		Expect(err).To(MatchError(ContainSubstring("trusted proxies")))
	})
})
