package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/inference/common/logger"
	"basegraph.app/inference/core/config"
)

var _ = Describe("WithLogFields", func() {
	It("merges fields with newer values winning", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			RequestID: logger.Ptr("req-1"),
			Component: "inference.http",
		})
		ctx = logger.WithLogFields(ctx, logger.LogFields{
			GenerationID: logger.Ptr(int64(42)),
			Component:    "inference.service.generation",
		})

		fields := logger.GetLogFields(ctx)
		Expect(*fields.RequestID).To(Equal("req-1"))
		Expect(*fields.GenerationID).To(Equal(int64(42)))
		Expect(fields.Component).To(Equal("inference.service.generation"))
		Expect(fields.Provider).To(BeNil())
	})

	It("returns empty fields for a bare context", func() {
		Expect(logger.GetLogFields(context.Background())).To(Equal(logger.LogFields{}))
	})
})

var _ = Describe("Truncate", func() {
	DescribeTable("truncates long strings",
		func(input string, maxLen int, expected string) {
			Expect(logger.Truncate(input, maxLen)).To(Equal(expected))
		},
		Entry("short unchanged", "hello", 10, "hello"),
		Entry("exact length unchanged", "hello", 5, "hello"),
		Entry("long truncated", strings.Repeat("a", 12), 4, "aaaa..."),
		Entry("empty unchanged", "", 3, ""),
		Entry("backs off to a rune boundary", "héllo", 2, "h..."),
		Entry("keeps whole multi-byte runes", "héllo", 3, "hé..."),
		Entry("emoji never split", "👋👋", 5, "👋..."),
	)

	It("always yields valid UTF-8", func() {
		input := strings.Repeat("日本語", 50)
		for maxLen := 0; maxLen < len(input); maxLen++ {
			Expect(utf8.ValidString(logger.Truncate(input, maxLen))).To(BeTrue(), "maxLen=%d", maxLen)
		}
	})
})

var _ = Describe("TraceHandler", func() {
	It("adds context fields to every record", func() {
		var buf bytes.Buffer
		log := slog.New(logger.NewTraceHandler(slog.NewJSONHandler(&buf, nil)))

		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			RequestID:    logger.Ptr("req-7"),
			GenerationID: logger.Ptr(int64(99)),
			Provider:     logger.Ptr("openai"),
			Model:        logger.Ptr("gpt-4o-mini"),
			Component:    "inference.service.generation",
		})
		log.InfoContext(ctx, "generation completed")

		var record map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
		Expect(record).To(HaveKeyWithValue("request_id", "req-7"))
		Expect(record).To(HaveKeyWithValue("generation_id", BeNumerically("==", 99)))
		Expect(record).To(HaveKeyWithValue("provider", "openai"))
		Expect(record).To(HaveKeyWithValue("model", "gpt-4o-mini"))
		Expect(record).To(HaveKeyWithValue("component", "inference.service.generation"))
		Expect(record).NotTo(HaveKey("trace_id"))
	})

	It("keeps fields through WithAttrs", func() {
		var buf bytes.Buffer
		log := slog.New(logger.NewTraceHandler(slog.NewJSONHandler(&buf, nil))).With("service", "inference")

		ctx := logger.WithLogFields(context.Background(), logger.LogFields{RequestID: logger.Ptr("req-8")})
		log.InfoContext(ctx, "hello")

		var record map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
		Expect(record).To(HaveKeyWithValue("service", "inference"))
		Expect(record).To(HaveKeyWithValue("request_id", "req-8"))
	})
})

var _ = Describe("Setup", func() {
	BeforeEach(func() {
		DeferCleanup(slog.SetDefault, slog.Default())
	})

	DescribeTable("always installs the trace handler",
		func(cfg config.Config) {
			logger.Setup(cfg)
			Expect(slog.Default().Handler()).To(BeAssignableToTypeOf(&logger.TraceHandler{}))
		},
		Entry("development", config.Config{Env: "development"}),
		Entry("production", config.Config{Env: "production"}),
		Entry("production with otel", config.Config{
			Env:  "production",
			OTel: config.OTelConfig{Endpoint: "http://localhost:4318", ServiceName: "inference"},
		}),
	)
})
