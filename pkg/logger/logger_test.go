package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("creates a default text logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("hello", "key", "value")

			output := buf.String()
			Expect(output).To(ContainSubstring("hello"))
			Expect(output).To(ContainSubstring("key"))
			Expect(output).To(ContainSubstring("value"))
		})

		It("respects debug level", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
			l.Debug("debug msg")

			Expect(buf.String()).To(ContainSubstring("debug msg"))
		})

		It("filters debug when not enabled", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(false))
			l.Debug("hidden")

			Expect(buf.String()).To(BeEmpty())
		})

		It("creates a JSON logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			l.Info("structured", "count", 42)

			var parsed map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &parsed)).To(Succeed())
			Expect(parsed["msg"]).To(Equal("structured"))
			Expect(parsed["count"]).To(BeNumerically("==", 42))
		})

		It("writes to multiple writers", func() {
			var a, b bytes.Buffer
			l := logger.New(logger.WithWriters(&a, &b))
			l.Info("both")

			Expect(a.String()).To(ContainSubstring("both"))
			Expect(b.String()).To(ContainSubstring("both"))
		})
	})

	Describe("Multi", func() {
		It("dispatches records to all loggers", func() {
			var a, b bytes.Buffer
			la := logger.New(logger.WithWriter(&a))
			lb := logger.New(logger.WithWriter(&b), logger.WithJSON(true))

			m := logger.Multi(la, lb)
			m.Info("fan out")

			Expect(a.String()).To(ContainSubstring("fan out"))
			Expect(b.String()).To(ContainSubstring("fan out"))
		})

		It("respects each handler's level", func() {
			var a, b bytes.Buffer
			la := logger.New(logger.WithWriter(&a), logger.WithDebug(true))
			lb := logger.New(logger.WithWriter(&b))

			m := logger.Multi(la, lb)
			m.Debug("only debug handler")

			Expect(a.String()).To(ContainSubstring("only debug handler"))
			Expect(b.String()).To(BeEmpty())
		})
	})

	Describe("NewLogger", func() {
		It("returns a usable zap logger", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf)
			l.Info("zap message")
			Expect(buf.String()).To(ContainSubstring("zap message"))
		})

		It("filters debug records at info level", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf)
			l.Debug("zap debug")
			Expect(buf.String()).To(BeEmpty())
		})
	})
})
