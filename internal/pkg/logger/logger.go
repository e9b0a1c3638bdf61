// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Init 配置全局 zerolog 记录器，所有服务在启动时调用一次。
func Init(serviceName, level string) {
	InitWithWriter(serviceName, level, os.Stdout)
}

// InitWithWriter 与 Init 相同，但允许指定输出目标（测试中使用）。
func InitWithWriter(serviceName, level string, w io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).With().Timestamp().Str("service", serviceName).Logger()
}

// Ctx 返回一个带有当前链路信息的 logger。
// 如果 ctx 中存在有效的 Span，会附加 trace_id 和 span_id，方便在 Jaeger 中反查。
func Ctx(ctx context.Context) *zerolog.Logger {
	l := log.Logger
	if ctx == nil {
		return &l
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		l = l.With().
			Str("trace_id", spanCtx.TraceID().String()).
			Str("span_id", spanCtx.SpanID().String()).
			Logger()
	}
	return &l
}
