// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"returnremind/internal/pkg/logger"
	"returnremind/internal/pkg/nacos"
	"returnremind/internal/pkg/tracing"
	"returnremind/internal/pkg/utils"
)

type AppCtx struct {
	Mux    *http.ServeMux
	Config *Config
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx) // 一个函数，允许每个服务注册自己独特的 HTTP 路由
	// Workers 是与 HTTP 服务并行运行的后台循环（扫描器、Kafka 消费者等），ctx 取消时应返回
	Workers []func(ctx context.Context) error
	// OnShutdown 在 HTTP 服务关闭后按注册顺序执行，用于关闭连接
	OnShutdown []func()
}

// Init 加载配置并初始化日志，返回生效的配置。
func Init(serviceName string) *Config {
	cfg, err := LoadConfig(getEnv("CONFIG_FILE", "configs/config.yaml"))
	if err != nil {
		logger.Init(serviceName, "info")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	SetCurrentConfig(cfg)
	logger.Init(serviceName, cfg.App.LogLevel)
	return cfg
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	cfg := GetCurrentConfig()

	// 1. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	// 2. 可选的 Nacos 服务注册
	deregister := registerNacos(cfg, info)

	// 3. 创建 HTTP Server
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Config: cfg})
	}
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(info.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("service", info.ServiceName).Int("port", info.Port).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	for _, w := range info.Workers {
		w := w
		g.Go(func() error {
			if err := w(gctx); err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	// 4. 优雅关停：收到信号或任意组件失败
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Str("service", info.ServiceName).Msg("Shutting down service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// 按顺序执行清理操作：注销 -> 停止 HTTP -> 关闭依赖 -> 刷新 Trace
		deregister()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error shutting down http server")
		} else {
			log.Info().Msg("HTTP server shut down.")
		}
		for _, fn := range info.OnShutdown {
			fn()
		}
		tracing.Shutdown(shutdownCtx, tp)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("service", info.ServiceName).Msg("service stopped with error")
		os.Exit(1)
	}
	log.Info().Str("service", info.ServiceName).Msg("Service gracefully shut down.")
}

// registerNacos 在配置了 Nacos 地址时注册实例，返回对应的注销函数
func registerNacos(cfg *Config, info AppInfo) func() {
	noop := func() {}
	if cfg.Infra.Nacos.ServerAddrs == "" {
		return noop
	}
	client, err := nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize nacos client")
	}
	// 获取本机 IP 用于注册
	ip, err := utils.GetOutboundIP()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get outbound IP address")
	}
	if err := client.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
		log.Fatal().Err(err).Msg("failed to register service with nacos")
	}
	return func() {
		if err := client.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			log.Error().Err(err).Msg("Error deregistering from Nacos")
		}
	}
}
