// cmd/reminder-service/main.go
package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"returnremind/internal/pkg/bootstrap"
	"returnremind/internal/pkg/database"
	"returnremind/internal/pkg/mq"
	"returnremind/internal/pkg/redis"
	"returnremind/internal/pkg/zookeeper"
	"returnremind/internal/service/reminder/application"
	"returnremind/internal/service/reminder/domain"
	"returnremind/internal/service/reminder/infrastructure"
	"returnremind/internal/service/reminder/infrastructure/adapter"
	"returnremind/internal/service/reminder/interfaces"
	"returnremind/internal/service/reminder/port"
)

const serviceName = "reminder-service"

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	cfg := bootstrap.Init(serviceName)
	var cleanups []func()

	// 1. 存储
	purchases, notifications := buildRepositories(cfg)

	// 2. 投递渠道：配置了 Kafka 就写入 Kafka，否则只打日志
	var sender port.NotificationSender = adapter.NewLogSender()
	if len(cfg.Infra.Kafka.Brokers) > 0 {
		kafkaSender := adapter.NewNotificationKafkaAdapter(mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.ReminderTopic))
		cleanups = append(cleanups, func() { _ = kafkaSender.Close() })
		sender = kafkaSender
	}

	// 3. 扫描锁
	lock, closeLock := buildSweepLock(cfg)
	cleanups = append(cleanups, closeLock)

	// 4. 指标
	metrics := infrastructure.NewPrometheusMetrics()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	// 5. 应用层
	tracer := otel.Tracer(serviceName)
	clock := port.SystemClock
	scheduler := application.NewNotificationScheduler(purchases, notifications, sender, metrics, tracer, clock, application.SchedulerConfig{
		LeadTimes:  leadTimes(cfg.Reminder.LeadTimes),
		SendOffset: time.Duration(cfg.Reminder.SendHour) * time.Hour,
		LookAhead:  cfg.Reminder.LookAhead,
		BatchSize:  cfg.Reminder.BatchSize,
	})
	service := application.NewReminderService(purchases, scheduler, metrics, tracer, clock)
	sweeper := application.NewSweeper(scheduler, lock, clock, metrics, tracer, cfg.Reminder.SweepInterval)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			interfaces.NewReminderHandler(service, clock).RegisterRoutes(appCtx.Mux)
		},
		Workers:    []func(ctx context.Context) error{sweeper.Run},
		OnShutdown: cleanups,
	})
}

func buildRepositories(cfg *bootstrap.Config) (domain.PurchaseRepository, domain.NotificationRepository) {
	if cfg.Reminder.Storage == "memory" {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		store := infrastructure.NewMemoryStore()
		return store, store
	}

	db, err := database.OpenMySQL(cfg.Infra.MySQL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := infrastructure.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate reminder schema")
	}
	return infrastructure.NewGormPurchaseRepository(db), infrastructure.NewGormNotificationRepository(db)
}

// buildSweepLock 返回 nil 表示不加锁，多实例部署时依靠条件更新防止重复投递
func buildSweepLock(cfg *bootstrap.Config) (port.SweepLock, func()) {
	switch cfg.Reminder.SweepLock {
	case "redis":
		client, err := redis.NewClient(cfg.Infra.Redis.Addrs)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		lock, err := adapter.NewRedisSweepLock(client, "", cfg.Reminder.SweepLockTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create redis sweep lock")
		}
		return lock, func() { _ = client.Close() }
	case "zookeeper":
		conn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, cfg.Infra.Zookeeper.SessionTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		lock, err := adapter.NewZkSweepLock(conn)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create zookeeper sweep lock")
		}
		return lock, conn.Close
	default:
		return nil, func() {}
	}
}

func leadTimes(in []bootstrap.LeadTimeConfig) []domain.LeadTime {
	out := make([]domain.LeadTime, 0, len(in))
	for _, lt := range in {
		out = append(out, domain.LeadTime{Type: domain.NotificationType(lt.Type), Days: lt.Days})
	}
	return out
}
