// cmd/notification-service/main.go
package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"returnremind/internal/pkg/bootstrap"
	"returnremind/internal/pkg/httpclient"
	"returnremind/internal/pkg/mq"
	"returnremind/internal/pkg/redis"
	"returnremind/internal/service/notification/application"
	"returnremind/internal/service/notification/infrastructure"
	"returnremind/internal/service/notification/interfaces"
	"returnremind/internal/service/notification/port"
)

const serviceName = "notification-service"

func main() {
	cfg := bootstrap.Init(serviceName)
	if len(cfg.Infra.Kafka.Brokers) == 0 {
		log.Fatal().Msg("KAFKA_BROKERS is required for notification-service")
	}
	var cleanups []func()

	// 邮件渠道：默认只打印日志（对应 mock email 模式）
	var mailer port.Mailer = infrastructure.NewLogMailer()
	if cfg.Notification.Mailer == "http" {
		client := httpclient.NewClient(otel.Tracer(serviceName))
		mailer = infrastructure.NewHTTPMailer(client, cfg.Notification.MailAPIURL, cfg.Notification.MailAPIKey, cfg.Notification.FromAddress)
	}

	var deliveries port.DeliveryLog
	if cfg.Notification.Dedup == "redis" {
		client, err := redis.NewClient(cfg.Infra.Redis.Addrs)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		cleanups = append(cleanups, func() { _ = client.Close() })
		deliveries = infrastructure.NewRedisDeliveryLog(client, cfg.Notification.DedupTTL)
	}

	reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.ReminderTopic, cfg.Infra.Kafka.ConsumerGroup)
	cleanups = append(cleanups, func() { _ = reader.Close() })

	svc := application.NewNotificationService(mailer, deliveries, otel.Tracer(serviceName))
	consumer := interfaces.NewReminderConsumerAdapter(reader, svc)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("GET /metrics", promhttp.Handler())
		},
		Workers:    []func(ctx context.Context) error{consumer.Run},
		OnShutdown: cleanups,
	})
}
