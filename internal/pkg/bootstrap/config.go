// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"returnremind/internal/pkg/database"
)

// Config 是所有服务共享的配置结构，来源依次为：默认值 -> YAML 文件 -> 环境变量。
type Config struct {
	App          AppConfig          `yaml:"app"`
	Infra        InfraConfig        `yaml:"infra"`
	Reminder     ReminderConfig     `yaml:"reminder"`
	Notification NotificationConfig `yaml:"notification"`
}

type AppConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"logLevel"`
}

type InfraConfig struct {
	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`
	Kafka struct {
		Brokers       []string `yaml:"brokers"`
		ReminderTopic string   `yaml:"reminderTopic"`
		ConsumerGroup string   `yaml:"consumerGroup"`
	} `yaml:"kafka"`
	Redis struct {
		Addrs string `yaml:"addrs"`
	} `yaml:"redis"`
	Zookeeper struct {
		Servers        string        `yaml:"servers"`
		SessionTimeout time.Duration `yaml:"sessionTimeout"`
	} `yaml:"zookeeper"`
	MySQL database.MySQLConfig `yaml:"mysql"`
	Nacos struct {
		ServerAddrs string `yaml:"serverAddrs"`
		Namespace   string `yaml:"namespace"`
		Group       string `yaml:"group"`
	} `yaml:"nacos"`
}

// LeadTimeConfig 描述一种提醒：在截止日前 Days 天发送
type LeadTimeConfig struct {
	Type string `yaml:"type"`
	Days int    `yaml:"days"`
}

type ReminderConfig struct {
	Storage       string           `yaml:"storage"`   // mysql | memory
	SweepLock     string           `yaml:"sweepLock"` // none | redis | zookeeper
	LeadTimes     []LeadTimeConfig `yaml:"leadTimes"`
	SendHour      int              `yaml:"sendHour"`  // 提醒在当天几点（UTC）发出
	LookAhead     time.Duration    `yaml:"lookAhead"` // 0 表示展示全部未发送的提醒
	SweepInterval time.Duration    `yaml:"sweepInterval"`
	SweepLockTTL  time.Duration    `yaml:"sweepLockTTL"`
	BatchSize     int              `yaml:"batchSize"`
}

// NotificationConfig 是 notification-service 的邮件配置
type NotificationConfig struct {
	Mailer      string        `yaml:"mailer"` // log | http
	MailAPIURL  string        `yaml:"mailAPIURL"`
	MailAPIKey  string        `yaml:"mailAPIKey"`
	FromAddress string        `yaml:"fromAddress"`
	Dedup       string        `yaml:"dedup"` // none | redis
	DedupTTL    time.Duration `yaml:"dedupTTL"`
}

var currentConfig atomic.Pointer[Config]

// GetCurrentConfig 返回当前生效的配置；未加载时返回默认配置。
func GetCurrentConfig() *Config {
	if c := currentConfig.Load(); c != nil {
		return c
	}
	d := DefaultConfig()
	return &d
}

// SetCurrentConfig 替换当前配置（测试或热更新使用）
func SetCurrentConfig(c *Config) {
	currentConfig.Store(c)
}

// DefaultConfig 返回本地开发使用的默认配置
func DefaultConfig() Config {
	var c Config
	c.App.Port = 8080
	c.App.LogLevel = "info"
	c.Infra.Kafka.ReminderTopic = "return-reminders"
	c.Infra.Kafka.ConsumerGroup = "notification-service-group"
	c.Infra.Zookeeper.SessionTimeout = 10 * time.Second
	c.Infra.MySQL = database.MySQLConfig{Host: "localhost", Port: 3306, User: "root", Database: "returnremind", MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: time.Hour}
	c.Infra.Nacos.Group = "DEFAULT_GROUP"
	c.Reminder = ReminderConfig{
		Storage:   "memory",
		SweepLock: "none",
		LeadTimes: []LeadTimeConfig{
			{Type: "reminder_7d", Days: 7},
			{Type: "reminder_3d", Days: 3},
			{Type: "reminder_1d", Days: 1},
			{Type: "final_day", Days: 0},
		},
		SendHour:      9,
		SweepInterval: time.Minute,
		SweepLockTTL:  5 * time.Minute,
		BatchSize:     100,
	}
	c.Notification = NotificationConfig{
		Mailer:      "log",
		FromAddress: "noreply@returnremind.com",
		Dedup:       "none",
		DedupTTL:    7 * 24 * time.Hour,
	}
	return c
}

// LoadConfig 读取 YAML 文件（path 为空或文件不存在时跳过），再用环境变量覆盖。
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &c); err != nil {
				return nil, errors.Wrapf(err, "parse config file %s", path)
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}
	if err := applyEnv(&c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate 检查配置中会导致运行期错误的取值
func (c *Config) Validate() error {
	r := c.Reminder
	switch r.Storage {
	case "mysql", "memory":
	default:
		return errors.Errorf("reminder.storage must be mysql or memory, got %q", r.Storage)
	}
	switch r.SweepLock {
	case "none", "redis", "zookeeper":
	default:
		return errors.Errorf("reminder.sweepLock must be none, redis or zookeeper, got %q", r.SweepLock)
	}
	if r.SendHour < 0 || r.SendHour > 23 {
		return errors.Errorf("reminder.sendHour must be within 0-23, got %d", r.SendHour)
	}
	if r.SweepInterval <= 0 {
		return errors.New("reminder.sweepInterval must be positive")
	}
	switch c.Notification.Mailer {
	case "log":
	case "http":
		if c.Notification.MailAPIURL == "" {
			return errors.New("notification.mailAPIURL is required when mailer is http")
		}
	default:
		return errors.Errorf("notification.mailer must be log or http, got %q", c.Notification.Mailer)
	}
	switch c.Notification.Dedup {
	case "none", "redis":
	default:
		return errors.Errorf("notification.dedup must be none or redis, got %q", c.Notification.Dedup)
	}
	seen := make(map[string]bool, len(r.LeadTimes))
	for _, lt := range r.LeadTimes {
		if lt.Type == "" || lt.Days < 0 {
			return errors.Errorf("invalid lead time %+v", lt)
		}
		if seen[lt.Type] {
			return errors.Errorf("duplicate lead time type %q", lt.Type)
		}
		seen[lt.Type] = true
	}
	return nil
}

func applyEnv(c *Config) error {
	if v := getEnv("PORT", ""); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "PORT")
		}
		c.App.Port = p
	}
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)
	c.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", c.Infra.Jaeger.Endpoint)
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		c.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	c.Infra.Kafka.ReminderTopic = getEnv("KAFKA_REMINDER_TOPIC", c.Infra.Kafka.ReminderTopic)
	c.Infra.Redis.Addrs = getEnv("REDIS_ADDRS", c.Infra.Redis.Addrs)
	c.Infra.Zookeeper.Servers = getEnv("ZK_SERVERS", c.Infra.Zookeeper.Servers)
	c.Infra.MySQL.Host = getEnv("MYSQL_HOST", c.Infra.MySQL.Host)
	c.Infra.MySQL.User = getEnv("MYSQL_USER", c.Infra.MySQL.User)
	c.Infra.MySQL.Password = getEnv("MYSQL_PASSWORD", c.Infra.MySQL.Password)
	c.Infra.MySQL.Database = getEnv("MYSQL_DATABASE", c.Infra.MySQL.Database)
	c.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", c.Infra.Nacos.ServerAddrs)
	c.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", c.Infra.Nacos.Namespace)
	c.Infra.Nacos.Group = getEnv("NACOS_GROUP", c.Infra.Nacos.Group)
	c.Reminder.Storage = getEnv("REMINDER_STORAGE", c.Reminder.Storage)
	c.Reminder.SweepLock = getEnv("REMINDER_SWEEP_LOCK", c.Reminder.SweepLock)
	c.Notification.Mailer = getEnv("NOTIFY_MAILER", c.Notification.Mailer)
	c.Notification.MailAPIURL = getEnv("MAIL_API_URL", c.Notification.MailAPIURL)
	c.Notification.MailAPIKey = getEnv("MAIL_API_KEY", c.Notification.MailAPIKey)
	c.Notification.FromAddress = getEnv("MAIL_FROM", c.Notification.FromAddress)
	c.Notification.Dedup = getEnv("NOTIFY_DEDUP", c.Notification.Dedup)
	if v := getEnv("REMINDER_SWEEP_INTERVAL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "REMINDER_SWEEP_INTERVAL")
		}
		c.Reminder.SweepInterval = d
	}
	return nil
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
