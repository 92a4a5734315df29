package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RabbitURL string `envconfig:"RABBITMQ_URL"`

	Providers struct {
		NewsAPIKey  string `envconfig:"NEWSAPI_KEY"`
		NYTimesKey  string `envconfig:"NYTIMES_KEY"`
		GuardianKey string `envconfig:"GUARDIAN_KEY"`
	} `envconfig:""`

	Fetch struct {
		Interval time.Duration `envconfig:"FETCH_INTERVAL" default:"3m"`
	} `envconfig:""`

	Queues struct {
		Fetch string `envconfig:"FETCH_QUEUE_KEY" default:"fetch_jobs"`
	} `envconfig:""`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
