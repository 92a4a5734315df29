package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Serrao06/news-aggregator/internal/adapters/providers"
	"github.com/Serrao06/news-aggregator/internal/adapters/repo"
	"github.com/Serrao06/news-aggregator/internal/domain"
	"github.com/Serrao06/news-aggregator/internal/infra/config"
	"github.com/Serrao06/news-aggregator/internal/infra/db"
	logpkg "github.com/Serrao06/news-aggregator/internal/infra/log"
	"github.com/Serrao06/news-aggregator/internal/infra/metrics"
	"github.com/Serrao06/news-aggregator/internal/infra/queue"
	"github.com/Serrao06/news-aggregator/internal/usecase/ingest"
)

func main() {
	once := flag.Bool("once", false, "выполнить один проход загрузки и выйти")
	flag.Parse()

	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger, cfg.MetricsAddr)

	if err := db.Migrate(cfg.PGDSN); err != nil {
		logger.Fatal().Err(err).Msg("fetcher: не удалось применить миграции")
	}
	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("fetcher: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	ingestService := ingest.NewService(repoAdapter, buildProviders(cfg, logger), logger.With().Str("component", "ingest").Logger())

	if *once {
		ingestService.Run(ctx)
		return
	}

	fetchQueue, closeQueue := buildQueue(cfg, logger)
	defer closeQueue()

	logger.Info().Msg("fetcher: ожидаю задачи")
	for {
		job, ack, err := fetchQueue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info().Msg("fetcher: остановлен")
				return
			}
			logger.Error().Err(err).Msg("fetcher: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}
		logger.Info().Str("job_id", job.ID).Strs("categories", job.Categories).Str("cause", string(job.Cause)).Msg("fetcher: задача получена")
		ingestService.RunCategories(ctx, job.Categories)
		if err := ack(true); err != nil {
			logger.Error().Err(err).Str("job_id", job.ID).Msg("fetcher: не удалось подтвердить задачу")
		}
	}
}

// buildProviders собирает адаптеры источников. Провайдеры без ключа
// не включаются в обход.
func buildProviders(cfg config.AppConfig, logger zerolog.Logger) []domain.Provider {
	var list []domain.Provider
	if cfg.Providers.NewsAPIKey != "" {
		list = append(list, providers.NewNewsAPI(cfg.Providers.NewsAPIKey))
	} else {
		logger.Warn().Msg("fetcher: NEWSAPI_KEY не задан, NewsAPI отключён")
	}
	if cfg.Providers.NYTimesKey != "" {
		list = append(list, providers.NewNYTimes(cfg.Providers.NYTimesKey))
	} else {
		logger.Warn().Msg("fetcher: NYTIMES_KEY не задан, NYTimes отключён")
	}
	if cfg.Providers.GuardianKey != "" {
		list = append(list, providers.NewGuardian(cfg.Providers.GuardianKey))
	} else {
		logger.Warn().Msg("fetcher: GUARDIAN_KEY не задан, The Guardian отключён")
	}
	if len(list) == 0 {
		logger.Fatal().Msg("fetcher: не настроен ни один провайдер")
	}
	return list
}

func buildQueue(cfg config.AppConfig, logger zerolog.Logger) (domain.FetchQueue, func()) {
	if cfg.RabbitURL != "" {
		rabbit, err := queue.NewRabbitFetchQueue(cfg.RabbitURL, cfg.Queues.Fetch)
		if err != nil {
			logger.Fatal().Err(err).Msg("fetcher: нет подключения к RabbitMQ")
		}
		return rabbit, func() { _ = rabbit.Close() }
	}
	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("fetcher: не задан ни RABBITMQ_URL, ни REDIS_ADDR")
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return queue.NewRedisFetchQueue(redisClient, cfg.Queues.Fetch), func() { _ = redisClient.Close() }
}
