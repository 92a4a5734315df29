package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Serrao06/news-aggregator/internal/domain"
	"github.com/Serrao06/news-aggregator/internal/infra/config"
	logpkg "github.com/Serrao06/news-aggregator/internal/infra/log"
	"github.com/Serrao06/news-aggregator/internal/infra/metrics"
	"github.com/Serrao06/news-aggregator/internal/infra/queue"
)

func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetchQueue, closeQueue := buildQueue(cfg, logger)
	defer closeQueue()

	logger.Info().Dur("interval", cfg.Fetch.Interval).Msg("scheduler: запущен")

	enqueue(ctx, fetchQueue, logger)
	ticker := time.NewTicker(cfg.Fetch.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler: остановлен")
			return
		case <-ticker.C:
			enqueue(ctx, fetchQueue, logger)
		}
	}
}

// enqueue ставит по задаче на каждую поддерживаемую категорию.
func enqueue(ctx context.Context, fetchQueue domain.FetchQueue, logger zerolog.Logger) {
	for _, category := range domain.Categories {
		job := domain.FetchJob{
			ID:          uuid.NewString(),
			Categories:  []string{category},
			RequestedAt: time.Now().UTC(),
			Cause:       domain.FetchCauseScheduled,
		}
		if err := fetchQueue.Enqueue(ctx, job); err != nil {
			logger.Error().Err(err).Str("category", category).Msg("scheduler: не удалось поставить задачу")
			continue
		}
		logger.Debug().Str("job_id", job.ID).Str("category", category).Msg("scheduler: задача поставлена")
	}
}

// buildQueue выбирает очередь: RabbitMQ, если настроен, иначе Redis.
func buildQueue(cfg config.AppConfig, logger zerolog.Logger) (domain.FetchQueue, func()) {
	if cfg.RabbitURL != "" {
		rabbit, err := queue.NewRabbitFetchQueue(cfg.RabbitURL, cfg.Queues.Fetch)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler: нет подключения к RabbitMQ")
		}
		return rabbit, func() { _ = rabbit.Close() }
	}
	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("scheduler: не задан ни RABBITMQ_URL, ни REDIS_ADDR")
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return queue.NewRedisFetchQueue(redisClient, cfg.Queues.Fetch), func() { _ = redisClient.Close() }
}
