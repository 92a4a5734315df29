package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Serrao06/news-aggregator/internal/adapters/api"
	"github.com/Serrao06/news-aggregator/internal/adapters/repo"
	"github.com/Serrao06/news-aggregator/internal/domain"
	"github.com/Serrao06/news-aggregator/internal/infra/cache"
	"github.com/Serrao06/news-aggregator/internal/infra/config"
	"github.com/Serrao06/news-aggregator/internal/infra/db"
	httpinfra "github.com/Serrao06/news-aggregator/internal/infra/http"
	logpkg "github.com/Serrao06/news-aggregator/internal/infra/log"
	"github.com/Serrao06/news-aggregator/internal/infra/mail"
	"github.com/Serrao06/news-aggregator/internal/infra/metrics"
	authusecase "github.com/Serrao06/news-aggregator/internal/usecase/auth"
	newsusecase "github.com/Serrao06/news-aggregator/internal/usecase/news"
	prefsusecase "github.com/Serrao06/news-aggregator/internal/usecase/preferences"
)

func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger, cfg.MetricsAddr)

	if err := db.Migrate(cfg.PGDSN); err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось применить миграции")
	}
	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	var newsCache domain.Cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		newsCache = cache.NewRedis(redisClient)
	} else {
		logger.Warn().Msg("api: REDIS_ADDR не задан, выдача по предпочтениям работает без кэша")
	}

	mailer := mail.NewLogMailer(logger.With().Str("component", "mail").Logger())

	authService := authusecase.NewService(repoAdapter, repoAdapter, repoAdapter, mailer, logger.With().Str("component", "auth").Logger())
	newsService := newsusecase.NewService(repoAdapter, repoAdapter, newsCache, logger.With().Str("component", "news").Logger())
	prefsService := prefsusecase.NewService(repoAdapter, repoAdapter, logger.With().Str("component", "preferences").Logger())

	server := httpinfra.NewServer(logger)
	handler := api.NewHandler(authService, newsService, prefsService, logger.With().Str("component", "api").Logger())
	handler.Routes(server.Router, repoAdapter, repoAdapter)

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Fatal().Err(err).Msg("api: сервер остановился с ошибкой")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: graceful shutdown не удался")
	}
}
