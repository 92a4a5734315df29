package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Serrao06/news-aggregator/internal/domain"
	"github.com/Serrao06/news-aggregator/internal/infra/metrics"
)

// Service обходит провайдеров по категориям и складывает статьи в базу.
// Ошибка одного провайдера не прерывает обход: она логируется, считается
// в метриках, и цикл идёт дальше.
type Service struct {
	news      domain.NewsRepo
	providers []domain.Provider
	log       zerolog.Logger
}

// NewService создаёт сервис загрузки.
func NewService(news domain.NewsRepo, providers []domain.Provider, logger zerolog.Logger) *Service {
	return &Service{news: news, providers: providers, log: logger}
}

// Run обходит все поддерживаемые категории.
func (s *Service) Run(ctx context.Context) {
	s.RunCategories(ctx, domain.Categories)
}

// RunCategories обходит указанные категории. Пустой список означает все,
// неизвестные категории пропускаются.
func (s *Service) RunCategories(ctx context.Context, categories []string) {
	start := time.Now()
	if len(categories) == 0 {
		categories = domain.Categories
	}
	for _, category := range categories {
		if !domain.IsValidCategory(category) {
			s.log.Warn().Str("category", category).Msg("ingest: неизвестная категория, пропускаю")
			continue
		}
		for _, provider := range s.providers {
			if ctx.Err() != nil {
				return
			}
			s.fetchOne(ctx, provider, category)
		}
	}
	metrics.FetchBatchSeconds.Observe(time.Since(start).Seconds())
}

func (s *Service) fetchOne(ctx context.Context, provider domain.Provider, category string) {
	articles, err := provider.Fetch(ctx, category)
	if err != nil {
		metrics.FetchErrors.WithLabelValues(provider.Name(), category).Inc()
		s.log.Error().Err(err).
			Str("provider", provider.Name()).
			Str("category", category).
			Msg("ingest: не удалось загрузить новости")
		return
	}

	stored := 0
	for _, article := range articles {
		switch provider.Policy() {
		case domain.DedupUpsert:
			if err := s.news.UpsertByURL(ctx, article); err != nil {
				s.log.Error().Err(err).Str("url", article.URL).Msg("ingest: ошибка upsert статьи")
				continue
			}
			stored++
		default:
			created, err := s.news.CreateIfAbsent(ctx, article)
			if err != nil {
				s.log.Error().Err(err).Str("url", article.URL).Msg("ingest: ошибка вставки статьи")
				continue
			}
			if created {
				stored++
			}
		}
	}

	metrics.FetchArticlesStored.WithLabelValues(provider.Name()).Add(float64(stored))
	s.log.Info().
		Str("provider", provider.Name()).
		Str("category", category).
		Int("fetched", len(articles)).
		Int("stored", stored).
		Msg("ingest: категория обработана")
}
