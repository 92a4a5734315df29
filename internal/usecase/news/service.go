package news

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Serrao06/news-aggregator/internal/domain"
	"github.com/Serrao06/news-aggregator/internal/infra/metrics"
)

var (
	// ErrNoPreferences возвращается, если у пользователя нет ни одной записи предпочтений.
	ErrNoPreferences = errors.New("у пользователя нет предпочтений")
	// ErrNoMatches возвращается, если под предпочтения не попала ни одна статья.
	ErrNoMatches = errors.New("нет статей по предпочтениям")
)

const cacheTTL = 600 * time.Second

// Service отдаёт статьи: общий листинг с фильтрами, карточку
// и персональную ленту по предпочтениям с кэшем.
type Service struct {
	news  domain.NewsRepo
	prefs domain.PreferenceRepo
	cache domain.Cache
	log   zerolog.Logger
}

// NewService создаёт сервис новостей. cache может быть nil — тогда
// персональная лента всегда идёт в базу.
func NewService(news domain.NewsRepo, prefs domain.PreferenceRepo, cache domain.Cache, logger zerolog.Logger) *Service {
	return &Service{news: news, prefs: prefs, cache: cache, log: logger}
}

// ListParams — сырые параметры листинга из query string.
type ListParams struct {
	Keyword  string
	Date     string
	Category string
	Source   string
	Page     string
}

// List валидирует фильтры и возвращает страницу статей.
func (s *Service) List(ctx context.Context, params ListParams) (domain.NewsPage, error) {
	fields := domain.FieldErrors{}
	if len(params.Keyword) > 255 {
		fields.Add("keyword", "The keyword may not be greater than 255 characters")
	}
	if params.Date != "" {
		if _, err := time.Parse("2006-01-02", params.Date); err != nil {
			fields.Add("date", "The date is not a valid date")
		}
	}
	if params.Category != "" && !domain.IsValidCategory(params.Category) {
		fields.Add("category", "The selected category is invalid")
	}
	if len(params.Source) > 255 {
		fields.Add("source", "The source may not be greater than 255 characters")
	}
	page := 1
	if params.Page != "" {
		n, err := strconv.Atoi(params.Page)
		if err != nil {
			fields.Add("page", "The page must be an integer")
		} else if n < 1 {
			fields.Add("page", "The page must be at least 1")
		} else {
			page = n
		}
	}
	if len(fields) > 0 {
		return domain.NewsPage{}, domain.NewValidationError(fields)
	}

	filter := domain.NewsFilter{
		Keyword:  params.Keyword,
		Date:     params.Date,
		Category: params.Category,
		Source:   params.Source,
	}
	return s.news.List(ctx, filter, page)
}

// Get возвращает статью по идентификатору.
func (s *Service) Get(ctx context.Context, id int64) (domain.News, error) {
	return s.news.GetByID(ctx, id)
}

// ListByPreferences возвращает страницу статей, подобранную под
// предпочтения пользователя. Результат кэшируется на cacheTTL; ключ
// включает идентификатор пользователя и хэш его записей предпочтений,
// поэтому любое изменение предпочтений начинает новый ключ.
func (s *Service) ListByPreferences(ctx context.Context, userID int64, page int) (domain.NewsPage, error) {
	prefs, err := s.prefs.ListForUser(ctx, userID, domain.PreferenceKeys)
	if err != nil {
		return domain.NewsPage{}, fmt.Errorf("получение предпочтений: %w", err)
	}
	if len(prefs) == 0 {
		return domain.NewsPage{}, ErrNoPreferences
	}
	if page < 1 {
		page = 1
	}

	key, err := cacheKey(userID, prefs)
	if err != nil {
		return domain.NewsPage{}, err
	}
	if cached, ok := s.fromCache(ctx, key); ok {
		metrics.ObserveCacheLookup(true)
		if len(cached.Data) == 0 {
			return cached, ErrNoMatches
		}
		return cached, nil
	}
	metrics.ObserveCacheLookup(false)

	result, err := s.news.ListByPreferences(ctx, prefs, page)
	if err != nil {
		return domain.NewsPage{}, fmt.Errorf("подбор статей: %w", err)
	}
	s.toCache(ctx, key, result)
	if len(result.Data) == 0 {
		return result, ErrNoMatches
	}
	return result, nil
}

func (s *Service) fromCache(ctx context.Context, key string) (domain.NewsPage, bool) {
	if s.cache == nil {
		return domain.NewsPage{}, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("news: ошибка чтения кэша")
		return domain.NewsPage{}, false
	}
	if data == nil {
		return domain.NewsPage{}, false
	}
	var page domain.NewsPage
	if err := json.Unmarshal(data, &page); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("news: битая запись в кэше")
		return domain.NewsPage{}, false
	}
	return page, true
}

func (s *Service) toCache(ctx context.Context, key string, page domain.NewsPage) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("news: ошибка записи кэша")
	}
}

func cacheKey(userID int64, prefs []domain.UserPreference) (string, error) {
	payload, err := json.Marshal(prefs)
	if err != nil {
		return "", fmt.Errorf("сериализация предпочтений: %w", err)
	}
	return fmt.Sprintf("news_%d_preferences_%x", userID, md5.Sum(payload)), nil
}
