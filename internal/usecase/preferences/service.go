package preferences

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Serrao06/news-aggregator/internal/domain"
)

// Service управляет предпочтениями пользователя.
type Service struct {
	prefs domain.PreferenceRepo
	news  domain.NewsRepo
	log   zerolog.Logger
}

// NewService создаёт сервис предпочтений.
func NewService(prefs domain.PreferenceRepo, news domain.NewsRepo, logger zerolog.Logger) *Service {
	return &Service{prefs: prefs, news: news, log: logger}
}

// Set добавляет значения к предпочтению пользователя по ключу.
// Слияние работает как объединение множеств: существующие значения
// сохраняют порядок, новые дописываются в конец, дубликаты отбрасываются.
// Возвращает итоговый список значений.
func (s *Service) Set(ctx context.Context, userID int64, key string, values []string) ([]string, error) {
	fields := domain.FieldErrors{}
	if !domain.IsPreferenceKey(key) {
		fields.Add("preference_key", "The selected preference_key is invalid")
	}
	if len(values) == 0 {
		fields.Add("preference_value", "The preference_value field is required")
	}
	if len(fields) == 0 {
		for i, value := range values {
			exists, err := s.news.ValueExists(ctx, key, value)
			if err != nil {
				return nil, fmt.Errorf("проверка значения предпочтения: %w", err)
			}
			if !exists {
				fields.Add(fmt.Sprintf("preference_value.%d", i), fmt.Sprintf("The selected '%s' '%s' does not exist", value, key))
			}
		}
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError(fields)
	}

	pref, found, err := s.prefs.GetPreference(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("получение предпочтения: %w", err)
	}
	if !found {
		created, err := s.prefs.CreatePreference(ctx, userID, key, dedupe(values))
		if err != nil {
			return nil, fmt.Errorf("создание предпочтения: %w", err)
		}
		return created.Values, nil
	}

	merged, changed := merge(pref.Values, values)
	if changed {
		if err := s.prefs.UpdateValues(ctx, pref.ID, merged); err != nil {
			return nil, fmt.Errorf("обновление предпочтения: %w", err)
		}
	}
	return merged, nil
}

// ListForUser возвращает все записи предпочтений пользователя.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]domain.UserPreference, error) {
	return s.prefs.ListForUser(ctx, userID, domain.PreferenceKeys)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func merge(current, incoming []string) ([]string, bool) {
	seen := make(map[string]struct{}, len(current))
	for _, v := range current {
		seen[v] = struct{}{}
	}
	merged := current
	changed := false
	for _, v := range incoming {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		merged = append(merged, v)
		changed = true
	}
	return merged, changed
}
