package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Serrao06/news-aggregator/internal/domain"
)

const nyTimesBaseURL = "https://api.nytimes.com/svc/topstories/v2"

// nyTimesSections отображает внутренние категории на секции Top Stories.
// Категории вне таблицы этим провайдером не обслуживаются.
var nyTimesSections = map[string]string{
	"technology":    "technology",
	"business":      "business",
	"sports":        "sports",
	"health":        "health",
	"entertainment": "arts",
}

// NYTimes загружает статьи NYTimes Top Stories.
type NYTimes struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewNYTimes создаёт адаптер NYTimes.
func NewNYTimes(apiKey string) *NYTimes {
	return &NYTimes{client: newHTTPClient(), apiKey: apiKey, baseURL: nyTimesBaseURL}
}

var _ domain.Provider = (*NYTimes)(nil)

// Name возвращает имя провайдера.
func (p *NYTimes) Name() string { return "NYTimes" }

// Policy возвращает политику дедупликации.
func (p *NYTimes) Policy() domain.DedupPolicy { return domain.DedupCreateIfAbsent }

type nyTimesResponse struct {
	Results []struct {
		Title         string     `json:"title"`
		Abstract      *string    `json:"abstract"`
		Byline        *string    `json:"byline"`
		URL           string     `json:"url"`
		PublishedDate *time.Time `json:"published_date"`
	} `json:"results"`
}

// Fetch загружает статьи секции, соответствующей категории.
func (p *NYTimes) Fetch(ctx context.Context, category string) ([]domain.News, error) {
	section, ok := nyTimesSections[category]
	if !ok {
		return nil, nil
	}

	q := url.Values{}
	q.Set("api-key", p.apiKey)
	endpoint := fmt.Sprintf("%s/%s.json?%s", p.baseURL, section, q.Encode())

	var payload nyTimesResponse
	if err := getJSON(ctx, p.client, "nytimes", "top_stories", category, endpoint, &payload); err != nil {
		return nil, err
	}

	news := make([]domain.News, 0, len(payload.Results))
	for _, article := range payload.Results {
		if article.URL == "" {
			continue
		}
		news = append(news, domain.News{
			Title:       article.Title,
			Description: optional(article.Abstract),
			Author:      optional(article.Byline),
			URL:         article.URL,
			Source:      p.Name(),
			Category:    category,
			PublishedAt: article.PublishedDate,
			Provider:    p.Name(),
		})
	}
	return news, nil
}
