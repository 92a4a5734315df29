package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Serrao06/news-aggregator/internal/domain"
)

const newsAPIBaseURL = "https://newsapi.org/v2/top-headlines"

// NewsAPI загружает главные заголовки newsapi.org по стране US и категории.
// Повторные URL молча отбрасываются, поля существующих записей не обновляются.
type NewsAPI struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewNewsAPI создаёт адаптер NewsAPI.
func NewNewsAPI(apiKey string) *NewsAPI {
	return &NewsAPI{client: newHTTPClient(), apiKey: apiKey, baseURL: newsAPIBaseURL}
}

var _ domain.Provider = (*NewsAPI)(nil)

// Name возвращает имя провайдера.
func (p *NewsAPI) Name() string { return "NewsAPI" }

// Policy возвращает политику дедупликации.
func (p *NewsAPI) Policy() domain.DedupPolicy { return domain.DedupCreateIfAbsent }

type newsAPIResponse struct {
	Articles []struct {
		Title       string     `json:"title"`
		Description *string    `json:"description"`
		Author      *string    `json:"author"`
		URL         string     `json:"url"`
		PublishedAt *time.Time `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Fetch загружает и нормализует статьи категории.
func (p *NewsAPI) Fetch(ctx context.Context, category string) ([]domain.News, error) {
	q := url.Values{}
	q.Set("country", "us")
	q.Set("category", category)
	q.Set("pageSize", strconv.Itoa(fetchPageSize))
	q.Set("apikey", p.apiKey)

	var payload newsAPIResponse
	if err := getJSON(ctx, p.client, "newsapi", "top_headlines", category, p.baseURL+"?"+q.Encode(), &payload); err != nil {
		return nil, err
	}

	news := make([]domain.News, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		if article.URL == "" {
			continue
		}
		news = append(news, domain.News{
			Title:       article.Title,
			Description: optional(article.Description),
			Author:      optional(article.Author),
			URL:         article.URL,
			Source:      article.Source.Name,
			Category:    category,
			PublishedAt: article.PublishedAt,
			Provider:    p.Name(),
		})
	}
	return news, nil
}
