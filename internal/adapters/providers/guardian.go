package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Serrao06/news-aggregator/internal/domain"
)

const guardianBaseURL = "https://content.guardianapis.com/search"

// Guardian загружает статьи Guardian Content API. В отличие от остальных
// адаптеров повторная загрузка известного URL обновляет поля записи.
type Guardian struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewGuardian создаёт адаптер The Guardian.
func NewGuardian(apiKey string) *Guardian {
	return &Guardian{client: newHTTPClient(), apiKey: apiKey, baseURL: guardianBaseURL}
}

var _ domain.Provider = (*Guardian)(nil)

// Name возвращает имя провайдера.
func (p *Guardian) Name() string { return "The Guardian" }

// Policy возвращает политику дедупликации.
func (p *Guardian) Policy() domain.DedupPolicy { return domain.DedupUpsert }

type guardianResponse struct {
	Response struct {
		Results []struct {
			WebTitle           string     `json:"webTitle"`
			WebURL             string     `json:"webUrl"`
			WebPublicationDate *time.Time `json:"webPublicationDate"`
			Fields             struct {
				TrailText *string `json:"trailText"`
				Byline    *string `json:"byline"`
			} `json:"fields"`
		} `json:"results"`
	} `json:"response"`
}

// Fetch загружает статьи секции, совпадающей с категорией.
func (p *Guardian) Fetch(ctx context.Context, category string) ([]domain.News, error) {
	q := url.Values{}
	q.Set("api-key", p.apiKey)
	q.Set("section", category)
	q.Set("show-fields", "headline,trailText,webUrl,publication")
	q.Set("page-size", strconv.Itoa(fetchPageSize))

	var payload guardianResponse
	if err := getJSON(ctx, p.client, "guardian", "search", category, p.baseURL+"?"+q.Encode(), &payload); err != nil {
		return nil, err
	}

	news := make([]domain.News, 0, len(payload.Response.Results))
	for _, article := range payload.Response.Results {
		if article.WebURL == "" {
			continue
		}
		news = append(news, domain.News{
			Title:       article.WebTitle,
			Description: optional(article.Fields.TrailText),
			Author:      optional(article.Fields.Byline),
			URL:         article.WebURL,
			Source:      p.Name(),
			Category:    category,
			PublishedAt: article.WebPublicationDate,
			Provider:    p.Name(),
		})
	}
	return news, nil
}
