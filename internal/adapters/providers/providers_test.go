package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Serrao06/news-aggregator/internal/domain"
)

func TestNewsAPIFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("country") != "us" {
			t.Errorf("ожидали country=us, получили %s", q.Get("country"))
		}
		if q.Get("category") != "technology" {
			t.Errorf("ожидали category=technology, получили %s", q.Get("category"))
		}
		if q.Get("pageSize") != "10" {
			t.Errorf("ожидали pageSize=10, получили %s", q.Get("pageSize"))
		}
		if q.Get("apikey") != "secret" {
			t.Errorf("ожидали ключ API в запросе")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"articles":[
			{"title":"Go 2 announced","description":"","author":"John Doe","url":"https://example.com/go2","publishedAt":"2026-08-01T10:00:00Z","source":{"name":"Example Tech"}},
			{"title":"Без ссылки","url":""}
		]}`))
	}))
	defer srv.Close()

	p := NewNewsAPI("secret")
	p.baseURL = srv.URL

	news, err := p.Fetch(context.Background(), "technology")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(news) != 1 {
		t.Fatalf("статья без URL должна отбрасываться, получили %d", len(news))
	}
	article := news[0]
	if article.Provider != "NewsAPI" {
		t.Fatalf("ожидали provider NewsAPI, получили %s", article.Provider)
	}
	if article.Source != "Example Tech" {
		t.Fatalf("source должен браться из ответа: %s", article.Source)
	}
	if article.Description != nil {
		t.Fatalf("пустое описание должно становиться nil")
	}
	if article.Author == nil || *article.Author != "John Doe" {
		t.Fatalf("автор потерялся при нормализации")
	}
	if article.Category != "technology" {
		t.Fatalf("категория должна проставляться из запроса")
	}
	if p.Policy() != domain.DedupCreateIfAbsent {
		t.Fatalf("NewsAPI не должен обновлять существующие записи")
	}
}

func TestNewsAPIFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"error"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewNewsAPI("secret")
	p.baseURL = srv.URL

	if _, err := p.Fetch(context.Background(), "business"); err == nil {
		t.Fatalf("не-2xx статус должен давать ошибку")
	}
}

func TestNYTimesMapsEntertainmentToArts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/arts.json" {
			t.Errorf("ожидали секцию arts, получили %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-key") != "secret" {
			t.Errorf("ожидали ключ API в запросе")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Opera review","abstract":"A night out","byline":"By Jane Roe","url":"https://example.com/opera","published_date":"2026-08-02T08:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	p := NewNYTimes("secret")
	p.baseURL = srv.URL

	news, err := p.Fetch(context.Background(), "entertainment")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(news) != 1 {
		t.Fatalf("ожидали 1 статью, получили %d", len(news))
	}
	article := news[0]
	if article.Category != "entertainment" {
		t.Fatalf("категория остаётся внутренней, а не arts: %s", article.Category)
	}
	if article.Source != "NYTimes" || article.Provider != "NYTimes" {
		t.Fatalf("source и provider у NYTimes совпадают с именем провайдера")
	}
	if article.Author == nil || *article.Author != "By Jane Roe" {
		t.Fatalf("byline должен попадать в author")
	}
}

func TestNYTimesSkipsUnknownCategory(t *testing.T) {
	p := NewNYTimes("secret")
	p.baseURL = "http://127.0.0.1:1"

	news, err := p.Fetch(context.Background(), "politics")
	if err != nil {
		t.Fatalf("необслуживаемая категория не должна давать ошибку: %v", err)
	}
	if news != nil {
		t.Fatalf("ожидали пустой результат без похода в сеть")
	}
}

func TestGuardianFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("section") != "sports" {
			t.Errorf("ожидали section=sports, получили %s", q.Get("section"))
		}
		if q.Get("show-fields") != "headline,trailText,webUrl,publication" {
			t.Errorf("неожиданный show-fields: %s", q.Get("show-fields"))
		}
		if q.Get("page-size") != "10" {
			t.Errorf("ожидали page-size=10, получили %s", q.Get("page-size"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":{"results":[
			{"webTitle":"Final score","webUrl":"https://example.com/final","webPublicationDate":"2026-08-03T21:00:00Z","fields":{"trailText":"Match report","byline":"Sam Lee"}}
		]}}`))
	}))
	defer srv.Close()

	p := NewGuardian("secret")
	p.baseURL = srv.URL

	news, err := p.Fetch(context.Background(), "sports")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(news) != 1 {
		t.Fatalf("ожидали 1 статью, получили %d", len(news))
	}
	article := news[0]
	if article.Source != "The Guardian" || article.Provider != "The Guardian" {
		t.Fatalf("source и provider у Guardian совпадают с именем провайдера")
	}
	if article.Description == nil || *article.Description != "Match report" {
		t.Fatalf("trailText должен попадать в description")
	}
	if p.Policy() != domain.DedupUpsert {
		t.Fatalf("Guardian должен обновлять существующие записи")
	}
}
