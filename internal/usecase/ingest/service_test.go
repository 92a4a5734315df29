package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Serrao06/news-aggregator/internal/domain"
)

type stubProvider struct {
	name    string
	policy  domain.DedupPolicy
	news    []domain.News
	err     error
	fetched int
}

func (s *stubProvider) Name() string               { return s.name }
func (s *stubProvider) Policy() domain.DedupPolicy { return s.policy }
func (s *stubProvider) Fetch(context.Context, string) ([]domain.News, error) {
	s.fetched++
	if s.err != nil {
		return nil, s.err
	}
	return s.news, nil
}

type stubNewsRepo struct {
	known    map[string]bool
	created  []domain.News
	upserted []domain.News
}

func newStubNewsRepo() *stubNewsRepo {
	return &stubNewsRepo{known: map[string]bool{}}
}

func (s *stubNewsRepo) CreateIfAbsent(_ context.Context, n domain.News) (bool, error) {
	if s.known[n.URL] {
		return false, nil
	}
	s.known[n.URL] = true
	s.created = append(s.created, n)
	return true, nil
}

func (s *stubNewsRepo) UpsertByURL(_ context.Context, n domain.News) error {
	s.known[n.URL] = true
	s.upserted = append(s.upserted, n)
	return nil
}

func (s *stubNewsRepo) List(context.Context, domain.NewsFilter, int) (domain.NewsPage, error) {
	return domain.NewsPage{}, nil
}

func (s *stubNewsRepo) GetByID(context.Context, int64) (domain.News, error) {
	return domain.News{}, domain.ErrNewsNotFound
}

func (s *stubNewsRepo) ListByPreferences(context.Context, []domain.UserPreference, int) (domain.NewsPage, error) {
	return domain.NewsPage{}, nil
}

func (s *stubNewsRepo) ValueExists(context.Context, string, string) (bool, error) {
	return false, nil
}

func TestRunCategoriesCreateIfAbsent(t *testing.T) {
	repo := newStubNewsRepo()
	repo.known["https://example.com/old"] = true
	provider := &stubProvider{
		name:   "NewsAPI",
		policy: domain.DedupCreateIfAbsent,
		news: []domain.News{
			{Title: "старая", URL: "https://example.com/old"},
			{Title: "новая", URL: "https://example.com/new"},
		},
	}
	service := NewService(repo, []domain.Provider{provider}, zerolog.Nop())

	service.RunCategories(context.Background(), []string{"technology"})

	if len(repo.created) != 1 {
		t.Fatalf("ожидали 1 созданную статью, получили %d", len(repo.created))
	}
	if repo.created[0].URL != "https://example.com/new" {
		t.Fatalf("создана не та статья: %s", repo.created[0].URL)
	}
	if len(repo.upserted) != 0 {
		t.Fatalf("create-if-absent не должен делать upsert")
	}
}

func TestRunCategoriesUpsert(t *testing.T) {
	repo := newStubNewsRepo()
	repo.known["https://example.com/known"] = true
	provider := &stubProvider{
		name:   "The Guardian",
		policy: domain.DedupUpsert,
		news:   []domain.News{{Title: "обновлённая", URL: "https://example.com/known"}},
	}
	service := NewService(repo, []domain.Provider{provider}, zerolog.Nop())

	service.RunCategories(context.Background(), []string{"sports"})

	if len(repo.upserted) != 1 {
		t.Fatalf("ожидали 1 upsert, получили %d", len(repo.upserted))
	}
}

func TestRunCategoriesProviderErrorContinues(t *testing.T) {
	repo := newStubNewsRepo()
	broken := &stubProvider{name: "NewsAPI", policy: domain.DedupCreateIfAbsent, err: errors.New("timeout")}
	healthy := &stubProvider{
		name:   "NYTimes",
		policy: domain.DedupCreateIfAbsent,
		news:   []domain.News{{Title: "живая", URL: "https://example.com/alive"}},
	}
	service := NewService(repo, []domain.Provider{broken, healthy}, zerolog.Nop())

	service.RunCategories(context.Background(), []string{"health"})

	if healthy.fetched != 1 {
		t.Fatalf("ошибка первого провайдера не должна прерывать обход")
	}
	if len(repo.created) != 1 {
		t.Fatalf("ожидали 1 статью от здорового провайдера, получили %d", len(repo.created))
	}
}

func TestRunCategoriesSkipsUnknownCategory(t *testing.T) {
	repo := newStubNewsRepo()
	provider := &stubProvider{name: "NewsAPI", policy: domain.DedupCreateIfAbsent}
	service := NewService(repo, []domain.Provider{provider}, zerolog.Nop())

	service.RunCategories(context.Background(), []string{"politics"})

	if provider.fetched != 0 {
		t.Fatalf("неизвестная категория не должна уходить провайдерам")
	}
}

func TestRunEmptyListMeansAllCategories(t *testing.T) {
	repo := newStubNewsRepo()
	provider := &stubProvider{name: "NewsAPI", policy: domain.DedupCreateIfAbsent}
	service := NewService(repo, []domain.Provider{provider}, zerolog.Nop())

	service.RunCategories(context.Background(), nil)

	if provider.fetched != len(domain.Categories) {
		t.Fatalf("ожидали %d вызовов, получили %d", len(domain.Categories), provider.fetched)
	}
}
