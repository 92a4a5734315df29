package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Serrao06/news-aggregator/internal/domain"
	authusecase "github.com/Serrao06/news-aggregator/internal/usecase/auth"
	newsusecase "github.com/Serrao06/news-aggregator/internal/usecase/news"
	prefsusecase "github.com/Serrao06/news-aggregator/internal/usecase/preferences"
)

// stubStore реализует все репозитории поверх памяти.
type stubStore struct {
	users      map[string]domain.User
	nextUserID int64
	tokens     map[string]int64
	resets     map[string]domain.PasswordReset
	prefs      []domain.UserPreference
	articles   []domain.News
}

func newStubStore() *stubStore {
	return &stubStore{
		users:  map[string]domain.User{},
		tokens: map[string]int64{},
		resets: map[string]domain.PasswordReset{},
	}
}

func (s *stubStore) CreateIfAbsent(context.Context, domain.News) (bool, error) { return false, nil }
func (s *stubStore) UpsertByURL(context.Context, domain.News) error            { return nil }

func (s *stubStore) List(context.Context, domain.NewsFilter, int) (domain.NewsPage, error) {
	return s.pageOfAll(), nil
}

func (s *stubStore) GetByID(_ context.Context, id int64) (domain.News, error) {
	for _, article := range s.articles {
		if article.ID == id {
			return article, nil
		}
	}
	return domain.News{}, domain.ErrNewsNotFound
}

func (s *stubStore) ListByPreferences(context.Context, []domain.UserPreference, int) (domain.NewsPage, error) {
	return s.pageOfAll(), nil
}

func (s *stubStore) ValueExists(_ context.Context, key, value string) (bool, error) {
	for _, article := range s.articles {
		switch key {
		case "source":
			if article.Source == value {
				return true, nil
			}
		case "category":
			if article.Category == value {
				return true, nil
			}
		case "author":
			if article.Author != nil && *article.Author == value {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *stubStore) pageOfAll() domain.NewsPage {
	items := make([]domain.NewsListItem, 0, len(s.articles))
	for _, article := range s.articles {
		items = append(items, domain.NewsListItem{
			ID:       article.ID,
			Title:    article.Title,
			Source:   article.Source,
			Category: article.Category,
		})
	}
	return domain.NewsPage{CurrentPage: 1, Data: items, PerPage: domain.PageSize, Total: int64(len(items)), LastPage: 1}
}

func (s *stubStore) CreateUser(_ context.Context, name, email, passwordHash string) (domain.User, error) {
	if _, ok := s.users[email]; ok {
		return domain.User{}, domain.ErrEmailTaken
	}
	s.nextUserID++
	user := domain.User{ID: s.nextUserID, Name: name, Email: email, PasswordHash: passwordHash}
	s.users[email] = user
	return user, nil
}

func (s *stubStore) UserByEmail(_ context.Context, email string) (domain.User, error) {
	user, ok := s.users[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *stubStore) UserByID(_ context.Context, id int64) (domain.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *stubStore) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	for email, user := range s.users {
		if user.ID == userID {
			user.PasswordHash = passwordHash
			s.users[email] = user
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (s *stubStore) CreateToken(_ context.Context, userID int64, _, tokenHash string) error {
	s.tokens[tokenHash] = userID
	return nil
}

func (s *stubStore) UserIDByHash(_ context.Context, tokenHash string) (int64, error) {
	userID, ok := s.tokens[tokenHash]
	if !ok {
		return 0, domain.ErrTokenNotFound
	}
	return userID, nil
}

func (s *stubStore) DeleteUserTokens(_ context.Context, userID int64) error {
	for hash, owner := range s.tokens {
		if owner == userID {
			delete(s.tokens, hash)
		}
	}
	return nil
}

func (s *stubStore) UpsertReset(_ context.Context, email, tokenHash string) error {
	s.resets[email] = domain.PasswordReset{Email: email, TokenHash: tokenHash, CreatedAt: time.Now()}
	return nil
}

func (s *stubStore) GetReset(_ context.Context, email string) (domain.PasswordReset, error) {
	reset, ok := s.resets[email]
	if !ok {
		return domain.PasswordReset{}, domain.ErrResetNotFound
	}
	return reset, nil
}

func (s *stubStore) DeleteReset(_ context.Context, email string) error {
	delete(s.resets, email)
	return nil
}

func (s *stubStore) ListForUser(_ context.Context, userID int64, _ []string) ([]domain.UserPreference, error) {
	var out []domain.UserPreference
	for _, pref := range s.prefs {
		if pref.UserID == userID {
			out = append(out, pref)
		}
	}
	return out, nil
}

func (s *stubStore) GetPreference(_ context.Context, userID int64, key string) (domain.UserPreference, bool, error) {
	for _, pref := range s.prefs {
		if pref.UserID == userID && pref.Key == key {
			return pref, true, nil
		}
	}
	return domain.UserPreference{}, false, nil
}

func (s *stubStore) CreatePreference(_ context.Context, userID int64, key string, values []string) (domain.UserPreference, error) {
	pref := domain.UserPreference{ID: int64(len(s.prefs) + 1), UserID: userID, Key: key, Values: values}
	s.prefs = append(s.prefs, pref)
	return pref, nil
}

func (s *stubStore) UpdateValues(_ context.Context, id int64, values []string) error {
	for i := range s.prefs {
		if s.prefs[i].ID == id {
			s.prefs[i].Values = values
			return nil
		}
	}
	return nil
}

type stubMailer struct{}

func (stubMailer) SendPasswordReset(context.Context, string, string) error { return nil }

type memCache struct {
	store map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) { return c.store[key], nil }
func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.store[key] = value
	return nil
}

// newTestRouter собирает полный API поверх стаба; лимитеры у каждого
// роутера свои, поэтому тесты не мешают друг другу.
func newTestRouter(store *stubStore) chi.Router {
	logger := zerolog.Nop()
	authService := authusecase.NewService(store, store, store, stubMailer{}, logger)
	newsService := newsusecase.NewService(store, store, &memCache{store: map[string][]byte{}}, logger)
	prefsService := prefsusecase.NewService(store, store, logger)
	handler := NewHandler(authService, newsService, prefsService, logger)
	r := chi.NewRouter()
	handler.Routes(r, store, store)
	return r
}

func seedUser(t *testing.T, store *stubStore) (domain.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ng#pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	user, err := store.CreateUser(context.Background(), "Ivan", "ivan@example.com", string(hash))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	token, err := domain.NewPlainToken()
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := store.CreateToken(context.Background(), user.ID, user.Email, domain.HashToken(token)); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	return user, token
}

func doRequest(r chi.Router, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("невалидный JSON в ответе: %v", err)
	}
	return payload
}

func TestRegisterEndpoint(t *testing.T) {
	r := newTestRouter(newStubStore())

	rec := doRequest(r, http.MethodPost, "/api/register", "",
		`{"name":"Ivan","email":"ivan@example.com","password":"Str0ng#pass","password_confirmation":"Str0ng#pass"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("ожидали 201, получили %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeResponse(t, rec)
	if payload["message"] != "Registration Successful." {
		t.Fatalf("неожиданное сообщение: %v", payload["message"])
	}
	if token, _ := payload["token"].(string); token == "" {
		t.Fatalf("ожидали непустой токен")
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("пароль и его хэш не должны попадать в ответ")
	}
}

func TestRegisterValidationError(t *testing.T) {
	r := newTestRouter(newStubStore())

	rec := doRequest(r, http.MethodPost, "/api/register", "",
		`{"name":"Ivan","email":"ivan@example.com","password":"weak","password_confirmation":"weak"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("ожидали 422, получили %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	errs, ok := payload["errors"].(map[string]any)
	if !ok || errs["password"] == nil {
		t.Fatalf("ожидали ошибки по полю password: %s", rec.Body.String())
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := newStubStore()
	seedUser(t, store)
	r := newTestRouter(store)

	rec := doRequest(r, http.MethodPost, "/api/login", "",
		`{"email":"ivan@example.com","password":"Wrong#pass1"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидали 401, получили %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["message"] != "Entered email or password is incorrect" {
		t.Fatalf("неожиданное сообщение: %v", payload["message"])
	}
}

func TestUnauthenticatedRequest(t *testing.T) {
	r := newTestRouter(newStubStore())

	rec := doRequest(r, http.MethodGet, "/api/user-preference", "", "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидали 401, получили %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["message"] != "Unauthenticated." {
		t.Fatalf("неожиданное сообщение: %v", payload["message"])
	}
}

func TestListNewsInvalidCategory(t *testing.T) {
	r := newTestRouter(newStubStore())

	rec := doRequest(r, http.MethodGet, "/api/news?category=astrology", "", "")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("ожидали 422, получили %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["error"] != "Invalid filter provided" {
		t.Fatalf("неожиданный ответ: %s", rec.Body.String())
	}
}

func TestGetNewsNotFound(t *testing.T) {
	r := newTestRouter(newStubStore())

	rec := doRequest(r, http.MethodGet, "/api/news/999", "", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("ожидали 404, получили %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["message"] != "News article not found" {
		t.Fatalf("неожиданное сообщение: %v", payload["message"])
	}
}

func TestSetPreferenceAndFetchNews(t *testing.T) {
	store := newStubStore()
	store.articles = []domain.News{{ID: 1, Title: "Headline", URL: "https://example.com/1", Source: "Example Tech", Category: "technology", Provider: "NewsAPI"}}
	_, token := seedUser(t, store)
	r := newTestRouter(store)

	rec := doRequest(r, http.MethodPost, "/api/set-user-preference", token,
		`{"preference_key":"source","preference_value":["Example Tech"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeResponse(t, rec)
	if payload["message"] != "Preferences updated successfully" {
		t.Fatalf("неожиданное сообщение: %v", payload["message"])
	}

	rec = doRequest(r, http.MethodGet, "/api/user-preference", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d: %s", rec.Code, rec.Body.String())
	}
	payload = decodeResponse(t, rec)
	if payload["message"] != "News articles fetched successfully." {
		t.Fatalf("неожиданное сообщение: %v", payload["message"])
	}
	if payload["news"] == nil {
		t.Fatalf("ожидали страницу новостей в ответе")
	}
}

func TestSetPreferenceUnknownValue(t *testing.T) {
	store := newStubStore()
	_, token := seedUser(t, store)
	r := newTestRouter(store)

	rec := doRequest(r, http.MethodPost, "/api/set-user-preference", token,
		`{"preference_key":"author","preference_value":["Nobody"]}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("ожидали 422, получили %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "The selected 'Nobody' 'author' does not exist") {
		t.Fatalf("неожиданный ответ: %s", rec.Body.String())
	}
}

func TestPreferenceNewsWithoutPreferences(t *testing.T) {
	store := newStubStore()
	_, token := seedUser(t, store)
	r := newTestRouter(store)

	rec := doRequest(r, http.MethodGet, "/api/user-preference", token, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("ожидали 404, получили %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["message"] != "No preferences found for this user." {
		t.Fatalf("неожиданное сообщение: %v", payload["message"])
	}
}

func TestLogoutEndpoint(t *testing.T) {
	store := newStubStore()
	_, token := seedUser(t, store)
	r := newTestRouter(store)

	rec := doRequest(r, http.MethodPost, "/api/logout", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["message"] != "You are logged out." {
		t.Fatalf("неожиданное сообщение: %v", payload["message"])
	}

	rec = doRequest(r, http.MethodGet, "/api/user-preference", token, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("после выхода токен должен быть недействителен, получили %d", rec.Code)
	}
}

func TestPublicRateLimit(t *testing.T) {
	r := newTestRouter(newStubStore())

	for i := 0; i < publicRateLimit; i++ {
		if rec := doRequest(r, http.MethodGet, "/api/news", "", ""); rec.Code != http.StatusOK {
			t.Fatalf("запрос %d должен проходить, получили %d", i+1, rec.Code)
		}
	}
	rec := doRequest(r, http.MethodGet, "/api/news", "", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("сверхлимитный запрос должен получать 429, получили %d", rec.Code)
	}
}
