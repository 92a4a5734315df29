package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/Serrao06/news-aggregator/internal/domain"
	httpinfra "github.com/Serrao06/news-aggregator/internal/infra/http"
	authusecase "github.com/Serrao06/news-aggregator/internal/usecase/auth"
	newsusecase "github.com/Serrao06/news-aggregator/internal/usecase/news"
	prefsusecase "github.com/Serrao06/news-aggregator/internal/usecase/preferences"
)

// Лимиты запросов с одного IP в минуту.
const (
	publicRateLimit    = 2
	protectedRateLimit = 60
)

// Handler собирает HTTP-эндпоинты API.
type Handler struct {
	auth  *authusecase.Service
	news  *newsusecase.Service
	prefs *prefsusecase.Service
	log   zerolog.Logger
}

// NewHandler создаёт обработчик API.
func NewHandler(auth *authusecase.Service, news *newsusecase.Service, prefs *prefsusecase.Service, logger zerolog.Logger) *Handler {
	return &Handler{auth: auth, news: news, prefs: prefs, log: logger}
}

// Routes монтирует маршруты API. Публичная группа ограничена
// publicRateLimit запросами в минуту, защищённая — protectedRateLimit,
// и требует bearer-токен.
func (h *Handler) Routes(r chi.Router, tokens domain.TokenRepo, users domain.UserRepo) {
	r.Group(func(public chi.Router) {
		public.Use(httprate.LimitByIP(publicRateLimit, time.Minute))
		public.Post("/api/register", h.register)
		public.Post("/api/login", h.login)
		public.Post("/api/forgot-password", h.forgotPassword)
		public.Post("/api/reset-password", h.resetPassword)
		public.Get("/api/news", h.listNews)
		public.Get("/api/news/{id}", h.getNews)
	})

	r.Group(func(protected chi.Router) {
		protected.Use(httpinfra.AuthMiddleware(tokens, users))
		protected.Use(httprate.LimitByIP(protectedRateLimit, time.Minute))
		protected.Post("/api/logout", h.logout)
		protected.Post("/api/set-user-preference", h.setPreference)
		protected.Get("/api/user-preference", h.preferenceNews)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in authusecase.RegisterInput
	if !decodeBody(w, r, &in) {
		return
	}
	user, token, err := h.auth.Register(r.Context(), in)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeValidation(w, verr)
			return
		}
		h.serverError(w, r, err, "Registration failed! Please try after some time")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration Successful.",
		"user":    user,
		"token":   token,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var creds authusecase.Credentials
	if !decodeBody(w, r, &creds) {
		return
	}
	user, token, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			writeValidation(w, verr)
		case errors.Is(err, authusecase.ErrBadCredentials):
			writeMessage(w, http.StatusUnauthorized, "Entered email or password is incorrect")
		default:
			h.serverError(w, r, err, "Login failed! Please try after some time")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Login Successful.",
		"token_type": "Bearer",
		"user":       user,
		"token":      token,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	user, ok := httpinfra.UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	if err := h.auth.Logout(r.Context(), user.ID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.serverError(w, r, err, "Logout failed! Please try after some time")
		return
	}
	writeMessage(w, http.StatusOK, "You are logged out.")
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), in.Email); err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			writeValidation(w, verr)
		case errors.Is(err, domain.ErrUserNotFound):
			writeMessage(w, http.StatusNotFound, "Make sure entered email is correct "+in.Email)
		default:
			h.serverError(w, r, err, "Failed to send email! Please try after some time")
		}
		return
	}
	writeMessage(w, http.StatusOK, "Email sent Successfully")
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in authusecase.ResetInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := h.auth.ResetPassword(r.Context(), in); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeValidation(w, verr)
			return
		}
		h.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: сброс пароля не удался")
		writeMessage(w, http.StatusInternalServerError, "Failed to update password! Please try after some time")
		return
	}
	writeMessage(w, http.StatusOK, "Password Updated Successfully")
}

func (h *Handler) listNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := newsusecase.ListParams{
		Keyword:  q.Get("keyword"),
		Date:     q.Get("date"),
		Category: q.Get("category"),
		Source:   q.Get("source"),
		Page:     q.Get("page"),
	}
	page, err := h.news.List(r.Context(), params)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   "Invalid filter provided",
				"message": verr.Fields,
			})
			return
		}
		h.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: ошибка листинга новостей")
		writeMessage(w, http.StatusInternalServerError, "An error occurred while fetching news articles")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) getNews(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusNotFound, "News article not found")
		return
	}
	article, err := h.news.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNewsNotFound) {
			writeMessage(w, http.StatusNotFound, "News article not found")
			return
		}
		h.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: ошибка получения статьи")
		writeMessage(w, http.StatusInternalServerError, "An error occurred while fetching news articles")
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *Handler) setPreference(w http.ResponseWriter, r *http.Request) {
	user, ok := httpinfra.UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	var in struct {
		Key    string   `json:"preference_key"`
		Values []string `json:"preference_value"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	values, err := h.prefs.Set(r.Context(), user.ID, in.Key, in.Values)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeValidation(w, verr)
			return
		}
		h.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: ошибка обновления предпочтений")
		writeMessage(w, http.StatusInternalServerError, "An error occurred while updating preferences. Please try later.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Preferences updated successfully",
		"preferences": values,
	})
}

func (h *Handler) preferenceNews(w http.ResponseWriter, r *http.Request) {
	user, ok := httpinfra.UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	result, err := h.news.ListByPreferences(r.Context(), user.ID, page)
	if err != nil {
		switch {
		case errors.Is(err, newsusecase.ErrNoPreferences):
			writeMessage(w, http.StatusNotFound, "No preferences found for this user.")
		case errors.Is(err, newsusecase.ErrNoMatches):
			writeMessage(w, http.StatusNotFound, "No news articles found for your preferences.")
		default:
			h.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: ошибка персональной выдачи")
			writeMessage(w, http.StatusInternalServerError, "An error occurred while fetching news articles. Please try later.")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "News articles fetched successfully.",
		"news":    result,
	})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error, message string) {
	h.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Msg("api: внутренняя ошибка")
	writeMessage(w, http.StatusInternalServerError, message)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeValidation(w http.ResponseWriter, verr *domain.ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"message": "Validation failed",
		"errors":  verr.Fields,
	})
}
