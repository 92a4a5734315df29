package domain

import "time"

// News — нормализованная статья из внешнего провайдера новостей.
type News struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Author      *string    `json:"author"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	Category    string     `json:"category"`
	PublishedAt *time.Time `json:"published_at"`
	Provider    string     `json:"provider"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewsListItem — сокращённое представление статьи для списочных выдач.
type NewsListItem struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	Category    string     `json:"category"`
	Author      *string    `json:"author"`
	PublishedAt *time.Time `json:"published_at"`
}

// User описывает зарегистрированного пользователя API.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPreference хранит именованный набор значений предпочтений пользователя.
// На пару (user_id, preference_key) существует не более одной записи.
type UserPreference struct {
	ID        int64     `json:"-"`
	UserID    int64     `json:"-"`
	Key       string    `json:"preference_key"`
	Values    []string  `json:"preference_value"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// PasswordReset — выданный токен сброса пароля (хранится только хэш).
type PasswordReset struct {
	Email     string
	TokenHash string
	CreatedAt time.Time
}

// NewsFilter — необязательные фильтры списочной выдачи новостей.
type NewsFilter struct {
	Keyword  string
	Date     string
	Category string
	Source   string
}

// NewsPage — страница выдачи с метаданными пагинации.
type NewsPage struct {
	CurrentPage int            `json:"current_page"`
	Data        []NewsListItem `json:"data"`
	PerPage     int            `json:"per_page"`
	Total       int64          `json:"total"`
	LastPage    int            `json:"last_page"`
}

// PageSize — фиксированный размер страницы списочных выдач.
const PageSize = 20

// DedupPolicy определяет, что делать при повторной загрузке статьи
// с уже известным URL.
type DedupPolicy int

const (
	// DedupCreateIfAbsent — существующая запись не трогается.
	DedupCreateIfAbsent DedupPolicy = iota
	// DedupUpsert — существующая запись обновляется свежими полями.
	DedupUpsert
)
