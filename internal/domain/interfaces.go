package domain

import (
	"context"
	"time"
)

// Provider — адаптер одного внешнего источника новостей.
type Provider interface {
	// Name возвращает имя провайдера, записываемое в поле provider.
	Name() string
	// Policy определяет поведение при конфликте по URL.
	Policy() DedupPolicy
	// Fetch загружает и нормализует статьи указанной категории.
	// Категории, которые провайдер не обслуживает, дают пустой срез без ошибки.
	Fetch(ctx context.Context, category string) ([]News, error)
}

// NewsRepo управляет статьями.
type NewsRepo interface {
	// CreateIfAbsent вставляет статью, если URL ещё не известен.
	// Возвращает true, если запись была создана.
	CreateIfAbsent(ctx context.Context, n News) (bool, error)
	// UpsertByURL вставляет статью или обновляет существующую по URL.
	UpsertByURL(ctx context.Context, n News) error
	List(ctx context.Context, filter NewsFilter, page int) (NewsPage, error)
	GetByID(ctx context.Context, id int64) (News, error)
	ListByPreferences(ctx context.Context, prefs []UserPreference, page int) (NewsPage, error)
	// ValueExists проверяет наличие значения в указанной колонке статей.
	ValueExists(ctx context.Context, key, value string) (bool, error)
}

// UserRepo управляет пользователями.
type UserRepo interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// TokenRepo управляет bearer-токенами (хранятся только хэши).
type TokenRepo interface {
	CreateToken(ctx context.Context, userID int64, name, tokenHash string) error
	UserIDByHash(ctx context.Context, tokenHash string) (int64, error)
	DeleteUserTokens(ctx context.Context, userID int64) error
}

// PasswordResetRepo управляет токенами сброса пароля.
type PasswordResetRepo interface {
	UpsertReset(ctx context.Context, email, tokenHash string) error
	GetReset(ctx context.Context, email string) (PasswordReset, error)
	DeleteReset(ctx context.Context, email string) error
}

// PreferenceRepo управляет предпочтениями пользователей.
type PreferenceRepo interface {
	// ListForUser возвращает записи пользователя, ограниченные набором ключей.
	ListForUser(ctx context.Context, userID int64, keys []string) ([]UserPreference, error)
	// GetPreference возвращает запись по ключу; вторым значением — признак наличия.
	GetPreference(ctx context.Context, userID int64, key string) (UserPreference, bool, error)
	CreatePreference(ctx context.Context, userID int64, key string, values []string) (UserPreference, error)
	UpdateValues(ctx context.Context, id int64, values []string) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Mailer отправляет служебные письма. Реальная доставка — внешний коллаборатор.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}
