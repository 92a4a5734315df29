package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Serrao06/news-aggregator/internal/domain"
	"github.com/Serrao06/news-aggregator/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.NewsRepo          = (*Postgres)(nil)
	_ domain.UserRepo          = (*Postgres)(nil)
	_ domain.TokenRepo         = (*Postgres)(nil)
	_ domain.PasswordResetRepo = (*Postgres)(nil)
	_ domain.PreferenceRepo    = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// preferenceColumns сопоставляет ключи предпочтений колонкам таблицы news.
// Только эти колонки доступны для динамических условий.
var preferenceColumns = map[string]string{
	"author":   "author",
	"source":   "source",
	"category": "category",
}

// CreateIfAbsent вставляет статью, если её URL ещё не известен.
func (p *Postgres) CreateIfAbsent(ctx context.Context, n domain.News) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	res, err := p.pool.Exec(ctx, `
INSERT INTO news (title, description, url, source, category, author, published_at, provider)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (url) DO NOTHING
`, n.Title, n.Description, n.URL, n.Source, n.Category, n.Author, n.PublishedAt, n.Provider)
	metrics.ObserveNetworkRequest("postgres", "news_insert_if_absent", "news", start, err)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// UpsertByURL вставляет статью или обновляет существующую запись по URL.
func (p *Postgres) UpsertByURL(ctx context.Context, n domain.News) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO news (title, description, url, source, category, author, published_at, provider)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (url) DO UPDATE SET
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    author = EXCLUDED.author,
    published_at = EXCLUDED.published_at,
    updated_at = now()
`, n.Title, n.Description, n.URL, n.Source, n.Category, n.Author, n.PublishedAt, n.Provider)
	metrics.ObserveNetworkRequest("postgres", "news_upsert", "news", start, err)
	return err
}

// List возвращает страницу статей по фильтрам, от новых к старым.
func (p *Postgres) List(ctx context.Context, filter domain.NewsFilter, page int) (domain.NewsPage, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Keyword != "" {
		pattern := "%" + filter.Keyword + "%"
		where = append(where, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", arg(pattern), arg(pattern)))
	}
	if filter.Date != "" {
		where = append(where, fmt.Sprintf("published_at::date = %s::date", arg(filter.Date)))
	}
	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = %s", arg(filter.Category)))
	}
	if filter.Source != "" {
		where = append(where, fmt.Sprintf("source = %s", arg(filter.Source)))
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	return p.listPage(ctx, whereSQL, args, page, "news_list")
}

// ListByPreferences возвращает страницу статей, подходящих хотя бы под одно
// из предпочтений пользователя.
func (p *Postgres) ListByPreferences(ctx context.Context, prefs []domain.UserPreference, page int) (domain.NewsPage, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var (
		clauses []string
		args    []any
	)
	for _, pref := range prefs {
		column, ok := preferenceColumns[pref.Key]
		if !ok || len(pref.Values) == 0 {
			continue
		}
		args = append(args, pref.Values)
		clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", column, len(args)))
	}
	if len(clauses) == 0 {
		return domain.NewsPage{CurrentPage: page, Data: []domain.NewsListItem{}, PerPage: domain.PageSize, LastPage: 1}, nil
	}
	whereSQL := " WHERE " + strings.Join(clauses, " OR ")

	return p.listPage(ctx, whereSQL, args, page, "news_list_by_preferences")
}

func (p *Postgres) listPage(ctx context.Context, whereSQL string, args []any, page int, op string) (domain.NewsPage, error) {
	if page < 1 {
		page = 1
	}

	var total int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM news"+whereSQL, args...).Scan(&total)
	metrics.ObserveNetworkRequest("postgres", op+"_count", "news", start, err)
	if err != nil {
		return domain.NewsPage{}, err
	}

	pageArgs := append(append([]any{}, args...), domain.PageSize, (page-1)*domain.PageSize)
	query := fmt.Sprintf(`
SELECT id, title, source, category, author, published_at
FROM news%s
ORDER BY created_at DESC
LIMIT $%d OFFSET $%d
`, whereSQL, len(pageArgs)-1, len(pageArgs))

	start = time.Now()
	rows, err := p.pool.Query(ctx, query, pageArgs...)
	metrics.ObserveNetworkRequest("postgres", op, "news", start, err)
	if err != nil {
		return domain.NewsPage{}, err
	}
	defer rows.Close()

	items := make([]domain.NewsListItem, 0, domain.PageSize)
	for rows.Next() {
		var (
			item      domain.NewsListItem
			author    sql.NullString
			published sql.NullTime
		)
		if err := rows.Scan(&item.ID, &item.Title, &item.Source, &item.Category, &author, &published); err != nil {
			return domain.NewsPage{}, err
		}
		if author.Valid {
			item.Author = &author.String
		}
		if published.Valid {
			ts := published.Time
			item.PublishedAt = &ts
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.NewsPage{}, err
	}

	lastPage := int((total + domain.PageSize - 1) / domain.PageSize)
	if lastPage < 1 {
		lastPage = 1
	}
	return domain.NewsPage{
		CurrentPage: page,
		Data:        items,
		PerPage:     domain.PageSize,
		Total:       total,
		LastPage:    lastPage,
	}, nil
}

// GetByID возвращает статью целиком.
func (p *Postgres) GetByID(ctx context.Context, id int64) (domain.News, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var (
		n           domain.News
		description sql.NullString
		author      sql.NullString
		published   sql.NullTime
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, title, description, url, source, category, author, published_at, provider, created_at, updated_at
FROM news WHERE id=$1
`, id).Scan(&n.ID, &n.Title, &description, &n.URL, &n.Source, &n.Category, &author, &published, &n.Provider, &n.CreatedAt, &n.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "news_get_by_id", "news", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.News{}, domain.ErrNewsNotFound
	}
	if err != nil {
		return domain.News{}, err
	}
	if description.Valid {
		n.Description = &description.String
	}
	if author.Valid {
		n.Author = &author.String
	}
	if published.Valid {
		ts := published.Time
		n.PublishedAt = &ts
	}
	return n, nil
}

// ValueExists проверяет наличие значения в колонке статей, заданной ключом.
func (p *Postgres) ValueExists(ctx context.Context, key, value string) (bool, error) {
	column, ok := preferenceColumns[key]
	if !ok {
		return false, fmt.Errorf("недопустимый ключ предпочтения: %s", key)
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var exists bool
	start := time.Now()
	err := p.pool.QueryRow(ctx, fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM news WHERE %s = $1)", column), value).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "news_value_exists", "news", start, err)
	return exists, err
}

// CreateUser создаёт пользователя. Конфликт по email отдаётся как ErrEmailTaken.
func (p *Postgres) CreateUser(ctx context.Context, name, email, passwordHash string) (domain.User, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var user domain.User
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO users (name, email, password)
VALUES ($1,$2,$3)
RETURNING id, name, email, password, created_at, updated_at
`, name, email, passwordHash).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "users_insert", "users", start, err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, err
	}
	return user, nil
}

// UserByEmail возвращает пользователя по email.
func (p *Postgres) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	return p.getUser(ctx, "email=$1", "users_get_by_email", email)
}

// UserByID возвращает пользователя по идентификатору.
func (p *Postgres) UserByID(ctx context.Context, id int64) (domain.User, error) {
	return p.getUser(ctx, "id=$1", "users_get_by_id", id)
}

func (p *Postgres) getUser(ctx context.Context, cond, op string, arg any) (domain.User, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var user domain.User
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, name, email, password, created_at, updated_at
FROM users WHERE `+cond, arg).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", op, "users", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// UpdatePassword обновляет хэш пароля пользователя.
func (p *Postgres) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `UPDATE users SET password=$2, updated_at=now() WHERE id=$1`, userID, passwordHash)
	metrics.ObserveNetworkRequest("postgres", "users_update_password", "users", start, err)
	return err
}

// CreateToken сохраняет хэш выданного bearer-токена.
func (p *Postgres) CreateToken(ctx context.Context, userID int64, name, tokenHash string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO access_tokens (user_id, name, token_hash)
VALUES ($1,$2,$3)
`, userID, name, tokenHash)
	metrics.ObserveNetworkRequest("postgres", "access_tokens_insert", "access_tokens", start, err)
	return err
}

// UserIDByHash возвращает владельца токена и фиксирует время использования.
func (p *Postgres) UserIDByHash(ctx context.Context, tokenHash string) (int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var userID int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
UPDATE access_tokens SET last_used_at=now() WHERE token_hash=$1
RETURNING user_id
`, tokenHash).Scan(&userID)
	metrics.ObserveNetworkRequest("postgres", "access_tokens_resolve", "access_tokens", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrTokenNotFound
	}
	return userID, err
}

// DeleteUserTokens удаляет все токены пользователя.
func (p *Postgres) DeleteUserTokens(ctx context.Context, userID int64) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM access_tokens WHERE user_id=$1`, userID)
	metrics.ObserveNetworkRequest("postgres", "access_tokens_delete_for_user", "access_tokens", start, err)
	return err
}

// UpsertReset сохраняет токен сброса пароля, заменяя предыдущий.
func (p *Postgres) UpsertReset(ctx context.Context, email, tokenHash string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO password_resets (email, token_hash)
VALUES ($1,$2)
ON CONFLICT (email) DO UPDATE SET token_hash=EXCLUDED.token_hash, created_at=now()
`, email, tokenHash)
	metrics.ObserveNetworkRequest("postgres", "password_resets_upsert", "password_resets", start, err)
	return err
}

// GetReset возвращает запись сброса пароля.
func (p *Postgres) GetReset(ctx context.Context, email string) (domain.PasswordReset, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var reset domain.PasswordReset
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT email, token_hash, created_at FROM password_resets WHERE email=$1
`, email).Scan(&reset.Email, &reset.TokenHash, &reset.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "password_resets_get", "password_resets", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PasswordReset{}, domain.ErrResetNotFound
	}
	return reset, err
}

// DeleteReset удаляет запись сброса пароля.
func (p *Postgres) DeleteReset(ctx context.Context, email string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM password_resets WHERE email=$1`, email)
	metrics.ObserveNetworkRequest("postgres", "password_resets_delete", "password_resets", start, err)
	return err
}

// ListForUser возвращает предпочтения пользователя по набору ключей.
func (p *Postgres) ListForUser(ctx context.Context, userID int64, keys []string) ([]domain.UserPreference, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, user_id, preference_key, preference_value, created_at, updated_at
FROM user_preferences
WHERE user_id=$1 AND preference_key = ANY($2)
ORDER BY preference_key
`, userID, keys)
	metrics.ObserveNetworkRequest("postgres", "user_preferences_list", "user_preferences", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []domain.UserPreference
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, pref)
	}
	return prefs, rows.Err()
}

// GetPreference возвращает запись по ключу; второй результат — признак наличия.
func (p *Postgres) GetPreference(ctx context.Context, userID int64, key string) (domain.UserPreference, bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT id, user_id, preference_key, preference_value, created_at, updated_at
FROM user_preferences
WHERE user_id=$1 AND preference_key=$2
`, userID, key)
	pref, err := scanPreference(row)
	metrics.ObserveNetworkRequest("postgres", "user_preferences_get", "user_preferences", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserPreference{}, false, nil
	}
	if err != nil {
		return domain.UserPreference{}, false, err
	}
	return pref, true, nil
}

// CreatePreference создаёт запись предпочтения.
func (p *Postgres) CreatePreference(ctx context.Context, userID int64, key string, values []string) (domain.UserPreference, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	payload, err := json.Marshal(values)
	if err != nil {
		return domain.UserPreference{}, err
	}

	pref := domain.UserPreference{UserID: userID, Key: key, Values: values}
	start := time.Now()
	err = p.pool.QueryRow(ctx, `
INSERT INTO user_preferences (user_id, preference_key, preference_value)
VALUES ($1,$2,$3)
RETURNING id, created_at, updated_at
`, userID, key, payload).Scan(&pref.ID, &pref.CreatedAt, &pref.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "user_preferences_insert", "user_preferences", start, err)
	if err != nil {
		return domain.UserPreference{}, err
	}
	return pref, nil
}

// UpdateValues перезаписывает список значений записи предпочтения.
func (p *Postgres) UpdateValues(ctx context.Context, id int64, values []string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	payload, err := json.Marshal(values)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
UPDATE user_preferences SET preference_value=$2, updated_at=now() WHERE id=$1
`, id, payload)
	metrics.ObserveNetworkRequest("postgres", "user_preferences_update", "user_preferences", start, err)
	return err
}

func scanPreference(row pgx.Row) (domain.UserPreference, error) {
	var (
		pref    domain.UserPreference
		payload []byte
	)
	if err := row.Scan(&pref.ID, &pref.UserID, &pref.Key, &payload, &pref.CreatedAt, &pref.UpdatedAt); err != nil {
		return domain.UserPreference{}, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &pref.Values); err != nil {
			return domain.UserPreference{}, fmt.Errorf("декодирование preference_value: %w", err)
		}
	}
	return pref, nil
}
