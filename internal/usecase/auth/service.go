package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Serrao06/news-aggregator/internal/domain"
)

var (
	// ErrBadCredentials возвращается при несовпадении email и пароля.
	ErrBadCredentials = errors.New("неверный email или пароль")
	// ErrResetFailed возвращается при невалидном или устаревшем токене сброса.
	ErrResetFailed = errors.New("не удалось обновить пароль")
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const passwordSymbols = "#?!@$%^&*-"

const resetTokenTTL = 60 * time.Minute

// Service реализует регистрацию, вход и восстановление пароля.
type Service struct {
	users  domain.UserRepo
	tokens domain.TokenRepo
	resets domain.PasswordResetRepo
	mailer domain.Mailer
	log    zerolog.Logger
}

// NewService создаёт сервис аутентификации.
func NewService(users domain.UserRepo, tokens domain.TokenRepo, resets domain.PasswordResetRepo, mailer domain.Mailer, logger zerolog.Logger) *Service {
	return &Service{users: users, tokens: tokens, resets: resets, mailer: mailer, log: logger}
}

// RegisterInput — данные регистрации.
type RegisterInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Register создаёт пользователя и выдаёт ему bearer-токен.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, string, error) {
	fields := domain.FieldErrors{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		fields.Add("name", "The name field is required")
	} else if len(name) > 255 {
		fields.Add("name", "The name may not be greater than 255 characters")
	}
	email := normalizeEmail(in.Email)
	validateEmail(fields, email)
	validatePassword(fields, in.Password, in.PasswordConfirmation)
	if len(fields) > 0 {
		return domain.User{}, "", domain.NewValidationError(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("хэширование пароля: %w", err)
	}

	user, err := s.users.CreateUser(ctx, name, email, string(hash))
	if errors.Is(err, domain.ErrEmailTaken) {
		fields.Add("email", "The email has already been taken")
		return domain.User{}, "", domain.NewValidationError(fields)
	}
	if err != nil {
		return domain.User{}, "", fmt.Errorf("создание пользователя: %w", err)
	}

	token, err := s.issueToken(ctx, user.ID, email)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Credentials — данные входа.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login проверяет пароль и выдаёт новый bearer-токен.
func (s *Service) Login(ctx context.Context, creds Credentials) (domain.User, string, error) {
	fields := domain.FieldErrors{}
	email := normalizeEmail(creds.Email)
	validateEmail(fields, email)
	if creds.Password == "" {
		fields.Add("password", "The password field is required")
	}
	if len(fields) > 0 {
		return domain.User{}, "", domain.NewValidationError(fields)
	}

	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		fields.Add("email", "The selected email is invalid")
		return domain.User{}, "", domain.NewValidationError(fields)
	}
	if err != nil {
		return domain.User{}, "", fmt.Errorf("получение пользователя: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		return domain.User{}, "", ErrBadCredentials
	}

	token, err := s.issueToken(ctx, user.ID, user.Email)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Logout отзывает все токены пользователя.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if _, err := s.users.UserByID(ctx, userID); err != nil {
		return err
	}
	return s.tokens.DeleteUserTokens(ctx, userID)
}

// ForgotPassword выдаёт токен сброса и отправляет ссылку на почту.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	fields := domain.FieldErrors{}
	email = normalizeEmail(email)
	validateEmail(fields, email)
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}

	if _, err := s.users.UserByEmail(ctx, email); err != nil {
		return err
	}

	plain, err := domain.NewPlainToken()
	if err != nil {
		return fmt.Errorf("генерация токена сброса: %w", err)
	}
	if err := s.resets.UpsertReset(ctx, email, domain.HashToken(plain)); err != nil {
		return fmt.Errorf("сохранение токена сброса: %w", err)
	}
	if err := s.mailer.SendPasswordReset(ctx, email, plain); err != nil {
		return fmt.Errorf("отправка письма: %w", err)
	}
	return nil
}

// ResetInput — данные сброса пароля.
type ResetInput struct {
	Token                string `json:"token"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// ResetPassword обновляет пароль по действующему токену сброса
// и отзывает все выданные токены пользователя.
func (s *Service) ResetPassword(ctx context.Context, in ResetInput) error {
	fields := domain.FieldErrors{}
	if in.Token == "" {
		fields.Add("token", "The token field is required")
	}
	email := normalizeEmail(in.Email)
	validateEmail(fields, email)
	validatePassword(fields, in.Password, in.PasswordConfirmation)
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}

	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return ErrResetFailed
	}
	if err != nil {
		return fmt.Errorf("получение пользователя: %w", err)
	}

	reset, err := s.resets.GetReset(ctx, email)
	if errors.Is(err, domain.ErrResetNotFound) {
		return ErrResetFailed
	}
	if err != nil {
		return fmt.Errorf("получение записи сброса: %w", err)
	}
	if reset.TokenHash != domain.HashToken(in.Token) {
		return ErrResetFailed
	}
	if time.Since(reset.CreatedAt) > resetTokenTTL {
		return ErrResetFailed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("хэширование пароля: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("обновление пароля: %w", err)
	}
	if err := s.resets.DeleteReset(ctx, email); err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("auth: не удалось удалить запись сброса")
	}
	if err := s.tokens.DeleteUserTokens(ctx, user.ID); err != nil {
		s.log.Error().Err(err).Int64("user", user.ID).Msg("auth: не удалось отозвать токены")
	}
	return nil
}

func (s *Service) issueToken(ctx context.Context, userID int64, name string) (string, error) {
	plain, err := domain.NewPlainToken()
	if err != nil {
		return "", fmt.Errorf("генерация токена: %w", err)
	}
	if err := s.tokens.CreateToken(ctx, userID, name, domain.HashToken(plain)); err != nil {
		return "", fmt.Errorf("сохранение токена: %w", err)
	}
	return plain, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(fields domain.FieldErrors, email string) {
	if email == "" {
		fields.Add("email", "The email field is required")
		return
	}
	if len(email) > 255 {
		fields.Add("email", "The email may not be greater than 255 characters")
		return
	}
	if !emailRegex.MatchString(email) {
		fields.Add("email", "The email must be a valid email address")
	}
}

// validatePassword проверяет политику пароля: минимум 8 символов, верхний и
// нижний регистр, цифра, спецсимвол и совпадение с подтверждением.
func validatePassword(fields domain.FieldErrors, password, confirmation string) {
	if password == "" {
		fields.Add("password", "The password field is required")
		return
	}
	if len(password) < 8 {
		fields.Add("password", "The password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		fields.Add("password", "The password format is invalid")
	}
	if password != confirmation {
		fields.Add("password", "The password confirmation does not match")
	}
}
