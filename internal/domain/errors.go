package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNewsNotFound возвращается при запросе несуществующей статьи.
	ErrNewsNotFound = errors.New("статья не найдена")
	// ErrUserNotFound возвращается при запросе несуществующего пользователя.
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrEmailTaken возвращается при регистрации на занятый email.
	ErrEmailTaken = errors.New("email уже зарегистрирован")
	// ErrTokenNotFound возвращается при неизвестном bearer-токене.
	ErrTokenNotFound = errors.New("токен не найден")
	// ErrResetNotFound возвращается при отсутствии записи сброса пароля.
	ErrResetNotFound = errors.New("запись сброса пароля не найдена")
)

// FieldErrors накапливает сообщения валидации по именам полей.
type FieldErrors map[string][]string

// Add добавляет сообщение к полю.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// ValidationError оборачивает FieldErrors в error для прохода через слои.
type ValidationError struct {
	Fields FieldErrors
}

// Error реализует error.
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("валидация не пройдена: %s", strings.Join(fields, ", "))
}

// NewValidationError создаёт ошибку валидации по накопленным полям.
func NewValidationError(fields FieldErrors) *ValidationError {
	return &ValidationError{Fields: fields}
}
