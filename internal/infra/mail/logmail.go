package mail

import (
	"context"

	"github.com/rs/zerolog"
)

// LogMailer пишет письма в лог. Реальная доставка подключается отдельно.
type LogMailer struct {
	log zerolog.Logger
}

// NewLogMailer создаёт лог-отправитель.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{log: logger}
}

// SendPasswordReset пишет ссылку сброса пароля в лог.
func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.log.Info().Str("email", email).Msg("mail: отправлена ссылка сброса пароля")
	m.log.Debug().Str("email", email).Str("token", token).Msg("mail: токен сброса")
	return nil
}
