package infrastructure

import (
	"context"

	"returnremind/internal/pkg/logger"
	"returnremind/internal/service/notification/domain"
)

// LogMailer 只打印邮件内容，不真正发送
type LogMailer struct{}

func NewLogMailer() *LogMailer { return &LogMailer{} }

func (LogMailer) Send(ctx context.Context, mail domain.Email) error {
	logger.Ctx(ctx).Info().
		Str("to", mail.To).
		Str("subject", mail.Subject).
		Str("body", mail.Body).
		Msg("[MOCK EMAIL - NOT SENT]")
	return nil
}
