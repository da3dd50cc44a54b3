package telegram

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/calendar_sync/internal/model"
)

// MessageSender - часть *bot.Bot, нужная для отправки сообщений
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Notifier отправляет уведомления о записях в админский чат
type Notifier struct {
	sender MessageSender
	chatID int64
	loc    *time.Location
	logger *zap.Logger
}

func NewNotifier(sender MessageSender, chatID int64, loc *time.Location, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: chatID,
		loc:    loc,
		logger: logger,
	}
}

func (n *Notifier) AppointmentCreated(ctx context.Context, a *model.AppointmentEvent) {
	n.send(ctx, FormatCreated(a, n.loc))
}

func (n *Notifier) AppointmentCancelled(ctx context.Context, eventID string) {
	n.send(ctx, FormatCancelled(eventID))
}

func (n *Notifier) AppointmentRescheduled(ctx context.Context, a *model.AppointmentEvent) {
	n.send(ctx, FormatRescheduled(a, n.loc))
}

// send не возвращает ошибку: уведомление не должно ломать операцию
func (n *Notifier) send(ctx context.Context, text string) {
	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		n.logger.Error("Failed to send telegram notification", zap.Int64("chat_id", n.chatID), zap.Error(err))
	}
}
