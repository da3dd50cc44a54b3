package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/calendar_sync/internal/service"
)

const (
	startText = "👋 Привет! Я бот записи клиентов %s.\n\n" +
		"Команды:\n" +
		"/today - Записи на сегодня\n" +
		"/week - Записи на неделю\n" +
		"/slots [ГГГГ-ММ-ДД] - Свободное время\n" +
		"/cancel &lt;id&gt; - Отменить запись\n" +
		"/help - Справка"

	helpText = "📚 <b>Справка по командам</b>\n\n" +
		"/today - все записи на сегодня\n" +
		"/week - записи на 7 дней вперёд\n" +
		"/slots - свободные слоты на сегодня\n" +
		"/slots 2025-10-17 - свободные слоты на дату\n" +
		"/cancel &lt;id&gt; - отменить запись по id (id есть в списке записей)"

	errorText     = "❌ Календарь недоступен. Попробуйте позже."
	forbiddenText = "⛔ Команда доступна только администратору."
)

// Handlers содержит зависимости обработчиков команд
type Handlers struct {
	manager      *service.AppointmentManager
	businessName string
	adminChatID  int64
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

func NewHandlers(manager *service.AppointmentManager, businessName string, adminChatID int64, loc *time.Location, logger *zap.Logger) *Handlers {
	return &Handlers{
		manager:      manager,
		businessName: businessName,
		adminChatID:  adminChatID,
		loc:          loc,
		now:          time.Now,
		logger:       logger,
	}
}

// allowed: если админский чат не задан, команды открыты всем
func (h *Handlers) allowed(chatID int64) bool {
	return h.adminChatID == 0 || chatID == h.adminChatID
}

func (h *Handlers) today() time.Time {
	n := h.now().In(h.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, h.loc)
}

func (h *Handlers) reply(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		h.logger.Error("Failed to send message", zap.Int64("chat_id", update.Message.Chat.ID), zap.Error(err))
	}
}

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.reply(ctx, b, update, fmt.Sprintf(startText, html.EscapeString(h.businessName)))
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.reply(ctx, b, update, helpText)
}

// HandleToday обрабатывает команду /today
func (h *Handlers) HandleToday(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.reply(ctx, b, update, h.todayText(ctx, update.Message.Chat.ID))
}

// HandleWeek обрабатывает команду /week
func (h *Handlers) HandleWeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.reply(ctx, b, update, h.weekText(ctx, update.Message.Chat.ID))
}

// HandleSlots обрабатывает команду /slots [дата]
func (h *Handlers) HandleSlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.reply(ctx, b, update, h.slotsText(ctx, commandArgs(update.Message.Text)))
}

// HandleCancel обрабатывает команду /cancel <id>
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.reply(ctx, b, update, h.cancelText(ctx, update.Message.Chat.ID, commandArgs(update.Message.Text)))
}

func (h *Handlers) todayText(ctx context.Context, chatID int64) string {
	if !h.allowed(chatID) {
		return forbiddenText
	}

	day := h.today()
	events, err := h.manager.GetAppointmentsForDay(ctx, day)
	if err != nil {
		h.logger.Error("Failed to get today appointments", zap.Error(err))
		return errorText
	}
	return FormatAppointments("Записи на "+FormatDate(day), events, h.loc)
}

func (h *Handlers) weekText(ctx context.Context, chatID int64) string {
	if !h.allowed(chatID) {
		return forbiddenText
	}

	start := h.today()
	events, err := h.manager.GetAppointmentsForWeek(ctx, start)
	if err != nil {
		h.logger.Error("Failed to get week appointments", zap.Error(err))
		return errorText
	}
	header := fmt.Sprintf("Записи %s - %s", start.Format("02.01"), start.AddDate(0, 0, 6).Format("02.01"))
	return FormatAppointments(header, events, h.loc)
}

func (h *Handlers) slotsText(ctx context.Context, args []string) string {
	date := h.today()
	if len(args) > 0 {
		parsed, err := time.ParseInLocation("2006-01-02", args[0], h.loc)
		if err != nil {
			return "❌ Неверная дата. Формат: /slots ГГГГ-ММ-ДД"
		}
		date = parsed
	}

	opts := h.manager.DefaultSlotOptions()
	slots, err := h.manager.GetAvailableSlots(ctx, date, opts)
	if err != nil {
		h.logger.Error("Failed to get available slots", zap.Error(err))
		return errorText
	}
	return FormatSlots(date, slots, opts.Duration)
}

func (h *Handlers) cancelText(ctx context.Context, chatID int64, args []string) string {
	if h.adminChatID == 0 || chatID != h.adminChatID {
		return forbiddenText
	}
	if len(args) == 0 {
		return "Использование: /cancel &lt;id&gt;"
	}

	eventID := args[0]
	err := h.manager.CancelAppointment(ctx, eventID)
	switch service.KindOf(err) {
	case service.KindUnknown:
		if err != nil {
			return errorText
		}
		return fmt.Sprintf("✅ Запись <code>%s</code> отменена", html.EscapeString(eventID))
	case service.KindNotFound:
		return fmt.Sprintf("❌ Запись <code>%s</code> не найдена", html.EscapeString(eventID))
	default:
		return errorText
	}
}

// commandArgs возвращает аргументы после команды
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}
