package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot      *bot.Bot
	handlers *Handlers
	logger   *zap.Logger
}

func NewBotController(botInstance *bot.Bot, handlers *Handlers, logger *zap.Logger) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: handlers,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд.
// MatchTypeCommand сверяет имя команды целиком: /slotsfoo не вызовет /slots
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.registerCommands()
	return c.setCommands(ctx)
}

func (c *BotController) registerCommands() {
	commands := map[string]bot.HandlerFunc{
		"start":  c.handlers.HandleStart,
		"help":   c.handlers.HandleHelp,
		"today":  c.handlers.HandleToday,
		"week":   c.handlers.HandleWeek,
		"slots":  c.handlers.HandleSlots,
		"cancel": c.handlers.HandleCancel,
	}
	for name, handler := range commands {
		c.bot.RegisterHandler(bot.HandlerTypeMessageText, name, bot.MatchTypeCommand, handler)
	}
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "today", Description: "📅 Записи на сегодня"},
		{Command: "week", Description: "🗓 Записи на неделю"},
		{Command: "slots", Description: "🕐 Свободное время"},
		{Command: "cancel", Description: "❌ Отменить запись"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}
