package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/Freeeeeet/calendar_sync/internal/app"
	"github.com/Freeeeeet/calendar_sync/internal/config"
	"github.com/Freeeeeet/calendar_sync/internal/controller/api"
	"github.com/Freeeeeet/calendar_sync/internal/controller/telegram"
	"github.com/Freeeeeet/calendar_sync/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	logger.Sugar().Infow("Starting calendar sync API",
		"environment", cfg.Environment,
		"backend", cfg.Backend,
		"business", cfg.BusinessName,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	calendarBackend, cleanup, err := app.NewBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to init calendar backend", zap.Error(err))
	}
	defer cleanup()

	loc := cfg.Location()

	// бот создаётся до менеджера: уведомления отправляются через него
	var (
		telegramBot *bot.Bot
		notifier    service.Notifier
	)
	if cfg.TelegramToken != "" {
		telegramBot, err = bot.New(cfg.TelegramToken)
		if err != nil {
			logger.Fatal("Failed to create bot", zap.Error(err))
		}
		if cfg.TelegramAdminChatID != 0 {
			notifier = telegram.NewNotifier(telegramBot, cfg.TelegramAdminChatID, loc, logger)
		}
	}

	manager := service.NewAppointmentManager(calendarBackend, service.BusinessHours{
		Timezone:        cfg.DefaultTimezone,
		StartHour:       cfg.BusinessStartHour,
		EndHour:         cfg.BusinessEndHour,
		DefaultDuration: cfg.AppointmentDuration(),
	}, notifier, logger)

	monitor := app.NewHealthMonitor(manager, cfg.HealthCheckSchedule, cfg.RequestTimeout, logger)
	if err := monitor.Start(ctx); err != nil {
		logger.Fatal("Failed to start health monitor", zap.Error(err))
	}
	defer monitor.Stop()

	if telegramBot != nil {
		handlers := telegram.NewHandlers(manager, cfg.BusinessName, cfg.TelegramAdminChatID, loc, logger)
		controller := telegram.NewBotController(telegramBot, handlers, logger)
		if err := controller.RegisterHandlers(ctx); err != nil {
			logger.Warn("Bot commands menu is not set", zap.Error(err))
		}
		go controller.Start(ctx)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := api.NewHandler(manager, monitor, cfg.BusinessName, loc, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		RateLimitPerMin: cfg.RateLimitPerMin,
		RequestTimeout:  cfg.RequestTimeout,
		TrustedProxies:  cfg.TrustedProxyList(),
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Info("✅ Stopped")
}
