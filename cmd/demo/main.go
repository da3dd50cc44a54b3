package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/calendar_sync/internal/app"
	"github.com/Freeeeeet/calendar_sync/internal/config"
	"github.com/Freeeeeet/calendar_sync/internal/model"
	"github.com/Freeeeeet/calendar_sync/internal/service"
)

// Проверка подключения: тестовая запись на завтра 14:00,
// свободные слоты на завтра и записи на сегодня
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("❌ Configuration validation failed. Please check your settings.")
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	fmt.Println(cfg)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("Demo failed", zap.Error(err))
		fmt.Printf("❌ Application error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Calendar Sync demo completed successfully!")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	calendarBackend, cleanup, err := app.NewBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	manager := service.NewAppointmentManager(calendarBackend, service.BusinessHours{
		Timezone:        cfg.DefaultTimezone,
		StartHour:       cfg.BusinessStartHour,
		EndHour:         cfg.BusinessEndHour,
		DefaultDuration: cfg.AppointmentDuration(),
	}, nil, logger)

	if !manager.CheckConnection(ctx) {
		return fmt.Errorf("failed to connect to calendar")
	}
	fmt.Println("✅ Successfully connected to calendar")

	loc := cfg.Location()
	now := time.Now().In(loc)
	tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, loc)
	start := tomorrow.Add(14 * time.Hour)

	appointment, err := manager.CreateAppointment(ctx, service.CreateAppointmentInput{
		ClientName:      "John Doe",
		PhoneNumber:     "+1 555 123 4567",
		ServiceType:     "Haircut and styling",
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
		AdditionalNotes: "First-time client, prefers early appointments.",
	})
	if err != nil {
		fmt.Printf("❌ Failed to create test appointment: %v\n", err)
	} else {
		fmt.Println("✅ Test appointment created successfully!")
		fmt.Printf("📅 Appointment link: %s\n", appointment.HTMLLink)
	}

	slots, err := manager.GetAvailableSlots(ctx, tomorrow, manager.DefaultSlotOptions())
	if err != nil {
		return fmt.Errorf("get available slots: %w", err)
	}

	fmt.Printf("\n📅 Available slots for %s:\n", tomorrow.Format("2006-01-02"))
	for i, slot := range slots {
		if i == 5 {
			fmt.Printf("   ... and %d more slots\n", len(slots)-5)
			break
		}
		fmt.Printf("   - %s\n", slot.Format("15:04"))
	}

	today, err := manager.GetAppointmentsForDay(ctx, now)
	if err != nil {
		return fmt.Errorf("get today appointments: %w", err)
	}

	fmt.Printf("\n📋 Appointments for today: %d\n", len(today))
	for _, ev := range today {
		startTime := "No time"
		if t, err := model.ParseEventDateTime(ev.Start, loc); err == nil {
			startTime = t.Format(time.RFC3339)
		}
		fmt.Printf("   - %s at %s\n", ev.Summary, startTime)
	}

	return nil
}
