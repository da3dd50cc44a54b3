package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ConnectionChecker - то, что умеет проверять доступность календаря
type ConnectionChecker interface {
	CheckConnection(ctx context.Context) bool
}

// HealthStatus - результат последней проверки
type HealthStatus struct {
	Connected bool      `json:"calendar_connected"`
	CheckedAt time.Time `json:"checked_at"`
}

// Healthy - проверка была и прошла успешно
func (s HealthStatus) Healthy() bool {
	return s.Connected && !s.CheckedAt.IsZero()
}

// HealthMonitor периодически проверяет календарь по расписанию cron
type HealthMonitor struct {
	checker  ConnectionChecker
	schedule string
	timeout  time.Duration
	logger   *zap.Logger

	cron *cron.Cron

	mu     sync.RWMutex
	status HealthStatus
}

func NewHealthMonitor(checker ConnectionChecker, schedule string, timeout time.Duration, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		checker:  checker,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start выполняет первую проверку сразу и запускает расписание
func (m *HealthMonitor) Start(ctx context.Context) error {
	m.logger.Info("Starting calendar health monitor", zap.String("schedule", m.schedule))

	if _, err := m.cron.AddFunc(m.schedule, func() { m.Check(ctx) }); err != nil {
		return fmt.Errorf("schedule health check %q: %w", m.schedule, err)
	}

	m.Check(ctx)
	m.cron.Start()
	return nil
}

// Stop останавливает расписание и ждёт завершения текущей проверки
func (m *HealthMonitor) Stop() {
	m.logger.Info("Stopping calendar health monitor")
	<-m.cron.Stop().Done()
}

// Check проверяет соединение и запоминает результат
func (m *HealthMonitor) Check(ctx context.Context) HealthStatus {
	checkCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	status := HealthStatus{
		Connected: m.checker.CheckConnection(checkCtx),
		CheckedAt: time.Now(),
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	switch {
	case !status.Connected && (previous.Connected || previous.CheckedAt.IsZero()):
		m.logger.Warn("⚠️ Calendar is unreachable")
	case status.Connected && !previous.Connected && !previous.CheckedAt.IsZero():
		m.logger.Info("✅ Calendar connection restored")
	}

	return status
}

// Current возвращает последний результат без обращения к календарю
func (m *HealthMonitor) Current() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
