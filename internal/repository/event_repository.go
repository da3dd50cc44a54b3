package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/calendar_sync/internal/model"
	"github.com/Freeeeeet/calendar_sync/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

const eventColumns = `id, calendar_id, summary, description, location, start_time, end_time, all_day,
		start_timezone, end_timezone, color_id, properties, created_at, updated_at`

// EventRepository хранит события календаря в таблице calendar_events
type EventRepository struct {
	*base.Repository
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет событие, ID задаёт вызывающий
func (r *EventRepository) Create(ctx context.Context, event *model.StoredEvent) error {
	query := `
		INSERT INTO calendar_events (id, calendar_id, summary, description, location, start_time, end_time,
			start_timezone, end_timezone, color_id, properties, all_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		event.ID,
		event.CalendarID,
		event.Summary,
		event.Description,
		event.Location,
		event.StartTime,
		event.EndTime,
		event.StartTimezone,
		event.EndTimezone,
		event.ColorID,
		properties(event.Properties),
		event.AllDay,
	).Scan(&event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}

	return nil
}

// GetByID возвращает nil, nil если события нет
func (r *EventRepository) GetByID(ctx context.Context, calendarID, id string) (*model.StoredEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM calendar_events
		WHERE calendar_id = $1 AND id = $2
	`

	event, err := scanEvent(r.QueryRow(ctx, query, calendarID, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get calendar event by id: %w", err)
	}

	return event, nil
}

// ListByStartRange возвращает события с началом в [from, to) по возрастанию начала
func (r *EventRepository) ListByStartRange(ctx context.Context, calendarID string, from, to time.Time, limit int64) ([]*model.StoredEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM calendar_events
		WHERE calendar_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time, id
		LIMIT $4
	`

	rows, err := r.Query(ctx, query, calendarID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	events := make([]*model.StoredEvent, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendar events: %w", err)
	}

	return events, nil
}

// Update перезаписывает все поля события кроме created_at
func (r *EventRepository) Update(ctx context.Context, event *model.StoredEvent) error {
	query := `
		UPDATE calendar_events
		SET summary = $3, description = $4, location = $5, start_time = $6, end_time = $7,
			start_timezone = $8, end_timezone = $9, color_id = $10, properties = $11, all_day = $12, updated_at = NOW()
		WHERE calendar_id = $1 AND id = $2
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		event.CalendarID,
		event.ID,
		event.Summary,
		event.Description,
		event.Location,
		event.StartTime,
		event.EndTime,
		event.StartTimezone,
		event.EndTimezone,
		event.ColorID,
		properties(event.Properties),
		event.AllDay,
	).Scan(&event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update calendar event: %w", err)
	}

	return nil
}

func (r *EventRepository) Delete(ctx context.Context, calendarID, id string) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM calendar_events WHERE calendar_id = $1 AND id = $2`, calendarID, id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.StoredEvent, error) {
	var event model.StoredEvent
	err := row.Scan(
		&event.ID,
		&event.CalendarID,
		&event.Summary,
		&event.Description,
		&event.Location,
		&event.StartTime,
		&event.EndTime,
		&event.AllDay,
		&event.StartTimezone,
		&event.EndTimezone,
		&event.ColorID,
		&event.Properties,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// properties не даёт записать NULL в NOT NULL колонку
func properties(p map[string]string) map[string]string {
	if p == nil {
		return map[string]string{}
	}
	return p
}
