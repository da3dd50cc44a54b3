package model

import "time"

// StoredEvent - строка таблицы calendar_events (Postgres-бэкенд)
type StoredEvent struct {
	ID            string            `json:"id"`
	CalendarID    string            `json:"calendar_id"`
	Summary       string            `json:"summary"`
	Description   string            `json:"description"`
	Location      string            `json:"location"`
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
	AllDay        bool              `json:"all_day"` // start/end - полночь дат события в его зоне
	StartTimezone string            `json:"start_timezone"`
	EndTimezone   string            `json:"end_timezone"`
	ColorID       string            `json:"color_id"`
	Properties    map[string]string `json:"properties"` // private extendedProperties
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
