package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/snapcal/snapcal/internal/core/domain"
)

// EventRepository is the thin CRUD client for the external persistence
// collaborator, a managed Postgres keyed by owner identity. The extraction
// pipeline never touches it; only the caller layer does.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *EventRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS calendar_events (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL,
	event_date TEXT NOT NULL,
	is_valid_date BOOLEAN NOT NULL,
	start_time TEXT NOT NULL DEFAULT '',
	end_time TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS calendar_events_owner_idx ON calendar_events (owner_id, updated_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return tx.Commit()
}

func (r *EventRepository) CreateEvents(ctx context.Context, ownerID string, events []domain.ExtractedEvent) ([]domain.CalendarEvent, error) {
	now := time.Now().UTC()
	out := make([]domain.CalendarEvent, 0, len(events))
	for _, ev := range events {
		stored := domain.CalendarEvent{
			ID:        uuid.NewString(),
			OwnerID:   ownerID,
			Event:     ev,
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, err := r.db.ExecContext(ctx, `
INSERT INTO calendar_events (id, owner_id, title, event_date, is_valid_date, start_time, end_time, description, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, stored.ID, ownerID, ev.Title, ev.Date, ev.IsValidDate, ev.StartTime, ev.EndTime, ev.Description, now, now)
		if err != nil {
			return nil, fmt.Errorf("create event: %w", err)
		}
		out = append(out, stored)
	}
	return out, nil
}

func (r *EventRepository) ListEvents(ctx context.Context, ownerID string) ([]domain.CalendarEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, owner_id, title, event_date, is_valid_date, start_time, end_time, description, created_at, updated_at
FROM calendar_events
WHERE owner_id = $1
ORDER BY updated_at DESC
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CalendarEvent, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (r *EventRepository) UpdateEvent(ctx context.Context, ownerID, eventID string, ev domain.ExtractedEvent) (*domain.CalendarEvent, error) {
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
UPDATE calendar_events
SET title = $3, event_date = $4, is_valid_date = $5, start_time = $6, end_time = $7, description = $8, updated_at = $9
WHERE owner_id = $1 AND id = $2
RETURNING id, owner_id, title, event_date, is_valid_date, start_time, end_time, description, created_at, updated_at
`, ownerID, eventID, ev.Title, ev.Date, ev.IsValidDate, ev.StartTime, ev.EndTime, ev.Description, now)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrEventNotFound, "update event", fmt.Errorf("id=%s", eventID))
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return &event, nil
}

func (r *EventRepository) DeleteEvent(ctx context.Context, ownerID, eventID string) error {
	result, err := r.db.ExecContext(ctx, `
DELETE FROM calendar_events
WHERE owner_id = $1 AND id = $2
`, ownerID, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrEventNotFound, "delete event", fmt.Errorf("id=%s", eventID))
	}
	return nil
}

type eventScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row eventScanner) (domain.CalendarEvent, error) {
	var event domain.CalendarEvent
	err := row.Scan(
		&event.ID,
		&event.OwnerID,
		&event.Event.Title,
		&event.Event.Date,
		&event.Event.IsValidDate,
		&event.Event.StartTime,
		&event.Event.EndTime,
		&event.Event.Description,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	return event, nil
}
