package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"thepup/internal/models/domain"
	"thepup/internal/models/repositories"

	"github.com/google/uuid"
)

const eventColumns = `id, title, category, description, image_url, venue, address, latitude, longitude,
	start_date, end_date, ticket_url, organizer, source_url, tags, status, created_at, updated_at`

func (r *Repository) CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	op := "repository.CreateEvent()"

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = domain.StatusDraft
	}

	repoEvent := mapEventToRepo(event)

	insertQuery := `INSERT INTO events (
		id, title, category, description, image_url, venue, address, latitude, longitude,
		start_date, end_date, ticket_url, organizer, source_url, tags, status,
		created_at, updated_at
	) VALUES (
		:id, :title, :category, :description, :image_url, :venue, :address, :latitude, :longitude,
		:start_date, :end_date, :ticket_url, :organizer, :source_url, :tags, :status,
		CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
	) RETURNING ` + eventColumns

	rows, err := r.DB.NamedQueryContext(ctx, insertQuery, repoEvent)
	if err != nil {
		return domain.Event{}, mapWriteErr(op, err)
	}
	defer rows.Close()

	var saved repositories.Event
	if !rows.Next() {
		return domain.Event{}, fmt.Errorf("%s: insert returned no rows: %w", op, rows.Err())
	}
	if err := rows.StructScan(&saved); err != nil {
		return domain.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	return mapEventToDomain(saved), nil
}

func (r *Repository) FindEventByID(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	op := "repository.FindEventByID()"

	var repoEvent repositories.Event
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 LIMIT 1`

	err := r.DB.GetContext(ctx, &repoEvent, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Event{}, fmt.Errorf("%s: event %s: %w", op, id, ErrNotFound)
		}
		return domain.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	return mapEventToDomain(repoEvent), nil
}

// FindEventBySourceURL ищет импортированное событие по ссылке на источник.
func (r *Repository) FindEventBySourceURL(ctx context.Context, link string) (domain.Event, error) {
	op := "repository.FindEventBySourceURL()"

	var repoEvent repositories.Event
	query := `SELECT ` + eventColumns + ` FROM events WHERE source_url = $1 LIMIT 1`

	err := r.DB.GetContext(ctx, &repoEvent, query, link)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Event{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return domain.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	return mapEventToDomain(repoEvent), nil
}

func (r *Repository) UpdateEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	op := "repository.UpdateEvent()"

	repoEvent := mapEventToRepo(event)

	updateQuery := `UPDATE events SET
		title = :title, category = :category, description = :description, image_url = :image_url,
		venue = :venue, address = :address, latitude = :latitude, longitude = :longitude,
		start_date = :start_date, end_date = :end_date, ticket_url = :ticket_url, organizer = :organizer,
		source_url = :source_url, tags = :tags, status = :status,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = :id`

	result, err := r.DB.NamedExecContext(ctx, updateQuery, repoEvent)
	if err != nil {
		return domain.Event{}, mapWriteErr(op, err)
	}

	if err := checkAffected(result); err != nil {
		return domain.Event{}, fmt.Errorf("%s: event %s: %w", op, event.ID, err)
	}

	return r.FindEventByID(ctx, event.ID)
}

func (r *Repository) UpdateEventStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	op := "repository.UpdateEventStatus()"

	result, err := r.DB.ExecContext(ctx,
		`UPDATE events SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := checkAffected(result); err != nil {
		return fmt.Errorf("%s: event %s: %w", op, id, err)
	}

	return nil
}

func (r *Repository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	op := "repository.DeleteEvent()"

	result, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := checkAffected(result); err != nil {
		return fmt.Errorf("%s: event %s: %w", op, id, err)
	}

	return nil
}

// ListEvents возвращает все события, включая черновики.
func (r *Repository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return r.listEvents(ctx, "repository.ListEvents()",
		`SELECT `+eventColumns+` FROM events ORDER BY start_date ASC`)
}

// ListPublishedEvents возвращает только опубликованные события.
func (r *Repository) ListPublishedEvents(ctx context.Context) ([]domain.Event, error) {
	return r.listEvents(ctx, "repository.ListPublishedEvents()",
		`SELECT `+eventColumns+` FROM events WHERE status = $1 ORDER BY start_date ASC`,
		string(domain.StatusPublished))
}

func (r *Repository) listEvents(ctx context.Context, op, query string, args ...any) ([]domain.Event, error) {
	var repoEvents []repositories.Event

	if err := r.DB.SelectContext(ctx, &repoEvents, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]domain.Event, len(repoEvents))
	for i, e := range repoEvents {
		result[i] = mapEventToDomain(e)
	}

	return result, nil
}

func mapEventToRepo(e domain.Event) repositories.Event {
	return repositories.Event{
		BaseModel: repositories.BaseModel{
			ID: e.ID,
		},
		Title:       e.Title,
		Category:    e.Category,
		Description: e.Description,
		ImageURL:    e.ImageURL,
		Venue:       e.Venue,
		Address:     e.Address,
		Latitude:    repositories.NullFloat(e.Latitude),
		Longitude:   repositories.NullFloat(e.Longitude),
		StartDate:   e.StartDate,
		EndDate:     repositories.NullTime(e.EndDate),
		TicketURL:   e.TicketURL,
		Organizer:   e.Organizer,
		SourceURL:   e.SourceURL,
		Tags:        e.Tags,
		Status:      string(e.Status),
	}
}

func mapEventToDomain(e repositories.Event) domain.Event {
	return domain.Event{
		ID:          e.ID,
		Title:       e.Title,
		Category:    e.Category,
		Description: e.Description,
		ImageURL:    e.ImageURL,
		Venue:       e.Venue,
		Address:     e.Address,
		Latitude:    repositories.FloatPtr(e.Latitude),
		Longitude:   repositories.FloatPtr(e.Longitude),
		StartDate:   e.StartDate,
		EndDate:     repositories.TimePtr(e.EndDate),
		TicketURL:   e.TicketURL,
		Organizer:   e.Organizer,
		SourceURL:   e.SourceURL,
		Tags:        e.Tags,
		Status:      domain.Status(e.Status),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
