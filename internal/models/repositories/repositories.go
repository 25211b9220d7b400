package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type BaseModel struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type News struct {
	BaseModel
	Title       string       `db:"title"`
	Category    string       `db:"category"`
	Summary     string       `db:"summary"`
	Content     string       `db:"content"`
	ImageURL    string       `db:"image_url"`
	SourceURL   string       `db:"source_url"`
	Author      string       `db:"author"`
	Tags        string       `db:"tags"`
	Status      string       `db:"status"`
	PublishedAt sql.NullTime `db:"published_at"`
}

type Event struct {
	BaseModel
	Title       string          `db:"title"`
	Category    string          `db:"category"`
	Description string          `db:"description"`
	ImageURL    string          `db:"image_url"`
	Venue       string          `db:"venue"`
	Address     string          `db:"address"`
	Latitude    sql.NullFloat64 `db:"latitude"`
	Longitude   sql.NullFloat64 `db:"longitude"`
	StartDate   time.Time       `db:"start_date"`
	EndDate     sql.NullTime    `db:"end_date"`
	TicketURL   string          `db:"ticket_url"`
	Organizer   string          `db:"organizer"`
	SourceURL   string          `db:"source_url"`
	Tags        string          `db:"tags"`
	Status      string          `db:"status"`
}

type Cafe struct {
	BaseModel
	Name         string          `db:"name"`
	Category     string          `db:"category"`
	Description  string          `db:"description"`
	ImageURL     string          `db:"image_url"`
	Address      string          `db:"address"`
	District     string          `db:"district"`
	Latitude     sql.NullFloat64 `db:"latitude"`
	Longitude    sql.NullFloat64 `db:"longitude"`
	OpeningHours string          `db:"opening_hours"`
	InstagramURL string          `db:"instagram_url"`
	Phone        string          `db:"phone"`
	Tags         string          `db:"tags"`
	Status       string          `db:"status"`
}

type AdminUser struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func NullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func TimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func NullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func FloatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
