package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"thepup/internal/config"
	"thepup/internal/models/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// uniqueViolation: код ошибки Postgres для нарушения уникальности.
const uniqueViolation = "23505"

type Repository struct {
	logger *slog.Logger
	DB     *sqlx.DB
}

// New подключается к Postgres и накатывает схему.
func New(logger *slog.Logger, cfg *config.Config) (*Repository, error) {
	op := "repository.New()"
	log := logger.With(slog.String("op", op))

	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r := &Repository{logger: logger, DB: db}

	if err := r.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("connected to database", slog.String("host", cfg.DBConfig.Host), slog.String("db", cfg.DBConfig.Name))

	return r, nil
}

// NewWithDB оборачивает уже открытое соединение (без миграций).
func NewWithDB(logger *slog.Logger, db *sqlx.DB) *Repository {
	return &Repository{logger: logger, DB: db}
}

func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS news (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			source_url TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			published_at TIMESTAMPTZ NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_news_status ON news(status)`,
		`CREATE INDEX IF NOT EXISTS idx_news_source_url ON news(source_url)`,
		`CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			venue TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION NULL,
			longitude DOUBLE PRECISION NULL,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NULL,
			ticket_url TEXT NOT NULL DEFAULT '',
			organizer TEXT NOT NULL DEFAULT '',
			source_url TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_status_start ON events(status, start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_events_source_url ON events(source_url)`,
		`CREATE TABLE IF NOT EXISTS cafes (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			district TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION NULL,
			longitude DOUBLE PRECISION NULL,
			opening_hours TEXT NOT NULL DEFAULT '',
			instagram_url TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cafes_status ON cafes(status)`,
		`CREATE TABLE IF NOT EXISTS admin_users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range stmts {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}

// CountDrafts возвращает количество черновиков по разделам.
func (r *Repository) CountDrafts(ctx context.Context) (map[domain.Kind]int, error) {
	op := "repository.CountDrafts()"

	result := make(map[domain.Kind]int, 3)
	for _, kind := range []domain.Kind{domain.KindNews, domain.KindEvent, domain.KindCafe} {
		var count int
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE status = $1`, kind)
		if err := r.DB.GetContext(ctx, &count, query, string(domain.StatusDraft)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result[kind] = count
	}

	return result, nil
}

func (r *Repository) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit repository: %w", ctx.Err())
	default:
		return r.DB.Close()
	}
}

// checkAffected превращает 0 затронутых строк в ErrNotFound.
func checkAffected(res interface{ RowsAffected() (int64, error) }) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func mapWriteErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}
	return fmt.Errorf("%s: %w", op, err)
}
