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

const newsColumns = `id, title, category, summary, content, image_url, source_url, author, tags, status,
	published_at, created_at, updated_at`

func (r *Repository) CreateNews(ctx context.Context, news domain.News) (domain.News, error) {
	op := "repository.CreateNews()"

	if news.ID == uuid.Nil {
		news.ID = uuid.New()
	}
	if news.Status == "" {
		news.Status = domain.StatusDraft
	}

	insertQuery := `INSERT INTO news (
		id, title, category, summary, content, image_url, source_url, author, tags, status,
		published_at, created_at, updated_at
	) VALUES (
		:id, :title, :category, :summary, :content, :image_url, :source_url, :author, :tags, :status,
		:published_at, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
	) RETURNING ` + newsColumns

	rows, err := r.DB.NamedQueryContext(ctx, insertQuery, mapNewsToRepo(news))
	if err != nil {
		return domain.News{}, mapWriteErr(op, err)
	}
	defer rows.Close()

	var saved repositories.News
	if !rows.Next() {
		return domain.News{}, fmt.Errorf("%s: insert returned no rows: %w", op, rows.Err())
	}
	if err := rows.StructScan(&saved); err != nil {
		return domain.News{}, fmt.Errorf("%s: %w", op, err)
	}

	return mapNewsToDomain(saved), nil
}

func (r *Repository) FindNewsByID(ctx context.Context, id uuid.UUID) (domain.News, error) {
	op := "repository.FindNewsByID()"

	var repoNews repositories.News
	query := `SELECT ` + newsColumns + ` FROM news WHERE id = $1 LIMIT 1`

	if err := r.DB.GetContext(ctx, &repoNews, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.News{}, fmt.Errorf("%s: news %s: %w", op, id, ErrNotFound)
		}
		return domain.News{}, fmt.Errorf("%s: %w", op, err)
	}

	return mapNewsToDomain(repoNews), nil
}

func (r *Repository) FindNewsBySourceURL(ctx context.Context, link string) (domain.News, error) {
	op := "repository.FindNewsBySourceURL()"

	var repoNews repositories.News
	query := `SELECT ` + newsColumns + ` FROM news WHERE source_url = $1 LIMIT 1`

	if err := r.DB.GetContext(ctx, &repoNews, query, link); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.News{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return domain.News{}, fmt.Errorf("%s: %w", op, err)
	}

	return mapNewsToDomain(repoNews), nil
}

func (r *Repository) UpdateNews(ctx context.Context, news domain.News) (domain.News, error) {
	op := "repository.UpdateNews()"

	updateQuery := `UPDATE news SET
		title = :title, category = :category, summary = :summary, content = :content,
		image_url = :image_url, source_url = :source_url, author = :author, tags = :tags,
		status = :status, published_at = :published_at,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = :id`

	result, err := r.DB.NamedExecContext(ctx, updateQuery, mapNewsToRepo(news))
	if err != nil {
		return domain.News{}, mapWriteErr(op, err)
	}

	if err := checkAffected(result); err != nil {
		return domain.News{}, fmt.Errorf("%s: news %s: %w", op, news.ID, err)
	}

	return r.FindNewsByID(ctx, news.ID)
}

// UpdateNewsStatus меняет статус; при первой публикации проставляет published_at.
func (r *Repository) UpdateNewsStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	op := "repository.UpdateNewsStatus()"

	result, err := r.DB.ExecContext(ctx,
		`UPDATE news SET
			status = $1,
			published_at = CASE WHEN $1 = 'published' AND published_at IS NULL THEN CURRENT_TIMESTAMP ELSE published_at END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := checkAffected(result); err != nil {
		return fmt.Errorf("%s: news %s: %w", op, id, err)
	}

	return nil
}

func (r *Repository) DeleteNews(ctx context.Context, id uuid.UUID) error {
	op := "repository.DeleteNews()"

	result, err := r.DB.ExecContext(ctx, `DELETE FROM news WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := checkAffected(result); err != nil {
		return fmt.Errorf("%s: news %s: %w", op, id, err)
	}

	return nil
}

func (r *Repository) ListNews(ctx context.Context) ([]domain.News, error) {
	return r.listNews(ctx, "repository.ListNews()",
		`SELECT `+newsColumns+` FROM news ORDER BY COALESCE(published_at, created_at) DESC`)
}

func (r *Repository) ListPublishedNews(ctx context.Context) ([]domain.News, error) {
	return r.listNews(ctx, "repository.ListPublishedNews()",
		`SELECT `+newsColumns+` FROM news WHERE status = $1 ORDER BY COALESCE(published_at, created_at) DESC`,
		string(domain.StatusPublished))
}

func (r *Repository) listNews(ctx context.Context, op, query string, args ...any) ([]domain.News, error) {
	var repoNews []repositories.News

	if err := r.DB.SelectContext(ctx, &repoNews, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]domain.News, len(repoNews))
	for i, n := range repoNews {
		result[i] = mapNewsToDomain(n)
	}

	return result, nil
}

func mapNewsToRepo(n domain.News) repositories.News {
	return repositories.News{
		BaseModel: repositories.BaseModel{
			ID: n.ID,
		},
		Title:       n.Title,
		Category:    n.Category,
		Summary:     n.Summary,
		Content:     n.Content,
		ImageURL:    n.ImageURL,
		SourceURL:   n.SourceURL,
		Author:      n.Author,
		Tags:        n.Tags,
		Status:      string(n.Status),
		PublishedAt: repositories.NullTime(n.PublishedAt),
	}
}

func mapNewsToDomain(n repositories.News) domain.News {
	return domain.News{
		ID:          n.ID,
		Title:       n.Title,
		Category:    n.Category,
		Summary:     n.Summary,
		Content:     n.Content,
		ImageURL:    n.ImageURL,
		SourceURL:   n.SourceURL,
		Author:      n.Author,
		Tags:        n.Tags,
		Status:      domain.Status(n.Status),
		PublishedAt: repositories.TimePtr(n.PublishedAt),
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}
