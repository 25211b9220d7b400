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

const cafeColumns = `id, name, category, description, image_url, address, district, latitude, longitude,
	opening_hours, instagram_url, phone, tags, status, created_at, updated_at`

func (r *Repository) CreateCafe(ctx context.Context, cafe domain.Cafe) (domain.Cafe, error) {
	op := "repository.CreateCafe()"

	if cafe.ID == uuid.Nil {
		cafe.ID = uuid.New()
	}
	if cafe.Status == "" {
		cafe.Status = domain.StatusDraft
	}

	insertQuery := `INSERT INTO cafes (
		id, name, category, description, image_url, address, district, latitude, longitude,
		opening_hours, instagram_url, phone, tags, status, created_at, updated_at
	) VALUES (
		:id, :name, :category, :description, :image_url, :address, :district, :latitude, :longitude,
		:opening_hours, :instagram_url, :phone, :tags, :status, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
	) RETURNING ` + cafeColumns

	rows, err := r.DB.NamedQueryContext(ctx, insertQuery, mapCafeToRepo(cafe))
	if err != nil {
		return domain.Cafe{}, mapWriteErr(op, err)
	}
	defer rows.Close()

	var saved repositories.Cafe
	if !rows.Next() {
		return domain.Cafe{}, fmt.Errorf("%s: insert returned no rows: %w", op, rows.Err())
	}
	if err := rows.StructScan(&saved); err != nil {
		return domain.Cafe{}, fmt.Errorf("%s: %w", op, err)
	}

	return mapCafeToDomain(saved), nil
}

func (r *Repository) FindCafeByID(ctx context.Context, id uuid.UUID) (domain.Cafe, error) {
	op := "repository.FindCafeByID()"

	var repoCafe repositories.Cafe
	query := `SELECT ` + cafeColumns + ` FROM cafes WHERE id = $1 LIMIT 1`

	if err := r.DB.GetContext(ctx, &repoCafe, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cafe{}, fmt.Errorf("%s: cafe %s: %w", op, id, ErrNotFound)
		}
		return domain.Cafe{}, fmt.Errorf("%s: %w", op, err)
	}

	return mapCafeToDomain(repoCafe), nil
}

func (r *Repository) UpdateCafe(ctx context.Context, cafe domain.Cafe) (domain.Cafe, error) {
	op := "repository.UpdateCafe()"

	updateQuery := `UPDATE cafes SET
		name = :name, category = :category, description = :description, image_url = :image_url,
		address = :address, district = :district, latitude = :latitude, longitude = :longitude,
		opening_hours = :opening_hours, instagram_url = :instagram_url, phone = :phone,
		tags = :tags, status = :status,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = :id`

	result, err := r.DB.NamedExecContext(ctx, updateQuery, mapCafeToRepo(cafe))
	if err != nil {
		return domain.Cafe{}, mapWriteErr(op, err)
	}

	if err := checkAffected(result); err != nil {
		return domain.Cafe{}, fmt.Errorf("%s: cafe %s: %w", op, cafe.ID, err)
	}

	return r.FindCafeByID(ctx, cafe.ID)
}

func (r *Repository) UpdateCafeStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	op := "repository.UpdateCafeStatus()"

	result, err := r.DB.ExecContext(ctx,
		`UPDATE cafes SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := checkAffected(result); err != nil {
		return fmt.Errorf("%s: cafe %s: %w", op, id, err)
	}

	return nil
}

func (r *Repository) DeleteCafe(ctx context.Context, id uuid.UUID) error {
	op := "repository.DeleteCafe()"

	result, err := r.DB.ExecContext(ctx, `DELETE FROM cafes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := checkAffected(result); err != nil {
		return fmt.Errorf("%s: cafe %s: %w", op, id, err)
	}

	return nil
}

func (r *Repository) ListCafes(ctx context.Context) ([]domain.Cafe, error) {
	return r.listCafes(ctx, "repository.ListCafes()",
		`SELECT `+cafeColumns+` FROM cafes ORDER BY name ASC`)
}

func (r *Repository) ListPublishedCafes(ctx context.Context) ([]domain.Cafe, error) {
	return r.listCafes(ctx, "repository.ListPublishedCafes()",
		`SELECT `+cafeColumns+` FROM cafes WHERE status = $1 ORDER BY name ASC`,
		string(domain.StatusPublished))
}

func (r *Repository) listCafes(ctx context.Context, op, query string, args ...any) ([]domain.Cafe, error) {
	var repoCafes []repositories.Cafe

	if err := r.DB.SelectContext(ctx, &repoCafes, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]domain.Cafe, len(repoCafes))
	for i, c := range repoCafes {
		result[i] = mapCafeToDomain(c)
	}

	return result, nil
}

func mapCafeToRepo(c domain.Cafe) repositories.Cafe {
	return repositories.Cafe{
		BaseModel: repositories.BaseModel{
			ID: c.ID,
		},
		Name:         c.Name,
		Category:     c.Category,
		Description:  c.Description,
		ImageURL:     c.ImageURL,
		Address:      c.Address,
		District:     c.District,
		Latitude:     repositories.NullFloat(c.Latitude),
		Longitude:    repositories.NullFloat(c.Longitude),
		OpeningHours: c.OpeningHours,
		InstagramURL: c.InstagramURL,
		Phone:        c.Phone,
		Tags:         c.Tags,
		Status:       string(c.Status),
	}
}

func mapCafeToDomain(c repositories.Cafe) domain.Cafe {
	return domain.Cafe{
		ID:           c.ID,
		Name:         c.Name,
		Category:     c.Category,
		Description:  c.Description,
		ImageURL:     c.ImageURL,
		Address:      c.Address,
		District:     c.District,
		Latitude:     repositories.FloatPtr(c.Latitude),
		Longitude:    repositories.FloatPtr(c.Longitude),
		OpeningHours: c.OpeningHours,
		InstagramURL: c.InstagramURL,
		Phone:        c.Phone,
		Tags:         c.Tags,
		Status:       domain.Status(c.Status),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
