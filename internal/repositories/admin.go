package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"thepup/internal/models/domain"
	"thepup/internal/models/repositories"

	"github.com/google/uuid"
)

func (r *Repository) FindAdminByEmail(ctx context.Context, email string) (domain.AdminUser, error) {
	op := "repository.FindAdminByEmail()"

	var admin repositories.AdminUser
	query := `SELECT id, email, password_hash, created_at FROM admin_users WHERE lower(email) = lower($1) LIMIT 1`

	if err := r.DB.GetContext(ctx, &admin, query, strings.TrimSpace(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AdminUser{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return domain.AdminUser{}, fmt.Errorf("%s: %w", op, err)
	}

	return domain.AdminUser{
		ID:           admin.ID,
		Email:        admin.Email,
		PasswordHash: admin.PasswordHash,
		CreatedAt:    admin.CreatedAt,
	}, nil
}

// CreateAdmin создаёт администратора; повторный вызов с тем же email возвращает ErrAlreadyExists.
func (r *Repository) CreateAdmin(ctx context.Context, email, passwordHash string) (domain.AdminUser, error) {
	op := "repository.CreateAdmin()"

	admin := domain.AdminUser{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
	}

	err := r.DB.GetContext(ctx, &admin.CreatedAt,
		`INSERT INTO admin_users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP) RETURNING created_at`,
		admin.ID, admin.Email, admin.PasswordHash,
	)
	if err != nil {
		return domain.AdminUser{}, mapWriteErr(op, err)
	}

	return admin, nil
}
