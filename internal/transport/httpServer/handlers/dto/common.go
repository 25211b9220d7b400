package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"thepup/internal/catalog"
	"thepup/internal/models/domain"
)

// ErrValidation: запрос не прошёл проверку; хэндлеры отвечают 400.
var ErrValidation = errors.New("validation failed")

// ListResponse: страница списка.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func NewListResponse[T any](items []T, total, limit, offset int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: total, Limit: limit, Offset: offset}
}

// UpdateStatusRequest: DTO для запроса на изменение статуса записи.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (r UpdateStatusRequest) Validate() error {
	if !domain.Status(r.Status).Valid() {
		return validationf("invalid status: %q", r.Status)
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return validationf("email and password are required")
	}
	return nil
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AdminResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CategoriesResponse: список категорий раздела.
type CategoriesResponse struct {
	Kind       string   `json:"kind"`
	Categories []string `json:"categories"`
}

// ImportResponse: результат ручного запуска импорта.
type ImportResponse struct {
	Status string `json:"status"`
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// validateStatus допускает пустой статус: он означает черновик.
func validateStatus(status string) (domain.Status, error) {
	if status == "" {
		return domain.StatusDraft, nil
	}
	s := domain.Status(status)
	if !s.Valid() {
		return "", validationf("invalid status: %q", status)
	}
	return s, nil
}

// validateCoords: координаты задаются обе или ни одной и лежат в допустимых пределах.
func validateCoords(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return validationf("latitude and longitude must be set together")
	}
	if lat == nil {
		return nil
	}
	if *lat < -90 || *lat > 90 {
		return validationf("latitude out of range: %v", *lat)
	}
	if *lng < -180 || *lng > 180 {
		return validationf("longitude out of range: %v", *lng)
	}
	return nil
}

func tagList(tags string) []string {
	list := catalog.SplitTags(tags)
	if list == nil {
		return []string{}
	}
	return list
}
