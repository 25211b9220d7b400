package dto

import (
	"strings"
	"time"

	"thepup/internal/catalog"
	"thepup/internal/models/domain"
	modelsdto "thepup/internal/models/dto"

	"github.com/google/uuid"
)

type CafeResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	Address      string    `json:"address"`
	District     string    `json:"district"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	OpeningHours string    `json:"opening_hours"`
	InstagramURL string    `json:"instagram_url"`
	Phone        string    `json:"phone"`
	Tags         []string  `json:"tags"`
	Status       string    `json:"status"`
	DistanceKm   *float64  `json:"distance_km,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CafeRequest struct {
	Name         string                        `json:"name"`
	Category     string                        `json:"category"`
	Description  string                        `json:"description"`
	ImageURL     string                        `json:"image_url"`
	Address      string                        `json:"address"`
	District     string                        `json:"district"`
	Latitude     *float64                      `json:"latitude"`
	Longitude    *float64                      `json:"longitude"`
	OpeningHours string                        `json:"opening_hours"`
	InstagramURL string                        `json:"instagram_url"`
	Phone        string                        `json:"phone"`
	Tags         modelsdto.FlexibleStringSlice `json:"tags"`
	Status       string                        `json:"status"`
}

func (r CafeRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return validationf("name is required")
	}
	if err := validateCoords(r.Latitude, r.Longitude); err != nil {
		return err
	}
	if _, err := validateStatus(r.Status); err != nil {
		return err
	}
	return nil
}

func MapDomainToCafeResponse(c domain.Cafe) CafeResponse {
	return CafeResponse{
		ID:           c.ID,
		Name:         c.Name,
		Category:     c.Category,
		Description:  c.Description,
		ImageURL:     c.ImageURL,
		Address:      c.Address,
		District:     c.District,
		Latitude:     c.Latitude,
		Longitude:    c.Longitude,
		OpeningHours: c.OpeningHours,
		InstagramURL: c.InstagramURL,
		Phone:        c.Phone,
		Tags:         tagList(c.Tags),
		Status:       string(c.Status),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func MapDomainToCafeResponseList(items []domain.Cafe) []CafeResponse {
	result := make([]CafeResponse, len(items))
	for i, c := range items {
		result[i] = MapDomainToCafeResponse(c)
	}
	return result
}

// MapCafeHitsToResponse добавляет к кафе расстояние, если оно посчитано.
func MapCafeHitsToResponse(hits []catalog.CafeHit) []CafeResponse {
	result := make([]CafeResponse, len(hits))
	for i, h := range hits {
		result[i] = MapDomainToCafeResponse(h.Cafe)
		result[i].DistanceKm = h.DistanceKm
	}
	return result
}

func MapCafeRequestToDomain(req CafeRequest, id uuid.UUID) domain.Cafe {
	status, _ := validateStatus(req.Status)
	return domain.Cafe{
		ID:           id,
		Name:         strings.TrimSpace(req.Name),
		Category:     strings.TrimSpace(req.Category),
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		Address:      req.Address,
		District:     strings.TrimSpace(req.District),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		OpeningHours: req.OpeningHours,
		InstagramURL: req.InstagramURL,
		Phone:        req.Phone,
		Tags:         req.Tags.String(),
		Status:       status,
	}
}
