package dto

import (
	"strings"
	"time"

	"thepup/internal/geo"
	"thepup/internal/models/domain"
	modelsdto "thepup/internal/models/dto"

	"github.com/google/uuid"
)

// EventResponse — DTO для ответа с данными события.
type EventResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	Venue       string     `json:"venue"`
	Address     string     `json:"address"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	TicketURL   string     `json:"ticket_url"`
	Organizer   string     `json:"organizer"`
	SourceURL   string     `json:"source_url"`
	Tags        []string   `json:"tags"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// EventRequest — DTO для создания и полного обновления события.
type EventRequest struct {
	Title       string                        `json:"title"`
	Category    string                        `json:"category"`
	Description string                        `json:"description"`
	ImageURL    string                        `json:"image_url"`
	Venue       string                        `json:"venue"`
	Address     string                        `json:"address"`
	Latitude    *float64                      `json:"latitude"`
	Longitude   *float64                      `json:"longitude"`
	StartDate   time.Time                     `json:"start_date"`
	EndDate     *time.Time                    `json:"end_date"`
	TicketURL   string                        `json:"ticket_url"`
	Organizer   string                        `json:"organizer"`
	SourceURL   string                        `json:"source_url"`
	Tags        modelsdto.FlexibleStringSlice `json:"tags"`
	Status      string                        `json:"status"`
}

func (r EventRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return validationf("title is required")
	}
	if r.StartDate.IsZero() {
		return validationf("start_date is required")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return validationf("end_date is before start_date")
	}
	if err := validateCoords(r.Latitude, r.Longitude); err != nil {
		return err
	}
	if _, err := validateStatus(r.Status); err != nil {
		return err
	}
	return nil
}

// MapMarker — событие на карте.
type MapMarker struct {
	Event      EventResponse `json:"event"`
	DistanceKm float64       `json:"distance_km"`
	Marker     geo.Marker    `json:"marker"`
}

// MapResponse — ответ для карты: события в загруженной области, ближайшие сверху.
type MapResponse struct {
	FetchedBounds geo.Bounds  `json:"fetched_bounds"`
	Origin        geo.Point   `json:"origin"`
	Truncated     bool        `json:"truncated"` // событий больше лимита, fetched_bounds сужены
	Items         []MapMarker `json:"items"`
}

// MapDomainToEventResponse конвертирует доменную модель Event в EventResponse DTO.
func MapDomainToEventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Category:    e.Category,
		Description: e.Description,
		ImageURL:    e.ImageURL,
		Venue:       e.Venue,
		Address:     e.Address,
		Latitude:    e.Latitude,
		Longitude:   e.Longitude,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		TicketURL:   e.TicketURL,
		Organizer:   e.Organizer,
		SourceURL:   e.SourceURL,
		Tags:        tagList(e.Tags),
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// MapDomainToEventResponseList конвертирует слайс доменных моделей в слайс DTO.
func MapDomainToEventResponseList(events []domain.Event) []EventResponse {
	result := make([]EventResponse, len(events))
	for i, e := range events {
		result[i] = MapDomainToEventResponse(e)
	}
	return result
}

// MapEventRequestToDomain конвертирует EventRequest DTO в доменную модель Event.
func MapEventRequestToDomain(req EventRequest, id uuid.UUID) domain.Event {
	status, _ := validateStatus(req.Status)
	return domain.Event{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Category:    strings.TrimSpace(req.Category),
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Venue:       req.Venue,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		TicketURL:   req.TicketURL,
		Organizer:   req.Organizer,
		SourceURL:   req.SourceURL,
		Tags:        req.Tags.String(),
		Status:      status,
	}
}
