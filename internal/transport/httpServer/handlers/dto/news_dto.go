package dto

import (
	"strings"
	"time"

	"thepup/internal/models/domain"
	modelsdto "thepup/internal/models/dto"

	"github.com/google/uuid"
)

// NewsResponse: DTO для ответа с данными новости.
type NewsResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Summary     string     `json:"summary"`
	Content     string     `json:"content,omitempty"`
	ImageURL    string     `json:"image_url"`
	SourceURL   string     `json:"source_url"`
	Author      string     `json:"author"`
	Tags        []string   `json:"tags"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewsDetailResponse: новость вместе с похожими.
type NewsDetailResponse struct {
	NewsResponse
	Related []NewsResponse `json:"related"`
}

// NewsRequest: DTO для создания и полного обновления новости.
type NewsRequest struct {
	Title       string                        `json:"title"`
	Category    string                        `json:"category"`
	Summary     string                        `json:"summary"`
	Content     string                        `json:"content"`
	ImageURL    string                        `json:"image_url"`
	SourceURL   string                        `json:"source_url"`
	Author      string                        `json:"author"`
	Tags        modelsdto.FlexibleStringSlice `json:"tags"`
	Status      string                        `json:"status"`
	PublishedAt *time.Time                    `json:"published_at"`
}

func (r NewsRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return validationf("title is required")
	}
	if _, err := validateStatus(r.Status); err != nil {
		return err
	}
	return nil
}

// MapDomainToNewsResponse конвертирует доменную модель в DTO.
// В списках HTML-контент не отдаётся.
func MapDomainToNewsResponse(n domain.News, withContent bool) NewsResponse {
	resp := NewsResponse{
		ID:          n.ID,
		Title:       n.Title,
		Category:    n.Category,
		Summary:     n.Summary,
		ImageURL:    n.ImageURL,
		SourceURL:   n.SourceURL,
		Author:      n.Author,
		Tags:        tagList(n.Tags),
		Status:      string(n.Status),
		PublishedAt: n.PublishedAt,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
	if withContent {
		resp.Content = n.Content
	}
	return resp
}

func MapDomainToNewsResponseList(items []domain.News) []NewsResponse {
	result := make([]NewsResponse, len(items))
	for i, n := range items {
		result[i] = MapDomainToNewsResponse(n, false)
	}
	return result
}

// MapNewsRequestToDomain конвертирует запрос в доменную модель. Вызывать после Validate.
func MapNewsRequestToDomain(req NewsRequest, id uuid.UUID) domain.News {
	status, _ := validateStatus(req.Status)
	return domain.News{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Category:    strings.TrimSpace(req.Category),
		Summary:     req.Summary,
		Content:     req.Content,
		ImageURL:    req.ImageURL,
		SourceURL:   req.SourceURL,
		Author:      req.Author,
		Tags:        req.Tags.String(),
		Status:      status,
		PublishedAt: req.PublishedAt,
	}
}
