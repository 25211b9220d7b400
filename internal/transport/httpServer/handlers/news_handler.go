package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"thepup/internal/catalog"
	"thepup/internal/models/domain"
	"thepup/internal/transport/httpServer/handlers/dto"

	"github.com/google/uuid"
)

const relatedNewsCount = 3

type NewsHandler struct {
	repository NewsRepository
	cache      ResponseCache
	images     ImageRemover
	log        *slog.Logger
}

func NewNewsHandler(log *slog.Logger, repo NewsRepository, cache ResponseCache, images ImageRemover) *NewsHandler {
	return &NewsHandler{
		repository: repo,
		cache:      cache,
		images:     images,
		log:        log,
	}
}

// GetNews обрабатывает GET /api/v1/news?category=&tag=&q=&limit=&offset=
func (h *NewsHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.NewsHandler.GetNews()"
	log := h.log.With(slog.String("op", op))

	q := r.URL.Query()
	limit, offset, err := parsePage(q)
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	resp, err := cached(ctx, log, h.cache, domain.KindNews, cacheKey("list", q), func() (dto.ListResponse[dto.NewsResponse], error) {
		items, err := h.repository.ListPublishedNews(ctx)
		if err != nil {
			return dto.ListResponse[dto.NewsResponse]{}, err
		}
		filtered := catalog.FilterNews(items, catalog.NewsFilter{
			Category: q.Get("category"),
			Tag:      q.Get("tag"),
			Query:    q.Get("q"),
		})
		page := catalog.Page(filtered, offset, limit)
		return dto.NewListResponse(dto.MapDomainToNewsResponseList(page), len(filtered), limit, offset), nil
	})
	if err != nil {
		respondError(log, fmt.Errorf("failed to get news: %w", err), w, http.StatusInternalServerError)
		return
	}

	respondJSON(log, w, http.StatusOK, resp)
}

// GetNewsByID обрабатывает GET /api/v1/news/{newsId}. Черновики не отдаются.
func (h *NewsHandler) GetNewsByID(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.NewsHandler.GetNewsByID()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "newsId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	resp, err := cached(ctx, log, h.cache, domain.KindNews, "item:"+id.String(), func() (dto.NewsDetailResponse, error) {
		items, err := h.repository.ListPublishedNews(ctx)
		if err != nil {
			return dto.NewsDetailResponse{}, err
		}
		current, ok := findNews(items, id)
		if !ok {
			return dto.NewsDetailResponse{}, fmt.Errorf("news %s: %w", id, errNotPublished)
		}
		return dto.NewsDetailResponse{
			NewsResponse: dto.MapDomainToNewsResponse(current, true),
			Related:      dto.MapDomainToNewsResponseList(catalog.RelatedNews(items, current, relatedNewsCount)),
		}, nil
	})
	if err != nil {
		respondError(log, err, w, statusFor(err))
		return
	}

	respondJSON(log, w, http.StatusOK, resp)
}

// AdminList обрабатывает GET /api/v1/admin/news. Возвращает и черновики.
func (h *NewsHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.NewsHandler.AdminList()"
	log := h.log.With(slog.String("op", op))

	q := r.URL.Query()
	limit, offset, err := parsePage(q)
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	items, err := h.repository.ListNews(r.Context())
	if err != nil {
		respondError(log, fmt.Errorf("failed to get news: %w", err), w, http.StatusInternalServerError)
		return
	}

	status := domain.Status(q.Get("status"))
	if status != "" && !status.Valid() {
		respondError(log, fmt.Errorf("%w: invalid status filter: %s", dto.ErrValidation, status), w, http.StatusBadRequest)
		return
	}

	filtered := catalog.FilterNews(items, catalog.NewsFilter{
		Category:      q.Get("category"),
		Tag:           q.Get("tag"),
		Query:         q.Get("q"),
		IncludeDrafts: true,
	})
	if status != "" {
		filtered = filterByStatus(filtered, status, func(n domain.News) domain.Status { return n.Status })
	}

	page := catalog.Page(filtered, offset, limit)
	respondJSON(log, w, http.StatusOK, dto.NewListResponse(dto.MapDomainToNewsResponseList(page), len(filtered), limit, offset))
}

// AdminGet обрабатывает GET /api/v1/admin/news/{newsId}.
func (h *NewsHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.NewsHandler.AdminGet()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "newsId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	news, err := h.repository.FindNewsByID(r.Context(), id)
	if err != nil {
		respondError(log, fmt.Errorf("failed to get news: %w", err), w, statusFor(err))
		return
	}

	respondJSON(log, w, http.StatusOK, dto.MapDomainToNewsResponse(news, true))
}

// Create обрабатывает POST /api/v1/admin/news.
func (h *NewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.NewsHandler.Create()"
	log := h.log.With(slog.String("op", op))

	var req dto.NewsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	created, err := h.repository.CreateNews(ctx, dto.MapNewsRequestToDomain(req, uuid.New()))
	if err != nil {
		respondError(log, fmt.Errorf("failed to create news: %w", err), w, statusFor(err))
		return
	}

	log.Info("news created", slog.String("newsID", created.ID.String()))
	invalidate(ctx, log, h.cache, domain.KindNews)

	respondJSON(log, w, http.StatusCreated, dto.MapDomainToNewsResponse(created, true))
}

// Change обрабатывает PUT /api/v1/admin/news/{newsId}
// Полностью заменяет новость переданными данными.
func (h *NewsHandler) Change(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.NewsHandler.Change()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "newsId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	var req dto.NewsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	old, err := h.repository.FindNewsByID(ctx, id)
	if err != nil {
		respondError(log, fmt.Errorf("failed to get news: %w", err), w, statusFor(err))
		return
	}

	news := dto.MapNewsRequestToDomain(req, id)
	if news.PublishedAt == nil {
		news.PublishedAt = old.PublishedAt
	}

	updated, err := h.repository.UpdateNews(ctx, news)
	if err != nil {
		respondError(log, fmt.Errorf("failed to update news: %w", err), w, statusFor(err))
		return
	}

	if old.ImageURL != updated.ImageURL {
		removeImage(ctx, log, h.images, old.ImageURL)
	}

	log.Info("news changed", slog.String("newsID", id.String()))
	invalidate(ctx, log, h.cache, domain.KindNews)

	respondJSON(log, w, http.StatusOK, dto.MapDomainToNewsResponse(updated, true))
}

// UpdateStatus обрабатывает PUT /api/v1/admin/news/{newsId}/status
func (h *NewsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.NewsHandler.UpdateStatus()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "newsId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	var req dto.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	log.Info("updating news status", slog.String("newsID", id.String()), slog.String("status", req.Status))

	ctx := r.Context()
	if err := h.repository.UpdateNewsStatus(ctx, id, domain.Status(req.Status)); err != nil {
		respondError(log, fmt.Errorf("failed to update news status: %w", err), w, statusFor(err))
		return
	}

	invalidate(ctx, log, h.cache, domain.KindNews)

	respondJSON(log, w, http.StatusOK, map[string]string{"status": "ok"})
}

// Delete обрабатывает DELETE /api/v1/admin/news/{newsId}
func (h *NewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.NewsHandler.Delete()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "newsId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	news, err := h.repository.FindNewsByID(ctx, id)
	if err != nil {
		respondError(log, fmt.Errorf("failed to get news: %w", err), w, statusFor(err))
		return
	}

	if err := h.repository.DeleteNews(ctx, id); err != nil {
		respondError(log, fmt.Errorf("failed to delete news: %w", err), w, statusFor(err))
		return
	}

	removeImage(ctx, log, h.images, news.ImageURL)

	log.Info("news deleted", slog.String("newsID", id.String()))
	invalidate(ctx, log, h.cache, domain.KindNews)

	w.WriteHeader(http.StatusNoContent)
}

func findNews(items []domain.News, id uuid.UUID) (domain.News, bool) {
	for _, n := range items {
		if n.ID == id {
			return n, true
		}
	}
	return domain.News{}, false
}
