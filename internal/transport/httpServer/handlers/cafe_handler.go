package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"thepup/internal/catalog"
	"thepup/internal/geo"
	"thepup/internal/models/domain"
	"thepup/internal/transport/httpServer/handlers/dto"

	"github.com/google/uuid"
)

type CafeHandler struct {
	repository CafeRepository
	cache      ResponseCache
	images     ImageRemover
	log        *slog.Logger
}

func NewCafeHandler(log *slog.Logger, repo CafeRepository, cache ResponseCache, images ImageRemover) *CafeHandler {
	return &CafeHandler{
		repository: repo,
		cache:      cache,
		images:     images,
		log:        log,
	}
}

// GetCafes обрабатывает GET /api/v1/cafes?category=&district=&q=&lat=&lng=&sort=name|distance
func (h *CafeHandler) GetCafes(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.CafeHandler.GetCafes()"
	log := h.log.With(slog.String("op", op))

	q := r.URL.Query()
	filter, limit, offset, err := parseCafeFilter(q)
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	resp, err := cached(ctx, log, h.cache, domain.KindCafe, cacheKey("list", q), func() (dto.ListResponse[dto.CafeResponse], error) {
		items, err := h.repository.ListPublishedCafes(ctx)
		if err != nil {
			return dto.ListResponse[dto.CafeResponse]{}, err
		}
		hits := catalog.FilterCafes(items, filter)
		page := catalog.Page(hits, offset, limit)
		return dto.NewListResponse(dto.MapCafeHitsToResponse(page), len(hits), limit, offset), nil
	})
	if err != nil {
		respondError(log, fmt.Errorf("failed to get cafes: %w", err), w, http.StatusInternalServerError)
		return
	}

	respondJSON(log, w, http.StatusOK, resp)
}

// GetCafeByID обрабатывает GET /api/v1/cafes/{cafeId}
func (h *CafeHandler) GetCafeByID(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.CafeHandler.GetCafeByID()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "cafeId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	resp, err := cached(ctx, log, h.cache, domain.KindCafe, "item:"+id.String(), func() (dto.CafeResponse, error) {
		cafe, err := h.repository.FindCafeByID(ctx, id)
		if err != nil {
			return dto.CafeResponse{}, err
		}
		if cafe.Status != domain.StatusPublished {
			return dto.CafeResponse{}, fmt.Errorf("cafe %s: %w", id, errNotPublished)
		}
		return dto.MapDomainToCafeResponse(cafe), nil
	})
	if err != nil {
		respondError(log, err, w, statusFor(err))
		return
	}

	respondJSON(log, w, http.StatusOK, resp)
}

func (h *CafeHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.CafeHandler.AdminList()"
	log := h.log.With(slog.String("op", op))

	q := r.URL.Query()
	filter, limit, offset, err := parseCafeFilter(q)
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}
	filter.IncludeDrafts = true

	status := domain.Status(q.Get("status"))
	if status != "" && !status.Valid() {
		respondError(log, fmt.Errorf("%w: invalid status filter: %s", dto.ErrValidation, status), w, http.StatusBadRequest)
		return
	}

	items, err := h.repository.ListCafes(r.Context())
	if err != nil {
		respondError(log, fmt.Errorf("failed to get cafes: %w", err), w, http.StatusInternalServerError)
		return
	}

	hits := catalog.FilterCafes(items, filter)
	if status != "" {
		hits = filterByStatus(hits, status, func(hit catalog.CafeHit) domain.Status { return hit.Cafe.Status })
	}

	page := catalog.Page(hits, offset, limit)
	respondJSON(log, w, http.StatusOK, dto.NewListResponse(dto.MapCafeHitsToResponse(page), len(hits), limit, offset))
}

func (h *CafeHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.CafeHandler.AdminGet()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "cafeId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	cafe, err := h.repository.FindCafeByID(r.Context(), id)
	if err != nil {
		respondError(log, fmt.Errorf("failed to get cafe: %w", err), w, statusFor(err))
		return
	}

	respondJSON(log, w, http.StatusOK, dto.MapDomainToCafeResponse(cafe))
}

func (h *CafeHandler) Create(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.CafeHandler.Create()"
	log := h.log.With(slog.String("op", op))

	var req dto.CafeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	created, err := h.repository.CreateCafe(ctx, dto.MapCafeRequestToDomain(req, uuid.New()))
	if err != nil {
		respondError(log, fmt.Errorf("failed to create cafe: %w", err), w, statusFor(err))
		return
	}

	log.Info("cafe created", slog.String("cafeID", created.ID.String()))
	invalidate(ctx, log, h.cache, domain.KindCafe)

	respondJSON(log, w, http.StatusCreated, dto.MapDomainToCafeResponse(created))
}

func (h *CafeHandler) Change(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.CafeHandler.Change()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "cafeId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	var req dto.CafeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	old, err := h.repository.FindCafeByID(ctx, id)
	if err != nil {
		respondError(log, fmt.Errorf("failed to get cafe: %w", err), w, statusFor(err))
		return
	}

	updated, err := h.repository.UpdateCafe(ctx, dto.MapCafeRequestToDomain(req, id))
	if err != nil {
		respondError(log, fmt.Errorf("failed to update cafe: %w", err), w, statusFor(err))
		return
	}

	if old.ImageURL != updated.ImageURL {
		removeImage(ctx, log, h.images, old.ImageURL)
	}

	log.Info("cafe changed", slog.String("cafeID", id.String()))
	invalidate(ctx, log, h.cache, domain.KindCafe)

	respondJSON(log, w, http.StatusOK, dto.MapDomainToCafeResponse(updated))
}

func (h *CafeHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.CafeHandler.UpdateStatus()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "cafeId")
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

	ctx := r.Context()
	if err := h.repository.UpdateCafeStatus(ctx, id, domain.Status(req.Status)); err != nil {
		respondError(log, fmt.Errorf("failed to update cafe status: %w", err), w, statusFor(err))
		return
	}

	invalidate(ctx, log, h.cache, domain.KindCafe)

	respondJSON(log, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *CafeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.CafeHandler.Delete()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "cafeId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	cafe, err := h.repository.FindCafeByID(ctx, id)
	if err != nil {
		respondError(log, fmt.Errorf("failed to get cafe: %w", err), w, statusFor(err))
		return
	}

	if err := h.repository.DeleteCafe(ctx, id); err != nil {
		respondError(log, fmt.Errorf("failed to delete cafe: %w", err), w, statusFor(err))
		return
	}

	removeImage(ctx, log, h.images, cafe.ImageURL)

	log.Info("cafe deleted", slog.String("cafeID", id.String()))
	invalidate(ctx, log, h.cache, domain.KindCafe)

	w.WriteHeader(http.StatusNoContent)
}

func parseCafeFilter(q url.Values) (catalog.CafeFilter, int, int, error) {
	limit, offset, err := parsePage(q)
	if err != nil {
		return catalog.CafeFilter{}, 0, 0, err
	}

	sort, err := catalog.ParseCafeSort(q.Get("sort"))
	if err != nil {
		return catalog.CafeFilter{}, 0, 0, fmt.Errorf("%w: %v", dto.ErrValidation, err)
	}

	f := catalog.CafeFilter{
		Category: q.Get("category"),
		District: q.Get("district"),
		Query:    q.Get("q"),
		Sort:     sort,
	}

	lat, err := parseFloat(q, "lat")
	if err != nil {
		return catalog.CafeFilter{}, 0, 0, err
	}
	lng, err := parseFloat(q, "lng")
	if err != nil {
		return catalog.CafeFilter{}, 0, 0, err
	}
	if (lat == nil) != (lng == nil) {
		return catalog.CafeFilter{}, 0, 0, fmt.Errorf("%w: lat and lng must be set together", dto.ErrValidation)
	}
	if lat != nil {
		p := geo.Point{Lat: *lat, Lng: *lng}
		if !p.Valid() {
			return catalog.CafeFilter{}, 0, 0, fmt.Errorf("%w: position out of range", dto.ErrValidation)
		}
		f.Near = &p
	}
	if f.Sort == catalog.CafeSortDistance && f.Near == nil {
		return catalog.CafeFilter{}, 0, 0, fmt.Errorf("%w: sort=distance requires lat and lng", dto.ErrValidation)
	}

	return f, limit, offset, nil
}
