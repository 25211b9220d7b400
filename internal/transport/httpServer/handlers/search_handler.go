package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"thepup/internal/catalog"
	"thepup/internal/models/domain"
	"thepup/internal/transport/httpServer/handlers/dto"

	"golang.org/x/sync/errgroup"
)

const defaultSearchLimit = 10

type SearchHandler struct {
	news   NewsRepository
	events EventRepository
	cafes  CafeRepository
	cache  ResponseCache
	log    *slog.Logger
}

func NewSearchHandler(log *slog.Logger, news NewsRepository, events EventRepository, cafes CafeRepository, cache ResponseCache) *SearchHandler {
	return &SearchHandler{
		news:   news,
		events: events,
		cafes:  cafes,
		cache:  cache,
		log:    log,
	}
}

// Search обрабатывает GET /api/v1/search?q=&limit=
// limit применяется к каждому разделу отдельно.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.SearchHandler.Search()"
	log := h.log.With(slog.String("op", op))

	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))

	limit := defaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			respondError(log, fmt.Errorf("%w: invalid limit %q", dto.ErrValidation, raw), w, http.StatusBadRequest)
			return
		}
		limit = min(v, maxLimit)
	}

	if query == "" {
		respondJSON(log, w, http.StatusOK, dto.MapSearchResults(query, catalog.Results{}))
		return
	}

	ctx := r.Context()
	key := cacheKey("search", url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}})

	resp, err := cached(ctx, log, h.cache, domain.KindSearch, key, func() (dto.SearchResponse, error) {
		var (
			news   []domain.News
			events []domain.Event
			cafes  []domain.Cafe
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			news, err = h.news.ListPublishedNews(gctx)
			return err
		})
		g.Go(func() (err error) {
			events, err = h.events.ListPublishedEvents(gctx)
			return err
		})
		g.Go(func() (err error) {
			cafes, err = h.cafes.ListPublishedCafes(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return dto.SearchResponse{}, err
		}

		res := catalog.Search(query, news, events, cafes, limit)
		log.Debug("search done", slog.String("query", query), slog.Int("total", res.Total()))
		return dto.MapSearchResults(query, res), nil
	})
	if err != nil {
		respondError(log, fmt.Errorf("failed to load records: %w", err), w, http.StatusInternalServerError)
		return
	}

	respondJSON(log, w, http.StatusOK, resp)
}

// GetCategories обрабатывает GET /api/v1/categories?kind=news|events|cafes
func (h *SearchHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.SearchHandler.GetCategories()"
	log := h.log.With(slog.String("op", op))

	kind := domain.Kind(strings.ToLower(r.URL.Query().Get("kind")))
	if !kind.Valid() {
		respondError(log, fmt.Errorf("%w: unknown kind %q", dto.ErrValidation, kind), w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	resp, err := cached(ctx, log, h.cache, kind, "categories", func() (dto.CategoriesResponse, error) {
		var values []string
		switch kind {
		case domain.KindNews:
			items, err := h.news.ListPublishedNews(ctx)
			if err != nil {
				return dto.CategoriesResponse{}, err
			}
			for _, n := range items {
				values = append(values, n.Category)
			}
		case domain.KindEvent:
			items, err := h.events.ListPublishedEvents(ctx)
			if err != nil {
				return dto.CategoriesResponse{}, err
			}
			for _, e := range items {
				values = append(values, e.Category)
			}
		case domain.KindCafe:
			items, err := h.cafes.ListPublishedCafes(ctx)
			if err != nil {
				return dto.CategoriesResponse{}, err
			}
			for _, c := range items {
				values = append(values, c.Category)
			}
		}
		return dto.CategoriesResponse{Kind: string(kind), Categories: catalog.Categories(values)}, nil
	})
	if err != nil {
		respondError(log, fmt.Errorf("failed to get categories: %w", err), w, http.StatusInternalServerError)
		return
	}

	respondJSON(log, w, http.StatusOK, resp)
}
