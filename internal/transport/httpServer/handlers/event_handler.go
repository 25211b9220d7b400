package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"thepup/internal/catalog"
	"thepup/internal/config"
	"thepup/internal/geo"
	"thepup/internal/models/domain"
	"thepup/internal/transport/httpServer/handlers/dto"

	"github.com/google/uuid"
)

type EventHandler struct {
	repository EventRepository
	cache      ResponseCache
	images     ImageRemover
	markers    *geo.MarkerCache
	mapCfg     config.MapConfig
	loc        *time.Location
	now        func() time.Time
	log        *slog.Logger
}

func NewEventHandler(log *slog.Logger, repo EventRepository, cache ResponseCache, images ImageRemover, markers *geo.MarkerCache, mapCfg config.MapConfig, loc *time.Location) *EventHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &EventHandler{
		repository: repo,
		cache:      cache,
		images:     images,
		markers:    markers,
		mapCfg:     mapCfg,
		loc:        loc,
		now:        time.Now,
		log:        log,
	}
}

// GetEvents обрабатывает GET /api/v1/events?category=&when=&from=&to=&q=&limit=&offset=
// По умолчанию показываются предстоящие события.
func (h *EventHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.EventHandler.GetEvents()"
	log := h.log.With(slog.String("op", op))

	q := r.URL.Query()
	limit, offset, err := parsePage(q)
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	filter, err := h.parseFilter(q.Get("category"), q.Get("when"), q.Get("from"), q.Get("to"), q.Get("q"), catalog.WhenUpcoming)
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	resp, err := cached(ctx, log, h.cache, domain.KindEvent, cacheKey("list", q), func() (dto.ListResponse[dto.EventResponse], error) {
		items, err := h.repository.ListPublishedEvents(ctx)
		if err != nil {
			return dto.ListResponse[dto.EventResponse]{}, err
		}
		filtered := catalog.FilterEvents(items, filter, h.now(), h.loc)
		page := catalog.Page(filtered, offset, limit)
		return dto.NewListResponse(dto.MapDomainToEventResponseList(page), len(filtered), limit, offset), nil
	})
	if err != nil {
		respondError(log, fmt.Errorf("failed to get events: %w", err), w, http.StatusInternalServerError)
		return
	}

	respondJSON(log, w, http.StatusOK, resp)
}

// GetEventByID обрабатывает GET /api/v1/events/{eventId}
func (h *EventHandler) GetEventByID(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.EventHandler.GetEventByID()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "eventId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	resp, err := cached(ctx, log, h.cache, domain.KindEvent, "item:"+id.String(), func() (dto.EventResponse, error) {
		event, err := h.repository.FindEventByID(ctx, id)
		if err != nil {
			return dto.EventResponse{}, err
		}
		if event.Status != domain.StatusPublished {
			return dto.EventResponse{}, fmt.Errorf("event %s: %w", id, errNotPublished)
		}
		return dto.MapDomainToEventResponse(event), nil
	})
	if err != nil {
		respondError(log, err, w, statusFor(err))
		return
	}

	respondJSON(log, w, http.StatusOK, resp)
}

// GetMap обрабатывает GET /api/v1/events/map?north=&south=&east=&west=[&lat=&lng=][&category=][&when=][&selected=][&loaded=n,s,e,w]
//
// Клиент передаёт текущую область карты и область, для которой у него уже есть данные.
// Если загруженной области достаточно, отвечаем 304. Иначе отдаём события
// в расширенной области (fetched_bounds), ближайшие к пользователю или к центру карты сверху.
func (h *EventHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.EventHandler.GetMap()"
	log := h.log.With(slog.String("op", op))

	q := r.URL.Query()

	viewport, err := parseViewport(q)
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	if raw := q.Get("loaded"); raw != "" {
		loaded, err := geo.ParseBounds(raw)
		if err != nil {
			respondError(log, fmt.Errorf("%w: loaded: %v", dto.ErrValidation, err), w, http.StatusBadRequest)
			return
		}
		if !geo.NeedsRefetch(loaded, viewport) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	origin := viewport.Center()
	lat, err := parseFloat(q, "lat")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}
	lng, err := parseFloat(q, "lng")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}
	if lat != nil && lng != nil {
		user := geo.Point{Lat: *lat, Lng: *lng}
		if !user.Valid() {
			respondError(log, fmt.Errorf("%w: user position out of range", dto.ErrValidation), w, http.StatusBadRequest)
			return
		}
		origin = user
	}

	var selected uuid.UUID
	if raw := q.Get("selected"); raw != "" {
		if selected, err = uuid.Parse(raw); err != nil {
			respondError(log, fmt.Errorf("%w: invalid selected", dto.ErrValidation), w, http.StatusBadRequest)
			return
		}
	}

	filter, err := h.parseFilter(q.Get("category"), q.Get("when"), "", "", q.Get("q"), catalog.WhenUpcoming)
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	fetched := viewport.Pad(h.mapCfg.PadRatio)

	// загруженная область на ответ не влияет
	q.Del("loaded")

	ctx := r.Context()
	resp, err := cached(ctx, log, h.cache, domain.KindEvent, cacheKey("map", q), func() (dto.MapResponse, error) {
		items, err := h.repository.ListPublishedEvents(ctx)
		if err != nil {
			return dto.MapResponse{}, err
		}

		inside := make([]domain.Event, 0, len(items))
		for _, e := range catalog.FilterEvents(items, filter, h.now(), h.loc) {
			if p, ok := eventPoint(e); ok && fetched.Contains(p) {
				inside = append(inside, e)
			}
		}

		ranked := geo.Nearest(origin, inside, eventPoint, 0)

		resp := dto.MapResponse{
			FetchedBounds: fetched,
			Origin:        origin,
		}
		if limit := h.mapCfg.MaxMarkers; limit > 0 && len(ranked) > limit {
			// загруженной считается только область, где не осталось отброшенных событий
			cut := ranked[limit].DistanceKm * (1 - 1e-9)
			resp.FetchedBounds, _ = fetched.Intersect(geo.WithinRadius(origin, cut))
			resp.Truncated = true
			ranked = ranked[:limit]
		}

		resp.Items = make([]dto.MapMarker, len(ranked))
		for i, rk := range ranked {
			resp.Items[i] = dto.MapMarker{
				Event:      dto.MapDomainToEventResponse(rk.Item),
				DistanceKm: rk.DistanceKm,
				Marker:     h.markers.Get(rk.Item.Category, rk.Item.ID == selected),
			}
		}
		return resp, nil
	})
	if err != nil {
		respondError(log, fmt.Errorf("failed to get map events: %w", err), w, http.StatusInternalServerError)
		return
	}

	respondJSON(log, w, http.StatusOK, resp)
}

// AdminList обрабатывает GET /api/v1/admin/events?status=&when=
// Без when показываются все события, включая прошедшие.
func (h *EventHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.EventHandler.AdminList()"
	log := h.log.With(slog.String("op", op))

	q := r.URL.Query()
	limit, offset, err := parsePage(q)
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	filter, err := h.parseFilter(q.Get("category"), q.Get("when"), q.Get("from"), q.Get("to"), q.Get("q"), catalog.WhenAll)
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

	items, err := h.repository.ListEvents(r.Context())
	if err != nil {
		respondError(log, fmt.Errorf("failed to get events: %w", err), w, http.StatusInternalServerError)
		return
	}

	filtered := catalog.FilterEvents(items, filter, h.now(), h.loc)
	if status != "" {
		filtered = filterByStatus(filtered, status, func(e domain.Event) domain.Status { return e.Status })
	}

	page := catalog.Page(filtered, offset, limit)
	respondJSON(log, w, http.StatusOK, dto.NewListResponse(dto.MapDomainToEventResponseList(page), len(filtered), limit, offset))
}

func (h *EventHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.EventHandler.AdminGet()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "eventId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	event, err := h.repository.FindEventByID(r.Context(), id)
	if err != nil {
		respondError(log, fmt.Errorf("failed to get event: %w", err), w, statusFor(err))
		return
	}

	respondJSON(log, w, http.StatusOK, dto.MapDomainToEventResponse(event))
}

// Create обрабатывает POST /api/v1/admin/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.EventHandler.Create()"
	log := h.log.With(slog.String("op", op))

	var req dto.EventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	created, err := h.repository.CreateEvent(ctx, dto.MapEventRequestToDomain(req, uuid.New()))
	if err != nil {
		respondError(log, fmt.Errorf("failed to create event: %w", err), w, statusFor(err))
		return
	}

	log.Info("event created", slog.String("eventID", created.ID.String()))
	invalidate(ctx, log, h.cache, domain.KindEvent)

	respondJSON(log, w, http.StatusCreated, dto.MapDomainToEventResponse(created))
}

// Change обрабатывает PUT /api/v1/admin/events/{eventId}
// Полностью заменяет событие переданными данными.
func (h *EventHandler) Change(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.EventHandler.Change()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "eventId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	var req dto.EventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	old, err := h.repository.FindEventByID(ctx, id)
	if err != nil {
		respondError(log, fmt.Errorf("failed to get event: %w", err), w, statusFor(err))
		return
	}

	log.Info("changing event", slog.String("eventID", id.String()))

	updated, err := h.repository.UpdateEvent(ctx, dto.MapEventRequestToDomain(req, id))
	if err != nil {
		respondError(log, fmt.Errorf("failed to update event: %w", err), w, statusFor(err))
		return
	}

	if old.ImageURL != updated.ImageURL {
		removeImage(ctx, log, h.images, old.ImageURL)
	}
	invalidate(ctx, log, h.cache, domain.KindEvent)

	respondJSON(log, w, http.StatusOK, dto.MapDomainToEventResponse(updated))
}

// UpdateStatus обрабатывает PUT /api/v1/admin/events/{eventId}/status
func (h *EventHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.EventHandler.UpdateStatus()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "eventId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	var req dto.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	// Валидация статуса
	if err := req.Validate(); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	log.Info("updating event status",
		slog.String("eventID", id.String()),
		slog.String("status", req.Status),
	)

	ctx := r.Context()
	if err := h.repository.UpdateEventStatus(ctx, id, domain.Status(req.Status)); err != nil {
		respondError(log, fmt.Errorf("failed to update event status: %w", err), w, statusFor(err))
		return
	}

	invalidate(ctx, log, h.cache, domain.KindEvent)

	respondJSON(log, w, http.StatusOK, map[string]string{"status": "ok"})
}

// Delete обрабатывает DELETE /api/v1/admin/events/{eventId}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.EventHandler.Delete()"
	log := h.log.With(slog.String("op", op))

	id, err := parseID(r, "eventId")
	if err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	event, err := h.repository.FindEventByID(ctx, id)
	if err != nil {
		respondError(log, fmt.Errorf("failed to get event: %w", err), w, statusFor(err))
		return
	}

	if err := h.repository.DeleteEvent(ctx, id); err != nil {
		respondError(log, fmt.Errorf("failed to delete event: %w", err), w, statusFor(err))
		return
	}

	removeImage(ctx, log, h.images, event.ImageURL)

	log.Info("event deleted", slog.String("eventID", id.String()))
	invalidate(ctx, log, h.cache, domain.KindEvent)

	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) parseFilter(category, when, from, to, query string, def catalog.When) (catalog.EventFilter, error) {
	w, err := catalog.ParseWhen(when, def)
	if err != nil {
		return catalog.EventFilter{}, fmt.Errorf("%w: %v", dto.ErrValidation, err)
	}

	f := catalog.EventFilter{Category: category, When: w, Query: query}

	if f.From, err = parseDate(from, h.loc, false); err != nil {
		return catalog.EventFilter{}, err
	}
	if f.To, err = parseDate(to, h.loc, true); err != nil {
		return catalog.EventFilter{}, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return catalog.EventFilter{}, fmt.Errorf("%w: to is before from", dto.ErrValidation)
	}

	return f, nil
}

// parseDate понимает RFC3339 и YYYY-MM-DD. Для даты без времени и endOfDay
// берётся конец дня, иначе его начало.
func parseDate(raw string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}

	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", dto.ErrValidation, raw)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

func parseViewport(q url.Values) (geo.Bounds, error) {
	var vals [4]float64
	for i, name := range []string{"north", "south", "east", "west"} {
		v, err := parseFloat(q, name)
		if err != nil {
			return geo.Bounds{}, err
		}
		if v == nil {
			return geo.Bounds{}, fmt.Errorf("%w: %s is required", dto.ErrValidation, name)
		}
		vals[i] = *v
	}

	b := geo.Bounds{North: vals[0], South: vals[1], East: vals[2], West: vals[3]}
	if !b.Valid() {
		return geo.Bounds{}, fmt.Errorf("%w: invalid bounds %s", dto.ErrValidation, b)
	}
	return b, nil
}

func eventPoint(e domain.Event) (geo.Point, bool) {
	if !e.HasLocation() {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *e.Latitude, Lng: *e.Longitude}, true
}
