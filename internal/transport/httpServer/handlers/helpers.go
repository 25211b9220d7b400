package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"thepup/internal/auth"
	"thepup/internal/models/domain"
	"thepup/internal/repositories"
	"thepup/internal/storage"
	"thepup/internal/transport/httpServer/handlers/dto"
	"thepup/internal/utils"
	"thepup/internal/utils/logger/sl"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// errNotPublished: запись не найдена среди опубликованных; для клиента это 404.
var errNotPublished = fmt.Errorf("not published: %w", repositories.ErrNotFound)

func respondError(log *slog.Logger, err error, w http.ResponseWriter, status int) {
	if status >= http.StatusInternalServerError {
		log.Error("handler error", sl.Err(err))
	} else {
		log.Info("request rejected", sl.Err(err), slog.Int("status", status))
	}

	// детали внутренних ошибок наружу не отдаём
	if status >= http.StatusInternalServerError {
		err = nil
	}
	if httpErr := utils.Err(w, status, err); httpErr != nil {
		log.Error("error sending http response", sl.Err(httpErr))
	}
}

// respondJSON пишет ответ и логирует ошибку кодирования.
func respondJSON(log *slog.Logger, w http.ResponseWriter, status int, data any) {
	if err := utils.Json(w, status, data); err != nil {
		log.Error("error encoding response", sl.Err(err))
	}
}

// statusFor сопоставляет ошибку слоя данных с HTTP-статусом.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dto.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repositories.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrBadKey):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func parseID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: empty %s", dto.ErrValidation, param)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", dto.ErrValidation, param)
	}
	return id, nil
}

// parsePage читает limit/offset. По умолчанию 20 записей, не больше 100.
func parsePage(q url.Values) (limit, offset int, err error) {
	limit = defaultLimit
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return 0, 0, fmt.Errorf("%w: invalid limit %q", dto.ErrValidation, raw)
		}
		if limit > maxLimit {
			limit = maxLimit
		}
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("%w: invalid offset %q", dto.ErrValidation, raw)
		}
	}
	return limit, offset, nil
}

func parseFloat(q url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q", dto.ErrValidation, name, raw)
	}
	return &v, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: cannot decode json: %v", dto.ErrValidation, err)
	}
	return nil
}

// cacheKey: имя ответа в кэше: префикс и отсортированные параметры запроса.
func cacheKey(prefix string, q url.Values) string {
	if enc := q.Encode(); enc != "" {
		return prefix + "?" + enc
	}
	return prefix
}

// cached отдаёт ответ из кэша или строит его через load и сохраняет.
// Ошибки кэша не ломают запрос.
func cached[T any](ctx context.Context, log *slog.Logger, c ResponseCache, kind domain.Kind, key string, load func() (T, error)) (T, error) {
	var value T
	if c != nil {
		hit, err := c.Get(ctx, kind, key, &value)
		if err != nil {
			log.Warn("cache get failed", slog.String("key", key), sl.Err(err))
		} else if hit {
			return value, nil
		}
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if c != nil {
		if err := c.Set(ctx, kind, key, value); err != nil {
			log.Warn("cache set failed", slog.String("key", key), sl.Err(err))
		}
	}

	return value, nil
}

func invalidate(ctx context.Context, log *slog.Logger, c ResponseCache, kind domain.Kind) {
	if c == nil {
		return
	}
	if err := c.Invalidate(ctx, kind); err != nil {
		log.Warn("cache invalidate failed", slog.String("kind", string(kind)), sl.Err(err))
	}
}

// removeImage удаляет картинку из хранилища, если она туда загружалась.
func removeImage(ctx context.Context, log *slog.Logger, images ImageRemover, imageURL string) {
	if images == nil || imageURL == "" {
		return
	}
	key, ok := images.KeyFromURL(imageURL)
	if !ok {
		return
	}
	if err := images.Delete(ctx, key); err != nil {
		log.Warn("failed to delete image", slog.String("key", key), sl.Err(err))
	}
}

func filterByStatus[T any](items []T, status domain.Status, statusOf func(T) domain.Status) []T {
	result := make([]T, 0, len(items))
	for _, it := range items {
		if statusOf(it) == status {
			result = append(result, it)
		}
	}
	return result
}
