package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"thepup/internal/auth"
	"thepup/internal/orchestrator"
	"thepup/internal/transport/httpServer/handlers/dto"
	"thepup/internal/transport/httpServer/middleware"
)

type AdminHandler struct {
	auth     Authenticator
	importer Importer
	log      *slog.Logger
}

// NewAdminHandler. importer может быть nil, если импорт выключен.
func NewAdminHandler(log *slog.Logger, authenticator Authenticator, importer Importer) *AdminHandler {
	return &AdminHandler{
		auth:     authenticator,
		importer: importer,
		log:      log,
	}
}

// Login обрабатывает POST /api/v1/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.AdminHandler.Login()"
	log := h.log.With(slog.String("op", op))

	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(log, err, w, http.StatusBadRequest)
		return
	}

	token, err := h.auth.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(log, err, w, http.StatusUnauthorized)
			return
		}
		respondError(log, fmt.Errorf("failed to login: %w", err), w, http.StatusInternalServerError)
		return
	}

	log.Info("admin logged in", slog.String("email", req.Email))

	respondJSON(log, w, http.StatusOK, dto.LoginResponse{Token: token.Value, ExpiresAt: token.ExpiresAt})
}

// RunImport обрабатывает POST /api/v1/admin/imports. Импорт идёт в фоне.
func (h *AdminHandler) RunImport(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.AdminHandler.RunImport()"
	log := h.log.With(slog.String("op", op))

	if h.importer == nil {
		respondError(log, errors.New("import is disabled"), w, http.StatusServiceUnavailable)
		return
	}

	if err := h.importer.RunOnce(r.Context()); err != nil {
		if errors.Is(err, orchestrator.ErrAlreadyRunning) {
			respondError(log, err, w, http.StatusConflict)
			return
		}
		respondError(log, fmt.Errorf("failed to start import: %w", err), w, http.StatusInternalServerError)
		return
	}

	respondJSON(log, w, http.StatusAccepted, dto.ImportResponse{Status: "started"})
}

// Me обрабатывает GET /api/v1/admin/me: данные текущего администратора из токена.
func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	op := "httpServer.handlers.AdminHandler.Me()"
	log := h.log.With(slog.String("op", op))

	claims, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		respondError(log, auth.ErrInvalidToken, w, http.StatusUnauthorized)
		return
	}

	resp := dto.AdminResponse{ID: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}

	respondJSON(log, w, http.StatusOK, resp)
}
