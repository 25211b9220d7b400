package routers

import (
	"log/slog"

	"thepup/internal/transport/httpServer/handlers"
	myMiddleware "thepup/internal/transport/httpServer/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Router struct {
	log            *slog.Logger
	newsHandler    *handlers.NewsHandler
	eventHandler   *handlers.EventHandler
	cafeHandler    *handlers.CafeHandler
	searchHandler  *handlers.SearchHandler
	adminHandler   *handlers.AdminHandler
	uploadHandler  *handlers.UploadHandler
	tokens         myMiddleware.TokenParser
	allowedOrigins []string
}

type Handlers struct {
	News   *handlers.NewsHandler
	Events *handlers.EventHandler
	Cafes  *handlers.CafeHandler
	Search *handlers.SearchHandler
	Admin  *handlers.AdminHandler
	Upload *handlers.UploadHandler
}

func NewRouter(log *slog.Logger, h Handlers, tokens myMiddleware.TokenParser, allowedOrigins []string) *Router {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Router{
		log:            log,
		newsHandler:    h.News,
		eventHandler:   h.Events,
		cafeHandler:    h.Cafes,
		searchHandler:  h.Search,
		adminHandler:   h.Admin,
		uploadHandler:  h.Upload,
		tokens:         tokens,
		allowedOrigins: allowedOrigins,
	}
}

func (r *Router) Mount(mux *chi.Mux) {

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	mux.Use(middleware.RequestID)
	mux.Use(myMiddleware.Logger(r.log))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Heartbeat("/ping"))

	mux.Route("/api", func(mux chi.Router) {
		mux.Route("/v1", func(mux chi.Router) {
			mux.Route("/news", func(mux chi.Router) {
				mux.Get("/", r.newsHandler.GetNews)
				mux.Get("/{newsId}", r.newsHandler.GetNewsByID)
			})
			mux.Route("/events", func(mux chi.Router) {
				mux.Get("/", r.eventHandler.GetEvents)
				mux.Get("/map", r.eventHandler.GetMap)
				mux.Get("/{eventId}", r.eventHandler.GetEventByID)
			})
			mux.Route("/cafes", func(mux chi.Router) {
				mux.Get("/", r.cafeHandler.GetCafes)
				mux.Get("/{cafeId}", r.cafeHandler.GetCafeByID)
			})
			mux.Get("/search", r.searchHandler.Search)
			mux.Get("/categories", r.searchHandler.GetCategories)

			mux.Route("/admin", func(mux chi.Router) {
				mux.Post("/login", r.adminHandler.Login)

				mux.Group(func(mux chi.Router) {
					mux.Use(myMiddleware.RequireAdmin(r.log, r.tokens))

					mux.Get("/me", r.adminHandler.Me)
					mux.Post("/imports", r.adminHandler.RunImport)
					mux.Post("/uploads", r.uploadHandler.Upload)

					mux.Route("/news", func(mux chi.Router) {
						mux.Get("/", r.newsHandler.AdminList)
						mux.Post("/", r.newsHandler.Create)
						mux.Get("/{newsId}", r.newsHandler.AdminGet)
						mux.Put("/{newsId}", r.newsHandler.Change)
						mux.Put("/{newsId}/status", r.newsHandler.UpdateStatus)
						mux.Delete("/{newsId}", r.newsHandler.Delete)
					})
					mux.Route("/events", func(mux chi.Router) {
						mux.Get("/", r.eventHandler.AdminList)
						mux.Post("/", r.eventHandler.Create)
						mux.Get("/{eventId}", r.eventHandler.AdminGet)
						mux.Put("/{eventId}", r.eventHandler.Change)
						mux.Put("/{eventId}/status", r.eventHandler.UpdateStatus)
						mux.Delete("/{eventId}", r.eventHandler.Delete)
					})
					mux.Route("/cafes", func(mux chi.Router) {
						mux.Get("/", r.cafeHandler.AdminList)
						mux.Post("/", r.cafeHandler.Create)
						mux.Get("/{cafeId}", r.cafeHandler.AdminGet)
						mux.Put("/{cafeId}", r.cafeHandler.Change)
						mux.Put("/{cafeId}/status", r.cafeHandler.UpdateStatus)
						mux.Delete("/{cafeId}", r.cafeHandler.Delete)
					})
				})
			})
		})
	})
}
