package handlers

import (
	"context"
	"io"

	"thepup/internal/auth"
	"thepup/internal/models/domain"
	"thepup/internal/storage"

	"github.com/google/uuid"
)

// NewsRepository: интерфейс для работы с новостями из хэндлеров.
type NewsRepository interface {
	CreateNews(ctx context.Context, news domain.News) (domain.News, error)
	FindNewsByID(ctx context.Context, id uuid.UUID) (domain.News, error)
	UpdateNews(ctx context.Context, news domain.News) (domain.News, error)
	UpdateNewsStatus(ctx context.Context, id uuid.UUID, status domain.Status) error
	DeleteNews(ctx context.Context, id uuid.UUID) error
	ListNews(ctx context.Context) ([]domain.News, error)
	ListPublishedNews(ctx context.Context) ([]domain.News, error)
}

// EventRepository: интерфейс для работы с событиями из хэндлеров.
type EventRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error)
	FindEventByID(ctx context.Context, id uuid.UUID) (domain.Event, error)
	UpdateEvent(ctx context.Context, event domain.Event) (domain.Event, error)
	UpdateEventStatus(ctx context.Context, id uuid.UUID, status domain.Status) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	ListPublishedEvents(ctx context.Context) ([]domain.Event, error)
}

type CafeRepository interface {
	CreateCafe(ctx context.Context, cafe domain.Cafe) (domain.Cafe, error)
	FindCafeByID(ctx context.Context, id uuid.UUID) (domain.Cafe, error)
	UpdateCafe(ctx context.Context, cafe domain.Cafe) (domain.Cafe, error)
	UpdateCafeStatus(ctx context.Context, id uuid.UUID, status domain.Status) error
	DeleteCafe(ctx context.Context, id uuid.UUID) error
	ListCafes(ctx context.Context) ([]domain.Cafe, error)
	ListPublishedCafes(ctx context.Context) ([]domain.Cafe, error)
}

// ResponseCache: кэш публичных ответов.
type ResponseCache interface {
	Get(ctx context.Context, kind domain.Kind, key string, dst any) (bool, error)
	Set(ctx context.Context, kind domain.Kind, key string, value any) error
	Invalidate(ctx context.Context, kind domain.Kind) error
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (auth.Token, error)
}

type Uploader interface {
	Upload(ctx context.Context, folder string, body io.Reader) (storage.Object, error)
	MaxSize() int64
}

// ImageRemover удаляет из хранилища картинки удалённых или изменённых записей.
type ImageRemover interface {
	KeyFromURL(url string) (string, bool)
	Delete(ctx context.Context, key string) error
}

// Importer запускает импорт из внешних источников.
type Importer interface {
	RunOnce(ctx context.Context) error
}
