package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status — статус публикации записи.
type Status string

const (
	// StatusDraft — черновик, виден только в админке
	StatusDraft Status = "draft"
	// StatusPublished — запись видна пользователям
	StatusPublished Status = "published"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Kind — тип записи каталога.
type Kind string

const (
	KindNews  Kind = "news"
	KindEvent Kind = "events"
	KindCafe  Kind = "cafes"

	// KindSearch: ответы поиска, зависят от всех разделов каталога.
	KindSearch Kind = "search"
)

// CatalogKinds: разделы каталога.
var CatalogKinds = []Kind{KindNews, KindEvent, KindCafe}

func (k Kind) Valid() bool {
	switch k {
	case KindNews, KindEvent, KindCafe:
		return true
	default:
		return false
	}
}

// News - новость.
type News struct {
	ID          uuid.UUID
	Title       string
	Category    string
	Summary     string
	Content     string // HTML
	ImageURL    string
	SourceURL   string
	Author      string
	Tags        string // через запятую
	Status      Status
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SortTime — дата для сортировки ленты: дата публикации или дата создания.
func (n News) SortTime() time.Time {
	if n.PublishedAt != nil && !n.PublishedAt.IsZero() {
		return *n.PublishedAt
	}
	return n.CreatedAt
}

// Event - доменная модель мероприятия.
type Event struct {
	ID          uuid.UUID
	Title       string
	Category    string
	Description string
	ImageURL    string
	Venue       string
	Address     string
	Latitude    *float64
	Longitude   *float64
	StartDate   time.Time
	EndDate     *time.Time
	TicketURL   string
	Organizer   string
	SourceURL   string
	Tags        string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// End возвращает дату окончания; если она не задана, дату начала.
func (e Event) End() time.Time {
	if e.EndDate != nil && !e.EndDate.IsZero() {
		return *e.EndDate
	}
	return e.StartDate
}

// HasLocation — есть ли у события обе координаты.
func (e Event) HasLocation() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// Cafe - кафе или площадка для фан-активностей.
type Cafe struct {
	ID           uuid.UUID
	Name         string
	Category     string
	Description  string
	ImageURL     string
	Address      string
	District     string
	Latitude     *float64
	Longitude    *float64
	OpeningHours string
	InstagramURL string
	Phone        string
	Tags         string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c Cafe) HasLocation() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// AdminUser — учётная запись администратора.
type AdminUser struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Draft — импортированная запись, которая ждёт обогащения и модерации.
// Заполнено ровно одно из полей News или Event, в зависимости от Kind.
type Draft struct {
	Kind  Kind
	News  News
	Event Event
}

func NewsDraft(n News) Draft {
	return Draft{Kind: KindNews, News: n}
}

func EventDraft(e Event) Draft {
	return Draft{Kind: KindEvent, Event: e}
}

func (d Draft) ID() uuid.UUID {
	if d.Kind == KindNews {
		return d.News.ID
	}
	return d.Event.ID
}

func (d Draft) Title() string {
	if d.Kind == KindNews {
		return d.News.Title
	}
	return d.Event.Title
}
