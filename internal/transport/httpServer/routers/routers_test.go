package routers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"thepup/internal/auth"
	"thepup/internal/cache"
	"thepup/internal/config"
	"thepup/internal/geo"
	"thepup/internal/models/domain"
	"thepup/internal/orchestrator"
	"thepup/internal/repositories"
	"thepup/internal/storage"
	"thepup/internal/transport/httpServer/handlers"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// memStore: in-memory реализация репозиториев для хэндлеров.
type memStore struct {
	mu     sync.Mutex
	news   map[uuid.UUID]domain.News
	events map[uuid.UUID]domain.Event
	cafes  map[uuid.UUID]domain.Cafe
	admins map[string]domain.AdminUser

	adminErr error
}

func newMemStore() *memStore {
	return &memStore{
		news:   map[uuid.UUID]domain.News{},
		events: map[uuid.UUID]domain.Event{},
		cafes:  map[uuid.UUID]domain.Cafe{},
		admins: map[string]domain.AdminUser{},
	}
}

func values[T any](m map[uuid.UUID]T, keep func(T) bool) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (s *memStore) CreateNews(_ context.Context, n domain.News) (domain.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.CreatedAt, n.UpdatedAt = time.Now(), time.Now()
	s.news[n.ID] = n
	return n, nil
}

func (s *memStore) FindNewsByID(_ context.Context, id uuid.UUID) (domain.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.news[id]
	if !ok {
		return domain.News{}, repositories.ErrNotFound
	}
	return n, nil
}

func (s *memStore) UpdateNews(_ context.Context, n domain.News) (domain.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.news[n.ID]; !ok {
		return domain.News{}, repositories.ErrNotFound
	}
	s.news[n.ID] = n
	return n, nil
}

func (s *memStore) UpdateNewsStatus(_ context.Context, id uuid.UUID, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.news[id]
	if !ok {
		return repositories.ErrNotFound
	}
	n.Status = status
	s.news[id] = n
	return nil
}

func (s *memStore) DeleteNews(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.news[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.news, id)
	return nil
}

func (s *memStore) ListNews(context.Context) ([]domain.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.news, nil), nil
}

func (s *memStore) ListPublishedNews(context.Context) ([]domain.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.news, func(n domain.News) bool { return n.Status == domain.StatusPublished }), nil
}

func (s *memStore) CreateEvent(_ context.Context, e domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return e, nil
}

func (s *memStore) FindEventByID(_ context.Context, id uuid.UUID) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return domain.Event{}, repositories.ErrNotFound
	}
	return e, nil
}

func (s *memStore) UpdateEvent(_ context.Context, e domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return e, nil
}

func (s *memStore) UpdateEventStatus(_ context.Context, id uuid.UUID, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return repositories.ErrNotFound
	}
	e.Status = status
	s.events[id] = e
	return nil
}

func (s *memStore) DeleteEvent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, id)
	return nil
}

func (s *memStore) ListEvents(context.Context) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.events, nil), nil
}

func (s *memStore) ListPublishedEvents(context.Context) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.events, func(e domain.Event) bool { return e.Status == domain.StatusPublished }), nil
}

func (s *memStore) CreateCafe(_ context.Context, c domain.Cafe) (domain.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cafes[c.ID] = c
	return c, nil
}

func (s *memStore) FindCafeByID(_ context.Context, id uuid.UUID) (domain.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cafes[id]
	if !ok {
		return domain.Cafe{}, repositories.ErrNotFound
	}
	return c, nil
}

func (s *memStore) UpdateCafe(_ context.Context, c domain.Cafe) (domain.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cafes[c.ID] = c
	return c, nil
}

func (s *memStore) UpdateCafeStatus(_ context.Context, id uuid.UUID, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cafes[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.Status = status
	s.cafes[id] = c
	return nil
}

func (s *memStore) DeleteCafe(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cafes, id)
	return nil
}

func (s *memStore) ListCafes(context.Context) ([]domain.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.cafes, nil), nil
}

func (s *memStore) ListPublishedCafes(context.Context) ([]domain.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return values(s.cafes, func(c domain.Cafe) bool { return c.Status == domain.StatusPublished }), nil
}

func (s *memStore) FindAdminByEmail(_ context.Context, email string) (domain.AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adminErr != nil {
		return domain.AdminUser{}, s.adminErr
	}
	a, ok := s.admins[email]
	if !ok {
		return domain.AdminUser{}, repositories.ErrNotFound
	}
	return a, nil
}

func (s *memStore) CreateAdmin(_ context.Context, email, hash string) (domain.AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := domain.AdminUser{ID: uuid.New(), Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	s.admins[email] = a
	return a, nil
}

type fakeImporter struct{ err error }

func (f fakeImporter) RunOnce(context.Context) error { return f.err }

type testEnv struct {
	store *memStore
	mux   *chi.Mux
	token string
}

const (
	adminEmail    = "admin@thepup.test"
	adminPassword = "purple-you"
)

// fakeObjects: S3-клиент в памяти для хранилища картинок.
type fakeObjects struct {
	mu      sync.Mutex
	puts    []string
	deleted []string
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, aws.ToString(in.Key))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeObjects) snapshot() (puts, deleted []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.puts...), append([]string(nil), f.deleted...)
}

const (
	bucketURL     = "https://cdn.thepup.test/images"
	maxUploadSize = 1024
)

func newTestEnv(t *testing.T, importer handlers.Importer) *testEnv {
	t.Helper()
	return newTestEnvWithBucket(t, importer, nil)
}

// newTestEnvWithBucket поднимает окружение с хранилищем картинок поверх objects.
// При objects == nil хранилище не настроено.
func newTestEnvWithBucket(t *testing.T, importer handlers.Importer, objects *fakeObjects) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	responseCache := cache.NewRedis(log, client, time.Minute)

	authService := auth.New(log, store, "test-secret", time.Hour)
	if err := authService.Bootstrap(context.Background(), adminEmail, adminPassword); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	mapCfg := config.MapConfig{PadRatio: 0.5, MaxMarkers: 50, IconBaseURL: "/static/markers", DefaultColor: "#7c3aed"}
	markers := geo.NewMarkerCache(mapCfg.IconBaseURL, mapCfg.DefaultColor, nil)

	var (
		images   handlers.ImageRemover
		uploader handlers.Uploader
	)
	if objects != nil {
		bucket := storage.NewWithClient(log, objects, config.StorageConfig{
			Bucket:        "thepup",
			PublicBaseURL: bucketURL,
			MaxUploadSize: maxUploadSize,
		})
		images, uploader = bucket, bucket
	}

	router := NewRouter(log, Handlers{
		News:   handlers.NewNewsHandler(log, store, responseCache, images),
		Events: handlers.NewEventHandler(log, store, responseCache, images, markers, mapCfg, time.UTC),
		Cafes:  handlers.NewCafeHandler(log, store, responseCache, images),
		Search: handlers.NewSearchHandler(log, store, store, store, responseCache),
		Admin:  handlers.NewAdminHandler(log, authService, importer),
		Upload: handlers.NewUploadHandler(log, uploader),
	}, authService, nil)

	mux := chi.NewRouter()
	router.Mount(mux)

	env := &testEnv{store: store, mux: mux}
	env.token = env.login(t)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, withToken bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if withToken {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/v1/admin/login", map[string]string{
		"email":    adminEmail,
		"password": adminPassword,
	}, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type newsItem struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Status  string    `json:"status"`
}

type newsList struct {
	Items []newsItem `json:"items"`
	Total int        `json:"total"`
}

func TestPublicNewsHidesDrafts(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	published, _ := env.store.CreateNews(ctx, domain.News{ID: uuid.New(), Title: "Comeback", Content: "<p>full</p>", Status: domain.StatusPublished})
	draft, _ := env.store.CreateNews(ctx, domain.News{ID: uuid.New(), Title: "Rumour", Status: domain.StatusDraft})

	rec := env.do(t, http.MethodGet, "/api/v1/news", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list newsList
	decode(t, rec, &list)
	if list.Total != 1 || len(list.Items) != 1 || list.Items[0].ID != published.ID {
		t.Fatalf("unexpected list %+v", list)
	}
	if list.Items[0].Content != "" {
		t.Error("list must not include content")
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/news/"+draft.ID.String(), nil, false); rec.Code != http.StatusNotFound {
		t.Fatalf("draft detail status = %d; want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/news/not-a-uuid", nil, false); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d; want 400", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/news/"+published.ID.String(), nil, false)
	var detail newsItem
	decode(t, rec, &detail)
	if rec.Code != http.StatusOK || detail.Content != "<p>full</p>" {
		t.Fatalf("detail = %d %+v", rec.Code, detail)
	}
}

func TestAdminRequiresToken(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/admin/news", nil, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}

	rec = env.do(t, http.MethodPost, "/api/v1/admin/login", map[string]string{"email": adminEmail, "password": "wrong"}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d; want 401", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/admin/me", nil, true)
	var me struct {
		Email string `json:"email"`
	}
	decode(t, rec, &me)
	if rec.Code != http.StatusOK || me.Email != adminEmail {
		t.Fatalf("me = %d %+v", rec.Code, me)
	}
}

func TestLoginDatabaseFailure(t *testing.T) {
	env := newTestEnv(t, nil)

	env.store.mu.Lock()
	env.store.adminErr = errors.New("connection refused")
	env.store.mu.Unlock()

	rec := env.do(t, http.MethodPost, "/api/v1/admin/login", map[string]string{
		"email":    adminEmail,
		"password": adminPassword,
	}, false)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("login with broken database status = %d; want 500", rec.Code)
	}
}

func TestAdminWritesInvalidateCache(t *testing.T) {
	env := newTestEnv(t, nil)

	// прогреваем кэш пустым списком
	var list newsList
	decode(t, env.do(t, http.MethodGet, "/api/v1/news", nil, false), &list)
	if list.Total != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/admin/news", map[string]any{"summary": "no title"}, true); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid create status = %d; want 400", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/admin/news", map[string]any{
		"title":  "Tour dates",
		"tags":   "svt, tour",
		"status": "published",
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var created newsItem
	decode(t, rec, &created)

	decode(t, env.do(t, http.MethodGet, "/api/v1/news", nil, false), &list)
	if list.Total != 1 || list.Items[0].ID != created.ID {
		t.Fatalf("cache was not invalidated: %+v", list)
	}

	rec = env.do(t, http.MethodPut, "/api/v1/admin/news/"+created.ID.String()+"/status", map[string]string{"status": "draft"}, true)
	if rec.Code != http.StatusOK && rec.Code != http.StatusNoContent {
		t.Fatalf("status change = %d", rec.Code)
	}
	decode(t, env.do(t, http.MethodGet, "/api/v1/news", nil, false), &list)
	if list.Total != 0 {
		t.Fatalf("unpublished news still listed: %+v", list)
	}

	if rec := env.do(t, http.MethodDelete, "/api/v1/admin/news/"+created.ID.String(), nil, true); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/admin/news/"+created.ID.String(), nil, true); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted news status = %d; want 404", rec.Code)
	}
}

func ptr(f float64) *float64 { return &f }

func TestEventMap(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour)

	near, _ := env.store.CreateEvent(ctx, domain.Event{ID: uuid.New(), Title: "Near", Category: "cupsleeve",
		Latitude: ptr(13.75), Longitude: ptr(100.50), StartDate: start, Status: domain.StatusPublished})
	far, _ := env.store.CreateEvent(ctx, domain.Event{ID: uuid.New(), Title: "Far", Category: "party",
		Latitude: ptr(13.95), Longitude: ptr(100.70), StartDate: start, Status: domain.StatusPublished})
	env.store.CreateEvent(ctx, domain.Event{ID: uuid.New(), Title: "Chiang Mai",
		Latitude: ptr(18.79), Longitude: ptr(98.98), StartDate: start, Status: domain.StatusPublished})
	env.store.CreateEvent(ctx, domain.Event{ID: uuid.New(), Title: "Draft",
		Latitude: ptr(13.75), Longitude: ptr(100.50), StartDate: start, Status: domain.StatusDraft})
	env.store.CreateEvent(ctx, domain.Event{ID: uuid.New(), Title: "No coords", StartDate: start, Status: domain.StatusPublished})

	const viewport = "north=14&south=13.5&east=100.8&west=100.4"

	rec := env.do(t, http.MethodGet, "/api/v1/events/map?"+viewport+"&selected="+far.ID.String(), nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("map status = %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		FetchedBounds geo.Bounds `json:"fetched_bounds"`
		Items         []struct {
			Event struct {
				ID uuid.UUID `json:"id"`
			} `json:"event"`
			DistanceKm float64    `json:"distance_km"`
			Marker     geo.Marker `json:"marker"`
		} `json:"items"`
	}
	decode(t, rec, &resp)

	if len(resp.Items) != 2 {
		t.Fatalf("got %d markers; want 2", len(resp.Items))
	}
	if resp.Items[0].Event.ID != near.ID || resp.Items[1].Event.ID != far.ID {
		t.Fatalf("markers are not sorted by distance")
	}
	if !sort.SliceIsSorted(resp.Items, func(i, j int) bool { return resp.Items[i].DistanceKm < resp.Items[j].DistanceKm }) {
		t.Fatal("distances are not ascending")
	}
	if resp.Items[1].Marker.Size <= resp.Items[0].Marker.Size {
		t.Error("selected marker should be larger")
	}
	if !resp.FetchedBounds.Covers(geo.Bounds{North: 14, South: 13.5, East: 100.8, West: 100.4}) {
		t.Errorf("fetched bounds %+v do not cover viewport", resp.FetchedBounds)
	}

	// viewport внутри загруженной области, перезагрузка не нужна
	loaded := resp.FetchedBounds.String()
	rec = env.do(t, http.MethodGet, "/api/v1/events/map?north=13.9&south=13.6&east=100.7&west=100.5&loaded="+loaded, nil, false)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("covered viewport status = %d; want 304", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/events/map?north=19&south=18.5&east=99.2&west=98.8&loaded="+loaded, nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("moved viewport status = %d; want 200", rec.Code)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/events/map?north=14&south=13", nil, false); rec.Code != http.StatusBadRequest {
		t.Fatalf("partial viewport status = %d; want 400", rec.Code)
	}
}

func TestEventMapTruncatedBounds(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour)

	// 50 событий в центре viewport занимают весь лимит маркеров
	for i := 0; i < 50; i++ {
		env.store.CreateEvent(ctx, domain.Event{ID: uuid.New(), Title: "Centre",
			Latitude: ptr(13.75), Longitude: ptr(100.6), StartDate: start, Status: domain.StatusPublished})
	}
	edge, _ := env.store.CreateEvent(ctx, domain.Event{ID: uuid.New(), Title: "Edge",
		Latitude: ptr(14.2), Longitude: ptr(100.95), StartDate: start, Status: domain.StatusPublished})

	type mapResp struct {
		FetchedBounds geo.Bounds `json:"fetched_bounds"`
		Truncated     bool       `json:"truncated"`
		Items         []struct {
			Event struct {
				ID uuid.UUID `json:"id"`
			} `json:"event"`
		} `json:"items"`
	}
	delivered := func(r mapResp) bool {
		for _, it := range r.Items {
			if it.Event.ID == edge.ID {
				return true
			}
		}
		return false
	}

	rec := env.do(t, http.MethodGet, "/api/v1/events/map?north=14&south=13.5&east=100.8&west=100.4", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("map status = %d: %s", rec.Code, rec.Body)
	}
	var first mapResp
	decode(t, rec, &first)

	if len(first.Items) != 50 || delivered(first) {
		t.Fatalf("got %d markers, edge delivered = %v; want 50 centre markers", len(first.Items), delivered(first))
	}
	if !first.Truncated {
		t.Error("response should be marked as truncated")
	}
	if first.FetchedBounds.Contains(geo.Point{Lat: 14.2, Lng: 100.95}) {
		t.Fatalf("fetched bounds %v claim the undelivered edge event", first.FetchedBounds)
	}

	// сдвигаем карту к отброшенному событию
	rec = env.do(t, http.MethodGet, "/api/v1/events/map?north=14.24&south=13.8&east=100.99&west=100.6&loaded="+first.FetchedBounds.String(), nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("pan to edge status = %d; want 200", rec.Code)
	}
	var second mapResp
	decode(t, rec, &second)
	if !delivered(second) {
		t.Fatal("edge event was not delivered after the pan")
	}
}

func TestSearchCacheInvalidation(t *testing.T) {
	env := newTestEnv(t, nil)

	type searchResp struct {
		Total int        `json:"total"`
		News  []newsItem `json:"news"`
	}

	var resp searchResp
	decode(t, env.do(t, http.MethodGet, "/api/v1/search?q=comeback", nil, false), &resp)
	if resp.Total != 0 {
		t.Fatalf("expected no results, got %+v", resp)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/admin/news", map[string]any{"title": "Comeback teaser", "status": "published"}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}

	decode(t, env.do(t, http.MethodGet, "/api/v1/search?q=comeback", nil, false), &resp)
	if resp.Total != 1 || len(resp.News) != 1 || resp.News[0].Title != "Comeback teaser" {
		t.Fatalf("cached search was not invalidated: %+v", resp)
	}

	// запись в хранилище мимо API: ответ отдаётся из кэша
	env.store.CreateNews(context.Background(), domain.News{ID: uuid.New(), Title: "Comeback stage", Status: domain.StatusPublished})
	decode(t, env.do(t, http.MethodGet, "/api/v1/search?q=comeback", nil, false), &resp)
	if resp.Total != 1 {
		t.Fatalf("search should be served from cache, got %+v", resp)
	}
}

func TestCafesValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, q := range []string{"sort=distance", "lat=13.7", "lat=95&lng=100", "limit=-1"} {
		if rec := env.do(t, http.MethodGet, "/api/v1/cafes?"+q, nil, false); rec.Code != http.StatusBadRequest {
			t.Errorf("GET /cafes?%s status = %d; want 400", q, rec.Code)
		}
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/cafes?sort=distance&lat=13.7&lng=100.5", nil, false); rec.Code != http.StatusOK {
		t.Errorf("distance sort status = %d", rec.Code)
	}
}

func TestRunImport(t *testing.T) {
	cases := []struct {
		name     string
		importer handlers.Importer
		want     int
	}{
		{"disabled", nil, http.StatusServiceUnavailable},
		{"started", fakeImporter{}, http.StatusAccepted},
		{"busy", fakeImporter{err: orchestrator.ErrAlreadyRunning}, http.StatusConflict},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := newTestEnv(t, c.importer)
			if rec := env.do(t, http.MethodPost, "/api/v1/admin/imports", nil, true); rec.Code != c.want {
				t.Fatalf("status = %d; want %d", rec.Code, c.want)
			}
		})
	}
}

func TestUploadDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	if rec := env.do(t, http.MethodPost, "/api/v1/admin/uploads", nil, true); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d; want 503", rec.Code)
	}
}

func TestImagesFollowRecords(t *testing.T) {
	objects := &fakeObjects{}
	env := newTestEnvWithBucket(t, nil, objects)
	ctx := context.Background()

	news, _ := env.store.CreateNews(ctx, domain.News{ID: uuid.New(), Title: "Teaser",
		ImageURL: bucketURL + "/news/old.jpg", Status: domain.StatusPublished})

	path := "/api/v1/admin/news/" + news.ID.String()
	rec := env.do(t, http.MethodPut, path, map[string]any{"title": "Teaser", "image_url": bucketURL + "/news/new.jpg"}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("change status = %d: %s", rec.Code, rec.Body)
	}
	if _, deleted := objects.snapshot(); len(deleted) != 1 || deleted[0] != "news/old.jpg" {
		t.Fatalf("replaced image: deleted = %v; want [news/old.jpg]", deleted)
	}

	// та же картинка: удалять нечего
	if rec := env.do(t, http.MethodPut, path, map[string]any{"title": "Teaser 2", "image_url": bucketURL + "/news/new.jpg"}, true); rec.Code != http.StatusOK {
		t.Fatalf("second change status = %d", rec.Code)
	}
	if _, deleted := objects.snapshot(); len(deleted) != 1 {
		t.Fatalf("unchanged image was deleted: %v", deleted)
	}

	if rec := env.do(t, http.MethodDelete, path, nil, true); rec.Code != http.StatusNoContent {
		t.Fatalf("delete news status = %d", rec.Code)
	}

	event, _ := env.store.CreateEvent(ctx, domain.Event{ID: uuid.New(), Title: "Birthday cafe",
		ImageURL: bucketURL + "/events/poster.png", StartDate: time.Now(), Status: domain.StatusPublished})
	if rec := env.do(t, http.MethodDelete, "/api/v1/admin/events/"+event.ID.String(), nil, true); rec.Code != http.StatusNoContent {
		t.Fatalf("delete event status = %d", rec.Code)
	}

	// картинка не из нашего бакета остаётся на месте
	cafe, _ := env.store.CreateCafe(ctx, domain.Cafe{ID: uuid.New(), Name: "Purple Cafe",
		ImageURL: "https://instagram.example/purple.jpg", Status: domain.StatusPublished})
	if rec := env.do(t, http.MethodDelete, "/api/v1/admin/cafes/"+cafe.ID.String(), nil, true); rec.Code != http.StatusNoContent {
		t.Fatalf("delete cafe status = %d", rec.Code)
	}

	_, deleted := objects.snapshot()
	want := []string{"news/old.jpg", "news/new.jpg", "events/poster.png"}
	if len(deleted) != len(want) {
		t.Fatalf("deleted = %v; want %v", deleted, want)
	}
	for i := range want {
		if deleted[i] != want[i] {
			t.Fatalf("deleted = %v; want %v", deleted, want)
		}
	}
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func (e *testEnv) upload(t *testing.T, folder string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("folder", folder); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := mw.CreateFormFile("file", "poster.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token)

	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func TestUploadLimits(t *testing.T) {
	objects := &fakeObjects{}
	env := newTestEnvWithBucket(t, nil, objects)

	small := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 100)...)
	rec := env.upload(t, "events", small)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body)
	}
	var obj struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	decode(t, rec, &obj)
	if !strings.HasPrefix(obj.Key, "events/") || !strings.HasSuffix(obj.Key, ".png") || obj.URL != bucketURL+"/"+obj.Key {
		t.Fatalf("unexpected object %+v", obj)
	}

	tooLarge := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2*maxUploadSize)...)
	if rec := env.upload(t, "events", tooLarge); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized file status = %d; want 413", rec.Code)
	}

	huge := bytes.Repeat([]byte{0}, maxUploadSize+2<<20)
	if rec := env.upload(t, "events", huge); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body status = %d; want 413", rec.Code)
	}

	if puts, _ := objects.snapshot(); len(puts) != 1 {
		t.Fatalf("objects stored = %v; want only the small upload", puts)
	}
}
