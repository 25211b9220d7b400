package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"thepup/internal/config"
	"thepup/internal/models/domain"
	"thepup/internal/repositories"
	"thepup/internal/scraper/sites"
	"thepup/internal/utils/logger/sl"

	"github.com/google/uuid"
)

var (
	ErrShuttingDown = errors.New("service is shutting down")
	ErrBufferFull   = errors.New("job buffer is full")
)

type Repository interface {
	CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error)
	FindEventBySourceURL(ctx context.Context, link string) (domain.Event, error)
	CreateNews(ctx context.Context, news domain.News) (domain.News, error)
	FindNewsBySourceURL(ctx context.Context, link string) (domain.News, error)
}

// Job представляет задачу, передаваемую в воркер.
type Job struct {
	requestID uuid.UUID           // Уникальный идентификатор запроса
	source    config.SourceConfig // Источник: скрапер, URL и категория по умолчанию
	Done      chan struct{}       // Канал для сигнала завершения
}

// Scraper — структура, управляющая импортом из внешних источников.
type Scraper struct {
	logger          *slog.Logger
	cfg             config.ScraperConfig
	repository      Repository
	scrapers        map[string]sites.ScrapeFunc // Регистр скраперов по имени
	jobs            chan Job
	CompletedChan   chan domain.Draft // Канал новых черновиков (для передачи в AI)
	shutdownChannel chan struct{}
	shutdownOnce    sync.Once
	closeOnce       sync.Once
	wg              *sync.WaitGroup
}

// New создаёт новый экземпляр Scraper.
func New(
	logger *slog.Logger,
	cfg *config.Config,
	repository Repository,
) *Scraper {
	op := "Scraper.New()"
	log := logger.With(
		slog.String("op", op),
	)

	log.Info("Creating scraper client")

	s := &Scraper{
		logger:          logger,
		cfg:             cfg.ScraperConfig,
		repository:      repository,
		scrapers:        make(map[string]sites.ScrapeFunc),
		jobs:            make(chan Job, max(cfg.ScraperConfig.JobBufferSize, 1)),
		CompletedChan:   make(chan domain.Draft, 100),
		shutdownChannel: make(chan struct{}),
		wg:              &sync.WaitGroup{},
	}

	// Регистрация скраперов
	s.Register("mec", sites.NewMEC(cfg.Location()))
	s.Register("rss", sites.ScrapeRSS)
	s.Register("rss-full", sites.ScrapeRSSFullText)

	return s
}

// Register добавляет или заменяет скрапер. Вызывать до Start.
func (s *Scraper) Register(name string, fn sites.ScrapeFunc) {
	s.scrapers[name] = fn
}

// Start запускает воркеры для обработки задач.
func (s *Scraper) Start() {
	op := "Scraper.Start()"
	log := s.logger.With(
		slog.String("op", op),
	)
	workers := max(s.cfg.WorkersCount, 1)
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.handleJob(i)
	}
	log.Info("scraper service started", slog.Int("workers", workers))

	s.wg.Wait()
}

// AddJob добавляет новую задачу в очередь на обработку.
func (s *Scraper) AddJob(requestID uuid.UUID, source config.SourceConfig) (chan struct{}, error) {
	if _, ok := s.scrapers[source.Name]; !ok {
		return nil, fmt.Errorf("unknown scraper %q", source.Name)
	}

	newJob := Job{
		requestID: requestID,
		source:    source,
		Done:      make(chan struct{}),
	}
	select {
	case <-s.shutdownChannel:
		return nil, ErrShuttingDown
	default:
	}

	select {
	case s.jobs <- newJob:
		return newJob.Done, nil
	default:
		return nil, ErrBufferFull
	}
}

// handleJob — воркер, обрабатывающий задачи из канала.
func (s *Scraper) handleJob(id int) {
	defer s.wg.Done()
	op := "Scraper.handleJob()"
	log := s.logger.With(
		slog.String("op", op),
		slog.Int("workerId", id),
	)

	log.Info("start scraper job handler")

	for {
		select {
		case <-s.shutdownChannel:
			return
		case job := <-s.jobs:
			s.process(log, job)
			close(job.Done)
		}
	}
}

// process выполняет одну задачу: скрапинг, дедупликация по source_url и сохранение черновиков.
func (s *Scraper) process(log *slog.Logger, job Job) {
	joblog := log.With(
		slog.String("requestID", job.requestID.String()),
		slog.String("source", job.source.Name),
		slog.String("url", job.source.URL),
	)

	// Получаем скрапер по имени
	scrapeFunc, exists := s.scrapers[job.source.Name]
	if !exists {
		joblog.Error("scraper not found", slog.String("name", job.source.Name))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GetTimeout())
	defer cancel()

	result, err := scrapeFunc(ctx, job.source.URL, s.shutdownChannel)
	if err != nil {
		joblog.Error("scraping failed", sl.Err(err))
		// частичный результат всё равно сохраняем
	}

	created := 0
	for _, event := range result.Events {
		if event.Category == "" {
			event.Category = job.source.Category
		}
		saved, ok := s.saveEvent(ctx, joblog, event)
		if !ok {
			continue
		}
		created++
		s.emit(joblog, domain.EventDraft(saved))
	}

	for _, news := range result.News {
		if news.Category == "" {
			news.Category = job.source.Category
		}
		saved, ok := s.saveNews(ctx, joblog, news)
		if !ok {
			continue
		}
		created++
		s.emit(joblog, domain.NewsDraft(saved))
	}

	joblog.Info("scraping completed",
		slog.Int("events", len(result.Events)),
		slog.Int("news", len(result.News)),
		slog.Int("created", created),
	)
}

func (s *Scraper) saveEvent(ctx context.Context, log *slog.Logger, event domain.Event) (domain.Event, bool) {
	// Проверяем, есть ли уже такое событие в БД
	_, err := s.repository.FindEventBySourceURL(ctx, event.SourceURL)
	if err == nil {
		log.Debug("event already exists", slog.String("link", event.SourceURL))
		return domain.Event{}, false
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		log.Error("failed to check event", sl.Err(err))
		return domain.Event{}, false
	}

	event.ID = uuid.New()
	event.Status = domain.StatusDraft
	saved, err := s.repository.CreateEvent(ctx, event)
	if err != nil {
		log.Error("failed to create event", sl.Err(err))
		return domain.Event{}, false
	}

	log.Debug("event created", slog.String("title", saved.Title))
	return saved, true
}

func (s *Scraper) saveNews(ctx context.Context, log *slog.Logger, news domain.News) (domain.News, bool) {
	_, err := s.repository.FindNewsBySourceURL(ctx, news.SourceURL)
	if err == nil {
		log.Debug("news already exists", slog.String("link", news.SourceURL))
		return domain.News{}, false
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		log.Error("failed to check news", sl.Err(err))
		return domain.News{}, false
	}

	news.ID = uuid.New()
	news.Status = domain.StatusDraft
	saved, err := s.repository.CreateNews(ctx, news)
	if err != nil {
		log.Error("failed to create news", sl.Err(err))
		return domain.News{}, false
	}

	log.Debug("news created", slog.String("title", saved.Title))
	return saved, true
}

// emit отправляет черновик дальше по пайплайну. Если канал заполнен, черновик
// остаётся в базе без обогащения.
func (s *Scraper) emit(log *slog.Logger, draft domain.Draft) {
	select {
	case s.CompletedChan <- draft:
	default:
		log.Warn("CompletedChan is full, skipping AI enrichment", slog.String("title", draft.Title()))
	}
}

// Shutdown останавливает воркеры и закрывает CompletedChan, когда они завершатся.
func (s *Scraper) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChannel) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit scraper: %w", ctx.Err())
	case <-done:
		s.closeOnce.Do(func() { close(s.CompletedChan) })
		return nil
	}
}
