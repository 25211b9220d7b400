package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"thepup/internal/config"
	"thepup/internal/models/domain"
	"thepup/internal/utils/logger/sl"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ErrAlreadyRunning: импорт уже выполняется.
var ErrAlreadyRunning = errors.New("import is already running")

// Scraper определяет интерфейс для взаимодействия со скрапером.
type Scraper interface {
	AddJob(requestID uuid.UUID, source config.SourceConfig) (chan struct{}, error)
}

// AI определяет интерфейс для взаимодействия с AI сервисом.
type AI interface {
	AddJob(requestID uuid.UUID, draft domain.Draft) (chan struct{}, error)
}

// Moderator получает черновики для ручной модерации.
type Moderator interface {
	SendDraft(draft domain.Draft) error
}

// Orchestrator управляет пайплайном: scraper → AI → модерация.
// ai и moderator могут быть nil, тогда соответствующий шаг пропускается.
type Orchestrator struct {
	logger       *slog.Logger
	cfg          *config.Config
	scraper      Scraper
	ai           AI
	moderator    Moderator
	completed    <-chan domain.Draft
	enriched     <-chan domain.Draft
	doneChans    []chan struct{}
	mu           sync.Mutex
	running      atomic.Bool
	cron         *cron.Cron
	wg           sync.WaitGroup
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// New создаёт новый экземпляр Orchestrator.
func New(
	logger *slog.Logger,
	cfg *config.Config,
	scraper Scraper,
	ai AI,
	moderator Moderator,
	completed <-chan domain.Draft,
	enriched <-chan domain.Draft,
) *Orchestrator {
	op := "Orchestrator.New()"
	log := logger.With(slog.String("op", op))
	log.Info("Creating orchestrator",
		slog.Int("sources", len(cfg.ScraperConfig.Sources)),
		slog.Bool("ai", ai != nil),
		slog.Bool("moderation", moderator != nil),
	)

	return &Orchestrator{
		logger:       logger,
		cfg:          cfg,
		scraper:      scraper,
		ai:           ai,
		moderator:    moderator,
		completed:    completed,
		enriched:     enriched,
		doneChans:    make([]chan struct{}, 0),
		cron:         cron.New(),
		shutdownChan: make(chan struct{}),
	}
}

// Start запускает обработку черновиков и импорт по расписанию.
func (o *Orchestrator) Start() error {
	op := "Orchestrator.Start()"
	log := o.logger.With(slog.String("op", op))

	schedule := o.cfg.ScraperConfig.Schedule
	if schedule != "" {
		if _, err := o.cron.AddFunc(schedule, o.scheduledRun); err != nil {
			return fmt.Errorf("%s: bad schedule %q: %w", op, schedule, err)
		}
	}

	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		o.processCompleted()
	}()
	go func() {
		defer o.wg.Done()
		o.processEnriched()
	}()

	o.cron.Start()
	if o.cfg.ScraperConfig.RunOnStart {
		o.scheduledRun()
	}

	log.Info("orchestrator started", slog.String("schedule", schedule))
	return nil
}

func (o *Orchestrator) scheduledRun() {
	err := o.RunOnce(context.Background())
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyRunning):
		o.logger.Info("scheduled import skipped: previous run is still active")
	default:
		o.logger.Error("scheduled import failed", slog.String("op", "Orchestrator.scheduledRun()"), sl.Err(err))
	}
}

// RunOnce ставит в очередь все источники из конфига и возвращается сразу.
// Одновременно выполняется не больше одного импорта.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	op := "Orchestrator.RunOnce()"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	select {
	case <-o.shutdownChan:
		return fmt.Errorf("%s: orchestrator is shutting down", op)
	default:
	}

	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	sources := o.cfg.ScraperConfig.Sources
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.running.Store(false)

		log := o.logger.With(slog.String("op", op))
		started := time.Now()

		queued := 0
		for _, source := range sources {
			if err := o.AddJob(source); err == nil {
				queued++
			}
		}

		o.WaitAll()
		log.Info("import finished",
			slog.Int("sources", len(sources)),
			slog.Int("queued", queued),
			slog.Duration("took", time.Since(started)),
		)
	}()

	return nil
}

// Running сообщает, выполняется ли сейчас импорт.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// AddJob добавляет джобу в скрапер и сохраняет канал Done для ожидания.
func (o *Orchestrator) AddJob(source config.SourceConfig) error {
	op := "Orchestrator.AddJob()"
	log := o.logger.With(slog.String("op", op))

	requestID := uuid.New()
	doneChan, err := o.scraper.AddJob(requestID, source)
	if err != nil {
		log.Error("failed to add job",
			slog.String("scraper", source.Name),
			slog.String("url", source.URL),
			sl.Err(err),
		)
		return err
	}

	o.mu.Lock()
	o.doneChans = append(o.doneChans, doneChan)
	o.mu.Unlock()

	log.Debug("job added",
		slog.String("requestID", requestID.String()),
		slog.String("scraper", source.Name),
	)

	return nil
}

// WaitAll ожидает завершения всех добавленных джоб скрапера или остановки оркестратора.
func (o *Orchestrator) WaitAll() {
	op := "Orchestrator.WaitAll()"
	log := o.logger.With(slog.String("op", op))

	o.mu.Lock()
	chans := o.doneChans
	o.doneChans = make([]chan struct{}, 0)
	o.mu.Unlock()

	log.Debug("waiting for scraper jobs", slog.Int("count", len(chans)))

	for _, ch := range chans {
		select {
		case <-ch:
		case <-o.shutdownChan:
			log.Info("stop waiting for scraper jobs: shutting down")
			return
		}
	}
}

// processCompleted отправляет новые черновики в AI, а без AI сразу на модерацию.
func (o *Orchestrator) processCompleted() {
	op := "Orchestrator.processCompleted()"
	log := o.logger.With(slog.String("op", op))

	for {
		select {
		case <-o.shutdownChan:
			return
		case draft, ok := <-o.completed:
			if !ok {
				log.Info("completed channel closed")
				return
			}

			if o.ai == nil {
				o.moderate(draft)
				continue
			}

			if _, err := o.ai.AddJob(uuid.New(), draft); err != nil {
				log.Warn("failed to add AI job, sending draft as is",
					slog.String("title", draft.Title()),
					sl.Err(err),
				)
				o.moderate(draft)
				continue
			}

			log.Debug("draft sent to AI", slog.String("title", draft.Title()))
		}
	}
}

func (o *Orchestrator) processEnriched() {
	log := o.logger.With(slog.String("op", "Orchestrator.processEnriched()"))

	for {
		select {
		case <-o.shutdownChan:
			return
		case draft, ok := <-o.enriched:
			if !ok {
				log.Info("enriched channel closed")
				return
			}
			o.moderate(draft)
		}
	}
}

func (o *Orchestrator) moderate(draft domain.Draft) {
	if o.moderator == nil {
		return
	}

	if err := o.moderator.SendDraft(draft); err != nil {
		o.logger.Error("failed to send draft to moderation",
			slog.String("op", "Orchestrator.moderate()"),
			slog.String("kind", string(draft.Kind)),
			slog.String("id", draft.ID().String()),
			sl.Err(err),
		)
	}
}

// Shutdown корректно завершает оркестратор.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.shutdownOnce.Do(func() {
		o.cron.Stop()
		o.mu.Lock()
		close(o.shutdownChan)
		o.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("force exit orchestrator: %w", ctx.Err())
	}
}
