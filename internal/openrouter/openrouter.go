package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"thepup/internal/config"
	"thepup/internal/models/domain"
	"thepup/internal/models/dto"
	"thepup/internal/utils/logger/sl"

	"github.com/google/uuid"
	openrouter "github.com/revrost/go-openrouter"
	"github.com/revrost/go-openrouter/jsonschema"
)

const (
	// retryCount определяет количество попыток повторного запроса при ошибках.
	retryCount int = 10
	// retryDuration задаёт интервал между попытками повторного запроса.
	retryDuration time.Duration = 5 * time.Second
)

var (
	ErrShuttingDown = errors.New("service is shutting down")
	ErrBufferFull   = errors.New("job buffer is full")
)

type Repository interface {
	UpdateEvent(ctx context.Context, event domain.Event) (domain.Event, error)
	UpdateNews(ctx context.Context, news domain.News) (domain.News, error)
}

// Job представляет задачу, передаваемую в воркер.
type Job struct {
	requestID uuid.UUID     // Уникальный идентификатор запроса
	draft     domain.Draft  // Черновик для обогащения AI
	Done      chan struct{} // Канал для сигнала завершения
}

// Openrouter — структура, управляющая взаимодействием с OpenRouter API.
// Содержит пул воркеров для асинхронной обработки запросов.
type Openrouter struct {
	logger          *slog.Logger       // Логгер с контекстом
	cfg             *config.Config     // Конфигурация приложения
	Client          *openrouter.Client // Клиент OpenRouter API
	repository      Repository
	jobs            chan Job          // Канал задач
	EnrichedChan    chan domain.Draft // Обогащённые черновики (для модерации)
	shutdownChannel chan struct{}     // Канал для сигнала завершения
	shutdownOnce    sync.Once
	closeOnce       sync.Once
	wg              *sync.WaitGroup // Группа для ожидания завершения воркеров
}

// NewClient создаёт новый экземпляр Openrouter.
func NewClient(
	logger *slog.Logger,
	cfg *config.Config,
	repository Repository,
) *Openrouter {
	op := "Openrouter.NewClient()"
	log := logger.With(
		slog.String("op", op),
	)

	client := openrouter.NewClient(
		cfg.BotConfig.AI.AIApiToken,
	)

	log.Info("Creating openrouter client", slog.String("model", cfg.ModelName()))

	return &Openrouter{
		logger:          logger,
		cfg:             cfg,
		Client:          client,
		repository:      repository,
		jobs:            make(chan Job, max(cfg.BotConfig.AI.JobBufferSize, 1)),
		EnrichedChan:    make(chan domain.Draft, 100),
		shutdownChannel: make(chan struct{}),
		wg:              &sync.WaitGroup{},
	}
}

// Start запускает воркеры для обработки задач.
// Количество воркеров задаётся в конфиге (WorkersCount).
// Метод блокируется до завершения всех воркеров.
func (s *Openrouter) Start() {
	op := "Openrouter.Start()"
	log := s.logger.With(
		slog.String("op", op),
	)
	workers := max(s.cfg.BotConfig.AI.WorkersCount, 1)
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.handleJob(i)
	}
	log.Info("openrouter service started", slog.Int("workers", workers))

	s.wg.Wait()
}

// AddJob добавляет новую задачу в очередь на обработку.
func (s *Openrouter) AddJob(requestID uuid.UUID, draft domain.Draft) (chan struct{}, error) {
	newJob := Job{
		requestID: requestID,
		draft:     draft,
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
// Получает черновик, отправляет запрос в OpenRouter, обновляет запись в БД.
func (s *Openrouter) handleJob(id int) {
	defer s.wg.Done()
	op := "Openrouter.handleJob()"
	log := s.logger.With(
		slog.String("op", op),
		slog.Int("workerId", id),
	)

	log.Info("start openrouter job handler")

	for {
		select {
		case <-s.shutdownChannel:
			return
		case job := <-s.jobs:
			joblog := log.With(
				slog.String("requestID", job.requestID.String()),
				slog.String("kind", string(job.draft.Kind)),
				slog.String("title", job.draft.Title()),
			)

			enriched, err := s.process(joblog, job)
			close(job.Done)
			if err != nil {
				joblog.Error("failed to enrich draft", sl.Err(err))
				// на модерацию уходит исходный черновик
				enriched = job.draft
			}

			select {
			case s.EnrichedChan <- enriched:
			default:
				joblog.Warn("EnrichedChan is full, draft is not sent to moderation")
			}
		}
	}
}

func (s *Openrouter) process(log *slog.Logger, job Job) (domain.Draft, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.BotConfig.AI.GetTimeout())
	defer cancel()

	// Обогащаем черновик через AI
	response, err := s.Enrich(ctx, log, job.requestID, job.draft)
	if err != nil {
		return domain.Draft{}, err
	}
	enrichment := response.ToEnrichment()

	draft := job.draft
	switch draft.Kind {
	case domain.KindNews:
		updated, err := s.repository.UpdateNews(ctx, enrichment.ApplyToNews(draft.News))
		if err != nil {
			return domain.Draft{}, fmt.Errorf("failed to update news: %w", err)
		}
		draft.News = updated
	case domain.KindEvent:
		updated, err := s.repository.UpdateEvent(ctx, enrichment.ApplyToEvent(draft.Event))
		if err != nil {
			return domain.Draft{}, fmt.Errorf("failed to update event: %w", err)
		}
		draft.Event = updated
	default:
		return domain.Draft{}, fmt.Errorf("unsupported draft kind %q", draft.Kind)
	}

	log.Info("AI enrichment completed", slog.String("category", enrichment.Category), slog.String("tags", enrichment.Tags))
	return draft, nil
}

// Enrich отправляет черновик в AI и возвращает структурированный ответ.
func (s *Openrouter) Enrich(ctx context.Context, logger *slog.Logger, requestId uuid.UUID, draft domain.Draft) (dto.EnrichmentResponseSchema, error) {
	op := "openrouter.Enrich()"
	log := logger.With(
		slog.String("op", op),
		slog.String("requestID", requestId.String()),
	)
	log.Info("enriching draft with AI")

	var result dto.EnrichmentResponseSchema
	schema, err := jsonschema.GenerateSchemaForType(result)
	if err != nil {
		return result, fmt.Errorf("generate schema: %w", err)
	}

	req := openrouter.ChatCompletionRequest{
		Model:       s.cfg.ModelName(),
		MaxTokens:   s.cfg.BotConfig.AI.MaxTokens,
		Temperature: s.cfg.BotConfig.AI.Temperature,
		Messages: []openrouter.ChatCompletionMessage{
			openrouter.SystemMessage(s.cfg.SystemPrompt()),
			openrouter.UserMessage(buildPrompt(draft)),
		},
		ResponseFormat: &openrouter.ChatCompletionResponseFormat{
			Type: "json_schema",
			JSONSchema: &openrouter.ChatCompletionResponseFormatJSONSchema{
				Name:   "enrichmentResponseSchema",
				Strict: true,
				Schema: schema,
			},
		},
	}

	resp, err := s.complete(ctx, log, req)
	if err != nil {
		return result, err
	}
	if len(resp.Choices) == 0 {
		return result, errors.New("empty AI response")
	}

	text := resp.Choices[0].Message.Content.Text
	raw, err := extractJSON(text)
	if err == nil {
		err = json.Unmarshal(raw, &result)
	}
	if err != nil {
		log.Error("error unmarshal response", sl.Err(err), slog.String("response", text))
		return dto.EnrichmentResponseSchema{}, fmt.Errorf("unmarshal AI response: %w", err)
	}

	log.Debug("AI enrichment response", slog.Any("schema", result))
	return result, nil
}

// complete выполняет запрос, повторяя его при 429 и обрывах соединения.
func (s *Openrouter) complete(ctx context.Context, log *slog.Logger, req openrouter.ChatCompletionRequest) (openrouter.ChatCompletionResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= retryCount; attempt++ {
		select {
		case <-s.shutdownChannel:
			return openrouter.ChatCompletionResponse{}, ErrShuttingDown
		default:
		}

		resp, err := s.Client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !isRetryable(err) {
			return resp, fmt.Errorf("AI completion failed: %w", err)
		}
		lastErr = err
		log.Warn("AI completion failed, retrying", sl.Err(err), slog.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return openrouter.ChatCompletionResponse{}, fmt.Errorf("AI completion failed: %w", ctx.Err())
		case <-s.shutdownChannel:
			return openrouter.ChatCompletionResponse{}, ErrShuttingDown
		case <-time.After(retryDuration):
		}
	}
	return openrouter.ChatCompletionResponse{}, fmt.Errorf("AI completion failed after %d attempts: %w", retryCount, lastErr)
}

// buildPrompt формирует сообщение для AI с данными черновика.
func buildPrompt(draft domain.Draft) string {
	var sb strings.Builder

	switch draft.Kind {
	case domain.KindNews:
		n := draft.News
		sb.WriteString("Enrich the following K-pop news draft.\n")
		fmt.Fprintf(&sb, "Title: %s\n", n.Title)
		fmt.Fprintf(&sb, "Summary: %s\n", truncate(n.Summary, 2000))
		fmt.Fprintf(&sb, "Category: %s\n", n.Category)
		fmt.Fprintf(&sb, "Tags: %s\n", n.Tags)
		fmt.Fprintf(&sb, "Source: %s\n", n.SourceURL)
	case domain.KindEvent:
		e := draft.Event
		sb.WriteString("Enrich the following K-pop fan event draft.\n")
		fmt.Fprintf(&sb, "Title: %s\n", e.Title)
		fmt.Fprintf(&sb, "Description: %s\n", truncate(e.Description, 2000))
		fmt.Fprintf(&sb, "Venue: %s\n", e.Venue)
		fmt.Fprintf(&sb, "Address: %s\n", e.Address)
		fmt.Fprintf(&sb, "Date: %s\n", e.StartDate.Format("02.01.2006 15:04"))
		fmt.Fprintf(&sb, "Category: %s\n", e.Category)
		fmt.Fprintf(&sb, "Source: %s\n", e.SourceURL)
	}

	sb.WriteString(`
Tasks:
1. Write a neutral 1-2 sentence summary without scripts or markup
2. Pick one category
3. List artists, groups and fandoms mentioned as tags
4. Keep the title unless it is empty`)

	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// isRetryable сообщает, стоит ли повторить запрос: лимит запросов (429)
// или оборванное соединение. Клиент не отдаёт код ответа отдельно,
// поэтому 429 ищется в тексте ошибки.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "EOF")
}

// extractJSON достаёт первый JSON-объект из ответа модели.
// Модели иногда оборачивают его в ```json и дописывают текст после.
func extractJSON(text string) ([]byte, error) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return nil, errors.New("no JSON object in AI response")
	}
	var raw json.RawMessage
	if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Shutdown останавливает воркеры и закрывает EnrichedChan.
// После вызова новые задачи не принимаются.
func (s *Openrouter) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChannel) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit AI client: %w", ctx.Err())
	case <-done:
		s.closeOnce.Do(func() { close(s.EnrichedChan) })
		return nil
	}
}
