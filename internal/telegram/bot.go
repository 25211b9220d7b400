package telegramBot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"thepup/internal/config"
	"thepup/internal/models/domain"
	"thepup/internal/utils/logger/sl"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

type Repository interface {
	CountDrafts(ctx context.Context) (map[domain.Kind]int, error)
	FindNewsByID(ctx context.Context, id uuid.UUID) (domain.News, error)
	UpdateNews(ctx context.Context, news domain.News) (domain.News, error)
	UpdateNewsStatus(ctx context.Context, id uuid.UUID, status domain.Status) error
	FindEventByID(ctx context.Context, id uuid.UUID) (domain.Event, error)
	UpdateEvent(ctx context.Context, event domain.Event) (domain.Event, error)
	UpdateEventStatus(ctx context.Context, id uuid.UUID, status domain.Status) error
}

// Invalidator сбрасывает кэш публичных ответов после публикации.
type Invalidator interface {
	Invalidate(ctx context.Context, kind domain.Kind) error
}

// UserState: состояние диалога с администратором.
type UserState struct {
	AwaitingFile bool
}

type Bot struct {
	log             *slog.Logger
	cfg             *config.Config
	tgbot           *tgbotapi.BotAPI
	repository      Repository
	cache           Invalidator
	mu              sync.Mutex
	UsersState      map[int64]UserState
	shutdownChannel chan struct{}
	shutdownOnce    sync.Once
}

func New(log *slog.Logger, cfg *config.Config, repository Repository, cache Invalidator) (*Bot, error) {
	op := "telegramBot.New()"

	tgbot, err := tgbotapi.NewBotAPI(cfg.BotConfig.TgbotApiToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("authorized on telegram", slog.String("account", tgbot.Self.UserName))

	return &Bot{
		log:             log,
		cfg:             cfg,
		tgbot:           tgbot,
		repository:      repository,
		cache:           cache,
		UsersState:      make(map[int64]UserState),
		shutdownChannel: make(chan struct{}),
	}, nil
}

// Start читает обновления long polling'ом до Shutdown.
func (bot *Bot) Start(timeout int) {
	op := "bot.Start()"
	log := bot.log.With(slog.String("op", op))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	updates := bot.tgbot.GetUpdatesChan(u)

	log.Info("telegram bot started")

	for {
		select {
		case <-bot.shutdownChannel:
			log.Info("telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			bot.handleUpdate(update)
		}
	}
}

func (bot *Bot) handleUpdate(update tgbotapi.Update) {
	op := "bot.handleUpdate()"
	log := bot.log.With(slog.String("op", op))

	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	switch {
	case update.CallbackQuery != nil:
		bot.handleCallbackQuery(&update)
	case update.Message == nil:
		return
	case update.Message.IsCommand():
		if err := bot.commandHandler(ctx, &update, bot.sendReplyMessage); err != nil {
			log.Error("command failed", sl.Err(err))
		}
	case update.Message.Document != nil:
		if err := bot.fileHandler(ctx, &update, bot.sendReplyMessage); err != nil {
			log.Error("file upload failed", sl.Err(err))
		}
	}
}

// isAdmin проверяет, что автор сообщения есть в списке администраторов бота.
func (bot *Bot) isAdmin(msg *tgbotapi.Message) (bool, error) {
	if msg == nil || msg.From == nil {
		return false, fmt.Errorf("message has no author")
	}
	return isAdminName(bot.cfg.BotConfig.Admins, msg.From.UserName), nil
}

func isAdminName(admins []string, userName string) bool {
	userName = strings.TrimPrefix(userName, "@")
	if userName == "" {
		return false
	}
	for _, a := range admins {
		if strings.EqualFold(strings.TrimPrefix(a, "@"), userName) {
			return true
		}
	}
	return false
}

func (bot *Bot) sendReplyMessage(inputMsg *tgbotapi.Message, replyText string) error {
	msg := tgbotapi.NewMessage(inputMsg.Chat.ID, replyText)
	msg.ReplyToMessageID = inputMsg.MessageID
	if _, err := bot.tgbot.Send(msg); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

func (bot *Bot) userState(userID int64) UserState {
	bot.mu.Lock()
	defer bot.mu.Unlock()
	return bot.UsersState[userID]
}

func (bot *Bot) setUserState(userID int64, state UserState) {
	bot.mu.Lock()
	defer bot.mu.Unlock()
	bot.UsersState[userID] = state
}

func (bot *Bot) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit telegram bot: %w", ctx.Err())
	default:
		bot.shutdownOnce.Do(func() {
			close(bot.shutdownChannel)
			bot.tgbot.StopReceivingUpdates()
		})
		return nil
	}
}
