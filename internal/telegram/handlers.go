package telegramBot

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"thepup/internal/catalog"
	"thepup/internal/models/domain"
	"thepup/internal/utils/logger/sl"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

const (
	callbackTimeout = 10 * time.Second
	// rejectedTag помечает отклонённые черновики, они остаются в статусе draft
	rejectedTag    = "rejected"
	maxCaptionSize = 1024
	maxMessageSize = 4096
)

type sendFunction func(inputMsg *tgbotapi.Message, replyText string) error

func (bot *Bot) commandHandler(ctx context.Context, update *tgbotapi.Update, sendFunc sendFunction) error {
	op := "bot.commandHandle"
	log := bot.log.With(
		slog.String("op", op),
	)

	msg := update.Message

	if msg.From == nil {
		return fmt.Errorf("%s: message has no author", op)
	}

	if msg.Command() == "start" {
		replyText := fmt.Sprintf("Hi, %s! Send a command.", msg.From.UserName)
		if err := sendFunc(msg, replyText); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	isAdmin, err := bot.isAdmin(msg)
	log.Debug(msg.Command(),
		slog.String("user name", msg.From.UserName),
		slog.String("is admin", strconv.FormatBool(isAdmin)),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !isAdmin {
		return fmt.Errorf("%s: user %s is not admin", op, msg.From.UserName)
	}

	replyText := ""
	switch msg.Command() {
	case "drafts":
		counts, err := bot.repository.CountDrafts(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		replyText = formatDraftCounts(counts)

	case "setmodel":
		model := strings.TrimSpace(msg.CommandArguments())
		if model == "" {
			replyText = "Usage: /setmodel <model name>"
			break
		}

		if err := bot.cfg.SetModelName(model); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		log.Info("model changed", slog.String("model", model))
		replyText = "👍 Model changed 👍"

	case "getmodel":
		replyText = bot.cfg.ModelName()

	case "setprompt":
		bot.setUserState(msg.From.ID, UserState{AwaitingFile: true})
		replyText = "Attach a .md file with the system prompt"

	default:
		replyText = "I don't know this command"
	}

	if err := sendFunc(msg, replyText); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// formatDraftCounts: ответ на /drafts.
func formatDraftCounts(counts map[domain.Kind]int) string {
	var sb strings.Builder
	sb.WriteString("Drafts waiting for moderation:\n")
	for _, kind := range []domain.Kind{domain.KindNews, domain.KindEvent, domain.KindCafe} {
		fmt.Fprintf(&sb, "%s: %d\n", kind, counts[kind])
	}
	return sb.String()
}

// fileHandler принимает новый системный промпт после /setprompt.
func (bot *Bot) fileHandler(ctx context.Context, update *tgbotapi.Update, sendFunc sendFunction) error {
	op := "bot.fileHandler"
	log := bot.log.With(
		slog.String("op", op),
	)

	msg := update.Message
	isAdmin, err := bot.isAdmin(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !isAdmin {
		return fmt.Errorf("%s: user dont have admin permission", op)
	}

	if !bot.userState(msg.From.ID).AwaitingFile {
		if err := sendFunc(msg, "File not awaiting"); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: file not awaiting", op)
	}

	if strings.ToLower(filepath.Ext(msg.Document.FileName)) != ".md" {
		if err := sendFunc(msg, "wrong file extension. Please try again"); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: wrong file extension: %s", op, msg.Document.FileName)
	}

	fullFilePath := bot.cfg.PromptPath()
	if fullFilePath == "" {
		if err := sendFunc(msg, "Prompt file is not configured"); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: prompt file name is empty", op)
	}

	fileURL, err := bot.tgbot.GetFileDirectURL(msg.Document.FileID)
	if err != nil {
		_ = sendFunc(msg, "Cannot download file. Please try again")
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := downloadFile(ctx, fileURL, fullFilePath); err != nil {
		_ = sendFunc(msg, "Cannot save file. Please try again")
		return fmt.Errorf("%s: %w", op, err)
	}

	// перечитываем промпт, чтобы изменения применились без рестарта
	if err := bot.cfg.ReadPromptFromFile(); err != nil {
		_ = sendFunc(msg, "Prompt file saved. But config not updated. Please try again")
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("prompt file saved",
		slog.String("user name", msg.From.UserName),
		slog.String("file_path", fullFilePath),
	)

	bot.setUserState(msg.From.ID, UserState{})

	if err := sendFunc(msg, "👍 Prompt file saved. Config updated 👍"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func downloadFile(ctx context.Context, fileURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SendDraft отправляет черновик во все каналы модерации с кнопками publish/reject.
func (bot *Bot) SendDraft(draft domain.Draft) error {
	op := "bot.SendDraft()"
	log := bot.log.With(
		slog.String("op", op),
		slog.String("kind", string(draft.Kind)),
		slog.String("id", draft.ID().String()),
	)

	text := formatDraftMessage(draft)
	keyboard := approvalKeyboard(draft.Kind, draft.ID())
	image := draftImage(draft)

	sent := 0
	for _, channelID := range bot.cfg.BotConfig.ChannelIDs {
		var err error

		if image != "" && len([]rune(text)) <= maxCaptionSize {
			photo := tgbotapi.NewPhoto(channelID, tgbotapi.FileURL(image))
			photo.Caption = text
			photo.ParseMode = tgbotapi.ModeHTML
			photo.ReplyMarkup = keyboard
			_, err = bot.tgbot.Send(photo)
		} else {
			msg := tgbotapi.NewMessage(channelID, truncateRunes(text, maxMessageSize))
			msg.ParseMode = tgbotapi.ModeHTML
			msg.ReplyMarkup = keyboard
			_, err = bot.tgbot.Send(msg)
		}

		if err != nil {
			log.Error("failed to send draft to channel",
				slog.Int64("channelID", channelID),
				sl.Err(err),
			)
			continue
		}
		sent++
	}

	if sent == 0 && len(bot.cfg.BotConfig.ChannelIDs) > 0 {
		return fmt.Errorf("%s: draft was not delivered to any channel", op)
	}

	log.Debug("draft sent", slog.Int("channels", sent))
	return nil
}

func draftImage(draft domain.Draft) string {
	if draft.Kind == domain.KindEvent {
		return draft.Event.ImageURL
	}
	return draft.News.ImageURL
}

// formatDraftMessage форматирует черновик в HTML-текст для Telegram.
func formatDraftMessage(draft domain.Draft) string {
	var sb strings.Builder
	esc := html.EscapeString

	switch draft.Kind {
	case domain.KindEvent:
		e := draft.Event
		fmt.Fprintf(&sb, "🎤 <b>%s</b>\n\n", esc(e.Title))
		if e.Description != "" {
			fmt.Fprintf(&sb, "%s\n\n", esc(truncateRunes(e.Description, 600)))
		}
		if !e.StartDate.IsZero() {
			fmt.Fprintf(&sb, "📅 <b>Дата:</b> %s", e.StartDate.Format("02.01.2006 15:04"))
			if e.EndDate != nil && !e.EndDate.Equal(e.StartDate) {
				fmt.Fprintf(&sb, " – %s", e.EndDate.Format("02.01.2006 15:04"))
			}
			sb.WriteString("\n")
		}
		if e.Venue != "" || e.Address != "" {
			fmt.Fprintf(&sb, "📍 %s\n", esc(strings.Trim(e.Venue+", "+e.Address, ", ")))
		}
		if e.Category != "" {
			fmt.Fprintf(&sb, "🗂 %s\n", esc(e.Category))
		}
		if e.Tags != "" {
			fmt.Fprintf(&sb, "🏷 %s\n", esc(e.Tags))
		}
		if e.SourceURL != "" {
			fmt.Fprintf(&sb, "\n🔗 <a href=\"%s\">Источник</a>\n", esc(e.SourceURL))
		}

	default:
		n := draft.News
		fmt.Fprintf(&sb, "📰 <b>%s</b>\n\n", esc(n.Title))
		if n.Summary != "" {
			fmt.Fprintf(&sb, "%s\n\n", esc(truncateRunes(n.Summary, 600)))
		}
		if n.Author != "" {
			fmt.Fprintf(&sb, "✍️ %s\n", esc(n.Author))
		}
		if n.Category != "" {
			fmt.Fprintf(&sb, "🗂 %s\n", esc(n.Category))
		}
		if n.Tags != "" {
			fmt.Fprintf(&sb, "🏷 %s\n", esc(n.Tags))
		}
		if n.SourceURL != "" {
			fmt.Fprintf(&sb, "\n🔗 <a href=\"%s\">Источник</a>\n", esc(n.SourceURL))
		}
	}

	return sb.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// approvalKeyboard создаёт inline keyboard для модерации черновика.
func approvalKeyboard(kind domain.Kind, id uuid.UUID) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Publish", callbackData(actionPublish, kind, id)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", callbackData(actionReject, kind, id)),
		),
	)
}

type action string

const (
	actionPublish action = "publish"
	actionReject  action = "reject"
)

// callbackData кодирует действие как "<action>_<kind>_<uuid>".
func callbackData(a action, kind domain.Kind, id uuid.UUID) string {
	return fmt.Sprintf("%s_%s_%s", a, kind, id)
}

func parseCallbackData(data string) (action, domain.Kind, uuid.UUID, error) {
	rawAction, rest, ok := strings.Cut(data, "_")
	if !ok {
		return "", "", uuid.Nil, fmt.Errorf("malformed callback data %q", data)
	}

	a := action(rawAction)
	if a != actionPublish && a != actionReject {
		return "", "", uuid.Nil, fmt.Errorf("unknown action %q", rawAction)
	}

	rawKind, rawID, ok := strings.Cut(rest, "_")
	if !ok {
		return "", "", uuid.Nil, fmt.Errorf("malformed callback data %q", data)
	}

	kind := domain.Kind(rawKind)
	if kind != domain.KindNews && kind != domain.KindEvent {
		return "", "", uuid.Nil, fmt.Errorf("unsupported kind %q", rawKind)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return "", "", uuid.Nil, fmt.Errorf("bad id: %w", err)
	}

	return a, kind, id, nil
}

func (bot *Bot) handleCallbackQuery(update *tgbotapi.Update) {
	op := "bot.handleCallbackQuery"
	log := bot.log.With(
		slog.String("op", op),
	)

	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	if callback.From == nil || !isAdminName(bot.cfg.BotConfig.Admins, callback.From.UserName) {
		bot.sendCallbackResponse(callback, "⛔ Только для администраторов")
		return
	}

	a, kind, id, err := parseCallbackData(callback.Data)
	if err != nil {
		log.Warn("unknown callback", slog.String("data", callback.Data), sl.Err(err))
		// скрываем часики у кнопки
		_, _ = bot.tgbot.Request(tgbotapi.NewCallback(callback.ID, ""))
		return
	}

	log = log.With(
		slog.String("action", string(a)),
		slog.String("kind", string(kind)),
		slog.String("id", id.String()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	switch a {
	case actionPublish:
		err = bot.publish(ctx, kind, id)
	case actionReject:
		err = bot.reject(ctx, kind, id)
	}
	if err != nil {
		log.Error("moderation failed", sl.Err(err))
		bot.sendCallbackResponse(callback, "❌ Ошибка модерации")
		return
	}

	log.Info("draft moderated")
	if a == actionPublish {
		bot.sendCallbackResponse(callback, "✅ Опубликовано")
	} else {
		bot.sendCallbackResponse(callback, "❌ Отклонено")
	}
	bot.removeApprovalKeyboard(callback)
}

func (bot *Bot) publish(ctx context.Context, kind domain.Kind, id uuid.UUID) error {
	var err error
	switch kind {
	case domain.KindEvent:
		err = bot.repository.UpdateEventStatus(ctx, id, domain.StatusPublished)
	default:
		err = bot.repository.UpdateNewsStatus(ctx, id, domain.StatusPublished)
	}
	if err != nil {
		return err
	}

	if bot.cache != nil {
		if err := bot.cache.Invalidate(ctx, kind); err != nil {
			bot.log.Warn("cache invalidation failed", slog.String("kind", string(kind)), sl.Err(err))
		}
	}
	return nil
}

// reject оставляет запись черновиком и помечает её тегом rejected.
func (bot *Bot) reject(ctx context.Context, kind domain.Kind, id uuid.UUID) error {
	switch kind {
	case domain.KindEvent:
		event, err := bot.repository.FindEventByID(ctx, id)
		if err != nil {
			return err
		}
		event.Status = domain.StatusDraft
		event.Tags = catalog.JoinTags(append(catalog.SplitTags(event.Tags), rejectedTag))
		_, err = bot.repository.UpdateEvent(ctx, event)
		return err
	default:
		news, err := bot.repository.FindNewsByID(ctx, id)
		if err != nil {
			return err
		}
		news.Status = domain.StatusDraft
		news.Tags = catalog.JoinTags(append(catalog.SplitTags(news.Tags), rejectedTag))
		_, err = bot.repository.UpdateNews(ctx, news)
		return err
	}
}

// sendCallbackResponse отправляет всплывающее уведомление в ответ на callback.
func (bot *Bot) sendCallbackResponse(callback *tgbotapi.CallbackQuery, text string) {
	callbackConfig := tgbotapi.NewCallback(callback.ID, text)
	callbackConfig.ShowAlert = true
	_, _ = bot.tgbot.Request(callbackConfig)
}

// removeApprovalKeyboard удаляет inline keyboard из сообщения после модерации.
func (bot *Bot) removeApprovalKeyboard(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}

	editMsg := tgbotapi.NewEditMessageReplyMarkup(
		callback.Message.Chat.ID,
		callback.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	_, _ = bot.tgbot.Send(editMsg)
}
