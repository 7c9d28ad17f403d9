package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramMaxMessageLength is the Bot API limit for one text message.
const TelegramMaxMessageLength = 4096

type TelegramAdapter struct {
	token         string
	updateTimeout int
	eventHandler  EventHandler
	bot           *tgbotapi.BotAPI
	botUserName   string
	updates       tgbotapi.UpdatesChannel
}

func NewTelegramAdapter(token string, eventHandler EventHandler, updateTimeout int) *TelegramAdapter {
	if updateTimeout <= 0 {
		updateTimeout = config.DefaultTelegramUpdateTimeout
	}
	return &TelegramAdapter{
		token:         token,
		updateTimeout: updateTimeout,
		eventHandler:  eventHandler,
	}
}

func (t *TelegramAdapter) Name() string {
	return "telegram"
}

func (t *TelegramAdapter) MaxMessageLength() int {
	return TelegramMaxMessageLength
}

func (t *TelegramAdapter) Start(ctx context.Context) error {
	var err error
	t.bot, err = tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return errors.Wrap(err, "failed to init telegram bot")
	}
	t.botUserName = t.bot.Self.UserName

	slog.Info("Telegram Adapter started", "user", t.botUserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.updateTimeout

	t.updates = t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-t.updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, update)
			}
		}
	}()

	return nil
}

func (t *TelegramAdapter) Stop(ctx context.Context) error {
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	return nil
}

func (t *TelegramAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}

	text, ok := t.addressedText(msg)
	if !ok {
		return
	}

	displayName := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	userName := msg.From.UserName
	if userName == "" {
		userName = displayName
	}

	metadata := map[string]string{
		MetaUserID:      strconv.FormatInt(msg.From.ID, 10),
		MetaUserName:    userName,
		MetaDisplayName: displayName,
		MetaEventID:     strconv.Itoa(update.UpdateID),
		"msg_id":        strconv.Itoa(msg.MessageID),
		"chat_id":       strconv.FormatInt(msg.Chat.ID, 10),
		"chat_type":     msg.Chat.Type,
	}

	if t.eventHandler != nil {
		sessionID := strconv.FormatInt(msg.Chat.ID, 10)
		if err := t.eventHandler(ctx, "telegram", "user_message", sessionID, text, metadata); err != nil {
			slog.Error("Failed to handle Telegram event", "error", err)
		}
	}
}

// addressedText returns the message text when the bot should answer it:
// every private message, and group messages that mention or reply to the bot.
// The mention is stripped.
func (t *TelegramAdapter) addressedText(msg *tgbotapi.Message) (string, bool) {
	text := strings.TrimSpace(msg.Text)
	if text == "" || msg.Chat == nil {
		return "", false
	}
	if msg.Chat.IsPrivate() {
		return stripTelegramMention(text, t.botUserName), true
	}
	if t.botUserName == "" {
		return "", false
	}

	mention := "@" + strings.ToLower(t.botUserName)
	if strings.Contains(strings.ToLower(text), mention) {
		return stripTelegramMention(text, t.botUserName), true
	}
	if reply := msg.ReplyToMessage; reply != nil && reply.From != nil && strings.EqualFold(reply.From.UserName, t.botUserName) {
		return text, true
	}
	return "", false
}

func stripTelegramMention(text, botUserName string) string {
	if botUserName == "" {
		return text
	}
	mention := regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(botUserName) + `\b`)
	return strings.Join(strings.Fields(mention.ReplaceAllString(text, " ")), " ")
}

// Send sends a reply back to Telegram
func (t *TelegramAdapter) Send(ctx context.Context, sessionID string, content string) error {
	if t.bot == nil {
		return errors.Transient("Telegram bot not initialized")
	}
	chatID, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return errors.InvalidInput(fmt.Sprintf("invalid telegram session ID: %v", err))
	}

	msg := tgbotapi.NewMessage(chatID, content)
	_, err = t.bot.Send(msg)
	if err != nil {
		return errors.Wrap(errors.Transient(err.Error()), "failed to send telegram message")
	}

	slog.Debug("Telegram message sent", "chat_id", sessionID)
	return nil
}

func (t *TelegramAdapter) Health(ctx context.Context) error {
	if t.bot == nil {
		return errors.Transient("Telegram bot not initialized")
	}

	_, err := t.bot.GetMe()
	if err != nil {
		return errors.Transient("Telegram connection failed: " + err.Error())
	}

	return nil
}
