package bot

import (
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

const (
	ActionTyping      = tgbotapi.ChatTyping
	ActionUploadPhoto = tgbotapi.ChatUploadPhoto
	ActionUploadVideo = tgbotapi.ChatUploadVideo

	pollTimeoutSeconds = 60
)

// Video is a local video file to upload.
type Video struct {
	Path              string
	Caption           string
	Duration          int
	SupportsStreaming bool
	ReplyTo           int
}

// Photo is a local image file to upload.
type Photo struct {
	Path    string
	Caption string
	ReplyTo int
}

// Service is the part of the Bot API the handlers and the pipeline use.
type Service interface {
	SendMessage(chatID int64, text string, replyTo int) (int, error)
	SendMarkdown(chatID int64, text string, replyTo int) (int, error)
	SendHTML(chatID int64, text string, replyTo int) (int, error)
	EditMessage(chatID int64, messageID int, text string) error
	SendChatAction(chatID int64, action string) error
	SendVideo(chatID int64, video Video) error
	SendPhoto(chatID int64, photo Photo) error
}

type Bot struct {
	Api *tgbotapi.BotAPI
}

var _ Service = (*Bot)(nil)

func NewBot(token string) (*Bot, error) {
	return NewBotWithEndpoint(token, tgbotapi.APIEndpoint, &http.Client{})
}

// NewBotWithEndpoint connects to a custom Bot API server, e.g. a local one with a higher upload limit.
func NewBotWithEndpoint(token, endpoint string, client *http.Client) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		logutils.Log.WithError(err).Error("Error creating bot")
		return nil, fmt.Errorf("error creating bot: %w", err)
	}
	logutils.Log.Infof("Authorized on account %s", api.Self.UserName)
	return &Bot{Api: api}, nil
}

func (b *Bot) Username() string {
	return b.Api.Self.UserName
}

func (b *Bot) SendMessage(chatID int64, text string, replyTo int) (int, error) {
	return b.send(chatID, text, "", replyTo)
}

func (b *Bot) SendMarkdown(chatID int64, text string, replyTo int) (int, error) {
	return b.send(chatID, text, tgbotapi.ModeMarkdown, replyTo)
}

func (b *Bot) SendHTML(chatID int64, text string, replyTo int) (int, error) {
	return b.send(chatID, text, tgbotapi.ModeHTML, replyTo)
}

func (b *Bot) send(chatID int64, text, parseMode string, replyTo int) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	msg.ReplyToMessageID = replyTo
	sent, err := b.Api.Send(msg)
	if err != nil {
		logutils.Log.WithError(err).WithField("chat_id", chatID).Error("Message not sent")
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text of a message. Telegram rejects edits that do not
// change anything; those are not errors here.
func (b *Bot) EditMessage(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.Api.Send(edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		return err
	}
	return nil
}

func (b *Bot) SendChatAction(chatID int64, action string) error {
	_, err := b.Api.Request(tgbotapi.NewChatAction(chatID, action))
	return err
}

func (b *Bot) SendVideo(chatID int64, video Video) error {
	cfg := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(video.Path))
	cfg.Caption = video.Caption
	cfg.Duration = video.Duration
	cfg.SupportsStreaming = video.SupportsStreaming
	cfg.ReplyToMessageID = video.ReplyTo
	if _, err := b.Api.Send(cfg); err != nil {
		return fmt.Errorf("send video %s: %w", video.Path, err)
	}
	return nil
}

func (b *Bot) SendPhoto(chatID int64, photo Photo) error {
	cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(photo.Path))
	cfg.Caption = photo.Caption
	cfg.ReplyToMessageID = photo.ReplyTo
	if _, err := b.Api.Send(cfg); err != nil {
		return fmt.Errorf("send photo %s: %w", photo.Path, err)
	}
	return nil
}

// DropPendingUpdates discards updates that queued up while the bot was offline.
func (b *Bot) DropPendingUpdates() error {
	_, err := b.Api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true})
	return err
}

// Updates starts long polling from offset 0.
func (b *Bot) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	return b.Api.GetUpdatesChan(u)
}

func (b *Bot) StopUpdates() {
	b.Api.StopReceivingUpdates()
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
