package testutils

import (
	"sync"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/bot"
)

// MockMessage captures a single message sent by MockBot.
type MockMessage struct {
	ID        int
	ChatID    int64
	Text      string
	ParseMode string
	ReplyTo   int
}

// MockEdit captures a single edit of a message text.
type MockEdit struct {
	ChatID    int64
	MessageID int
	Text      string
}

// MockBot implements bot.Service for testing. It is safe for concurrent use;
// read captured calls through the accessor methods.
type MockBot struct {
	mu       sync.Mutex
	nextID   int
	messages []MockMessage
	edits    []MockEdit
	actions  []string
	videos   []bot.Video
	photos   []bot.Photo

	// SendVideoError, if set, is returned by SendVideo.
	SendVideoError error
	// SendPhotoError, if set, decides the result of each SendPhoto call.
	SendPhotoError func(photo bot.Photo) error
}

var _ bot.Service = (*MockBot)(nil)

func (m *MockBot) SendMessage(chatID int64, text string, replyTo int) (int, error) {
	return m.record(chatID, text, "", replyTo), nil
}

func (m *MockBot) SendMarkdown(chatID int64, text string, replyTo int) (int, error) {
	return m.record(chatID, text, "Markdown", replyTo), nil
}

func (m *MockBot) SendHTML(chatID int64, text string, replyTo int) (int, error) {
	return m.record(chatID, text, "HTML", replyTo), nil
}

func (m *MockBot) record(chatID int64, text, parseMode string, replyTo int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.messages = append(m.messages, MockMessage{
		ID:        m.nextID,
		ChatID:    chatID,
		Text:      text,
		ParseMode: parseMode,
		ReplyTo:   replyTo,
	})
	return m.nextID
}

func (m *MockBot) EditMessage(chatID int64, messageID int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, MockEdit{ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

func (m *MockBot) SendChatAction(_ int64, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
	return nil
}

func (m *MockBot) SendVideo(_ int64, video bot.Video) error {
	if m.SendVideoError != nil {
		return m.SendVideoError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos = append(m.videos, video)
	return nil
}

func (m *MockBot) SendPhoto(_ int64, photo bot.Photo) error {
	if m.SendPhotoError != nil {
		if err := m.SendPhotoError(photo); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos = append(m.photos, photo)
	return nil
}

func (m *MockBot) Messages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockMessage(nil), m.messages...)
}

func (m *MockBot) Edits() []MockEdit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockEdit(nil), m.edits...)
}

func (m *MockBot) Videos() []bot.Video {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bot.Video(nil), m.videos...)
}

func (m *MockBot) Photos() []bot.Photo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bot.Photo(nil), m.photos...)
}

func (m *MockBot) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.actions...)
}

// GetLastMessage returns the most recently sent message, or nil if none.
func (m *MockBot) GetLastMessage() *MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	msg := m.messages[len(m.messages)-1]
	return &msg
}

// LastText is the text of the latest edit, or of the latest message when nothing was edited after it.
func (m *MockBot) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edits) > 0 {
		return m.edits[len(m.edits)-1].Text
	}
	if len(m.messages) > 0 {
		return m.messages[len(m.messages)-1].Text
	}
	return ""
}

// ClearMessages resets the captured calls.
func (m *MockBot) ClearMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	m.edits = nil
	m.actions = nil
	m.videos = nil
	m.photos = nil
}
