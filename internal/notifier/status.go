package notifier

import (
	"sync"
	"time"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/bot"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

// Status owns the single chat message that shows a job's progress.
// Progress edits are throttled by interval; other edits go out immediately.
type Status struct {
	bot      bot.Service
	chatID   int64
	replyTo  int
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	messageID int
	text      string
	lastEdit  time.Time
}

var _ QueueNotifier = (*Status)(nil)

func NewStatus(b bot.Service, chatID int64, replyTo int, interval time.Duration) *Status {
	return &Status{
		bot:      b,
		chatID:   chatID,
		replyTo:  replyTo,
		interval: interval,
		now:      time.Now,
	}
}

func (s *Status) MessageID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageID
}

// Set shows text, sending the status message first if it does not exist yet.
func (s *Status) Set(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(text)
}

// Progress shows text unless the previous edit is younger than the interval.
func (s *Status) Progress(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messageID != 0 && s.now().Sub(s.lastEdit) < s.interval {
		return
	}
	s.setLocked(text)
}

func (s *Status) setLocked(text string) {
	if text == s.text {
		return
	}
	log := logutils.Log.WithField("chat_id", s.chatID)

	if s.messageID == 0 {
		id, err := s.bot.SendMessage(s.chatID, text, s.replyTo)
		if err != nil {
			log.WithError(err).Warn("Failed to send status message")
			return
		}
		s.messageID = id
	} else if err := s.bot.EditMessage(s.chatID, s.messageID, text); err != nil {
		log.WithError(err).WithField("message_id", s.messageID).Debug("Failed to edit status message")
		return
	}
	s.text = text
	s.lastEdit = s.now()
}

func (s *Status) OnQueued(position int) {
	s.Set(lang.Get(lang.Queued, position))
}

func (s *Status) OnDropped() {
	s.Set(lang.Get(lang.ShuttingDown))
}

// OnStarted is a no-op: the pipeline sets the first working text itself.
func (*Status) OnStarted() {}
