package lang

import (
	"fmt"
	"sync/atomic"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/logutils"
)

const defaultLang = "en"

var current atomic.Value

func init() {
	current.Store(defaultLang)
}

func Setup(lang string) {
	if lang == "" {
		lang = defaultLang
	}
	current.Store(lang)
}

func Current() string {
	return current.Load().(string)
}

// Get renders a catalog message in the configured language, falling back to English.
func Get(id MessageID, args ...any) string {
	m, ok := messages[id]
	if !ok {
		logutils.Log.WithField("message_id", id).Warn("Message not found")
		return string(id)
	}
	msg, ok := m[Current()]
	if !ok {
		msg = m[defaultLang]
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Has reports whether id exists in the catalog.
func Has(id string) bool {
	_, ok := messages[MessageID(id)]
	return ok
}
