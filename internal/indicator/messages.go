package indicator

import (
	"strings"

	"github.com/rbright/aurora/internal/config"
)

type locale string

const (
	localeEnglish   locale = "en"
	localeUkrainian locale = "uk"
)

type messages struct {
	armed     string
	command   string
	timeout   string
	errorText string
}

// resolveLocale accepts a commands.language value or a LANG-style tag.
func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "uk") {
		return localeUkrainian
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeUkrainian:
		return messages{
			armed:     "Слухаю…",
			command:   "Виконую",
			timeout:   "Команду не почуто",
			errorText: "Помилка команди",
		}
	case localeEnglish:
		fallthrough
	default:
		return messages{
			armed:     "Listening…",
			command:   "Running",
			timeout:   "No command heard",
			errorText: "Command failed",
		}
	}
}

func (m messages) override(cfg config.IndicatorConfig) messages {
	if text := strings.TrimSpace(cfg.TextArmed); text != "" {
		m.armed = text
	}
	if text := strings.TrimSpace(cfg.TextTimeout); text != "" {
		m.timeout = text
	}
	if text := strings.TrimSpace(cfg.TextError); text != "" {
		m.errorText = text
	}
	return m
}
