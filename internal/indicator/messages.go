package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
	localeArabic  locale = "ar"
)

type messages struct {
	detected string
}

func messagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "ar") {
		return localeArabic
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeArabic:
		return messages{detected: "تم التعرف"}
	default:
		return messages{detected: "Detected"}
	}
}
