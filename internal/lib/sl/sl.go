package sl

import (
	"log/slog"
	"strings"
)

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Secret keeps the first five characters of a credential and masks the rest.
func Secret(some string) slog.Attr {
	r := "***"
	if len(some) > 5 {
		r = some[:5] + "***"
	}
	if some == "" {
		r = "?"
	}
	return slog.String("secret", r)
}

func Module(mod string) slog.Attr {
	return slog.String("mod", mod)
}

// ParseLevel maps LOG_LEVEL values onto slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
