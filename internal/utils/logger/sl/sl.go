package sl

import (
	"log/slog"
)

// Err возвращает атрибут slog с текстом ошибки.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
