package audit

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ConsoleSink writes entries as structured slog records. It has no
// read-back, so Log.Query returns nothing when it is configured.
type ConsoleSink struct {
	logger *slog.Logger
}

// NewConsoleSink logs through logger; nil means a JSON handler on stdout.
func NewConsoleSink(logger *slog.Logger) *ConsoleSink {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return &ConsoleSink{logger: logger}
}

// NewConsoleSinkWriter writes JSON records to w.
func NewConsoleSinkWriter(w io.Writer) *ConsoleSink {
	return &ConsoleSink{logger: slog.New(slog.NewJSONHandler(w, nil))}
}

// Write implements Sink.
func (s *ConsoleSink) Write(ctx context.Context, e Entry) error {
	attrs := []slog.Attr{
		slog.String("id", e.ID),
		slog.Time("timestamp", e.Timestamp),
		slog.String("level", string(e.Level)),
		slog.String("eventType", string(e.EventType)),
		slog.String("action", e.Action),
		slog.Bool("success", e.Success),
	}
	if e.IPAddress != "" {
		attrs = append(attrs, slog.String("ipAddress", e.IPAddress))
	}
	if e.UserAgent != "" {
		attrs = append(attrs, slog.String("userAgent", e.UserAgent))
	}
	if e.UserID != "" {
		attrs = append(attrs, slog.String("userId", e.UserID))
	}
	if e.Email != "" {
		attrs = append(attrs, slog.String("email", e.Email))
	}
	if e.Resource != "" {
		attrs = append(attrs, slog.String("resource", e.Resource))
	}
	if len(e.Details) > 0 {
		attrs = append(attrs, slog.Any("details", e.Details))
	}
	attrs = append(attrs, slog.String("prevHash", e.PrevHash), slog.String("hash", e.Hash))

	s.logger.LogAttrs(ctx, slogLevel(e.Level), "security_audit", attrs...)
	return nil
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelWarning:
		return slog.LevelWarn
	case LevelCritical:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
