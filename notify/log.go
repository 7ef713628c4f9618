package notify

import (
	"context"
	"log/slog"
)

// LogGateway only logs what would have been sent. Used when no bot token is
// configured.
type LogGateway struct {
	logger *slog.Logger
}

func NewLogGateway(logger *slog.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Notify(ctx context.Context, chatID int64, text string) error {
	if chatID == 0 {
		return ErrNoChat
	}
	g.logger.InfoContext(ctx, "notification", slog.Int64("chat_id", chatID), slog.String("text", text))
	return nil
}
