// Package notify delivers one-line notifications to users' chats.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var ErrNoChat = errors.New("recipient has no chat id")

// TelegramGateway sends plain-text messages through the Bot API.
type TelegramGateway struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramGateway authenticates the bot token. endpoint may be empty to
// use the public Bot API. timeout bounds each HTTP call, including sends that
// outlive a cancelled Notify.
func NewTelegramGateway(token, endpoint string, timeout time.Duration) (*TelegramGateway, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	return &TelegramGateway{bot: bot}, nil
}

func (g *TelegramGateway) BotName() string {
	return g.bot.Self.UserName
}

// Notify sends text to chatID and returns when the Bot API answers or ctx is
// done, whichever comes first. The Bot API client takes no context, so a send
// abandoned by ctx finishes in the background under the client timeout.
func (g *TelegramGateway) Notify(ctx context.Context, chatID int64, text string) error {
	if chatID == 0 {
		return ErrNoChat
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	result := make(chan error, 1)
	go func() {
		_, err := g.bot.Send(tgbotapi.NewMessage(chatID, text))
		result <- err
	}()

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("telegram send to %d: %w", chatID, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram send to %d: %w", chatID, ctx.Err())
	}
}
