package notification

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMaxLen is the Bot API limit for one message
const telegramMaxLen = 4096

type telegramSender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// TelegramChannel posts alerts to one chat
type TelegramChannel struct {
	bot    telegramSender
	chatID int64
}

// NewTelegramChannel authenticates the bot token and targets chatID
func NewTelegramChannel(token string, chatID int64) (*TelegramChannel, error) {
	bot, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramChannel{bot: bot, chatID: chatID}, nil
}

// NewTelegramChannelWithEndpoint is NewTelegramChannel against another Bot API server
func NewTelegramChannelWithEndpoint(token, endpoint string, chatID int64) (*TelegramChannel, error) {
	bot, err := tgbot.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, err
	}
	return &TelegramChannel{bot: bot, chatID: chatID}, nil
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := msg.Subject + "\n\n" + msg.Text
	if runes := []rune(text); len(runes) > telegramMaxLen {
		text = string(runes[:telegramMaxLen-1]) + "…"
	}

	if _, err := c.bot.Send(tgbot.NewMessage(c.chatID, text)); err != nil {
		return fmt.Errorf("telegram send to %d: %w", c.chatID, err)
	}
	return nil
}
