// Package telegram sends notifications through a telegram bot.
package telegram

import (
	"fmt"
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/rs/zerolog/log"
)

const (
	telegramBotToken = "TELEGRAM_BOT_TOKEN"
	telegramChatID   = "TELEGRAM_CHAT_ID"
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot is the telegram notifier.
// Send failures are logged and swallowed, a dropped message must never
// take a trading operation down with it.
type Bot struct {
	bot    botAPI
	chatID int64
}

// NewBot creates a bot from the environment configuration.
func NewBot() (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(os.Getenv(telegramBotToken))
	if err != nil {
		return nil, fmt.Errorf("error creating bot: %w", err)
	}
	bot.Buffer = 0
	chatID, err := strconv.ParseInt(os.Getenv(telegramChatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing chat ID: %w", err)
	}
	return &Bot{
		bot:    bot,
		chatID: chatID,
	}, nil
}

func (b *Bot) Send(message string) {
	msg := tgbotapi.NewMessage(b.chatID, message)
	msg.ParseMode = "Markdown"
	if _, err := b.bot.Send(msg); err != nil {
		log.Error().Err(err).Str("message", message).Msg("could not send notification")
	}
}
