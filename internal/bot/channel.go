/**
 * @description
 * Telegram implementation of the messaging channel. Converts the domain
 * keyboard shape into Telegram inline keyboard markup and performs the
 * actual sends and edits.
 */
package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/focusly/coach-service/internal/domain"
)

// Channel sends messages through the Telegram Bot API.
type Channel struct {
	api *tgbotapi.BotAPI
}

// NewChannel wraps a bot API client as a messaging channel.
func NewChannel(api *tgbotapi.BotAPI) *Channel {
	return &Channel{api: api}
}

// SendMessage sends text to a user, attaching an inline keyboard when given.
func (c *Channel) SendMessage(ctx context.Context, userID int64, text string, keyboard [][]domain.Button) error {
	msg := tgbotapi.NewMessage(userID, text)
	if len(keyboard) > 0 {
		msg.ReplyMarkup = toInlineKeyboard(keyboard)
	}
	_, err := c.api.Send(msg)
	return err
}

func toInlineKeyboard(rows [][]domain.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Token))
		}
		out = append(out, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}
