package telegramhelper

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// BotSender uploads photos through the Bot API. The bot must be a member of the destination
// chat.
type BotSender struct {
	bot *tgbotapi.BotAPI
}

// NewBotSender authenticates the bot token.
func NewBotSender(token string) (*BotSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot client: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("Bot authorized")
	return &BotSender{bot: bot}, nil
}

// NewBotSenderWithAPI wraps an existing bot client.
func NewBotSenderWithAPI(bot *tgbotapi.BotAPI) *BotSender {
	return &BotSender{bot: bot}
}

// SendPhoto uploads the image at path to chatID with caption.
func (s *BotSender) SendPhoto(ctx context.Context, chatID int64, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	if _, err := s.bot.Send(photo); err != nil {
		return fmt.Errorf("failed to send photo to %d: %w", chatID, err)
	}
	return nil
}
