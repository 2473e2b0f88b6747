package telegramhelper

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zelenin/go-tdlib/client"
)

// historyPageSize is the largest page TDLib returns from GetChatHistory.
const historyPageSize = 100

// MessageReader reads recent message texts from a chat.
type MessageReader struct {
	client TDLibClient
}

// NewMessageReader returns a reader over c.
func NewMessageReader(c TDLibClient) *MessageReader {
	return &MessageReader{client: c}
}

// FetchMessages scans the newest limit messages of the chat and returns their texts, newest
// first. Messages without text (stickers, uncaptioned media, service messages) count toward
// limit but contribute no text, so the result can be shorter than limit or empty.
func (r *MessageReader) FetchMessages(ctx context.Context, chatID int64, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}

	chat, err := r.client.GetChat(&client.GetChatRequest{ChatId: chatID})
	if err != nil {
		return nil, fmt.Errorf("failed to open chat %d: %w", chatID, err)
	}
	log.Info().Int64("chat_id", chatID).Str("title", chat.Title).Int("limit", limit).Msg("Fetching messages")

	texts := make([]string, 0, limit)
	scanned := 0
	var fromMessageID int64
	for scanned < limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageSize := limit - scanned
		if pageSize > historyPageSize {
			pageSize = historyPageSize
		}
		history, err := r.client.GetChatHistory(&client.GetChatHistoryRequest{
			ChatId:        chatID,
			FromMessageId: fromMessageID,
			Limit:         int32(pageSize),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get chat history for %d: %w", chatID, err)
		}
		if history == nil || len(history.Messages) == 0 {
			break
		}

		for _, msg := range history.Messages {
			if msg == nil {
				continue
			}
			scanned++
			if text := MessageText(msg); text != "" {
				texts = append(texts, text)
			}
			if scanned == limit {
				break
			}
		}

		oldest := history.Messages[len(history.Messages)-1]
		if oldest == nil || oldest.Id == fromMessageID {
			break
		}
		fromMessageID = oldest.Id
	}

	log.Info().Int("scanned", scanned).Int("count", len(texts)).Int64("chat_id", chatID).Msg("Fetched message texts")
	return texts, nil
}

// MessageText returns the text of a text message or the caption of a media message.
func MessageText(msg *client.Message) string {
	if msg == nil || msg.Content == nil {
		return ""
	}

	var ft *client.FormattedText
	switch content := msg.Content.(type) {
	case *client.MessageText:
		ft = content.Text
	case *client.MessagePhoto:
		ft = content.Caption
	case *client.MessageVideo:
		ft = content.Caption
	case *client.MessageDocument:
		ft = content.Caption
	case *client.MessageAnimation:
		ft = content.Caption
	case *client.MessageAudio:
		ft = content.Caption
	case *client.MessageVoiceNote:
		ft = content.Caption
	}

	if ft == nil {
		return ""
	}
	return ft.Text
}
