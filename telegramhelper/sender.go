package telegramhelper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zelenin/go-tdlib/client"
)

// DefaultSendTimeout bounds the wait for Telegram to confirm an upload.
const DefaultSendTimeout = 2 * time.Minute

// TDLibSender uploads photos as the logged-in user.
type TDLibSender struct {
	client  TDLibClient
	timeout time.Duration
}

// NewTDLibSender returns a sender over c. A non-positive timeout means DefaultSendTimeout.
func NewTDLibSender(c TDLibClient, timeout time.Duration) *TDLibSender {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &TDLibSender{client: c, timeout: timeout}
}

// SendPhoto uploads the image at path to chatID with caption. TDLib answers SendMessage with
// a pending message; the upload has only happened once the matching
// UpdateMessageSendSucceeded arrives.
func (s *TDLibSender) SendPhoto(ctx context.Context, chatID int64, path, caption string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	if _, err := s.client.GetChat(&client.GetChatRequest{ChatId: chatID}); err != nil {
		return fmt.Errorf("failed to open chat %d: %w", chatID, err)
	}

	// Subscribe before sending so the confirmation cannot be missed.
	listener := s.client.GetListener()
	defer listener.Close()

	msg, err := s.client.SendMessage(&client.SendMessageRequest{
		ChatId: chatID,
		InputMessageContent: &client.InputMessagePhoto{
			Photo:   &client.InputFileLocal{Path: abs},
			Caption: &client.FormattedText{Text: caption},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send photo to %d: %w", chatID, err)
	}
	if msg.SendingState == nil {
		return nil
	}

	log.Debug().Int64("chat_id", chatID).Int64("message_id", msg.Id).Msg("Waiting for upload confirmation")
	return s.awaitDelivery(ctx, listener, msg.Id)
}

func (s *TDLibSender) awaitDelivery(ctx context.Context, listener *client.Listener, pendingID int64) error {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("no delivery confirmation for message %d after %s", pendingID, s.timeout)
		case update, ok := <-listener.Updates:
			if !ok {
				return errors.New("update listener closed before delivery confirmation")
			}
			switch u := update.(type) {
			case *client.UpdateMessageSendSucceeded:
				if u.OldMessageId == pendingID {
					return nil
				}
			case *client.UpdateMessageSendFailed:
				if u.OldMessageId == pendingID {
					return fmt.Errorf("telegram rejected message %d", pendingID)
				}
			}
		}
	}
}
