package telegramhelper

import (
	"github.com/rs/zerolog/log"
	"github.com/zelenin/go-tdlib/client"
)

// TDLibClient is the subset of *client.Client used by the message reader and the photo
// sender. Keeping it this narrow lets tests replace TDLib with a testify mock and keeps the
// rest of the job independent of the cgo bindings.
//
// The interface provides methods for:
// - Opening a chat and paging through its history
// - Sending a message and listening for its delivery updates
// - Identifying the authorised account and closing the session
type TDLibClient interface {
	GetChat(req *client.GetChatRequest) (*client.Chat, error)
	GetChatHistory(req *client.GetChatHistoryRequest) (*client.Messages, error)
	SendMessage(req *client.SendMessageRequest) (*client.Message, error)
	GetListener() *client.Listener
	GetMe() (*client.User, error)
	Close() (*client.Ok, error)
}

var _ TDLibClient = (*client.Client)(nil)

// CloseClient closes c and logs a failure. A nil client is ignored.
func CloseClient(c TDLibClient) {
	if c == nil {
		return
	}
	if _, err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close TDLib client")
	}
}
