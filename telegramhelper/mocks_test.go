package telegramhelper

import (
	"github.com/researchaccelerator-hub/telegram-job/config"
	"github.com/stretchr/testify/mock"
	"github.com/zelenin/go-tdlib/client"
)

// MockTDLibClient is a mock implementation of TDLibClient
type MockTDLibClient struct {
	mock.Mock
}

func (m *MockTDLibClient) GetChat(req *client.GetChatRequest) (*client.Chat, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Chat), args.Error(1)
}

func (m *MockTDLibClient) GetChatHistory(req *client.GetChatHistoryRequest) (*client.Messages, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Messages), args.Error(1)
}

func (m *MockTDLibClient) SendMessage(req *client.SendMessageRequest) (*client.Message, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Message), args.Error(1)
}

func (m *MockTDLibClient) GetListener() *client.Listener {
	args := m.Called()
	return args.Get(0).(*client.Listener)
}

func (m *MockTDLibClient) GetMe() (*client.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.User), args.Error(1)
}

func (m *MockTDLibClient) Close() (*client.Ok, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Ok), args.Error(1)
}

// MockTelegramService is a mock implementation of TelegramService
type MockTelegramService struct {
	mock.Mock
}

func (m *MockTelegramService) InitializeClient(cfg config.Config) (TDLibClient, error) {
	args := m.Called(cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(TDLibClient), args.Error(1)
}

func (m *MockTelegramService) GetMe(libClient TDLibClient) (*client.User, error) {
	args := m.Called(libClient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.User), args.Error(1)
}

func textMessage(id int64, text string) *client.Message {
	return &client.Message{Id: id, Content: &client.MessageText{Text: &client.FormattedText{Text: text}}}
}

func historyFrom(fromID int64) interface{} {
	return mock.MatchedBy(func(req *client.GetChatHistoryRequest) bool {
		return req.FromMessageId == fromID
	})
}
