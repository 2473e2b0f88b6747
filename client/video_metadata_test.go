package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingTransport struct {
	calls int
}

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls++
	return nil, errors.New("network unreachable")
}

func TestVideoMetadataResolver_RequestFailure(t *testing.T) {
	transport := &failingTransport{}
	resolver := NewVideoMetadataResolver(&http.Client{Transport: transport})

	channelID, err := resolver.ChannelIDForVideo(context.Background(), "dQw4w9WgXcQ")

	require.Error(t, err)
	assert.Empty(t, channelID)
	assert.Contains(t, err.Error(), "failed to read video metadata for dQw4w9WgXcQ")
	assert.Positive(t, transport.calls)
}
