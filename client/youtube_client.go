package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// ErrVideoNotFound is returned when the API has no video for the requested id.
var ErrVideoNotFound = errors.New("video not found")

const (
	ratingLike                = "like"
	reasonSubscriptionDup     = "subscriptionDuplicate"
	youtubeRequestTimeout     = 30 * time.Second
	youtubeChannelResourceKey = "youtube#channel"
)

// YouTubeDataClient performs the account actions (rating videos, subscribing to channels) that
// need an authorised user through the YouTube Data API.
type YouTubeDataClient struct {
	service           *ytapi.Service
	httpClient        *http.Client
	clientSecretsFile string
	tokenFile         string
}

// NewYouTubeDataClient creates a client that authorises with the given client secrets and
// cached token files. Call Connect before use.
func NewYouTubeDataClient(clientSecretsFile, tokenFile string) (*YouTubeDataClient, error) {
	if clientSecretsFile == "" {
		return nil, fmt.Errorf("YouTube client secrets file is required")
	}
	if tokenFile == "" {
		return nil, fmt.Errorf("YouTube token file is required")
	}
	return &YouTubeDataClient{
		clientSecretsFile: clientSecretsFile,
		tokenFile:         tokenFile,
	}, nil
}

// newYouTubeDataClientWithService wraps an already built service.
func newYouTubeDataClientWithService(service *ytapi.Service) *YouTubeDataClient {
	return &YouTubeDataClient{service: service}
}

// Connect loads the OAuth configuration and cached token and builds the API service.
func (c *YouTubeDataClient) Connect(ctx context.Context) error {
	log.Info().Msg("Connecting to YouTube API")

	oauthCfg, err := LoadOAuthConfig(c.clientSecretsFile)
	if err != nil {
		return err
	}
	ts, err := TokenSource(ctx, oauthCfg, c.tokenFile)
	if err != nil {
		return err
	}

	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = youtubeRequestTimeout

	service, err := ytapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create YouTube service")
		return fmt.Errorf("failed to create YouTube service: %w", err)
	}

	c.service = service
	c.httpClient = httpClient
	log.Info().Msg("Connected to YouTube API successfully")
	return nil
}

// Disconnect drops the API service and releases idle connections. Later calls fail with
// "YouTube client not connected" until Connect is called again.
func (c *YouTubeDataClient) Disconnect(ctx context.Context) error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
		c.httpClient = nil
	}
	c.service = nil
	log.Debug().Msg("Disconnected from YouTube API")
	return nil
}

// LikeVideo rates the video with "like" on behalf of the authorised account.
func (c *YouTubeDataClient) LikeVideo(ctx context.Context, videoID string) error {
	if c.service == nil {
		return fmt.Errorf("YouTube client not connected")
	}

	log.Debug().Str("video_id", videoID).Msg("Liking YouTube video")
	if err := c.service.Videos.Rate(videoID, ratingLike).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to like video %s: %w", videoID, err)
	}
	return nil
}

// ChannelIDForVideo looks up the id of the channel that published the video.
func (c *YouTubeDataClient) ChannelIDForVideo(ctx context.Context, videoID string) (string, error) {
	if c.service == nil {
		return "", fmt.Errorf("YouTube client not connected")
	}

	resp, err := c.service.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch video %s: %w", videoID, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return "", fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}

	channelID := resp.Items[0].Snippet.ChannelId
	if channelID == "" {
		return "", fmt.Errorf("video %s has no channel id", videoID)
	}
	return channelID, nil
}

// SubscribeToChannel subscribes the authorised account to the channel. Being subscribed
// already counts as success.
func (c *YouTubeDataClient) SubscribeToChannel(ctx context.Context, channelID string) error {
	if c.service == nil {
		return fmt.Errorf("YouTube client not connected")
	}

	sub := &ytapi.Subscription{
		Snippet: &ytapi.SubscriptionSnippet{
			ResourceId: &ytapi.ResourceId{
				Kind:      youtubeChannelResourceKey,
				ChannelId: channelID,
			},
		},
	}

	log.Debug().Str("channel_id", channelID).Msg("Subscribing to YouTube channel")
	_, err := c.service.Subscriptions.Insert([]string{"snippet"}, sub).Context(ctx).Do()
	if err != nil {
		if isSubscriptionDuplicate(err) {
			log.Info().Str("channel_id", channelID).Msg("Already subscribed to channel")
			return nil
		}
		return fmt.Errorf("failed to subscribe to channel %s: %w", channelID, err)
	}
	return nil
}

func isSubscriptionDuplicate(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, item := range apiErr.Errors {
		if item.Reason == reasonSubscriptionDup {
			return true
		}
	}
	return false
}
