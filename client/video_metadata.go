package client

import (
	"context"
	"fmt"
	"net/http"

	ytdl "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog/log"
)

// VideoMetadataResolver reads public video metadata from the watch page without API
// credentials. It is the fallback when the Data API cannot name a video's channel.
type VideoMetadataResolver struct {
	client ytdl.Client
}

// NewVideoMetadataResolver returns a resolver using httpClient, or the default client when nil.
func NewVideoMetadataResolver(httpClient *http.Client) *VideoMetadataResolver {
	return &VideoMetadataResolver{client: ytdl.Client{HTTPClient: httpClient}}
}

// ChannelIDForVideo returns the channel id of the video.
func (r *VideoMetadataResolver) ChannelIDForVideo(ctx context.Context, videoID string) (string, error) {
	video, err := r.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("failed to read video metadata for %s: %w", videoID, err)
	}
	if video.ChannelID == "" {
		return "", fmt.Errorf("video %s metadata has no channel id", videoID)
	}
	log.Debug().Str("video_id", videoID).Str("channel_id", video.ChannelID).Msg("Resolved channel from video metadata")
	return video.ChannelID, nil
}
