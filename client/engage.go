package client

import (
	"context"
	"errors"

	"github.com/researchaccelerator-hub/telegram-job/common"
	"github.com/rs/zerolog/log"
)

// likeAttempts bounds how often a like is tried before giving up.
const likeAttempts = 2

// YouTubeActions is the authorised account surface the Engager needs. *YouTubeDataClient
// implements it.
type YouTubeActions interface {
	LikeVideo(ctx context.Context, videoID string) error
	ChannelIDForVideo(ctx context.Context, videoID string) (string, error)
	SubscribeToChannel(ctx context.Context, channelID string) error
}

// ChannelResolver names the channel of a video. *VideoMetadataResolver implements it.
type ChannelResolver interface {
	ChannelIDForVideo(ctx context.Context, videoID string) (string, error)
}

// EngageResult reports what Engage did for one URL.
type EngageResult struct {
	VideoID      string
	ChannelID    string
	Liked        bool
	Subscribed   bool
	LikeErr      error
	SubscribeErr error
}

// Skipped reports whether the URL was not a YouTube video.
func (r EngageResult) Skipped() bool {
	return r.VideoID == ""
}

// Err joins the like and subscribe failures, if any.
func (r EngageResult) Err() error {
	return errors.Join(r.LikeErr, r.SubscribeErr)
}

// Engager likes a video and subscribes to its channel. The two actions are independent:
// a failed like does not prevent the subscription and vice versa.
type Engager struct {
	actions    YouTubeActions
	fallback   ChannelResolver
	likePolicy common.RetryPolicy
}

// NewEngager returns an Engager. fallback may be nil.
func NewEngager(actions YouTubeActions, fallback ChannelResolver) *Engager {
	return &Engager{
		actions:  actions,
		fallback: fallback,
		likePolicy: common.RetryPolicy{
			Attempts: likeAttempts,
			Backoff:  common.NoBackoff,
		},
	}
}

// Engage runs both actions for url. Non-YouTube URLs are skipped without any API call.
func (e *Engager) Engage(ctx context.Context, url string) EngageResult {
	res := EngageResult{VideoID: ExtractVideoID(url)}
	if res.Skipped() {
		log.Debug().Str("url", url).Msg("Not a YouTube video, skipping engagement")
		return res
	}

	res.LikeErr = common.Retry(ctx, e.likePolicy, func(attempt int) error {
		err := e.actions.LikeVideo(ctx, res.VideoID)
		if err != nil {
			log.Warn().Err(err).Str("video_id", res.VideoID).Int("attempt", attempt).Msg("Like attempt failed")
		}
		return err
	})
	res.Liked = res.LikeErr == nil
	if res.Liked {
		log.Info().Str("video_id", res.VideoID).Msg("Liked YouTube video")
	}

	res.ChannelID, res.SubscribeErr = e.resolveChannel(ctx, res.VideoID)
	if res.SubscribeErr == nil {
		res.SubscribeErr = e.actions.SubscribeToChannel(ctx, res.ChannelID)
	}
	res.Subscribed = res.SubscribeErr == nil
	if res.Subscribed {
		log.Info().Str("channel_id", res.ChannelID).Msg("Subscribed to YouTube channel")
	} else {
		log.Warn().Err(res.SubscribeErr).Str("video_id", res.VideoID).Msg("Subscribe failed")
	}

	return res
}

func (e *Engager) resolveChannel(ctx context.Context, videoID string) (string, error) {
	channelID, err := e.actions.ChannelIDForVideo(ctx, videoID)
	if err == nil {
		return channelID, nil
	}
	if e.fallback == nil {
		return "", err
	}

	log.Debug().Err(err).Str("video_id", videoID).Msg("Data API channel lookup failed, trying video metadata")
	channelID, fbErr := e.fallback.ChannelIDForVideo(ctx, videoID)
	if fbErr != nil {
		return "", errors.Join(err, fbErr)
	}
	return channelID, nil
}
