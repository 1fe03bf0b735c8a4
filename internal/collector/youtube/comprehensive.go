package youtube

import (
	"context"

	"github.com/alfredjeanlab/contentflow/internal/collector"
	"github.com/alfredjeanlab/contentflow/internal/model"
)

// Limits used by the comprehensive and pipeline collections.
const (
	comprehensiveVideos   = 20
	comprehensiveComments = 10
	collectVideos         = 50
	trendingMax           = 50
)

// Comprehensive is everything CollectComprehensive gathers for a set of channels.
type Comprehensive struct {
	Channels  []*model.VideoAnalytics `json:"channels"`
	Videos    []*model.VideoAnalytics `json:"videos"`
	Comments  []model.Comment         `json:"comments"`
	Playlists []model.Playlist        `json:"playlists"`
	Trending  []*model.VideoAnalytics `json:"trending"`
}

// CollectComprehensive gathers trending videos of the default region and, per
// channel, its analytics, recent videos with their top comments, and its
// playlists. Failures are logged and never abort the whole collection; a
// failing video only loses that video's data.
func (c *Collector) CollectComprehensive(ctx context.Context, channelIDs []string, region string) *Comprehensive {
	all := &Comprehensive{
		Channels:  []*model.VideoAnalytics{},
		Videos:    []*model.VideoAnalytics{},
		Comments:  []model.Comment{},
		Playlists: []model.Playlist{},
		Trending:  []*model.VideoAnalytics{},
	}

	trending, err := c.TrendingVideos(ctx, region, trendingMax)
	if err != nil {
		c.log.Error("collect trending videos", "err", err)
	} else {
		all.Trending = append(all.Trending, trending...)
	}

	for _, channelID := range channelIDs {
		if ctx.Err() != nil {
			break
		}
		if err := c.collectChannel(ctx, channelID, all); err != nil {
			c.log.Error("collect channel", "channel_id", channelID, "err", err)
			continue
		}
		c.log.Info("collected channel", "channel_id", channelID)
	}
	return all
}

func (c *Collector) collectChannel(ctx context.Context, channelID string, all *Comprehensive) error {
	channel, err := c.ChannelAnalytics(ctx, channelID)
	if err != nil {
		return err
	}
	if channel != nil {
		all.Channels = append(all.Channels, channel)
	}

	videos, err := c.ChannelVideos(ctx, channelID, comprehensiveVideos)
	if err != nil {
		return err
	}
	for _, video := range videos {
		analytics, err := c.VideoAnalytics(ctx, video.ID)
		if err != nil {
			c.log.Error("collect video", "channel_id", channelID, "video_id", video.ID, "err", err)
			continue
		}
		if analytics != nil {
			all.Videos = append(all.Videos, analytics)
		}

		comments, err := c.VideoComments(ctx, video.ID, comprehensiveComments)
		if err != nil {
			c.log.Error("collect comments", "video_id", video.ID, "err", err)
			continue
		}
		all.Comments = append(all.Comments, comments...)
	}

	playlists, err := c.ChannelPlaylists(ctx, channelID)
	if err != nil {
		return err
	}
	all.Playlists = append(all.Playlists, playlists...)
	return nil
}

// Collect implements collector.Collector. For every channel it records the
// channel analytics and the analytics of its recent uploads. Missing
// channels and videos are skipped; failures are isolated per item.
func (c *Collector) Collect(ctx context.Context, targets collector.Targets) (*collector.Batch, error) {
	batch := &collector.Batch{Platform: Platform}
	for _, channelID := range targets.YouTubeChannels {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		channel, err := c.ChannelAnalytics(ctx, channelID)
		if err != nil {
			batch.Fail(c.log, "channel", channelID, err)
			continue
		}
		if channel != nil {
			batch.Add(channel)
		}

		videos, err := c.ChannelVideos(ctx, channelID, collectVideos)
		if err != nil {
			batch.Fail(c.log, "channel_videos", channelID, err)
		}
		for _, video := range videos {
			analytics, err := c.VideoAnalytics(ctx, video.ID)
			if err != nil {
				batch.Fail(c.log, "video", video.ID, err)
				continue
			}
			if analytics != nil {
				batch.Add(analytics)
			}
		}
		c.log.Info("collected channel", "channel_id", channelID, "videos", len(videos))
	}
	return batch, nil
}
