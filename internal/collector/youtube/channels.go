package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/alfredjeanlab/contentflow/internal/model"
)

// ChannelAnalytics returns the channel record for channelID, or nil when the
// API knows no such channel.
func (c *Collector) ChannelAnalytics(ctx context.Context, channelID string) (*model.VideoAnalytics, error) {
	q := url.Values{}
	q.Set("part", "snippet,statistics,brandingSettings,contentDetails")
	q.Set("id", channelID)

	var resp listResponse[channelItem]
	if err := c.get(ctx, "channels", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		c.log.Warn("no data found for channel", "channel_id", channelID)
		return nil, nil
	}

	item := resp.Items[0]
	now := c.now()
	return &model.VideoAnalytics{
		ID:              model.MakeID(string(model.DataTypeChannel), channelID, now),
		ChannelID:       channelID,
		Title:           item.Snippet.Title,
		Description:     item.Snippet.Description,
		PublishedAt:     item.Snippet.PublishedAt,
		ViewCount:       count(item.Statistics.ViewCount),
		CommentCount:    count(item.Statistics.CommentCount),
		SubscriberCount: model.Int64Ptr(count(item.Statistics.SubscriberCount)),
		Tags:            []string{},
		Language:        languageOrUnknown(item.Snippet.DefaultLanguage),
		CollectedAt:     now,
		DataType:        model.DataTypeChannel,
		VideoCount:      model.Int64Ptr(count(item.Statistics.VideoCount)),
		Country:         model.StringPtr(item.Snippet.Country),
		CustomURL:       model.StringPtr(item.Snippet.CustomURL),
		ThumbnailURL:    item.Snippet.Thumbnails.best(),
	}, nil
}

// ChannelVideos returns up to max recent uploads of a channel. It resolves
// the channel's uploads playlist and pages through it. An unknown channel
// yields an empty slice.
func (c *Collector) ChannelVideos(ctx context.Context, channelID string, max int) ([]model.ChannelVideo, error) {
	q := url.Values{}
	q.Set("part", "contentDetails")
	q.Set("id", channelID)

	var channels listResponse[channelItem]
	if err := c.get(ctx, "channels", q, &channels); err != nil {
		return nil, fmt.Errorf("fetch uploads playlist of %s: %w", channelID, err)
	}
	if len(channels.Items) == 0 {
		return []model.ChannelVideo{}, nil
	}
	uploads := channels.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if uploads == "" {
		return []model.ChannelVideo{}, nil
	}

	type playlistItem struct {
		Snippet struct {
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			ResourceID  struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	}

	videos := []model.ChannelVideo{}
	pageToken := ""
	for {
		remaining := max - len(videos)
		q := url.Values{}
		q.Set("part", "snippet")
		q.Set("playlistId", uploads)
		q.Set("maxResults", pageSize(remaining, maxPageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page listResponse[playlistItem]
		if err := c.get(ctx, "playlistItems", q, &page); err != nil {
			return videos, fmt.Errorf("fetch uploads of %s: %w", channelID, err)
		}
		for _, item := range page.Items {
			if max > 0 && len(videos) >= max {
				break
			}
			videos = append(videos, model.ChannelVideo{
				ID:          item.Snippet.ResourceID.VideoID,
				Title:       item.Snippet.Title,
				PublishedAt: item.Snippet.PublishedAt,
				ChannelID:   channelID,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" || len(page.Items) == 0 || max <= 0 || len(videos) >= max {
			return videos, nil
		}
	}
}

// ChannelPlaylists returns the first page of a channel's playlists.
func (c *Collector) ChannelPlaylists(ctx context.Context, channelID string) ([]model.Playlist, error) {
	q := url.Values{}
	q.Set("part", "snippet,contentDetails")
	q.Set("channelId", channelID)
	q.Set("maxResults", strconv.Itoa(maxPageSize))

	type playlistResource struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string     `json:"title"`
			Description string     `json:"description"`
			PublishedAt string     `json:"publishedAt"`
			Thumbnails  thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			ItemCount int64 `json:"itemCount"`
		} `json:"contentDetails"`
	}

	var resp listResponse[playlistResource]
	if err := c.get(ctx, "playlists", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch playlists of %s: %w", channelID, err)
	}

	now := c.now()
	playlists := make([]model.Playlist, 0, len(resp.Items))
	for _, item := range resp.Items {
		playlists = append(playlists, model.Playlist{
			ID:           item.ID,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelID:    channelID,
			PublishedAt:  item.Snippet.PublishedAt,
			ItemCount:    item.ContentDetails.ItemCount,
			ThumbnailURL: item.Snippet.Thumbnails.best(),
			CollectedAt:  now,
		})
	}
	return playlists, nil
}

// ChannelSections returns the shelves shown on a channel page.
func (c *Collector) ChannelSections(ctx context.Context, channelID string) ([]model.ChannelSection, error) {
	q := url.Values{}
	q.Set("part", "snippet,contentDetails")
	q.Set("channelId", channelID)

	type sectionResource struct {
		ID      string `json:"id"`
		Snippet struct {
			Type     string `json:"type"`
			Title    string `json:"title"`
			Position int64  `json:"position"`
		} `json:"snippet"`
	}

	var resp listResponse[sectionResource]
	if err := c.get(ctx, "channelSections", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch sections of %s: %w", channelID, err)
	}

	now := c.now()
	sections := make([]model.ChannelSection, 0, len(resp.Items))
	for _, item := range resp.Items {
		sections = append(sections, model.ChannelSection{
			ID:          item.ID,
			Type:        item.Snippet.Type,
			Title:       item.Snippet.Title,
			ChannelID:   channelID,
			Position:    item.Snippet.Position,
			CollectedAt: now,
		})
	}
	return sections, nil
}

func languageOrUnknown(lang string) string {
	if lang == "" {
		return model.UnknownLanguage
	}
	return lang
}
