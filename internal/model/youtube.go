package model

import (
	"fmt"
	"strings"
	"time"
)

// UnknownLanguage is recorded when a channel or video has no default language.
const UnknownLanguage = "unknown"

// VideoAnalytics is the flat YouTube analytics record shared by channel,
// video and trending collections. Fields that do not apply to a data type
// are nil and encode as JSON null.
type VideoAnalytics struct {
	ID              string    `json:"id"`
	ChannelID       string    `json:"channel_id"`
	VideoID         *string   `json:"video_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	PublishedAt     string    `json:"published_at"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       *int64    `json:"like_count"`
	CommentCount    int64     `json:"comment_count"`
	SubscriberCount *int64    `json:"subscriber_count"`
	Duration        *int64    `json:"duration"`
	Tags            []string  `json:"tags"`
	CategoryID      *int64    `json:"category_id"`
	Language        string    `json:"language"`
	CollectedAt     time.Time `json:"collected_at"`
	DataType        DataType  `json:"data_type"`

	VideoCount    *int64  `json:"video_count,omitempty"`
	Country       *string `json:"country,omitempty"`
	CustomURL     *string `json:"custom_url,omitempty"`
	ThumbnailURL  string  `json:"thumbnail_url,omitempty"`
	PrivacyStatus string  `json:"privacy_status,omitempty"`
	MadeForKids   *bool   `json:"made_for_kids,omitempty"`
	RegionCode    string  `json:"region_code,omitempty"`
}

var _ Row = (*VideoAnalytics)(nil)

func (v *VideoAnalytics) RecordID() string { return v.ID }

func (v *VideoAnalytics) Source() Source { return SourceYouTube }

func (v *VideoAnalytics) Validate() error {
	var ve ValidationError
	ve.required("id", v.ID)
	ve.required("channel_id", v.ChannelID)
	switch v.DataType {
	case DataTypeChannel:
	case DataTypeVideo, DataTypeTrending:
		if v.VideoID == nil || *v.VideoID == "" {
			ve.add("video_id", "is required for "+string(v.DataType)+" records")
		}
	default:
		ve.add("data_type", fmt.Sprintf("invalid value %q", v.DataType))
	}
	ve.timestamp("published_at", v.PublishedAt)
	ve.nonNegative("view_count", v.ViewCount)
	ve.nonNegativePtr("like_count", v.LikeCount)
	ve.nonNegative("comment_count", v.CommentCount)
	ve.nonNegativePtr("subscriber_count", v.SubscriberCount)
	ve.nonNegativePtr("duration", v.Duration)
	return ve.err()
}

func (v *VideoAnalytics) Normalize() {
	v.Title = strings.TrimSpace(v.Title)
	v.Description = strings.TrimSpace(v.Description)
	v.Language = strings.ToLower(strings.TrimSpace(v.Language))
	if v.Language == "" {
		v.Language = UnknownLanguage
	}
	v.Tags = cleanTags(v.Tags)
}

func (v *VideoAnalytics) NullCount() int {
	return countNil(v.VideoID, v.LikeCount, v.SubscriberCount, v.Duration, v.CategoryID, v.PublishedAt, v.Description)
}

func (v *VideoAnalytics) NullableFields() int { return 7 }

func (v *VideoAnalytics) Columns() []string {
	return []string{
		"id", "channel_id", "video_id", "title", "description", "published_at",
		"view_count", "like_count", "comment_count", "subscriber_count", "duration",
		"tags", "category_id", "language", "collected_at", "data_type",
		"video_count", "country", "custom_url", "thumbnail_url", "privacy_status",
		"made_for_kids", "region_code",
	}
}

func (v *VideoAnalytics) Values() []any {
	return []any{
		v.ID, v.ChannelID, v.VideoID, v.Title, v.Description, nullTimestamp(v.PublishedAt),
		v.ViewCount, v.LikeCount, v.CommentCount, v.SubscriberCount, v.Duration,
		v.Tags, v.CategoryID, v.Language, v.CollectedAt, string(v.DataType),
		v.VideoCount, v.Country, v.CustomURL, StringPtr(v.ThumbnailURL), StringPtr(v.PrivacyStatus),
		v.MadeForKids, StringPtr(v.RegionCode),
	}
}

// ChannelVideo is an entry of a channel's uploads playlist.
type ChannelVideo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	PublishedAt string `json:"published_at"`
	ChannelID   string `json:"channel_id"`
}

// SearchResult is a video returned by a search query.
type SearchResult struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelID    string `json:"channel_id"`
	PublishedAt  string `json:"published_at"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Comment is a top-level comment thread on a video.
type Comment struct {
	ID          string    `json:"id"`
	VideoID     string    `json:"video_id"`
	Text        string    `json:"text"`
	Author      string    `json:"author"`
	PublishedAt string    `json:"published_at"`
	LikeCount   int64     `json:"like_count"`
	ReplyCount  int64     `json:"reply_count"`
	CollectedAt time.Time `json:"collected_at"`
}

// Playlist is a channel playlist.
type Playlist struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelID    string    `json:"channel_id"`
	PublishedAt  string    `json:"published_at"`
	ItemCount    int64     `json:"item_count"`
	ThumbnailURL string    `json:"thumbnail_url"`
	CollectedAt  time.Time `json:"collected_at"`
}

// Category is a video category assignable in a region.
type Category struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ChannelID   string    `json:"channel_id"`
	RegionCode  string    `json:"region_code"`
	CollectedAt time.Time `json:"collected_at"`
}

// ChannelSection is a shelf on a channel page (featured content, playlists).
type ChannelSection struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	ChannelID   string    `json:"channel_id"`
	Position    int64     `json:"position"`
	CollectedAt time.Time `json:"collected_at"`
}
