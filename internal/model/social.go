package model

import (
	"fmt"
	"strings"
	"time"
)

// Social platforms.
const (
	PlatformTwitter   = "twitter"
	PlatformInstagram = "instagram"
)

// SocialAnalytics is the flat record for social media accounts and posts.
type SocialAnalytics struct {
	ID             string    `json:"id"`
	Platform       string    `json:"platform"`
	AccountID      string    `json:"account_id"`
	PostID         *string   `json:"post_id"`
	Content        string    `json:"content"`
	PostedAt       string    `json:"posted_at"`
	Likes          int64     `json:"likes"`
	Shares         int64     `json:"shares"`
	Comments       int64     `json:"comments"`
	Followers      *int64    `json:"followers"`
	EngagementRate float64   `json:"engagement_rate"`
	Hashtags       []string  `json:"hashtags"`
	Mentions       []string  `json:"mentions"`
	CollectedAt    time.Time `json:"collected_at"`
	DataType       DataType  `json:"data_type"`

	Handle    string `json:"handle,omitempty"`
	PostCount *int64 `json:"post_count,omitempty"`
}

var _ Row = (*SocialAnalytics)(nil)

func (s *SocialAnalytics) RecordID() string { return s.ID }

func (s *SocialAnalytics) Source() Source { return SourceSocialMedia }

func (s *SocialAnalytics) Validate() error {
	var ve ValidationError
	ve.required("id", s.ID)
	ve.required("account_id", s.AccountID)
	switch s.Platform {
	case PlatformTwitter, PlatformInstagram:
	default:
		ve.add("platform", fmt.Sprintf("invalid value %q", s.Platform))
	}
	switch s.DataType {
	case DataTypeAccount:
	case DataTypePost:
		if s.PostID == nil {
			ve.add("post_id", "is required for post records")
		}
	default:
		ve.add("data_type", fmt.Sprintf("invalid value %q", s.DataType))
	}
	ve.timestamp("posted_at", s.PostedAt)
	ve.nonNegative("likes", s.Likes)
	ve.nonNegative("shares", s.Shares)
	ve.nonNegative("comments", s.Comments)
	ve.nonNegativePtr("followers", s.Followers)
	if s.EngagementRate < 0 {
		ve.add("engagement_rate", "must not be negative")
	}
	return ve.err()
}

func (s *SocialAnalytics) Normalize() {
	s.Content = strings.TrimSpace(s.Content)
	s.Platform = strings.ToLower(s.Platform)
	s.Hashtags = cleanTags(lowerAll(s.Hashtags))
	s.Mentions = cleanTags(lowerAll(s.Mentions))
}

func (s *SocialAnalytics) NullCount() int {
	return countNil(s.PostID, s.Content, s.PostedAt, s.Followers)
}

func (s *SocialAnalytics) NullableFields() int { return 4 }

func (s *SocialAnalytics) Columns() []string {
	return []string{
		"id", "platform", "account_id", "post_id", "content", "posted_at", "likes",
		"shares", "comments", "followers", "engagement_rate", "hashtags", "mentions",
		"collected_at", "data_type",
	}
}

func (s *SocialAnalytics) Values() []any {
	return []any{
		s.ID, s.Platform, s.AccountID, s.PostID, s.Content, nullTimestamp(s.PostedAt), s.Likes,
		s.Shares, s.Comments, s.Followers, s.EngagementRate, s.Hashtags, s.Mentions,
		s.CollectedAt, string(s.DataType),
	}
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.ToLower(v)
	}
	return out
}
