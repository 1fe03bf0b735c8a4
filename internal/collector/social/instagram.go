package social

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/model"
)

// instagramTimeLayout is the Graph API timestamp format ("+0000" offsets).
const instagramTimeLayout = "2006-01-02T15:04:05-0700"

type instagramMedia struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int64  `json:"like_count"`
	CommentsCount int64  `json:"comments_count"`
}

// InstagramAnalytics returns the account record of a business account
// followed by the records of its recent media. When only the media cannot be
// fetched, the account record is returned together with a *PostsError.
func (c *Collector) InstagramAnalytics(ctx context.Context, accountID string) ([]*model.SocialAnalytics, error) {
	if c.instagram == nil {
		return nil, fmt.Errorf("instagram is not configured")
	}

	q := url.Values{}
	q.Set("fields", "username,followers_count,media_count,biography")
	var profile struct {
		ID             string `json:"id"`
		Username       string `json:"username"`
		Biography      string `json:"biography"`
		FollowersCount int64  `json:"followers_count"`
		MediaCount     int64  `json:"media_count"`
	}
	if err := c.instagram.GetJSON(ctx, "/"+url.PathEscape(accountID), q, &profile); err != nil {
		return nil, fmt.Errorf("fetch instagram account %s: %w", accountID, err)
	}

	posts, postsErr := c.RecentMedia(ctx, accountID, profile.FollowersCount, recentPosts)

	now := c.now()
	account := &model.SocialAnalytics{
		ID:          model.MakeID(model.PlatformInstagram, accountID, now),
		Platform:    model.PlatformInstagram,
		AccountID:   accountID,
		Content:     profile.Biography,
		Followers:   model.Int64Ptr(profile.FollowersCount),
		Hashtags:    []string{},
		Mentions:    []string{},
		CollectedAt: now,
		DataType:    model.DataTypeAccount,
		Handle:      profile.Username,
		PostCount:   model.Int64Ptr(profile.MediaCount),
	}
	sumInteractions(account, posts)

	records := []*model.SocialAnalytics{account}
	for _, p := range posts {
		p.Handle = profile.Username
		records = append(records, p)
	}
	if postsErr != nil {
		return records, &PostsError{Account: accountID, Err: postsErr}
	}
	return records, nil
}

// RecentMedia returns post records for up to limit recent media of an
// account. Hashtags and mentions are taken from the caption.
func (c *Collector) RecentMedia(ctx context.Context, accountID string, followers int64, limit int) ([]*model.SocialAnalytics, error) {
	if c.instagram == nil {
		return nil, fmt.Errorf("instagram is not configured")
	}
	q := url.Values{}
	q.Set("fields", "id,caption,timestamp,like_count,comments_count")
	q.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Data []instagramMedia `json:"data"`
	}
	if err := c.instagram.GetJSON(ctx, "/"+url.PathEscape(accountID)+"/media", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch media of %s: %w", accountID, err)
	}

	now := c.now()
	posts := make([]*model.SocialAnalytics, 0, len(resp.Data))
	for _, m := range resp.Data {
		post := postRecord(model.PlatformInstagram, accountID, m.ID, now)
		post.Content = m.Caption
		post.PostedAt = instagramTime(m.Timestamp)
		post.Likes = m.LikeCount
		post.Comments = m.CommentsCount
		post.Followers = model.Int64Ptr(followers)
		post.EngagementRate = EngagementRate(m.LikeCount+m.CommentsCount, 1, followers)
		post.Hashtags = extract(hashtagPattern, m.Caption)
		post.Mentions = extract(mentionPattern, m.Caption)
		posts = append(posts, post)
	}
	return posts, nil
}

// instagramTime converts a Graph API timestamp to RFC 3339. Values that do
// not parse are dropped.
func instagramTime(s string) string {
	t, err := time.Parse(instagramTimeLayout, s)
	if err != nil {
		if _, err := time.Parse(time.RFC3339, s); err == nil {
			return s
		}
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
