package social

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/alfredjeanlab/contentflow/internal/model"
)

type twitterUser struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Username      string `json:"username"`
	Description   string `json:"description"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		FollowersCount int64 `json:"followers_count"`
		TweetCount     int64 `json:"tweet_count"`
	} `json:"public_metrics"`
}

type tweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		RetweetCount int64 `json:"retweet_count"`
		ReplyCount   int64 `json:"reply_count"`
		LikeCount    int64 `json:"like_count"`
		QuoteCount   int64 `json:"quote_count"`
	} `json:"public_metrics"`
	Entities struct {
		Hashtags []struct {
			Tag string `json:"tag"`
		} `json:"hashtags"`
		Mentions []struct {
			Username string `json:"username"`
		} `json:"mentions"`
	} `json:"entities"`
}

// TwitterAnalytics returns the account record of handle followed by the
// records of its recent tweets. The account's engagement rate and
// interaction totals cover those tweets. When only the tweets cannot be
// fetched, the account record is returned together with a *PostsError.
func (c *Collector) TwitterAnalytics(ctx context.Context, handle string) ([]*model.SocialAnalytics, error) {
	if c.twitter == nil {
		return nil, fmt.Errorf("twitter is not configured")
	}

	q := url.Values{}
	q.Set("user.fields", "public_metrics,created_at,description")
	var user struct {
		Data *twitterUser `json:"data"`
	}
	if err := c.twitter.GetJSON(ctx, "/users/by/username/"+url.PathEscape(handle), q, &user); err != nil {
		return nil, fmt.Errorf("fetch twitter user %s: %w", handle, err)
	}
	if user.Data == nil {
		return nil, fmt.Errorf("twitter user %s not found", handle)
	}
	u := user.Data
	followers := u.PublicMetrics.FollowersCount
	posts, postsErr := c.RecentTweets(ctx, u.ID, followers, recentPosts)

	now := c.now()
	account := &model.SocialAnalytics{
		ID:          model.MakeID(model.PlatformTwitter, handle, now),
		Platform:    model.PlatformTwitter,
		AccountID:   u.ID,
		Content:     u.Description,
		Followers:   model.Int64Ptr(followers),
		Hashtags:    []string{},
		Mentions:    []string{},
		CollectedAt: now,
		DataType:    model.DataTypeAccount,
		Handle:      u.Username,
		PostCount:   model.Int64Ptr(u.PublicMetrics.TweetCount),
	}
	sumInteractions(account, posts)

	records := []*model.SocialAnalytics{account}
	for _, p := range posts {
		p.Handle = u.Username
		records = append(records, p)
	}
	if postsErr != nil {
		return records, &PostsError{Account: handle, Err: postsErr}
	}
	return records, nil
}

// RecentTweets returns post records for up to limit recent tweets of a
// user. followers scales the per-post engagement rate.
func (c *Collector) RecentTweets(ctx context.Context, userID string, followers int64, limit int) ([]*model.SocialAnalytics, error) {
	if c.twitter == nil {
		return nil, fmt.Errorf("twitter is not configured")
	}
	// The API accepts 5..100.
	limit = min(100, max(5, limit))
	q := url.Values{}
	q.Set("tweet.fields", "public_metrics,created_at,entities")
	q.Set("max_results", strconv.Itoa(limit))

	var resp struct {
		Data []tweet `json:"data"`
	}
	if err := c.twitter.GetJSON(ctx, "/users/"+url.PathEscape(userID)+"/tweets", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch tweets of %s: %w", userID, err)
	}

	now := c.now()
	posts := make([]*model.SocialAnalytics, 0, len(resp.Data))
	for _, t := range resp.Data {
		m := t.PublicMetrics
		post := postRecord(model.PlatformTwitter, userID, t.ID, now)
		post.Content = t.Text
		post.PostedAt = t.CreatedAt
		post.Likes = m.LikeCount
		post.Shares = m.RetweetCount + m.QuoteCount
		post.Comments = m.ReplyCount
		post.Followers = model.Int64Ptr(followers)
		post.EngagementRate = EngagementRate(post.Likes+post.Shares+post.Comments, 1, followers)
		for _, h := range t.Entities.Hashtags {
			post.Hashtags = append(post.Hashtags, h.Tag)
		}
		for _, mention := range t.Entities.Mentions {
			post.Mentions = append(post.Mentions, mention.Username)
		}
		posts = append(posts, post)
	}
	return posts, nil
}
