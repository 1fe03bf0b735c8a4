// Package social collects account and post analytics from Twitter (API v2)
// and Instagram (Graph API).
package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/collector"
	"github.com/alfredjeanlab/contentflow/internal/collector/httpclient"
	"github.com/alfredjeanlab/contentflow/internal/model"
)

// Platform is the registry name of the social media collector.
const Platform = "social_media"

const (
	defaultTwitterEndpoint   = "https://api.twitter.com/2"
	defaultInstagramEndpoint = "https://graph.facebook.com/v19.0"
)

// recentPosts is how many recent posts feed the engagement rate.
const recentPosts = 10

// Extra keys read from collector.Config.
const (
	ExtraTwitterToken      = "twitter_bearer_token"
	ExtraInstagramToken    = "instagram_access_token"
	ExtraTwitterEndpoint   = "twitter_endpoint"
	ExtraInstagramEndpoint = "instagram_endpoint"
)

func init() {
	collector.Register(Platform, func(cfg collector.Config) (collector.Collector, error) {
		return New(cfg)
	})
}

// Collector collects from whichever of Twitter and Instagram it has
// credentials for.
type Collector struct {
	twitter   *httpclient.Client
	instagram *httpclient.Client
	log       *slog.Logger
	now       func() time.Time
}

// New creates a social media collector. A platform without credentials is
// disabled with a warning; having none at all is an error.
func New(cfg collector.Config) (*Collector, error) {
	c := &Collector{
		log: cfg.Log().With("platform", Platform),
		now: time.Now,
	}

	if tok := cfg.Extra[ExtraTwitterToken]; tok != "" {
		c.twitter = httpclient.New(endpointOr(cfg.Extra[ExtraTwitterEndpoint], defaultTwitterEndpoint),
			append(cfg.ClientOptions(), httpclient.WithBearer(tok))...)
	} else {
		c.log.Warn("twitter bearer token not configured, skipping twitter")
	}

	if tok := cfg.Extra[ExtraInstagramToken]; tok != "" {
		c.instagram = httpclient.New(endpointOr(cfg.Extra[ExtraInstagramEndpoint], defaultInstagramEndpoint),
			append(cfg.ClientOptions(), httpclient.WithQueryParam("access_token", tok))...)
	} else {
		c.log.Warn("instagram access token not configured, skipping instagram")
	}

	if c.twitter == nil && c.instagram == nil {
		return nil, errors.New("social: no twitter or instagram credentials configured")
	}
	return c, nil
}

// Platform implements collector.Collector.
func (c *Collector) Platform() string { return Platform }

// Collect implements collector.Collector: every Twitter handle and every
// Instagram account, each yielding an account record followed by its
// recent posts.
func (c *Collector) Collect(ctx context.Context, targets collector.Targets) (*collector.Batch, error) {
	batch := &collector.Batch{Platform: Platform}

	if c.twitter != nil {
		for _, handle := range targets.TwitterHandles {
			if err := ctx.Err(); err != nil {
				return batch, err
			}
			records, err := c.TwitterAnalytics(ctx, handle)
			c.addAccount(batch, model.PlatformTwitter, handle, records, err)
		}
	}

	if c.instagram != nil {
		for _, account := range targets.InstagramAccounts {
			if err := ctx.Err(); err != nil {
				return batch, err
			}
			records, err := c.InstagramAnalytics(ctx, account)
			c.addAccount(batch, model.PlatformInstagram, account, records, err)
		}
	}
	return batch, nil
}

// addAccount adds whatever records an account yielded. A failure to fetch
// the posts is recorded as "<platform>_posts" and keeps the account record.
func (c *Collector) addAccount(batch *collector.Batch, platform, id string, records []*model.SocialAnalytics, err error) {
	for _, r := range records {
		batch.Add(r)
	}
	var postsErr *PostsError
	switch {
	case errors.As(err, &postsErr):
		batch.Fail(c.log, platform+"_posts", id, postsErr.Err)
	case err != nil:
		batch.Fail(c.log, platform+"_account", id, err)
		return
	}
	c.log.Info("collected "+platform+" account", "account", id, "records", len(records))
}

// PostsError reports that an account was fetched but its recent posts were
// not.
type PostsError struct {
	Account string
	Err     error
}

func (e *PostsError) Error() string {
	return fmt.Sprintf("recent posts of %s: %v", e.Account, e.Err)
}

func (e *PostsError) Unwrap() error { return e.Err }

// EngagementRate is the mean number of interactions per post as a
// percentage of the follower count, rounded to four decimals. It is 0 when
// there are no posts or no followers.
func EngagementRate(interactions int64, posts int, followers int64) float64 {
	if posts == 0 || followers <= 0 {
		return 0
	}
	mean := float64(interactions) / float64(posts)
	return math.Round(mean/float64(followers)*100*10000) / 10000
}

var (
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
	mentionPattern = regexp.MustCompile(`@([\w.]+)`)
)

// extract returns the first capture group of every match of re in s.
func extract(re *regexp.Regexp, s string) []string {
	out := []string{}
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

func endpointOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func postRecord(platform, accountID, postID string, now time.Time) *model.SocialAnalytics {
	return &model.SocialAnalytics{
		ID:          model.MakeID(platform+"_post", postID, now),
		Platform:    platform,
		AccountID:   accountID,
		PostID:      model.StringPtr(postID),
		Hashtags:    []string{},
		Mentions:    []string{},
		CollectedAt: now,
		DataType:    model.DataTypePost,
	}
}

// sumInteractions totals the interactions of posts into the account record
// and derives its engagement rate.
func sumInteractions(account *model.SocialAnalytics, posts []*model.SocialAnalytics) {
	var followers int64
	if account.Followers != nil {
		followers = *account.Followers
	}
	for _, p := range posts {
		account.Likes += p.Likes
		account.Shares += p.Shares
		account.Comments += p.Comments
	}
	account.EngagementRate = EngagementRate(account.Likes+account.Shares+account.Comments, len(posts), followers)
}
