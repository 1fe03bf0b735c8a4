package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/collector/httpclient"
	"github.com/alfredjeanlab/contentflow/internal/model"
)

// maxCommentPage is the largest maxResults commentThreads accepts.
const maxCommentPage = 100

// VideoAnalytics returns the record for a single video, or nil when the
// video does not exist or is private.
func (c *Collector) VideoAnalytics(ctx context.Context, videoID string) (*model.VideoAnalytics, error) {
	q := url.Values{}
	q.Set("part", "snippet,statistics,contentDetails,status")
	q.Set("id", videoID)

	var resp listResponse[videoItem]
	if err := c.get(ctx, "videos", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch video %s: %w", videoID, err)
	}
	if len(resp.Items) == 0 {
		c.log.Warn("no data found for video", "video_id", videoID)
		return nil, nil
	}

	item := resp.Items[0]
	v := c.videoRecord(item, model.DataTypeVideo)
	v.VideoID = model.StringPtr(videoID)
	v.ID = model.MakeID(string(model.DataTypeVideo), videoID, v.CollectedAt)
	v.Duration = model.Int64Ptr(ParseDuration(item.ContentDetails.Duration))
	v.PrivacyStatus = item.Status.PrivacyStatus
	madeForKids := item.Status.MadeForKids
	v.MadeForKids = &madeForKids
	return v, nil
}

// TrendingVideos returns the most popular videos of a region. Trending
// records carry no duration.
func (c *Collector) TrendingVideos(ctx context.Context, region string, max int) ([]*model.VideoAnalytics, error) {
	if region == "" {
		region = DefaultRegion
	}
	q := url.Values{}
	q.Set("part", "snippet,statistics")
	q.Set("chart", "mostPopular")
	q.Set("regionCode", region)
	q.Set("maxResults", pageSize(max, maxPageSize))

	var resp listResponse[videoItem]
	if err := c.get(ctx, "videos", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch trending videos for %s: %w", region, err)
	}

	videos := make([]*model.VideoAnalytics, 0, len(resp.Items))
	for _, item := range resp.Items {
		v := c.videoRecord(item, model.DataTypeTrending)
		v.VideoID = model.StringPtr(item.ID)
		v.ID = model.MakeID(string(model.DataTypeTrending), item.ID, v.CollectedAt)
		v.RegionCode = region
		videos = append(videos, v)
	}
	return videos, nil
}

// SearchVideos runs a relevance-ordered video search. A zero publishedAfter
// disables the date filter.
func (c *Collector) SearchVideos(ctx context.Context, query string, max int, publishedAfter time.Time) ([]model.SearchResult, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("q", query)
	q.Set("type", "video")
	q.Set("maxResults", pageSize(max, maxPageSize))
	q.Set("order", "relevance")
	if !publishedAfter.IsZero() {
		q.Set("publishedAfter", publishedAfter.UTC().Format(time.RFC3339))
	}

	type searchItem struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			ChannelID   string     `json:"channelId"`
			Title       string     `json:"title"`
			Description string     `json:"description"`
			PublishedAt string     `json:"publishedAt"`
			Thumbnails  thumbnails `json:"thumbnails"`
		} `json:"snippet"`
	}

	var resp listResponse[searchItem]
	if err := c.get(ctx, "search", q, &resp); err != nil {
		return nil, fmt.Errorf("search videos %q: %w", query, err)
	}

	results := make([]model.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, model.SearchResult{
			ID:           item.ID.VideoID,
			Title:        item.Snippet.Title,
			ChannelID:    item.Snippet.ChannelID,
			PublishedAt:  item.Snippet.PublishedAt,
			Description:  item.Snippet.Description,
			ThumbnailURL: item.Snippet.Thumbnails.best(),
		})
	}
	return results, nil
}

// VideoComments returns up to max top-level comment threads of a video.
// Videos with comments disabled answer 403; that yields an empty slice.
func (c *Collector) VideoComments(ctx context.Context, videoID string, max int) ([]model.Comment, error) {
	q := url.Values{}
	q.Set("part", "snippet,replies")
	q.Set("videoId", videoID)
	q.Set("maxResults", pageSize(max, maxCommentPage))
	q.Set("order", "relevance")

	type commentThread struct {
		ID      string `json:"id"`
		Snippet struct {
			TotalReplyCount int64 `json:"totalReplyCount"`
			TopLevelComment struct {
				Snippet struct {
					TextDisplay       string `json:"textDisplay"`
					AuthorDisplayName string `json:"authorDisplayName"`
					PublishedAt       string `json:"publishedAt"`
					LikeCount         int64  `json:"likeCount"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	}

	var resp listResponse[commentThread]
	if err := c.get(ctx, "commentThreads", q, &resp); err != nil {
		if httpclient.StatusCode(err) == http.StatusForbidden {
			c.log.Warn("comments disabled for video", "video_id", videoID)
			return []model.Comment{}, nil
		}
		return nil, fmt.Errorf("fetch comments of %s: %w", videoID, err)
	}

	now := c.now()
	comments := make([]model.Comment, 0, len(resp.Items))
	for _, item := range resp.Items {
		top := item.Snippet.TopLevelComment.Snippet
		comments = append(comments, model.Comment{
			ID:          item.ID,
			VideoID:     videoID,
			Text:        top.TextDisplay,
			Author:      top.AuthorDisplayName,
			PublishedAt: top.PublishedAt,
			LikeCount:   top.LikeCount,
			ReplyCount:  item.Snippet.TotalReplyCount,
			CollectedAt: now,
		})
	}
	return comments, nil
}

// Categories returns the video categories assignable in a region.
func (c *Collector) Categories(ctx context.Context, region string) ([]model.Category, error) {
	if region == "" {
		region = DefaultRegion
	}
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("regionCode", region)

	type categoryItem struct {
		ID      string `json:"id"`
		Snippet struct {
			Title     string `json:"title"`
			ChannelID string `json:"channelId"`
		} `json:"snippet"`
	}

	var resp listResponse[categoryItem]
	if err := c.get(ctx, "videoCategories", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch categories for %s: %w", region, err)
	}

	now := c.now()
	categories := make([]model.Category, 0, len(resp.Items))
	for _, item := range resp.Items {
		categories = append(categories, model.Category{
			ID:          item.ID,
			Title:       item.Snippet.Title,
			ChannelID:   item.Snippet.ChannelID,
			RegionCode:  region,
			CollectedAt: now,
		})
	}
	return categories, nil
}

// videoRecord maps the fields shared by video and trending records.
func (c *Collector) videoRecord(item videoItem, dataType model.DataType) *model.VideoAnalytics {
	var category *int64
	if id, err := strconv.ParseInt(item.Snippet.CategoryID, 10, 64); err == nil {
		category = &id
	}
	tags := item.Snippet.Tags
	if tags == nil {
		tags = []string{}
	}
	return &model.VideoAnalytics{
		ChannelID:    item.Snippet.ChannelID,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		PublishedAt:  item.Snippet.PublishedAt,
		ViewCount:    count(item.Statistics.ViewCount),
		LikeCount:    model.Int64Ptr(count(item.Statistics.LikeCount)),
		CommentCount: count(item.Statistics.CommentCount),
		Tags:         tags,
		CategoryID:   category,
		Language:     languageOrUnknown(item.Snippet.DefaultLanguage),
		CollectedAt:  c.now(),
		DataType:     dataType,
		ThumbnailURL: item.Snippet.Thumbnails.best(),
	}
}

var durationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration converts an ISO 8601 video duration such as "PT4M13S" or
// "P1DT2H" to seconds. Unparseable input yields 0.
func ParseDuration(s string) int64 {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	var total int64
	for i, unit := range []int64{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}
