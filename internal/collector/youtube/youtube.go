// Package youtube collects channel, video and trending analytics from the
// YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/collector"
	"github.com/alfredjeanlab/contentflow/internal/collector/httpclient"
)

// Platform is the registry name of the YouTube collector.
const Platform = "youtube"

const defaultEndpoint = "https://www.googleapis.com/youtube/v3"

// DefaultRegion is used for trending charts and categories when no region is set.
const DefaultRegion = "US"

// maxPageSize is the largest maxResults most list endpoints accept.
const maxPageSize = 50

func init() {
	collector.Register(Platform, func(cfg collector.Config) (collector.Collector, error) {
		return New(cfg)
	})
}

// Collector talks to the YouTube Data API. It is not safe for concurrent use
// beyond what the shared quota counter guarantees.
type Collector struct {
	client *httpclient.Client
	log    *slog.Logger
	now    func() time.Time
}

// New creates a YouTube collector. The API key is sent as the "key" query
// parameter on every request.
func New(cfg collector.Config) (*Collector, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("youtube: api key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	opts := append(cfg.ClientOptions(),
		httpclient.WithQueryParam("key", cfg.APIKey),
		httpclient.WithQuota(cfg.QuotaOrNew()),
	)
	return &Collector{
		client: httpclient.New(endpoint, opts...),
		log:    cfg.Log().With("platform", Platform),
		now:    time.Now,
	}, nil
}

// Platform implements collector.Collector.
func (c *Collector) Platform() string { return Platform }

// Quota returns the request counter of this collector.
func (c *Collector) Quota() *httpclient.Quota { return c.client.Quota() }

func (c *Collector) get(ctx context.Context, endpoint string, q url.Values, dest any) error {
	return c.client.GetJSON(ctx, "/"+endpoint, q, dest)
}

// API response shapes. Only the fields the collector maps are declared.

type thumbnail struct {
	URL string `json:"url"`
}

type thumbnails struct {
	Default *thumbnail `json:"default"`
	Medium  *thumbnail `json:"medium"`
	High    *thumbnail `json:"high"`
}

// best returns the high resolution thumbnail URL, falling back to smaller ones.
func (t thumbnails) best() string {
	for _, th := range []*thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return ""
}

type statistics struct {
	ViewCount       string `json:"viewCount"`
	LikeCount       string `json:"likeCount"`
	CommentCount    string `json:"commentCount"`
	SubscriberCount string `json:"subscriberCount"`
	VideoCount      string `json:"videoCount"`
}

type channelItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title           string     `json:"title"`
		Description     string     `json:"description"`
		PublishedAt     string     `json:"publishedAt"`
		DefaultLanguage string     `json:"defaultLanguage"`
		Country         string     `json:"country"`
		CustomURL       string     `json:"customUrl"`
		Thumbnails      thumbnails `json:"thumbnails"`
	} `json:"snippet"`
	Statistics     statistics `json:"statistics"`
	ContentDetails struct {
		RelatedPlaylists struct {
			Uploads string `json:"uploads"`
		} `json:"relatedPlaylists"`
	} `json:"contentDetails"`
}

type videoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		ChannelID       string     `json:"channelId"`
		Title           string     `json:"title"`
		Description     string     `json:"description"`
		PublishedAt     string     `json:"publishedAt"`
		Tags            []string   `json:"tags"`
		CategoryID      string     `json:"categoryId"`
		DefaultLanguage string     `json:"defaultLanguage"`
		Thumbnails      thumbnails `json:"thumbnails"`
	} `json:"snippet"`
	Statistics     statistics `json:"statistics"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Status struct {
		PrivacyStatus string `json:"privacyStatus"`
		MadeForKids   bool   `json:"madeForKids"`
	} `json:"status"`
}

type listResponse[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// count parses a statistics counter. The API reports counts as decimal
// strings and omits hidden ones; both missing and malformed values map to 0.
func count(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func pageSize(max, limit int) string {
	if max <= 0 || max > limit {
		max = limit
	}
	return strconv.Itoa(max)
}
