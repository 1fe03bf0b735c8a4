// Package streaming collects trending streaming content. Streaming services
// offer no public analytics API, so trending titles and genres come from
// TMDB.
package streaming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/collector"
	"github.com/alfredjeanlab/contentflow/internal/collector/httpclient"
	"github.com/alfredjeanlab/contentflow/internal/model"
)

// Platform is the registry name of the streaming collector.
const Platform = "streaming"

// Source is recorded in the platform column of every streaming record.
const Source = "tmdb"

const defaultEndpoint = "https://api.themoviedb.org/3"

func init() {
	collector.Register(Platform, func(cfg collector.Config) (collector.Collector, error) {
		return New(cfg)
	})
}

// Collector reads trending content from TMDB. Genre names and the weekly
// trending list are fetched once per collector.
type Collector struct {
	client *httpclient.Client
	log    *slog.Logger
	now    func() time.Time

	genres   map[int]string
	trending []trendingItem
}

// New creates a streaming collector. cfg.APIKey is the TMDB API key.
func New(cfg collector.Config) (*Collector, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("streaming: tmdb api key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Collector{
		client: httpclient.New(endpoint, append(cfg.ClientOptions(), httpclient.WithQueryParam("api_key", cfg.APIKey))...),
		log:    cfg.Log().With("platform", Platform),
		now:    time.Now,
	}, nil
}

// Platform implements collector.Collector.
func (c *Collector) Platform() string { return Platform }

type trendingItem struct {
	ID            int64    `json:"id"`
	MediaType     string   `json:"media_type"`
	Title         string   `json:"title"`
	Name          string   `json:"name"`
	ReleaseDate   string   `json:"release_date"`
	FirstAirDate  string   `json:"first_air_date"`
	VoteAverage   float64  `json:"vote_average"`
	Popularity    float64  `json:"popularity"`
	GenreIDs      []int    `json:"genre_ids"`
	OriginCountry []string `json:"origin_country"`
}

func (t trendingItem) title() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Name
}

func (t trendingItem) released() string {
	if t.ReleaseDate != "" {
		return t.ReleaseDate
	}
	return t.FirstAirDate
}

func (c *Collector) trendingItems(ctx context.Context) ([]trendingItem, error) {
	if c.trending != nil {
		return c.trending, nil
	}
	var resp struct {
		Results []trendingItem `json:"results"`
	}
	if err := c.client.GetJSON(ctx, "/trending/all/week", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch trending content: %w", err)
	}
	items := make([]trendingItem, 0, len(resp.Results))
	for _, it := range resp.Results {
		if it.MediaType == "movie" || it.MediaType == "tv" {
			items = append(items, it)
		}
	}
	c.trending = items
	return items, nil
}

// genreNames returns the merged movie and tv genre lists.
func (c *Collector) genreNames(ctx context.Context) (map[int]string, error) {
	if c.genres != nil {
		return c.genres, nil
	}
	names := map[int]string{}
	for _, kind := range []string{"movie", "tv"} {
		var resp struct {
			Genres []struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			} `json:"genres"`
		}
		if err := c.client.GetJSON(ctx, "/genre/"+kind+"/list", nil, &resp); err != nil {
			return nil, fmt.Errorf("fetch %s genres: %w", kind, err)
		}
		for _, g := range resp.Genres {
			names[g.ID] = g.Name
		}
	}
	c.genres = names
	return names, nil
}

// TrendingContent returns a title record for every movie and series
// trending this week. Genre names are best effort.
func (c *Collector) TrendingContent(ctx context.Context) ([]*model.StreamingAnalytics, error) {
	items, err := c.trendingItems(ctx)
	if err != nil {
		return nil, err
	}
	names, err := c.genreNames(ctx)
	if err != nil {
		c.log.Warn("genre names unavailable", "err", err)
		names = map[int]string{}
	}

	now := c.now()
	records := make([]*model.StreamingAnalytics, 0, len(items))
	for _, it := range items {
		contentID := it.MediaType + "-" + strconv.FormatInt(it.ID, 10)
		var genre string
		if len(it.GenreIDs) > 0 {
			genre = names[it.GenreIDs[0]]
		}
		var country string
		if len(it.OriginCountry) > 0 {
			country = it.OriginCountry[0]
		}
		records = append(records, &model.StreamingAnalytics{
			ID:              model.MakeID(string(model.DataTypeTitle), contentID, now),
			Platform:        Source,
			ContentID:       contentID,
			Title:           it.title(),
			Genre:           genre,
			ReleaseDate:     it.released(),
			Rating:          model.Float64Ptr(it.VoteAverage),
			PopularityScore: int64(math.Round(it.Popularity)),
			Country:         country,
			ContentType:     it.MediaType,
			CollectedAt:     now,
			DataType:        model.DataTypeTitle,
		})
	}
	return records, nil
}

// GenreAnalytics returns one record per genre present in this week's
// trending list. The popularity score is the number of trending titles in
// the genre and the rating their mean vote average.
func (c *Collector) GenreAnalytics(ctx context.Context) ([]*model.StreamingAnalytics, error) {
	items, err := c.trendingItems(ctx)
	if err != nil {
		return nil, err
	}
	names, err := c.genreNames(ctx)
	if err != nil {
		return nil, err
	}

	type agg struct {
		count  int64
		rating float64
	}
	byGenre := map[int]*agg{}
	for _, it := range items {
		for _, id := range it.GenreIDs {
			a, ok := byGenre[id]
			if !ok {
				a = &agg{}
				byGenre[id] = a
			}
			a.count++
			a.rating += it.VoteAverage
		}
	}

	ids := make([]int, 0, len(byGenre))
	for id := range byGenre {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	now := c.now()
	records := make([]*model.StreamingAnalytics, 0, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			continue
		}
		a := byGenre[id]
		contentID := "genre-" + strconv.Itoa(id)
		records = append(records, &model.StreamingAnalytics{
			ID:              model.MakeID(string(model.DataTypeGenre), strings.ToLower(strings.ReplaceAll(name, " ", "-")), now),
			Platform:        Source,
			ContentID:       contentID,
			Title:           name,
			Genre:           name,
			Rating:          model.Float64Ptr(math.Round(a.rating/float64(a.count)*100) / 100),
			PopularityScore: a.count,
			ContentType:     string(model.DataTypeGenre),
			CollectedAt:     now,
			DataType:        model.DataTypeGenre,
		})
	}
	return records, nil
}

// Collect implements collector.Collector. Trending titles and genre
// aggregates are collected independently; one failing does not drop the other.
func (c *Collector) Collect(ctx context.Context, _ collector.Targets) (*collector.Batch, error) {
	batch := &collector.Batch{Platform: Platform}

	titles, err := c.TrendingContent(ctx)
	if err != nil {
		batch.Fail(c.log, "trending", "week", err)
	}
	for _, r := range titles {
		batch.Add(r)
	}

	genres, err := c.GenreAnalytics(ctx)
	if err != nil {
		batch.Fail(c.log, "genres", "week", err)
	}
	for _, r := range genres {
		batch.Add(r)
	}
	return batch, nil
}
