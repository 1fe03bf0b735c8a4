// Package spotify collects artist, album and playlist analytics from the
// Spotify Web API using the client-credentials flow.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/contentflow/internal/collector"
	"github.com/alfredjeanlab/contentflow/internal/collector/httpclient"
	"github.com/alfredjeanlab/contentflow/internal/model"
)

// Platform is the registry name of the Spotify collector.
const Platform = "spotify"

const (
	defaultEndpoint     = "https://api.spotify.com/v1"
	defaultAuthEndpoint = "https://accounts.spotify.com"
	albumPageSize       = "50"
)

// tokenSlack is subtracted from the token lifetime so a token is never used
// right at its expiry.
const tokenSlack = 60 * time.Second

func init() {
	collector.Register(Platform, func(cfg collector.Config) (collector.Collector, error) {
		return New(cfg)
	})
}

// Collector talks to the Spotify Web API.
type Collector struct {
	api          *httpclient.Client
	auth         *httpclient.Client
	clientID     string
	clientSecret string
	log          *slog.Logger
	now          func() time.Time

	token   string
	expires time.Time
}

// New creates a Spotify collector. cfg.APIKey is the client ID and
// cfg.Secret the client secret. Extra["auth_endpoint"] overrides the
// accounts service URL.
func New(cfg collector.Config) (*Collector, error) {
	if cfg.APIKey == "" || cfg.Secret == "" {
		return nil, errors.New("spotify: client id and secret are required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	authEndpoint := cfg.Extra["auth_endpoint"]
	if authEndpoint == "" {
		authEndpoint = defaultAuthEndpoint
	}

	c := &Collector{
		clientID:     cfg.APIKey,
		clientSecret: cfg.Secret,
		log:          cfg.Log().With("platform", Platform),
		now:          time.Now,
	}
	c.auth = httpclient.New(authEndpoint, cfg.ClientOptions()...)
	c.api = httpclient.New(endpoint, append(cfg.ClientOptions(),
		httpclient.WithTokenFunc(c.accessToken),
		httpclient.WithQuota(cfg.QuotaOrNew()),
	)...)
	return c, nil
}

// Platform implements collector.Collector.
func (c *Collector) Platform() string { return Platform }

// Quota returns the request counter of the Web API client.
func (c *Collector) Quota() *httpclient.Quota { return c.api.Quota() }

// accessToken returns the cached token, exchanging the client credentials
// for a new one when it is missing or about to expire.
func (c *Collector) accessToken(ctx context.Context) (string, error) {
	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	form := url.Values{"grant_type": {"client_credentials"}}
	if err := c.auth.PostForm(ctx, "/api/token", form, c.clientID, c.clientSecret, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errors.New("token response carried no access_token")
	}
	c.token = resp.AccessToken
	c.expires = c.now().Add(time.Duration(resp.ExpiresIn)*time.Second - tokenSlack)
	return c.token, nil
}

type followers struct {
	Total int64 `json:"total"`
}

type artistResource struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Popularity int64     `json:"popularity"`
	Followers  followers `json:"followers"`
	Genres     []string  `json:"genres"`
}

// Album is an entry of an artist's discography.
type Album struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	TotalTracks int64  `json:"total_tracks"`
}

type trackResource struct {
	ID         string `json:"id"`
	DurationMS int64  `json:"duration_ms"`
	Explicit   bool   `json:"explicit"`
}

type albumResource struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Popularity  int64    `json:"popularity"`
	ReleaseDate string   `json:"release_date"`
	Genres      []string `json:"genres"`
	Artists     []struct {
		ID string `json:"id"`
	} `json:"artists"`
	Tracks struct {
		Items []trackResource `json:"items"`
	} `json:"tracks"`
}

// ArtistAnalytics returns the artist record for artistID.
func (c *Collector) ArtistAnalytics(ctx context.Context, artistID string) (*model.MusicAnalytics, error) {
	var a artistResource
	if err := c.api.GetJSON(ctx, "/artists/"+url.PathEscape(artistID), nil, &a); err != nil {
		return nil, fmt.Errorf("fetch artist %s: %w", artistID, err)
	}
	now := c.now()
	genres := a.Genres
	if genres == nil {
		genres = []string{}
	}
	return &model.MusicAnalytics{
		ID:          model.MakeID(string(model.DataTypeArtist), artistID, now),
		ArtistID:    model.StringPtr(artistID),
		Name:        a.Name,
		Popularity:  model.Int64Ptr(a.Popularity),
		Followers:   model.Int64Ptr(a.Followers.Total),
		Genres:      genres,
		CollectedAt: now,
		DataType:    model.DataTypeArtist,
	}, nil
}

// ArtistAlbums returns the albums and singles of an artist, following pagination.
func (c *Collector) ArtistAlbums(ctx context.Context, artistID string) ([]Album, error) {
	q := url.Values{}
	q.Set("include_groups", "album,single")
	q.Set("limit", albumPageSize)

	albums := []Album{}
	path := "/artists/" + url.PathEscape(artistID) + "/albums"
	for {
		var page struct {
			Items []Album `json:"items"`
			Next  string  `json:"next"`
		}
		if err := c.api.GetJSON(ctx, path, q, &page); err != nil {
			return albums, fmt.Errorf("fetch albums of %s: %w", artistID, err)
		}
		albums = append(albums, page.Items...)
		if page.Next == "" || len(page.Items) == 0 {
			return albums, nil
		}
		next, err := url.Parse(page.Next)
		if err != nil {
			return albums, fmt.Errorf("parse next page of %s: %w", artistID, err)
		}
		q = next.Query()
	}
}

// AlbumAnalytics returns the album record for albumID: the summed track
// durations, whether any track is explicit, and averaged audio features.
// Audio features are best effort; when they cannot be fetched the feature
// fields stay null.
func (c *Collector) AlbumAnalytics(ctx context.Context, albumID string) (*model.MusicAnalytics, error) {
	var a albumResource
	if err := c.api.GetJSON(ctx, "/albums/"+url.PathEscape(albumID), nil, &a); err != nil {
		return nil, fmt.Errorf("fetch album %s: %w", albumID, err)
	}

	var duration int64
	explicit := false
	trackIDs := make([]string, 0, len(a.Tracks.Items))
	for _, t := range a.Tracks.Items {
		duration += t.DurationMS
		explicit = explicit || t.Explicit
		if t.ID != "" {
			trackIDs = append(trackIDs, t.ID)
		}
	}

	now := c.now()
	genres := a.Genres
	if genres == nil {
		genres = []string{}
	}
	m := &model.MusicAnalytics{
		ID:          model.MakeID(string(model.DataTypeAlbum), albumID, now),
		AlbumID:     model.StringPtr(albumID),
		Name:        a.Name,
		Popularity:  model.Int64Ptr(a.Popularity),
		Genres:      genres,
		ReleaseDate: a.ReleaseDate,
		DurationMS:  model.Int64Ptr(duration),
		Explicit:    explicit,
		CollectedAt: now,
		DataType:    model.DataTypeAlbum,
		TrackCount:  model.Int64Ptr(int64(len(a.Tracks.Items))),
	}
	if len(a.Artists) > 0 {
		m.ArtistID = model.StringPtr(a.Artists[0].ID)
	}

	if len(trackIDs) > 0 {
		f, err := c.AudioFeatures(ctx, trackIDs)
		if err != nil {
			c.log.Warn("audio features unavailable", "album_id", albumID, "err", err)
		} else if f != nil {
			m.Energy = model.Float64Ptr(f.Energy)
			m.Danceability = model.Float64Ptr(f.Danceability)
			m.Valence = model.Float64Ptr(f.Valence)
		}
	}
	return m, nil
}

// Features holds audio features averaged over a set of tracks.
type Features struct {
	Energy       float64
	Danceability float64
	Valence      float64
}

// maxFeatureIDs is the largest number of ids /audio-features accepts.
const maxFeatureIDs = 100

// AudioFeatures averages the audio features of the given tracks. Tracks the
// API has no features for are ignored; nil is returned when none have any.
func (c *Collector) AudioFeatures(ctx context.Context, trackIDs []string) (*Features, error) {
	var sum Features
	n := 0
	for start := 0; start < len(trackIDs); start += maxFeatureIDs {
		end := min(start+maxFeatureIDs, len(trackIDs))
		q := url.Values{}
		q.Set("ids", strings.Join(trackIDs[start:end], ","))

		var resp struct {
			AudioFeatures []*struct {
				Energy       float64 `json:"energy"`
				Danceability float64 `json:"danceability"`
				Valence      float64 `json:"valence"`
			} `json:"audio_features"`
		}
		if err := c.api.GetJSON(ctx, "/audio-features", q, &resp); err != nil {
			return nil, fmt.Errorf("fetch audio features: %w", err)
		}
		for _, f := range resp.AudioFeatures {
			if f == nil {
				continue
			}
			sum.Energy += f.Energy
			sum.Danceability += f.Danceability
			sum.Valence += f.Valence
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	return &Features{
		Energy:       sum.Energy / float64(n),
		Danceability: sum.Danceability / float64(n),
		Valence:      sum.Valence / float64(n),
	}, nil
}

// PlaylistAnalytics returns the playlist record for playlistID.
func (c *Collector) PlaylistAnalytics(ctx context.Context, playlistID string) (*model.MusicAnalytics, error) {
	var p struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Followers followers `json:"followers"`
		Tracks    struct {
			Total int64 `json:"total"`
		} `json:"tracks"`
	}
	q := url.Values{}
	q.Set("fields", "id,name,followers(total),tracks(total)")
	if err := c.api.GetJSON(ctx, "/playlists/"+url.PathEscape(playlistID), q, &p); err != nil {
		return nil, fmt.Errorf("fetch playlist %s: %w", playlistID, err)
	}
	now := c.now()
	return &model.MusicAnalytics{
		ID:          model.MakeID(string(model.DataTypePlaylist), playlistID, now),
		Name:        p.Name,
		Followers:   model.Int64Ptr(p.Followers.Total),
		Genres:      []string{},
		CollectedAt: now,
		DataType:    model.DataTypePlaylist,
		PlaylistID:  model.StringPtr(playlistID),
		TrackCount:  model.Int64Ptr(p.Tracks.Total),
	}, nil
}

// Collect implements collector.Collector: every artist with its albums, then
// every playlist. Failures are isolated per item.
func (c *Collector) Collect(ctx context.Context, targets collector.Targets) (*collector.Batch, error) {
	batch := &collector.Batch{Platform: Platform}
	for _, artistID := range targets.SpotifyArtists {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		artist, err := c.ArtistAnalytics(ctx, artistID)
		if err != nil {
			batch.Fail(c.log, "artist", artistID, err)
			continue
		}
		batch.Add(artist)

		albums, err := c.ArtistAlbums(ctx, artistID)
		if err != nil {
			batch.Fail(c.log, "artist_albums", artistID, err)
		}
		for _, album := range albums {
			analytics, err := c.AlbumAnalytics(ctx, album.ID)
			if err != nil {
				batch.Fail(c.log, "album", album.ID, err)
				continue
			}
			batch.Add(analytics)
		}
		c.log.Info("collected artist", "artist_id", artistID, "albums", len(albums))
	}

	for _, playlistID := range targets.SpotifyPlaylists {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		playlist, err := c.PlaylistAnalytics(ctx, playlistID)
		if err != nil {
			batch.Fail(c.log, "playlist", playlistID, err)
			continue
		}
		batch.Add(playlist)
	}
	return batch, nil
}
