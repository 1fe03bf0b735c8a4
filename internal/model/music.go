package model

import (
	"fmt"
	"strings"
	"time"
)

// MusicAnalytics is the flat Spotify analytics record for artists, albums
// and playlists.
type MusicAnalytics struct {
	ID           string    `json:"id"`
	ArtistID     *string   `json:"artist_id"`
	TrackID      *string   `json:"track_id"`
	AlbumID      *string   `json:"album_id"`
	Name         string    `json:"name"`
	Popularity   *int64    `json:"popularity"`
	Followers    *int64    `json:"followers"`
	Genres       []string  `json:"genres"`
	ReleaseDate  string    `json:"release_date"`
	DurationMS   *int64    `json:"duration_ms"`
	Explicit     bool      `json:"explicit"`
	Energy       *float64  `json:"energy"`
	Danceability *float64  `json:"danceability"`
	Valence      *float64  `json:"valence"`
	CollectedAt  time.Time `json:"collected_at"`
	DataType     DataType  `json:"data_type"`

	PlaylistID *string `json:"playlist_id,omitempty"`
	TrackCount *int64  `json:"track_count,omitempty"`
}

var _ Row = (*MusicAnalytics)(nil)

func (m *MusicAnalytics) RecordID() string { return m.ID }

func (m *MusicAnalytics) Source() Source { return SourceSpotify }

func (m *MusicAnalytics) Validate() error {
	var ve ValidationError
	ve.required("id", m.ID)
	ve.required("name", m.Name)
	switch m.DataType {
	case DataTypeArtist:
		if m.ArtistID == nil {
			ve.add("artist_id", "is required for artist records")
		}
	case DataTypeAlbum:
		if m.AlbumID == nil {
			ve.add("album_id", "is required for album records")
		}
	case DataTypePlaylist:
		if m.PlaylistID == nil {
			ve.add("playlist_id", "is required for playlist records")
		}
	default:
		ve.add("data_type", fmt.Sprintf("invalid value %q", m.DataType))
	}
	if m.Popularity != nil && (*m.Popularity < 0 || *m.Popularity > 100) {
		ve.add("popularity", "must be between 0 and 100")
	}
	ve.nonNegativePtr("followers", m.Followers)
	ve.nonNegativePtr("duration_ms", m.DurationMS)
	ve.date("release_date", m.ReleaseDate)
	ve.ratio("energy", m.Energy)
	ve.ratio("danceability", m.Danceability)
	ve.ratio("valence", m.Valence)
	return ve.err()
}

func (m *MusicAnalytics) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	genres := make([]string, len(m.Genres))
	for i, g := range m.Genres {
		genres[i] = strings.ToLower(g)
	}
	m.Genres = cleanTags(genres)
}

func (m *MusicAnalytics) NullCount() int {
	return countNil(m.ArtistID, m.TrackID, m.AlbumID, m.Popularity, m.Followers,
		m.ReleaseDate, m.DurationMS, m.Energy, m.Danceability, m.Valence)
}

func (m *MusicAnalytics) NullableFields() int { return 10 }

func (m *MusicAnalytics) Columns() []string {
	return []string{
		"id", "artist_id", "track_id", "album_id", "name", "popularity", "followers",
		"genres", "release_date", "duration_ms", "explicit", "energy", "danceability",
		"valence", "collected_at", "data_type", "playlist_id", "track_count",
	}
}

func (m *MusicAnalytics) Values() []any {
	return []any{
		m.ID, m.ArtistID, m.TrackID, m.AlbumID, m.Name, m.Popularity, m.Followers,
		m.Genres, releaseDate(m.ReleaseDate), m.DurationMS, m.Explicit, m.Energy, m.Danceability,
		m.Valence, m.CollectedAt, string(m.DataType), m.PlaylistID, m.TrackCount,
	}
}

// releaseDate widens year or year-month precision dates to a full date so
// they fit a DATE column.
func releaseDate(v string) any {
	switch len(v) {
	case 0:
		return nil
	case 4:
		return v + "-01-01"
	case 7:
		return v + "-01"
	default:
		return v
	}
}
