// Package targets reads and edits the TOML file listing the entities each
// collector gathers.
package targets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/contentflow/internal/collector"
)

// Target kinds accepted by Add and Remove.
const (
	KindYouTubeChannel   = "youtube_channel"
	KindSpotifyArtist    = "spotify_artist"
	KindSpotifyPlaylist  = "spotify_playlist"
	KindTwitterHandle    = "twitter_handle"
	KindInstagramAccount = "instagram_account"
)

// field returns the list of t holding kind.
func field(t *collector.Targets, kind string) (*[]string, error) {
	switch kind {
	case KindYouTubeChannel:
		return &t.YouTubeChannels, nil
	case KindSpotifyArtist:
		return &t.SpotifyArtists, nil
	case KindSpotifyPlaylist:
		return &t.SpotifyPlaylists, nil
	case KindTwitterHandle:
		return &t.TwitterHandles, nil
	case KindInstagramAccount:
		return &t.InstagramAccounts, nil
	}
	return nil, fmt.Errorf("unknown target kind %q (valid: %s)", kind, strings.Join(Kinds(), ", "))
}

// Kinds returns every target kind, sorted.
func Kinds() []string {
	kinds := []string{KindYouTubeChannel, KindSpotifyArtist, KindSpotifyPlaylist, KindTwitterHandle, KindInstagramAccount}
	sort.Strings(kinds)
	return kinds
}

// Load reads the targets file. A missing file yields empty targets.
func Load(path string) (collector.Targets, error) {
	var t collector.Targets
	if _, err := toml.DecodeFile(path, &t); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return collector.Targets{}, nil
		}
		return collector.Targets{}, fmt.Errorf("read targets %s: %w", path, err)
	}
	return t, nil
}

// Save writes t to path, creating the parent directory.
func Save(path string, t collector.Targets) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create targets dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open targets %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(t); err != nil {
		return fmt.Errorf("write targets %s: %w", path, err)
	}
	return nil
}

// Add appends id to the list of kind. It reports false when id was
// already present.
func Add(t *collector.Targets, kind, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, errors.New("target id must not be empty")
	}
	list, err := field(t, kind)
	if err != nil {
		return false, err
	}
	if slices.Contains(*list, id) {
		return false, nil
	}
	*list = append(*list, id)
	return true, nil
}

// Remove deletes id from the list of kind. It reports whether id was present.
func Remove(t *collector.Targets, kind, id string) (bool, error) {
	list, err := field(t, kind)
	if err != nil {
		return false, err
	}
	i := slices.Index(*list, id)
	if i < 0 {
		return false, nil
	}
	*list = slices.Delete(*list, i, i+1)
	return true, nil
}

// Entry is one target of a flattened listing.
type Entry struct {
	Kind string
	ID   string
}

// Entries flattens t, ordered by kind and then file order.
func Entries(t collector.Targets) []Entry {
	var out []Entry
	for _, kind := range Kinds() {
		list, _ := field(&t, kind)
		for _, id := range *list {
			out = append(out, Entry{Kind: kind, ID: id})
		}
	}
	return out
}
