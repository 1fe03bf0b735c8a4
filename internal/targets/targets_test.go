package targets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alfredjeanlab/contentflow/internal/collector"
)

func TestLoadMissingFile(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(Entries(got)) != 0 {
		t.Errorf("targets = %+v, want empty", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.toml")
	content := `
youtube_channels = ["UC_x5XG1OV2P6uZZ5FSM9Ttw"]
youtube_region = "GB"
spotify_artists = ["4Z8W4fKeB5YxbusRsdQVPb"]
twitter_handles = ["golang"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.YouTubeRegion != "GB" || len(got.YouTubeChannels) != 1 || got.TwitterHandles[0] != "golang" {
		t.Errorf("targets = %+v", got)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.toml")
	if err := os.WriteFile(path, []byte("youtube_channels = ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "targets.toml")
	in := collector.Targets{
		YouTubeChannels:   []string{"UC1", "UC2"},
		SpotifyPlaylists:  []string{"pl1"},
		InstagramAccounts: []string{"1784"},
	}
	if err := Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if strings.Join(out.YouTubeChannels, ",") != "UC1,UC2" || out.SpotifyPlaylists[0] != "pl1" || out.InstagramAccounts[0] != "1784" {
		t.Errorf("round trip = %+v", out)
	}
}

func TestAddRemove(t *testing.T) {
	var tg collector.Targets

	added, err := Add(&tg, KindSpotifyArtist, " artist1 ")
	if err != nil || !added {
		t.Fatalf("Add = (%v, %v)", added, err)
	}
	added, _ = Add(&tg, KindSpotifyArtist, "artist1")
	if added {
		t.Error("duplicate add should report false")
	}
	if len(tg.SpotifyArtists) != 1 || tg.SpotifyArtists[0] != "artist1" {
		t.Errorf("artists = %v", tg.SpotifyArtists)
	}

	removed, err := Remove(&tg, KindSpotifyArtist, "artist1")
	if err != nil || !removed {
		t.Fatalf("Remove = (%v, %v)", removed, err)
	}
	removed, _ = Remove(&tg, KindSpotifyArtist, "artist1")
	if removed {
		t.Error("second remove should report false")
	}

	if _, err := Add(&tg, "myspace_friend", "tom"); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := Add(&tg, KindTwitterHandle, "  "); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestEntries(t *testing.T) {
	tg := collector.Targets{
		YouTubeChannels: []string{"UC1"},
		TwitterHandles:  []string{"a", "b"},
	}
	var got []string
	for _, e := range Entries(tg) {
		got = append(got, e.Kind+"="+e.ID)
	}
	want := "twitter_handle=a,twitter_handle=b,youtube_channel=UC1"
	if strings.Join(got, ",") != want {
		t.Errorf("Entries = %v, want %s", got, want)
	}
}
