package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/contentflow/internal/collector/youtube"
	"github.com/alfredjeanlab/contentflow/internal/pipeline"
	"github.com/alfredjeanlab/contentflow/internal/targets"
)

var youtubeCmd = &cobra.Command{
	Use:     "youtube",
	Short:   "Query the YouTube Data API directly",
	GroupID: "tools",
}

func newYouTube() (*youtube.Collector, error) {
	return youtube.New(pipeline.CollectorConfig(cfg, youtube.Platform, nil, logger))
}

func region(cmd *cobra.Command) string {
	if r, _ := cmd.Flags().GetString("region"); r != "" {
		return r
	}
	return cfg.YouTubeRegion
}

// truncate shortens s to n runes for table output.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

var youtubeTrendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "List the most popular videos of a region",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("max")
		yt, err := newYouTube()
		if err != nil {
			return err
		}
		videos, err := yt.TrendingVideos(cmd.Context(), region(cmd), limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(videos)
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "VIDEO\tVIEWS\tCHANNEL\tTITLE")
		for _, v := range videos {
			id := ""
			if v.VideoID != nil {
				id = *v.VideoID
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", id, v.ViewCount, v.ChannelID, truncate(v.Title, 60))
		}
		return tw.Flush()
	},
}

var youtubeSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search videos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("max")
		days, _ := cmd.Flags().GetInt("days")
		var after time.Time
		if days > 0 {
			after = time.Now().AddDate(0, 0, -days)
		}
		yt, err := newYouTube()
		if err != nil {
			return err
		}
		results, err := yt.SearchVideos(cmd.Context(), args[0], limit, after)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(results)
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "VIDEO\tPUBLISHED\tCHANNEL\tTITLE")
		for _, r := range results {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.PublishedAt, r.ChannelID, truncate(r.Title, 60))
		}
		return tw.Flush()
	},
}

var youtubeCommentsCmd = &cobra.Command{
	Use:   "comments <video-id>",
	Short: "List top-level comments of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("max")
		yt, err := newYouTube()
		if err != nil {
			return err
		}
		comments, err := yt.VideoComments(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(comments)
			return nil
		}
		if len(comments) == 0 {
			fmt.Println("No comments.")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "AUTHOR\tLIKES\tREPLIES\tTEXT")
		for _, c := range comments {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", c.Author, c.LikeCount, c.ReplyCount, truncate(c.Text, 70))
		}
		return tw.Flush()
	},
}

var youtubeCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the video categories of a region",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yt, err := newYouTube()
		if err != nil {
			return err
		}
		categories, err := yt.Categories(cmd.Context(), region(cmd))
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(categories)
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE")
		for _, c := range categories {
			fmt.Fprintf(tw, "%s\t%s\n", c.ID, c.Title)
		}
		return tw.Flush()
	},
}

var youtubeSectionsCmd = &cobra.Command{
	Use:   "sections <channel-id>",
	Short: "List the sections of a channel page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yt, err := newYouTube()
		if err != nil {
			return err
		}
		sections, err := yt.ChannelSections(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(sections)
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "POSITION\tTYPE\tTITLE")
		for _, s := range sections {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Position, s.Type, s.Title)
		}
		return tw.Flush()
	},
}

var youtubePlaylistsCmd = &cobra.Command{
	Use:   "playlists <channel-id>",
	Short: "List the playlists of a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yt, err := newYouTube()
		if err != nil {
			return err
		}
		playlists, err := yt.ChannelPlaylists(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(playlists)
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PLAYLIST\tITEMS\tTITLE")
		for _, p := range playlists {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", p.ID, p.ItemCount, truncate(p.Title, 60))
		}
		return tw.Flush()
	},
}

var youtubeDumpCmd = &cobra.Command{
	Use:   "dump [channel-id...]",
	Short: "Collect everything about channels into one JSON file",
	Long: `Collect trending videos plus, per channel, its analytics, recent videos
with top comments and its playlists. Without arguments the youtube_channel
targets are used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		channels := args
		if len(channels) == 0 {
			t, err := targets.Load(cfg.TargetsPath())
			if err != nil {
				return err
			}
			channels = t.YouTubeChannels
		}
		if len(channels) == 0 {
			return fmt.Errorf("no channels given and no %s targets configured", targets.KindYouTubeChannel)
		}
		yt, err := newYouTube()
		if err != nil {
			return err
		}
		all := yt.CollectComprehensive(cmd.Context(), channels, region(cmd))
		if out == "" {
			out = filepath.Join(cfg.DataDir, fmt.Sprintf("youtube_comprehensive_%s.json", time.Now().UTC().Format(time.DateOnly)))
		}
		if err := writeJSONFile(out, all); err != nil {
			return err
		}
		fmt.Printf("Wrote %d channels, %d videos, %d comments, %d playlists, %d trending to %s\n",
			len(all.Channels), len(all.Videos), len(all.Comments), len(all.Playlists), len(all.Trending), out)
		return nil
	},
}

func init() {
	youtubeTrendingCmd.Flags().String("region", "", "region code (default CONTENTFLOW_YOUTUBE_REGION)")
	youtubeTrendingCmd.Flags().Int("max", 25, "maximum number of videos")
	youtubeSearchCmd.Flags().Int("max", 25, "maximum number of results")
	youtubeSearchCmd.Flags().Int("days", 0, "only videos published in the last N days")
	youtubeCommentsCmd.Flags().Int("max", 20, "maximum number of comments")
	youtubeCategoriesCmd.Flags().String("region", "", "region code (default CONTENTFLOW_YOUTUBE_REGION)")
	youtubeDumpCmd.Flags().String("region", "", "region code for trending videos")
	youtubeDumpCmd.Flags().String("out", "", "output file (default <data_dir>/youtube_comprehensive_<date>.json)")

	youtubeCmd.AddCommand(
		youtubeTrendingCmd,
		youtubeSearchCmd,
		youtubeCommentsCmd,
		youtubeCategoriesCmd,
		youtubeSectionsCmd,
		youtubePlaylistsCmd,
		youtubeDumpCmd,
	)
}
