package main

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/castcore/internal/cast"
	"github.com/muurk/castcore/internal/protocol"
	"github.com/muurk/castcore/internal/relay"
)

// Load flags
var (
	loadTitle       string
	loadContentType string
	loadPoster      string
	loadLive        bool
	loadStart       string
	loadPaused      bool
	loadApp         string
)

var muteOff bool

var loadCmd = &cobra.Command{
	Use:   "load <url>",
	Short: "Load media into the media receiver",
	Long: `Launches (or joins) the media receiver app and loads the given URL.
The content type is guessed from the file extension when --content-type is
not given.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Resume playback",
	RunE: mediaRunner(func(ctx context.Context, c *cast.Client) error {
		return c.Play(ctx)
	}),
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	RunE: mediaRunner(func(ctx context.Context, c *cast.Client) error {
		return c.Pause(ctx)
	}),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop playback",
	RunE: mediaRunner(func(ctx context.Context, c *cast.Client) error {
		return c.StopMedia(ctx)
	}),
}

var seekCmd = &cobra.Command{
	Use:   "seek <position>",
	Short: "Seek to a position (seconds, mm:ss, hh:mm:ss or 1m30s)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seconds, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		return mediaRunner(func(ctx context.Context, c *cast.Client) error {
			return c.Seek(ctx, seconds)
		})(cmd, args)
	},
}

var mediaStatusCmd = &cobra.Command{
	Use:   "media",
	Short: "Show the current media status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *cast.Client) error {
			if _, err := c.Join(ctx, nil); err != nil {
				return err
			}
			m, err := c.RequestMediaStatus(ctx, nil, nil)
			if err != nil {
				return err
			}
			return printMedia(m)
		})
	},
}

var volumeCmd = &cobra.Command{
	Use:   "volume <level>",
	Short: "Set the receiver volume (0-1, or a percentage)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseVolume(args[0])
		if err != nil {
			return err
		}
		return withClient(cmd.Context(), func(ctx context.Context, c *cast.Client) error {
			if err := c.SetVolume(ctx, level); err != nil {
				return err
			}
			fmt.Printf("Volume set to %.0f%%\n", level*100)
			return nil
		})
	},
}

var muteCmd = &cobra.Command{
	Use:   "mute",
	Short: "Mute the receiver (--off to unmute)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *cast.Client) error {
			return c.SetMuted(ctx, !muteOff)
		})
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadTitle, "title", "", "Title shown by the receiver (default is the file name)")
	loadCmd.Flags().StringVar(&loadContentType, "content-type", "", "MIME type of the media")
	loadCmd.Flags().StringVar(&loadPoster, "poster", "", "Poster image URL")
	loadCmd.Flags().BoolVar(&loadLive, "live", false, "Treat the media as a live stream")
	loadCmd.Flags().StringVar(&loadStart, "start", "", "Start position")
	loadCmd.Flags().BoolVar(&loadPaused, "paused", false, "Load without starting playback")
	loadCmd.Flags().StringVar(&loadApp, "app", "", "Media app to launch (default is the configured default app)")

	muteCmd.Flags().BoolVar(&muteOff, "off", false, "Unmute instead")

	for _, c := range []*cobra.Command{loadCmd, playCmd, pauseCmd, stopCmd, seekCmd, mediaStatusCmd, volumeCmd, muteCmd} {
		rootCmd.AddCommand(c)
	}
}

// mediaRunner joins the running app before issuing a media control
func mediaRunner(fn func(ctx context.Context, c *cast.Client) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *cast.Client) error {
			if _, err := c.Join(ctx, nil); err != nil {
				return err
			}
			return fn(ctx, c)
		})
	}
}

func runLoad(cmd *cobra.Command, args []string) error {
	media, err := buildMedia(args[0])
	if err != nil {
		return err
	}

	appID := loadApp
	if appID == "" {
		appID = loadRegistry().Preferences.DefaultApp
	}
	if appID == "" {
		appID = protocol.DefaultMediaReceiverAppID
	}

	return withClient(cmd.Context(), func(ctx context.Context, c *cast.Client) error {
		app, err := c.Launch(ctx, appID)
		if err != nil {
			return err
		}
		status, err := c.Load(ctx, media, &app)
		if err != nil {
			return err
		}
		return printMedia(status)
	})
}

// buildMedia fills a load description from the command line
func buildMedia(url string) (protocol.Media, error) {
	m := protocol.Media{
		URL:         url,
		Title:       loadTitle,
		PosterURL:   loadPoster,
		ContentType: loadContentType,
		StreamType:  protocol.StreamBuffered,
		Autoplay:    !loadPaused,
	}
	if m.Title == "" {
		m.Title = path.Base(strings.SplitN(url, "?", 2)[0])
	}
	if m.ContentType == "" {
		m.ContentType = guessContentType(url)
	}
	if loadLive {
		m.StreamType = protocol.StreamLive
	}
	if loadStart != "" {
		start, err := parsePosition(loadStart)
		if err != nil {
			return m, err
		}
		m.CurrentTime = start
	}
	return m, nil
}

// guessContentType maps the URL's extension to a MIME type
func guessContentType(url string) string {
	ext := strings.ToLower(path.Ext(strings.SplitN(url, "?", 2)[0]))
	switch ext {
	case ".m3u8":
		return "application/x-mpegURL"
	case ".mpd":
		return "application/dash+xml"
	case ".mkv":
		return "video/x-matroska"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return strings.SplitN(t, ";", 2)[0]
	}
	return "video/mp4"
}

// parsePosition accepts seconds, [hh:]mm:ss or a Go duration
func parsePosition(s string) (float64, error) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("invalid position %q: must not be negative", s)
		}
		return v, nil
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		var total float64
		for _, p := range parts {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil || v < 0 {
				return 0, fmt.Errorf("invalid position %q", s)
			}
			total = total*60 + v
		}
		return total, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return d.Seconds(), nil
}

// parseVolume accepts a 0-1 level or a 0-100 percentage ("40", "40%")
func parseVolume(s string) (float64, error) {
	percent := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q", s)
	}
	if percent || v > 1 {
		v /= 100
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("volume %q out of range", s)
	}
	return v, nil
}

func printMedia(m *protocol.MediaStatus) error {
	if m == nil {
		if jsonOutput {
			return printJSON(nil)
		}
		fmt.Println("No active media")
		return nil
	}
	if jsonOutput {
		return printJSON(relay.NewMedia(m))
	}
	fmt.Printf("Media session %d: %s at %s\n", m.MediaSessionID, m.PlayerState,
		(time.Duration(m.CurrentTime * float64(time.Second))).Truncate(time.Second))
	if m.ContentID != "" {
		fmt.Printf("Content: %s\n", m.ContentID)
	}
	if m.IdleReason != "" {
		fmt.Printf("Idle reason: %s\n", m.IdleReason)
	}
	return nil
}
