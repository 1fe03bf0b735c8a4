package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/contentflow/internal/client"
	"github.com/alfredjeanlab/contentflow/internal/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow pipeline events as they happen",
	Long: `Follow pipeline events. With CONTENTFLOW_NATS_URL set, events are read
from the bus; otherwise from the event stream of a running "contentflow serve"
(--url).`,
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		base, _ := cmd.Flags().GetString("url")

		ctx, stop := signalContext()
		defer stop()

		show := func(e events.Event) {
			if jsonOutput {
				printJSON(e)
				return
			}
			fmt.Println(formatEvent(e))
		}
		if cfg.NATSURL != "" && base == "" {
			return watchNATS(ctx, topic, show)
		}
		return newStatusClient(base).Stream(ctx, topic, show)
	},
}

func init() {
	watchCmd.Flags().String("topic", events.TopicAll, "topic pattern to follow")
	watchCmd.Flags().String("url", "", "base URL of a contentflow server (default from CONTENTFLOW_HTTP_ADDR)")
}

// newStatusClient returns a status API client for base, defaulting to the
// configured HTTP address on localhost.
func newStatusClient(base string) *client.HTTPClient {
	if base == "" {
		base = "http://" + cfg.HTTPAddr
		if strings.HasPrefix(cfg.HTTPAddr, ":") {
			base = "http://localhost" + cfg.HTTPAddr
		}
	}
	return client.NewHTTPClient(base, cfg.StatusToken, logger)
}

func watchNATS(ctx context.Context, topic string, show func(events.Event)) error {
	sub, err := events.NewNATSSubscriber(cfg.NATSURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			show(e)
		}
	}
}
