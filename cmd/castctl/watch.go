package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/castcore/internal/cast"
	"github.com/muurk/castcore/internal/logging"
	"github.com/muurk/castcore/internal/relay"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

var watchListen string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream receiver events, reconnecting when the connection drops",
	Long: `Keeps a connection open and prints every status, media and group
change. With --listen the same events are served to websocket clients at
ws://<addr>/events. Interrupt with Ctrl+C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "Serve events over websocket on this address (e.g. :8080)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg := loadRegistry()
	device, err := resolveDevice(ctx, reg)
	if err != nil {
		return err
	}

	client := cast.NewClient(device, clientConfig(reg))
	defer client.Close()

	var hub *relay.Hub
	if watchListen != "" {
		hub = relay.NewHub(device.String())
		go func() {
			if err := relay.ListenAndServe(ctx, watchListen, hub); err != nil {
				logging.Error("Relay stopped", zap.Error(err))
			}
		}()
	}

	lost := make(chan struct{}, 1)
	go reconnect(ctx, client, lost)

	for {
		select {
		case <-ctx.Done():
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Disconnect(disconnectCtx)
		case e, ok := <-client.Events():
			if !ok {
				return nil
			}
			if hub != nil {
				hub.Publish(e)
			}
			printEvent(device.String(), e)
			if e.Kind == cast.EventDisconnected || e.Kind == cast.EventConnectionFailed {
				select {
				case lost <- struct{}{}:
				default:
				}
			}
		}
	}
}

// reconnect keeps the client connected, backing off after failures
func reconnect(ctx context.Context, client *cast.Client, lost chan struct{}) {
	backoff := minBackoff
	for {
		select {
		case <-lost:
		default:
		}

		connectCtx, cancel := context.WithTimeout(ctx, operationTimeout())
		err := client.Connect(connectCtx)
		cancel()
		if err == nil {
			backoff = minBackoff
			select {
			case <-lost:
			case <-ctx.Done():
				return
			}
		} else {
			logging.Debug("Connect failed", zap.Error(err), zap.Duration("retry_in", backoff))
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func printEvent(device string, e cast.Event) {
	if jsonOutput {
		data, err := json.Marshal(relay.NewMessage(device, e))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}
	fmt.Printf("%s %s\n", e.Time.Format("15:04:05"), e)
}
