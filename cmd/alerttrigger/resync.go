package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"alerttrigger/internal/config"
	"alerttrigger/internal/ingest"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

const (
	resyncViaNATS = "nats"
	resyncViaHTTP = "http"
)

func resyncEntry(flags *configFlags) *cobra.Command {
	var (
		via     string
		target  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "resync",
		Short: "Ask running coordinators to rebuild trigger state from the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if via == "" {
				via = resyncViaHTTP
				if cfg.Ingest.NATS.Enabled {
					via = resyncViaNATS
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var reply string
			switch via {
			case resyncViaNATS:
				reply, err = requestNATSResync(ctx, cfg.Ingest.NATS)
			case resyncViaHTTP:
				if target == "" {
					target = resyncURL(cfg.Ingest.HTTP)
				}
				reply, err = requestHTTPResync(ctx, http.DefaultClient, target)
			default:
				return fmt.Errorf("unsupported --via value %q", via)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	cmd.Flags().StringVar(&via, "via", "", "transport: nats or http (default nats when ingest.nats is enabled)")
	cmd.Flags().StringVar(&target, "url", "", "resync endpoint URL for --via=http (default derived from ingest.http)")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "time to wait for the resync reply")
	return cmd
}

// requestNATSResync sends resync request and waits for the first reply.
// Params: context bounding the wait and ingest NATS config.
// Returns: reply body or transport/resync error.
func requestNATSResync(ctx context.Context, cfg config.NATSIngestConfig) (string, error) {
	nc, err := nats.Connect(strings.Join(cfg.URL, ","))
	if err != nil {
		return "", fmt.Errorf("connect nats: %w", err)
	}
	defer nc.Close()

	message, err := nc.RequestWithContext(ctx, cfg.ResyncSubject, nil)
	if err != nil {
		return "", fmt.Errorf("resync request %q: %w", cfg.ResyncSubject, err)
	}
	reply := string(message.Data)
	if reply != ingest.ResyncReplyOK {
		return "", errors.New(reply)
	}
	return reply, nil
}

// requestHTTPResync posts to the resync endpoint.
// Params: context, HTTP client, and endpoint URL.
// Returns: response body or request/status error.
func requestHTTPResync(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}
	response, err := client.Do(request)
	if err != nil {
		return "", fmt.Errorf("resync request %s: %w", endpoint, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read resync response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &failure) == nil && failure.Error != "" {
			return "", fmt.Errorf("resync failed with status %d: %s", response.StatusCode, failure.Error)
		}
		return "", fmt.Errorf("resync failed with status %d", response.StatusCode)
	}
	return strings.TrimSpace(string(body)), nil
}

// resyncURL derives local resync endpoint from the HTTP listen address.
// Params: HTTP ingest config.
// Returns: absolute URL; wildcard hosts map to loopback.
func resyncURL(cfg config.HTTPIngestConfig) string {
	host, port, err := net.SplitHostPort(cfg.Listen)
	if err != nil {
		return "http://" + cfg.Listen + cfg.ResyncPath
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + cfg.ResyncPath
}
