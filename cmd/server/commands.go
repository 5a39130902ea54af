package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/studio-gateway/internal/config"
	"github.com/jrsteele09/studio-gateway/server"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "studio-gateway",
	Short: "Session gateway for the studio console",
	Long: `studio-gateway serves the studio console and owns its browser sessions.
It completes the backend login handshake, keeps access tokens server side,
refreshes them when they expire and proxies /api/v1 calls to the backend.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway (default)",
	RunE: func(_ *cobra.Command, _ []string) error {
		c := config.New()
		setupLogging(c)
		displayAppname(c.GetAppName())
		return serve(c)
	},
}

var healthTimeout time.Duration

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe the local gateway's health endpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c := config.New()
		ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
		defer cancel()
		return probeHealth(ctx, healthURL(c.GetPort()))
	},
}

func init() {
	healthcheckCmd.Flags().DurationVar(&healthTimeout, "timeout", 3*time.Second, "probe timeout")
	rootCmd.AddCommand(serveCmd, healthcheckCmd)
}

func healthURL(port string) string {
	if strings.HasPrefix(port, ":") {
		port = "localhost" + port
	}
	return "http://" + port + server.RouteHealth
}

func probeHealth(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe returned %d", resp.StatusCode)
	}
	return nil
}
