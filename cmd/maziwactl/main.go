// Command maziwactl talks to a running maziwa server: it records collections,
// shows rollups and events, and browses the producer and collector directory.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	corecfg "github.com/jolla3/maziwa-smart-sub000/internal/core/config"
	"github.com/jolla3/maziwa-smart-sub000/internal/upstream"
	"github.com/spf13/cobra"
)

// errRejected makes the process exit 2 after a rejection has been printed.
var errRejected = errors.New("write rejected")

var (
	configPath string
	serverURL  string
	token      string
	jsonOutput bool
	verbose    bool

	cfg    *corecfg.Config
	client *upstream.Client
	loc    *time.Location
)

var rootCmd = &cobra.Command{
	Use:           "maziwactl",
	Short:         "Command line client for the maziwa collection ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		var err error
		cfg, err = corecfg.Load(configPath)
		if err != nil {
			return err
		}
		if serverURL != "" {
			cfg.Upstream.BaseURL = serverURL
		}
		if token != "" {
			cfg.Upstream.Token = token
		}
		if loc, err = cfg.Ledger.Location(); err != nil {
			return err
		}

		client, err = upstream.New(upstream.Config{
			BaseURL:   cfg.Upstream.BaseURL,
			Token:     cfg.Upstream.Token,
			Timeout:   corecfg.MustDuration(cfg.Upstream.Timeout),
			RateLimit: cfg.Upstream.RateLimit,
			Burst:     cfg.Upstream.Burst,
		})
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (upstream and ledger sections are used)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server base URL, overrides upstream.base_url")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token, overrides upstream.token")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and cache activity to stderr")

	rootCmd.AddCommand(recordCmd, rollupCmd, eventsCmd, directoryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errRejected) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
