package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmcdole/librovault/internal/app"
	"github.com/mmcdole/librovault/internal/config"
	"github.com/mmcdole/librovault/internal/log"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		serverURL  string
		clearCache bool
	)

	cmd := &cobra.Command{
		Use:           "librovault",
		Short:         "Manage your book libraries from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if serverURL != "" {
				cfg.API.BaseURL = strings.TrimSpace(serverURL)
			}
			if clearCache {
				if err := config.ClearCache(cfg); err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&serverURL, "server", "", "library store base URL (overrides config)")
	cmd.Flags().BoolVar(&clearCache, "clear-cache", false, "wipe the local library cache before starting")
	cmd.SetVersionTemplate("librovault {{.Version}}\n")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadConfig()
	}
	return config.Load(path)
}

func run(cfg *config.Config) error {
	// Setup logger
	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting librovault", "version", Version, "server", cfg.API.BaseURL)

	a, err := app.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sh := newShell(a, cfg, bufio.NewScanner(os.Stdin), os.Stdout)
	sh.run()

	// Remember the last user for the next prompt
	if name := a.Session.Username(); name != "" && name != cfg.Auth.Username {
		cfg.Auth.Username = name
		if err := config.SaveConfig(cfg); err != nil {
			logger.Error("failed to save config", "error", err)
		}
	}

	logger.Info("shutting down")
	return nil
}
