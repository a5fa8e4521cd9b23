// Package cmd implements waywall's command-line entrypoint.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tesselslate/waywall/internal/config"
	"github.com/tesselslate/waywall/internal/logger"
	"github.com/tesselslate/waywall/internal/server"
)

var (
	// Version is set during build via -ldflags.
	Version = "0.1.0-dev"

	flagConfigPath string
	flagLogLevel   string
	flagLogFile    string
	flagSocket     string

	rootCmd = &cobra.Command{
		Use:   "waywall",
		Short: "waywall - nested Wayland compositor for Minecraft speedrunning",
		Long: `waywall hosts a single Minecraft game window (plus a handful of helper
windows) inside a nested Wayland compositor, layered between the game and the
host compositor, so that it can inject synthetic input, switch resolutions
without losing the GL context, and expose the game's state to Lua scripts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
)

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.Flags().StringVarP(&flagConfigPath, "config", "c", "", "path to waywall.toml (default: ~/.config/waywall/waywall.toml, then ./waywall.toml)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error, fatal)")
	rootCmd.Flags().StringVar(&flagLogFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.Flags().StringVar(&flagSocket, "socket", "", "inner display socket name (default: auto-generated)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	if flagLogLevel != "" {
		logger.SetLevel(flagLogLevel)
	}
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logger.ToFile(f, "waywall")
	}

	if err := config.Init(flagConfigPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	srv, err := server.New(server.Options{
		SocketName: flagSocket,
	})
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer srv.Close()

	return srv.Run()
}
