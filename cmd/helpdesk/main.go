package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/elio-helpdesk/client/internal/config"
	"github.com/zhouzirui/elio-helpdesk/client/internal/logging"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/attachment"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/remote"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/session"
)

var rootCmd = &cobra.Command{
	Use:               "helpdesk",
	Short:             "Client for the Elio resin printing support desk",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

var (
	flagBaseURL  string
	flagLogLevel string

	cfg *config.Config
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagBaseURL, "base-url", "", "helpdesk backend base URL (overrides HELPDESK_BASE_URL)")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(historyCmd, sendCmd, tuiCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal().Err(err).Msg("[helpdesk] command failed")
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	// Load .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file, continuing with system environment variables only")
	}

	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if flagBaseURL != "" {
		loaded.Helpdesk.BaseURL = flagBaseURL
	}
	if flagLogLevel != "" {
		loaded.Log.Level = flagLogLevel
	}
	cfg = loaded
	return nil
}

// newLogger builds the process logger writing to w and installs it globally.
func newLogger(w io.Writer) (zerolog.Logger, error) {
	logger, err := logging.New(cfg.Log, w)
	if err != nil {
		return logger, err
	}
	logging.Install(logger)
	return logger, nil
}

// newController wires the remote helpdesk client into a session controller.
func newController(logger zerolog.Logger, opts ...session.Option) (*session.Controller, error) {
	client, err := remote.NewClient(cfg.Helpdesk.BaseURL,
		remote.WithTimeout(cfg.Helpdesk.Timeout),
		remote.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create helpdesk client: %w", err)
	}
	return session.New(client, append([]session.Option{session.WithLogger(logger)}, opts...)...), nil
}

func limits() attachment.Limits {
	return attachment.Limits{
		MaxImageBytes: cfg.Helpdesk.MaxImageBytes,
		MaxTotalBytes: cfg.Helpdesk.MaxTotalBytes,
	}
}

// describe turns a validation failure into its user prompt.
func describe(err error) error {
	var vErr *session.ValidationError
	if errors.As(err, &vErr) {
		return errors.New(vErr.Prompt)
	}
	return err
}
