package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/elio-helpdesk/client/internal/model/persona"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/session"
	"github.com/zhouzirui/elio-helpdesk/client/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal widget",
	RunE:  runTUI,
}

var flagLogFile string

func init() {
	flags := tuiCmd.Flags()
	flags.StringVar(&flagPhone, "phone", "", "prefill the phone field")
	flags.StringVar(&flagResin, "resin", "", "resin in use")
	flags.StringVar(&flagPrinter, "printer", "", "printer model")
	flags.StringVar(&flagLogFile, "log-file", "", "write logs to this file instead of discarding them")
}

func runTUI(cmd *cobra.Command, args []string) error {
	// the terminal belongs to the widget
	var out io.Writer = io.Discard
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}

	logger := zerolog.Nop()
	if out != io.Discard {
		l, err := newLogger(out)
		if err != nil {
			return err
		}
		logger = l
	}

	ctrl, err := newController(logger, session.WithLastIssuedWins())
	if err != nil {
		return err
	}

	return tui.Run(cmd.Context(), ctrl, persona.NewCatalog(persona.Seed()), tui.Options{
		Phone:   flagPhone,
		Resin:   flagResin,
		Printer: flagPrinter,
		Limits:  limits(),
	})
}
