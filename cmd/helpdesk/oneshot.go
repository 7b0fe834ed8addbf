package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/elio-helpdesk/client/internal/model/persona"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/attachment"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/session"
	"github.com/zhouzirui/elio-helpdesk/client/internal/tui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored conversation of a phone number",
	RunE:  runHistory,
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a problem report and print the conversation",
	RunE:  runSend,
}

var (
	flagPhone   string
	flagProblem string
	flagResin   string
	flagPrinter string
	flagImages  []string
)

func init() {
	historyCmd.Flags().StringVar(&flagPhone, "phone", "", "customer phone number")

	flags := sendCmd.Flags()
	flags.StringVar(&flagPhone, "phone", "", "customer phone number")
	flags.StringVar(&flagProblem, "problem", "", "problem description")
	flags.StringVar(&flagResin, "resin", "", "resin in use")
	flags.StringVar(&flagPrinter, "printer", "", "printer model")
	flags.StringArrayVar(&flagImages, "image", nil, "image to attach (jpg, png or webp); repeat the flag for more, at most 5")
}

func runHistory(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	ctrl, err := newController(logger)
	if err != nil {
		return err
	}

	snap, err := ctrl.LoadHistory(cmd.Context(), flagPhone)
	if err != nil {
		return describe(err)
	}
	return tui.WriteTranscript(cmd.OutOrStdout(), snap, persona.NewCatalog(persona.Seed()))
}

func runSend(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	ctrl, err := newController(logger)
	if err != nil {
		return err
	}

	images, err := attachment.Load(flagImages, limits())
	if err != nil {
		return describe(err)
	}

	snap, err := ctrl.SendMessage(cmd.Context(), session.Submission{
		Phone:   flagPhone,
		Problem: flagProblem,
		Resin:   flagResin,
		Printer: flagPrinter,
		Images:  images,
	})
	var vErr *session.ValidationError
	if errors.As(err, &vErr) {
		return describe(err)
	}

	// transport and business failures are part of the transcript
	if werr := tui.WriteTranscript(cmd.OutOrStdout(), snap, persona.NewCatalog(persona.Seed())); werr != nil {
		return werr
	}
	if err != nil {
		return errors.New(snap.StatusText)
	}
	return nil
}
