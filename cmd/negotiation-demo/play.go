package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crossborder/internal/alignment"
	"crossborder/internal/records"
	"crossborder/internal/sequencer"
)

// playSpeed below zero means "use demo.pace from the config".
var playSpeed float64

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run the whole negotiation headless and print every event",
	Long: `Presses start, show-results and apply-transformation in order, printing each
status update, the alignment results and the before/after records.

--speed scales every delay; 0 runs instantly.`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().Float64Var(&playSpeed, "speed", -1, "Delay multiplier (0 = instant, default from config)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pace := currentConfig().Demo.Pace
	if playSpeed >= 0 {
		pace = playSpeed
	}
	out := cmd.OutOrStdout()
	seq := newSequencer(pace, printer(out))

	if pace > 0 {
		tickCtx, cancelTicker := context.WithCancel(ctx)
		defer cancelTicker()
		go func() {
			_ = seq.RunTicker(tickCtx)
		}()
	}

	for _, c := range sequencer.Controls() {
		if err := seq.Press(ctx, c); err != nil {
			currentLogger().Warn("play interrupted", zap.String("control", string(c)), zap.Error(err))
			return fmt.Errorf("%s interrupted: %w", c, err)
		}
	}
	snap := seq.Snapshot()
	fmt.Fprintf(out, "\nrun %s finished in phase %s\n", snap.RunID, snap.Phase)
	return nil
}

// printer renders events as plain text. It runs under the sequencer lock,
// so it only writes.
func printer(w io.Writer) sequencer.Sink {
	return sequencer.SinkFunc(func(e sequencer.Event) {
		switch e.Kind {
		case sequencer.EventStatus:
			fmt.Fprintf(w, "[%d/%d] %s\n", e.Step, e.Steps, e.Text)
		case sequencer.EventTicker:
			fmt.Fprintf(w, "  » %s\n", e.Text)
		case sequencer.EventControl:
			if e.On {
				fmt.Fprintf(w, "  (%s enabled)\n", e.Control)
			}
		case sequencer.EventPanel:
			if !e.On {
				return
			}
			switch e.Panel {
			case sequencer.PanelResults:
				printResults(w)
			case sequencer.PanelTransformation:
				printRecords(w)
			}
		}
	})
}

func printResults(w io.Writer) {
	fmt.Fprintln(w, "\nAlignment results")
	for _, e := range alignment.Results() {
		fmt.Fprintf(w, "  %s\n", e)
	}
	fmt.Fprintln(w)
}

func printRecords(w io.Writer) {
	fmt.Fprintln(w, "\nBefore (Italian ANPR)")
	for _, line := range records.Lines(records.Source().Fields()) {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintln(w, "After (German Standesamt)")
	for _, line := range records.Lines(records.Target().Fields()) {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
