package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackbox/internal/adapter/input"
	"github.com/jmylchreest/stackbox/internal/tui"
)

var demoOpts struct {
	replay string
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Try the widgets in the terminal",
	Long: `Run the widget manager in the terminal, without stackboxd.

The demo draws small boxes, big boxes with their mini icons and queued
message boxes, and lets you spawn, click and answer them from the
keyboard. Press ? for the key bindings.

--replay loads requests in the batch format and shows them on startup.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().StringVar(&demoOpts.replay, "replay", "",
		`Requests to replay on startup (file path)`)
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	var adapter input.InputAdapter
	if demoOpts.replay != "" {
		if demoOpts.replay == "-" || demoOpts.replay == "stdin" {
			return fmt.Errorf("the demo reads keys from stdin; replay from a file")
		}
		var err error
		adapter, err = input.NewAdapter(demoOpts.replay)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return tui.Run(ctx, tui.RunOptions{
		Config:  cfg,
		Adapter: adapter,
	})
}
