package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackbox/internal/adapter/input"
	"github.com/jmylchreest/stackbox/internal/model"
)

var batchOpts struct {
	delay time.Duration
	quiet bool
}

var batchCmd = &cobra.Command{
	Use:   "batch [FILE]",
	Short: "Send many widgets at once",
	Long: `Send widget requests read from FILE, or stdin without one, to stackboxd.

Requests are a JSON array or one JSON object per line:

  {"kind": "small", "title": "Saved", "timeout_ms": 3000}
  {"kind": "big", "title": "Release", "content": "v2 is out", "number": "2"}
  {"kind": "message", "title": "Continue?", "buttons": "[Yes][No]"}

Message boxes are not waited for; their answers are in the history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().DurationVar(&batchOpts.delay, "delay", 0,
		"Pause between widgets")
	batchCmd.Flags().BoolVarP(&batchOpts.quiet, "quiet", "q", false,
		"Do not print notification ids")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	source := "-"
	if len(args) > 0 {
		source = args[0]
	}
	adapter, err := input.NewAdapter(source)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	requests, importErr := adapter.Import(ctx)
	if len(requests) == 0 {
		if importErr != nil {
			return importErr
		}
		return fmt.Errorf("no requests in %s", adapter.Name())
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	var errs []error
	if importErr != nil {
		errs = append(errs, importErr)
	}
	sent := 0
	for i, req := range requests {
		if i > 0 && batchOpts.delay > 0 {
			time.Sleep(batchOpts.delay)
		}
		req.Origin.Source = model.SourceCLI
		id, err := client.Show(req)
		if err != nil {
			errs = append(errs, fmt.Errorf("request %d: %w", i+1, err))
			continue
		}
		sent++
		if !batchOpts.quiet {
			fmt.Println(id)
		}
	}
	logger.Debug("batch sent", "sent", sent, "total", len(requests))
	return errors.Join(errs...)
}
