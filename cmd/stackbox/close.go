package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var closeOpts struct {
	messages bool
}

var closeCmd = &cobra.Command{
	Use:   "close [ID|REF...]",
	Short: "Close widgets",
	Long: `Close widgets shown by stackboxd.

A number is a notification id as printed by the small, big and message
commands. A reference such as small#3 names a widget directly, as listed
by stackbox status.

Examples:
  stackbox close 12
  stackbox close big#2 small#5
  stackbox close --messages`,
	RunE: runClose,
}

func init() {
	closeCmd.Flags().BoolVar(&closeOpts.messages, "messages", false,
		"Close every message box, shown and queued")
	rootCmd.AddCommand(closeCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !closeOpts.messages {
		return fmt.Errorf("specify widgets to close or --messages")
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	if closeOpts.messages {
		n, err := client.CloseMessageBoxes()
		if err != nil {
			return err
		}
		fmt.Printf("Closed %d message box(es)\n", n)
	}

	var failed int
	for _, arg := range args {
		if id, err := strconv.ParseUint(arg, 10, 32); err == nil {
			err = client.CloseNotification(uint32(id))
			if err != nil {
				logger.Warn("failed to close notification", "id", id, "error", err)
				failed++
			}
			continue
		}
		if err := client.Dismiss(arg); err != nil {
			logger.Warn("failed to close widget", "ref", arg, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d widget(s) could not be closed", failed, len(args))
	}
	return nil
}
