package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackbox/internal/model"
	"github.com/jmylchreest/stackbox/internal/store"
)

var muteOpts struct {
	quiet bool // Suppress output, return exit code only
}

var muteCmd = &cobra.Command{
	Use:   "mute",
	Short: "Manage widget sounds",
	Long: `Manage the mute flag shared with stackboxd.

While muted, widgets are shown without sounds. stackboxd picks the change
up from the shared state file.

Use 'stackbox mute on' to mute.
Use 'stackbox mute off' to unmute.
Use 'stackbox mute toggle' to toggle.
Use 'stackbox mute status' to check (exit status 1 while muted).`,
	RunE: muteStatusRun,
}

var muteOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Mute widget sounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeMute(func(s *store.SharedState) { s.SetMuted(true, model.SourceCLI) })
	},
}

var muteOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Unmute widget sounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeMute(func(s *store.SharedState) { s.SetMuted(false, model.SourceCLI) })
	},
}

var muteToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle widget sounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeMute(func(s *store.SharedState) { s.ToggleMuted(model.SourceCLI) })
	},
}

var muteStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether widget sounds are muted",
	RunE:  muteStatusRun,
}

func init() {
	muteCmd.AddCommand(muteOnCmd, muteOffCmd, muteToggleCmd, muteStatusCmd)
	muteCmd.PersistentFlags().BoolVarP(&muteOpts.quiet, "quiet", "q", false,
		"Suppress output, return exit code only (0=unmuted, 1=muted)")
	rootCmd.AddCommand(muteCmd)
}

func changeMute(change func(s *store.SharedState)) error {
	state, err := store.LoadSharedState()
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	change(state)
	if err := store.SaveSharedState(state); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return reportMute(state)
}

func muteStatusRun(cmd *cobra.Command, args []string) error {
	state, err := store.LoadSharedState()
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	return reportMute(state)
}

// reportMute prints the state and turns it into the exit status.
func reportMute(state *store.SharedState) error {
	if !muteOpts.quiet {
		if state.Muted {
			fmt.Fprintln(os.Stdout, "Sounds: muted")
			if state.MutedAt > 0 {
				fmt.Printf("  Since: %s\n", humanize.Time(time.Unix(state.MutedAt, 0)))
			}
			if state.MutedBy != "" {
				fmt.Printf("  By: %s\n", state.MutedBy)
			}
		} else {
			fmt.Fprintln(os.Stdout, "Sounds: on")
		}
	}
	if state.Muted {
		return exitError{code: 1}
	}
	return nil
}
