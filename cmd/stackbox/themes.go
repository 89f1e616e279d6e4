package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackbox/internal/theme"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List the themes stackboxd can use",
	Long: `List the bundled themes and the user themes found in
~/.config/stackbox/themes. Select one with [theme] name in stackboxd.toml;
stackboxd applies the change without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		themes, err := theme.ListAvailableThemes()
		if err != nil {
			return fmt.Errorf("failed to list themes: %w", err)
		}
		for _, t := range themes {
			line := t.Name
			switch {
			case t.IsDefault:
				line += " (default)"
			case t.IsBundled:
				line += " (bundled)"
			default:
				line += "  " + t.Path
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themesCmd)
}
