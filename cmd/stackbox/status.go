package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackbox/internal/dbus"
)

var statusOpts struct {
	format string
}

// daemonStatus is the reply of the stackboxd Status method.
type daemonStatus struct {
	Widgets      []statusWidget `json:"widgets"`
	QueuedModals []int          `json:"queued_modals,omitempty"`
	Backdrop     bool           `json:"backdrop"`
	Counters     map[string]int `json:"counters"`
	Muted        bool           `json:"muted"`
}

type statusWidget struct {
	Ref       string    `json:"ref"`
	ID        uint32    `json:"id,omitempty"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Source    string    `json:"source,omitempty"`
	App       string    `json:"app,omitempty"`
	Visible   bool      `json:"visible"`
	CreatedAt time.Time `json:"created_at"`
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the widgets stackboxd has open",
	Long: `Show the widgets stackboxd currently has open.

Formats:
  plain   one line per widget (default)
  json    the daemon reply as is
  waybar  Waybar custom module JSON:

  "custom/stackbox": {
    "exec": "stackbox status --format waybar",
    "interval": 5,
    "return-type": "json",
    "on-click": "stackbox close --messages"
  }`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", "plain",
		"Output format (plain, json, waybar)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	format := statusOpts.format
	if format == "" {
		format = "plain"
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	raw, err := client.Status()
	if err != nil {
		if format == "waybar" {
			return outputJSON(WaybarStatus{Alt: "error", Class: "error", Tooltip: "stackboxd not running"})
		}
		return fmt.Errorf("failed to query stackboxd: %w", err)
	}

	var st daemonStatus
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return fmt.Errorf("unexpected status reply: %w", err)
	}

	switch format {
	case "json":
		_, err := fmt.Fprintln(os.Stdout, raw)
		return err
	case "waybar":
		return outputJSON(waybarStatus(&st))
	case "plain":
		printStatus(client, &st)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func printStatus(client *dbus.Client, st *daemonStatus) {
	if info, err := client.ServerInfo(); err == nil {
		fmt.Printf("%s %s (%s)\n", info.Name, info.Version, info.Vendor)
	}
	if st.Muted {
		fmt.Println("Sounds: muted")
	}
	if len(st.Widgets) == 0 {
		fmt.Println("No open widgets")
		return
	}
	for _, w := range st.Widgets {
		line := fmt.Sprintf("%-10s %-8s %s", w.Ref, w.State, w.Title)
		if w.ID != 0 {
			line += fmt.Sprintf(" (id %d", w.ID)
			if w.App != "" {
				line += ", " + w.App
			}
			line += ")"
		}
		if !w.Visible {
			line += " [hidden]"
		}
		fmt.Printf("%s  %s\n", line, humanize.Time(w.CreatedAt))
	}
	if n := len(st.QueuedModals); n > 0 {
		fmt.Printf("%d message box(es) queued\n", n)
	}
}

// waybarStatus summarises the open widgets. The class is the most
// demanding kind on screen.
func waybarStatus(st *daemonStatus) WaybarStatus {
	counts := make(map[string]int)
	for _, w := range st.Widgets {
		if w.State == "active" {
			counts[strings.SplitN(w.Ref, "#", 2)[0]]++
		}
	}
	total := counts["message"] + counts["big"] + counts["small"]

	alt := "empty"
	switch {
	case counts["message"] > 0:
		alt = "message"
	case counts["big"] > 0:
		alt = "big"
	case counts["small"] > 0:
		alt = "small"
	}
	if st.Muted {
		alt += "-muted"
	}

	if total == 0 {
		return WaybarStatus{Alt: alt, Class: alt, Tooltip: "No open widgets"}
	}

	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	lines := make([]string, 0, len(kinds))
	for _, k := range kinds {
		lines = append(lines, fmt.Sprintf("%s: %d", k, counts[k]))
	}

	return WaybarStatus{
		Text:       fmt.Sprintf("%d", total),
		Alt:        alt,
		Tooltip:    strings.Join(lines, "\n"),
		Class:      alt,
		Percentage: min(total, 100),
	}
}

func outputJSON(v any) error {
	return json.NewEncoder(os.Stdout).Encode(v)
}
