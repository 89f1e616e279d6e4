package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackbox/internal/adapter/output"
	"github.com/jmylchreest/stackbox/internal/core"
	"github.com/jmylchreest/stackbox/internal/model"
	"github.com/jmylchreest/stackbox/internal/store"
)

var historyOpts struct {
	// Filter options
	since  string
	kind   string
	source string
	reason string
	open   bool
	filter string
	search string
	limit  int

	// Sort options
	sortBy    string
	sortOrder string

	// Output options
	format   string
	field    string
	template string

	follow bool
}

var historyCmd = &cobra.Command{
	Use:   "history [index|uid|ref]",
	Short: "Query the widget history",
	Long: `Query the history of widgets shown by stackboxd.

Without arguments, lists the widgets matching the filters. With a 1-based
index, a UID or a reference such as big#3, outputs that one widget.

Filter expressions (--filter) are comma separated conditions on kind,
source, app, title, content, reason, button, color, closed, created and
lifetime, using = != ~ ~= > < >= <=.

Examples:
  stackbox history --since 1h
  stackbox history --kind message --filter "button=Deploy"
  stackbox history --filter "lifetime<2s,reason=clicked" --format json
  stackbox history 1 --field content
  stackbox history --format dmenu | fuzzel -d | stackbox history --field content
  stackbox history --follow`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the widget history",
	RunE:  runHistoryStats,
}

var historyRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Rewrite a corrupted history file, keeping its valid records",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := historyPath()
		if err != nil {
			return err
		}
		if err := store.RecoverFromCorruption(path); err != nil {
			return fmt.Errorf("failed to repair %s: %w", path, err)
		}
		fmt.Println("History repaired; the original was kept beside it")
		return nil
	},
}

func init() {
	f := historyCmd.PersistentFlags()
	f.StringVar(&historyOpts.since, "since", "",
		"Only widgets from the last duration (e.g. 1h, 7d, 1w; 0 = all; default from config)")
	f.StringVar(&historyOpts.kind, "kind", "", "Only this kind (message, big, small)")
	f.StringVar(&historyOpts.source, "source", "", "Only this source (dbus, cli, schedule, internal)")
	f.StringVar(&historyOpts.reason, "reason", "", "Only this close reason (clicked, button, expired, requested, destroyed)")
	f.BoolVar(&historyOpts.open, "open", false, "Only widgets still on screen")
	f.StringVar(&historyOpts.filter, "filter", "", "Filter expression")
	f.StringVarP(&historyOpts.search, "search", "s", "", "Search titles and content")
	f.IntVarP(&historyOpts.limit, "limit", "n", 0, "Maximum number of widgets (0 = config default)")

	historyCmd.Flags().StringVar(&historyOpts.sortBy, "sort", "", "Sort by created, closed, kind or title")
	historyCmd.Flags().StringVar(&historyOpts.sortOrder, "order", "", "Sort order (asc, desc)")
	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "",
		"Output format (plain, json, yaml, dmenu, ids)")
	historyCmd.Flags().StringVar(&historyOpts.field, "field", "",
		"Output a single field (uid, ref, kind, app, title, content, reason, button, value, all)")
	historyCmd.Flags().StringVar(&historyOpts.template, "template", "",
		"Go template, or the name of a custom template from the config")
	historyCmd.Flags().BoolVarP(&historyOpts.follow, "follow", "F", false,
		"Keep running and print widgets as they are recorded")

	historyCmd.AddCommand(historyStatsCmd, historyRepairCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyOpts.follow {
		return followHistory()
	}

	s, _, err := openHistory()
	if err != nil {
		return err
	}

	records, err := queryHistory(s)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		r, err := lookupRecord(s, records, args[0])
		if err != nil {
			return err
		}
		if historyOpts.field != "" {
			fmt.Println(output.FormatField(r, historyOpts.field))
			return nil
		}
		format := historyOpts.format
		if format == "" || format == string(output.FormatDmenu) {
			format = string(output.FormatJSON)
		}
		return writeRecords(format, []model.Record{*r})
	}

	if historyOpts.field != "" {
		for i := range records {
			fmt.Println(output.FormatField(&records[i], historyOpts.field))
		}
		return nil
	}
	return writeRecords(historyFormat(), records)
}

// queryHistory applies the filter and sort flags, falling back to the
// config defaults.
func queryHistory(s *store.Store) ([]model.Record, error) {
	since := historyOpts.since
	if since == "" {
		since = cfg.History.Since
	}
	sinceDur, err := core.ParseDuration(since)
	if err != nil {
		return nil, fmt.Errorf("invalid --since: %w", err)
	}

	opts := store.FilterOptions{
		Since:     sinceDur,
		Kind:      historyOpts.kind,
		Source:    historyOpts.source,
		Reason:    historyOpts.reason,
		OpenOnly:  historyOpts.open,
		SortField: firstSet(historyOpts.sortBy, cfg.History.SortField),
		SortOrder: firstSet(historyOpts.sortOrder, cfg.History.SortOrder),
	}
	records := s.Filter(opts)

	if historyOpts.filter != "" {
		expr, err := core.ParseFilter(historyOpts.filter)
		if err != nil {
			return nil, fmt.Errorf("invalid --filter: %w", err)
		}
		records = core.FilterWithExpr(records, expr)
	}
	records = core.Search(records, historyOpts.search)

	limit := historyOpts.limit
	if limit == 0 {
		limit = cfg.History.Limit
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// lookupRecord resolves an index into the listed records, or a UID or
// reference anywhere in the history. A dmenu line is accepted as is.
func lookupRecord(s *store.Store, records []model.Record, arg string) (*model.Record, error) {
	arg = strings.TrimSpace(arg)
	first, _, _ := strings.Cut(arg, " ")

	if idx, err := strconv.Atoi(first); err == nil {
		if r := core.LookupByIndex(records, idx); r != nil {
			return r, nil
		}
		return nil, fmt.Errorf("no widget at index %d", idx)
	}
	if r := core.LookupByUID(records, first); r != nil {
		return r, nil
	}
	if r := s.Lookup(arg); r != nil {
		return r, nil
	}
	return nil, fmt.Errorf("widget %q not found", arg)
}

func historyFormat() string {
	return firstSet(historyOpts.format, cfg.History.Format, string(output.FormatPlain))
}

func writeRecords(format string, records []model.Record) error {
	formatter, err := newFormatter(format)
	if err != nil {
		return err
	}
	ptrs := make([]*model.Record, len(records))
	for i := range records {
		ptrs[i] = &records[i]
	}
	return formatter.Format(os.Stdout, ptrs)
}

func newFormatter(format string) (output.Formatter, error) {
	opts := output.DefaultFormatterOptions()
	switch {
	case historyOpts.template != "":
		opts.Template = historyOpts.template
		if named, ok := cfg.Templates.Custom[historyOpts.template]; ok {
			opts.Template = named
		}
	default:
		opts.Template = cfg.GetTemplate(strings.ToLower(format))
	}
	return output.NewFormatter(output.FormatType(strings.ToLower(format)), opts)
}

// followHistory prints the matching widgets already recorded, then every
// widget stackboxd records or closes until interrupted.
func followHistory() error {
	path, err := historyPath()
	if err != nil {
		return err
	}
	persistence, err := store.NewJSONLPersistence(path)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	s := store.NewStore(persistence)
	defer func() { _ = s.Close() }()

	changes := s.Subscribe()
	defer s.Unsubscribe(changes)
	if err := s.Hydrate(); err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	watcher, err := store.NewFileWatcher(s, path, logger)
	if err != nil {
		return fmt.Errorf("failed to watch history: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to watch history: %w", err)
	}
	defer func() { _ = watcher.Stop() }()

	format := historyFormat()
	if format == string(output.FormatDmenu) {
		format = string(output.FormatPlain)
	}
	formatter, err := newFormatter(format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printed := make(map[string]bool) // uid -> closed when printed
	flush := func() error {
		records, err := queryHistory(s)
		if err != nil {
			return err
		}
		var fresh []*model.Record
		for i := len(records) - 1; i >= 0; i-- {
			r := &records[i]
			if closed, seen := printed[r.UID]; seen && closed == r.IsClosed() {
				continue
			}
			printed[r.UID] = r.IsClosed()
			fresh = append(fresh, r)
		}
		if len(fresh) == 0 {
			return nil
		}
		return formatter.Format(os.Stdout, fresh)
	}

	if err := flush(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

func runHistoryStats(cmd *cobra.Command, args []string) error {
	s, path, err := openHistory()
	if err != nil {
		return err
	}
	records, err := queryHistory(s)
	if err != nil {
		return err
	}

	fmt.Printf("History: %s\n", path)
	fmt.Printf("Widgets: %d of %d\n", len(records), s.Count())

	counts := core.CountByKind(records)
	for _, kind := range []string{"message", "big", "small"} {
		if n := counts[kind]; n > 0 {
			fmt.Printf("  %-8s %d\n", kind, n)
		}
	}

	open := 0
	for _, r := range records {
		if !r.IsClosed() {
			open++
		}
	}
	if open > 0 {
		fmt.Printf("Still open: %d\n", open)
	}

	if apps := core.UniqueApps(records); len(apps) > 0 {
		fmt.Printf("Apps: %s\n", strings.Join(apps, ", "))
	}
	return nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
