package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/stackbox/internal/dbus"
	"github.com/jmylchreest/stackbox/internal/model"
	"github.com/jmylchreest/stackbox/internal/notify"
)

// boxOpts holds the flags shared by the small and big box commands.
type boxOpts struct {
	icon      string
	smallIcon string
	number    string
	color     string
	colors    []string
	colorTime time.Duration
	timeout   time.Duration
	sticky    bool
	silent    bool
	quiet     bool
}

var (
	smallOpts boxOpts
	bigOpts   boxOpts

	messageOpts struct {
		buttons     []string
		bracket     string
		input       string
		placeholder string
		value       string
		options     []string
		silent      bool
		noWait      bool
		wait        time.Duration
	}
)

var smallCmd = &cobra.Command{
	Use:   "small TITLE [CONTENT]",
	Short: "Show a small box",
	Long: `Show a small box. Small boxes stack at the screen edge and close
when clicked or when their timeout expires.

Examples:
  stackbox small "Build finished" "stackbox: 42 tests passed"
  stackbox small "Backup" --colors red,orange,yellow --color-time 3s --sticky`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBox(notify.KindSmallBox, &smallOpts, args)
	},
}

var bigCmd = &cobra.Command{
	Use:   "big TITLE [CONTENT]",
	Short: "Show a big box",
	Long: `Show a big box. Only the newest big box is open; older ones are
collapsed into mini icons that bring them back when clicked.

Examples:
  stackbox big "Meeting" "Standup in 5 minutes" --icon fa-calendar --number 5`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBox(notify.KindBigBox, &bigOpts, args)
	},
}

var messageCmd = &cobra.Command{
	Use:   "message TITLE [CONTENT]",
	Short: "Show a modal message box and print the answer",
	Long: `Show a modal message box. Message boxes are queued and shown one
at a time over a backdrop.

The pressed button is printed on stdout, followed by the input value when
the box has an input field. The exit status is 0 when a button was
pressed and 1 when the box was closed any other way.

Examples:
  stackbox message "Deploy?" "Push release to production" --button Deploy --button Cancel
  stackbox message "Login" --buttons "[OK][Cancel]" --input password --placeholder Password
  stackbox message "Pick a branch" --input select --option main --option develop`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMessage,
}

func init() {
	addBoxFlags(smallCmd, &smallOpts)
	smallCmd.Flags().StringVar(&smallOpts.smallIcon, "small-icon", "",
		"Secondary icon shown beside the title")

	addBoxFlags(bigCmd, &bigOpts)
	bigCmd.Flags().StringVar(&bigOpts.number, "number", "",
		"Badge shown on the mini icon")

	f := messageCmd.Flags()
	f.StringArrayVarP(&messageOpts.buttons, "button", "b", nil,
		"Button label, left to right (repeatable; default: Accept)")
	f.StringVar(&messageOpts.bracket, "buttons", "",
		`Button labels as a bracket list, e.g. "[Yes][No]"`)
	f.StringVar(&messageOpts.input, "input", "",
		"Input field type (text, password, select)")
	f.StringVar(&messageOpts.placeholder, "placeholder", "",
		"Input placeholder")
	f.StringVar(&messageOpts.value, "value", "",
		"Initial input value")
	f.StringArrayVar(&messageOpts.options, "option", nil,
		"Select option (repeatable)")
	f.BoolVar(&messageOpts.silent, "silent", false,
		"Do not play a sound")
	f.BoolVar(&messageOpts.noWait, "no-wait", false,
		"Print the notification id and return without waiting for an answer")
	f.DurationVar(&messageOpts.wait, "wait", 0,
		"Give up waiting after this long (0 = forever)")

	rootCmd.AddCommand(smallCmd, bigCmd, messageCmd)
}

func addBoxFlags(cmd *cobra.Command, opts *boxOpts) {
	f := cmd.Flags()
	f.StringVarP(&opts.icon, "icon", "i", "", "Icon name or path")
	f.StringVar(&opts.color, "color", "", "Background color (CSS color or palette name)")
	f.StringSliceVar(&opts.colors, "colors", nil, "Colors to cycle through")
	f.DurationVar(&opts.colorTime, "color-time", 0, "Color cycle period (default from daemon config)")
	f.DurationVarP(&opts.timeout, "timeout", "t", 0, "Close after this long (default from daemon config)")
	f.BoolVar(&opts.sticky, "sticky", false, "Never time out")
	f.BoolVar(&opts.silent, "silent", false, "Do not play a sound")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print the notification id")
}

// newRequest fills what every command-line widget shares.
func newRequest(kind notify.Kind, args []string) notify.Request {
	req := notify.Request{
		Kind:   kind,
		Title:  args[0],
		Origin: notify.Origin{Source: model.SourceCLI},
	}
	if len(args) > 1 {
		req.Content = args[1]
	}
	return req
}

func boxRequest(kind notify.Kind, opts *boxOpts, args []string) notify.Request {
	req := newRequest(kind, args)
	req.Icon = opts.icon
	req.SmallIcon = opts.smallIcon
	req.Number = opts.number
	req.Color = opts.color
	req.ColorTime = opts.colorTime
	req.Timeout = opts.timeout
	req.Silent = opts.silent
	for _, c := range opts.colors {
		if c = strings.TrimSpace(c); c != "" {
			req.Colors = append(req.Colors, notify.ColorStop{Color: c})
		}
	}
	if opts.sticky {
		req.Timeout = notify.NoTimeout
	}
	return req
}

func runBox(kind notify.Kind, opts *boxOpts, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	id, err := client.Show(boxRequest(kind, opts, args))
	if err != nil {
		return fmt.Errorf("failed to show %s box: %w", kind, err)
	}
	logger.Debug("widget sent", "kind", kind.String(), "id", id)
	if !opts.quiet {
		fmt.Println(id)
	}
	return nil
}

func messageRequest(args []string) (notify.Request, error) {
	req := newRequest(notify.KindMessageBox, args)
	req.Silent = messageOpts.silent
	req.Buttons = append([]string(nil), messageOpts.buttons...)
	if messageOpts.bracket != "" {
		req.Buttons = append(req.Buttons, notify.ParseBracketList(messageOpts.bracket)...)
	}

	if messageOpts.input != "" {
		in := &notify.Input{
			Type:        notify.InputType(strings.ToLower(messageOpts.input)),
			Placeholder: messageOpts.placeholder,
			Value:       messageOpts.value,
			Options:     messageOpts.options,
		}
		if err := in.Validate(); err != nil {
			return notify.Request{}, fmt.Errorf("invalid input: %w", err)
		}
		req.Input = in
	}
	return req, nil
}

func runMessage(cmd *cobra.Command, args []string) error {
	req, err := messageRequest(args)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	if messageOpts.noWait || !cfg.Client.Wait {
		id, err := client.Show(req)
		if err != nil {
			return fmt.Errorf("failed to show message box: %w", err)
		}
		fmt.Println(id)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if messageOpts.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, messageOpts.wait)
		defer cancel()
	}

	outcome, err := client.ShowAndWait(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to show message box: %w", err)
	}
	return printOutcome(outcome, req.Input != nil)
}

func printOutcome(o dbus.Outcome, withValue bool) error {
	if o.Button == "" {
		logger.Debug("message box closed without an answer", "id", o.ID, "reason", o.Reason.String())
		return exitError{code: 1}
	}
	fmt.Println(o.Button)
	if withValue {
		fmt.Println(o.Value)
	}
	return nil
}
