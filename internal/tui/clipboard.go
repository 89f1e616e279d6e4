package tui

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jmylchreest/stackbox/internal/adapter/input"
	"github.com/jmylchreest/stackbox/internal/notify"
)

// copyText copies text to the system clipboard.
func copyText(text, configured string) error {
	cmd := detectClipboardCommand(configured)
	if cmd == "" {
		return fmt.Errorf("no clipboard command available")
	}

	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return fmt.Errorf("invalid clipboard command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, parts[0], parts[1:]...)
	c.Stdin = strings.NewReader(text)

	return c.Run()
}

// detectClipboardCommand returns the clipboard command to use.
func detectClipboardCommand(configured string) string {
	if configured != "" {
		return configured
	}

	// Wayland
	if _, err := exec.LookPath("wl-copy"); err == nil {
		return "wl-copy"
	}

	// X11
	if _, err := exec.LookPath("xclip"); err == nil {
		return "xclip -selection clipboard"
	}

	if _, err := exec.LookPath("xsel"); err == nil {
		return "xsel --clipboard --input"
	}

	return ""
}

// replayFromAdapter shows every request read from adapter and returns how
// many widgets were created. Requests that fail are joined into the error.
func replayFromAdapter(ctx context.Context, adapter input.InputAdapter, show func(notify.Request) error) (int, error) {
	if adapter == nil {
		return 0, fmt.Errorf("no input adapter provided")
	}

	requests, importErr := adapter.Import(ctx)

	var errs []error
	if importErr != nil {
		errs = append(errs, importErr)
	}
	shown := 0
	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := show(req); err != nil {
			errs = append(errs, err)
			continue
		}
		shown++
	}

	return shown, errors.Join(errs...)
}
