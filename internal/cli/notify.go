package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/tama-audit/auditor/internal/logging"
	"github.com/tama-audit/auditor/internal/syncer"
)

// TerminalNotifier renders notifications as terminal lines. The real host
// UI substitutes its own Notifier.
type TerminalNotifier struct {
	Out io.Writer
}

func (t *TerminalNotifier) Show(_ context.Context, n syncer.Notification) error {
	_, err := fmt.Fprintf(t.Out, "[%s] %s\n", n.Title, n.Body)
	return err
}

func (t *TerminalNotifier) Dismiss(context.Context, syncer.Notification) error {
	return nil
}

// TerminalOpener stands in for focusing the application window.
type TerminalOpener struct {
	Log logging.Logger
}

func (t *TerminalOpener) Open(ctx context.Context, path string) error {
	t.Log.Info(ctx, "open application view", "path", path)
	return nil
}
