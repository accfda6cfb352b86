package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/artpar/worldgate/bootstrap"
	"github.com/artpar/worldgate/core/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch [FILE...]",
	Short: "Reparse documents whenever they change",
	Long: `Parse documents once, then again every time they are saved.
Without arguments the paths come from watch.paths in the config.

Examples:
  worldgate watch world.xml
  WORLDGATE_WATCH_PATHS=a.xml,b.xml worldgate watch`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	paths := args
	if len(paths) == 0 {
		paths = a.Config.Watch.Paths
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents to watch: pass paths or set watch.paths")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	a.Events.Subscribe("document.*", printEvent(out, bootstrap.IsTerminal(out)))
	return a.Watcher().Run(ctx, paths, nil)
}

// printEvent returns a bus handler that writes one line per document event.
func printEvent(out io.Writer, color bool) events.Handler {
	ok, bad := marks(color)
	var mu sync.Mutex
	return func(ctx context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()

		var err error
		switch e.Name {
		case events.DocumentChanged:
			_, err = fmt.Fprintf(out, "  ~ %s changed\n", e.Source)
		case events.DocumentParsed:
			_, err = fmt.Fprintf(out, "%s %s %q (%v elements, %v)\n",
				ok, e.Source, e.Data[events.KeyWorld], e.Data[events.KeyElements], e.Data[events.KeyDuration])
		case events.DocumentFailed:
			_, err = fmt.Fprintf(out, "%s %s %v: %v\n",
				bad, e.Source, e.Data[events.KeyCode], e.Data[events.KeyError])
		}
		return err
	}
}
