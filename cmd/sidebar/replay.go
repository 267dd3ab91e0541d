package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/sidebar/internal/history"
	"github.com/abelbrown/sidebar/internal/model"
	"github.com/abelbrown/sidebar/internal/trace"
)

var replayStore bool

func init() {
	replayCmd.Flags().BoolVar(&replayStore, "store", false, "append parsed notifications to the history")
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay <trace-file>",
	Short: "Parse a captured bus monitor trace (\"-\" reads stdin)",
	Long: `replay feeds a saved bus monitor capture through the same parser the
panel uses and prints every notification it recognizes. Capture one with:

  dbus-monitor --session "interface='org.freedesktop.Notifications',member='Notify'" > notify.trace`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open trace: %w", err)
			}
			defer f.Close()
			r = f
		}

		p := trace.NewParser(cfg.Notifications.Member, cfg.Notifications.Schema)
		if !replayStore {
			_, err := replay(cmd.OutOrStdout(), r, p, nil)
			return err
		}
		return editHistory(cfg, func(h *history.Store) error {
			_, err := replay(cmd.OutOrStdout(), r, p, h)
			return err
		})
	},
}

// replay prints each notification parsed from r and, when h is non-nil,
// appends it. Returns how many were parsed.
func replay(w io.Writer, r io.Reader, p *trace.Parser, h *history.Store) (int, error) {
	count := 0
	err := trace.Scan(r, p, func(n model.Notification) {
		count++
		if h != nil {
			n.ID = h.Append(n)
		}
		fmt.Fprintf(w, "%-4d %-16s %s\n", count, truncate(n.SourceName, 16), n.Title())
		if n.Body != "" {
			fmt.Fprintf(w, "     %s\n", truncate(n.Body, 72))
		}
	})
	if err != nil {
		return count, fmt.Errorf("reading trace: %w", err)
	}

	if p.State() == trace.InCall {
		fmt.Fprintf(w, "trace ended inside a call (%d fields pending)\n", p.FieldCount())
	}
	fmt.Fprintf(w, "%d notification(s) parsed\n", count)
	if h != nil {
		fmt.Fprintf(w, "history now holds %d\n", h.Count())
	}
	return count, nil
}
