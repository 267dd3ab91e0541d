package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/abelbrown/sidebar/internal/history"
	"github.com/abelbrown/sidebar/internal/model"
)

var (
	listJSON  bool
	clearYes  bool
	listStyle = lipgloss.NewStyle().Bold(true)
)

func init() {
	notificationsListCmd.Flags().BoolVar(&listJSON, "json", false, "print the history as JSON (oldest first)")
	notificationsClearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")

	notificationsCmd.AddCommand(notificationsListCmd, notificationsRmCmd, notificationsClearCmd)
	rootCmd.AddCommand(notificationsCmd)
}

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"n"},
	Short:   "Inspect or edit the stored notification history",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored notifications, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, _ := openHistory(cfg, nil)
		return writeList(cmd.OutOrStdout(), h.Snapshot(), listJSON)
	},
}

var notificationsRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Remove notifications by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]uint64, 0, len(args))
		for _, arg := range args {
			id, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", arg)
			}
			ids = append(ids, id)
		}

		return editHistory(cfg, func(h *history.Store) error {
			var missing []string
			for _, id := range ids {
				if !h.Remove(id) {
					missing = append(missing, strconv.FormatUint(id, 10))
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("not found: %s", strings.Join(missing, ", "))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d notification(s), %d left\n", len(ids), h.Count())
			return nil
		})
	},
}

var notificationsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored notification",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return editHistory(cfg, func(h *history.Store) error {
			n := h.Count()
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clear")
				return nil
			}

			if !clearYes {
				confirmed := false
				err := huh.NewConfirm().
					Title(fmt.Sprintf("Clear %d notification(s)?", n)).
					Affirmative("Clear").
					Negative("Cancel").
					Value(&confirmed).
					Run()
				if err != nil {
					return fmt.Errorf("confirm: %w", err)
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			h.Clear()
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d notification(s)\n", n)
			return nil
		})
	},
}

// writeList prints items newest-first as a table, or oldest-first as JSON.
func writeList(w io.Writer, items []model.Notification, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if len(items) == 0 {
		fmt.Fprintln(w, "No notifications stored")
		return nil
	}

	fmt.Fprintln(w, listStyle.Render(fmt.Sprintf("%-6s %-16s %-16s %s", "ID", "OBSERVED", "SOURCE", "SUMMARY")))
	for i := len(items) - 1; i >= 0; i-- {
		n := items[i]
		fmt.Fprintf(w, "%-6d %-16s %-16s %s\n",
			n.ID,
			n.ObservedAt.Local().Format("2006-01-02 15:04"),
			truncate(n.SourceName, 16),
			truncate(n.Title(), 60),
		)
	}
	return nil
}
