package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abelbrown/sidebar/internal/tally"
)

var tallyDays int

func init() {
	tallyShowCmd.Flags().IntVar(&tallyDays, "days", 7, "number of rows to show")
	tallyCmd.AddCommand(tallyShowCmd, tallyAddCmd)
	rootCmd.AddCommand(tallyCmd)
}

var tallyCmd = &cobra.Command{
	Use:   "tally",
	Short: "Daily counters (water, food, ...)",
}

func openTally() (*tally.Store, error) {
	path := cfg.Tally.DBPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating tally directory: %w", err)
	}
	return tally.Open(path)
}

var tallyShowCmd = &cobra.Command{
	Use:   "show [kind]",
	Short: "Show recent tallies",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openTally()
		if err != nil {
			return err
		}
		defer st.Close()

		kind := ""
		if len(args) == 1 {
			kind = args[0]
		}
		rows, err := st.History(cmd.Context(), kind, tallyDays)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(out, "No tallies yet")
			return nil
		}
		fmt.Fprintln(out, listStyle.Render(fmt.Sprintf("%-12s %-12s %s", "DAY", "KIND", "VALUE")))
		for _, r := range rows {
			fmt.Fprintf(out, "%-12s %-12s %d\n", r.Day, r.Kind, r.Value)
		}
		return nil
	},
}

var tallyAddCmd = &cobra.Command{
	Use:   "add <kind> [n]",
	Short: "Add n (default 1) to today's tally; put \"--\" before a negative n",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta := int64(1)
		if len(args) == 2 {
			n, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			delta = n
		}

		st, err := openTally()
		if err != nil {
			return err
		}
		defer st.Close()

		value, err := st.Add(cmd.Context(), args[0], delta)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s today: %d\n", args[0], value)
		return nil
	},
}
