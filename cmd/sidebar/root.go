package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/abelbrown/sidebar/internal/config"
	"github.com/abelbrown/sidebar/internal/logging"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sidebar",
	Short: "Desktop notifications panel",
	Long: `sidebar listens to the session bus for "show notification" calls,
keeps the most recent ones on disk, and shows them in a terminal panel.

Run without a subcommand to open the panel.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE:              runPanel,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.Path()+")")
}

// loadConfig runs before every command. Subcommands log warnings to stderr;
// the panel owns the terminal and logs to a file instead.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd != cmd.Root() {
		logging.InitWriter(os.Stderr, log.WarnLevel)
	}
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = c
	return nil
}
