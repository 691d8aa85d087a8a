package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/sehatline/sehat_backend/cmd/http"
	schedulercmd "github.com/sehatline/sehat_backend/cmd/scheduler"
	systemcmd "github.com/sehatline/sehat_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "sehat",
	Short: "Sehat patient health assistant backend.",
	Long: `Sehat is the backend core of a patient health assistant. It keeps the
medication-adherence ledger, maintains per-patient summaries, and schedules
SMS medication reminders with exactly-once slot delivery.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
	rootCmd.AddCommand(schedulercmd.NewSchedulerCommand())
}
