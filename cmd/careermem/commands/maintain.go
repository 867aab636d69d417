package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hireflow/careermem-go/pkg/core"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run memory maintenance",
	Long: `Decay stale memories, merge duplicates and purge expired ones.

Without --user every stored user is processed. With --watch the pass
repeats every MAINTENANCE_INTERVAL (or --interval) until interrupted.

Example:
  careermem maintain --user user_001
  careermem maintain --watch --interval 6h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		watch, _ := cmd.Flags().GetBool("watch")
		interval, _ := cmd.Flags().GetDuration("interval")

		client, err := openClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if userID != "" {
			if watch {
				return fmt.Errorf("--watch runs over all users, drop --user")
			}
			report, err := client.RunMaintenance(ctx, userID)
			if err != nil {
				return err
			}
			return printJSON(report)
		}

		if interval <= 0 {
			interval = client.Config().Maintenance.Interval.Std()
		}
		scheduler := core.NewScheduler(client, interval)
		if watch {
			client.Logger().Info("maintenance scheduler started", "interval", interval.String())
			if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}

		summary, err := scheduler.RunOnce(ctx)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

func init() {
	maintainCmd.Flags().String("user", "", "only process this user")
	maintainCmd.Flags().Bool("watch", false, "keep running on the maintenance interval")
	maintainCmd.Flags().Duration("interval", time.Duration(0), "override the maintenance interval")
	rootCmd.AddCommand(maintainCmd)
}
