package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage the Drive change watch channel",
}

var watchStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Open a watch channel delivering to the configured public URL",
	RunE:  runWatchStart,
}

var watchStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Close the active watch channel",
	RunE:  runWatchStop,
}

var watchStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active watch channel",
	RunE:  runWatchStatus,
}

var watchDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Process pending changes once without waiting for a notification",
	RunE:  runWatchDrain,
}

func init() {
	watchCmd.AddCommand(watchStartCmd, watchStopCmd, watchStatusCmd, watchDrainCmd)
	rootCmd.AddCommand(watchCmd)
}

// withApp loads and validates configuration, wires the app and runs fn.
func withApp(cmd *cobra.Command, serve bool, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serve {
		err = cfg.ValidateServe()
	} else {
		err = cfg.Validate()
	}
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func runWatchStart(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, true, func(ctx context.Context, a *app) error {
		ch, err := a.watch.Start(ctx)
		if err != nil {
			return fmt.Errorf("start watch: %w", err)
		}
		printChannel(cmd, ch)
		return nil
	})
}

func runWatchStop(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		stopped, err := a.watch.Stop(ctx)
		if err != nil {
			return fmt.Errorf("stop watch: %w", err)
		}
		if !stopped {
			cmd.Println("No active channel.")
			return nil
		}
		cmd.Println("Channel stopped.")
		return nil
	})
}

func runWatchStatus(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		ch, err := a.watch.Active(ctx)
		if err != nil {
			return err
		}
		if ch == nil {
			cmd.Println("No active channel.")
			return nil
		}
		printChannel(cmd, ch)
		return nil
	})
}

func runWatchDrain(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, true, func(ctx context.Context, a *app) error {
		report, err := a.consumer.Drain(ctx)
		if err != nil {
			return fmt.Errorf("drain: %w", err)
		}
		cmd.Printf("Pages: %d  Changes: %d  Eligible: %d\n", report.Pages, report.Records, report.Eligible)
		cmd.Printf("Moved: %d  Already filed: %d  Skipped: %d  Failed: %d\n",
			report.Moved, report.NoOps, report.Skipped, report.Failed)
		return nil
	})
}

func printChannel(cmd *cobra.Command, ch *domain.WatchChannel) {
	cmd.Printf("Channel:  %s\n", ch.ID)
	cmd.Printf("Resource: %s\n", ch.ResourceID)
	cmd.Printf("Address:  %s\n", ch.Address)
	if ch.Expiration != nil {
		cmd.Printf("Expires:  %s\n", ch.Expiration.Local().Format(time.RFC1123))
	}
}
