package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"streakwatch/internal/app"
	"streakwatch/internal/orchestrator"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "streakwatch",
		Short:         "Daily GitHub contribution reminder daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./config.yaml", "path to config file (json or yaml)")

	root.AddCommand(
		newRunCmd(&cfgPath),
		newCheckCmd(&cfgPath),
		newTestEmailCmd(&cfgPath),
		newHistoryCmd(&cfgPath),
	)
	return root
}

func newRunCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(*cfgPath)
			if err != nil {
				return err
			}
			if err := a.Start(ctx); err != nil {
				return err
			}
			// Best-effort; a no-op outside systemd.
			_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

			<-ctx.Done()

			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			return a.Stop(stopCtx)
		},
	}
}

func newCheckCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one check-and-notify invocation and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(*cfgPath)
			if err != nil {
				return err
			}
			out := a.RunOnce(ctx)
			printOutcome(cmd, out)

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := a.Stop(stopCtx); err != nil {
				return err
			}
			if out.Err != nil {
				return fmt.Errorf("check failed: %w", out.Err)
			}
			return nil
		},
	}
}

func newTestEmailCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test-email",
		Short: "Send a reminder unconditionally to verify delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(*cfgPath)
			if err != nil {
				return err
			}
			out := a.TestNotification(ctx)
			printOutcome(cmd, out)

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := a.Stop(stopCtx); err != nil {
				return err
			}
			if !out.Sent {
				return fmt.Errorf("test notification not delivered: %s", out.Reason)
			}
			return nil
		},
	}
}

func newHistoryCmd(cfgPath *string) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent outcomes from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(*cfgPath)
			if err != nil {
				return err
			}
			defer func() {
				stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer stopCancel()
				_ = a.Stop(stopCtx)
			}()

			entries, err := a.History(ctx, n)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				cmd.Println("no journal entries")
				return nil
			}
			for _, e := range entries {
				line := fmt.Sprintf("%s  sent=%-5v login=%s", e.At.Format(time.RFC3339), e.Sent, e.Login)
				if e.Reason != "" {
					line += "  reason=" + e.Reason
				}
				if e.Error != "" {
					line += "  err=" + e.Error
				}
				cmd.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 20, "number of entries to show")
	return cmd
}

func printOutcome(cmd *cobra.Command, out orchestrator.Outcome) {
	if out.Sent {
		cmd.Printf("reminder sent (run %s)\n", out.RunID)
		return
	}
	cmd.Printf("nothing sent: %s (run %s)\n", out.Reason, out.RunID)
}
