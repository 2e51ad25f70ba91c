package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"photorestore/internal/infra"
	"photorestore/internal/usage"
)

func newUsageCommand(ctx *commandContext) *cobra.Command {
	var dayFlag string

	usageCmd := &cobra.Command{
		Use:   "usage",
		Short: "Inspect or reset daily restoration counts",
	}
	usageCmd.PersistentFlags().StringVar(&dayFlag, "day", "", "UTC day as YYYY-MM-DD (default today)")

	withLedger := func(cmd *cobra.Command, fn func(context.Context, *usage.Ledger, string) error) error {
		day, err := parseDay(dayFlag, time.Now())
		if err != nil {
			return err
		}
		connectCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		pool, err := ctx.openPool(connectCtx)
		if err != nil {
			return err
		}
		defer pool.Close()
		ledger := usage.NewLedger(infra.NewSQLRunner(pool, *ctx.logger(cmd)))

		execCtx, cancelExec := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancelExec()
		return fn(execCtx, ledger, day)
	}

	usageCmd.AddCommand(&cobra.Command{
		Use:   "show <subject>",
		Short: "Print the restoration count for a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := strings.TrimSpace(args[0])
			return withLedger(cmd, func(execCtx context.Context, ledger *usage.Ledger, day string) error {
				n, err := ledger.DailyCount(execCtx, subject, day)
				if err != nil {
					return err
				}
				cfg, _ := ctx.ensureConfig()
				limit := "unlimited"
				if cfg != nil && cfg.DailyQuota > 0 {
					limit = strconv.Itoa(cfg.DailyQuota)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"subject": subject, "day": day, "count": n, "limit": limit})
				}
				printKeyValues(cmd, []string{"Subject", "Day", "Count", "Limit"}, [][]string{{subject, day, strconv.Itoa(n), limit}})
				return nil
			})
		},
	})

	usageCmd.AddCommand(&cobra.Command{
		Use:   "reset <subject>",
		Short: "Clear the restoration count for a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := strings.TrimSpace(args[0])
			return withLedger(cmd, func(execCtx context.Context, ledger *usage.Ledger, day string) error {
				existed, err := ledger.Reset(execCtx, subject, day)
				if err != nil {
					return err
				}
				if !existed {
					fmt.Fprintf(cmd.OutOrStdout(), "No usage recorded for %s on %s\n", subject, day)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Usage reset for %s on %s\n", subject, day)
				return nil
			})
		},
	})
	return usageCmd
}

func parseDay(raw string, now time.Time) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC().Format(usage.DayFormat), nil
	}
	t, err := time.Parse(usage.DayFormat, raw)
	if err != nil {
		return "", fmt.Errorf("invalid --day %q: expected YYYY-MM-DD", raw)
	}
	return t.Format(usage.DayFormat), nil
}
