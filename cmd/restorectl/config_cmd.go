package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type configCheck struct {
	Setting string `json:"setting"`
	Value   string `json:"value"`
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect restorectl configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Show which settings are present without printing secrets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			identity := "remote"
			if cfg.Identity.JWTSecret != "" {
				identity = "local"
			}
			checks := []configCheck{
				{"Environment", cfg.AppEnv},
				{"Database", yesNo(cfg.DatabaseURL != "")},
				{"Identity validation", identity},
				{"Identity URL", yesNo(cfg.Identity.BaseURL != "")},
				{"Provider token", yesNo(cfg.Provider.APIToken != "")},
				{"Provider URL", cfg.Provider.BaseURL},
				{"Model version", cfg.Provider.ModelVersion},
				{"Max upload", strconv.FormatInt(cfg.Restore.MaxUploadBytes, 10) + " bytes"},
				{"Poll interval", cfg.Restore.PollInterval.String()},
				{"Poll attempts", strconv.Itoa(cfg.Restore.MaxPollAttempts)},
				{"Poll budget", cfg.Restore.PollBudget().String()},
				{"Rate limit", fmt.Sprintf("%d/min", cfg.RateLimitPerMin)},
				{"IP rate limit", fmt.Sprintf("%d/min", cfg.IPRateLimitPerMin)},
				{"Daily quota", strconv.Itoa(cfg.DailyQuota)},
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, checks)
			}
			rows := make([][]string, 0, len(checks))
			for _, c := range checks {
				rows = append(rows, []string{c.Setting, c.Value})
			}
			printKeyValues(cmd, []string{"Setting", "Value"}, rows)
			return nil
		},
	})
	return configCmd
}
