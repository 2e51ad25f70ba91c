package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"photorestore/internal/infra"
	"photorestore/internal/infra/credentials"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored provider token",
	}

	tokenCmd.AddCommand(&cobra.Command{
		Use:   "set [token]",
		Short: "Store the Replicate API token in the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			token := cfg.Provider.APIToken
			if len(args) == 1 {
				token = strings.TrimSpace(args[0])
			}
			if token == "" {
				return fmt.Errorf("replicate api token is required as an argument or via REPLICATE_API_TOKEN")
			}
			store, closeStore, err := openStore(cmd, ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			execCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			props := map[string]any{"source": "restorectl", "stored_at": time.Now().UTC().Format(time.RFC3339)}
			if err := store.SetReplicateToken(execCtx, token, props); err != nil {
				return fmt.Errorf("persist replicate api token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Replicate API token stored successfully")
			return nil
		},
	})

	tokenCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether a Replicate API token is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd, ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			execCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			token, err := store.ReplicateToken(execCtx)
			if err != nil {
				return fmt.Errorf("read replicate api token: %w", err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"stored": token != "", "masked": maskToken(token)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored token: %s\n", maskToken(token))
			return nil
		},
	})
	return tokenCmd
}

func openStore(cmd *cobra.Command, ctx *commandContext) (*credentials.Store, func(), error) {
	connectCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	pool, err := ctx.openPool(connectCtx)
	if err != nil {
		return nil, nil, err
	}
	return credentials.NewStore(infra.NewSQLRunner(pool, *ctx.logger(cmd))), pool.Close, nil
}

// maskToken keeps the last four characters.
func maskToken(token string) string {
	if token == "" {
		return "none"
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
