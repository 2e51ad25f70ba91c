package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"photorestore/internal/infra"
	"photorestore/internal/infra/credentials"
	"photorestore/internal/providers/replicate"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *infra.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*infra.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			path = os.Getenv("CONFIG_FILE")
		}
		cfg, err := infra.LoadConfigFrom(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) logger(cmd *cobra.Command) *infra.Logger {
	cfg, _ := c.ensureConfig()
	env := "production"
	if cfg != nil {
		env = cfg.AppEnv
	}
	l := infra.NewLoggerTo(env, cmd.ErrOrStderr()).With().Str("cmd", cmd.Name()).Logger()
	return &l
}

// openPool connects to DATABASE_URL. The caller closes the pool.
func (c *commandContext) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return infra.NewDBPool(ctx, cfg)
}

// providerClient builds a predictions client. A missing configured token falls
// back to the credential store when a database is configured.
func (c *commandContext) providerClient(cmd *cobra.Command) (*replicate.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	token := cfg.Provider.APIToken
	if token == "" && cfg.DatabaseURL != "" {
		pool, err := c.openPool(cmd.Context())
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		store := credentials.NewStore(infra.NewSQLRunner(pool, *c.logger(cmd)))
		if token, err = credentials.ResolveProviderToken(cmd.Context(), "", store); err != nil {
			return nil, fmt.Errorf("resolve provider token: %w", err)
		}
	}
	return replicate.NewClient(replicate.Options{
		APIToken:       token,
		BaseURL:        cfg.Provider.BaseURL,
		Logger:         c.logger(cmd),
		RequestTimeout: cfg.Provider.RequestTimeout,
	}), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
