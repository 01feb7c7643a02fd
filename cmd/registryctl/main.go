// Command registryctl lists and browses registry screens from a terminal
// and manages the option-cache jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/civic-registry/console/internal/registry"
	"github.com/civic-registry/console/internal/screens"
)

type config struct {
	RegistryAPIURL     string        `envconfig:"REGISTRY_API_URL" default:"http://127.0.0.1:3000/api"`
	RegistryAPIToken   string        `envconfig:"REGISTRY_API_TOKEN"`
	RegistryAPITimeout time.Duration `envconfig:"REGISTRY_API_TIMEOUT" default:"15s"`
	RedisAddr          string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	ScreensFile        string        `envconfig:"SCREENS_FILE"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"warn"`
}

type env struct {
	cfg     config
	catalog *screens.Catalog
	client  *registry.Client
	logger  *slog.Logger
}

func loadEnv() (*env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &env{cfg: cfg}, nil
}

func (e *env) init() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.cfg.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	e.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	catalog, err := screens.Load(e.cfg.ScreensFile)
	if err != nil {
		return err
	}
	e.catalog = catalog
	client, err := registry.NewClient(registry.Config{
		BaseURL: e.cfg.RegistryAPIURL,
		Token:   e.cfg.RegistryAPIToken,
		Timeout: e.cfg.RegistryAPITimeout,
	})
	if err != nil {
		return err
	}
	e.client = client
	return nil
}

func (e *env) screen(name string) (*screens.Definition, error) {
	def, ok := e.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown screen %q (try: registryctl screens)", name)
	}
	return def, nil
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "registryctl",
		Short:         "Operate the civic registry from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init()
		},
	}
	root.PersistentFlags().StringVar(&e.cfg.RegistryAPIURL, "api", e.cfg.RegistryAPIURL, "registry API base URL")
	root.PersistentFlags().StringVar(&e.cfg.RedisAddr, "redis", e.cfg.RedisAddr, "Redis address for jobs")
	root.PersistentFlags().StringVar(&e.cfg.ScreensFile, "screens", e.cfg.ScreensFile, "screen overrides YAML file")

	root.AddCommand(newScreensCmd(e), newListCmd(e), newBrowseCmd(e), newJobsCmd(e))
	return root
}

func main() {
	e, err := loadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "registryctl:", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(e).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "registryctl:", err)
		os.Exit(1)
	}
}
