package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/equipviz/equipviz/pkg/config"
	"github.com/equipviz/equipviz/pkg/server"
	"github.com/equipviz/equipviz/pkg/service"
	"github.com/equipviz/equipviz/pkg/store/sql"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var cfgFile string

func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	logger := logrus.StandardLogger()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	switch cfg.LogFormat {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log_format %q, expected text or json", cfg.LogFormat)
	}

	return logger, nil
}

func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	cfg.Version = Version

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Launch(ctx, logger, cfg)
}

func migrate(_ *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	store, err := sql.NewSQLStore(logger, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return err
	}
	logger.Infof("schema of %s is up to date", cfg.StoreURL)

	return nil
}

func summarize(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	summary, cErr := service.Analyze(args[0], content, cfg.UploadMode)
	if cErr != nil {
		return cErr
	}

	out, err := json.MarshalIndent(map[string]any{
		"total_count":                 summary.TotalCount,
		"average_flowrate":            summary.AverageFlowrate,
		"average_pressure":            summary.AveragePressure,
		"average_temperature":         summary.AverageTemperature,
		"equipment_type_distribution": summary.Distribution,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))

	return err
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "equipviz",
		Short:         "Equipment dataset ingest and summary server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			Args:  cobra.NoArgs,
			RunE:  serve,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			Args:  cobra.NoArgs,
			RunE:  migrate,
		},
		&cobra.Command{
			Use:   "summarize <file>",
			Short: "Print the summary of a .csv or .tsv file without storing it",
			Args:  cobra.ExactArgs(1),
			RunE:  summarize,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), Version)
			},
		},
	)

	return root
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
