// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objpoller.
//
// go-objpoller is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-objpoller/pkg/cli"
	"github.com/jeremyhahn/go-objpoller/pkg/version"
)

var (
	cfgFile      string
	viperConfig  *viper.Viper
	globalConfig *cli.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "objpoller",
	Short:   "Poll time-partitioned object stores for new objects",
	Version: version.String(),
	Long: `objpoller watches entities stored under entity/<yyyy.MM.dd.HH.mm>/<id> keys
and emits every newly written object exactly as the selected strategy admits it.

Strategies:
  - delayed      : scan only closed minute partitions (approximately exactly-once, up to one minute late)
  - lastmodified : scan from the watermark by last-modified time, after an artificial lag
  - oneplusn     : rescan the current and N previous partitions with a seen-set (at-least-once)

Supported Storage Backends:
  - memory, local (always available)
  - s3, minio, gcs, azure (enabled with build tags)

Configuration can be provided via:
  - Command-line flags (highest priority)
  - Environment variables (OBJPOLLER_*)
  - Configuration file (~/.objpoller.yaml or ./.objpoller.yaml)
  - Default values (lowest priority)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		viperConfig, err = cli.InitConfig(cfgFile)
		if err != nil {
			return err
		}
		if err := viperConfig.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
		globalConfig = cli.GetConfig(viperConfig)
		return nil
	},
}

func outputFormat() cli.OutputFormat {
	return cli.OutputFormat(globalConfig.OutputFormat)
}

// withComponents builds the configured components, runs fn, and releases
// them. Errors are printed in the selected output format.
func withComponents(ctx context.Context, record bool, fn func(*cli.Components) error) error {
	c, err := cli.Build(ctx, globalConfig, cli.BuildOptions{LogWriter: os.Stderr, RecordEvents: record})
	if err != nil {
		fmt.Fprint(os.Stderr, cli.FormatError(err, outputFormat()))
		return err
	}
	defer func() { _ = c.Close() }()

	if err := fn(c); err != nil {
		fmt.Fprint(os.Stderr, cli.FormatError(err, outputFormat()))
		return err
	}
	return nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll the configured entities",
	Long: `Poll the configured entities on the configured interval until interrupted.
With --once a single check of every entity is made and summarised.`,
	Example: `  objpoller poll --entities Orders,Users --strategy lastmodified
  objpoller poll --once --backend local --backend-path ./storage --entities Orders
  OBJPOLLER_ENTITIES=Orders objpoller poll --checkpoint file`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		once, _ := cmd.Flags().GetBool("once") //nolint:errcheck // flags are validated by cobra
		ctx, stop := signalContext(cmd)
		defer stop()

		return withComponents(ctx, once, func(c *cli.Components) error {
			if !once {
				return c.Poll(ctx)
			}
			summary, err := c.PollOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Print(cli.FormatTickSummary(summary, outputFormat()))
			return nil
		})
	},
}

var createCmd = &cobra.Command{
	Use:     "create <entity>",
	Short:   "Create the storage container for an entity",
	Example: `  objpoller create Orders`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entity := args[0]
		return withComponents(cmd.Context(), false, func(c *cli.Components) error {
			if err := c.Create(cmd.Context(), entity); err != nil {
				return err
			}
			fmt.Print(cli.FormatOperationResult(&cli.OperationResult{
				Success: true,
				Message: fmt.Sprintf("Entity '%s' created", entity),
				Data:    map[string]string{"entity": entity},
			}, outputFormat()))
			return nil
		})
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <entity> [file]",
	Short: "Store one JSON record for an entity",
	Long: `Store one JSON record under the current minute partition of an entity.
The record is read from file, or from stdin when file is omitted or '-'.
With --server the record is sent to a running push API instead.`,
	Example: `  objpoller push Orders order.json
  echo '{"id":1}' | objpoller push Orders
  objpoller push Orders order.json --server http://localhost:8080`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entity := args[0]
		var in io.Reader = os.Stdin
		if len(args) == 2 && args[1] != "-" {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		return withComponents(cmd.Context(), false, func(c *cli.Components) error {
			key, err := c.Push(cmd.Context(), entity, in)
			if err != nil {
				return err
			}
			fmt.Print(cli.FormatOperationResult(&cli.OperationResult{
				Success: true,
				Message: fmt.Sprintf("Stored '%s'", key),
				Data:    map[string]string{"path": key},
			}, outputFormat()))
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the push API, metrics endpoint and poller",
	Long: `Serve the push API (POST /push/create/:entity, POST /push/:entity/addRows),
GET /health and GET /metrics. When entities are configured the poller runs
in the same process and GET /watermarks reports its progress.`,
	Example: `  objpoller serve --listen :8080 --backend local --backend-path ./storage
  objpoller serve --entities Orders --strategy oneplusn`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()
		return withComponents(ctx, false, func(c *cli.Components) error {
			return c.Serve(ctx)
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  `Show the effective configuration after flags, environment and config file are merged. Secrets are masked.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.ValidateConfig(globalConfig); err != nil {
			fmt.Fprint(os.Stderr, cli.FormatError(err, outputFormat()))
			return err
		}
		fmt.Print(cli.DisplayConfig(globalConfig, globalConfig.OutputFormat))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.objpoller.yaml)")

	pf.String("backend", "local", "storage backend (memory, local, s3, minio, gcs, azure)")
	pf.String("backend-path", "./storage", "root directory for the local backend")
	pf.String("backend-bucket", "", "bucket for s3, minio and gcs")
	pf.String("backend-container", "", "container for azure")
	pf.String("backend-account", "", "storage account for azure")
	pf.String("backend-key", "", "access key")
	pf.String("backend-secret", "", "secret key")
	pf.String("backend-region", "", "region for s3 and minio")
	pf.String("backend-url", "", "custom endpoint URL")
	pf.String("backend-project", "", "project for gcs")

	pf.StringSlice("entities", nil, "entities to poll")
	pf.String("strategy", cli.StrategyDelayed, "polling strategy (delayed, lastmodified, oneplusn)")
	pf.Duration("interval", 0, "delay between polls (default 1s)")
	pf.Duration("artificial-lag", 0, "extra delay before an object is admitted (strategy default when unset)")
	pf.Int("trailing-windows", 1, "partitions before the current one rescanned by oneplusn")
	pf.Int("lookbehind-windows", 1, "partitions before the watermark rescanned by delayed")
	pf.Int("seen-set-size", 0, "bound on the oneplusn seen-set, 0 for unbounded")
	pf.String("cold-start", cli.ColdStartNow, "watermark for new entities (now, epoch, lookback)")
	pf.Duration("cold-start-lookback", 0, "how far back a lookback cold start begins (default 1h)")
	pf.String("checkpoint", cli.CheckpointNone, "watermark store (none, memory, file, postgres, redis)")
	pf.String("checkpoint-path", "", "watermark file for the file checkpoint")
	pf.String("checkpoint-dsn", "", "connection string for the postgres or redis checkpoint")
	pf.String("emitter", cli.EmitterLog, "event sink (log, rabbitmq, kafka)")
	pf.String("rabbitmq-url", "", "amqp:// URL for the rabbitmq emitter")
	pf.String("rabbitmq-exchange", "", "exchange for the rabbitmq emitter")
	pf.StringSlice("kafka-brokers", nil, "brokers for the kafka emitter")
	pf.String("kafka-topic", "", "topic for the kafka emitter")
	pf.Int("max-concurrency", 0, "entities checked at once, 0 for all")
	pf.Float64("list-rate-limit", 0, "listing calls per second, 0 for unlimited")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "json", "log format (json, text, logrus, zap)")
	pf.String("output-format", "text", "output format (text, json, table)")
	pf.String("server", "", "push API URL used by create and push instead of the backend")

	pollCmd.Flags().Bool("once", false, "check every entity once and exit")
	serveCmd.Flags().String("listen", ":8080", "listen address")

	rootCmd.AddCommand(pollCmd, createCmd, pushCmd, serveCmd, configCmd)
}
