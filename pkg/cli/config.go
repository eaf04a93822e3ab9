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

// Package cli holds the objpoller configuration layer, its validation, and
// the builders that turn a Config into running components.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/partition"
)

// Config holds the CLI configuration settings.
type Config struct {
	Backend          string
	BackendPath      string
	BackendBucket    string
	BackendContainer string
	BackendAccount   string
	BackendKey       string
	BackendSecret    string
	BackendRegion    string
	BackendURL       string
	BackendProject   string

	Entities []string

	Strategy          string
	Interval          time.Duration
	ArtificialLag     *time.Duration // nil selects the strategy default
	TrailingWindows   int
	LookbehindWindows int
	SeenSetSize       int

	ColdStart         string
	ColdStartLookback time.Duration

	Checkpoint     string
	CheckpointPath string
	CheckpointDSN  string

	Emitter          string
	RabbitMQURL      string
	RabbitMQExchange string
	KafkaBrokers     []string
	KafkaTopic       string

	MaxConcurrency int
	ListRateLimit  float64

	LogLevel     string
	LogFormat    string
	Listen       string
	Server       string // push API base URL for remote pushes
	OutputFormat string
}

// InitConfig initializes the configuration using Viper.
// Configuration priority: flags > env vars > config file > defaults.
func InitConfig(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("backend", "local")
	v.SetDefault("backend-path", "./storage")
	v.SetDefault("strategy", StrategyDelayed)
	v.SetDefault("interval", time.Second)
	v.SetDefault("trailing-windows", 1)
	v.SetDefault("lookbehind-windows", 1)
	v.SetDefault("seen-set-size", 0)
	v.SetDefault("cold-start", ColdStartNow)
	v.SetDefault("cold-start-lookback", time.Hour)
	v.SetDefault("checkpoint", CheckpointNone)
	v.SetDefault("checkpoint-path", ".objpoller-watermarks.json")
	v.SetDefault("emitter", EmitterLog)
	v.SetDefault("rabbitmq-exchange", "objpoller")
	v.SetDefault("kafka-topic", "objpoller")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "json")
	v.SetDefault("listen", ":8080")
	v.SetDefault("output-format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".objpoller")
		v.SetConfigType("yaml")
	}

	// OBJPOLLER_BACKEND_PATH maps onto backend-path.
	v.SetEnvPrefix("OBJPOLLER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return v, nil
}

// GetConfig extracts the configuration from Viper into a Config struct.
func GetConfig(v *viper.Viper) *Config {
	cfg := &Config{
		Backend:           v.GetString("backend"),
		BackendPath:       v.GetString("backend-path"),
		BackendBucket:     v.GetString("backend-bucket"),
		BackendContainer:  v.GetString("backend-container"),
		BackendAccount:    v.GetString("backend-account"),
		BackendKey:        v.GetString("backend-key"),
		BackendSecret:     v.GetString("backend-secret"),
		BackendRegion:     v.GetString("backend-region"),
		BackendURL:        v.GetString("backend-url"),
		BackendProject:    v.GetString("backend-project"),
		Entities:          splitList(v.GetStringSlice("entities")),
		Strategy:          strings.ToLower(v.GetString("strategy")),
		Interval:          v.GetDuration("interval"),
		TrailingWindows:   v.GetInt("trailing-windows"),
		LookbehindWindows: v.GetInt("lookbehind-windows"),
		SeenSetSize:       v.GetInt("seen-set-size"),
		ColdStart:         strings.ToLower(v.GetString("cold-start")),
		ColdStartLookback: v.GetDuration("cold-start-lookback"),
		Checkpoint:        strings.ToLower(v.GetString("checkpoint")),
		CheckpointPath:    v.GetString("checkpoint-path"),
		CheckpointDSN:     v.GetString("checkpoint-dsn"),
		Emitter:           strings.ToLower(v.GetString("emitter")),
		RabbitMQURL:       v.GetString("rabbitmq-url"),
		RabbitMQExchange:  v.GetString("rabbitmq-exchange"),
		KafkaBrokers:      splitList(v.GetStringSlice("kafka-brokers")),
		KafkaTopic:        v.GetString("kafka-topic"),
		MaxConcurrency:    v.GetInt("max-concurrency"),
		ListRateLimit:     v.GetFloat64("list-rate-limit"),
		LogLevel:          v.GetString("log-level"),
		LogFormat:         strings.ToLower(v.GetString("log-format")),
		Listen:            v.GetString("listen"),
		Server:            v.GetString("server"),
		OutputFormat:      v.GetString("output-format"),
	}
	if v.IsSet("artificial-lag") {
		lag := v.GetDuration("artificial-lag")
		cfg.ArtificialLag = &lag
	}
	return cfg
}

// splitList flattens comma separated values, which is how environment
// variables carry lists.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// StorageSettings converts Config to the settings map of the selected
// backend.
func (c *Config) StorageSettings() map[string]string {
	settings := make(map[string]string)
	put := func(key, value string) {
		if value != "" {
			settings[key] = value
		}
	}

	switch c.Backend {
	case BackendLocal:
		put("path", c.BackendPath)
	case BackendAzure:
		put("accountName", c.BackendAccount)
		put("accountKey", c.BackendKey)
		put("containerName", c.BackendContainer)
		put("endpoint", c.BackendURL)
	case BackendS3, BackendMinio:
		put("bucket", c.BackendBucket)
		put("region", c.BackendRegion)
		put("endpoint", c.BackendURL)
		put("accessKey", c.BackendKey)
		put("secretKey", c.BackendSecret)
	case BackendGCS:
		put("bucket", c.BackendBucket)
		put("project", c.BackendProject)
		put("endpoint", c.BackendURL)
	}
	return settings
}

// DisplayConfig formats the configuration with secrets masked.
func DisplayConfig(cfg *Config, format string) string {
	rows := configRows(cfg)
	switch format {
	case string(FormatJSON):
		obj := make(map[string]string, len(rows))
		for _, r := range rows {
			obj[r.key] = r.value
		}
		return formatJSON(obj)
	case string(FormatTable):
		return formatConfigTable(rows)
	default:
		var result string
		for _, r := range rows {
			result += fmt.Sprintf("%s: %s\n", r.key, r.value)
		}
		return result
	}
}

type configRow struct {
	key   string
	value string
}

func configRows(cfg *Config) []configRow {
	var rows []configRow
	add := func(key, value string) {
		if value != "" {
			rows = append(rows, configRow{key, value})
		}
	}
	secret := func(key, value string) {
		if value != "" {
			add(key, maskSecret(value))
		}
	}

	add("backend", cfg.Backend)
	add("backend-path", cfg.BackendPath)
	add("backend-bucket", cfg.BackendBucket)
	add("backend-container", cfg.BackendContainer)
	add("backend-account", cfg.BackendAccount)
	secret("backend-key", cfg.BackendKey)
	secret("backend-secret", cfg.BackendSecret)
	add("backend-region", cfg.BackendRegion)
	add("backend-url", cfg.BackendURL)
	add("backend-project", cfg.BackendProject)
	add("entities", strings.Join(cfg.Entities, ","))
	add("strategy", cfg.Strategy)
	add("interval", cfg.Interval.String())
	if cfg.ArtificialLag != nil {
		add("artificial-lag", cfg.ArtificialLag.String())
	}
	switch cfg.Strategy {
	case StrategyDelayed:
		add("lookbehind-windows", fmt.Sprint(cfg.LookbehindWindows))
	case StrategyOnePlusN:
		add("trailing-windows", fmt.Sprint(cfg.TrailingWindows))
		add("seen-set-size", fmt.Sprint(cfg.SeenSetSize))
	}
	add("cold-start", cfg.ColdStart)
	if cfg.ColdStart == ColdStartLookback {
		add("cold-start-lookback", cfg.ColdStartLookback.String())
	}
	add("checkpoint", cfg.Checkpoint)
	if cfg.Checkpoint == CheckpointFile {
		add("checkpoint-path", cfg.CheckpointPath)
	}
	secret("checkpoint-dsn", cfg.CheckpointDSN)
	add("emitter", cfg.Emitter)
	secret("rabbitmq-url", cfg.RabbitMQURL)
	if cfg.Emitter == EmitterRabbitMQ {
		add("rabbitmq-exchange", cfg.RabbitMQExchange)
	}
	if cfg.Emitter == EmitterKafka {
		add("kafka-brokers", strings.Join(cfg.KafkaBrokers, ","))
		add("kafka-topic", cfg.KafkaTopic)
	}
	if cfg.MaxConcurrency > 0 {
		add("max-concurrency", fmt.Sprint(cfg.MaxConcurrency))
	}
	if cfg.ListRateLimit > 0 {
		add("list-rate-limit", fmt.Sprint(cfg.ListRateLimit))
	}
	add("log-level", cfg.LogLevel)
	add("log-format", cfg.LogFormat)
	add("listen", cfg.Listen)
	add("server", cfg.Server)
	return rows
}

func formatConfigTable(rows []configRow) string {
	var result string
	result += "┌─────────────────────┬────────────────────────────────────────┐\n"
	result += "│ Setting             │ Value                                  │\n"
	result += "├─────────────────────┼────────────────────────────────────────┤\n"
	for _, r := range rows {
		result += fmt.Sprintf("│ %-19s │ %-38s │\n", r.key, truncate(r.value, 38))
	}
	result += "└─────────────────────┴────────────────────────────────────────┘\n"
	return result
}

// maskSecret masks sensitive information, showing only first 4 characters.
func maskSecret(s string) string {
	if len(s) < 5 {
		return "****"
	}
	return s[:4] + "****"
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// ValidateConfig checks the configuration and expands a leading ~ in
// filesystem paths. The first problem found is returned as a
// *ConfigurationError.
func ValidateConfig(cfg *Config) error {
	if err := validateBackend(cfg); err != nil {
		return err
	}

	switch cfg.Strategy {
	case StrategyDelayed, StrategyLastModified, StrategyOnePlusN:
	default:
		return newConfigError("strategy", "must be one of delayed, lastmodified, oneplusn")
	}
	if cfg.Interval <= 0 {
		return newConfigError("interval", "must be positive")
	}
	if cfg.ArtificialLag != nil && *cfg.ArtificialLag < 0 {
		return newConfigError("artificial-lag", "must not be negative")
	}
	if cfg.TrailingWindows < 0 {
		return newConfigError("trailing-windows", "must not be negative")
	}
	if cfg.TrailingWindows >= partition.MaxPartitions {
		return newConfigError("trailing-windows", fmt.Sprintf("must be below %d", partition.MaxPartitions))
	}
	if cfg.LookbehindWindows < 0 {
		return newConfigError("lookbehind-windows", "must not be negative")
	}
	if cfg.LookbehindWindows >= partition.MaxPartitions {
		return newConfigError("lookbehind-windows", fmt.Sprintf("must be below %d", partition.MaxPartitions))
	}
	if cfg.SeenSetSize < 0 {
		return newConfigError("seen-set-size", "must not be negative")
	}
	for _, e := range cfg.Entities {
		if strings.Contains(e, "/") {
			return newConfigError("entities", fmt.Sprintf("entity %q must not contain '/'", e))
		}
	}

	// epoch and lookbacks past partition.MaxPartitions are accepted; the
	// strategies scan only the newest MaxPartitions partitions of such a
	// backlog and log a warning.
	switch cfg.ColdStart {
	case ColdStartNow, ColdStartEpoch:
	case ColdStartLookback:
		if cfg.ColdStartLookback <= 0 {
			return newConfigError("cold-start-lookback", "must be positive for cold-start lookback")
		}
	default:
		return newConfigError("cold-start", "must be one of now, epoch, lookback")
	}

	switch cfg.Checkpoint {
	case CheckpointNone, CheckpointMemory:
	case CheckpointFile:
		if cfg.CheckpointPath == "" {
			return newConfigError("checkpoint-path", "is required for the file checkpoint")
		}
		p, err := expandHome(cfg.CheckpointPath)
		if err != nil {
			return newConfigError("checkpoint-path", err.Error())
		}
		cfg.CheckpointPath = p
	case CheckpointPostgres, CheckpointRedis:
		if cfg.CheckpointDSN == "" {
			return newConfigError("checkpoint-dsn", "is required for the "+cfg.Checkpoint+" checkpoint")
		}
	default:
		return newConfigError("checkpoint", "must be one of none, memory, file, postgres, redis")
	}

	switch cfg.Emitter {
	case EmitterLog:
	case EmitterRabbitMQ:
		if cfg.RabbitMQURL == "" {
			return newConfigError("rabbitmq-url", "is required for the rabbitmq emitter")
		}
		if cfg.RabbitMQExchange == "" {
			return newConfigError("rabbitmq-exchange", "is required for the rabbitmq emitter")
		}
	case EmitterKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return newConfigError("kafka-brokers", "is required for the kafka emitter")
		}
		if cfg.KafkaTopic == "" {
			return newConfigError("kafka-topic", "is required for the kafka emitter")
		}
	default:
		return newConfigError("emitter", "must be one of log, rabbitmq, kafka")
	}

	if cfg.MaxConcurrency < 0 {
		return newConfigError("max-concurrency", "must not be negative")
	}
	if cfg.ListRateLimit < 0 {
		return newConfigError("list-rate-limit", "must not be negative")
	}

	if _, err := adapters.ParseLevel(cfg.LogLevel); err != nil {
		return newConfigError("log-level", "must be one of debug, info, warn, error")
	}
	switch cfg.LogFormat {
	case "json", "text", "logrus", "zap":
	default:
		return newConfigError("log-format", "must be one of json, text, logrus, zap")
	}

	if cfg.OutputFormat != "" && cfg.OutputFormat != string(FormatText) &&
		cfg.OutputFormat != string(FormatJSON) && cfg.OutputFormat != string(FormatTable) {
		return newConfigError("output-format", "must be one of text, json, table")
	}
	return nil
}

func validateBackend(cfg *Config) error {
	switch cfg.Backend {
	case BackendMemory:
	case BackendLocal:
		if cfg.BackendPath == "" {
			return newConfigError("backend-path", "is required for the local backend")
		}
		p, err := expandHome(cfg.BackendPath)
		if err != nil {
			return newConfigError("backend-path", err.Error())
		}
		cfg.BackendPath = p
	case BackendS3:
		if cfg.BackendBucket == "" {
			return newConfigError("backend-bucket", "is required for the s3 backend")
		}
	case BackendMinio:
		if cfg.BackendBucket == "" {
			return newConfigError("backend-bucket", "is required for the minio backend")
		}
		if cfg.BackendURL == "" {
			return newConfigError("backend-url", "is required for the minio backend")
		}
	case BackendGCS:
		if cfg.BackendBucket == "" {
			return newConfigError("backend-bucket", "is required for the gcs backend")
		}
	case BackendAzure:
		if cfg.BackendAccount == "" {
			return newConfigError("backend-account", "is required for the azure backend")
		}
		if cfg.BackendContainer == "" {
			return newConfigError("backend-container", "is required for the azure backend")
		}
	default:
		return newConfigError("backend", fmt.Sprintf("unsupported backend %q", cfg.Backend))
	}
	return nil
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, p[1:]), nil
}
