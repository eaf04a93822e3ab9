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

package cli

import (
	"errors"
	"fmt"
)

// Backend names accepted by the backend setting.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendS3     = "s3"
	BackendMinio  = "minio"
	BackendGCS    = "gcs"
	BackendAzure  = "azure"
)

// Strategy names accepted by the strategy setting.
const (
	StrategyDelayed      = "delayed"
	StrategyLastModified = "lastmodified"
	StrategyOnePlusN     = "oneplusn"
)

// Cold-start modes for entities without a persisted watermark.
const (
	ColdStartNow      = "now"
	ColdStartEpoch    = "epoch"
	ColdStartLookback = "lookback"
)

// Checkpoint store names.
const (
	CheckpointNone     = "none"
	CheckpointMemory   = "memory"
	CheckpointFile     = "file"
	CheckpointPostgres = "postgres"
	CheckpointRedis    = "redis"
)

// Emitter names.
const (
	EmitterLog      = "log"
	EmitterRabbitMQ = "rabbitmq"
	EmitterKafka    = "kafka"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNoEntities is returned when polling is started without entities.
	ErrNoEntities = errors.New("no entities configured")
)

// ConfigurationError reports an invalid setting. It is fatal at
// construction time: a poller is never started from a config that fails
// validation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func newConfigError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}
