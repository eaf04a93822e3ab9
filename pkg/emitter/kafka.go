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

package emitter

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
)

var (
	// ErrKafkaBrokersRequired is returned when no broker address is given.
	ErrKafkaBrokersRequired = errors.New("kafka brokers not set")

	// ErrKafkaTopicRequired is returned when no topic is given.
	ErrKafkaTopicRequired = errors.New("kafka topic not set")
)

// KafkaConfig configures the Kafka emitter.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// Kafka produces one message per event, keyed by object name so replays of
// the same object land on the same partition.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

// NewSaramaConfig returns the producer settings used by DialKafka.
func NewSaramaConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// DialKafka connects a synchronous producer to the brokers. The config is
// checked before dialing.
func DialKafka(config KafkaConfig) (*Kafka, error) {
	if len(config.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}
	if config.Topic == "" {
		return nil, ErrKafkaTopicRequired
	}
	producer, err := sarama.NewSyncProducer(config.Brokers, NewSaramaConfig(config.ClientID))
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return &Kafka{producer: producer, topic: config.Topic}, nil
}

// NewKafka wraps an existing producer.
func NewKafka(producer sarama.SyncProducer, topic string) (*Kafka, error) {
	if topic == "" {
		return nil, ErrKafkaTopicRequired
	}
	return &Kafka{producer: producer, topic: topic}, nil
}

// Emit implements Emitter.
func (k *Kafka) Emit(_ context.Context, event Event) error {
	body, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(event.ObjectName),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("entity"), Value: []byte(event.Entity)},
		},
	})
	if err != nil {
		return fmt.Errorf("produce %s: %w", event.ObjectName, err)
	}
	return nil
}

// Close closes the producer.
func (k *Kafka) Close() error {
	return k.producer.Close()
}
