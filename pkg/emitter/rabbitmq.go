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

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPChannel is the subset of *amqp.Channel used to publish.
type AMQPChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQConfig configures the RabbitMQ emitter.
type RabbitMQConfig struct {
	// URL is an amqp:// connection string.
	URL string

	// Exchange receives every event. It is declared as a durable topic
	// exchange.
	Exchange string

	// RoutingKeyPrefix is prepended to the entity to form the routing key.
	RoutingKeyPrefix string
}

// RabbitMQ publishes events as persistent JSON messages routed by entity.
type RabbitMQ struct {
	channel   AMQPChannel
	conn      *amqp.Connection
	exchange  string
	keyPrefix string
}

// DialRabbitMQ connects, opens a channel and declares the exchange.
func DialRabbitMQ(config RabbitMQConfig) (*RabbitMQ, error) {
	if config.URL == "" {
		return nil, errors.New("rabbitmq url not set")
	}
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	r, err := NewRabbitMQ(ch, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	r.conn = conn
	return r, nil
}

// NewRabbitMQ publishes on an already open channel.
func NewRabbitMQ(ch AMQPChannel, config RabbitMQConfig) (*RabbitMQ, error) {
	if config.Exchange == "" {
		return nil, errors.New("rabbitmq exchange not set")
	}
	if err := ch.ExchangeDeclare(config.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", config.Exchange, err)
	}
	return &RabbitMQ{channel: ch, exchange: config.Exchange, keyPrefix: config.RoutingKeyPrefix}, nil
}

// Emit implements Emitter.
func (r *RabbitMQ) Emit(ctx context.Context, event Event) error {
	body, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ObjectName,
		Timestamp:    event.ObservedAt,
		Body:         body,
	}
	if err := r.channel.PublishWithContext(ctx, r.exchange, r.keyPrefix+event.Entity, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.ObjectName, err)
	}
	return nil
}

// Close closes the channel and, when dialled here, the connection.
func (r *RabbitMQ) Close() error {
	err := r.channel.Close()
	if r.conn != nil {
		if cerr := r.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
