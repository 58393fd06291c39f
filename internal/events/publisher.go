// Package events publishes interview session and turn events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-interview-session-service/internal/models"
	"ai-interview-session-service/internal/observability/metrics"
	"ai-interview-session-service/internal/schema"
)

// Publisher publishes events to separate Kafka topics for turns and sessions.
type Publisher struct {
	writerTurns    *kafka.Writer
	writerSessions *kafka.Writer
	principal      string
	topicTurns     string
	topicSessions  string
	enabled        bool
	metrics        *metrics.Metrics
	validator      *schema.Validator
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers       []string
	TopicTurns    string
	TopicSessions string
	Principal     string
	Enabled       bool
}

// New creates a publisher. Without brokers, or when disabled, events are only logged.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics
	v := schema.New()

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{metrics: m, validator: v}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:     cfg.Principal,
			topicTurns:    cfg.TopicTurns,
			topicSessions: cfg.TopicSessions,
			metrics:       m,
			validator:     v,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	p := &Publisher{
		principal:     cfg.Principal,
		topicTurns:    cfg.TopicTurns,
		topicSessions: cfg.TopicSessions,
		enabled:       true,
		metrics:       m,
		validator:     v,
	}
	p.writerTurns = p.newWriter(cfg.Brokers, cfg.TopicTurns, transport)
	p.writerSessions = p.newWriter(cfg.Brokers, cfg.TopicSessions, transport)

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTurns", cfg.TopicTurns).
		Str("topicSessions", cfg.TopicSessions).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return p
}

// newWriter builds an async writer so publishing never stalls the turn loop.
// Delivery failures surface through Completion.
func (p *Publisher) newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Transport:    transport,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			log.Error().Err(err).Str("topic", topic).Int("messages", len(messages)).Msg("Failed to write to Kafka")
			p.metrics.RecordKafkaError(topic, len(messages))
		},
	}
}

// PublishSession publishes a session lifecycle event keyed by session ID.
func (p *Publisher) PublishSession(ctx context.Context, ev models.SessionEvent) error {
	if err := p.validator.Validate(ev); err != nil {
		log.Error().Err(err).Str("eventType", ev.EventType).Msg("Dropping invalid session event")
		return err
	}
	return p.publish(ctx, p.writerSessions, p.topicSessions, ev.EventType, ev.SessionID, ev)
}

// PublishTurn publishes a turn event keyed by session ID so a session's turns stay ordered.
func (p *Publisher) PublishTurn(ctx context.Context, ev models.TurnEvent) error {
	if err := p.validator.Validate(ev); err != nil {
		log.Error().Err(err).Str("eventType", ev.EventType).Msg("Dropping invalid turn event")
		return err
	}
	return p.publish(ctx, p.writerTurns, p.topicTurns, ev.EventType, ev.SessionID, ev)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	p.metrics.RecordKafkaPublish(topic, eventType)

	if !p.enabled || writer == nil {
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}
	return writer.WriteMessages(ctx, msg)
}

// Close flushes and closes both writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTurns != nil {
		if e := p.writerTurns.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing turns writer")
			err = e
		}
	}
	if p.writerSessions != nil {
		if e := p.writerSessions.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing sessions writer")
			err = e
		}
	}
	return err
}
