// Package verdictevents streams check verdicts to Kafka.
package verdictevents

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	json "github.com/goccy/go-json"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/observability"
	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/verdict"
)

type Event struct {
	RunID      string         `json:"run_id"`
	IUT        string         `json:"iut"`
	Group      string         `json:"group"`
	Collection string         `json:"collection,omitempty"`
	Check      string         `json:"check"`
	Status     verdict.Status `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	TS         time.Time      `json:"ts"`
}

type Publisher struct {
	topic   string
	logger  *slog.Logger
	events  chan Event
	prod    sarama.AsyncProducer
	stopped chan struct{}
	errDone chan struct{}
}

func NewPublisher(logger *slog.Logger, brokers []string, topic string, queueSize int) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("verdictevents: create async producer: %w", err)
	}
	return NewWithProducer(logger, prod, topic, queueSize), nil
}

// NewWithProducer starts a publisher on an existing producer, which it then owns.
func NewWithProducer(logger *slog.Logger, prod sarama.AsyncProducer, topic string, queueSize int) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	p := &Publisher{
		topic:   topic,
		logger:  logger,
		events:  make(chan Event, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.logger.Error("verdictevents: marshal", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.RunID),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err != nil {
				p.logger.Warn("verdictevents: producer error", "err", err)
			}
		}
	}()

	return p
}

// Publish enqueues ev without blocking; the event is dropped when the queue is full.
func (p *Publisher) Publish(ev Event) {
	select {
	case p.events <- ev:
	default:
		observability.IncEventsDropped()
	}
}

// Close flushes queued events and closes the producer.
func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	err := p.prod.Close()
	<-p.errDone
	if err != nil {
		return fmt.Errorf("verdictevents: close producer: %w", err)
	}
	return nil
}
