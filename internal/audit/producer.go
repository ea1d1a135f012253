// Package audit publishes order-mutation events to Kafka so that every write
// against the hosted backend leaves a trail, regardless of which client
// performed it.
package audit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultTopic carries every order mutation; consumers filter on the
	// action field.
	DefaultTopic = "calibtrack.order-mutations"
)

// OrderMutationEvent is the audit record for one order write.
type OrderMutationEvent struct {
	Action      string    `json:"action"`
	OrderNumber string    `json:"orderNumber"`
	Actor       string    `json:"actor,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	EventTime   time.Time `json:"eventTime"`
}

type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logrus.Logger
}

func NewProducer(brokers, topic string, logger *logrus.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, err
	}

	if topic == "" {
		topic = DefaultTopic
	}
	return &Producer{producer: producer, topic: topic, logger: logger}, nil
}

// PublishMutation records one order mutation. Events for the same order
// number are keyed together so a single partition preserves their order.
func (p *Producer) PublishMutation(event OrderMutationEvent) error {
	event.EventTime = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderNumber),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).Error("Failed to publish audit event")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":        p.topic,
		"partition":    partition,
		"offset":       offset,
		"action":       event.Action,
		"order_number": event.OrderNumber,
	}).Info("Audit event published")

	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
