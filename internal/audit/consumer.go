package audit

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// MutationHandler receives decoded audit events from the consumer loop.
type MutationHandler interface {
	HandleMutation(event OrderMutationEvent) error
}

type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       MutationHandler
	logger        *logrus.Logger
	topics        []string
}

type consumerGroupHandler struct {
	handler MutationHandler
	logger  *logrus.Logger
}

func NewConsumer(brokers, groupID, topic string, handler MutationHandler, logger *logrus.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Version = sarama.V2_6_0_0

	consumerGroup, err := sarama.NewConsumerGroup(strings.Split(brokers, ","), groupID, config)
	if err != nil {
		return nil, err
	}

	if topic == "" {
		topic = DefaultTopic
	}
	return &Consumer{
		consumerGroup: consumerGroup,
		handler:       handler,
		logger:        logger,
		topics:        []string{topic},
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		handler: c.handler,
		logger:  c.logger,
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Audit consumer context cancelled")
			return nil
		default:
			if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
				c.logger.WithError(err).Error("Error consuming audit events")
				return err
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Audit consumer session setup")
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Audit consumer session cleanup")
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			var event OrderMutationEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				h.logger.WithError(err).WithFields(logrus.Fields{
					"topic":  message.Topic,
					"offset": message.Offset,
				}).Error("Failed to unmarshal audit event")
				// Malformed events are skipped, not retried.
				session.MarkMessage(message, "")
				continue
			}

			if err := h.handler.HandleMutation(event); err != nil {
				h.logger.WithError(err).WithField("action", event.Action).
					Error("Failed to handle audit event")
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			h.logger.Info("Audit consumer session context cancelled")
			return nil
		}
	}
}
