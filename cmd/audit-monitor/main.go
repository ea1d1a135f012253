package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calibworks/calibtrack/internal/audit"
	"github.com/calibworks/calibtrack/internal/config"
)

// audit-monitor tails the order-mutation topic and prints every event. Useful
// for watching a hosted deployment during migrations and incident review.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.KafkaBrokers == "" {
		logger.Fatal("CALIBTRACK_KAFKA_BROKERS must be set")
	}

	consumer, err := audit.NewConsumer(cfg.KafkaBrokers, cfg.AuditGroup, cfg.AuditTopic, &printer{logger: logger}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create audit consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("Audit consumer stopped")
		}
	}()

	logger.WithField("topic", cfg.AuditTopic).Info("Audit monitor started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down audit monitor...")
}

type printer struct {
	logger *logrus.Logger
}

func (p *printer) HandleMutation(event audit.OrderMutationEvent) error {
	p.logger.WithFields(logrus.Fields{
		"action":       event.Action,
		"order_number": event.OrderNumber,
		"event_time":   event.EventTime,
	}).Info("Order mutation")

	fmt.Printf("%s  %-28s %s\n",
		event.EventTime.Format(time.RFC3339), event.Action, event.OrderNumber)
	return nil
}
