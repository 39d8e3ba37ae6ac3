package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/jbtestsuite/jbtest/pkg/channels/gochannel"
	"github.com/jbtestsuite/jbtest/pkg/channels/kafka"
	"github.com/jbtestsuite/jbtest/pkg/eventbus"
)

// NewEventBus creates the execution event bus. "gochannel" keeps events in
// process; "kafka" reads the broker list from kafkaBrokers or KAFKA_BROKERS.
func NewEventBus(provider, kafkaBrokers string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "gochannel", "":
		pubSub := gochannel.New(wmLogger, gochannel.DefaultBuffer)

		return eventbus.NewWatermillEventBus(pubSub, pubSub)
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, kafka.Config{
			Brokers:     kafka.Brokers(kafkaBrokers),
			ServiceName: "jbtest",
			InstanceID:  uuid.NewString()[:8],
		})
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
