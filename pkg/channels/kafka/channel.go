// Package kafka provides the Kafka event channel used when several processes
// observe executions.
package kafka

import (
	"errors"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

var ErrNoBrokers = errors.New("kafka brokers not configured")

// Config selects the cluster and identifies this process to it.
type Config struct {
	Brokers     []string
	ServiceName string
	// InstanceID gives every process its own consumer group so each one
	// receives all execution events for its WebSocket clients.
	InstanceID string
}

// Brokers splits a comma separated broker list, falling back to KAFKA_BROKERS.
func Brokers(list string) []string {
	if list == "" {
		list = os.Getenv("KAFKA_BROKERS")
	}

	var brokers []string

	for _, broker := range strings.Split(list, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}

// ConsumerGroup is the group name used for cfg.
func (cfg Config) ConsumerGroup() string {
	if cfg.InstanceID == "" {
		return "cg-" + cfg.ServiceName
	}

	return "cg-" + cfg.ServiceName + "-" + cfg.InstanceID
}

func CreateChannel(logger watermill.LoggerAdapter, cfg Config) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}

	subscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	subscriberConfig.ClientID = cfg.ServiceName
	// Notifications are live progress; a new instance has no use for history.
	subscriberConfig.Consumer.Offsets.Initial = sarama.OffsetNewest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               cfg.Brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: subscriberConfig,
			ConsumerGroup:         cfg.ConsumerGroup(),
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	publisherConfig := kafka.DefaultSaramaSyncPublisherConfig()
	publisherConfig.ClientID = cfg.ServiceName
	publisherConfig.Producer.RequiredAcks = sarama.WaitForLocal

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               cfg.Brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: publisherConfig,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, err
	}

	return publisher, subscriber, nil
}
