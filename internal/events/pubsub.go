package events

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	DriverGoChannel = "gochannel"
	DriverKafka     = "kafka"

	// DefaultTopic carries attempt submission events.
	DefaultTopic = "exam.submissions"
)

// Config selects and configures the message broker.
type Config struct {
	Driver        string
	KafkaBrokers  []string
	Topic         string
	ConsumerGroup string
}

// PubSub bundles a publisher and subscriber on the same broker.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	close      func() error
}

func (p *PubSub) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// NewPubSub builds the broker named by cfg.Driver. The in-process gochannel
// driver only delivers messages published by the same process.
func NewPubSub(cfg Config, logger *slog.Logger) (*PubSub, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch strings.ToLower(cfg.Driver) {
	case "", DriverGoChannel:
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		return &PubSub{Publisher: ch, Subscriber: ch, close: ch.Close}, nil
	case DriverKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka driver requires at least one broker")
		}
		publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("create kafka publisher: %w", err)
		}
		subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:       cfg.KafkaBrokers,
			Unmarshaler:   kafka.DefaultMarshaler{},
			ConsumerGroup: cfg.ConsumerGroup,
		}, wmLogger)
		if err != nil {
			_ = publisher.Close()
			return nil, fmt.Errorf("create kafka subscriber: %w", err)
		}
		return &PubSub{
			Publisher:  publisher,
			Subscriber: subscriber,
			close: func() error {
				subErr := subscriber.Close()
				if err := publisher.Close(); err != nil {
					return err
				}
				return subErr
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}
