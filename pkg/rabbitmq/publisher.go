package rabbitmq

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var ErrPublishTimeout = errors.New("publish timed out")

// IPublisher sends one payload to a topic.
type IPublisher interface {
	PublishMessage(topic string, payload []byte) error
	Close()
}

// Publisher publishes on a shared client. QoS follows the topic, see qosFor.
type Publisher struct {
	client  mqtt.Client
	timeout time.Duration
}

func NewPublisher(client mqtt.Client) *Publisher {
	return &Publisher{client: client, timeout: 5 * time.Second}
}

func (p *Publisher) PublishMessage(topic string, payload []byte) error {
	token := p.client.Publish(topic, qosFor(topic), false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() {
	CloseRabbitMQConn(p.client)
}
