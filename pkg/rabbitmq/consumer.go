package rabbitmq

import (
	"context"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one message received on a subscription.
type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes a handler and blocks until ctx is done.
type IConsumer interface {
	ConsumeMessage(ctx context.Context) error
	SetHandler(handler Handler)
}

type Consumer struct {
	client  mqtt.Client
	handler Handler
	topic   string
}

func NewConsumer(client mqtt.Client, topic string, handler Handler) *Consumer {
	return &Consumer{client: client, topic: topic, handler: handler}
}

func (c *Consumer) SetHandler(handler Handler) {
	c.handler = handler
}

// qosFor uses at-least-once for commands, which must not be lost, and
// at-most-once for periodic readings.
func qosFor(topic string) byte {
	if strings.HasSuffix(strings.TrimSpace(topic), "/command") {
		return 1
	}
	return 0
}

// ConsumeMessage subscribes to the topic and blocks until ctx is done.
func (c *Consumer) ConsumeMessage(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("no handler set for topic %s", c.topic)
	}
	token := c.client.Subscribe(c.topic, qosFor(c.topic), func(_ mqtt.Client, message mqtt.Message) {
		if err := c.handler(message.Topic(), message); err != nil {
			log.Printf("mqtt: error handling message on %s: %v", message.Topic(), err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", c.topic, token.Error())
	}
	log.Printf("mqtt: subscribed to %s", c.topic)

	<-ctx.Done()

	c.client.Unsubscribe(c.topic).Wait()
	return nil
}
