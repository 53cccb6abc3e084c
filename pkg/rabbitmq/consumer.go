package rabbitmq

import (
	"context"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one message received on topic.
type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes and dispatches until its context ends.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler Handler)
}

// Consumer subscribes to one or more topic filters with a shared handler.
type Consumer struct {
	client  mqtt.Client
	topics  []string
	handler Handler
}

func NewConsumer(client mqtt.Client, handler Handler, topics ...string) *Consumer {
	return &Consumer{client: client, topics: topics, handler: handler}
}

func (c *Consumer) SetHandler(handler Handler) { c.handler = handler }

// QoSFor is 1 for audit events, which must not be lost, and 0 otherwise.
func QoSFor(topic string) byte {
	if strings.HasPrefix(strings.TrimSpace(topic), "event/irrigationAudit") {
		return 1
	}
	return 0
}

// ConsumeMessage subscribes to every topic and blocks until ctx is cancelled.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	for _, topic := range c.topics {
		topic := topic
		token := c.client.Subscribe(topic, QoSFor(topic), func(_ mqtt.Client, msg mqtt.Message) {
			c.dispatch(topic, msg)
		})
		if token.Wait() && token.Error() != nil {
			log.Printf("mqtt: subscribe %s failed: %v", topic, token.Error())
			continue
		}
		log.Printf("mqtt: subscribed to %s (qos=%d)", topic, QoSFor(topic))
	}

	<-ctx.Done()

	if c.client.IsConnected() {
		c.client.Unsubscribe(c.topics...).Wait()
	}
}

func (c *Consumer) dispatch(topic string, msg mqtt.Message) {
	if c.handler == nil {
		log.Printf("mqtt: no handler for %s", topic)
		return
	}
	if err := c.handler(topic, msg); err != nil {
		log.Printf("mqtt: handling message on %s: %v", msg.Topic(), err)
	}
}
