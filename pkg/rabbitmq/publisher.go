package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes payloads on MQTT topics.
type IPublisher interface {
	PublishMessage(message interface{}) error
	PublishToQos(topic string, qos byte, retained bool, message interface{}) error
	Close()
}

// Publisher has a default topic; PublishToQos can target any other.
type Publisher struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic, timeout: 5 * time.Second}
}

// PublishMessage sends message on the default topic at QoS 0.
func (p *Publisher) PublishMessage(message interface{}) error {
	return p.PublishToQos(p.topic, 0, false, message)
}

// PublishToQos accepts a string, a []byte or any value encodable as JSON.
func (p *Publisher) PublishToQos(topic string, qos byte, retained bool, message interface{}) error {
	if p.client == nil {
		return fmt.Errorf("publish %s: no mqtt client", topic)
	}
	payload, err := encode(message)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: timed out after %s", topic, p.timeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish on %s: %w", topic, token.Error())
	}
	log.Printf("mqtt: published %d bytes on %s (qos=%d)", len(payload), topic, qos)
	return nil
}

func (p *Publisher) Close() { CloseRabbitMQConn(p.client) }

func encode(message interface{}) ([]byte, error) {
	switch m := message.(type) {
	case string:
		return []byte(m), nil
	case []byte:
		return m, nil
	default:
		return json.Marshal(m)
	}
}
