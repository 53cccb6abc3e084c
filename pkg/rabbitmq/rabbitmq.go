package rabbitmq

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// RabbitMQConfig addresses the broker's MQTT plugin.
type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
}

func (c RabbitMQConfig) BrokerURL() string { return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port) }

// NewRabbitMQConn connects with exponential backoff and disconnects when ctx ends.
func NewRabbitMQConn(cfg *RabbitMQConfig, ctx context.Context) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqtt: connection lost: %v", err)
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	const maxRetries = 5

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Printf("mqtt: connect to %s failed: %v", cfg.BrokerURL(), token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries-1), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}
	log.Printf("mqtt: connected to %s as %s", cfg.BrokerURL(), cfg.ClientID)

	go func() {
		<-ctx.Done()
		CloseRabbitMQConn(client)
	}()
	return client, nil
}

func CloseRabbitMQConn(client mqtt.Client) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		log.Println("mqtt: connection closed")
	}
}
