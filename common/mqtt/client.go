package mqtt

import (
	"fmt"
	"time"

	"juni-core/common/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client wraps a paho client with the broker settings it was built from
type Client struct {
	client mqtt.Client
	config *config.MQTTConfig
}

// NewClient connects to the broker; it fails fast if the broker is unreachable
func NewClient(cfg *config.MQTTConfig) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

// Publish sends payload to topic and waits for the broker ack
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

// QoS returns the configured default QoS
func (c *Client) QoS() byte {
	return c.config.QoS
}

// Disconnect waits up to 250ms for in-flight work
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

// IsConnected reports the connection state
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}
