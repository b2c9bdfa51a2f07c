package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	commonredis "juni-core/common/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Event types published on state transitions
const (
	MatchProposed   = "match.proposed"
	MatchAccepted   = "match.accepted"
	MatchRejected   = "match.rejected"
	VisitCheckedIn  = "visit.checked_in"
	VisitCheckedOut = "visit.checked_out"
	VisitCancelled  = "visit.cancelled"
	PayoutPaid      = "payout.paid"
	PayoutFailed    = "payout.failed"
)

const publishTimeout = 3 * time.Second

// Event one notification. Data is JSON-encoded by the sink.
type Event struct {
	Type string
	Data map[string]any
}

// Notifier fire-and-forget delivery to the downstream email/SMS service.
// Implementations log failures and never return them: a lost notification
// must not fail the transition that produced it.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Nop drops every event
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// RedisStreamNotifier appends events to a Redis stream (XADD)
type RedisStreamNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

func NewRedisStreamNotifier(client *redis.Client, stream string, maxLen int64, logger *zap.Logger) *RedisStreamNotifier {
	return &RedisStreamNotifier{client: client, stream: stream, maxLen: maxLen, logger: logger}
}

func (n *RedisStreamNotifier) Notify(ctx context.Context, e Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if _, err := commonredis.PublishJSONToStream(ctx, n.client, n.stream, n.maxLen, e.Type, e.Data); err != nil {
		n.logger.Warn("Failed to publish notification",
			zap.String("stream", n.stream),
			zap.String("type", e.Type),
			zap.Error(err),
		)
	}
}

// Publisher is the MQTT surface the notifier needs; *common/mqtt.Client satisfies it
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	QoS() byte
}

// MQTTNotifier publishes each event to <prefix>/<type with dots as slashes>
type MQTTNotifier struct {
	pub    Publisher
	prefix string
	logger *zap.Logger
}

func NewMQTTNotifier(pub Publisher, topicPrefix string, logger *zap.Logger) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, prefix: strings.TrimSuffix(topicPrefix, "/"), logger: logger}
}

// Topic the MQTT topic for an event type
func (n *MQTTNotifier) Topic(eventType string) string {
	return n.prefix + "/" + strings.ReplaceAll(eventType, ".", "/")
}

func (n *MQTTNotifier) Notify(_ context.Context, e Event) {
	payload, err := json.Marshal(map[string]any{
		"type":      e.Type,
		"data":      e.Data,
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		n.logger.Warn("Failed to encode notification", zap.String("type", e.Type), zap.Error(err))
		return
	}
	topic := n.Topic(e.Type)
	if err := n.pub.Publish(topic, n.pub.QoS(), false, payload); err != nil {
		n.logger.Warn("Failed to publish notification",
			zap.String("topic", topic),
			zap.String("type", e.Type),
			zap.Error(err),
		)
	}
}
