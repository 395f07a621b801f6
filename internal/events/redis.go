package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/campusshare/server/internal/models"
)

// envelope is the wire form of a change on the Redis channel. Origin
// carries the publishing node's id so a node can skip its own echoes.
type envelope struct {
	Origin  string               `json:"origin"`
	Table   string               `json:"table"`
	Kind    Kind                 `json:"kind"`
	Cols    map[string]uuid.UUID `json:"cols,omitempty"`
	Payload json.RawMessage      `json:"payload,omitempty"`
}

// RedisBridge connects the in-process broker to a Redis pub/sub channel
// so multiple server instances see each other's changes. Local publishes
// go to the broker immediately and to Redis; remote envelopes are
// injected into the local broker.
type RedisBridge struct {
	broker  *Broker
	client  *redis.Client
	channel string
	nodeID  string
}

// NewRedisBridge wraps the broker. The bridge is a Publisher; services
// publish through it instead of the bare broker when Redis is configured.
func NewRedisBridge(broker *Broker, client *redis.Client, channel string) *RedisBridge {
	return &RedisBridge{
		broker:  broker,
		client:  client,
		channel: channel,
		nodeID:  uuid.NewString(),
	}
}

// Publish fans out locally, then republishes to Redis. A Redis failure
// is logged and ignored: local consumers already saw the change, and the
// feed only promises at-least-once to live subscribers.
func (rb *RedisBridge) Publish(change Change) int {
	delivered := rb.broker.Publish(change)

	payload, err := json.Marshal(change.Payload)
	if err != nil {
		log.Error("marshal change payload for redis: %v", err)
		return delivered
	}
	raw, err := json.Marshal(envelope{
		Origin:  rb.nodeID,
		Table:   change.Table,
		Kind:    change.Kind,
		Cols:    change.Cols,
		Payload: payload,
	})
	if err != nil {
		log.Error("marshal change envelope for redis: %v", err)
		return delivered
	}

	if err := rb.client.Publish(context.Background(), rb.channel, raw).Err(); err != nil {
		log.Warn("redis publish failed: %v", err)
	}
	return delivered
}

// Run consumes the Redis channel until ctx is done, injecting remote
// changes into the local broker. Intended to run on its own goroutine.
func (rb *RedisBridge) Run(ctx context.Context) {
	pubsub := rb.client.Subscribe(ctx, rb.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Warn("bad change envelope on %s: %v", rb.channel, err)
				continue
			}
			if env.Origin == rb.nodeID {
				continue
			}
			rb.broker.Publish(Change{
				Table:   env.Table,
				Kind:    env.Kind,
				Cols:    env.Cols,
				Payload: decodePayload(env.Table, env.Payload),
			})
		}
	}
}

// decodePayload restores typed payloads for the tables whose consumers
// need them; everything else stays raw JSON.
func decodePayload(table string, raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	switch table {
	case TableChatMessages:
		var m models.ChatMessage
		if err := json.Unmarshal(raw, &m); err == nil {
			return &m
		}
	case TableNotifications:
		var n models.Notification
		if err := json.Unmarshal(raw, &n); err == nil {
			return &n
		}
	}
	return raw
}
