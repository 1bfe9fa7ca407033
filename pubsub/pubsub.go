package pubsub

import (
	"context"
	"errors"
	"strings"
)

var ErrClosed = errors.New("pubsub closed")

type PubSub interface {
	Publish(topic string, data []byte) error
	Subscribe(topic string, callback MessageHandler) (Subscription, error)
	Close() error
}

type Subscription interface {
	Topic() string
	Unsubscribe() error
}

type MessageHandler func(ctx context.Context, msg *Message) error

type Message struct {
	Topic string
	Data  []byte
}

// Match reports whether topic matches pattern using NATS subject wildcards:
// "*" matches exactly one token and a trailing ">" matches one or more.
func Match(pattern string, topic string) bool {
	ps := strings.Split(pattern, ".")
	ts := strings.Split(topic, ".")

	for i, p := range ps {
		if p == ">" {
			return i == len(ps)-1 && len(ts) > i
		}

		if i >= len(ts) {
			return false
		}

		if p != "*" && p != ts[i] {
			return false
		}
	}

	return len(ps) == len(ts)
}
