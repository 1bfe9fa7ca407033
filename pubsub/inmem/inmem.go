package inmem

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mirror520/collab/conf"
	"github.com/mirror520/collab/pubsub"
)

func init() {
	pubsub.AddFactory(conf.InMemBus, func(cfg conf.EventBus) (pubsub.PubSub, error) {
		return NewPubSub(), nil
	})
}

// NewPubSub returns a process-local bus. Publish delivers synchronously, in
// subscription order, so events reach handlers in the order they were published.
func NewPubSub() pubsub.PubSub {
	return &pubSub{
		log: zap.L().With(
			zap.String("pubsub", "inmem"),
		),
		subscriptions: make(map[uint64]*subscription),
	}
}

type pubSub struct {
	log           *zap.Logger
	subscriptions map[uint64]*subscription
	seq           uint64
	closed        bool
	sync.RWMutex
}

type subscription struct {
	id       uint64
	topic    string
	callback pubsub.MessageHandler
	ps       *pubSub
}

func (s *subscription) Topic() string {
	return s.topic
}

func (s *subscription) Unsubscribe() error {
	s.ps.Lock()
	delete(s.ps.subscriptions, s.id)
	s.ps.Unlock()
	return nil
}

func (ps *pubSub) Publish(topic string, data []byte) error {
	ps.RLock()
	if ps.closed {
		ps.RUnlock()
		return pubsub.ErrClosed
	}

	matched := make([]*subscription, 0)
	for _, sub := range ps.subscriptions {
		if pubsub.Match(sub.topic, topic) {
			matched = append(matched, sub)
		}
	}
	ps.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].id < matched[j].id
	})

	for _, sub := range matched {
		msg := &pubsub.Message{
			Topic: topic,
			Data:  data,
		}

		if err := sub.callback(context.Background(), msg); err != nil {
			ps.log.Error(err.Error(),
				zap.String("topic", topic),
				zap.String("subscription", sub.topic),
			)
		}
	}

	return nil
}

func (ps *pubSub) Subscribe(topic string, callback pubsub.MessageHandler) (pubsub.Subscription, error) {
	ps.Lock()
	defer ps.Unlock()

	if ps.closed {
		return nil, pubsub.ErrClosed
	}

	ps.seq++
	sub := &subscription{
		id:       ps.seq,
		topic:    topic,
		callback: callback,
		ps:       ps,
	}
	ps.subscriptions[sub.id] = sub

	return sub, nil
}

func (ps *pubSub) Close() error {
	ps.Lock()
	ps.closed = true
	ps.subscriptions = make(map[uint64]*subscription)
	ps.Unlock()
	return nil
}
