package nats

import (
	"context"
	"os"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/mirror520/collab/conf"
	"github.com/mirror520/collab/pubsub"
)

func init() {
	pubsub.AddFactory(conf.NATS, NewPubSub)
}

func NewPubSub(cfg conf.EventBus) (pubsub.PubSub, error) {
	log := zap.L().With(
		zap.String("pubsub", "nats"),
	)

	url := cfg.URL
	if url == "" {
		env, ok := os.LookupEnv("NATS_URL")
		if !ok {
			env = nats.DefaultURL
		}

		url = env
	}

	nc, err := nats.Connect(url,
		nats.Name("collab"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}

	return &pubSub{
		log:           log,
		nc:            nc,
		subscriptions: make(map[*nats.Subscription]struct{}),
	}, nil
}

type pubSub struct {
	log           *zap.Logger
	nc            *nats.Conn
	subscriptions map[*nats.Subscription]struct{}
	sync.Mutex
}

type subscription struct {
	topic string
	sub   *nats.Subscription
	ps    *pubSub
}

func (s *subscription) Topic() string {
	return s.topic
}

func (s *subscription) Unsubscribe() error {
	s.ps.Lock()
	delete(s.ps.subscriptions, s.sub)
	s.ps.Unlock()

	return s.sub.Unsubscribe()
}

func (ps *pubSub) Publish(topic string, data []byte) error {
	return ps.nc.Publish(topic, data)
}

func (ps *pubSub) Subscribe(topic string, callback pubsub.MessageHandler) (pubsub.Subscription, error) {
	log := ps.log.With(
		zap.String("action", "subscribe"),
		zap.String("topic", topic),
	)

	sub, err := ps.nc.Subscribe(topic, func(m *nats.Msg) {
		msg := &pubsub.Message{
			Topic: m.Subject,
			Data:  m.Data,
		}

		if err := callback(context.Background(), msg); err != nil {
			log.Error(err.Error(), zap.String("subject", m.Subject))
		}
	})
	if err != nil {
		return nil, err
	}

	ps.Lock()
	ps.subscriptions[sub] = struct{}{}
	ps.Unlock()

	return &subscription{
		topic: topic,
		sub:   sub,
		ps:    ps,
	}, nil
}

func (ps *pubSub) Close() error {
	ps.Lock()
	for sub := range ps.subscriptions {
		sub.Unsubscribe()
	}
	ps.subscriptions = make(map[*nats.Subscription]struct{})
	ps.Unlock()

	return ps.nc.Drain()
}
