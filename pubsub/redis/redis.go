package redis

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mirror520/collab/conf"
	"github.com/mirror520/collab/pubsub"
)

func init() {
	pubsub.AddFactory(conf.Redis, NewPubSub)
}

func NewPubSub(cfg conf.EventBus) (pubsub.PubSub, error) {
	addr := cfg.URL
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := rdb.Ping(ctx).Err(); err != nil {
		cancel()
		rdb.Close()
		return nil, err
	}

	return &pubSub{
		log: zap.L().With(
			zap.String("pubsub", "redis"),
		),
		rdb:           rdb,
		subscriptions: make(map[*subscription]struct{}),
		rootCtx:       ctx,
		rootCancel:    cancel,
	}, nil
}

type pubSub struct {
	log           *zap.Logger
	rdb           *redis.Client
	subscriptions map[*subscription]struct{}
	rootCtx       context.Context
	rootCancel    context.CancelFunc
	sync.Mutex
}

type subscription struct {
	topic  string
	sub    *redis.PubSub
	cancel context.CancelFunc
	ps     *pubSub
}

func (s *subscription) Topic() string {
	return s.topic
}

func (s *subscription) Unsubscribe() error {
	s.ps.Lock()
	delete(s.ps.subscriptions, s)
	s.ps.Unlock()

	s.cancel()
	return s.sub.Close()
}

func (ps *pubSub) Publish(topic string, data []byte) error {
	return ps.rdb.Publish(ps.rootCtx, topic, data).Err()
}

// Subscribe maps NATS wildcards onto a Redis glob and re-checks every message
// with pubsub.Match, since "*" in a glob also crosses token boundaries.
func (ps *pubSub) Subscribe(topic string, callback pubsub.MessageHandler) (pubsub.Subscription, error) {
	glob := strings.ReplaceAll(topic, ">", "*")

	ctx, cancel := context.WithCancel(ps.rootCtx)

	sub := ps.rdb.PSubscribe(ctx, glob)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		sub.Close()
		return nil, err
	}

	s := &subscription{
		topic:  topic,
		sub:    sub,
		cancel: cancel,
		ps:     ps,
	}

	ps.Lock()
	ps.subscriptions[s] = struct{}{}
	ps.Unlock()

	go ps.receive(ctx, s, callback)

	return s, nil
}

func (ps *pubSub) receive(ctx context.Context, s *subscription, callback pubsub.MessageHandler) {
	log := ps.log.With(
		zap.String("action", "receive"),
		zap.String("topic", s.topic),
	)

	ch := s.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case m, ok := <-ch:
			if !ok {
				return
			}

			if !pubsub.Match(s.topic, m.Channel) {
				continue
			}

			msg := &pubsub.Message{
				Topic: m.Channel,
				Data:  []byte(m.Payload),
			}

			if err := callback(ctx, msg); err != nil {
				log.Error(err.Error(), zap.String("channel", m.Channel))
			}
		}
	}
}

func (ps *pubSub) Close() error {
	ps.Lock()
	for s := range ps.subscriptions {
		s.cancel()
		s.sub.Close()
	}
	ps.subscriptions = make(map[*subscription]struct{})
	ps.Unlock()

	ps.rootCancel()
	return ps.rdb.Close()
}
