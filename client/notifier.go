package client

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mirror520/collab/pubsub"
)

// Notifier receives the failures a store could not apply. The store keeps
// its previous state.
type Notifier interface {
	Notify(err error)
}

type NotifierFunc func(err error)

func (fn NotifierFunc) Notify(err error) {
	fn(err)
}

func LogNotifier(log *zap.Logger) Notifier {
	return NotifierFunc(func(err error) {
		log.Warn(err.Error())
	})
}

// slot holds at most one live subscription.
type slot struct {
	sub pubsub.Subscription
	mu  sync.Mutex
}

// Set replaces the held subscription, tearing down the previous one.
func (s *slot) Set(sub pubsub.Subscription) {
	s.mu.Lock()
	old := s.sub
	s.sub = sub
	s.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
}

func (s *slot) Close() {
	s.Set(nil)
}

func (s *slot) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil
}
