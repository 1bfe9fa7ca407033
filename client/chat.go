package client

import (
	"context"
	"sync"

	"github.com/mirror520/collab"
	"github.com/mirror520/collab/chat"
	"github.com/mirror520/collab/document"
)

// Chat holds the messages of the current workspace, oldest first. A message
// delivered more than once is kept once.
type Chat struct {
	svc      collab.Service
	actor    collab.Actor
	notifier Notifier

	messages []*chat.Message
	sub      slot
	mu       sync.RWMutex
}

func NewChat(svc collab.Service, actor collab.Actor, notifier Notifier) *Chat {
	return &Chat{
		svc:      svc,
		actor:    actor,
		notifier: notifier,
	}
}

func (c *Chat) fail(err error) error {
	c.notifier.Notify(err)
	return err
}

func (c *Chat) Load(ctx context.Context, workspaceID string, limit int) error {
	list, err := c.svc.ListMessages(ctx, c.actor, workspaceID, limit)
	if err != nil {
		return c.fail(err)
	}

	messages := make([]*chat.Message, 0, len(list))
	for _, m := range list {
		messages, _ = chat.Insert(messages, m)
	}

	c.mu.Lock()
	c.messages = messages
	c.mu.Unlock()

	return nil
}

func (c *Chat) Subscribe(ctx context.Context, workspaceID string) error {
	c.sub.Close()

	sub, err := c.svc.SubscribeMessages(ctx, c.actor, workspaceID, c.apply)
	if err != nil {
		return c.fail(err)
	}

	c.sub.Set(sub)
	return nil
}

func (c *Chat) Send(ctx context.Context, workspaceID string, content string) (*chat.Message, error) {
	m, err := c.svc.SendMessage(ctx, c.actor, workspaceID, content)
	if err != nil {
		return nil, c.fail(err)
	}

	c.insert(m)
	return m, nil
}

func (c *Chat) Delete(ctx context.Context, id string) error {
	if err := c.svc.DeleteMessage(ctx, c.actor, id); err != nil {
		return c.fail(err)
	}

	c.remove(id)
	return nil
}

func (c *Chat) Close() {
	c.sub.Close()

	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}

func (c *Chat) Messages() []*chat.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages := make([]*chat.Message, len(c.messages))
	copy(messages, c.messages)
	return messages
}

func (c *Chat) insert(m *chat.Message) {
	c.mu.Lock()
	c.messages, _ = chat.Insert(c.messages, m)
	c.mu.Unlock()
}

func (c *Chat) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, m := range c.messages {
		if m.ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return
		}
	}
}

func (c *Chat) apply(ctx context.Context, t document.EventType, m *chat.Message) error {
	switch t {
	case document.Create:
		c.insert(m)
	case document.Delete:
		c.remove(m.ID)
	}

	return nil
}
