package document

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mirror520/collab/pubsub"
)

type EventType string

const (
	Create EventType = "create"
	Update EventType = "update"
	Delete EventType = "delete"
)

// Change is published on the bus after every committed write.
type Change struct {
	Type       EventType `json:"type"`
	Collection string    `json:"collection"`
	DocumentID string    `json:"documentId"`
	Payload    *Document `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewChange(t EventType, doc *Document) *Change {
	return &Change{
		Type:       t,
		Collection: doc.Collection,
		DocumentID: doc.ID,
		Payload:    doc,
		OccurredAt: time.Now(),
	}
}

func (c *Change) EventName() string {
	return "documents." + string(c.Type)
}

func (c *Change) Topic() string {
	return "documents." + c.Collection + "." + c.DocumentID + "." + string(c.Type)
}

func CollectionChannel(collection string) string {
	return "documents." + collection + ".>"
}

func DocumentChannel(collection string, id string) string {
	return "documents." + collection + "." + id + ".>"
}

func ParseChange(data []byte) (*Change, error) {
	var c *Change
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	if c == nil || c.Payload == nil {
		return nil, ErrMalformedDocument
	}

	return c, nil
}

type ChangeHandler func(ctx context.Context, c *Change) error

// Subscribe attaches handler to every change published on channel.
func Subscribe(ps pubsub.PubSub, channel string, handler ChangeHandler) (pubsub.Subscription, error) {
	return ps.Subscribe(channel, func(ctx context.Context, msg *pubsub.Message) error {
		c, err := ParseChange(msg.Data)
		if err != nil {
			return err
		}

		return handler(ctx, c)
	})
}
