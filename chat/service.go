package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/pubsub"
)

type ChangeHandler func(ctx context.Context, t document.EventType, m *Message) error

type Service interface {
	Send(ctx context.Context, workspaceID string, userID string, userName string, content string) (*Message, error)
	Get(ctx context.Context, id string) (*Message, error)
	List(ctx context.Context, workspaceID string, limit int) ([]*Message, error)
	Delete(ctx context.Context, id string) error
	DeleteForWorkspace(ctx context.Context, workspaceID string) error
	Subscribe(workspaceID string, handler ChangeHandler) (pubsub.Subscription, error)
}

type service struct {
	store      document.Store
	bus        pubsub.PubSub
	collection string
	now        func() time.Time
}

func NewService(store document.Store, bus pubsub.PubSub, collection string) Service {
	svc := new(service)
	svc.store = store
	svc.bus = bus
	svc.collection = collection
	svc.now = time.Now
	return svc
}

func notFound(err error) error {
	if errors.Is(err, document.ErrDocumentNotFound) {
		return fmt.Errorf("%w: %w", ErrMessageNotFound, err)
	}
	return err
}

func (svc *service) Send(ctx context.Context, workspaceID string, userID string, userName string, content string) (*Message, error) {
	m, err := NewMessage(workspaceID, userID, userName, content, svc.now())
	if err != nil {
		return nil, err
	}

	fields, err := encode(m)
	if err != nil {
		return nil, err
	}

	doc, err := svc.store.Create(ctx, svc.collection, "", fields)
	if err != nil {
		return nil, err
	}

	return decode(doc)
}

func (svc *service) Get(ctx context.Context, id string) (*Message, error) {
	doc, err := svc.store.Get(ctx, svc.collection, id)
	if err != nil {
		return nil, notFound(err)
	}

	return decode(doc)
}

// List returns the latest limit messages of the workspace, oldest first.
func (svc *service) List(ctx context.Context, workspaceID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	docs, err := svc.store.List(ctx, svc.collection, document.Query{
		Filters: []document.Filter{
			document.Equal("workspaceId", workspaceID),
		},
		OrderBy: "timestamp",
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]*Message, 0, len(docs))
	for _, doc := range docs {
		m, err := decode(doc)
		if err != nil {
			return nil, err
		}

		msgs = append(msgs, m)
	}

	slices.Reverse(msgs)
	return msgs, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	_, err := svc.store.Delete(ctx, svc.collection, id, document.AnyRevision)
	return notFound(err)
}

func (svc *service) DeleteForWorkspace(ctx context.Context, workspaceID string) error {
	docs, err := svc.store.List(ctx, svc.collection, document.Query{
		Filters: []document.Filter{
			document.Equal("workspaceId", workspaceID),
		},
	})
	if err != nil {
		return err
	}

	for _, doc := range docs {
		_, err := svc.store.Delete(ctx, svc.collection, doc.ID, document.AnyRevision)
		if err != nil && !errors.Is(err, document.ErrDocumentNotFound) {
			return err
		}
	}

	return nil
}

// Subscribe reports messages created in, and deleted from, the workspace.
func (svc *service) Subscribe(workspaceID string, handler ChangeHandler) (pubsub.Subscription, error) {
	channel := document.CollectionChannel(svc.collection)

	return document.Subscribe(svc.bus, channel, func(ctx context.Context, c *document.Change) error {
		if c.Type == document.Update {
			return nil
		}

		if c.Payload.Fields.String("workspaceId") != workspaceID {
			return nil
		}

		m, err := decode(c.Payload)
		if err != nil {
			return err
		}

		return handler(ctx, c.Type, m)
	})
}
