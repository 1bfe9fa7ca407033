package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/pubsub"
)

type ChangeHandler func(ctx context.Context, t document.EventType, r *Request) error

type Service interface {
	Create(ctx context.Context, r *Request) (*Request, error)
	Get(ctx context.Context, id string) (*Request, error)
	ListForWorkspace(ctx context.Context, workspaceID string) ([]*Request, error)
	Resolve(ctx context.Context, id string, status Status) (*Request, error)
	DeleteForWorkspace(ctx context.Context, workspaceID string) error
	Subscribe(workspaceID string, handler ChangeHandler) (pubsub.Subscription, error)
}

type service struct {
	store      document.Store
	bus        pubsub.PubSub
	collection string
}

func NewService(store document.Store, bus pubsub.PubSub, collection string) Service {
	svc := new(service)
	svc.store = store
	svc.bus = bus
	svc.collection = collection
	return svc
}

func notFound(err error) error {
	if errors.Is(err, document.ErrDocumentNotFound) {
		return fmt.Errorf("%w: %w", ErrRequestNotFound, err)
	}
	return err
}

func (svc *service) Create(ctx context.Context, r *Request) (*Request, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	req := *r
	req.Status = Pending
	if req.Timestamp == "" {
		req.Timestamp = newTimestamp()
	}

	fields, err := encode(&req)
	if err != nil {
		return nil, err
	}

	doc, err := svc.store.Create(ctx, svc.collection, "", fields)
	if err != nil {
		return nil, err
	}

	return decode(doc)
}

func (svc *service) Get(ctx context.Context, id string) (*Request, error) {
	doc, err := svc.store.Get(ctx, svc.collection, id)
	if err != nil {
		return nil, notFound(err)
	}

	return decode(doc)
}

func (svc *service) ListForWorkspace(ctx context.Context, workspaceID string) ([]*Request, error) {
	docs, err := svc.store.List(ctx, svc.collection, document.Query{
		Filters: []document.Filter{
			document.Equal("workspaceId", workspaceID),
		},
		OrderBy: "timestamp",
	})
	if err != nil {
		return nil, err
	}

	requests := make([]*Request, 0, len(docs))
	for _, doc := range docs {
		r, err := decode(doc)
		if err != nil {
			return nil, err
		}

		requests = append(requests, r)
	}

	return requests, nil
}

// Resolve moves a pending request to status. The write is guarded by the
// revision read, so two concurrent resolutions cannot both succeed.
func (svc *service) Resolve(ctx context.Context, id string, status Status) (*Request, error) {
	r, err := svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.Resolve(status); err != nil {
		return nil, err
	}

	fields, err := document.NewFields(map[string]any{
		"status": string(r.Status),
	})
	if err != nil {
		return nil, err
	}

	doc, err := svc.store.Update(ctx, svc.collection, id, fields, r.Revision)
	if err != nil {
		if errors.Is(err, document.ErrRevisionConflict) {
			return nil, fmt.Errorf("%w: %w", ErrAlreadyResolved, err)
		}

		return nil, notFound(err)
	}

	return decode(doc)
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

func (svc *service) Subscribe(workspaceID string, handler ChangeHandler) (pubsub.Subscription, error) {
	channel := document.CollectionChannel(svc.collection)

	return document.Subscribe(svc.bus, channel, func(ctx context.Context, c *document.Change) error {
		if c.Payload.Fields.String("workspaceId") != workspaceID {
			return nil
		}

		r, err := decode(c.Payload)
		if err != nil {
			return err
		}

		return handler(ctx, c.Type, r)
	})
}
