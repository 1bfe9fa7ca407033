package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/pubsub"
)

type ChangeHandler func(ctx context.Context, t document.EventType, w *Workspace) error

type Service interface {
	Create(ctx context.Context, name string, description string, ownerID string, ownerName string) (*Workspace, error)
	Get(ctx context.Context, id string) (*Workspace, error)
	ListForUser(ctx context.Context, userID string) ([]*Workspace, error)
	Join(ctx context.Context, id string, userID string, userName string) (*Workspace, error)
	Leave(ctx context.Context, id string, userID string) (*Workspace, error)
	UpdateSettings(ctx context.Context, id string, settings Settings, rev document.Revision) (*Workspace, error)
	Delete(ctx context.Context, id string) error
	Subscribe(id string, handler ChangeHandler) (pubsub.Subscription, error)
}

type service struct {
	store      document.Store
	bus        pubsub.PubSub
	collection string
	maxRetries int
}

func NewService(store document.Store, bus pubsub.PubSub, collection string, maxRetries int) Service {
	if maxRetries < 1 {
		maxRetries = 1
	}

	svc := new(service)
	svc.store = store
	svc.bus = bus
	svc.collection = collection
	svc.maxRetries = maxRetries
	return svc
}

func notFound(err error) error {
	if errors.Is(err, document.ErrDocumentNotFound) {
		return fmt.Errorf("%w: %w", ErrWorkspaceNotFound, err)
	}
	return err
}

func (svc *service) Create(ctx context.Context, name string, description string, ownerID string, ownerName string) (*Workspace, error) {
	w, err := NewWorkspace(name, description, ownerID, ownerName)
	if err != nil {
		return nil, err
	}

	fields, err := encode(w)
	if err != nil {
		return nil, err
	}

	doc, err := svc.store.Create(ctx, svc.collection, "", fields)
	if err != nil {
		return nil, err
	}

	return decode(doc)
}

func (svc *service) Get(ctx context.Context, id string) (*Workspace, error) {
	doc, err := svc.store.Get(ctx, svc.collection, id)
	if err != nil {
		return nil, notFound(err)
	}

	return decode(doc)
}

func (svc *service) ListForUser(ctx context.Context, userID string) ([]*Workspace, error) {
	docs, err := svc.store.List(ctx, svc.collection, document.Query{
		Filters: []document.Filter{
			document.Contains("members", userID),
		},
	})
	if err != nil {
		return nil, err
	}

	workspaces := make([]*Workspace, 0, len(docs))
	for _, doc := range docs {
		w, err := decode(doc)
		if err != nil {
			return nil, err
		}

		workspaces = append(workspaces, w)
	}

	return workspaces, nil
}

// modify runs a read-modify-write of the member list guarded by the document
// revision, retrying when a concurrent writer got in first.
func (svc *service) modify(ctx context.Context, id string, fn func(w *Workspace) (bool, error)) (*Workspace, error) {
	var lastErr error

	for i := 0; i < svc.maxRetries; i++ {
		w, err := svc.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		changed, err := fn(w)
		if err != nil {
			return nil, err
		}

		if !changed {
			return w, nil
		}

		fields, err := encodeMembers(w)
		if err != nil {
			return nil, err
		}

		doc, err := svc.store.Update(ctx, svc.collection, id, fields, w.Revision)
		if err != nil {
			if errors.Is(err, document.ErrRevisionConflict) {
				lastErr = err
				continue
			}

			return nil, notFound(err)
		}

		return decode(doc)
	}

	return nil, lastErr
}

func (svc *service) Join(ctx context.Context, id string, userID string, userName string) (*Workspace, error) {
	return svc.modify(ctx, id, func(w *Workspace) (bool, error) {
		return w.Join(userID, userName)
	})
}

func (svc *service) Leave(ctx context.Context, id string, userID string) (*Workspace, error) {
	return svc.modify(ctx, id, func(w *Workspace) (bool, error) {
		return w.Leave(userID)
	})
}

func (svc *service) UpdateSettings(ctx context.Context, id string, settings Settings, rev document.Revision) (*Workspace, error) {
	if settings.VoiceChatMuted == nil {
		settings.VoiceChatMuted = []string{}
	}

	fields, err := encodeSettings(settings)
	if err != nil {
		return nil, err
	}

	doc, err := svc.store.Update(ctx, svc.collection, id, fields, rev)
	if err != nil {
		return nil, notFound(err)
	}

	return decode(doc)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	_, err := svc.store.Delete(ctx, svc.collection, id, document.AnyRevision)
	return notFound(err)
}

func (svc *service) Subscribe(id string, handler ChangeHandler) (pubsub.Subscription, error) {
	channel := document.DocumentChannel(svc.collection, id)

	return document.Subscribe(svc.bus, channel, func(ctx context.Context, c *document.Change) error {
		w, err := decode(c.Payload)
		if err != nil {
			return err
		}

		return handler(ctx, c.Type, w)
	})
}
