package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/pubsub"
)

type ChangeHandler func(ctx context.Context, t document.EventType, s *Session) error

type Service interface {
	Create(ctx context.Context, workspaceID string, userID string, userName string, lang Language, title string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	ListForWorkspace(ctx context.Context, workspaceID string) ([]*Session, error)
	UpdateCode(ctx context.Context, id string, code string, rev document.Revision) (*Session, error)
	UpdateCursor(ctx context.Context, id string, userID string, pos Position) error
	UpdateSelection(ctx context.Context, id string, userID string, r Range) error
	Fork(ctx context.Context, source *Session, userID string, userName string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteForWorkspace(ctx context.Context, workspaceID string) error
	Subscribe(id string, handler ChangeHandler) (pubsub.Subscription, error)
	Watch(workspaceID string, handler ChangeHandler) (pubsub.Subscription, error)
}

type Option func(*service)

// WithCursorBroadcast enables persisting cursor positions and selections.
// Without it UpdateCursor and UpdateSelection are no-ops.
func WithCursorBroadcast(enabled bool) Option {
	return func(svc *service) {
		svc.cursorBroadcast = enabled
	}
}

func WithMaxRetries(n int) Option {
	return func(svc *service) {
		if n > 0 {
			svc.maxRetries = n
		}
	}
}

type service struct {
	store           document.Store
	bus             pubsub.PubSub
	collection      string
	cursorBroadcast bool
	maxRetries      int
}

func NewService(store document.Store, bus pubsub.PubSub, collection string, opts ...Option) Service {
	svc := new(service)
	svc.store = store
	svc.bus = bus
	svc.collection = collection
	svc.maxRetries = 3

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

func notFound(err error) error {
	if errors.Is(err, document.ErrDocumentNotFound) {
		return fmt.Errorf("%w: %w", ErrSessionNotFound, err)
	}
	return err
}

func (svc *service) create(ctx context.Context, s *Session) (*Session, error) {
	fields, err := encode(s)
	if err != nil {
		return nil, err
	}

	doc, err := svc.store.Create(ctx, svc.collection, "", fields)
	if err != nil {
		return nil, err
	}

	return decode(doc)
}

func (svc *service) Create(ctx context.Context, workspaceID string, userID string, userName string, lang Language, title string) (*Session, error) {
	s, err := NewSession(workspaceID, userID, userName, lang, title)
	if err != nil {
		return nil, err
	}

	return svc.create(ctx, s)
}

func (svc *service) Get(ctx context.Context, id string) (*Session, error) {
	doc, err := svc.store.Get(ctx, svc.collection, id)
	if err != nil {
		return nil, notFound(err)
	}

	return decode(doc)
}

func (svc *service) ListForWorkspace(ctx context.Context, workspaceID string) ([]*Session, error) {
	docs, err := svc.store.List(ctx, svc.collection, document.Query{
		Filters: []document.Filter{
			document.Equal("workspaceId", workspaceID),
		},
	})
	if err != nil {
		return nil, err
	}

	sessions := make([]*Session, 0, len(docs))
	for _, doc := range docs {
		s, err := decode(doc)
		if err != nil {
			return nil, err
		}

		sessions = append(sessions, s)
	}

	return sessions, nil
}

func (svc *service) UpdateCode(ctx context.Context, id string, code string, rev document.Revision) (*Session, error) {
	fields, err := encodeCode(code)
	if err != nil {
		return nil, err
	}

	doc, err := svc.store.Update(ctx, svc.collection, id, fields, rev)
	if err != nil {
		return nil, notFound(err)
	}

	return decode(doc)
}

func (svc *service) modifyCursors(ctx context.Context, id string, fn func(s *Session)) error {
	if !svc.cursorBroadcast {
		return nil
	}

	var lastErr error
	for i := 0; i < svc.maxRetries; i++ {
		s, err := svc.Get(ctx, id)
		if err != nil {
			return err
		}

		fn(s)

		fields, err := encodeCursors(s)
		if err != nil {
			return err
		}

		_, err = svc.store.Update(ctx, svc.collection, id, fields, s.Revision)
		if err == nil {
			return nil
		}

		if !errors.Is(err, document.ErrRevisionConflict) {
			return notFound(err)
		}

		lastErr = err
	}

	return lastErr
}

func (svc *service) UpdateCursor(ctx context.Context, id string, userID string, pos Position) error {
	return svc.modifyCursors(ctx, id, func(s *Session) {
		s.CursorPositions[userID] = pos
	})
}

func (svc *service) UpdateSelection(ctx context.Context, id string, userID string, r Range) error {
	return svc.modifyCursors(ctx, id, func(s *Session) {
		s.Selections[userID] = r
	})
}

func (svc *service) Fork(ctx context.Context, source *Session, userID string, userName string) (*Session, error) {
	fork, err := source.Fork(userID, userName)
	if err != nil {
		return nil, err
	}

	return svc.create(ctx, fork)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	_, err := svc.store.Delete(ctx, svc.collection, id, document.AnyRevision)
	return notFound(err)
}

func (svc *service) DeleteForWorkspace(ctx context.Context, workspaceID string) error {
	sessions, err := svc.ListForWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}

	for _, s := range sessions {
		err := svc.Delete(ctx, s.ID)
		if err != nil && !errors.Is(err, document.ErrDocumentNotFound) {
			return err
		}
	}

	return nil
}

func (svc *service) Subscribe(id string, handler ChangeHandler) (pubsub.Subscription, error) {
	channel := document.DocumentChannel(svc.collection, id)

	return document.Subscribe(svc.bus, channel, func(ctx context.Context, c *document.Change) error {
		s, err := decode(c.Payload)
		if err != nil {
			return err
		}

		return handler(ctx, c.Type, s)
	})
}

// Watch reports every session change inside the workspace.
func (svc *service) Watch(workspaceID string, handler ChangeHandler) (pubsub.Subscription, error) {
	channel := document.CollectionChannel(svc.collection)

	return document.Subscribe(svc.bus, channel, func(ctx context.Context, c *document.Change) error {
		if c.Payload.Fields.String("workspaceId") != workspaceID {
			return nil
		}

		s, err := decode(c.Payload)
		if err != nil {
			return err
		}

		return handler(ctx, c.Type, s)
	})
}
