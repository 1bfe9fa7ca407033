package document

import (
	"context"

	"go.uber.org/zap"

	"github.com/mirror520/collab/events"
)

// PublishingMiddleware emits a Change for each successful write. A failed
// publish is logged and does not fail the write, which is already committed.
func PublishingMiddleware(bus events.Publisher, log *zap.Logger) StoreMiddleware {
	return func(next Store) Store {
		return &publishingMiddleware{
			log: log.With(
				zap.String("store", "document"),
				zap.String("middleware", "publishing"),
			),
			bus:  bus,
			next: next,
		}
	}
}

type publishingMiddleware struct {
	log  *zap.Logger
	bus  events.Publisher
	next Store
}

func (mw *publishingMiddleware) publish(t EventType, doc *Document) {
	c := NewChange(t, doc)
	if err := events.Publish(mw.bus, c); err != nil {
		mw.log.Error(err.Error(),
			zap.String("topic", c.Topic()),
		)
	}
}

func (mw *publishingMiddleware) Create(ctx context.Context, collection string, id string, fields Fields) (*Document, error) {
	doc, err := mw.next.Create(ctx, collection, id, fields)
	if err != nil {
		return nil, err
	}

	mw.publish(Create, doc)
	return doc, nil
}

func (mw *publishingMiddleware) Update(ctx context.Context, collection string, id string, fields Fields, rev Revision) (*Document, error) {
	doc, err := mw.next.Update(ctx, collection, id, fields, rev)
	if err != nil {
		return nil, err
	}

	mw.publish(Update, doc)
	return doc, nil
}

func (mw *publishingMiddleware) Delete(ctx context.Context, collection string, id string, rev Revision) (*Document, error) {
	doc, err := mw.next.Delete(ctx, collection, id, rev)
	if err != nil {
		return nil, err
	}

	mw.publish(Delete, doc)
	return doc, nil
}

func (mw *publishingMiddleware) Get(ctx context.Context, collection string, id string) (*Document, error) {
	return mw.next.Get(ctx, collection, id)
}

func (mw *publishingMiddleware) List(ctx context.Context, collection string, q Query) ([]*Document, error) {
	return mw.next.List(ctx, collection, q)
}

func (mw *publishingMiddleware) Close() error {
	return mw.next.Close()
}
