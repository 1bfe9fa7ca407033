package document

import "context"

type Store interface {
	// Command
	Create(ctx context.Context, collection string, id string, fields Fields) (*Document, error)
	Update(ctx context.Context, collection string, id string, fields Fields, rev Revision) (*Document, error)
	Delete(ctx context.Context, collection string, id string, rev Revision) (*Document, error)

	// Query
	Get(ctx context.Context, collection string, id string) (*Document, error)
	List(ctx context.Context, collection string, q Query) ([]*Document, error)

	Close() error
}

type StoreMiddleware func(Store) Store
