package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mirror520/collab/conf"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/model"
)

const maxTxnRetries = 5

type store struct {
	db *badger.DB
}

func NewStore(cfg conf.Persistence) (document.Store, error) {
	opts := badger.DefaultOptions(cfg.Host + "/" + cfg.Name)
	if cfg.InMem {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrStoreUnavailable, err)
	}

	s := new(store)
	s.db = db

	return s, nil
}

func key(collection string, id string) []byte {
	return []byte(collection + ":" + id)
}

// update runs fn in a read-write transaction, retrying when badger detects
// a conflicting concurrent commit.
func (s *store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}

	return err
}

func get(txn *badger.Txn, collection string, id string) (*document.Document, error) {
	item, err := txn.Get(key(collection, id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, document.ErrDocumentNotFound
		}

		return nil, err
	}

	var doc *document.Document
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrMalformedDocument, err)
	}

	return doc, nil
}

func set(txn *badger.Txn, doc *document.Document) error {
	bs, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return txn.Set(key(doc.Collection, doc.ID), bs)
}

func wrap(err error) error {
	switch {
	case err == nil:
		return nil

	case errors.Is(err, document.ErrDocumentNotFound),
		errors.Is(err, document.ErrDocumentExists),
		errors.Is(err, document.ErrRevisionConflict),
		errors.Is(err, document.ErrMalformedDocument):
		return err

	default:
		return fmt.Errorf("%w: %w", document.ErrStoreUnavailable, err)
	}
}

func (s *store) Create(ctx context.Context, collection string, id string, fields document.Fields) (*document.Document, error) {
	if id == "" {
		id = document.NewID()
	}

	now := time.Now()
	doc := &document.Document{
		ID:         id,
		Collection: collection,
		Revision:   1,
		Fields:     fields.Clone(),
		Model: model.Model{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	err := s.update(func(txn *badger.Txn) error {
		_, err := get(txn, collection, id)
		if err == nil {
			return document.ErrDocumentExists
		}

		if !errors.Is(err, document.ErrDocumentNotFound) {
			return err
		}

		return set(txn, doc)
	})
	if err != nil {
		return nil, wrap(err)
	}

	return doc, nil
}

func (s *store) Update(ctx context.Context, collection string, id string, fields document.Fields, rev document.Revision) (*document.Document, error) {
	var doc *document.Document

	err := s.update(func(txn *badger.Txn) error {
		current, err := get(txn, collection, id)
		if err != nil {
			return err
		}

		if rev != document.AnyRevision && rev != current.Revision {
			return &document.ConflictError{
				Collection: collection,
				ID:         id,
				Expected:   rev,
				Current:    current.Revision,
			}
		}

		doc = current
		doc.Fields = current.Fields.Merge(fields)
		doc.Revision++
		doc.UpdatedAt = time.Now()

		return set(txn, doc)
	})
	if err != nil {
		return nil, wrap(err)
	}

	return doc, nil
}

func (s *store) Delete(ctx context.Context, collection string, id string, rev document.Revision) (*document.Document, error) {
	var doc *document.Document

	err := s.update(func(txn *badger.Txn) error {
		current, err := get(txn, collection, id)
		if err != nil {
			return err
		}

		if rev != document.AnyRevision && rev != current.Revision {
			return &document.ConflictError{
				Collection: collection,
				ID:         id,
				Expected:   rev,
				Current:    current.Revision,
			}
		}

		doc = current
		return txn.Delete(key(collection, id))
	})
	if err != nil {
		return nil, wrap(err)
	}

	return doc, nil
}

func (s *store) Get(ctx context.Context, collection string, id string) (*document.Document, error) {
	var doc *document.Document

	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = get(txn, collection, id)
		return err
	})
	if err != nil {
		return nil, wrap(err)
	}

	return doc, nil
}

func (s *store) List(ctx context.Context, collection string, q document.Query) ([]*document.Document, error) {
	docs := make([]*document.Document, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(collection + ":")

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var doc *document.Document
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return fmt.Errorf("%w: %w", document.ErrMalformedDocument, err)
			}

			docs = append(docs, doc)
		}

		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}

	return q.Apply(docs), nil
}

func (s *store) DB() *badger.DB {
	return s.db
}

func (s *store) Close() error {
	return s.db.Close()
}
