package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/model"
)

type store struct {
	collections map[string]map[string]*document.Document // map[Collection]map[ID]*Document
	closed      bool
	sync.RWMutex
}

// NewStore returns a process-local store. It backs tests and the offline
// fallback when no remote store is configured.
func NewStore() document.Store {
	s := new(store)
	s.collections = make(map[string]map[string]*document.Document)
	return s
}

func (s *store) collection(name string) map[string]*document.Document {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]*document.Document)
		s.collections[name] = c
	}
	return c
}

func (s *store) Create(ctx context.Context, collection string, id string, fields document.Fields) (*document.Document, error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return nil, document.ErrStoreUnavailable
	}

	if id == "" {
		id = document.NewID()
	}

	c := s.collection(collection)
	if _, ok := c[id]; ok {
		return nil, document.ErrDocumentExists
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

	c[id] = doc
	return doc.Clone(), nil
}

func (s *store) Update(ctx context.Context, collection string, id string, fields document.Fields, rev document.Revision) (*document.Document, error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return nil, document.ErrStoreUnavailable
	}

	current, ok := s.collection(collection)[id]
	if !ok {
		return nil, document.ErrDocumentNotFound
	}

	if rev != document.AnyRevision && rev != current.Revision {
		return nil, &document.ConflictError{
			Collection: collection,
			ID:         id,
			Expected:   rev,
			Current:    current.Revision,
		}
	}

	doc := current.Clone()
	doc.Fields = current.Fields.Merge(fields)
	doc.Revision++
	doc.UpdatedAt = time.Now()

	s.collections[collection][id] = doc
	return doc.Clone(), nil
}

func (s *store) Delete(ctx context.Context, collection string, id string, rev document.Revision) (*document.Document, error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return nil, document.ErrStoreUnavailable
	}

	c := s.collection(collection)

	current, ok := c[id]
	if !ok {
		return nil, document.ErrDocumentNotFound
	}

	if rev != document.AnyRevision && rev != current.Revision {
		return nil, &document.ConflictError{
			Collection: collection,
			ID:         id,
			Expected:   rev,
			Current:    current.Revision,
		}
	}

	delete(c, id)
	return current, nil
}

func (s *store) Get(ctx context.Context, collection string, id string) (*document.Document, error) {
	s.RLock()
	defer s.RUnlock()

	if s.closed {
		return nil, document.ErrStoreUnavailable
	}

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, document.ErrDocumentNotFound
	}

	return doc.Clone(), nil
}

func (s *store) List(ctx context.Context, collection string, q document.Query) ([]*document.Document, error) {
	s.RLock()
	defer s.RUnlock()

	if s.closed {
		return nil, document.ErrStoreUnavailable
	}

	docs := make([]*document.Document, 0, len(s.collections[collection]))
	for _, doc := range s.collections[collection] {
		docs = append(docs, doc.Clone())
	}

	return q.Apply(docs), nil
}

func (s *store) Close() error {
	s.Lock()
	s.closed = true
	s.Unlock()
	return nil
}
