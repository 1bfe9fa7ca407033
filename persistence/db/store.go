package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mirror520/collab/conf"
	"github.com/mirror520/collab/document"
)

type store struct {
	db *gorm.DB
}

func NewStore(cfg conf.Persistence) (document.Store, error) {
	dsn := filepath.Join(cfg.Host, cfg.Name+".sql")
	if cfg.InMem {
		dsn = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrStoreUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrStoreUnavailable, err)
	}

	// sqlite allows a single writer; an in-memory database also lives and
	// dies with its connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrStoreUnavailable, err)
	}

	s := new(store)
	s.db = db

	return s, nil
}

func wrap(err error) error {
	switch {
	case err == nil:
		return nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		return document.ErrDocumentNotFound

	case errors.Is(err, document.ErrDocumentNotFound),
		errors.Is(err, document.ErrDocumentExists),
		errors.Is(err, document.ErrRevisionConflict),
		errors.Is(err, document.ErrMalformedDocument):
		return err

	default:
		return fmt.Errorf("%w: %w", document.ErrStoreUnavailable, err)
	}
}

func take(tx *gorm.DB, collection string, id string) (*document.Document, error) {
	var row *Document

	err := tx.Take(&row, "collection = ? AND id = ?", collection, id).Error
	if err != nil {
		return nil, err
	}

	doc, err := row.reconstitute()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrMalformedDocument, err)
	}

	return doc, nil
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
	}
	doc.CreatedAt = now
	doc.UpdatedAt = now

	row, err := NewDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrMalformedDocument, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Document{}).
			Where("collection = ? AND id = ?", collection, id).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return document.ErrDocumentExists
		}

		return tx.Create(row).Error
	})
	if err != nil {
		return nil, wrap(err)
	}

	return doc, nil
}

func (s *store) Update(ctx context.Context, collection string, id string, fields document.Fields, rev document.Revision) (*document.Document, error) {
	var doc *document.Document

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := take(tx, collection, id)
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

		prev := current.Revision

		doc = current
		doc.Fields = current.Fields.Merge(fields)
		doc.Revision++
		doc.UpdatedAt = time.Now()

		row, err := NewDocument(doc)
		if err != nil {
			return err
		}

		result := tx.Model(&Document{}).
			Where("collection = ? AND id = ? AND revision = ?", collection, id, uint64(prev)).
			Updates(map[string]any{
				"revision":   row.Revision,
				"fields":     row.Fields,
				"updated_at": row.UpdatedAt,
			})
		if err := result.Error; err != nil {
			return err
		}

		if result.RowsAffected == 0 {
			return &document.ConflictError{
				Collection: collection,
				ID:         id,
				Expected:   rev,
				Current:    prev,
			}
		}

		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}

	return doc, nil
}

func (s *store) Delete(ctx context.Context, collection string, id string, rev document.Revision) (*document.Document, error) {
	var doc *document.Document

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := take(tx, collection, id)
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
		return tx.Delete(&Document{}, "collection = ? AND id = ?", collection, id).Error
	})
	if err != nil {
		return nil, wrap(err)
	}

	return doc, nil
}

func (s *store) Get(ctx context.Context, collection string, id string) (*document.Document, error) {
	doc, err := take(s.db.WithContext(ctx), collection, id)
	if err != nil {
		return nil, wrap(err)
	}

	return doc, nil
}

func (s *store) List(ctx context.Context, collection string, q document.Query) ([]*document.Document, error) {
	var rows []*Document

	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, wrap(err)
	}

	docs := make([]*document.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.reconstitute()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", document.ErrMalformedDocument, err)
		}

		docs = append(docs, doc)
	}

	return q.Apply(docs), nil
}

func (s *store) DB() *gorm.DB {
	return s.db
}

func (s *store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
