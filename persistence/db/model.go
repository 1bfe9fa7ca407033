package db

import (
	"encoding/json"
	"time"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/model"
)

type Document struct {
	Collection string `gorm:"primaryKey"`
	ID         string `gorm:"primaryKey"`
	Revision   uint64
	Fields     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewDocument(doc *document.Document) (*Document, error) {
	bs, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, err
	}

	return &Document{
		Collection: doc.Collection,
		ID:         doc.ID,
		Revision:   uint64(doc.Revision),
		Fields:     string(bs),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func (d *Document) reconstitute() (*document.Document, error) {
	var fields document.Fields
	if err := json.Unmarshal([]byte(d.Fields), &fields); err != nil {
		return nil, err
	}

	return &document.Document{
		ID:         d.ID,
		Collection: d.Collection,
		Revision:   document.Revision(d.Revision),
		Fields:     fields,
		Model: model.Model{
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
	}, nil
}
