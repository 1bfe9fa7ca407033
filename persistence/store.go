package persistence

import (
	"errors"

	"github.com/mirror520/collab/conf"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/persistence/db"
	"github.com/mirror520/collab/persistence/inmem"
	"github.com/mirror520/collab/persistence/kv"
)

var ErrDriverNotSupported = errors.New("driver not supported")

func NewStore(cfg conf.Persistence) (document.Store, error) {
	switch cfg.Driver {
	case conf.SQLite:
		return db.NewStore(cfg)
	case conf.BadgerDB:
		return kv.NewStore(cfg)
	case conf.InMem:
		return inmem.NewStore(), nil
	default:
		return nil, ErrDriverNotSupported
	}
}
