package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/mirror520/collab/conf"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/document/storetest"
)

type kvStoreTestSuite struct {
	storetest.StoreTestSuite
}

func (suite *kvStoreTestSuite) SetupSuite() {
	cfg := conf.Persistence{
		Driver: conf.BadgerDB,
		Name:   "collab",
		InMem:  true,
	}

	store, err := NewStore(cfg)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Store = store
}

func (suite *kvStoreTestSuite) TearDownSuite() {
	suite.Store.Close()
}

func TestKVStoreTestSuite(t *testing.T) {
	suite.Run(t, new(kvStoreTestSuite))
}

func TestStoreOnDisk(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cfg := conf.Persistence{
		Driver: conf.BadgerDB,
		Name:   "collab",
		Host:   t.TempDir(),
	}

	store, err := NewStore(cfg)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	fields, _ := document.NewFields(map[string]any{"name": "Team"})
	doc, err := store.Create(ctx, "workspaces", "", fields)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	store.Close()

	store, err = NewStore(cfg)
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer store.Close()

	got, err := store.Get(ctx, "workspaces", doc.ID)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("Team", got.Fields.String("name"))
	assert.Equal(document.Revision(1), got.Revision)
}
