package inmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/document/storetest"
)

func TestStoreTestSuite(t *testing.T) {
	s := new(storetest.StoreTestSuite)
	s.Store = NewStore()
	suite.Run(t, s)
}

func TestStoreClosed(t *testing.T) {
	assert := assert.New(t)

	store := NewStore()
	store.Close()

	_, err := store.Get(context.Background(), "workspaces", "w1")
	assert.ErrorIs(err, document.ErrStoreUnavailable)
}

func TestStoreReturnsCopies(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := NewStore()

	fields, _ := document.NewFields(map[string]any{"code": "a"})
	doc, err := store.Create(ctx, "sessions", "s1", fields)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	doc.Fields["code"] = []byte(`"mutated"`)

	got, err := store.Get(ctx, "sessions", "s1")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("a", got.Fields.String("code"))
}
