// Package storetest holds the behaviour every document.Store driver shares.
package storetest

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/suite"

	"github.com/mirror520/collab/document"
)

type StoreTestSuite struct {
	suite.Suite
	Store document.Store
	ctx   context.Context
}

func (suite *StoreTestSuite) SetupTest() {
	suite.ctx = context.Background()
}

func (suite *StoreTestSuite) fields(v map[string]any) document.Fields {
	fields, err := document.NewFields(v)
	suite.Require().NoError(err)
	return fields
}

func (suite *StoreTestSuite) TestCreateAndGet() {
	doc, err := suite.Store.Create(suite.ctx, "workspaces", "", suite.fields(map[string]any{
		"name":    "Team",
		"members": []string{"u1"},
	}))
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.NotEmpty(doc.ID)
	suite.Equal(document.Revision(1), doc.Revision)

	got, err := suite.Store.Get(suite.ctx, "workspaces", doc.ID)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal("Team", got.Fields.String("name"))
	suite.Equal(document.Revision(1), got.Revision)

	_, err = suite.Store.Create(suite.ctx, "workspaces", doc.ID, suite.fields(map[string]any{"name": "Dup"}))
	suite.ErrorIs(err, document.ErrDocumentExists)
}

func (suite *StoreTestSuite) TestGetNotFound() {
	_, err := suite.Store.Get(suite.ctx, "workspaces", "missing")
	suite.ErrorIs(err, document.ErrDocumentNotFound)
}

func (suite *StoreTestSuite) TestUpdateMergesFields() {
	doc, err := suite.Store.Create(suite.ctx, "sessions", "", suite.fields(map[string]any{
		"title": "go Session",
		"code":  "package main",
	}))
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	updated, err := suite.Store.Update(suite.ctx, "sessions", doc.ID,
		suite.fields(map[string]any{"code": "package main\n"}), doc.Revision)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(document.Revision(2), updated.Revision)
	suite.Equal("go Session", updated.Fields.String("title"))
	suite.Equal("package main\n", updated.Fields.String("code"))
}

func (suite *StoreTestSuite) TestUpdateRevisionConflict() {
	doc, err := suite.Store.Create(suite.ctx, "sessions", "", suite.fields(map[string]any{"code": "a"}))
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	_, err = suite.Store.Update(suite.ctx, "sessions", doc.ID,
		suite.fields(map[string]any{"code": "b"}), doc.Revision)
	suite.NoError(err)

	_, err = suite.Store.Update(suite.ctx, "sessions", doc.ID,
		suite.fields(map[string]any{"code": "c"}), doc.Revision)
	suite.ErrorIs(err, document.ErrRevisionConflict)

	var conflict *document.ConflictError
	if suite.True(errors.As(err, &conflict)) {
		suite.Equal(document.Revision(1), conflict.Expected)
		suite.Equal(document.Revision(2), conflict.Current)
	}

	updated, err := suite.Store.Update(suite.ctx, "sessions", doc.ID,
		suite.fields(map[string]any{"code": "d"}), document.AnyRevision)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(document.Revision(3), updated.Revision)
	suite.Equal("d", updated.Fields.String("code"))
}

func (suite *StoreTestSuite) TestUpdateNotFound() {
	_, err := suite.Store.Update(suite.ctx, "sessions", "missing",
		suite.fields(map[string]any{"code": "x"}), document.AnyRevision)
	suite.ErrorIs(err, document.ErrDocumentNotFound)
}

func (suite *StoreTestSuite) TestDelete() {
	doc, err := suite.Store.Create(suite.ctx, "messages", "", suite.fields(map[string]any{"content": "hi"}))
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	_, err = suite.Store.Delete(suite.ctx, "messages", doc.ID, doc.Revision+1)
	suite.ErrorIs(err, document.ErrRevisionConflict)

	deleted, err := suite.Store.Delete(suite.ctx, "messages", doc.ID, doc.Revision)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(doc.ID, deleted.ID)

	_, err = suite.Store.Get(suite.ctx, "messages", doc.ID)
	suite.ErrorIs(err, document.ErrDocumentNotFound)

	_, err = suite.Store.Delete(suite.ctx, "messages", doc.ID, document.AnyRevision)
	suite.ErrorIs(err, document.ErrDocumentNotFound)
}

func (suite *StoreTestSuite) TestListQuery() {
	for i, ts := range []string{
		"2024-01-01T00:00:02.000Z",
		"2024-01-01T00:00:01.000Z",
		"2024-01-01T00:00:03.000Z",
	} {
		_, err := suite.Store.Create(suite.ctx, "chat", "", suite.fields(map[string]any{
			"workspaceId": "w1",
			"timestamp":   ts,
			"seq":         i,
		}))
		suite.Require().NoError(err)
	}

	_, err := suite.Store.Create(suite.ctx, "chat", "", suite.fields(map[string]any{
		"workspaceId": "w2",
		"timestamp":   "2024-01-01T00:00:04.000Z",
	}))
	suite.Require().NoError(err)

	docs, err := suite.Store.List(suite.ctx, "chat", document.Query{
		Filters: []document.Filter{document.Equal("workspaceId", "w1")},
		OrderBy: "timestamp",
		Desc:    true,
		Limit:   2,
	})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	if suite.Len(docs, 2) {
		suite.Equal("2024-01-01T00:00:03.000Z", docs[0].Fields.String("timestamp"))
		suite.Equal("2024-01-01T00:00:02.000Z", docs[1].Fields.String("timestamp"))
	}

	other, err := suite.Store.List(suite.ctx, "other", document.Query{})
	suite.NoError(err)
	suite.Empty(other)
}

func (suite *StoreTestSuite) TestListContains() {
	_, err := suite.Store.Create(suite.ctx, "teams", "", suite.fields(map[string]any{
		"members": []string{"alice", "bob"},
	}))
	suite.Require().NoError(err)

	_, err = suite.Store.Create(suite.ctx, "teams", "", suite.fields(map[string]any{
		"members": []string{"carol"},
	}))
	suite.Require().NoError(err)

	docs, err := suite.Store.List(suite.ctx, "teams", document.Query{
		Filters: []document.Filter{document.Contains("members", "bob")},
	})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Len(docs, 1)
}

func (suite *StoreTestSuite) TestConcurrentUpdatesWithRevision() {
	doc, err := suite.Store.Create(suite.ctx, "counters", "", suite.fields(map[string]any{"n": 0}))
	suite.Require().NoError(err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			_, err := suite.Store.Update(suite.ctx, "counters", doc.ID,
				suite.fields(map[string]any{"n": i}), doc.Revision)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()

	suite.Equal(1, succeeded)

	got, err := suite.Store.Get(suite.ctx, "counters", doc.ID)
	suite.Require().NoError(err)
	suite.Equal(document.Revision(2), got.Revision)
}
