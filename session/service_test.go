package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/persistence/inmem"
	"github.com/mirror520/collab/pubsub"
	bus "github.com/mirror520/collab/pubsub/inmem"
)

type sessionServiceTestSuite struct {
	suite.Suite
	ctx   context.Context
	bus   pubsub.PubSub
	store document.Store
	svc   Service
}

func (suite *sessionServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.bus = bus.NewPubSub()
	suite.store = document.PublishingMiddleware(suite.bus, zap.NewNop())(inmem.NewStore())
	suite.svc = NewService(suite.store, suite.bus, "sessions", WithCursorBroadcast(true))
}

func (suite *sessionServiceTestSuite) TearDownTest() {
	suite.store.Close()
	suite.bus.Close()
}

func (suite *sessionServiceTestSuite) TestCreateAndList() {
	s1, err := suite.svc.Create(suite.ctx, "w1", "u1", "Alice", JavaScript, "")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	s2, _ := suite.svc.Create(suite.ctx, "w1", "u2", "Bob", Python, "")
	suite.svc.Create(suite.ctx, "w2", "u1", "Alice", Go, "")

	sessions, err := suite.svc.ListForWorkspace(suite.ctx, "w1")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	if suite.Len(sessions, 2) {
		suite.Equal(s1.ID, sessions[0].ID)
		suite.Equal(s2.ID, sessions[1].ID)
		suite.Equal("javascript Session", sessions[0].Title)
	}

	_, err = suite.svc.Get(suite.ctx, "missing")
	suite.ErrorIs(err, ErrSessionNotFound)
}

func (suite *sessionServiceTestSuite) TestUpdateCode() {
	s, err := suite.svc.Create(suite.ctx, "w1", "u1", "Alice", Go, "")
	suite.Require().NoError(err)

	updated, err := suite.svc.UpdateCode(suite.ctx, s.ID, "package collab", s.Revision)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal("package collab", updated.Code)
	suite.Equal("u1", updated.UserID)
	suite.Equal(s.Title, updated.Title)

	_, err = suite.svc.UpdateCode(suite.ctx, s.ID, "stale", s.Revision)
	suite.ErrorIs(err, document.ErrRevisionConflict)

	_, err = suite.svc.UpdateCode(suite.ctx, s.ID, "any", document.AnyRevision)
	suite.NoError(err)
}

func (suite *sessionServiceTestSuite) TestCursorsAndSelections() {
	s, err := suite.svc.Create(suite.ctx, "w1", "u1", "Alice", Go, "")
	suite.Require().NoError(err)

	suite.NoError(suite.svc.UpdateCursor(suite.ctx, s.ID, "u1", Position{Line: 3, Column: 5}))
	suite.NoError(suite.svc.UpdateCursor(suite.ctx, s.ID, "u2", Position{Line: 1, Column: 1}))
	suite.NoError(suite.svc.UpdateSelection(suite.ctx, s.ID, "u2", Range{1, 1, 2, 4}))

	got, err := suite.svc.Get(suite.ctx, s.ID)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(Position{3, 5}, got.CursorPositions["u1"])
	suite.Equal(Position{1, 1}, got.CursorPositions["u2"])
	suite.Equal(Range{1, 1, 2, 4}, got.Selections["u2"])
}

func (suite *sessionServiceTestSuite) TestCursorsDisabled() {
	svc := NewService(suite.store, suite.bus, "sessions")

	s, err := svc.Create(suite.ctx, "w1", "u1", "Alice", Go, "")
	suite.Require().NoError(err)

	suite.NoError(svc.UpdateCursor(suite.ctx, s.ID, "u1", Position{Line: 3, Column: 5}))

	got, err := svc.Get(suite.ctx, s.ID)
	suite.Require().NoError(err)
	suite.Empty(got.CursorPositions)
	suite.Equal(s.Revision, got.Revision)
}

func (suite *sessionServiceTestSuite) TestForkAndDeleteForWorkspace() {
	s, err := suite.svc.Create(suite.ctx, "w1", "u1", "Alice", Rust, "Main")
	suite.Require().NoError(err)

	fork, err := suite.svc.Fork(suite.ctx, s, "u2", "Bob")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal("Main (Forked from Bob)", fork.Title)
	suite.Equal(s.Code, fork.Code)
	suite.NotEqual(s.ID, fork.ID)

	other, _ := suite.svc.Create(suite.ctx, "w2", "u1", "Alice", Rust, "")

	suite.NoError(suite.svc.DeleteForWorkspace(suite.ctx, "w1"))

	sessions, err := suite.svc.ListForWorkspace(suite.ctx, "w1")
	suite.NoError(err)
	suite.Empty(sessions)

	_, err = suite.svc.Get(suite.ctx, other.ID)
	suite.NoError(err)
}

func (suite *sessionServiceTestSuite) TestWatch() {
	var changes []document.EventType

	sub, err := suite.svc.Watch("w1", func(ctx context.Context, t document.EventType, s *Session) error {
		suite.Equal("w1", s.WorkspaceID)
		changes = append(changes, t)
		return nil
	})
	if err != nil {
		suite.Fail(err.Error())
		return
	}
	defer sub.Unsubscribe()

	s, _ := suite.svc.Create(suite.ctx, "w1", "u1", "Alice", Go, "")
	suite.svc.Create(suite.ctx, "w2", "u1", "Alice", Go, "")
	suite.svc.UpdateCode(suite.ctx, s.ID, "x", document.AnyRevision)
	suite.svc.Delete(suite.ctx, s.ID)

	suite.Equal([]document.EventType{document.Create, document.Update, document.Delete}, changes)
}

func (suite *sessionServiceTestSuite) TestSubscribe() {
	s, _ := suite.svc.Create(suite.ctx, "w1", "u1", "Alice", Go, "")
	other, _ := suite.svc.Create(suite.ctx, "w1", "u2", "Bob", Go, "")

	var codes []string
	sub, err := suite.svc.Subscribe(s.ID, func(ctx context.Context, t document.EventType, s *Session) error {
		codes = append(codes, s.Code)
		return nil
	})
	if err != nil {
		suite.Fail(err.Error())
		return
	}
	defer sub.Unsubscribe()

	suite.svc.UpdateCode(suite.ctx, s.ID, "a", document.AnyRevision)
	suite.svc.UpdateCode(suite.ctx, other.ID, "b", document.AnyRevision)
	suite.svc.UpdateCode(suite.ctx, s.ID, "c", document.AnyRevision)

	suite.Equal([]string{"a", "c"}, codes)
}

func TestSessionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(sessionServiceTestSuite))
}
