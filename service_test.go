package collab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/mirror520/collab/ai"
	"github.com/mirror520/collab/chat"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/merge"
	"github.com/mirror520/collab/persistence/inmem"
	"github.com/mirror520/collab/policy"
	"github.com/mirror520/collab/pubsub"
	bus "github.com/mirror520/collab/pubsub/inmem"
	"github.com/mirror520/collab/session"
	"github.com/mirror520/collab/workspace"
)

type stubAI struct {
	calls int
}

func (c *stubAI) Suggest(ctx context.Context, req ai.Request) (string, bool) {
	c.calls++
	return "return nil", true
}

func (c *stubAI) Enabled() bool {
	return true
}

type writeCounter struct {
	document.Store
	writes int
}

func (s *writeCounter) Create(ctx context.Context, collection string, id string, fields document.Fields) (*document.Document, error) {
	s.writes++
	return s.Store.Create(ctx, collection, id, fields)
}

func (s *writeCounter) Update(ctx context.Context, collection string, id string, fields document.Fields, rev document.Revision) (*document.Document, error) {
	s.writes++
	return s.Store.Update(ctx, collection, id, fields, rev)
}

func (s *writeCounter) Delete(ctx context.Context, collection string, id string, rev document.Revision) (*document.Document, error) {
	s.writes++
	return s.Store.Delete(ctx, collection, id, rev)
}

type serviceTestSuite struct {
	suite.Suite
	ctx   context.Context
	bus   pubsub.PubSub
	store *writeCounter
	ai    *stubAI
	svc   Service

	alice Actor
	bob   Actor
	carol Actor
}

func (suite *serviceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.bus = bus.NewPubSub()
	suite.store = &writeCounter{
		Store: document.PublishingMiddleware(suite.bus, zap.NewNop())(inmem.NewStore()),
	}
	suite.ai = new(stubAI)

	p, err := policy.NewRegoPolicy(suite.ctx)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	svc := NewService(
		workspace.NewService(suite.store, suite.bus, "workspaces", 3),
		session.NewService(suite.store, suite.bus, "sessions", session.WithCursorBroadcast(true)),
		chat.NewService(suite.store, suite.bus, "messages"),
		merge.NewService(suite.store, suite.bus, "merge_requests"),
		suite.ai,
		p,
	)
	suite.svc = LoggingMiddleware(zap.NewNop())(svc)

	suite.alice = Actor{"u1", "Alice"}
	suite.bob = Actor{"u2", "Bob"}
	suite.carol = Actor{"u3", "Carol"}
}

func (suite *serviceTestSuite) TearDownTest() {
	suite.store.Close()
	suite.bus.Close()
}

func (suite *serviceTestSuite) team() *workspace.Workspace {
	w, err := suite.svc.CreateWorkspace(suite.ctx, suite.alice, "Team", "")
	suite.Require().NoError(err)

	_, err = suite.svc.JoinWorkspace(suite.ctx, suite.bob, w.ID)
	suite.Require().NoError(err)

	w, err = suite.svc.GetWorkspace(suite.ctx, suite.alice, w.ID)
	suite.Require().NoError(err)

	return w
}

func (suite *serviceTestSuite) TestSettingsAuthorizedBeforeWrite() {
	w := suite.team()

	settings := w.Settings
	settings.TextChatEnabled = false

	writes := suite.store.writes

	_, err := suite.svc.UpdateSettings(suite.ctx, suite.bob, w.ID, settings, w.Revision)
	suite.ErrorIs(err, ErrUnauthorized)

	_, err = suite.svc.UpdateSettings(suite.ctx, suite.carol, w.ID, settings, w.Revision)
	suite.ErrorIs(err, ErrUnauthorized)

	suite.Equal(writes, suite.store.writes)

	got, err := suite.svc.GetWorkspace(suite.ctx, suite.alice, w.ID)
	suite.Require().NoError(err)
	suite.Equal(w.Revision, got.Revision)
	suite.True(got.Settings.TextChatEnabled)

	updated, err := suite.svc.UpdateSettings(suite.ctx, suite.alice, w.ID, settings, w.Revision)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.False(updated.Settings.TextChatEnabled)

	_, err = suite.svc.SendMessage(suite.ctx, suite.bob, w.ID, "hello")
	suite.ErrorIs(err, ErrUnauthorized)
}

func (suite *serviceTestSuite) TestOwnerCannotLeave() {
	w := suite.team()

	_, err := suite.svc.LeaveWorkspace(suite.ctx, suite.alice, w.ID)
	suite.ErrorIs(err, workspace.ErrOwnerCannotLeave)

	left, err := suite.svc.LeaveWorkspace(suite.ctx, suite.bob, w.ID)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal([]string{"u1"}, left.Members)
	suite.Equal(map[string]string{"u1": "Alice"}, left.MemberNames)

	writes := suite.store.writes

	same, err := suite.svc.LeaveWorkspace(suite.ctx, suite.carol, w.ID)
	suite.ErrorIs(err, ErrUnauthorized)
	suite.Nil(same)
	suite.Equal(writes, suite.store.writes)

	_, err = suite.svc.GetWorkspace(suite.ctx, suite.bob, w.ID)
	suite.ErrorIs(err, ErrUnauthorized)
}

func (suite *serviceTestSuite) TestSessionAuthorization() {
	w := suite.team()

	s, err := suite.svc.CreateSession(suite.ctx, suite.alice, w.ID, session.Go, "")
	suite.Require().NoError(err)

	writes := suite.store.writes

	_, err = suite.svc.UpdateCode(suite.ctx, suite.bob, s.ID, "stolen", document.AnyRevision)
	suite.ErrorIs(err, ErrUnauthorized)

	_, err = suite.svc.UpdateCode(suite.ctx, suite.carol, s.ID, "stolen", document.AnyRevision)
	suite.ErrorIs(err, ErrUnauthorized)

	suite.Equal(writes, suite.store.writes)

	got, err := suite.svc.GetSession(suite.ctx, suite.bob, s.ID)
	suite.Require().NoError(err)
	suite.Equal(session.Go.Template(), got.Code)

	_, err = suite.svc.GetSession(suite.ctx, suite.carol, s.ID)
	suite.ErrorIs(err, ErrUnauthorized)

	_, err = suite.svc.CreateSession(suite.ctx, suite.carol, w.ID, session.Go, "")
	suite.ErrorIs(err, ErrUnauthorized)

	_, err = suite.svc.UpdateCode(suite.ctx, suite.alice, s.ID, "package main", s.Revision)
	suite.NoError(err)

	suite.ErrorIs(suite.svc.DeleteSession(suite.ctx, suite.bob, s.ID), ErrUnauthorized)
	suite.NoError(suite.svc.DeleteSession(suite.ctx, suite.alice, s.ID))
}

func (suite *serviceTestSuite) TestCursorOnlyByAuthor() {
	w := suite.team()

	s, err := suite.svc.CreateSession(suite.ctx, suite.alice, w.ID, session.Go, "")
	suite.Require().NoError(err)

	writes := suite.store.writes

	err = suite.svc.UpdateCursor(suite.ctx, suite.bob, s.ID, session.Position{Line: 9, Column: 9})
	suite.ErrorIs(err, ErrUnauthorized)

	err = suite.svc.UpdateSelection(suite.ctx, suite.bob, s.ID, session.Range{EndLine: 9, EndColumn: 9})
	suite.ErrorIs(err, ErrUnauthorized)

	err = suite.svc.UpdateCursor(suite.ctx, suite.carol, s.ID, session.Position{Line: 9, Column: 9})
	suite.ErrorIs(err, ErrUnauthorized)

	suite.Equal(writes, suite.store.writes)

	err = suite.svc.UpdateCursor(suite.ctx, suite.alice, s.ID, session.Position{Line: 1, Column: 4})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	got, err := suite.svc.GetSession(suite.ctx, suite.bob, s.ID)
	suite.Require().NoError(err)
	suite.Equal(map[string]session.Position{"u1": {Line: 1, Column: 4}}, got.CursorPositions)
}

func (suite *serviceTestSuite) TestForkAndMergeOverwrites() {
	w := suite.team()

	original, err := suite.svc.CreateSession(suite.ctx, suite.alice, w.ID, session.Python, "Main")
	suite.Require().NoError(err)

	fork, err := suite.svc.ForkSession(suite.ctx, suite.bob, original.ID)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal("Main (Forked from Bob)", fork.Title)
	suite.Equal(original.Code, fork.Code)

	_, err = suite.svc.UpdateCode(suite.ctx, suite.bob, fork.ID, "print('bob')", document.AnyRevision)
	suite.Require().NoError(err)

	_, err = suite.svc.RequestMerge(suite.ctx, suite.alice, fork.ID, original.ID, "")
	suite.ErrorIs(err, ErrUnauthorized)

	r, err := suite.svc.RequestMerge(suite.ctx, suite.bob, fork.ID, original.ID, "")
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal("u1", r.ToUserID)
	suite.Equal("Bob wants to merge their changes into \"Main\"", r.Message)

	// an edit to the original after the request is overwritten on accept
	_, err = suite.svc.UpdateCode(suite.ctx, suite.alice, original.ID, "print('alice')", document.AnyRevision)
	suite.Require().NoError(err)

	_, err = suite.svc.AcceptMerge(suite.ctx, suite.bob, r.ID)
	suite.ErrorIs(err, ErrUnauthorized)

	accepted, err := suite.svc.AcceptMerge(suite.ctx, suite.alice, r.ID)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(merge.Accepted, accepted.Status)

	got, err := suite.svc.GetSession(suite.ctx, suite.alice, original.ID)
	suite.Require().NoError(err)
	suite.Equal("print('bob')", got.Code)

	_, err = suite.svc.AcceptMerge(suite.ctx, suite.alice, r.ID)
	suite.ErrorIs(err, merge.ErrAlreadyResolved)

	_, err = suite.svc.RejectMerge(suite.ctx, suite.alice, r.ID)
	suite.ErrorIs(err, merge.ErrAlreadyResolved)
}

func (suite *serviceTestSuite) TestDeleteWorkspaceCascades() {
	w := suite.team()
	other, err := suite.svc.CreateWorkspace(suite.ctx, suite.alice, "Other", "")
	suite.Require().NoError(err)

	s, _ := suite.svc.CreateSession(suite.ctx, suite.alice, w.ID, session.Go, "")
	fork, _ := suite.svc.ForkSession(suite.ctx, suite.bob, s.ID)
	suite.svc.RequestMerge(suite.ctx, suite.bob, fork.ID, s.ID, "")
	suite.svc.SendMessage(suite.ctx, suite.bob, w.ID, "hi")

	keep, _ := suite.svc.CreateSession(suite.ctx, suite.alice, other.ID, session.Go, "")
	suite.svc.SendMessage(suite.ctx, suite.alice, other.ID, "still here")

	suite.ErrorIs(suite.svc.DeleteWorkspace(suite.ctx, suite.bob, w.ID), ErrUnauthorized)
	suite.NoError(suite.svc.DeleteWorkspace(suite.ctx, suite.alice, w.ID))

	for _, collection := range []string{"sessions", "messages", "merge_requests"} {
		docs, err := suite.store.List(suite.ctx, collection, document.Query{
			Filters: []document.Filter{document.Equal("workspaceId", w.ID)},
		})
		suite.NoError(err)
		suite.Empty(docs, collection)
	}

	_, err = suite.svc.GetWorkspace(suite.ctx, suite.alice, w.ID)
	suite.ErrorIs(err, workspace.ErrWorkspaceNotFound)

	_, err = suite.svc.GetSession(suite.ctx, suite.alice, keep.ID)
	suite.NoError(err)

	msgs, err := suite.svc.ListMessages(suite.ctx, suite.alice, other.ID, 0)
	suite.NoError(err)
	suite.Len(msgs, 1)
}

func (suite *serviceTestSuite) TestChat() {
	w := suite.team()

	m, err := suite.svc.SendMessage(suite.ctx, suite.bob, w.ID, "hello")
	suite.Require().NoError(err)

	_, err = suite.svc.SendMessage(suite.ctx, suite.carol, w.ID, "let me in")
	suite.ErrorIs(err, ErrUnauthorized)

	_, err = suite.svc.SendMessage(suite.ctx, suite.alice, w.ID, "  ")
	suite.ErrorIs(err, chat.ErrEmptyContent)

	suite.ErrorIs(suite.svc.DeleteMessage(suite.ctx, suite.alice, m.ID), ErrUnauthorized)
	suite.NoError(suite.svc.DeleteMessage(suite.ctx, suite.bob, m.ID))

	msgs, err := suite.svc.ListMessages(suite.ctx, suite.alice, w.ID, 0)
	suite.NoError(err)
	suite.Empty(msgs)
}

func (suite *serviceTestSuite) TestSuggest() {
	w := suite.team()

	_, _, err := suite.svc.Suggest(suite.ctx, suite.carol, w.ID, ai.Request{Code: "x := 1"})
	suite.ErrorIs(err, ErrUnauthorized)
	suite.Equal(0, suite.ai.calls)

	text, ok, err := suite.svc.Suggest(suite.ctx, suite.bob, w.ID, ai.Request{Code: "x := 1"})
	suite.NoError(err)
	suite.True(ok)
	suite.Equal("return nil", text)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(serviceTestSuite))
}
