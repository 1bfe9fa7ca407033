package inmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mirror520/collab/pubsub"
)

type inmemTestSuite struct {
	suite.Suite
	pubSub pubsub.PubSub
}

func (suite *inmemTestSuite) SetupTest() {
	suite.pubSub = NewPubSub()
}

func (suite *inmemTestSuite) TestPublishAndSubscribe() {
	received := make([]string, 0)

	_, err := suite.pubSub.Subscribe("documents.messages.>", func(ctx context.Context, msg *pubsub.Message) error {
		received = append(received, msg.Topic+"="+string(msg.Data))
		return nil
	})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.pubSub.Publish("documents.messages.A.create", []byte("a"))
	suite.pubSub.Publish("documents.workspaces.W.update", []byte("w"))
	suite.pubSub.Publish("documents.messages.B.create", []byte("b"))

	suite.Equal([]string{
		"documents.messages.A.create=a",
		"documents.messages.B.create=b",
	}, received)
}

func (suite *inmemTestSuite) TestUnsubscribe() {
	count := 0

	sub, err := suite.pubSub.Subscribe("documents.>", func(ctx context.Context, msg *pubsub.Message) error {
		count++
		return nil
	})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.pubSub.Publish("documents.sessions.S.update", nil)
	sub.Unsubscribe()
	suite.pubSub.Publish("documents.sessions.S.update", nil)

	suite.Equal(1, count)
	suite.Equal("documents.>", sub.Topic())
}

func (suite *inmemTestSuite) TestClose() {
	suite.pubSub.Close()

	err := suite.pubSub.Publish("documents.sessions.S.update", nil)
	suite.ErrorIs(err, pubsub.ErrClosed)

	_, err = suite.pubSub.Subscribe("documents.>", nil)
	suite.ErrorIs(err, pubsub.ErrClosed)
}

func TestInMemTestSuite(t *testing.T) {
	suite.Run(t, new(inmemTestSuite))
}
