package document_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/persistence/inmem"
	"github.com/mirror520/collab/pubsub"
	bus "github.com/mirror520/collab/pubsub/inmem"
)

func TestChangeTopic(t *testing.T) {
	assert := assert.New(t)

	doc := &document.Document{ID: "s1", Collection: "sessions", Revision: 2}
	c := document.NewChange(document.Update, doc)

	assert.Equal("documents.sessions.s1.update", c.Topic())
	assert.True(pubsub.Match(document.CollectionChannel("sessions"), c.Topic()))
	assert.True(pubsub.Match(document.DocumentChannel("sessions", "s1"), c.Topic()))
	assert.False(pubsub.Match(document.DocumentChannel("sessions", "s2"), c.Topic()))
	assert.False(pubsub.Match(document.CollectionChannel("workspaces"), c.Topic()))
}

func TestParseChange(t *testing.T) {
	assert := assert.New(t)

	_, err := document.ParseChange([]byte(`{"type":"update"}`))
	assert.ErrorIs(err, document.ErrMalformedDocument)

	_, err = document.ParseChange([]byte(`not json`))
	assert.Error(err)
}

func TestPublishingMiddleware(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	ps := bus.NewPubSub()
	defer ps.Close()

	store := document.PublishingMiddleware(ps, zap.NewNop())(inmem.NewStore())

	var changes []*document.Change
	sub, err := document.Subscribe(ps, document.CollectionChannel("workspaces"),
		func(ctx context.Context, c *document.Change) error {
			changes = append(changes, c)
			return nil
		})
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer sub.Unsubscribe()

	fields, _ := document.NewFields(map[string]any{"name": "Team"})
	doc, err := store.Create(ctx, "workspaces", "", fields)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	partial, _ := document.NewFields(map[string]any{"name": "Team 2"})
	if _, err := store.Update(ctx, "workspaces", doc.ID, partial, doc.Revision); err != nil {
		assert.Fail(err.Error())
		return
	}

	// failed writes publish nothing
	_, err = store.Update(ctx, "workspaces", doc.ID, partial, doc.Revision)
	assert.True(errors.Is(err, document.ErrRevisionConflict))

	if _, err := store.Delete(ctx, "workspaces", doc.ID, document.AnyRevision); err != nil {
		assert.Fail(err.Error())
		return
	}

	// other collections are not delivered
	store.Create(ctx, "sessions", "", fields)

	if assert.Len(changes, 3) {
		assert.Equal(document.Create, changes[0].Type)
		assert.Equal(document.Update, changes[1].Type)
		assert.Equal(document.Delete, changes[2].Type)

		assert.Equal(doc.ID, changes[1].DocumentID)
		assert.Equal(document.Revision(2), changes[1].Payload.Revision)
		assert.Equal("Team 2", changes[1].Payload.Fields.String("name"))

		bs, _ := json.Marshal(changes[1])
		assert.Contains(string(bs), `"documentId":"`+doc.ID+`"`)
	}
}
