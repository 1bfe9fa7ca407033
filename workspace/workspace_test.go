package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/model"
)

func TestNewWorkspace(t *testing.T) {
	assert := assert.New(t)

	w, err := NewWorkspace("Team", "", "u1", "Alice")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal([]string{"u1"}, w.Members)
	assert.Equal(map[string]string{"u1": "Alice"}, w.MemberNames)
	assert.Equal(DefaultSettings(), w.Settings)
	assert.NoError(w.Validate())

	_, err = NewWorkspace("", "", "u1", "Alice")
	assert.ErrorIs(err, ErrEmptyName)
	assert.ErrorIs(err, model.ErrValidation)
}

func TestJoinLeave(t *testing.T) {
	assert := assert.New(t)

	w, _ := NewWorkspace("Team", "", "u1", "Alice")

	changed, err := w.Join("u2", "Bob")
	assert.NoError(err)
	assert.True(changed)

	changed, err = w.Join("u2", "Bob")
	assert.NoError(err)
	assert.False(changed)
	assert.Equal([]string{"u1", "u2"}, w.Members)

	_, err = w.Leave("u1")
	assert.ErrorIs(err, ErrOwnerCannotLeave)

	changed, err = w.Leave("u3")
	assert.NoError(err)
	assert.False(changed)

	changed, err = w.Leave("u2")
	assert.NoError(err)
	assert.True(changed)
	assert.Equal([]string{"u1"}, w.Members)
	assert.NoError(w.Validate())
}

func TestDecodeMalformed(t *testing.T) {
	assert := assert.New(t)

	fields, _ := document.NewFields(map[string]any{
		"schemaVersion": 1,
		"name":          "Team",
		"ownerId":       "u1",
		"ownerName":     "Alice",
		"members":       []string{"u2"},
		"memberNames":   `{"u2":"Bob"}`,
	})

	_, err := decode(&document.Document{ID: "w1", Revision: 1, Fields: fields})
	assert.ErrorIs(err, document.ErrMalformedDocument)

	fields, _ = document.NewFields(map[string]any{
		"name":        "Team",
		"ownerId":     "u1",
		"ownerName":   "Alice",
		"members":     []string{"u1"},
		"memberNames": `not json`,
	})

	_, err = decode(&document.Document{ID: "w1", Revision: 1, Fields: fields})
	assert.ErrorIs(err, document.ErrMalformedDocument)
}

func TestDecodeDefaultSettings(t *testing.T) {
	assert := assert.New(t)

	fields, _ := document.NewFields(map[string]any{
		"name":        "Team",
		"ownerId":     "u1",
		"ownerName":   "Alice",
		"members":     []string{"u1"},
		"memberNames": `{"u1":"Alice"}`,
	})

	w, err := decode(&document.Document{ID: "w1", Revision: 3, Fields: fields})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal(DefaultSettings(), w.Settings)
	assert.Equal(document.Revision(3), w.Revision)
}
