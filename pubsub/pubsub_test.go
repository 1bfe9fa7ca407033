package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	assert := assert.New(t)

	assert.True(Match("documents.workspaces.>", "documents.workspaces.01H.update"))
	assert.True(Match("documents.workspaces.01H.>", "documents.workspaces.01H.update"))
	assert.True(Match("documents.*.01H.update", "documents.workspaces.01H.update"))
	assert.True(Match("documents.workspaces.01H.update", "documents.workspaces.01H.update"))

	assert.False(Match("documents.workspaces.>", "documents.workspaces"))
	assert.False(Match("documents.workspaces.01H.>", "documents.workspaces.01J.update"))
	assert.False(Match("documents.*.update", "documents.workspaces.01H.update"))
	assert.False(Match("documents.sessions.>", "documents.workspaces.01H.update"))
}
