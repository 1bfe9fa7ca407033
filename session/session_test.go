package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mirror520/collab/model"
)

func TestNewSession(t *testing.T) {
	assert := assert.New(t)

	s, err := NewSession("w1", "u1", "Alice", Go, "")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("go Session", s.Title)
	assert.Contains(s.Code, "package main")

	s, err = NewSession("w1", "u1", "Alice", Language("cobol"), "Legacy")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("Legacy", s.Title)
	assert.Equal("// Start coding...", s.Code)

	_, err = NewSession("", "u1", "Alice", Go, "")
	assert.ErrorIs(err, model.ErrValidation)

	_, err = NewSession("w1", "", "Alice", Go, "")
	assert.ErrorIs(err, ErrEmptyUser)
}

func TestFork(t *testing.T) {
	assert := assert.New(t)

	s, _ := NewSession("w1", "u1", "Alice", Python, "Scratch")
	s.Code = "print(1)"

	fork, err := s.Fork("u2", "Bob")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("Scratch (Forked from Bob)", fork.Title)
	assert.Equal("print(1)", fork.Code)
	assert.Equal(Python, fork.Language)
	assert.Equal("w1", fork.WorkspaceID)
	assert.Equal("u2", fork.UserID)
}

func TestLatest(t *testing.T) {
	assert := assert.New(t)

	sessions := []*Session{
		{ID: "01A", UserID: "u1"},
		{ID: "01C", UserID: "u1"},
		{ID: "01B", UserID: "u1"},
		{ID: "01D", UserID: "u2"},
	}

	assert.Equal("01C", Latest(sessions, "u1").ID)
	assert.Nil(Latest(sessions, "u3"))
}
