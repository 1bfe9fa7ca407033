package client

import (
	"context"
	"sort"
	"sync"

	"github.com/mirror520/collab"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/session"
)

// Sessions holds the code sessions of the current workspace.
type Sessions struct {
	svc      collab.Service
	actor    collab.Actor
	notifier Notifier

	sessions map[string]*session.Session
	sub      slot
	mu       sync.RWMutex
}

func NewSessions(svc collab.Service, actor collab.Actor, notifier Notifier) *Sessions {
	return &Sessions{
		svc:      svc,
		actor:    actor,
		notifier: notifier,
		sessions: make(map[string]*session.Session),
	}
}

func (s *Sessions) fail(err error) error {
	s.notifier.Notify(err)
	return err
}

func (s *Sessions) Load(ctx context.Context, workspaceID string) error {
	list, err := s.svc.ListSessions(ctx, s.actor, workspaceID)
	if err != nil {
		return s.fail(err)
	}

	sessions := make(map[string]*session.Session, len(list))
	for _, cs := range list {
		sessions[cs.ID] = cs
	}

	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()

	return nil
}

// Watch follows every session of the workspace, replacing any earlier watch.
func (s *Sessions) Watch(ctx context.Context, workspaceID string) error {
	s.sub.Close()

	sub, err := s.svc.WatchSessions(ctx, s.actor, workspaceID, s.apply)
	if err != nil {
		return s.fail(err)
	}

	s.sub.Set(sub)
	return nil
}

func (s *Sessions) Create(ctx context.Context, workspaceID string, lang session.Language, title string) (*session.Session, error) {
	cs, err := s.svc.CreateSession(ctx, s.actor, workspaceID, lang, title)
	if err != nil {
		return nil, s.fail(err)
	}

	s.put(cs)
	return cs, nil
}

func (s *Sessions) Fork(ctx context.Context, id string) (*session.Session, error) {
	cs, err := s.svc.ForkSession(ctx, s.actor, id)
	if err != nil {
		return nil, s.fail(err)
	}

	s.put(cs)
	return cs, nil
}

func (s *Sessions) Delete(ctx context.Context, id string) error {
	if err := s.svc.DeleteSession(ctx, s.actor, id); err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	return nil
}

func (s *Sessions) Close() {
	s.sub.Close()

	s.mu.Lock()
	s.sessions = make(map[string]*session.Session)
	s.mu.Unlock()
}

func (s *Sessions) Get(id string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cs, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	copied := *cs
	return &copied, true
}

// List returns the sessions in creation order.
func (s *Sessions) List() []*session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*session.Session, 0, len(s.sessions))
	for _, cs := range s.sessions {
		copied := *cs
		list = append(list, &copied)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})

	return list
}

// Current returns the latest session the user created, if any.
func (s *Sessions) Current(userID string) *session.Session {
	return session.Latest(s.List(), userID)
}

func (s *Sessions) put(cs *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[cs.ID]; ok && existing.Revision > cs.Revision {
		return
	}

	s.sessions[cs.ID] = cs
}

func (s *Sessions) apply(ctx context.Context, t document.EventType, cs *session.Session) error {
	if t == document.Delete {
		s.mu.Lock()
		delete(s.sessions, cs.ID)
		s.mu.Unlock()
		return nil
	}

	s.put(cs)
	return nil
}
