package client

import (
	"context"
	"sort"
	"sync"

	"github.com/mirror520/collab"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/workspace"
)

// Workspaces holds the workspaces of the actor and the one currently open.
type Workspaces struct {
	svc      collab.Service
	actor    collab.Actor
	notifier Notifier

	current    *workspace.Workspace
	workspaces map[string]*workspace.Workspace
	sub        slot
	mu         sync.RWMutex
}

func NewWorkspaces(svc collab.Service, actor collab.Actor, notifier Notifier) *Workspaces {
	return &Workspaces{
		svc:        svc,
		actor:      actor,
		notifier:   notifier,
		workspaces: make(map[string]*workspace.Workspace),
	}
}

func (s *Workspaces) fail(err error) error {
	s.notifier.Notify(err)
	return err
}

func (s *Workspaces) Load(ctx context.Context) error {
	list, err := s.svc.ListWorkspaces(ctx, s.actor)
	if err != nil {
		return s.fail(err)
	}

	workspaces := make(map[string]*workspace.Workspace, len(list))
	for _, w := range list {
		workspaces[w.ID] = w
	}

	s.mu.Lock()
	s.workspaces = workspaces
	s.mu.Unlock()

	return nil
}

func (s *Workspaces) Create(ctx context.Context, name string, description string) (*workspace.Workspace, error) {
	w, err := s.svc.CreateWorkspace(ctx, s.actor, name, description)
	if err != nil {
		return nil, s.fail(err)
	}

	s.put(w)
	return w, nil
}

// Join makes the workspace current and follows its updates.
func (s *Workspaces) Join(ctx context.Context, id string) (*workspace.Workspace, error) {
	w, err := s.svc.JoinWorkspace(ctx, s.actor, id)
	if err != nil {
		return nil, s.fail(err)
	}

	s.sub.Close()

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.put(w)

	s.mu.Lock()
	s.current = s.workspaces[w.ID]
	s.mu.Unlock()

	sub, err := s.svc.SubscribeWorkspace(ctx, s.actor, w.ID, s.apply)
	if err != nil {
		return nil, s.fail(err)
	}

	s.sub.Set(sub)
	return s.Current(), nil
}

func (s *Workspaces) Leave(ctx context.Context) error {
	current := s.Current()
	if current == nil {
		return nil
	}

	if _, err := s.svc.LeaveWorkspace(ctx, s.actor, current.ID); err != nil {
		return s.fail(err)
	}

	s.Close()

	s.mu.Lock()
	delete(s.workspaces, current.ID)
	s.mu.Unlock()

	return nil
}

func (s *Workspaces) UpdateSettings(ctx context.Context, settings workspace.Settings) (*workspace.Workspace, error) {
	current := s.Current()
	if current == nil {
		return nil, s.fail(workspace.ErrWorkspaceNotFound)
	}

	w, err := s.svc.UpdateSettings(ctx, s.actor, current.ID, settings, current.Revision)
	if err != nil {
		return nil, s.fail(err)
	}

	s.put(w)
	return w, nil
}

func (s *Workspaces) Delete(ctx context.Context, id string) error {
	if err := s.svc.DeleteWorkspace(ctx, s.actor, id); err != nil {
		return s.fail(err)
	}

	s.remove(id)
	return nil
}

// Close drops the current workspace and its subscription.
func (s *Workspaces) Close() {
	s.sub.Close()

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

func (s *Workspaces) Current() *workspace.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}

	return s.current.Clone()
}

// List returns the known workspaces, newest first.
func (s *Workspaces) List() []*workspace.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*workspace.Workspace, 0, len(s.workspaces))
	for _, w := range s.workspaces {
		list = append(list, w.Clone())
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].ID > list[j].ID
	})

	return list
}

// put replaces the stored workspace unless it already holds a later revision.
func (s *Workspaces) put(w *workspace.Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.workspaces[w.ID]; ok && existing.Revision > w.Revision {
		return
	}

	w = w.Clone()
	s.workspaces[w.ID] = w

	if s.current != nil && s.current.ID == w.ID {
		s.current = w
	}
}

func (s *Workspaces) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.workspaces, id)

	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
}

func (s *Workspaces) apply(ctx context.Context, t document.EventType, w *workspace.Workspace) error {
	switch t {
	case document.Delete:
		s.remove(w.ID)
	default:
		s.put(w)
	}

	return nil
}
