package client

import (
	"context"
	"sort"
	"sync"

	"github.com/mirror520/collab"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/merge"
)

// Merges holds the merge requests of the current workspace.
type Merges struct {
	svc      collab.Service
	actor    collab.Actor
	notifier Notifier

	requests map[string]*merge.Request
	sub      slot
	mu       sync.RWMutex
}

func NewMerges(svc collab.Service, actor collab.Actor, notifier Notifier) *Merges {
	return &Merges{
		svc:      svc,
		actor:    actor,
		notifier: notifier,
		requests: make(map[string]*merge.Request),
	}
}

func (s *Merges) fail(err error) error {
	s.notifier.Notify(err)
	return err
}

func (s *Merges) Load(ctx context.Context, workspaceID string) error {
	list, err := s.svc.ListMergeRequests(ctx, s.actor, workspaceID)
	if err != nil {
		return s.fail(err)
	}

	requests := make(map[string]*merge.Request, len(list))
	for _, r := range list {
		requests[r.ID] = r
	}

	s.mu.Lock()
	s.requests = requests
	s.mu.Unlock()

	return nil
}

func (s *Merges) Subscribe(ctx context.Context, workspaceID string) error {
	s.sub.Close()

	sub, err := s.svc.SubscribeMergeRequests(ctx, s.actor, workspaceID, s.apply)
	if err != nil {
		return s.fail(err)
	}

	s.sub.Set(sub)
	return nil
}

func (s *Merges) Request(ctx context.Context, forkedID string, originalID string, message string) (*merge.Request, error) {
	r, err := s.svc.RequestMerge(ctx, s.actor, forkedID, originalID, message)
	if err != nil {
		return nil, s.fail(err)
	}

	s.put(r)
	return r, nil
}

func (s *Merges) Accept(ctx context.Context, id string) (*merge.Request, error) {
	r, err := s.svc.AcceptMerge(ctx, s.actor, id)
	if err != nil {
		return nil, s.fail(err)
	}

	s.put(r)
	return r, nil
}

func (s *Merges) Reject(ctx context.Context, id string) (*merge.Request, error) {
	r, err := s.svc.RejectMerge(ctx, s.actor, id)
	if err != nil {
		return nil, s.fail(err)
	}

	s.put(r)
	return r, nil
}

func (s *Merges) Close() {
	s.sub.Close()

	s.mu.Lock()
	s.requests = make(map[string]*merge.Request)
	s.mu.Unlock()
}

// List returns the requests ordered by timestamp.
func (s *Merges) List() []*merge.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*merge.Request, 0, len(s.requests))
	for _, r := range s.requests {
		copied := *r
		list = append(list, &copied)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Timestamp != list[j].Timestamp {
			return list[i].Timestamp < list[j].Timestamp
		}
		return list[i].ID < list[j].ID
	})

	return list
}

// Incoming returns the pending requests addressed to the actor.
func (s *Merges) Incoming() []*merge.Request {
	incoming := make([]*merge.Request, 0)
	for _, r := range s.List() {
		if r.ToUserID == s.actor.ID && r.Status == merge.Pending {
			incoming = append(incoming, r)
		}
	}

	return incoming
}

func (s *Merges) put(r *merge.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.requests[r.ID]; ok && existing.Revision > r.Revision {
		return
	}

	s.requests[r.ID] = r
}

func (s *Merges) apply(ctx context.Context, t document.EventType, r *merge.Request) error {
	if t == document.Delete {
		s.mu.Lock()
		delete(s.requests, r.ID)
		s.mu.Unlock()
		return nil
	}

	s.put(r)
	return nil
}
