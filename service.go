package collab

import (
	"context"
	"errors"
	"fmt"

	"github.com/mirror520/collab/ai"
	"github.com/mirror520/collab/chat"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/merge"
	"github.com/mirror520/collab/model"
	"github.com/mirror520/collab/policy"
	"github.com/mirror520/collab/pubsub"
	"github.com/mirror520/collab/session"
	"github.com/mirror520/collab/workspace"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidRequest  = fmt.Errorf("%w: invalid request", model.ErrValidation)
	ErrSessionMismatch = fmt.Errorf("%w: sessions belong to different workspaces", model.ErrValidation)
)

// Actor is the authenticated user on whose behalf an operation runs.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Service interface {
	CreateWorkspace(ctx context.Context, actor Actor, name string, description string) (*workspace.Workspace, error)
	GetWorkspace(ctx context.Context, actor Actor, id string) (*workspace.Workspace, error)
	ListWorkspaces(ctx context.Context, actor Actor) ([]*workspace.Workspace, error)
	JoinWorkspace(ctx context.Context, actor Actor, id string) (*workspace.Workspace, error)
	LeaveWorkspace(ctx context.Context, actor Actor, id string) (*workspace.Workspace, error)
	UpdateSettings(ctx context.Context, actor Actor, id string, settings workspace.Settings, rev document.Revision) (*workspace.Workspace, error)
	DeleteWorkspace(ctx context.Context, actor Actor, id string) error
	SubscribeWorkspace(ctx context.Context, actor Actor, id string, handler workspace.ChangeHandler) (pubsub.Subscription, error)

	CreateSession(ctx context.Context, actor Actor, workspaceID string, lang session.Language, title string) (*session.Session, error)
	ListSessions(ctx context.Context, actor Actor, workspaceID string) ([]*session.Session, error)
	GetSession(ctx context.Context, actor Actor, id string) (*session.Session, error)
	UpdateCode(ctx context.Context, actor Actor, id string, code string, rev document.Revision) (*session.Session, error)
	UpdateCursor(ctx context.Context, actor Actor, id string, pos session.Position) error
	UpdateSelection(ctx context.Context, actor Actor, id string, r session.Range) error
	DeleteSession(ctx context.Context, actor Actor, id string) error
	ForkSession(ctx context.Context, actor Actor, id string) (*session.Session, error)
	WatchSessions(ctx context.Context, actor Actor, workspaceID string, handler session.ChangeHandler) (pubsub.Subscription, error)
	SubscribeSession(ctx context.Context, actor Actor, id string, handler session.ChangeHandler) (pubsub.Subscription, error)

	RequestMerge(ctx context.Context, actor Actor, forkedID string, originalID string, message string) (*merge.Request, error)
	AcceptMerge(ctx context.Context, actor Actor, id string) (*merge.Request, error)
	RejectMerge(ctx context.Context, actor Actor, id string) (*merge.Request, error)
	ListMergeRequests(ctx context.Context, actor Actor, workspaceID string) ([]*merge.Request, error)
	SubscribeMergeRequests(ctx context.Context, actor Actor, workspaceID string, handler merge.ChangeHandler) (pubsub.Subscription, error)

	SendMessage(ctx context.Context, actor Actor, workspaceID string, content string) (*chat.Message, error)
	ListMessages(ctx context.Context, actor Actor, workspaceID string, limit int) ([]*chat.Message, error)
	DeleteMessage(ctx context.Context, actor Actor, id string) error
	SubscribeMessages(ctx context.Context, actor Actor, workspaceID string, handler chat.ChangeHandler) (pubsub.Subscription, error)

	Suggest(ctx context.Context, actor Actor, workspaceID string, req ai.Request) (string, bool, error)
}

type ServiceMiddleware func(Service) Service

type service struct {
	workspaces workspace.Service
	sessions   session.Service
	messages   chat.Service
	merges     merge.Service
	ai         ai.Client
	policy     policy.Policy
}

func NewService(
	workspaces workspace.Service,
	sessions session.Service,
	messages chat.Service,
	merges merge.Service,
	client ai.Client,
	policy policy.Policy,
) Service {
	svc := new(service)
	svc.workspaces = workspaces
	svc.sessions = sessions
	svc.messages = messages
	svc.merges = merges
	svc.ai = client
	svc.policy = policy
	return svc
}

func resourceOf(w *workspace.Workspace) policy.Resource {
	return policy.Resource{
		Owner:           w.OwnerID,
		Members:         w.Members,
		TextChatEnabled: w.Settings.TextChatEnabled,
	}
}

func (svc *service) authorize(ctx context.Context, action policy.Action, actor Actor, res policy.Resource) error {
	allowed, err := svc.policy.Eval(ctx, policy.Input{
		Action:   action,
		Actor:    actor.ID,
		Resource: res,
	})
	if err != nil {
		return err
	}

	if !allowed {
		return fmt.Errorf("%w: %s", ErrUnauthorized, action)
	}

	return nil
}

// workspace loads the workspace and checks action against it.
func (svc *service) workspace(ctx context.Context, action policy.Action, actor Actor, id string) (*workspace.Workspace, error) {
	w, err := svc.workspaces.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := svc.authorize(ctx, action, actor, resourceOf(w)); err != nil {
		return nil, err
	}

	return w, nil
}

// session loads the session and checks action against its workspace, with
// the session author as the resource author.
func (svc *service) session(ctx context.Context, action policy.Action, actor Actor, id string) (*session.Session, *workspace.Workspace, error) {
	s, err := svc.sessions.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	w, err := svc.workspaces.Get(ctx, s.WorkspaceID)
	if err != nil {
		return nil, nil, err
	}

	res := resourceOf(w)
	res.Author = s.UserID

	if err := svc.authorize(ctx, action, actor, res); err != nil {
		return nil, nil, err
	}

	return s, w, nil
}

func (svc *service) CreateWorkspace(ctx context.Context, actor Actor, name string, description string) (*workspace.Workspace, error) {
	if err := svc.authorize(ctx, policy.CreateWorkspace, actor, policy.Resource{}); err != nil {
		return nil, err
	}

	return svc.workspaces.Create(ctx, name, description, actor.ID, actor.Name)
}

func (svc *service) GetWorkspace(ctx context.Context, actor Actor, id string) (*workspace.Workspace, error) {
	return svc.workspace(ctx, policy.ReadWorkspace, actor, id)
}

func (svc *service) ListWorkspaces(ctx context.Context, actor Actor) ([]*workspace.Workspace, error) {
	if actor.ID == "" {
		return nil, ErrUnauthorized
	}

	return svc.workspaces.ListForUser(ctx, actor.ID)
}

func (svc *service) JoinWorkspace(ctx context.Context, actor Actor, id string) (*workspace.Workspace, error) {
	if _, err := svc.workspace(ctx, policy.JoinWorkspace, actor, id); err != nil {
		return nil, err
	}

	return svc.workspaces.Join(ctx, id, actor.ID, actor.Name)
}

func (svc *service) LeaveWorkspace(ctx context.Context, actor Actor, id string) (*workspace.Workspace, error) {
	w, err := svc.workspaces.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if w.IsOwner(actor.ID) {
		return nil, workspace.ErrOwnerCannotLeave
	}

	// a non-member may not learn anything about the workspace
	if !w.IsMember(actor.ID) {
		if err := svc.authorize(ctx, policy.ReadWorkspace, actor, resourceOf(w)); err != nil {
			return nil, err
		}
	}

	if err := svc.authorize(ctx, policy.LeaveWorkspace, actor, resourceOf(w)); err != nil {
		return nil, err
	}

	return svc.workspaces.Leave(ctx, id, actor.ID)
}

func (svc *service) UpdateSettings(ctx context.Context, actor Actor, id string, settings workspace.Settings, rev document.Revision) (*workspace.Workspace, error) {
	if _, err := svc.workspace(ctx, policy.UpdateSettings, actor, id); err != nil {
		return nil, err
	}

	return svc.workspaces.UpdateSettings(ctx, id, settings, rev)
}

// DeleteWorkspace removes the workspace together with its sessions, messages
// and merge requests.
func (svc *service) DeleteWorkspace(ctx context.Context, actor Actor, id string) error {
	if _, err := svc.workspace(ctx, policy.DeleteWorkspace, actor, id); err != nil {
		return err
	}

	if err := svc.sessions.DeleteForWorkspace(ctx, id); err != nil {
		return err
	}

	if err := svc.messages.DeleteForWorkspace(ctx, id); err != nil {
		return err
	}

	if err := svc.merges.DeleteForWorkspace(ctx, id); err != nil {
		return err
	}

	return svc.workspaces.Delete(ctx, id)
}

func (svc *service) SubscribeWorkspace(ctx context.Context, actor Actor, id string, handler workspace.ChangeHandler) (pubsub.Subscription, error) {
	if _, err := svc.workspace(ctx, policy.ReadWorkspace, actor, id); err != nil {
		return nil, err
	}

	return svc.workspaces.Subscribe(id, handler)
}

func (svc *service) CreateSession(ctx context.Context, actor Actor, workspaceID string, lang session.Language, title string) (*session.Session, error) {
	if _, err := svc.workspace(ctx, policy.CreateSession, actor, workspaceID); err != nil {
		return nil, err
	}

	return svc.sessions.Create(ctx, workspaceID, actor.ID, actor.Name, lang, title)
}

func (svc *service) ListSessions(ctx context.Context, actor Actor, workspaceID string) ([]*session.Session, error) {
	if _, err := svc.workspace(ctx, policy.ReadSession, actor, workspaceID); err != nil {
		return nil, err
	}

	return svc.sessions.ListForWorkspace(ctx, workspaceID)
}

func (svc *service) GetSession(ctx context.Context, actor Actor, id string) (*session.Session, error) {
	s, _, err := svc.session(ctx, policy.ReadSession, actor, id)
	return s, err
}

func (svc *service) UpdateCode(ctx context.Context, actor Actor, id string, code string, rev document.Revision) (*session.Session, error) {
	if _, _, err := svc.session(ctx, policy.UpdateCode, actor, id); err != nil {
		return nil, err
	}

	return svc.sessions.UpdateCode(ctx, id, code, rev)
}

func (svc *service) UpdateCursor(ctx context.Context, actor Actor, id string, pos session.Position) error {
	if _, _, err := svc.session(ctx, policy.UpdateCursor, actor, id); err != nil {
		return err
	}

	return svc.sessions.UpdateCursor(ctx, id, actor.ID, pos)
}

func (svc *service) UpdateSelection(ctx context.Context, actor Actor, id string, r session.Range) error {
	if _, _, err := svc.session(ctx, policy.UpdateCursor, actor, id); err != nil {
		return err
	}

	return svc.sessions.UpdateSelection(ctx, id, actor.ID, r)
}

func (svc *service) DeleteSession(ctx context.Context, actor Actor, id string) error {
	if _, _, err := svc.session(ctx, policy.DeleteSession, actor, id); err != nil {
		return err
	}

	return svc.sessions.Delete(ctx, id)
}

func (svc *service) ForkSession(ctx context.Context, actor Actor, id string) (*session.Session, error) {
	source, _, err := svc.session(ctx, policy.ForkSession, actor, id)
	if err != nil {
		return nil, err
	}

	return svc.sessions.Fork(ctx, source, actor.ID, actor.Name)
}

func (svc *service) WatchSessions(ctx context.Context, actor Actor, workspaceID string, handler session.ChangeHandler) (pubsub.Subscription, error) {
	if _, err := svc.workspace(ctx, policy.ReadSession, actor, workspaceID); err != nil {
		return nil, err
	}

	return svc.sessions.Watch(workspaceID, handler)
}

func (svc *service) SubscribeSession(ctx context.Context, actor Actor, id string, handler session.ChangeHandler) (pubsub.Subscription, error) {
	if _, _, err := svc.session(ctx, policy.ReadSession, actor, id); err != nil {
		return nil, err
	}

	return svc.sessions.Subscribe(id, handler)
}

func (svc *service) RequestMerge(ctx context.Context, actor Actor, forkedID string, originalID string, message string) (*merge.Request, error) {
	forked, w, err := svc.session(ctx, policy.RequestMerge, actor, forkedID)
	if err != nil {
		return nil, err
	}

	original, err := svc.sessions.Get(ctx, originalID)
	if err != nil {
		return nil, err
	}

	if original.WorkspaceID != forked.WorkspaceID {
		return nil, ErrSessionMismatch
	}

	if message == "" {
		message = merge.DefaultMessage(actor.Name, original.Title)
	}

	return svc.merges.Create(ctx, &merge.Request{
		WorkspaceID:     w.ID,
		FromUserID:      actor.ID,
		FromUserName:    actor.Name,
		ToUserID:        original.UserID,
		SessionID:       original.ID,
		ForkedSessionID: forked.ID,
		Message:         message,
	})
}

func (svc *service) mergeRequest(ctx context.Context, actor Actor, id string) (*merge.Request, error) {
	r, err := svc.merges.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	w, err := svc.workspaces.Get(ctx, r.WorkspaceID)
	if err != nil {
		return nil, err
	}

	res := resourceOf(w)
	res.Recipient = r.ToUserID

	if err := svc.authorize(ctx, policy.ResolveMerge, actor, res); err != nil {
		return nil, err
	}

	if r.Status != merge.Pending {
		return nil, merge.ErrAlreadyResolved
	}

	return r, nil
}

// AcceptMerge overwrites the original session's code with the current code
// of the fork. Edits made to the original since the fork are lost.
func (svc *service) AcceptMerge(ctx context.Context, actor Actor, id string) (*merge.Request, error) {
	r, err := svc.mergeRequest(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	forked, err := svc.sessions.Get(ctx, r.ForkedSessionID)
	if err != nil {
		return nil, err
	}

	if _, err := svc.sessions.UpdateCode(ctx, r.SessionID, forked.Code, document.AnyRevision); err != nil {
		return nil, err
	}

	return svc.merges.Resolve(ctx, id, merge.Accepted)
}

func (svc *service) RejectMerge(ctx context.Context, actor Actor, id string) (*merge.Request, error) {
	if _, err := svc.mergeRequest(ctx, actor, id); err != nil {
		return nil, err
	}

	return svc.merges.Resolve(ctx, id, merge.Rejected)
}

func (svc *service) ListMergeRequests(ctx context.Context, actor Actor, workspaceID string) ([]*merge.Request, error) {
	if _, err := svc.workspace(ctx, policy.ReadMerge, actor, workspaceID); err != nil {
		return nil, err
	}

	return svc.merges.ListForWorkspace(ctx, workspaceID)
}

func (svc *service) SubscribeMergeRequests(ctx context.Context, actor Actor, workspaceID string, handler merge.ChangeHandler) (pubsub.Subscription, error) {
	if _, err := svc.workspace(ctx, policy.ReadMerge, actor, workspaceID); err != nil {
		return nil, err
	}

	return svc.merges.Subscribe(workspaceID, handler)
}

func (svc *service) SendMessage(ctx context.Context, actor Actor, workspaceID string, content string) (*chat.Message, error) {
	if _, err := svc.workspace(ctx, policy.SendMessage, actor, workspaceID); err != nil {
		return nil, err
	}

	return svc.messages.Send(ctx, workspaceID, actor.ID, actor.Name, content)
}

func (svc *service) ListMessages(ctx context.Context, actor Actor, workspaceID string, limit int) ([]*chat.Message, error) {
	if _, err := svc.workspace(ctx, policy.ReadChat, actor, workspaceID); err != nil {
		return nil, err
	}

	return svc.messages.List(ctx, workspaceID, limit)
}

func (svc *service) DeleteMessage(ctx context.Context, actor Actor, id string) error {
	m, err := svc.messages.Get(ctx, id)
	if err != nil {
		return err
	}

	w, err := svc.workspaces.Get(ctx, m.WorkspaceID)
	if err != nil {
		return err
	}

	res := resourceOf(w)
	res.Author = m.UserID

	if err := svc.authorize(ctx, policy.DeleteChat, actor, res); err != nil {
		return err
	}

	return svc.messages.Delete(ctx, id)
}

func (svc *service) SubscribeMessages(ctx context.Context, actor Actor, workspaceID string, handler chat.ChangeHandler) (pubsub.Subscription, error) {
	if _, err := svc.workspace(ctx, policy.ReadChat, actor, workspaceID); err != nil {
		return nil, err
	}

	return svc.messages.Subscribe(workspaceID, handler)
}

func (svc *service) Suggest(ctx context.Context, actor Actor, workspaceID string, req ai.Request) (string, bool, error) {
	if _, err := svc.workspace(ctx, policy.Suggest, actor, workspaceID); err != nil {
		return "", false, err
	}

	text, ok := svc.ai.Suggest(ctx, req)
	return text, ok, nil
}
