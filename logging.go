package collab

import (
	"context"

	"go.uber.org/zap"

	"github.com/mirror520/collab/ai"
	"github.com/mirror520/collab/chat"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/merge"
	"github.com/mirror520/collab/pubsub"
	"github.com/mirror520/collab/session"
	"github.com/mirror520/collab/workspace"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	return func(next Service) Service {
		return &loggingMiddleware{
			log.With(
				zap.String("service", "collab"),
				zap.String("middleware", "logging"),
			),
			next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) with(action string, actor Actor, fields ...zap.Field) *zap.Logger {
	fields = append([]zap.Field{
		zap.String("action", action),
		zap.String("actor", actor.ID),
	}, fields...)

	return mw.log.With(fields...)
}

func (mw *loggingMiddleware) CreateWorkspace(ctx context.Context, actor Actor, name string, description string) (*workspace.Workspace, error) {
	log := mw.with("create_workspace", actor,
		zap.String("name", name),
	)

	w, err := mw.next.CreateWorkspace(ctx, actor, name, description)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("workspace created", zap.String("workspace_id", w.ID))
	return w, nil
}

func (mw *loggingMiddleware) GetWorkspace(ctx context.Context, actor Actor, id string) (*workspace.Workspace, error) {
	log := mw.with("get_workspace", actor,
		zap.String("workspace_id", id),
	)

	w, err := mw.next.GetWorkspace(ctx, actor, id)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("done")
	return w, nil
}

func (mw *loggingMiddleware) ListWorkspaces(ctx context.Context, actor Actor) ([]*workspace.Workspace, error) {
	log := mw.with("list_workspaces", actor)

	workspaces, err := mw.next.ListWorkspaces(ctx, actor)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("done", zap.Int("count", len(workspaces)))
	return workspaces, nil
}

func (mw *loggingMiddleware) JoinWorkspace(ctx context.Context, actor Actor, id string) (*workspace.Workspace, error) {
	log := mw.with("join_workspace", actor,
		zap.String("workspace_id", id),
	)

	w, err := mw.next.JoinWorkspace(ctx, actor, id)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("workspace joined", zap.Int("members", len(w.Members)))
	return w, nil
}

func (mw *loggingMiddleware) LeaveWorkspace(ctx context.Context, actor Actor, id string) (*workspace.Workspace, error) {
	log := mw.with("leave_workspace", actor,
		zap.String("workspace_id", id),
	)

	w, err := mw.next.LeaveWorkspace(ctx, actor, id)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("workspace left", zap.Int("members", len(w.Members)))
	return w, nil
}

func (mw *loggingMiddleware) UpdateSettings(ctx context.Context, actor Actor, id string, settings workspace.Settings, rev document.Revision) (*workspace.Workspace, error) {
	log := mw.with("update_settings", actor,
		zap.String("workspace_id", id),
		zap.Uint64("revision", uint64(rev)),
	)

	w, err := mw.next.UpdateSettings(ctx, actor, id, settings, rev)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("settings updated", zap.Uint64("new_revision", uint64(w.Revision)))
	return w, nil
}

func (mw *loggingMiddleware) DeleteWorkspace(ctx context.Context, actor Actor, id string) error {
	log := mw.with("delete_workspace", actor,
		zap.String("workspace_id", id),
	)

	err := mw.next.DeleteWorkspace(ctx, actor, id)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("workspace deleted")
	return nil
}

func (mw *loggingMiddleware) SubscribeWorkspace(ctx context.Context, actor Actor, id string, handler workspace.ChangeHandler) (pubsub.Subscription, error) {
	log := mw.with("subscribe_workspace", actor,
		zap.String("workspace_id", id),
	)

	sub, err := mw.next.SubscribeWorkspace(ctx, actor, id, handler)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("subscribed", zap.String("topic", sub.Topic()))
	return sub, nil
}

func (mw *loggingMiddleware) CreateSession(ctx context.Context, actor Actor, workspaceID string, lang session.Language, title string) (*session.Session, error) {
	log := mw.with("create_session", actor,
		zap.String("workspace_id", workspaceID),
		zap.String("language", string(lang)),
	)

	s, err := mw.next.CreateSession(ctx, actor, workspaceID, lang, title)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("session created", zap.String("session_id", s.ID))
	return s, nil
}

func (mw *loggingMiddleware) ListSessions(ctx context.Context, actor Actor, workspaceID string) ([]*session.Session, error) {
	log := mw.with("list_sessions", actor,
		zap.String("workspace_id", workspaceID),
	)

	sessions, err := mw.next.ListSessions(ctx, actor, workspaceID)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("done", zap.Int("count", len(sessions)))
	return sessions, nil
}

func (mw *loggingMiddleware) GetSession(ctx context.Context, actor Actor, id string) (*session.Session, error) {
	log := mw.with("get_session", actor,
		zap.String("session_id", id),
	)

	s, err := mw.next.GetSession(ctx, actor, id)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("done")
	return s, nil
}

func (mw *loggingMiddleware) UpdateCode(ctx context.Context, actor Actor, id string, code string, rev document.Revision) (*session.Session, error) {
	log := mw.with("update_code", actor,
		zap.String("session_id", id),
		zap.Int("length", len(code)),
	)

	s, err := mw.next.UpdateCode(ctx, actor, id, code, rev)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("code saved", zap.Uint64("revision", uint64(s.Revision)))
	return s, nil
}

func (mw *loggingMiddleware) UpdateCursor(ctx context.Context, actor Actor, id string, pos session.Position) error {
	err := mw.next.UpdateCursor(ctx, actor, id, pos)
	if err != nil {
		mw.with("update_cursor", actor, zap.String("session_id", id)).Error(err.Error())
		return err
	}

	return nil
}

func (mw *loggingMiddleware) UpdateSelection(ctx context.Context, actor Actor, id string, r session.Range) error {
	err := mw.next.UpdateSelection(ctx, actor, id, r)
	if err != nil {
		mw.with("update_selection", actor, zap.String("session_id", id)).Error(err.Error())
		return err
	}

	return nil
}

func (mw *loggingMiddleware) DeleteSession(ctx context.Context, actor Actor, id string) error {
	log := mw.with("delete_session", actor,
		zap.String("session_id", id),
	)

	err := mw.next.DeleteSession(ctx, actor, id)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("session deleted")
	return nil
}

func (mw *loggingMiddleware) ForkSession(ctx context.Context, actor Actor, id string) (*session.Session, error) {
	log := mw.with("fork_session", actor,
		zap.String("session_id", id),
	)

	s, err := mw.next.ForkSession(ctx, actor, id)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("session forked", zap.String("fork_id", s.ID))
	return s, nil
}

func (mw *loggingMiddleware) WatchSessions(ctx context.Context, actor Actor, workspaceID string, handler session.ChangeHandler) (pubsub.Subscription, error) {
	log := mw.with("watch_sessions", actor,
		zap.String("workspace_id", workspaceID),
	)

	sub, err := mw.next.WatchSessions(ctx, actor, workspaceID, handler)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("subscribed", zap.String("topic", sub.Topic()))
	return sub, nil
}

func (mw *loggingMiddleware) SubscribeSession(ctx context.Context, actor Actor, id string, handler session.ChangeHandler) (pubsub.Subscription, error) {
	log := mw.with("subscribe_session", actor,
		zap.String("session_id", id),
	)

	sub, err := mw.next.SubscribeSession(ctx, actor, id, handler)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("subscribed", zap.String("topic", sub.Topic()))
	return sub, nil
}

func (mw *loggingMiddleware) RequestMerge(ctx context.Context, actor Actor, forkedID string, originalID string, message string) (*merge.Request, error) {
	log := mw.with("request_merge", actor,
		zap.String("forked_session_id", forkedID),
		zap.String("session_id", originalID),
	)

	r, err := mw.next.RequestMerge(ctx, actor, forkedID, originalID, message)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("merge requested", zap.String("request_id", r.ID))
	return r, nil
}

func (mw *loggingMiddleware) AcceptMerge(ctx context.Context, actor Actor, id string) (*merge.Request, error) {
	log := mw.with("accept_merge", actor,
		zap.String("request_id", id),
	)

	r, err := mw.next.AcceptMerge(ctx, actor, id)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("merge accepted", zap.String("session_id", r.SessionID))
	return r, nil
}

func (mw *loggingMiddleware) RejectMerge(ctx context.Context, actor Actor, id string) (*merge.Request, error) {
	log := mw.with("reject_merge", actor,
		zap.String("request_id", id),
	)

	r, err := mw.next.RejectMerge(ctx, actor, id)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("merge rejected")
	return r, nil
}

func (mw *loggingMiddleware) ListMergeRequests(ctx context.Context, actor Actor, workspaceID string) ([]*merge.Request, error) {
	log := mw.with("list_merge_requests", actor,
		zap.String("workspace_id", workspaceID),
	)

	requests, err := mw.next.ListMergeRequests(ctx, actor, workspaceID)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("done", zap.Int("count", len(requests)))
	return requests, nil
}

func (mw *loggingMiddleware) SubscribeMergeRequests(ctx context.Context, actor Actor, workspaceID string, handler merge.ChangeHandler) (pubsub.Subscription, error) {
	log := mw.with("subscribe_merge_requests", actor,
		zap.String("workspace_id", workspaceID),
	)

	sub, err := mw.next.SubscribeMergeRequests(ctx, actor, workspaceID, handler)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("subscribed", zap.String("topic", sub.Topic()))
	return sub, nil
}

func (mw *loggingMiddleware) SendMessage(ctx context.Context, actor Actor, workspaceID string, content string) (*chat.Message, error) {
	log := mw.with("send_message", actor,
		zap.String("workspace_id", workspaceID),
	)

	m, err := mw.next.SendMessage(ctx, actor, workspaceID, content)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("message sent", zap.String("message_id", m.ID))
	return m, nil
}

func (mw *loggingMiddleware) ListMessages(ctx context.Context, actor Actor, workspaceID string, limit int) ([]*chat.Message, error) {
	log := mw.with("list_messages", actor,
		zap.String("workspace_id", workspaceID),
		zap.Int("limit", limit),
	)

	msgs, err := mw.next.ListMessages(ctx, actor, workspaceID, limit)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("done", zap.Int("count", len(msgs)))
	return msgs, nil
}

func (mw *loggingMiddleware) DeleteMessage(ctx context.Context, actor Actor, id string) error {
	log := mw.with("delete_message", actor,
		zap.String("message_id", id),
	)

	err := mw.next.DeleteMessage(ctx, actor, id)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("message deleted")
	return nil
}

func (mw *loggingMiddleware) SubscribeMessages(ctx context.Context, actor Actor, workspaceID string, handler chat.ChangeHandler) (pubsub.Subscription, error) {
	log := mw.with("subscribe_messages", actor,
		zap.String("workspace_id", workspaceID),
	)

	sub, err := mw.next.SubscribeMessages(ctx, actor, workspaceID, handler)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("subscribed", zap.String("topic", sub.Topic()))
	return sub, nil
}

func (mw *loggingMiddleware) Suggest(ctx context.Context, actor Actor, workspaceID string, req ai.Request) (string, bool, error) {
	log := mw.with("suggest", actor,
		zap.String("workspace_id", workspaceID),
		zap.String("intent", req.Intent.String()),
	)

	text, ok, err := mw.next.Suggest(ctx, actor, workspaceID, req)
	if err != nil {
		log.Error(err.Error())
		return "", false, err
	}

	log.Debug("done", zap.Bool("suggested", ok))
	return text, ok, nil
}
