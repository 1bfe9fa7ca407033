package client

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mirror520/collab"
	"github.com/mirror520/collab/ai"
	"github.com/mirror520/collab/chat"
	"github.com/mirror520/collab/conf"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/editor"
	"github.com/mirror520/collab/session"
)

type Option func(*App)

func WithSync(cfg conf.Sync) Option {
	return func(app *App) {
		app.cfg = cfg
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(app *App) {
		app.log = log
	}
}

// App is the state of one signed-in user: a store per entity kind and at
// most one open editor.
type App struct {
	Workspaces *Workspaces
	Sessions   *Sessions
	Chat       *Chat
	Merges     *Merges

	svc      collab.Service
	actor    collab.Actor
	notifier Notifier
	cfg      conf.Sync
	log      *zap.Logger

	editor    *editor.Editor
	editorSub slot
	mu        sync.Mutex
}

func NewApp(svc collab.Service, actor collab.Actor, notifier Notifier, opts ...Option) *App {
	app := &App{
		svc:      svc,
		actor:    actor,
		notifier: notifier,
		cfg:      conf.DefaultSync(),
		log:      zap.L(),
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.notifier == nil {
		app.notifier = LogNotifier(app.log)
	}

	app.log = app.log.With(
		zap.String("client", actor.ID),
	)

	app.Workspaces = NewWorkspaces(svc, actor, app.notifier)
	app.Sessions = NewSessions(svc, actor, app.notifier)
	app.Chat = NewChat(svc, actor, app.notifier)
	app.Merges = NewMerges(svc, actor, app.notifier)

	return app
}

func (app *App) Actor() collab.Actor {
	return app.actor
}

// Enter joins the workspace, loads its sessions, messages and merge
// requests, and follows changes to all of them.
func (app *App) Enter(ctx context.Context, workspaceID string) error {
	w, err := app.Workspaces.Join(ctx, workspaceID)
	if err != nil {
		return err
	}

	if err := app.Sessions.Load(ctx, w.ID); err != nil {
		return err
	}

	if err := app.Sessions.Watch(ctx, w.ID); err != nil {
		return err
	}

	if err := app.Chat.Load(ctx, w.ID, chat.DefaultLimit); err != nil {
		return err
	}

	if err := app.Chat.Subscribe(ctx, w.ID); err != nil {
		return err
	}

	if err := app.Merges.Load(ctx, w.ID); err != nil {
		return err
	}

	if err := app.Merges.Subscribe(ctx, w.ID); err != nil {
		return err
	}

	app.log.Info("workspace entered", zap.String("workspace", w.ID))
	return nil
}

// Exit closes the editor, saving pending edits, and tears down every
// subscription.
func (app *App) Exit() {
	app.CloseEditor()

	app.Workspaces.Close()
	app.Sessions.Close()
	app.Chat.Close()
	app.Merges.Close()
}

// OpenEditor opens the session, replacing any open editor. The editor
// follows remote updates of the session until it is closed.
func (app *App) OpenEditor(ctx context.Context, sessionID string, watch bool) (*editor.Editor, error) {
	cs, err := app.svc.GetSession(ctx, app.actor, sessionID)
	if err != nil {
		app.notifier.Notify(err)
		return nil, err
	}

	save := func(ctx context.Context, code string) error {
		_, err := app.svc.UpdateCode(ctx, app.actor, cs.ID, code, document.AnyRevision)
		return err
	}

	mode := editor.ModeFor(cs, app.actor.ID, watch)

	opts := []editor.Option{
		editor.WithLogger(app.log),
		editor.OnError(app.notifier.Notify),
	}

	if mode == editor.Editable {
		opts = append(opts, editor.WithSuggester(app.suggester(cs.WorkspaceID)))
	}

	app.CloseEditor()

	e := editor.New(cs, mode, app.cfg, save, opts...)

	sub, err := app.svc.SubscribeSession(ctx, app.actor, cs.ID,
		func(ctx context.Context, t document.EventType, s *session.Session) error {
			switch t {
			case document.Update:
				e.ApplyRemote(s.Code)
			case document.Delete:
				e.Close()
			}
			return nil
		},
	)
	if err != nil {
		e.Close()
		app.notifier.Notify(err)
		return nil, err
	}

	app.editorSub.Set(sub)

	app.mu.Lock()
	app.editor = e
	app.mu.Unlock()

	return e, nil
}

func (app *App) Editor() *editor.Editor {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.editor
}

// CloseEditor saves pending edits of the open editor and closes it.
func (app *App) CloseEditor() {
	app.editorSub.Close()

	app.mu.Lock()
	e := app.editor
	app.editor = nil
	app.mu.Unlock()

	if e == nil {
		return
	}

	if e.Mode() == editor.Editable {
		e.Flush()
	}

	e.Close()
}

func (app *App) suggester(workspaceID string) editor.SuggestFunc {
	return func(ctx context.Context, req ai.Request) (string, bool) {
		text, ok, err := app.svc.Suggest(ctx, app.actor, workspaceID, req)
		if err != nil {
			app.log.Error(err.Error(), zap.String("action", "suggest"))
			return "", false
		}

		return text, ok
	}
}
