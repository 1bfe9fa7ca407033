package http

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mirror520/collab"
	"github.com/mirror520/collab/chat"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/merge"
	"github.com/mirror520/collab/pubsub"
	"github.com/mirror520/collab/session"
	"github.com/mirror520/collab/workspace"
)

type Kind string

const (
	WorkspaceKind    Kind = "workspace"
	SessionKind      Kind = "session"
	MessageKind      Kind = "message"
	MergeRequestKind Kind = "merge_request"
)

// Event is one change frame of the workspace event stream.
type Event struct {
	Kind       Kind               `json:"kind"`
	Type       document.EventType `json:"type"`
	DocumentID string             `json:"documentId"`
	Payload    any                `json:"payload"`
	OccurredAt time.Time          `json:"occurredAt"`
}

func newEvent(kind Kind, t document.EventType, id string, payload any) *Event {
	return &Event{
		Kind:       kind,
		Type:       t,
		DocumentID: id,
		Payload:    payload,
		OccurredAt: time.Now(),
	}
}

const (
	streamBuffer = 64
	writeTimeout = 10 * time.Second
)

// EventStreamHandler upgrades to a websocket and streams every change of the
// workspace, its sessions, messages and merge requests. A client that falls
// behind is disconnected and expected to reload. Cross-origin upgrades are
// accepted only from hosts matching one of the origin patterns.
func EventStreamHandler(svc collab.Service, origins []string, log *zap.Logger) gin.HandlerFunc {
	log = log.With(
		zap.String("transport", "websocket"),
	)

	return func(ctx *gin.Context) {
		actor := ActorFrom(ctx)
		id := ctx.Param("id")

		if _, err := svc.GetWorkspace(ctx, actor, id); err != nil {
			abort(ctx, err)
			return
		}

		log := log.With(
			zap.String("workspace", id),
			zap.String("actor", actor.ID),
		)

		events := make(chan *Event, streamBuffer)
		overflow := make(chan struct{})
		closeOverflow := sync.OnceFunc(func() { close(overflow) })

		push := func(e *Event) {
			select {
			case events <- e:
			default:
				closeOverflow()
			}
		}

		subs := make([]pubsub.Subscription, 0, 4)
		defer func() {
			for _, sub := range subs {
				sub.Unsubscribe()
			}
		}()

		subscribe := []func() (pubsub.Subscription, error){
			func() (pubsub.Subscription, error) {
				return svc.SubscribeWorkspace(ctx, actor, id,
					func(_ context.Context, t document.EventType, w *workspace.Workspace) error {
						push(newEvent(WorkspaceKind, t, w.ID, w))
						return nil
					})
			},
			func() (pubsub.Subscription, error) {
				return svc.WatchSessions(ctx, actor, id,
					func(_ context.Context, t document.EventType, s *session.Session) error {
						push(newEvent(SessionKind, t, s.ID, s))
						return nil
					})
			},
			func() (pubsub.Subscription, error) {
				return svc.SubscribeMessages(ctx, actor, id,
					func(_ context.Context, t document.EventType, m *chat.Message) error {
						push(newEvent(MessageKind, t, m.ID, m))
						return nil
					})
			},
			func() (pubsub.Subscription, error) {
				return svc.SubscribeMergeRequests(ctx, actor, id,
					func(_ context.Context, t document.EventType, r *merge.Request) error {
						push(newEvent(MergeRequestKind, t, r.ID, r))
						return nil
					})
			},
		}

		for _, fn := range subscribe {
			sub, err := fn()
			if err != nil {
				abort(ctx, err)
				return
			}

			subs = append(subs, sub)
		}

		conn, err := websocket.Accept(ctx.Writer, ctx.Request, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			log.Error(err.Error())
			return
		}
		defer conn.Close(websocket.StatusInternalError, "")

		log.Info("stream opened")

		readCtx := conn.CloseRead(ctx.Request.Context())

		for {
			select {
			case <-readCtx.Done():
				log.Info("stream closed")
				return

			case <-overflow:
				log.Warn("stream overflow")
				conn.Close(websocket.StatusTryAgainLater, "stream overflow")
				return

			case e := <-events:
				writeCtx, cancel := context.WithTimeout(readCtx, writeTimeout)
				err := wsjson.Write(writeCtx, conn, e)
				cancel()

				if err != nil {
					log.Error(err.Error())
					return
				}

				if e.Kind == WorkspaceKind && e.Type == document.Delete {
					conn.Close(websocket.StatusNormalClosure, "workspace deleted")
					return
				}
			}
		}
	}
}
