package collab

import (
	"context"

	"github.com/go-kit/kit/endpoint"

	"github.com/mirror520/collab/ai"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/session"
	"github.com/mirror520/collab/workspace"
)

type CreateWorkspaceRequest struct {
	Actor       Actor  `json:"-"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func CreateWorkspaceEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(CreateWorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.CreateWorkspace(ctx, req.Actor, req.Name, req.Description)
	}
}

// WorkspaceRequest addresses a workspace, or a document inside one, by id.
type WorkspaceRequest struct {
	Actor Actor
	ID    string
}

func GetWorkspaceEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(WorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.GetWorkspace(ctx, req.Actor, req.ID)
	}
}

func ListWorkspacesEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		actor, ok := request.(Actor)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.ListWorkspaces(ctx, actor)
	}
}

func JoinWorkspaceEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(WorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.JoinWorkspace(ctx, req.Actor, req.ID)
	}
}

func LeaveWorkspaceEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(WorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.LeaveWorkspace(ctx, req.Actor, req.ID)
	}
}

type UpdateSettingsRequest struct {
	Actor    Actor              `json:"-"`
	ID       string             `json:"-"`
	Settings workspace.Settings `json:"settings"`
	Revision document.Revision  `json:"revision"`
}

func UpdateSettingsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(UpdateSettingsRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.UpdateSettings(ctx, req.Actor, req.ID, req.Settings, req.Revision)
	}
}

func DeleteWorkspaceEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(WorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return nil, svc.DeleteWorkspace(ctx, req.Actor, req.ID)
	}
}

type CreateSessionRequest struct {
	Actor       Actor            `json:"-"`
	WorkspaceID string           `json:"-"`
	Language    session.Language `json:"language"`
	Title       string           `json:"title"`
}

func CreateSessionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(CreateSessionRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.CreateSession(ctx, req.Actor, req.WorkspaceID, req.Language, req.Title)
	}
}

func ListSessionsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(WorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.ListSessions(ctx, req.Actor, req.ID)
	}
}

func GetSessionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(WorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.GetSession(ctx, req.Actor, req.ID)
	}
}

type UpdateCodeRequest struct {
	Actor    Actor             `json:"-"`
	ID       string            `json:"-"`
	Code     string            `json:"code"`
	Revision document.Revision `json:"revision"`
}

func UpdateCodeEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(UpdateCodeRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.UpdateCode(ctx, req.Actor, req.ID, req.Code, req.Revision)
	}
}

type UpdateCursorRequest struct {
	Actor     Actor             `json:"-"`
	ID        string            `json:"-"`
	Position  *session.Position `json:"position"`
	Selection *session.Range    `json:"selection"`
}

func UpdateCursorEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(UpdateCursorRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		if req.Position != nil {
			if err := svc.UpdateCursor(ctx, req.Actor, req.ID, *req.Position); err != nil {
				return nil, err
			}
		}

		if req.Selection != nil {
			if err := svc.UpdateSelection(ctx, req.Actor, req.ID, *req.Selection); err != nil {
				return nil, err
			}
		}

		return nil, nil
	}
}

func DeleteSessionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(WorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return nil, svc.DeleteSession(ctx, req.Actor, req.ID)
	}
}

func ForkSessionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(WorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.ForkSession(ctx, req.Actor, req.ID)
	}
}

type RequestMergeRequest struct {
	Actor           Actor  `json:"-"`
	ForkedSessionID string `json:"-"`
	SessionID       string `json:"sessionId"`
	Message         string `json:"message"`
}

func RequestMergeEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(RequestMergeRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.RequestMerge(ctx, req.Actor, req.ForkedSessionID, req.SessionID, req.Message)
	}
}

func AcceptMergeEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(WorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.AcceptMerge(ctx, req.Actor, req.ID)
	}
}

func RejectMergeEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(WorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.RejectMerge(ctx, req.Actor, req.ID)
	}
}

func ListMergeRequestsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(WorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.ListMergeRequests(ctx, req.Actor, req.ID)
	}
}

type SendMessageRequest struct {
	Actor       Actor  `json:"-"`
	WorkspaceID string `json:"-"`
	Content     string `json:"content"`
}

func SendMessageEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(SendMessageRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.SendMessage(ctx, req.Actor, req.WorkspaceID, req.Content)
	}
}

type ListMessagesRequest struct {
	Actor       Actor
	WorkspaceID string
	Limit       int
}

func ListMessagesEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(ListMessagesRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return svc.ListMessages(ctx, req.Actor, req.WorkspaceID, req.Limit)
	}
}

func DeleteMessageEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(WorkspaceRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		return nil, svc.DeleteMessage(ctx, req.Actor, req.ID)
	}
}

type SuggestRequest struct {
	Actor        Actor  `json:"-"`
	WorkspaceID  string `json:"-"`
	Intent       string `json:"intent"`
	Code         string `json:"code"`
	Language     string `json:"language"`
	Line         int    `json:"line"`
	Context      string `json:"context"`
	ErrorMessage string `json:"errorMessage"`
}

type SuggestResponse struct {
	Suggestion string `json:"suggestion"`
	OK         bool   `json:"ok"`
}

func SuggestEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (response any, err error) {
		req, ok := request.(SuggestRequest)
		if !ok {
			return nil, ErrInvalidRequest
		}

		intent, err := ai.ParseIntent(req.Intent)
		if err != nil {
			return nil, err
		}

		text, ok, err := svc.Suggest(ctx, req.Actor, req.WorkspaceID, ai.Request{
			Intent:       intent,
			Code:         req.Code,
			Language:     req.Language,
			Line:         req.Line,
			Context:      req.Context,
			ErrorMessage: req.ErrorMessage,
		})
		if err != nil {
			return nil, err
		}

		return &SuggestResponse{text, ok}, nil
	}
}
