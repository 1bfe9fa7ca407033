package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mirror520/collab"
)

func SetRouter(r *gin.Engine, svc collab.Service, auth gin.HandlerFunc, origins []string, log *zap.Logger) {
	apiV1 := r.Group("/v1", auth)

	workspaces := apiV1.Group("/workspaces")
	{
		workspaces.POST("", Handler(collab.CreateWorkspaceEndpoint(svc), DecodeCreateWorkspace, "workspace created"))
		workspaces.GET("", Handler(collab.ListWorkspacesEndpoint(svc), DecodeActor, "workspaces listed"))
		workspaces.GET("/:id", Handler(collab.GetWorkspaceEndpoint(svc), DecodeByID, "workspace found"))
		workspaces.DELETE("/:id", Handler(collab.DeleteWorkspaceEndpoint(svc), DecodeByID, "workspace deleted"))
		workspaces.POST("/:id/join", Handler(collab.JoinWorkspaceEndpoint(svc), DecodeByID, "workspace joined"))
		workspaces.POST("/:id/leave", Handler(collab.LeaveWorkspaceEndpoint(svc), DecodeByID, "workspace left"))
		workspaces.PUT("/:id/settings", Handler(collab.UpdateSettingsEndpoint(svc), DecodeUpdateSettings, "settings updated"))

		workspaces.GET("/:id/sessions", Handler(collab.ListSessionsEndpoint(svc), DecodeByID, "sessions listed"))
		workspaces.POST("/:id/sessions", Handler(collab.CreateSessionEndpoint(svc), DecodeCreateSession, "session created"))
		workspaces.GET("/:id/messages", Handler(collab.ListMessagesEndpoint(svc), DecodeListMessages, "messages listed"))
		workspaces.POST("/:id/messages", Handler(collab.SendMessageEndpoint(svc), DecodeSendMessage, "message sent"))
		workspaces.GET("/:id/merge-requests", Handler(collab.ListMergeRequestsEndpoint(svc), DecodeByID, "merge requests listed"))
		workspaces.POST("/:id/suggestions", Handler(collab.SuggestEndpoint(svc), DecodeSuggest, "suggestion generated"))

		workspaces.GET("/:id/events", EventStreamHandler(svc, origins, log))
	}

	sessions := apiV1.Group("/sessions")
	{
		sessions.GET("/:id", Handler(collab.GetSessionEndpoint(svc), DecodeByID, "session found"))
		sessions.DELETE("/:id", Handler(collab.DeleteSessionEndpoint(svc), DecodeByID, "session deleted"))
		sessions.PUT("/:id/code", Handler(collab.UpdateCodeEndpoint(svc), DecodeUpdateCode, "code saved"))
		sessions.PUT("/:id/cursor", Handler(collab.UpdateCursorEndpoint(svc), DecodeUpdateCursor, "cursor updated"))
		sessions.POST("/:id/fork", Handler(collab.ForkSessionEndpoint(svc), DecodeByID, "session forked"))
		sessions.POST("/:id/merge-requests", Handler(collab.RequestMergeEndpoint(svc), DecodeRequestMerge, "merge requested"))
	}

	merges := apiV1.Group("/merge-requests")
	{
		merges.POST("/:id/accept", Handler(collab.AcceptMergeEndpoint(svc), DecodeByID, "merge accepted"))
		merges.POST("/:id/reject", Handler(collab.RejectMergeEndpoint(svc), DecodeByID, "merge rejected"))
	}

	apiV1.DELETE("/messages/:id", Handler(collab.DeleteMessageEndpoint(svc), DecodeByID, "message deleted"))
}
