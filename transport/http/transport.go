package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/mirror520/collab"
	"github.com/mirror520/collab/chat"
	"github.com/mirror520/collab/model"
)

// DecodeRequestFunc builds the endpoint request from the HTTP request.
type DecodeRequestFunc func(ctx *gin.Context, actor collab.Actor) (any, error)

// Handler decodes the request, calls the endpoint and writes the result
// envelope with msg on success.
func Handler(endpoint endpoint.Endpoint, decode DecodeRequestFunc, msg string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		req, err := decode(ctx, ActorFrom(ctx))
		if err != nil {
			result := model.FailureResult(err, "invalid")
			ctx.AbortWithStatusJSON(http.StatusBadRequest, result)
			return
		}

		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(ctx, err)
			return
		}

		result := model.SuccessResult(msg, resp)
		ctx.JSON(http.StatusOK, result)
	}
}

func DecodeActor(ctx *gin.Context, actor collab.Actor) (any, error) {
	return actor, nil
}

func DecodeByID(ctx *gin.Context, actor collab.Actor) (any, error) {
	return collab.WorkspaceRequest{
		Actor: actor,
		ID:    ctx.Param("id"),
	}, nil
}

func DecodeCreateWorkspace(ctx *gin.Context, actor collab.Actor) (any, error) {
	var req collab.CreateWorkspaceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, err
	}

	req.Actor = actor
	return req, nil
}

func DecodeUpdateSettings(ctx *gin.Context, actor collab.Actor) (any, error) {
	var req collab.UpdateSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, err
	}

	req.Actor = actor
	req.ID = ctx.Param("id")
	return req, nil
}

func DecodeCreateSession(ctx *gin.Context, actor collab.Actor) (any, error) {
	var req collab.CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, err
	}

	req.Actor = actor
	req.WorkspaceID = ctx.Param("id")
	return req, nil
}

func DecodeUpdateCode(ctx *gin.Context, actor collab.Actor) (any, error) {
	var req collab.UpdateCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, err
	}

	req.Actor = actor
	req.ID = ctx.Param("id")
	return req, nil
}

func DecodeUpdateCursor(ctx *gin.Context, actor collab.Actor) (any, error) {
	var req collab.UpdateCursorRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, err
	}

	req.Actor = actor
	req.ID = ctx.Param("id")
	return req, nil
}

func DecodeRequestMerge(ctx *gin.Context, actor collab.Actor) (any, error) {
	var req collab.RequestMergeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, err
	}

	req.Actor = actor
	req.ForkedSessionID = ctx.Param("id")
	return req, nil
}

func DecodeSendMessage(ctx *gin.Context, actor collab.Actor) (any, error) {
	var req collab.SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, err
	}

	req.Actor = actor
	req.WorkspaceID = ctx.Param("id")
	return req, nil
}

func DecodeListMessages(ctx *gin.Context, actor collab.Actor) (any, error) {
	limit := chat.DefaultLimit

	if s := ctx.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}

		limit = n
	}

	return collab.ListMessagesRequest{
		Actor:       actor,
		WorkspaceID: ctx.Param("id"),
		Limit:       limit,
	}, nil
}

func DecodeSuggest(ctx *gin.Context, actor collab.Actor) (any, error) {
	var req collab.SuggestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, err
	}

	req.Actor = actor
	req.WorkspaceID = ctx.Param("id")
	return req, nil
}
