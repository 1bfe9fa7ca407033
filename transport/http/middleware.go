package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mirror520/collab"
	"github.com/mirror520/collab/document"
	"github.com/mirror520/collab/merge"
	"github.com/mirror520/collab/model"
	"github.com/mirror520/collab/workspace"
)

const actorKey = "actor"

// Authenticator rejects requests without a valid bearer token and stores the
// actor it names on the context.
func Authenticator(parser *TokenParser) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var claims Claims
		if err := parser.ParseToken(ctx, &claims); err != nil {
			result := model.FailureResult(err, "unauthenticated")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, result)
			return
		}

		ctx.Set(actorKey, claims.Actor())
		ctx.Next()
	}
}

func ActorFrom(ctx *gin.Context) collab.Actor {
	actor, _ := ctx.Get(actorKey)
	a, _ := actor.(collab.Actor)
	return a
}

// Status maps an error to its HTTP status and failure code.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, document.ErrDocumentNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, collab.ErrUnauthorized),
		errors.Is(err, workspace.ErrOwnerCannotLeave):
		return http.StatusForbidden, "forbidden"

	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "invalid"

	case errors.Is(err, document.ErrRevisionConflict),
		errors.Is(err, document.ErrDocumentExists),
		errors.Is(err, merge.ErrAlreadyResolved):
		return http.StatusConflict, "conflict"

	case errors.Is(err, document.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "unavailable"

	default:
		return http.StatusInternalServerError, "internal"
	}
}

func abort(ctx *gin.Context, err error) {
	status, code := Status(err)
	result := model.FailureResult(err, code)
	ctx.AbortWithStatusJSON(status, result)
}
