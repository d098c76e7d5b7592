package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/hexavel/clientshare/internal/middleware"
	"github.com/hexavel/clientshare/internal/pkg/errcode"
	appErr "github.com/hexavel/clientshare/internal/pkg/errors"
	"github.com/hexavel/clientshare/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

// handleError is the single translation point from domain errors to the
// API envelope. Messages stay generic on purpose: in particular, share
// code failures never say whether a code was wrong, expired or revoked.
func handleError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrShareCodeInvalid):
		response.Error(c, errcode.ErrShareCodeInvalid, "invalid or expired share code")
	case errors.Is(err, appErr.ErrShareCodeExhausted):
		response.Error(c, errcode.ErrShareCodeExhausted, "share code has no uses remaining")
	case errors.Is(err, appErr.ErrSelfRedeem):
		response.Error(c, errcode.ErrSelfRedeem, "cannot redeem your own share code")
	case errors.Is(err, appErr.ErrAlreadyShared):
		response.Error(c, errcode.ErrAlreadyShared, "access already granted")
	case errors.Is(err, appErr.ErrRaceLost):
		response.Error(c, errcode.ErrRaceLost, "share code was claimed by another request")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, err.Error())
	default:
		logutil.GetLogger(c.Request.Context()).Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("user_id", getUserID(c)),
			zap.Error(err),
		)
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
