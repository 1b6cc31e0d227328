package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/proximity-backend-go/internal/apperr"
	"github.com/jengzang/proximity-backend-go/pkg/response"
)

// serverErrorMessage is the only text clients see for store failures
const serverErrorMessage = "Server error"

// respondError maps an application error to its HTTP response.
// Store and unknown errors are logged with detail and answered generically.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	switch {
	case apperr.IsValidation(err):
		response.BadRequest(c, apperr.Message(err))
	case apperr.IsNotFound(err):
		response.NotFound(c, apperr.Message(err))
	default:
		_ = c.Error(err)
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "store", apperr.IsStore(err), "err", err)
		response.InternalError(c, serverErrorMessage)
	}
}
