package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mannyc2/watchify-app-sub000/internal/platform/syncerr"
)

type APIError struct {
	Message string              `json:"message"`
	Code    string              `json:"code,omitempty"`
	Detail  *syncerr.UserMessage `json:"detail,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondSyncError maps the sync error taxonomy to a status code and attaches
// the three-tier user-facing message for inline UI guidance.
func RespondSyncError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	detail := syncerr.MessageFor(err)
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
			Detail:  &detail,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}
