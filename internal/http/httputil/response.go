package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itsib/hyper-dex-swap-node/internal/common"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, err string) {
	c.JSON(status, Response{
		Success: false,
		Error:   err,
	})
}

// HTTPError writes err with its status when it is a *common.HttpError and as
// an internal error otherwise.
func HTTPError(c *gin.Context, err error) {
	var httpErr *common.HttpError
	if !errors.As(err, &httpErr) {
		httpErr = common.HTTPErrorInternalError("")
	}
	c.AbortWithStatusJSON(httpErr.StatusCode, Response{
		Success: false,
		Error:   httpErr.Message,
		Code:    httpErr.Code,
	})
}

func BadRequest(c *gin.Context, err string) {
	HTTPError(c, common.HTTPErrorBadRequest(err))
}

func InternalError(c *gin.Context, err string) {
	HTTPError(c, common.HTTPErrorInternalError(err))
}

func NotFound(c *gin.Context, err string) {
	HTTPError(c, common.HTTPErrorNotFound(err))
}

func TooManyRequests(c *gin.Context, err string) {
	HTTPError(c, common.HTTPErrorTooManyRequests(err))
}
