package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/woopsyyy/portal-credsvc/pkg/errors"
)

// ErrorBody is the wire shape for every non-2xx response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes a success payload verbatim. Handlers own their response
// structs; no envelope is added.
func JSON(c *gin.Context, statusCode int, payload interface{}) {
	c.JSON(statusCode, payload)
}

// Error renders an error as {"error": <message>} with the status carried by
// the AppError, defaulting to 500 for unclassified errors.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorBody{Error: appErr.Message})
}
