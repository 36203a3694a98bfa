package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/relocation-backend/internal/domain/facterr"
)

// CodeInvalidRequest marks bodies that fail to decode before any service runs.
const CodeInvalidRequest = "invalid_request"

const internalMessage = "internal error"

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// StatusFor maps a coded error to its HTTP status and wire code. Uncoded
// errors are internal.
func StatusFor(err error) (int, string) {
	code := facterr.CodeOf(err)
	switch code {
	case facterr.CodeValidation:
		return http.StatusBadRequest, string(code)
	case facterr.CodeProfileNotFound, facterr.CodeFactNotFound, facterr.CodeConfirmationNotFound, facterr.CodeNotFound:
		return http.StatusNotFound, string(code)
	case facterr.CodeConflict:
		return http.StatusConflict, string(code)
	case facterr.CodeStoreUnavailable:
		return http.StatusServiceUnavailable, string(code)
	case "":
		return http.StatusInternalServerError, string(facterr.CodeInternal)
	default:
		return http.StatusInternalServerError, string(code)
	}
}

// Error writes err as an error envelope. 5xx responses record err on the gin
// context for the request log and send a fixed message.
func Error(c *gin.Context, err error) {
	status, code := StatusFor(err)
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: messageFor(status, err), Code: code}})
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
}

// BadRequest rejects an undecodable body.
func BadRequest(c *gin.Context, err error) {
	msg := "invalid request body"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(http.StatusBadRequest, ErrorEnvelope{Error: APIError{Message: msg, Code: CodeInvalidRequest}})
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func messageFor(status int, err error) string {
	if status == http.StatusInternalServerError || err == nil {
		return internalMessage
	}
	var fe *facterr.Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return err.Error()
}
