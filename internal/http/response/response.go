package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
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

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondServiceError writes err with the status its aggregate code maps to.
func RespondServiceError(c *gin.Context, err error) {
	ae := FromError(err)
	RespondError(c, ae.Status, ae.Code, ae.Err)
}

// FromError maps service errors onto HTTP errors. The sentinel codes let a
// handler refine the generic code, e.g. already_assigned for a duplicate.
func FromError(err error, sentinels ...Sentinel) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	for _, s := range sentinels {
		if errors.Is(err, s.Err) {
			return apierr.New(statusFor(domainagg.CodeOf(err)), s.Code, err)
		}
	}
	code := domainagg.CodeOf(err)
	name := string(code)
	if name == "" {
		name = string(domainagg.CodeInternal)
	}
	return apierr.New(statusFor(code), name, err)
}

type Sentinel struct {
	Err  error
	Code string
}

func statusFor(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodePermission:
		return http.StatusForbidden
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeConflict:
		return http.StatusConflict
	case domainagg.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case domainagg.CodeDependency:
		return http.StatusBadGateway
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
