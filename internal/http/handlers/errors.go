// Error codes used in the ErrorResponse envelope, and the mapping from
// service errors to HTTP statuses. Clients branch on the code, never on the
// message.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/condohub/condo-backend/internal/dispatch"
	"github.com/condohub/condo-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeIntakeFailed = "intake_failed"
	ErrCodeListFailed   = "list_failed"
	ErrCodeLookupFailed = "lookup_failed"
)

// isInputError reports whether err rejects the message itself, so resending
// the same input can never succeed.
func isInputError(err error) bool {
	return errors.Is(err, services.ErrEmptyText) ||
		errors.Is(err, services.ErrTooLong) ||
		errors.Is(err, services.ErrInvalidSender) ||
		errors.Is(err, services.ErrInvalidChannel)
}

// failService translates a service-layer error into the error envelope.
// maxRunes is only used to word the "too long" message.
func failService(c *gin.Context, err error, maxRunes int) {
	switch {
	case errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("text too long: max %d runes", maxRunes))
	case isInputError(err):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case isNotFound(err):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, dispatch.ErrPersistence):
		fail(c, http.StatusInternalServerError, ErrCodeIntakeFailed, "message could not be stored")
	case errors.Is(err, services.ErrLookup):
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, "knowledge lookup failed")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// isNotFound reports whether err means a building, resident or conversation
// does not exist for the caller.
func isNotFound(err error) bool {
	return errors.Is(err, services.ErrBuildingNotFound) ||
		errors.Is(err, services.ErrResidentNotFound) ||
		errors.Is(err, services.ErrConversationNotFound)
}
