package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	domainerrors "quorum-vault.backend/internal/domain/errors"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Error sends an error response
func Error(c *gin.Context, err error) {
	var appErr *domainerrors.AppError
	if !errors.As(err, &appErr) {
		appErr = fromSentinel(err)
	}

	c.JSON(appErr.Status, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}

// fromSentinel maps bare domain errors that escaped the usecase layer
// without an AppError wrapper.
func fromSentinel(err error) *domainerrors.AppError {
	switch {
	case errors.Is(err, domainerrors.ErrNotFound):
		return domainerrors.NotFound(err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyExists):
		return domainerrors.Conflict(err.Error())
	case errors.Is(err, domainerrors.ErrNotPending),
		errors.Is(err, domainerrors.ErrExpired),
		errors.Is(err, domainerrors.ErrAlreadySigned):
		return domainerrors.NewAppError(http.StatusConflict, domainerrors.CodeConflict, err.Error(), err)
	case errors.Is(err, domainerrors.ErrUnauthorized):
		return domainerrors.Forbidden(err.Error())
	case errors.Is(err, domainerrors.ErrExecutionFailed),
		errors.Is(err, domainerrors.ErrDeploymentFailed):
		return domainerrors.NewAppError(http.StatusBadGateway, domainerrors.CodeExecutionFailed, err.Error(), err)
	case errors.Is(err, domainerrors.ErrInvalidAddress),
		errors.Is(err, domainerrors.ErrThresholdInvariant),
		errors.Is(err, domainerrors.ErrInvalidInput),
		errors.Is(err, domainerrors.ErrUnsupportedChain),
		errors.Is(err, domainerrors.ErrOnChainUnsupported):
		return domainerrors.BadRequest(err.Error())
	default:
		return domainerrors.InternalError(err)
	}
}

// ErrorWithData sends an error response carrying extra payload fields
// next to the code and message, for failures that leave a usable record
// behind (a quorum execution failure keeps the proposal pending).
func ErrorWithData(c *gin.Context, err error, data gin.H) {
	var appErr *domainerrors.AppError
	if !errors.As(err, &appErr) {
		appErr = fromSentinel(err)
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(appErr.Status, body)
}

// ErrorWithError sends an error response with a specific status and message
func ErrorWithError(c *gin.Context, status int, code string, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
