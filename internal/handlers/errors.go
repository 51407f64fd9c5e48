package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "github.com/n1kh11p/blokt-sub000/internal/errors"
	"github.com/n1kh11p/blokt-sub000/internal/services"
	"github.com/n1kh11p/blokt-sub000/internal/storage"
	"gorm.io/gorm"
)

var notFoundErrors = []error{
	services.ErrOrganizationNotFound,
	services.ErrUserNotFound,
	services.ErrProjectNotFound,
	services.ErrTaskNotFound,
	services.ErrSafetyAlertNotFound,
	services.ErrVideoNotFound,
}

var invalidOperationErrors = []error{
	services.ErrCannotRemoveYourself,
	services.ErrAlreadyResolved,
	services.ErrVideoNotAnalyzable,
	services.ErrVideoNotReviewable,
	services.ErrProcoreNotConnected,
}

func isAny(err error, targets []error) (error, bool) {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target, true
		}
	}
	return nil, false
}

// validationMessage strips the sentinel prefix so the client sees only the
// problem with its input.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")
}

// respondServiceError translates service errors into API responses. Anything
// unrecognised is logged, reported and answered with a bare 500.
func respondServiceError(c *gin.Context, log *slog.Logger, err error) {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytes):
		apierrors.PayloadTooLarge(c, "")
	case errors.Is(err, services.ErrValidation):
		apierrors.BadRequest(c, validationMessage(err))
	case errors.Is(err, services.ErrPermissionDenied):
		apierrors.InsufficientPermissions(c, "")
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c, err.Error())
	case errors.Is(err, services.ErrInvalidToken):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrInvalidInviteCode):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.Conflict(c, capitalize(services.ErrEmailTaken.Error()))
	case errors.Is(err, gorm.ErrDuplicatedKey):
		apierrors.Conflict(c, "")
	case errors.Is(err, services.ErrAnalyzerUnavailable), errors.Is(err, services.ErrAnalysisBusy):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrInsufficientStorage), errors.Is(err, storage.ErrInsufficientSpace):
		apierrors.InsufficientStorage(c, "")
	default:
		if target, ok := isAny(err, notFoundErrors); ok {
			apierrors.NotFound(c, capitalize(target.Error()))
			return
		}
		if target, ok := isAny(err, invalidOperationErrors); ok {
			apierrors.InvalidOperation(c, capitalize(target.Error()))
			return
		}
		apierrors.ReportInternal(c, log, err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
