package services

import "errors"

// Sentinel errors returned by the services. Handlers translate them into HTTP
// responses with errors.Is; anything else is an internal error.
var (
	// ErrValidation wraps every input problem; the wrapped message is safe to
	// show to the client.
	ErrValidation = errors.New("validation failed")

	ErrPermissionDenied     = errors.New("permission denied")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrProjectNotFound      = errors.New("project not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrSafetyAlertNotFound  = errors.New("safety alert not found")
	ErrVideoNotFound        = errors.New("video not found")

	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidInviteCode    = errors.New("invalid invite code")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrCannotRemoveYourself = errors.New("cannot remove yourself from the organization")
	ErrAlreadyResolved      = errors.New("safety alert is already resolved")

	ErrAnalyzerUnavailable = errors.New("AI analysis is not configured")
	ErrAnalysisBusy        = errors.New("analysis queue is full, try again later")
	ErrVideoNotAnalyzable  = errors.New("video cannot be analyzed in its current state")
	ErrVideoNotReviewable  = errors.New("video has no pending suggestions to review")
	ErrInsufficientStorage = errors.New("not enough storage space for the upload")

	ErrProcoreNotConnected = errors.New("procore is not connected")
)
