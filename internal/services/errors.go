package services

import "errors"

var (
	ErrGeneration           = errors.New("generation failed")
	ErrGenerationInProgress = errors.New("an instruction is already being processed")
	ErrInsufficientTokens   = errors.New("no tokens left")

	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrUserNotFound       = errors.New("user not found")

	ErrPackageNotFound      = errors.New("package not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrDuplicateTransaction = errors.New("transaction id was already submitted")

	ErrModelNotFound = errors.New("model not found")
	ErrModelDisabled = errors.New("model is disabled")
)

// ValidationError reports bad caller input. The HTTP layer maps it to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error {
	return &ValidationError{Msg: msg}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
