package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"oneclick/internal/build"
	"oneclick/internal/services"
)

// maxBodyBytes leaves room for a base64 payment screenshot.
const maxBodyBytes = 4 << 20

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// fail maps a service error to its status. Unknown errors are logged and
// reported without detail.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case services.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInsufficientTokens):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrPackageNotFound),
		errors.Is(err, services.ErrTransactionNotFound),
		errors.Is(err, services.ErrModelNotFound),
		errors.Is(err, build.ErrNotReady):
		return http.StatusNotFound
	case errors.Is(err, services.ErrGenerationInProgress),
		errors.Is(err, build.ErrBuildInProgress),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrDuplicateTransaction):
		return http.StatusConflict
	case errors.Is(err, build.ErrConfiguration), errors.Is(err, services.ErrModelDisabled):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrGeneration), errors.Is(err, build.ErrDownload):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrWorkspacesClosed), errors.Is(err, build.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into dst and validates its struct tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decodeBody(w, r, dst) {
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, describe(err))
		return false
	}
	return true
}

// decodeBody reads a JSON body into dst. Validation is left to the service.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body is too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s is invalid (%s)", lowerFirst(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
