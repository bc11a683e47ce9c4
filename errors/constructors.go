package errors

import (
	"fmt"
	"net/http"
)

// NoBackendConfigured reports that no transcription backend has credentials.
func NoBackendConfigured() *AppError {
	return New(ErrCodeNoBackendConfigured,
		"No transcription backend is configured. Add an API key for at least one backend.",
		http.StatusServiceUnavailable)
}

// NoCredentials reports a backend selected without a credential.
func NoCredentials(backend string) *AppError {
	return New(ErrCodeNoCredentials, fmt.Sprintf("No API key configured for %s.", backend), http.StatusUnauthorized).
		WithDetail("backend", backend)
}

// InvalidCredentials reports a credential rejected by the backend.
func InvalidCredentials(backend string) *AppError {
	return New(ErrCodeInvalidCredentials, fmt.Sprintf("The API key for %s was rejected.", backend), http.StatusUnauthorized).
		WithDetail("backend", backend)
}

// FileNotFound reports a missing input file.
func FileNotFound(path string) *AppError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("Audio file not found: %s", path), http.StatusNotFound).
		WithDetail("path", path)
}

// FileTooLarge reports audio that cannot be brought under a backend limit.
func FileTooLarge(sizeMB float64, backend string) *AppError {
	return New(ErrCodeFileTooLarge,
		fmt.Sprintf("Audio is %.1f MB, which exceeds the %s upload limit.", sizeMB, backend),
		http.StatusRequestEntityTooLarge).
		WithDetail("size_mb", sizeMB).
		WithDetail("backend", backend)
}

// CompressionFailed reports a failure of the audio compression toolchain.
func CompressionFailed(reason string) *AppError {
	return New(ErrCodeCompressionFailed, "Audio compression failed: "+reason, http.StatusUnprocessableEntity)
}

// NetworkError wraps a transport failure.
func NetworkError(cause error) *AppError {
	return New(ErrCodeNetwork, "Could not reach the transcription service.", http.StatusBadGateway).
		WithCause(cause)
}

// BackendError reports a non-success response from a backend.
func BackendError(status int, message string) *AppError {
	return New(ErrCodeBackend, fmt.Sprintf("Backend returned HTTP %d: %s", status, message), http.StatusBadGateway).
		WithDetail("status", status)
}

// TranscriptionFailed reports a failed job or an unusable backend reply.
func TranscriptionFailed(reason string) *AppError {
	return New(ErrCodeTranscriptionFailed, "Transcription failed: "+reason, http.StatusInternalServerError)
}

// Timeout creates a new AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, "The operation took too long. Please try again.", http.StatusGatewayTimeout).
		WithDetail("operation", operation)
}

// ServiceUnavailable creates a new AppError for a service that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable,
		fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		http.StatusServiceUnavailable).
		WithDetail("service", service)
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	err := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource), http.StatusNotFound).
		WithDetail("resource", resource)
	if id != "" {
		err.WithDetail("id", id)
	}
	return err
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.", http.StatusInternalServerError).
		WithCause(cause)
}

// DatabaseError creates a new AppError for a database error.
func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "A database error occurred. Please try again.", http.StatusInternalServerError).
		WithCause(cause)
}
