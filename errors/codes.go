package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Transcription failure taxonomy. Every fatal pipeline failure maps to
// exactly one of these codes.
const (
	// ErrCodeNoBackendConfigured means no transcription backend has credentials.
	ErrCodeNoBackendConfigured ErrorCode = "NO_BACKEND_CONFIGURED"
	// ErrCodeNoCredentials means the chosen backend has no credential.
	ErrCodeNoCredentials ErrorCode = "NO_CREDENTIALS"
	// ErrCodeInvalidCredentials means the backend rejected the credential.
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	// ErrCodeFileNotFound means the input audio path does not exist.
	ErrCodeFileNotFound ErrorCode = "FILE_NOT_FOUND"
	// ErrCodeFileTooLarge means the audio exceeds the backend limit even after compression.
	ErrCodeFileTooLarge ErrorCode = "FILE_TOO_LARGE"
	// ErrCodeCompressionFailed means the compression toolchain failed.
	ErrCodeCompressionFailed ErrorCode = "COMPRESSION_FAILED"
	// ErrCodeNetwork means the backend could not be reached.
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"
	// ErrCodeBackend means the backend answered with a non-success status.
	ErrCodeBackend ErrorCode = "BACKEND_ERROR"
	// ErrCodeTranscriptionFailed means the backend reported a job failure or an unusable reply.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeTimeout means an operation exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// General service codes.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError      ErrorCode = "DATABASE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeNetwork:            true,
	ErrCodeTimeout:            true,
	ErrCodeServiceUnavailable: true,
	ErrCodeRateLimited:        true,
	ErrCodeDatabaseError:      true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
