package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeInvalidJSON      = 1001
	ErrCodeRequestTooLarge  = 1002
	ErrCodeInvalidQuery     = 1003
	ErrCodeInvalidRecordID  = 1004
	ErrCodeMissingRequired  = 1009
	ErrCodeInvalidMultipart = 1010

	// Domain state (2xxx)
	ErrCodeCompanyNotFound = 2001
	ErrCodeRecordNotFound  = 2002

	// Auth (3xxx)
	ErrCodeUnauthorized = 3001

	// Internal/system (4xxx)
	ErrCodeInternal             = 4001
	ErrCodeConfigurationMissing = 4002
	ErrCodeJournalFailure       = 4003

	// Upstream (5xxx)
	ErrCodeUpstreamUnavailable = 5001
	ErrCodeUploadFailed        = 5002
	ErrCodeAttachFailed        = 5003
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 404:
		return ErrCodeRecordNotFound
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
