package pipeline

// Error is a structured pipeline failure. Timeouts carry their own code so
// callers can tell "the host said no" from "the host never answered".
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e Error) Unwrap() error {
	return e.Cause
}

const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeHost         = "HOST_ERROR"
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// CodeOf extracts the pipeline error code, or empty for foreign errors.
func CodeOf(err error) string {
	if perr, ok := err.(Error); ok {
		return perr.Code
	}
	return ""
}
