package blottodto

const (
	CodeMalformedFrame    = "MALFORMED_FRAME"
	CodeMalformedMove     = "MALFORMED_MOVE"
	CodeMalformedSettings = "MALFORMED_SETTINGS"
	CodeUnknownAction     = "UNKNOWN_ACTION"
	CodeRateLimited       = "RATE_LIMITED"
)

// DecodeError reports a frame that could not be turned into an action.
type DecodeError struct {
	Code    string
	Message string
}

func (e DecodeError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "blotto decode error"
}
