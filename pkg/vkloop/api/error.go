package api

import "fmt"

// API error codes the engine reacts to.
const (
	CodeUnknown         = 1
	CodeAuthFailed      = 5
	CodeTooManyRequests = 6
	CodeFloodControl    = 9
	CodeInternalServer  = 10
	CodeCaptchaNeeded   = 14
	CodeAccessDenied    = 15
	CodeParamMissing    = 100
)

// RequestParam is one request parameter echoed back in an error envelope.
type RequestParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Error is an API-level failure: the HTTP exchange succeeded but the
// platform answered with an error object instead of a response.
type Error struct {
	Code          int            `json:"error_code"`
	Message       string         `json:"error_msg"`
	RequestParams []RequestParam `json:"request_params,omitempty"`
	CaptchaSID    string         `json:"captcha_sid,omitempty"`
	CaptchaImg    string         `json:"captcha_img,omitempty"`
}

// Error renders the platform's code and text.
func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Transient reports whether re-issuing the same call can succeed:
// unknown errors, rate limits, flood control and internal server
// errors pass, everything else is terminal.
func (e *Error) Transient() bool {
	switch e.Code {
	case CodeUnknown, CodeTooManyRequests, CodeFloodControl, CodeInternalServer:
		return true
	}
	return false
}

// TransportError wraps a failure below the API: connection, HTTP
// status, body read, or envelope decode.
type TransportError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("transport failure at %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("transport failure: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transient reports true; transport failures are assumed recoverable.
func (e *TransportError) Transient() bool {
	return true
}
