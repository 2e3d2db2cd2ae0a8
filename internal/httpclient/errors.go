package httpclient

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	Response *Response
	// Message is the envelope message carried in the body, if any.
	Message string
}

func newStatusError(resp *Response) *StatusError {
	se := &StatusError{Response: resp}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		se.Message = body.Message
	}
	return se
}

func (e *StatusError) Error() string {
	status := e.StatusCode()
	text := fmt.Sprintf("http status %d %s", status, http.StatusText(status))
	if e.Message != "" {
		text += ": " + e.Message
	}
	return text
}

// StatusCode returns the HTTP status of the failed response.
func (e *StatusError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// IsClientError reports a 4xx status.
func (e *StatusError) IsClientError() bool {
	code := e.StatusCode()
	return code >= 400 && code < 500
}

// AsStatusError unwraps err into a *StatusError.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
