package response

import "encoding/json"

// Application-level codes carried in the response body.
const (
	CodeSuccess        = 0
	CodeParamsError    = 40000
	CodeNotLogin       = 40100
	CodeNoAuth         = 40101
	CodeForbidden      = 40300
	CodeNotFound       = 40400
	CodeSystemError    = 50000
	CodeOperationError = 50001
)

// BaseResponse is the envelope every JSON endpoint answers with.
type BaseResponse[T any] struct {
	Code    int    `json:"code"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the envelope signals success.
func (r BaseResponse[T]) OK() bool {
	return r.Code == CodeSuccess
}

// Raw is an envelope whose payload has not been decoded yet.
type Raw = BaseResponse[json.RawMessage]

// Success builds a success envelope.
func Success[T any](data T) BaseResponse[T] {
	return BaseResponse[T]{Code: CodeSuccess, Data: data, Message: "ok"}
}

// Failure builds an error envelope with no payload.
func Failure(code int, message string) BaseResponse[any] {
	return BaseResponse[any]{Code: code, Message: message}
}

// ID is a 64-bit identifier. The backend writes longs as JSON strings; bare
// numbers are accepted too.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}
