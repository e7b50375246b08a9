package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrNetworkUnavailable matches every NetworkError.
var ErrNetworkUnavailable = errors.New("network unavailable")

const (
	networkMessage = "Network error. Please check your connection."
	defaultMessage = "An error occurred"
)

// ErrorBody is the leniently parsed payload of a rejected request. The API
// reports failures as {"error": "..."}, {"errors": [...]}, {"detail": "..."}
// or serializer field errors such as {"username": ["..."]}.
type ErrorBody struct {
	Error  string          `json:"error,omitempty"`
	Errors []string        `json:"errors,omitempty"`
	Detail string          `json:"detail,omitempty"`
	Field  string          `json:"field,omitempty"`
	Raw    json.RawMessage `json:"-"`
}

// Message returns the most specific message in the body, or a generic one.
func (b ErrorBody) Message() string {
	if msg := b.text(); msg != "" {
		return msg
	}
	return defaultMessage
}

func (b ErrorBody) text() string {
	switch {
	case b.Error != "":
		return b.Error
	case len(b.Errors) > 0:
		return strings.Join(b.Errors, "; ")
	case b.Detail != "":
		return b.Detail
	default:
		return b.Field
	}
}

func parseErrorBody(data []byte) ErrorBody {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return ErrorBody{}
	}

	root := gjson.ParseBytes(data)
	body := ErrorBody{Raw: json.RawMessage(data)}
	if !root.IsObject() {
		return body
	}

	body.Error = root.Get("error").String()
	body.Detail = root.Get("detail").String()
	for _, e := range root.Get("errors").Array() {
		if s := e.String(); s != "" {
			body.Errors = append(body.Errors, s)
		}
	}

	root.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "error", "errors", "detail", "message":
			return true
		}
		msg := value.String()
		if value.IsArray() {
			msg = value.Get("0").String()
		}
		if msg == "" {
			return true
		}
		if key.String() == "non_field_errors" {
			body.Field = msg
		} else {
			body.Field = key.String() + ": " + msg
		}
		return false
	})

	return body
}

// ServerRejectedError is returned when the server answered with status >= 400.
type ServerRejectedError struct {
	Method string
	Path   string
	Status int
	Body   ErrorBody
}

func (e *ServerRejectedError) Error() string {
	return fmt.Sprintf("%s %s: server rejected request with status %d: %s", e.Method, e.Path, e.Status, e.Body.Message())
}

// NetworkError is returned when a request was sent but no response arrived.
// It matches both ErrNetworkUnavailable and its cause.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, ErrNetworkUnavailable, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetworkUnavailable, e.Err}
}

// ClientFaultError is returned when a request could not be built or a
// response could not be decoded.
type ClientFaultError struct {
	Message string
	Err     error
}

func (e *ClientFaultError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ClientFaultError) Unwrap() error {
	return e.Err
}

// Message returns the user-facing message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return MessageOr(err, defaultMessage)
}

// MessageOr returns the server or network message carried by err, or
// fallback when err carries none.
func MessageOr(err error, fallback string) string {
	var rejected *ServerRejectedError
	if errors.As(err, &rejected) {
		if msg := rejected.Body.text(); msg != "" {
			return msg
		}
		return fallback
	}

	if errors.Is(err, ErrNetworkUnavailable) {
		return networkMessage
	}

	var fault *ClientFaultError
	if errors.As(err, &fault) && fault.Message != "" {
		return fault.Message
	}

	return fallback
}

// IsStatus reports whether err is a ServerRejectedError with the given status.
func IsStatus(err error, status int) bool {
	var rejected *ServerRejectedError
	return errors.As(err, &rejected) && rejected.Status == status
}
