package clients

import (
	"errors"
	"fmt"
	"strings"
)

// UserError is a field-level error reported by the platform inside an
// otherwise successful response envelope (e.g. a duplicate collection
// title). These are terminal: retrying the same request will fail again.
type UserError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e UserError) String() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError wraps the user errors returned by a single mutation.
type ValidationError struct {
	Op     string
	Errors []UserError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ue := range e.Errors {
		msgs = append(msgs, ue.String())
	}
	return fmt.Sprintf("%s rejected by platform: %s", e.Op, strings.Join(msgs, "; "))
}

// TransportError covers network failures, auth failures and non-2xx
// responses. These are the retryable class, though this service does not
// retry them itself.
type TransportError struct {
	Op         string
	StatusCode int // zero when the request never completed
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed: status=%d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AsValidation returns the ValidationError in err's chain, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// AsTransport returns the TransportError in err's chain, if any.
func AsTransport(err error) (*TransportError, bool) {
	var te *TransportError
	ok := errors.As(err, &te)
	return te, ok
}
