package apiclient

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the pantry clients is, or wraps, one
// of these (transport failures aside).
var (
	ErrInvalidURL         = errors.New("invalid URL")
	ErrInvalidResponse    = errors.New("invalid response from server")
	ErrInvalidImage       = errors.New("could not process image")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrServer             = errors.New("server error")
	ErrBusy               = errors.New("a request is already in progress")
)

// StatusError is a non-200 response. Class is one of the sentinels above and
// Message is the server's structured error, or a synthesized one when the
// body could not be decoded.
type StatusError struct {
	Status  int
	Message string
	Class   error
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server error %d", e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Class
}

// UserMessage turns any client error into the string shown to a user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Error()
	}

	switch {
	case errors.Is(err, ErrInvalidImage):
		return ErrInvalidImage.Error()
	case errors.Is(err, ErrInvalidURL):
		return ErrInvalidURL.Error()
	case errors.Is(err, ErrInvalidResponse):
		return ErrInvalidResponse.Error()
	case errors.Is(err, ErrBusy):
		return ErrBusy.Error()
	}
	return err.Error()
}
