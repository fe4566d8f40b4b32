// Package errors holds the failure kinds shared by phrasebot's packages.
// Wrap one with fmt.Errorf("%w: ...") and the HTTP and Kafka edges decide
// what to do from the kind alone.
package errors

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidCommand = errors.New("invalid command")
	ErrNoResponse     = errors.New("no response possible")
	ErrUnavailable    = errors.New("dependency unavailable")
	ErrInternal       = errors.New("internal error")
	ErrTimeout        = errors.New("operation timed out")
)

var statusByKind = []struct {
	kind   error
	status int
}{
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrInvalidCommand, http.StatusBadRequest},
	{ErrNoResponse, http.StatusConflict},
	{ErrTimeout, http.StatusServiceUnavailable},
	{ErrUnavailable, http.StatusServiceUnavailable},
}

// Status returns the HTTP status for the first known kind in err's chain,
// or 500.
func Status(err error) int {
	for _, k := range statusByKind {
		if errors.Is(err, k.kind) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// Rejected reports whether err blames the sender. Such messages are never
// worth redelivering.
func Rejected(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidCommand)
}

// Public returns the status for err and the text a client may see: the
// error itself for 4xx, fallback for everything else.
func Public(err error, fallback string) (int, string) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		return status, fallback
	}
	return status, err.Error()
}
