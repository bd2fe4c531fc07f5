package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/evanschultz/mailkan/internal/app"
)

// ErrUnauthorized and related errors describe transport and session failures.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrOffline        = errors.New("offline and no cached response available")
)

// StatusError is returned for every non-2xx backend response.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

// Error implements error.
func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" && !strings.EqualFold(e.Code, msg) {
		return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("api %d: %s", e.Status, msg)
}

// Is maps well-known statuses onto sentinel errors.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrOffline:
		return e.Status == http.StatusServiceUnavailable && e.Code == "Offline"
	case app.ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusErrorFrom decodes an error response body. The body is consumed.
func statusErrorFrom(resp *http.Response) *StatusError {
	out := &StatusError{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return out
	}
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		out.Code = body.Error
		out.Message = body.Message
		if out.Message == "" {
			out.Message = body.Error
		}
		return out
	}
	out.Message = strings.TrimSpace(string(raw))
	return out
}
