package domain

import (
	"errors"
	"fmt"
)

// ErrMissingField marks a 2xx response that lacks a field the pipeline needs.
var ErrMissingField = errors.New("response missing expected field")

// maxErrorBody caps how much of an upstream body is kept on the error.
const maxErrorBody = 2048

// UpstreamError is a non-2xx answer from the image host, the storefront or the
// marketplace. Body holds the raw response for diagnosis.
type UpstreamError struct {
	Service    string
	Op         string
	StatusCode int
	Body       string
}

func NewUpstreamError(service, op string, status int, body []byte) *UpstreamError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &UpstreamError{Service: service, Op: op, StatusCode: status, Body: string(body)}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Service, e.Op, e.StatusCode, e.Body)
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}
