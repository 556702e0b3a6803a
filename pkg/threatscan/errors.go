package threatscan

import (
	"fmt"
	"net/http"
	"scanrelay/pkg/serrors"
	"strings"
)

// UpstreamError carries a non-2xx response of the provider. The body is kept
// so callers can surface it as error details.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// StatusError classifies a provider response status into a semantic error
// kind wrapping an *UpstreamError.
func StatusError(op string, statusCode int, body []byte) error {
	upstream := &UpstreamError{Op: op, StatusCode: statusCode, Body: body}

	switch statusCode {
	case http.StatusUnauthorized:
		return serrors.Wrap(serrors.ErrUnauthorized, upstream, "invalid API key")
	case http.StatusTooManyRequests:
		return serrors.Wrap(serrors.ErrRateLimited, upstream, "rate limited")
	case http.StatusNotFound:
		return serrors.Wrap(serrors.ErrNotFound, upstream, "not found")
	default:
		return serrors.Wrap(serrors.ErrUnavailable, upstream, "upstream error")
	}
}
