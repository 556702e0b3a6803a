package v1handler

import (
	"context"
	"errors"
	"net/http"
	"scanrelay/pkg/logger"
	"scanrelay/pkg/serrors"
	"scanrelay/pkg/threatscan"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// Messages reported in the "error" field of an error response.
const (
	MsgInvalidAPIKey  = "Invalid API key"
	MsgRateLimited    = "API rate limit exceeded. Please try again later."
	MsgScanFailed     = "Error scanning URL"
	MsgAPIKeyMissing  = "API key is not configured"
	MsgInvalidRequest = "URL is required"
)

// ErrorResponse is the body of every failed request:
// {"error": <message>, "details": <upstream body or local message>}.
type ErrorResponse struct {
	StatusCode int
	Message    string
	// Details is a JSON value: the upstream body when it is valid JSON,
	// otherwise a JSON string.
	Details jx.Raw
}

// Encode writes the response body.
func (r *ErrorResponse) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("error")
	e.Str(r.Message)
	e.FieldStart("details")
	e.Raw(r.Details)
	e.ObjEnd()
}

// NewError classifies err into a status code, a public message and details.
func (h Handler) NewError(ctx context.Context, err error) *ErrorResponse {
	res := &ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Message:    MsgScanFailed,
		Details:    details(err),
	}

	switch serrors.KindOf(err) {
	case serrors.ErrBadRequest:
		res.StatusCode = http.StatusBadRequest
		res.Message = MsgInvalidRequest
		var se *serrors.Error
		if errors.As(err, &se) && se.Message() != "" {
			res.Message = se.Message()
		}
	case serrors.ErrUnauthorized:
		res.StatusCode = http.StatusUnauthorized
		res.Message = MsgInvalidAPIKey
	case serrors.ErrRateLimited:
		res.StatusCode = http.StatusTooManyRequests
		res.Message = MsgRateLimited
	case serrors.ErrMisconfigured:
		res.Message = MsgAPIKeyMissing
	}

	fields := []zap.Field{zap.Error(err), zap.Int("status_code", res.StatusCode)}
	var upstream *threatscan.UpstreamError
	if errors.As(err, &upstream) {
		fields = append(fields,
			zap.Int("upstream_status", upstream.StatusCode),
			zap.ByteString("upstream_body", upstream.Body))
	}
	if res.StatusCode >= http.StatusInternalServerError {
		logger.Error(ctx, "error in scan endpoint", fields...)
	} else {
		logger.Warn(ctx, "scan request rejected", fields...)
	}

	return res
}

// details prefers the raw upstream response body and falls back to the
// error text.
func details(err error) jx.Raw {
	var e jx.Encoder

	var upstream *threatscan.UpstreamError
	if errors.As(err, &upstream) && len(upstream.Body) > 0 {
		if jx.Valid(upstream.Body) {
			return jx.Raw(upstream.Body)
		}
		e.Str(string(upstream.Body))

		return e.Bytes()
	}

	e.Str(err.Error())

	return e.Bytes()
}

func (h Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	res := h.NewError(ctx, err)

	var e jx.Encoder
	res.Encode(&e)
	writeJSON(w, res.StatusCode, e.Bytes())
}
