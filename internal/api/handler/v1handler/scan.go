package v1handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"scanrelay/pkg/domain"
	"scanrelay/pkg/logger"
	"scanrelay/pkg/serrors"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// DecodeScanRequest parses a JSON scan request body. An empty body, a
// missing "url" field or a non-string "url" all yield an empty URL so the
// scanner reports it as missing.
func DecodeScanRequest(b []byte) (domain.ScanRequest, error) {
	var req domain.ScanRequest
	if len(b) == 0 {
		return req, nil
	}

	d := jx.DecodeBytes(b)
	if d.Next() != jx.Object {
		return req, serrors.With(serrors.ErrBadRequest, "request body must be a JSON object")
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "url" || d.Next() != jx.String {
			return d.Skip()
		}

		v, err := d.Str()
		if err != nil {
			return err //nolint: wrapcheck
		}
		req.URL = v

		return nil
	})
	if err != nil {
		return domain.ScanRequest{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid JSON body")
	}

	return req, nil
}

// readScanRequest accepts JSON bodies and HTML form posts.
func (h Handler) readScanRequest(w http.ResponseWriter, r *http.Request) (domain.ScanRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			return domain.ScanRequest{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid form body")
		}

		return domain.ScanRequest{URL: r.PostForm.Get("url")}, nil
	default:
		b, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return domain.ScanRequest{}, serrors.Wrap(serrors.ErrBadRequest, err, "request body too large")
			}

			return domain.ScanRequest{}, fmt.Errorf("could not read request body: %w", err)
		}

		return DecodeScanRequest(b)
	}
}

// Scan relays one URL to the upstream scanner and writes the upstream JSON
// payload back unmodified.
func (h Handler) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := h.readScanRequest(w, r)
	if err != nil {
		h.writeError(ctx, w, err)

		return
	}

	res, err := h.deps.Scanner.Scan(ctx, req.URL)
	if err != nil {
		h.writeError(ctx, w, err)

		return
	}

	logger.Info(ctx, "sending analysis results to client",
		zap.String("source", string(res.Source)),
		zap.Int("attempts", res.Attempts))
	writeJSON(w, http.StatusOK, res.Payload)
}
