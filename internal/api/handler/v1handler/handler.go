// Package v1handler implements the HTTP handlers of the relay API.
package v1handler

import (
	"net/http"
	"scanrelay/internal/scanner"

	"github.com/go-faster/jx"
)

// DefaultMaxBodyBytes bounds a scan request body when Deps.MaxBodyBytes is unset.
const DefaultMaxBodyBytes = 64 << 10

// Deps holds the collaborators of Handler.
type Deps struct {
	Scanner scanner.Scanner
	// MaxBodyBytes limits the size of an inbound request body.
	MaxBodyBytes int64
}

type Handler struct {
	deps Deps
}

func New(deps Deps) *Handler {
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = DefaultMaxBodyBytes
	}

	return &Handler{deps: deps}
}

// Health reports liveness. It does not touch the upstream API.
func (h Handler) Health(w http.ResponseWriter, _ *http.Request) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	e.Str("ok")
	e.ObjEnd()

	writeJSON(w, http.StatusOK, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
