// Package threatscan defines the abstraction over a third-party threat
// scanning service: submit a URL, read back the analysis, and look up the
// cached report of a URL.
package threatscan

import (
	"context"
	"encoding/json"
	"scanrelay/pkg/domain"
)

// SubmitRes represents the response of a successful URL submission.
type SubmitRes struct {
	ID string // ID is the analysis identifier assigned by the provider.
}

// Analysis is a single read of a submitted analysis.
type Analysis struct {
	// Status is the lifecycle state reported by the provider.
	Status domain.AnalysisStatus
	// Raw is the full response document.
	Raw json.RawMessage
}

// Completed reports whether the provider finished the analysis.
func (a *Analysis) Completed() bool {
	return a != nil && a.Status == domain.AnalysisStatusCompleted
}

// Client is the abstraction for threat scanning providers.
//
//go:generate mockgen -package mockthreatscan -source=interface.go -destination=mock/mockthreatscan.go *
type Client interface {
	// SubmitURL submits the target URL for analysis and returns the analysis ID.
	SubmitURL(ctx context.Context, URL string) (SubmitRes, error)
	// Analysis fetches the current state of a previously submitted analysis.
	Analysis(ctx context.Context, analysisID string) (*Analysis, error)
	// URLReport fetches the provider's cached report for the URL itself,
	// independent of any analysis in flight.
	URLReport(ctx context.Context, URL string) (json.RawMessage, error)
}
